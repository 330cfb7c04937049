package utils

import (
	"errors"
	"fmt"
)

// CalculateBMI expects height in centimeters and weight in kilograms.
func CalculateBMI(heightCm, weightKg float64) (float64, error) {
	if heightCm <= 0 || weightKg <= 0 {
		return 0, errors.New("height and weight must be positive")
	}
	// Sanity checks to avoid garbage input
	if heightCm < 50 || heightCm > 250 || weightKg < 10 || weightKg > 400 {
		return 0, errors.New("height/weight out of plausible range")
	}

	h := heightCm / 100.0 // to meters
	bmi := weightKg / (h * h)
	return bmi, nil
}

func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "underweight"
	case bmi < 25.0:
		return "normal weight"
	case bmi < 30.0:
		return "overweight"
	default:
		return "obese"
	}
}

// BMISummary renders "23.1 (normal weight)" for coaching context, or the
// empty string when the inputs are missing or implausible.
func BMISummary(heightCm, weightKg float64) string {
	bmi, err := CalculateBMI(heightCm, weightKg)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%.1f (%s)", bmi, BMICategory(bmi))
}
