package models

// Exercise is one movement template inside a block.
type Exercise struct {
	Name    string `json:"name"`
	Sets    int    `json:"sets"`
	Reps    string `json:"reps"`               // rep range or timed, e.g. "8-12", "45s"
	RestSec int    `json:"rest_sec,omitempty"` // rest between sets, 0 = circuit pace
}

// WorkoutBlock is a named session template with a fixed exercise list.
type WorkoutBlock struct {
	Name      string     `json:"name"`
	Focus     string     `json:"focus"`
	Exercises []Exercise `json:"exercises"`
}

// WorkoutPlan is derived from the user's goal on every read. It is never
// persisted; changing the goal changes the plan.
type WorkoutPlan struct {
	Goal   Goal           `json:"goal"`
	Blocks []WorkoutBlock `json:"blocks"`
}

// BlockForSession returns the block for the nth session of a pass. Sessions
// rotate through the blocks in order.
func (p WorkoutPlan) BlockForSession(n int) WorkoutBlock {
	if len(p.Blocks) == 0 {
		return WorkoutBlock{Name: "Workout", Focus: "general"}
	}
	if n < 0 {
		n = 0
	}
	return p.Blocks[n%len(p.Blocks)]
}

// PlanForGoal maps a goal to its rotating block list.
func PlanForGoal(goal Goal) WorkoutPlan {
	switch goal {
	case GoalBuildMuscle:
		return WorkoutPlan{Goal: goal, Blocks: []WorkoutBlock{
			{
				Name:  "Push Day",
				Focus: "chest/shoulders/triceps",
				Exercises: []Exercise{
					{Name: "Barbell Bench Press", Sets: 4, Reps: "6-10", RestSec: 120},
					{Name: "Overhead Press", Sets: 3, Reps: "8-10", RestSec: 90},
					{Name: "Incline Dumbbell Press", Sets: 3, Reps: "8-12", RestSec: 90},
					{Name: "Lateral Raise", Sets: 3, Reps: "12-15", RestSec: 60},
					{Name: "Tricep Rope Pushdown", Sets: 3, Reps: "10-12", RestSec: 60},
				},
			},
			{
				Name:  "Pull Day",
				Focus: "back/biceps",
				Exercises: []Exercise{
					{Name: "Deadlift", Sets: 3, Reps: "5-8", RestSec: 150},
					{Name: "Pull-Up", Sets: 4, Reps: "6-10", RestSec: 120},
					{Name: "Seated Cable Row", Sets: 3, Reps: "8-12", RestSec: 90},
					{Name: "Bicep Curl", Sets: 3, Reps: "10-12", RestSec: 60},
					{Name: "Face Pull", Sets: 3, Reps: "12-15", RestSec: 60},
				},
			},
			{
				Name:  "Leg Day",
				Focus: "quads/hamstrings/glutes",
				Exercises: []Exercise{
					{Name: "Back Squat", Sets: 4, Reps: "6-10", RestSec: 150},
					{Name: "Romanian Deadlift", Sets: 3, Reps: "8-10", RestSec: 120},
					{Name: "Leg Press", Sets: 3, Reps: "10-12", RestSec: 90},
					{Name: "Walking Lunge", Sets: 3, Reps: "10/leg", RestSec: 90},
					{Name: "Standing Calf Raise", Sets: 4, Reps: "12-15", RestSec: 60},
				},
			},
		}}
	case GoalLoseWeight:
		return WorkoutPlan{Goal: goal, Blocks: []WorkoutBlock{
			{
				Name:  "Full Body Circuit",
				Focus: "conditioning",
				Exercises: []Exercise{
					{Name: "Goblet Squat", Sets: 3, Reps: "15"},
					{Name: "Push-Up", Sets: 3, Reps: "12-15"},
					{Name: "Kettlebell Swing", Sets: 3, Reps: "20"},
					{Name: "Mountain Climber", Sets: 3, Reps: "45s"},
					{Name: "Plank", Sets: 3, Reps: "60s"},
				},
			},
			{
				Name:  "Intervals + Core",
				Focus: "cardio",
				Exercises: []Exercise{
					{Name: "Treadmill Intervals", Sets: 8, Reps: "1min hard / 1min easy"},
					{Name: "Bicycle Crunch", Sets: 3, Reps: "20", RestSec: 45},
					{Name: "Russian Twist", Sets: 3, Reps: "20", RestSec: 45},
					{Name: "Hanging Knee Raise", Sets: 3, Reps: "10-12", RestSec: 60},
				},
			},
			{
				Name:  "Strength Maintenance",
				Focus: "full body strength",
				Exercises: []Exercise{
					{Name: "Back Squat", Sets: 3, Reps: "8-10", RestSec: 120},
					{Name: "Barbell Bench Press", Sets: 3, Reps: "8-10", RestSec: 120},
					{Name: "One-Arm Dumbbell Row", Sets: 3, Reps: "10/side", RestSec: 90},
					{Name: "Lateral Raise", Sets: 2, Reps: "12-15", RestSec: 60},
				},
			},
		}}
	default: // GoalGeneralFitness and anything unrecognized
		return WorkoutPlan{Goal: GoalGeneralFitness, Blocks: []WorkoutBlock{
			{
				Name:  "Full Body A",
				Focus: "strength",
				Exercises: []Exercise{
					{Name: "Goblet Squat", Sets: 3, Reps: "10-12", RestSec: 90},
					{Name: "Push-Up", Sets: 3, Reps: "10-15", RestSec: 60},
					{Name: "One-Arm Dumbbell Row", Sets: 3, Reps: "10/side", RestSec: 90},
					{Name: "Bicep Curl", Sets: 2, Reps: "12", RestSec: 60},
					{Name: "Plank", Sets: 3, Reps: "45s"},
				},
			},
			{
				Name:  "Full Body B",
				Focus: "strength",
				Exercises: []Exercise{
					{Name: "Romanian Deadlift", Sets: 3, Reps: "10", RestSec: 90},
					{Name: "Overhead Press", Sets: 3, Reps: "8-10", RestSec: 90},
					{Name: "Lat Pulldown", Sets: 3, Reps: "10-12", RestSec: 90},
					{Name: "Lateral Raise", Sets: 2, Reps: "12-15", RestSec: 60},
					{Name: "Dead Bug", Sets: 3, Reps: "10/side"},
				},
			},
			{
				Name:  "Cardio + Mobility",
				Focus: "conditioning",
				Exercises: []Exercise{
					{Name: "Steady-State Run or Bike", Sets: 1, Reps: "25min"},
					{Name: "World's Greatest Stretch", Sets: 2, Reps: "5/side"},
					{Name: "Hip Flexor Stretch", Sets: 2, Reps: "45s/side"},
					{Name: "Thoracic Rotation", Sets: 2, Reps: "10/side"},
				},
			},
		}}
	}
}
