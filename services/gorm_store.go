package services

import (
	"errors"
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"

	"gorm.io/gorm"
)

var nonTerminalStatuses = []models.WorkoutStatus{models.WorkoutScheduled, models.WorkoutRescheduled}

// ---------- users ----------

type GormUserStore struct{ db *gorm.DB }

func NewGormUserStore(db *gorm.DB) *GormUserStore { return &GormUserStore{db: db} }

func (s *GormUserStore) ByID(id uint) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormUserStore) ByPhone(phone string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("phone = ?", phone).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormUserStore) Create(u *models.User) error { return s.db.Create(u).Error }

func (s *GormUserStore) Save(u *models.User) error { return s.db.Save(u).Error }

func (s *GormUserStore) AdvanceOnboarding(userID uint, from, to models.OnboardingStep, set map[string]any) (bool, error) {
	vals := map[string]any{"onboarding_step": to}
	for k, v := range set {
		vals[k] = v
	}
	res := s.db.Model(&models.User{}).
		Where("id = ? AND onboarding_step = ?", userID, from).
		Updates(vals)
	return res.RowsAffected > 0, res.Error
}

func (s *GormUserStore) SaveGoogleTokens(userID uint, access, refresh string, expiry time.Time) error {
	return s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"google_access_token":  access,
		"google_refresh_token": refresh,
		"google_token_expiry":  expiry,
	}).Error
}

// ---------- workouts ----------

type GormWorkoutStore struct{ db *gorm.DB }

func NewGormWorkoutStore(db *gorm.DB) *GormWorkoutStore { return &GormWorkoutStore{db: db} }

func (s *GormWorkoutStore) Create(w *models.ScheduledWorkout) error { return s.db.Create(w).Error }

func (s *GormWorkoutStore) ByID(id uint) (*models.ScheduledWorkout, error) {
	var w models.ScheduledWorkout
	if err := s.db.First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (s *GormWorkoutStore) Upcoming(userID uint, from time.Time, limit int) ([]models.ScheduledWorkout, error) {
	var out []models.ScheduledWorkout
	q := s.db.Where("user_id = ? AND status IN ? AND start_time >= ?", userID, nonTerminalStatuses, from).
		Order("start_time asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (s *GormWorkoutStore) InWindow(userID uint, from, to time.Time) ([]models.ScheduledWorkout, error) {
	var out []models.ScheduledWorkout
	err := s.db.Where("user_id = ? AND status IN ? AND start_time < ? AND end_time > ?",
		userID, nonTerminalStatuses, to, from).
		Order("start_time asc").
		Find(&out).Error
	return out, err
}

func (s *GormWorkoutStore) Save(w *models.ScheduledWorkout) error { return s.db.Save(w).Error }

func (s *GormWorkoutStore) SetStatus(id uint, from []models.WorkoutStatus, to models.WorkoutStatus) (bool, error) {
	res := s.db.Model(&models.ScheduledWorkout{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (s *GormWorkoutStore) Reschedule(id uint, from []models.WorkoutStatus, start, end time.Time, eventID string) (bool, error) {
	res := s.db.Model(&models.ScheduledWorkout{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"start_time":        start,
			"end_time":          end,
			"calendar_event_id": eventID,
			"status":            models.WorkoutRescheduled,
			"reminder_sent":     false,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *GormWorkoutStore) DueForReminder(from, to time.Time) ([]models.ScheduledWorkout, error) {
	var out []models.ScheduledWorkout
	err := s.db.Where("status IN ? AND reminder_sent = ? AND start_time >= ? AND start_time < ?",
		nonTerminalStatuses, false, from, to).
		Order("start_time asc").
		Find(&out).Error
	return out, err
}

func (s *GormWorkoutStore) MarkReminderSent(id uint) (bool, error) {
	res := s.db.Model(&models.ScheduledWorkout{}).
		Where("id = ? AND reminder_sent = ?", id, false).
		Update("reminder_sent", true)
	return res.RowsAffected > 0, res.Error
}

// ---------- messages ----------

type GormMessageStore struct{ db *gorm.DB }

func NewGormMessageStore(db *gorm.DB) *GormMessageStore { return &GormMessageStore{db: db} }

func (s *GormMessageStore) Append(userID uint, role, body string) error {
	return s.db.Create(&models.Message{
		UserID:    userID,
		Role:      role,
		Body:      body,
		CreatedAt: time.Now(),
	}).Error
}

func (s *GormMessageStore) Recent(userID uint, limit int) ([]models.Message, error) {
	var out []models.Message
	err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ---------- schedule events ----------

type GormEventStore struct{ db *gorm.DB }

func NewGormEventStore(db *gorm.DB) *GormEventStore { return &GormEventStore{db: db} }

func (s *GormEventStore) Append(e *models.ScheduleEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return s.db.Create(e).Error
}

func (s *GormEventStore) Recent(userID uint, limit int) ([]models.ScheduleEvent, error) {
	var out []models.ScheduleEvent
	err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
