package progress

import (
	"errors"
	"fmt"
	"time"
)

// DefaultBodyWeightKg is used for calorie estimates when the user weight is unknown.
const DefaultBodyWeightKg = 70.0

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidUserID = errors.New("invalid user id")
)

// Summary is the record written once at the end of a coaching session.
type Summary struct {
	ID              int       `json:"id"`
	SessionID       string    `json:"sessionId"`
	UserID          string    `json:"userId"`
	Exercise        string    `json:"exercise"`
	Mode            string    `json:"mode"`
	StartedAt       time.Time `json:"startedAt"`
	EndedAt         time.Time `json:"endedAt"`
	DurationSeconds float64   `json:"durationSeconds"`
	TotalReps       int       `json:"totalReps"`
	CorrectReps     int       `json:"correctReps"`
	IncorrectReps   int       `json:"incorrectReps"`
	Calories        float64   `json:"calories"`
}

func (s Summary) Validate() error {
	if s.SessionID == "" {
		return errors.New("session id is empty")
	}
	if err := ValidateUserID(s.UserID); err != nil {
		return err
	}
	if s.Exercise == "" {
		return errors.New("exercise is empty")
	}
	if s.EndedAt.Before(s.StartedAt) {
		return fmt.Errorf("session ended (%s) before it started (%s)", s.EndedAt, s.StartedAt)
	}
	if s.CorrectReps < 0 || s.IncorrectReps < 0 || s.TotalReps < 0 {
		return errors.New("negative rep count")
	}
	if s.DurationSeconds < 0 || s.Calories < 0 {
		return errors.New("negative duration or calories")
	}
	return nil
}

// Goals is the user goals document.
type Goals struct {
	UserID                string    `json:"userId"`
	TargetSessionsPerWeek int       `json:"targetSessionsPerWeek"`
	TargetRepsPerSession  int       `json:"targetRepsPerSession"`
	TargetCalories        float64   `json:"targetCalories"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func (g Goals) Validate() error {
	if err := ValidateUserID(g.UserID); err != nil {
		return err
	}
	if g.TargetSessionsPerWeek < 0 || g.TargetRepsPerSession < 0 || g.TargetCalories < 0 {
		return errors.New("negative goal")
	}
	return nil
}

// Totals are the aggregate counters of a user, across all sessions.
type Totals struct {
	UserID          string    `json:"userId"`
	Sessions        int       `json:"sessions"`
	DurationSeconds float64   `json:"durationSeconds"`
	Calories        float64   `json:"calories"`
	CorrectReps     int       `json:"correctReps"`
	IncorrectReps   int       `json:"incorrectReps"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// LiveCounters are the rep counters of a session that is still running.
type LiveCounters struct {
	UserID        string    `json:"userId"`
	SessionID     string    `json:"sessionId"`
	Exercise      string    `json:"exercise"`
	Status        string    `json:"status"`
	CorrectReps   int       `json:"correctReps"`
	IncorrectReps int       `json:"incorrectReps"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func ValidateUserID(userID string) error {
	if userID == "" || len(userID) > 128 {
		return ErrInvalidUserID
	}
	return nil
}

// EstimateCalories returns MET * weight (kg) * hours.
func EstimateCalories(met, weightKg float64, duration time.Duration) float64 {
	if met <= 0 || duration <= 0 {
		return 0
	}
	if weightKg <= 0 {
		weightKg = DefaultBodyWeightKg
	}
	return met * weightKg * duration.Hours()
}
