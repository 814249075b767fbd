package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
)

// SessionResult is one answered question inside a session.
type SessionResult struct {
	QuestionID   string `json:"question_id"`
	PointsEarned int64  `json:"points_earned"`
	TotalPoints  int64  `json:"total_points"`
	TimeSpent    int    `json:"time_spent"` // seconds
}

// QuizSession is a single sitting of a quiz. Completed is terminal.
type QuizSession struct {
	ID     string        `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string        `gorm:"index;not null" json:"user_id"`
	QuizID string        `gorm:"index" json:"quiz_id"`
	Status SessionStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`

	Results     datatypes.JSONSlice[SessionResult] `json:"results"`
	TotalPoints int64                              `gorm:"default:0" json:"total_points"`
	MaxPoints   int64                              `gorm:"default:0" json:"max_points"`

	EstimatedMinutes int `gorm:"default:0" json:"estimated_minutes"`

	AssignmentID *string    `gorm:"index" json:"assignment_id,omitempty"`
	CompletedAt  *time.Time `gorm:"index" json:"completed_at,omitempty"`

	// BonusXP is awarded once, at the transition into completed.
	BonusXP int64 `gorm:"default:0" json:"bonus_xp"`

	Timestamps
}

// SumPoints is the total of points_earned across results.
func SumPoints(results []SessionResult) int64 {
	var total int64
	for _, r := range results {
		total += r.PointsEarned
	}
	return total
}

// RecomputeTotalPoints overwrites TotalPoints from Results when results are present.
func (s *QuizSession) RecomputeTotalPoints() {
	if len(s.Results) == 0 {
		return
	}
	s.TotalPoints = SumPoints(s.Results)
}

func (s *QuizSession) IsCompleted() bool {
	return s.Status == SessionStatusCompleted
}

// XP is what this session contributes to the owner's total.
func (s *QuizSession) XP() int64 {
	return s.TotalPoints + s.BonusXP
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
