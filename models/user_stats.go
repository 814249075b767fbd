package models

import "time"

// UserStats is the per-user gamification aggregate. It is rebuilt from the
// full completed-session history on every completion, never incremented.
type UserStats struct {
	ID            string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string     `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalXP       int64      `gorm:"default:0" json:"total_xp"`
	CurrentLevel  int        `gorm:"default:1" json:"current_level"`
	LongestStreak int        `gorm:"default:0" json:"longest_streak"`
	LastQuizDate  *time.Time `json:"last_quiz_date,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// QuestionLog is one row per answered question; counts feed achievements.
type QuestionLog struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"index;not null" json:"user_id"`
	SessionID    string    `gorm:"index;not null" json:"session_id"`
	QuestionID   string    `gorm:"not null" json:"question_id"`
	PointsEarned int64     `json:"points_earned"`
	TotalPoints  int64     `json:"total_points"`
	TimeSpent    int       `json:"time_spent"`
	AnsweredAt   time.Time `gorm:"autoCreateTime" json:"answered_at"`
}

func (UserStats) TableName() string { return "user_stats" }
