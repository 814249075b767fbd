package models

import "time"

// Assignment schedules a quiz for a user on a calendar day. Completing a
// linked session on that day earns the on-time bonus.
type Assignment struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string    `gorm:"index;not null" json:"user_id"`
	QuizID        string    `gorm:"index;not null" json:"quiz_id"`
	TeamID        *string   `gorm:"index" json:"team_id,omitempty"`
	Title         string    `json:"title"`
	ScheduledDate time.Time `gorm:"type:date;not null;index" json:"scheduled_date"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
