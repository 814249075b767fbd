package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationKind string

const (
	NotificationKindAchievement NotificationKind = "achievement"
	NotificationKindBonus       NotificationKind = "bonus"
)

// Notification is an inbox row streamed to clients over SSE.
type Notification struct {
	ID        string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string           `gorm:"index;not null" json:"user_id"`
	Kind      NotificationKind `gorm:"type:varchar(16);not null" json:"kind"`
	Title     string           `gorm:"not null" json:"title"`
	Body      string           `gorm:"type:text" json:"body"`
	Emoji     string           `gorm:"size:10" json:"emoji,omitempty"`
	Payload   datatypes.JSON   `json:"payload,omitempty"`
	Viewed    bool             `gorm:"default:false;index" json:"viewed"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}
