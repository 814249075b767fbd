package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile is a local snapshot of display data from the profile service.
// Populated by the profile sync worker; used for leaderboards.
type Profile struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID    string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username          string    `gorm:"index;not null" json:"username"`
	Email             string    `json:"email,omitempty"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	FirstName         *string   `json:"first_name,omitempty"`
	LastName          *string   `json:"last_name,omitempty"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
