package models

import "time"

// Achievement is a catalogue entry (seeded from achievements.yaml or added by admins).
type Achievement struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id" yaml:"-"`
	Code          string    `gorm:"uniqueIndex;not null" json:"code" yaml:"code"` // e.g. "streak-7"
	Name          string    `gorm:"not null" json:"name" yaml:"name"`
	Description   string    `json:"description" yaml:"description"`
	CriteriaType  string    `gorm:"type:varchar(64);not null" json:"criteria_type" yaml:"criteria_type"`
	CriteriaValue int64     `gorm:"not null;default:0" json:"criteria_value" yaml:"criteria_value"`
	IconURL       string    `gorm:"type:text" json:"icon_url,omitempty" yaml:"icon_url"`
	Rarity        string    `gorm:"type:varchar(16);default:'common'" json:"rarity" yaml:"rarity"` // common, rare, epic, legendary
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
}

// UserAchievement is append-only; (user_id, achievement_id) is unique.
type UserAchievement struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string    `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID string    `gorm:"not null;uniqueIndex:idx_user_achievement;index" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"not null" json:"unlocked_at"`

	Achievement *Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
}
