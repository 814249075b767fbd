package models

import "time"

type Team struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	OwnerID   string    `gorm:"index;not null" json:"owner_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

type TeamMember struct {
	ID       string    `gorm:"primaryKey;type:uuid" json:"id"`
	TeamID   string    `gorm:"not null;uniqueIndex:idx_team_member" json:"team_id"`
	UserID   string    `gorm:"not null;uniqueIndex:idx_team_member;index" json:"user_id"`
	Role     string    `gorm:"type:varchar(16);default:'member'" json:"role"` // owner | member
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// LeaderboardEntry is a computed row, not a table.
type LeaderboardEntry struct {
	Rank          int        `json:"rank"`
	UserID        string     `json:"user_id"`
	Username      string     `json:"username"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	TotalXP       int64      `json:"total_xp"`
	CurrentLevel  int        `json:"current_level"`
	LongestStreak int        `json:"longest_streak"`
	LastQuizDate  *time.Time `json:"last_quiz_date,omitempty"`
}
