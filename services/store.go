package services

import (
	"context"
	"errors"
	"time"

	"quiz-study-system/models"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionCompleted  = errors.New("session already completed")
	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrInvalidResult     = errors.New("invalid session result")
)

// SessionStore covers the session lifecycle. Point reads return (nil, nil)
// when the row does not exist.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.QuizSession) error
	GetSession(ctx context.Context, id string) (*models.QuizSession, error)
	SaveSession(ctx context.Context, s *models.QuizSession) error
	InsertQuestionLog(ctx context.Context, row *models.QuestionLog) error
	// ListLoggedQuestionIDs returns the question ids already logged for a session.
	ListLoggedQuestionIDs(ctx context.Context, sessionID string) ([]string, error)
	GetAssignment(ctx context.Context, id string) (*models.Assignment, error)
}

// StatsStore is what the progression engine reads and writes.
type StatsStore interface {
	// ListCompletedSessions returns every completed session of the user, oldest first.
	ListCompletedSessions(ctx context.Context, userID string) ([]models.QuizSession, error)
	CountQuestionLogs(ctx context.Context, userID string) (int64, error)
	GetUserStats(ctx context.Context, userID string) (*models.UserStats, error)
	// UpsertUserStats replaces the row keyed by user_id.
	UpsertUserStats(ctx context.Context, stats *models.UserStats) error
	ListUsersCompletedSince(ctx context.Context, since time.Time) ([]string, error)
}

type AchievementStore interface {
	ListAchievements(ctx context.Context) ([]models.Achievement, error)
	ListUnlockedAchievementIDs(ctx context.Context, userID string) ([]string, error)
	// InsertUserAchievement reports false when the pair already existed.
	InsertUserAchievement(ctx context.Context, ua *models.UserAchievement) (bool, error)
}

type ProgressStore interface {
	SessionStore
	StatsStore
	AchievementStore
}
