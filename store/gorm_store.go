// Package store persists the gamification engine's state with gorm.
package store

import (
	"context"
	"errors"
	"time"

	"quiz-study-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements services.ProgressStore on top of a *gorm.DB.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Models lists every table the engine owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.QuizSession{},
		&models.QuestionLog{},
		&models.UserStats{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Assignment{},
		&models.Team{},
		&models.TeamMember{},
		&models.Notification{},
	}
}

func (s *GormStore) AutoMigrate() error {
	return s.DB.AutoMigrate(Models()...)
}

func (s *GormStore) CreateSession(ctx context.Context, sess *models.QuizSession) error {
	return s.DB.WithContext(ctx).Create(sess).Error
}

func (s *GormStore) GetSession(ctx context.Context, id string) (*models.QuizSession, error) {
	var sess models.QuizSession
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *GormStore) SaveSession(ctx context.Context, sess *models.QuizSession) error {
	return s.DB.WithContext(ctx).Save(sess).Error
}

func (s *GormStore) InsertQuestionLog(ctx context.Context, row *models.QuestionLog) error {
	return s.DB.WithContext(ctx).Create(row).Error
}

func (s *GormStore) ListLoggedQuestionIDs(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.QuestionLog{}).
		Where("session_id = ?", sessionID).
		Distinct().
		Pluck("question_id", &ids).Error
	return ids, err
}

func (s *GormStore) GetAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	var a models.Assignment
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *GormStore) ListCompletedSessions(ctx context.Context, userID string) ([]models.QuizSession, error) {
	var sessions []models.QuizSession
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SessionStatusCompleted).
		Order("completed_at ASC").
		Find(&sessions).Error
	return sessions, err
}

func (s *GormStore) CountQuestionLogs(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.QuestionLog{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (s *GormStore) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	var st models.UserStats
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// UpsertUserStats writes the whole aggregate in one statement keyed by user_id.
func (s *GormStore) UpsertUserStats(ctx context.Context, stats *models.UserStats) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_xp", "current_level", "longest_streak", "last_quiz_date", "updated_at",
		}),
	}).Create(stats).Error
}

func (s *GormStore) ListUsersCompletedSince(ctx context.Context, since time.Time) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.QuizSession{}).
		Where("status = ? AND completed_at >= ?", models.SessionStatusCompleted, since).
		Distinct().
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (s *GormStore) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	var out []models.Achievement
	err := s.DB.WithContext(ctx).Order("created_at ASC, code ASC").Find(&out).Error
	return out, err
}

func (s *GormStore) ListUnlockedAchievementIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.UserAchievement{}).
		Where("user_id = ?", userID).
		Pluck("achievement_id", &ids).Error
	return ids, err
}

// InsertUserAchievement is a no-op on the (user_id, achievement_id) unique index.
func (s *GormStore) InsertUserAchievement(ctx context.Context, ua *models.UserAchievement) (bool, error) {
	if ua.UnlockedAt.IsZero() {
		ua.UnlockedAt = time.Now().UTC()
	}
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(ua)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
