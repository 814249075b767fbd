package services

import (
	"context"
	"fmt"

	"quiz-study-system/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// HistoryPage is one page of a user's completed sessions plus totals.
type HistoryPage struct {
	Sessions             []models.QuizSession `json:"sessions"`
	Page                 int                  `json:"page"`
	Size                 int                  `json:"size"`
	TotalItems           int64                `json:"total_items"`
	TotalPages           int                  `json:"total_pages"`
	QuestionsAnswered    int64                `json:"questions_answered"`
	AchievementsUnlocked int64                `json:"achievements_unlocked"`
	BonusesEarned        int64                `json:"bonuses_earned"`
}

type HistoryService struct {
	DB *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{DB: db}
}

// GetUserHistory returns completed sessions newest first. The counts and the
// page are read concurrently.
func (s *HistoryService) GetUserHistory(ctx context.Context, userID string, page, size int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size
	out := &HistoryPage{Page: page, Size: size}

	completed := func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ? AND status = ?", userID, models.SessionStatusCompleted)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.QuizSession{}).Scopes(completed).Count(&out.TotalItems).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.QuizSession{}).Scopes(completed).
			Where("bonus_xp > 0").Count(&out.BonusesEarned).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.QuestionLog{}).Where("user_id = ?", userID).Count(&out.QuestionsAnswered).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.UserAchievement{}).Where("user_id = ?", userID).Count(&out.AchievementsUnlocked).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Scopes(completed).
			Order("completed_at DESC").
			Limit(size).Offset(offset).
			Find(&out.Sessions).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("history for %s: %w", userID, err)
	}

	if out.Sessions == nil {
		out.Sessions = []models.QuizSession{}
	}
	out.TotalPages = int((out.TotalItems + int64(size) - 1) / int64(size))
	return out, nil
}
