package services

import (
	"context"
	"encoding/json"
	"time"

	"quiz-study-system/logger"
	"quiz-study-system/models"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationSink accepts one-shot notifications. Notify never reports
// failure to the caller; implementations log their own errors.
type NotificationSink interface {
	Notify(ctx context.Context, n models.Notification)
}

var printer = message.NewPrinter(language.English)

func payload(v map[string]any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func AchievementNotification(userID string, a models.Achievement) models.Notification {
	return models.Notification{
		ID:     uuid.NewString(),
		UserID: userID,
		Kind:   models.NotificationKindAchievement,
		Title:  printer.Sprintf("Achievement unlocked: %s", a.Name),
		Body:   a.Description,
		Emoji:  "🏆",
		Payload: payload(map[string]any{
			"achievement_id": a.ID,
			"code":           a.Code,
			"icon_url":       a.IconURL,
			"rarity":         a.Rarity,
		}),
	}
}

func BonusNotification(session *models.QuizSession, bonus int64) models.Notification {
	return models.Notification{
		ID:     uuid.NewString(),
		UserID: session.UserID,
		Kind:   models.NotificationKindBonus,
		Title:  printer.Sprintf("On-time bonus: +%d XP", bonus),
		Body:   printer.Sprintf("You finished an assignment on its scheduled day and scored %d points.", session.TotalPoints),
		Emoji:  "⏰",
		Payload: payload(map[string]any{
			"session_id":    session.ID,
			"assignment_id": session.AssignmentID,
			"bonus_xp":      bonus,
		}),
	}
}

// DBNotificationSink writes notifications straight into the inbox table.
type DBNotificationSink struct {
	DB  *gorm.DB
	Log *logger.Logger
}

func NewDBNotificationSink(db *gorm.DB, log *logger.Logger) *DBNotificationSink {
	return &DBNotificationSink{DB: db, Log: log.With("sink", "db")}
}

func (s *DBNotificationSink) Notify(ctx context.Context, n models.Notification) {
	if err := s.Save(ctx, &n); err != nil {
		s.Log.Warn("⚠️ [NOTIFY] failed to store notification", "user_id", n.UserID, "kind", n.Kind, "error", err)
	}
}

// Save persists n. Redelivering the same notification ID is a no-op, so the
// queue worker can retry it.
func (s *DBNotificationSink) Save(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(n).Error
}
