package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-study-system/logger"
	"quiz-study-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService is the read side of the notification inbox.
type NotificationService struct {
	DB           *gorm.DB
	log          *logger.Logger
	pollInterval time.Duration
}

func NewNotificationService(db *gorm.DB, log *logger.Logger) *NotificationService {
	return &NotificationService{DB: db, log: log.With("service", "NotificationService"), pollInterval: 2 * time.Second}
}

// List returns the newest notifications first.
func (s *NotificationService) List(ctx context.Context, userID string, unviewedOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if unviewedOnly {
		q = q.Where("viewed = ?", false)
	}
	var out []models.Notification
	err := q.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// Since returns notifications created after cursor, oldest first.
func (s *NotificationService) Since(ctx context.Context, userID string, cursor time.Time) ([]models.Notification, error) {
	var out []models.Notification
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND created_at > ?", userID, cursor).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *NotificationService) MarkViewed(ctx context.Context, userID, id string) error {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("viewed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func writeEvent(w *bufio.Writer, n models.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", n.Kind, n.ID, data)
}

// StreamUserNotificationsSSE sends the unviewed backlog, then polls for new rows.
func (s *NotificationService) StreamUserNotificationsSSE(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	done := c.Context().Done()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx := context.Background()
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		cursor := time.Now().UTC()
		backlog, err := s.List(ctx, userID, true, 50)
		if err != nil {
			s.log.Warn("⚠️ [SSE] backlog query failed", "user_id", userID, "error", err)
		}
		// List is newest first; replay oldest first
		for i := len(backlog) - 1; i >= 0; i-- {
			writeEvent(w, backlog[i])
		}
		if len(backlog) > 0 && backlog[0].CreatedAt.After(cursor) {
			cursor = backlog[0].CreatedAt
		}

		// initial keepalive
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				fresh, err := s.Since(ctx, userID, cursor)
				if err != nil {
					s.log.Warn("⚠️ [SSE] poll failed", "user_id", userID, "error", err)
					continue
				}
				if len(fresh) == 0 {
					w.WriteString(":\n\n")
				} else {
					cursor = fresh[len(fresh)-1].CreatedAt
					for _, n := range fresh {
						writeEvent(w, n)
					}
				}
				if err := w.Flush(); err != nil {
					// client disconnected
					return
				}
			case <-done:
				return
			}
		}
	})
	return nil
}
