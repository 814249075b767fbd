package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"quiz-study-system/logger"
	"quiz-study-system/models"
	"quiz-study-system/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentSyncClient pulls scheduled assignments from the planner service.
type AssignmentSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
	log        *logger.Logger
}

func NewAssignmentSyncClient(db *gorm.DB, baseURL, token string, log *logger.Logger) *AssignmentSyncClient {
	return &AssignmentSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With("worker", "assignment_sync"),
	}
}

func (c *AssignmentSyncClient) GetChangedAssignments(ctx context.Context, since time.Time) ([]models.Assignment, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	u = u.JoinPath("/api/v1/public/assignments")
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call sync service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sync service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Assignments []models.Assignment `json:"assignments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode sync service response: %w", err)
	}
	return response.Assignments, nil
}

// SyncOnce fetches and upserts one batch by id.
func (c *AssignmentSyncClient) SyncOnce(ctx context.Context, since time.Time) (int, error) {
	assignments, err := c.GetChangedAssignments(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(assignments) == 0 {
		return 0, nil
	}
	for i := range assignments {
		assignments[i].ScheduledDate = services.CalendarDay(assignments[i].ScheduledDate)
	}

	if err := c.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "quiz_id", "team_id", "title", "scheduled_date", "updated_at",
		}),
	}).Create(&assignments).Error; err != nil {
		return 0, fmt.Errorf("upsert %d assignment(s): %w", len(assignments), err)
	}
	return len(assignments), nil
}

// PollAssignments runs SyncOnce every interval until ctx is done. The cursor
// only advances after a successful upsert so a failed window is retried.
func PollAssignments(ctx context.Context, client *AssignmentSyncClient, pollInterval time.Duration) {
	client.log.Info("Starting assignment polling")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			client.log.Info("Assignment polling stopped")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()
			n, err := client.SyncOnce(ctx, lastSyncTime)
			if err != nil {
				client.log.Error("❌ Error polling assignments", "since", lastSyncTime.Format(time.RFC3339), "error", err)
				continue
			}
			lastSyncTime = tickTime
			if n > 0 {
				client.log.Info("✅ Upserted assignments", "count", n)
			}
		}
	}
}
