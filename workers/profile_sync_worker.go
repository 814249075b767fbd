// workers/profile_sync_worker.go
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

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteProfile matches the profile entries returned by the sync service.
type RemoteProfile struct {
	ExternalID        string    `json:"external_id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	FirstName         *string   `json:"first_name,omitempty"`
	LastName          *string   `json:"last_name,omitempty"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	AccountStatus     string    `json:"account_status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type profileChangesResponse struct {
	Users []RemoteProfile `json:"users"`
}

// ProfileSyncWorker mirrors display names and avatars used by leaderboards.
type ProfileSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
	log          *logger.Logger
}

func NewProfileSyncWorker(db *gorm.DB, syncServiceBaseURL, endpointPath, serviceToken string, log *logger.Logger) *ProfileSyncWorker {
	return &ProfileSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      syncServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log.With("worker", "profile_sync"),
	}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	w.log.Info("🔁 Starting profile sync worker (sync-service → profiles)")
	go w.run(ctx)
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	// initial backfill
	if _, err := w.SyncBatch(ctx, time.Time{}); err != nil {
		w.log.Warn("⚠️ [SYNC] initial profile sync failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncBatch(ctx, w.lastSyncTime(ctx)); err != nil {
				w.log.Error("❌ [SYNC] profile batch failed", "error", err)
			}
		case <-ctx.Done():
			w.log.Info("⏹️ Profile sync worker stopped")
			return
		}
	}
}

// lastSyncTime is the newest updated_at in the local mirror, or the epoch.
func (w *ProfileSyncWorker) lastSyncTime(ctx context.Context) time.Time {
	var latest models.Profile
	err := w.db.WithContext(ctx).Unscoped().Order("updated_at DESC").First(&latest).Error
	if err != nil || latest.UpdatedAt.IsZero() {
		return time.Unix(0, 0)
	}
	return latest.UpdatedAt
}

// SyncBatch fetches profile changes since the given time and upserts them by
// external_user_id. Deactivated accounts are soft-deleted.
func (w *ProfileSyncWorker) SyncBatch(ctx context.Context, since time.Time) (int, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("sync service non-200 response: %d: %s", resp.StatusCode, string(body))
	}

	var response profileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode sync service response: %w", err)
	}
	if len(response.Users) == 0 {
		return 0, nil
	}

	upserted, failed := 0, 0
	for _, remote := range response.Users {
		if remote.ExternalID == "" {
			failed++
			continue
		}
		local := models.Profile{
			ID:                uuid.NewString(),
			ExternalUserID:    remote.ExternalID,
			Username:          remote.Username,
			Email:             remote.Email,
			ProfilePictureURL: remote.ProfilePictureURL,
			FirstName:         remote.FirstName,
			LastName:          remote.LastName,
			CreatedAt:         remote.CreatedAt,
			UpdatedAt:         remote.UpdatedAt,
		}
		if remote.AccountStatus == "deactivated" || remote.AccountStatus == "suspended" {
			local.DeletedAt = gorm.DeletedAt{Time: remote.UpdatedAt, Valid: true}
		}

		if err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "email", "profile_picture_url", "first_name", "last_name", "updated_at", "deleted_at",
			}),
		}).Create(&local).Error; err != nil {
			failed++
			w.log.Warn("⚠️ [SYNC] failed to upsert profile", "external_id", remote.ExternalID, "username", remote.Username, "error", err)
			continue
		}
		upserted++
	}

	w.log.Info("✅ [SYNC] profiles synced", "received", len(response.Users), "upserted", upserted, "errors", failed)
	return upserted, nil
}
