package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-study-system/logger"
	"quiz-study-system/models"
	"quiz-study-system/store"

	"github.com/hibiken/asynq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(store.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func serveJSON(t *testing.T, path string, body func(r *http.Request) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path || r.Header.Get("X-Service-Token") != "svc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("since") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(body(r))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProfileSyncUpsertsByExternalID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	updated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	username := "ada"
	srv := serveJSON(t, "/api/v1/public/profiles", func(*http.Request) any {
		return profileChangesResponse{Users: []RemoteProfile{
			{ExternalID: "u1", Username: username, Email: "ada@example.com", AccountStatus: "active", CreatedAt: updated, UpdatedAt: updated},
			{ExternalID: "", Username: "ghost"},
		}}
	})
	w := NewProfileSyncWorker(db, srv.URL, "/api/v1/public/profiles", "svc", logger.Nop())

	n, err := w.SyncBatch(ctx, time.Time{})
	if err != nil || n != 1 {
		t.Fatalf("SyncBatch=%d,%v", n, err)
	}
	username = "ada-lovelace"
	if _, err := w.SyncBatch(ctx, updated); err != nil {
		t.Fatalf("SyncBatch (again): %v", err)
	}

	var profiles []models.Profile
	db.Find(&profiles)
	if len(profiles) != 1 || profiles[0].Username != "ada-lovelace" {
		t.Fatalf("profiles=%+v", profiles)
	}
	if got := w.lastSyncTime(ctx); !got.Equal(updated) {
		t.Fatalf("lastSyncTime=%v, want %v", got, updated)
	}
}

func TestProfileSyncRejectsBadStatus(t *testing.T) {
	w := NewProfileSyncWorker(newTestDB(t), "http://127.0.0.1:1", "/p", "wrong", logger.Nop())
	srv := serveJSON(t, "/p", func(*http.Request) any { return nil })
	w.baseURL = srv.URL
	if _, err := w.SyncBatch(context.Background(), time.Time{}); err == nil {
		t.Fatalf("expected an error for a rejected token")
	}
}

func TestAssignmentSyncNormalizesDay(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	title := "Chapter 1"
	srv := serveJSON(t, "/api/v1/public/assignments", func(*http.Request) any {
		return map[string]any{"assignments": []models.Assignment{{
			ID:            "60000000-0000-0000-0000-000000000001",
			UserID:        "u1",
			QuizID:        "q1",
			Title:         title,
			ScheduledDate: time.Date(2026, 3, 14, 18, 45, 0, 0, time.UTC),
		}}}
	})
	c := NewAssignmentSyncClient(db, srv.URL, "svc", logger.Nop())

	if n, err := c.SyncOnce(ctx, time.Time{}); err != nil || n != 1 {
		t.Fatalf("SyncOnce=%d,%v", n, err)
	}
	title = "Chapter 1 (revised)"
	if _, err := c.SyncOnce(ctx, time.Time{}); err != nil {
		t.Fatalf("SyncOnce (again): %v", err)
	}

	var rows []models.Assignment
	db.Find(&rows)
	if len(rows) != 1 || rows[0].Title != "Chapter 1 (revised)" {
		t.Fatalf("rows=%+v", rows)
	}
	if !rows[0].ScheduledDate.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ScheduledDate=%v", rows[0].ScheduledDate)
	}
}

type memSaver struct {
	saved []models.Notification
	err   error
}

func (m *memSaver) Save(_ context.Context, n *models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, *n)
	return nil
}

func TestHandleDeliverNotification(t *testing.T) {
	saver := &memSaver{}
	handle := HandleDeliverNotification(saver)

	task, err := NewNotificationTask(models.Notification{ID: "n1", UserID: "u1", Kind: models.NotificationKindBonus, Title: "On-time bonus: +10 XP"})
	if err != nil {
		t.Fatalf("NewNotificationTask: %v", err)
	}
	if err := handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(saver.saved) != 1 || saver.saved[0].ID != "n1" || saver.saved[0].Kind != models.NotificationKindBonus {
		t.Fatalf("saved=%+v", saver.saved)
	}

	bad := asynq.NewTask(TypeDeliverNotification, []byte("{"))
	if err := handle(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload err=%v, want SkipRetry", err)
	}

	saver.err = errors.New("db down")
	if err := handle(context.Background(), task); err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("store failure should be retried, err=%v", err)
	}
}
