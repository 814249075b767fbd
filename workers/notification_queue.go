package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quiz-study-system/logger"
	"quiz-study-system/models"

	"github.com/hibiken/asynq"
)

const TypeDeliverNotification = "notification:deliver"

// NotificationSaver is the durable write behind the queue.
type NotificationSaver interface {
	Save(ctx context.Context, n *models.Notification) error
}

// NotificationQueue is a services.NotificationSink that hands notifications
// to asynq so delivery is retried off the request path.
type NotificationQueue struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	saver  NotificationSaver
	log    *logger.Logger
}

func NewNotificationQueue(redisURL string, saver NotificationSaver, log *logger.Logger) (*NotificationQueue, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	log = log.With("component", "notification_queue")

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"notifications": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("❌ [QUEUE] job failed", "type", task.Type(), "error", err)
		}),
		Logger: &asynqLogger{log: log},
	})

	q := &NotificationQueue{
		client: asynq.NewClient(redisOpt),
		server: server,
		mux:    asynq.NewServeMux(),
		saver:  saver,
		log:    log,
	}
	q.mux.HandleFunc(TypeDeliverNotification, HandleDeliverNotification(saver))
	return q, nil
}

// Start runs the worker in the background.
func (q *NotificationQueue) Start() error {
	q.log.Info("🚀 Starting notification queue worker")
	return q.server.Start(q.mux)
}

func (q *NotificationQueue) Stop() {
	q.log.Info("Stopping notification queue")
	q.server.Shutdown()
	_ = q.client.Close()
}

func NewNotificationTask(n models.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return asynq.NewTask(TypeDeliverNotification, payload), nil
}

// Notify enqueues n. If Redis is unreachable the row is written directly.
func (q *NotificationQueue) Notify(ctx context.Context, n models.Notification) {
	task, err := NewNotificationTask(n)
	if err == nil {
		var info *asynq.TaskInfo
		info, err = q.client.EnqueueContext(ctx, task,
			asynq.Queue("notifications"),
			asynq.MaxRetry(5),
			asynq.Timeout(30*time.Second),
		)
		if err == nil {
			q.log.Debug("📨 [QUEUE] notification queued", "task_id", info.ID, "user_id", n.UserID, "kind", n.Kind)
			return
		}
	}
	q.log.Warn("⚠️ [QUEUE] enqueue failed, storing directly", "user_id", n.UserID, "kind", n.Kind, "error", err)
	if err := q.saver.Save(ctx, &n); err != nil {
		q.log.Error("❌ [QUEUE] direct store failed", "user_id", n.UserID, "kind", n.Kind, "error", err)
	}
}

func HandleDeliverNotification(saver NotificationSaver) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var n models.Notification
		if err := json.Unmarshal(task.Payload(), &n); err != nil {
			return fmt.Errorf("bad notification payload: %v: %w", err, asynq.SkipRetry)
		}
		if n.UserID == "" {
			return fmt.Errorf("notification without user_id: %w", asynq.SkipRetry)
		}
		if err := saver.Save(ctx, &n); err != nil {
			return fmt.Errorf("store notification %s: %w", n.ID, err)
		}
		return nil
	}
}

type asynqLogger struct {
	log *logger.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Fatal(fmt.Sprint(args...)) }
