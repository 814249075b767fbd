// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"time"

	"quiz-study-system/logger"

	"github.com/go-co-op/gocron/v2"
)

// Reconciler periodically recomputes stats for recently active users so a
// lost or failed completion event converges without another completion.
type Reconciler struct {
	progression *ProgressionService
	store       StatsStore
	window      time.Duration
	log         *logger.Logger
	now         func() time.Time
}

func NewReconciler(progression *ProgressionService, store StatsStore, window time.Duration, log *logger.Logger) *Reconciler {
	return &Reconciler{
		progression: progression,
		store:       store,
		window:      window,
		log:         log.With("job", "reconcile"),
		now:         time.Now,
	}
}

// RunOnce recomputes every user with a completion inside the window and
// returns how many succeeded. One user's failure does not stop the pass.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	since := r.now().Add(-r.window)
	users, err := r.store.ListUsersCompletedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list active users: %w", err)
	}

	ok := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return ok, ctx.Err()
		}
		if _, err := r.progression.RecomputeStats(ctx, userID); err != nil {
			r.log.Warn("⚠️ [Scheduler] recompute failed", "user_id", userID, "error", err)
			continue
		}
		ok++
	}
	r.log.Info("✅ [Scheduler] stats reconciled", "users", len(users), "ok", ok, "since", since.Format(time.RFC3339))
	return ok, nil
}

// Start schedules RunOnce every interval. The returned scheduler must be
// shut down by the caller.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Error("❌ [Scheduler] reconcile pass failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule reconcile job: %w", err)
	}
	sched.Start()
	return sched, nil
}
