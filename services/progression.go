package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"quiz-study-system/logger"
	"quiz-study-system/models"

	"github.com/google/uuid"
)

// BonusXP is granted once when a session linked to an assignment is
// completed on the assignment's scheduled day.
const BonusXP int64 = 10

// BaseXPPerLevel scales the per-level XP curve; MaxLevel caps the table.
const (
	BaseXPPerLevel = 100
	MaxLevel       = 100
)

// xpForNextLevel returns XP required to reach level+1 from current level
// e.g., xpForNextLevel(1) = XP to go from L1 → L2
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// levelThresholds[i] is the cumulative XP at which level i+1 starts.
var levelThresholds = buildLevelThresholds(MaxLevel)

func buildLevelThresholds(max int) []int64 {
	out := make([]int64, max)
	for lvl := 1; lvl < max; lvl++ {
		out[lvl] = out[lvl-1] + xpForNextLevel(lvl)
	}
	return out
}

// LevelForXP maps total XP to a level in [1, MaxLevel]. Negative XP is level 1.
func LevelForXP(xp int64) int {
	// number of thresholds <= xp; thresholds[0] is 0 so this is at least 1
	lvl := sort.Search(len(levelThresholds), func(i int) bool { return levelThresholds[i] > xp })
	if lvl < 1 {
		return 1
	}
	return lvl
}

// XPForLevel is the cumulative XP at which level starts (0 for level 1).
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return levelThresholds[level-1]
}

// TierThresholds: levels required before a tier-up
var TierThresholds = []struct {
	MinLevel int
	Name     string
}{
	{100, "Diamond"},
	{50, "Platinum"},
	{25, "Gold"},
	{10, "Silver"},
	{1, "Bronze"},
}

func TierForLevel(level int) string {
	for _, t := range TierThresholds {
		if level >= t.MinLevel {
			return t.Name
		}
	}
	return "Bronze"
}

// TotalXP sums what every completed session contributes, bonus included.
// Non-completed sessions are ignored so callers can pass raw query results.
func TotalXP(sessions []models.QuizSession) int64 {
	var total int64
	for i := range sessions {
		if sessions[i].IsCompleted() {
			total += sessions[i].XP()
		}
	}
	return total
}

// BonusFor decides the on-time bonus for a session. assignment may be nil.
func BonusFor(session *models.QuizSession, assignment *models.Assignment) int64 {
	if session == nil || assignment == nil || session.CompletedAt == nil {
		return 0
	}
	if CalendarDay(*session.CompletedAt).Equal(CalendarDay(assignment.ScheduledDate)) {
		return BonusXP
	}
	return 0
}

// StatsSnapshot is a freshly computed aggregate plus the values that are
// only needed for achievement checks.
type StatsSnapshot struct {
	Stats             models.UserStats `json:"stats"`
	CurrentStreak     int              `json:"current_streak"`
	CompletedSessions int64            `json:"completed_sessions"`
}

// ProgressionResult is what a completion event produced beyond the session write.
type ProgressionResult struct {
	Snapshot *StatsSnapshot       `json:"snapshot,omitempty"`
	Unlocked []models.Achievement `json:"unlocked,omitempty"`
}

type ProgressionService struct {
	store        ProgressStore
	achievements *AchievementService
	log          *logger.Logger
	now          func() time.Time
}

func NewProgressionService(store ProgressStore, achievements *AchievementService, log *logger.Logger) *ProgressionService {
	return &ProgressionService{
		store:        store,
		achievements: achievements,
		log:          log.With("service", "ProgressionService"),
		now:          time.Now,
	}
}

// WithClock replaces the time source; used by tests and the reconciler.
func (s *ProgressionService) WithClock(now func() time.Time) *ProgressionService {
	s.now = now
	return s
}

// EvaluateBonus looks up the session's assignment and returns the bonus it
// earns. Lookup failures are logged and count as no bonus.
func (s *ProgressionService) EvaluateBonus(ctx context.Context, session *models.QuizSession) int64 {
	if session.AssignmentID == nil || *session.AssignmentID == "" {
		return 0
	}
	assignment, err := s.store.GetAssignment(ctx, *session.AssignmentID)
	if err != nil {
		s.log.Warn("⚠️ [PROGRESSION] assignment lookup failed, no bonus",
			"session_id", session.ID, "assignment_id", *session.AssignmentID, "error", err)
		return 0
	}
	return BonusFor(session, assignment)
}

// ComputeSnapshot rebuilds the user's aggregate from the full completed
// history. It only reads.
func (s *ProgressionService) ComputeSnapshot(ctx context.Context, userID string) (*StatsSnapshot, error) {
	sessions, err := s.store.ListCompletedSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list completed sessions for %s: %w", userID, err)
	}

	completions := make([]time.Time, 0, len(sessions))
	for _, sess := range sessions {
		if sess.CompletedAt != nil {
			completions = append(completions, *sess.CompletedAt)
		}
	}

	now := s.now()
	streaks := ComputeStreaks(completions, now)
	xp := TotalXP(sessions)
	today := CalendarDay(now)

	return &StatsSnapshot{
		Stats: models.UserStats{
			UserID:        userID,
			TotalXP:       xp,
			CurrentLevel:  LevelForXP(xp),
			LongestStreak: streaks.Longest,
			LastQuizDate:  &today,
		},
		CurrentStreak:     streaks.Current,
		CompletedSessions: int64(len(sessions)),
	}, nil
}

// StatsOverview is the read model for a user's progression screen.
type StatsOverview struct {
	UserID            string     `json:"user_id"`
	TotalXP           int64      `json:"total_xp"`
	Level             int        `json:"level"`
	Tier              string     `json:"tier"`
	LevelStartXP      int64      `json:"level_start_xp"`
	NextLevelXP       *int64     `json:"next_level_xp,omitempty"`
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	CompletedSessions int64      `json:"completed_sessions"`
	LastQuizDate      *time.Time `json:"last_quiz_date,omitempty"`
}

// Overview computes the user's numbers from history without writing them.
// LastQuizDate comes from the stored row since it marks the last recompute.
func (s *ProgressionService) Overview(ctx context.Context, userID string) (*StatsOverview, error) {
	snap, err := s.ComputeSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load stats for %s: %w", userID, err)
	}

	level := snap.Stats.CurrentLevel
	out := &StatsOverview{
		UserID:            userID,
		TotalXP:           snap.Stats.TotalXP,
		Level:             level,
		Tier:              TierForLevel(level),
		LevelStartXP:      XPForLevel(level),
		CurrentStreak:     snap.CurrentStreak,
		LongestStreak:     snap.Stats.LongestStreak,
		CompletedSessions: snap.CompletedSessions,
	}
	if level < MaxLevel {
		next := XPForLevel(level + 1)
		out.NextLevelXP = &next
	}
	if stored != nil {
		out.LastQuizDate = stored.LastQuizDate
	}
	return out, nil
}

// RecomputeStats computes a snapshot and upserts it as the user's stats row.
func (s *ProgressionService) RecomputeStats(ctx context.Context, userID string) (*StatsSnapshot, error) {
	snap, err := s.ComputeSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, snap); err != nil {
		return snap, err
	}
	return snap, nil
}

func (s *ProgressionService) persist(ctx context.Context, snap *StatsSnapshot) error {
	if snap.Stats.ID == "" {
		snap.Stats.ID = uuid.NewString()
	}
	if err := s.store.UpsertUserStats(ctx, &snap.Stats); err != nil {
		return fmt.Errorf("upsert stats for %s: %w", snap.Stats.UserID, err)
	}
	s.log.Info("🎮 [PROGRESSION] stats recomputed",
		"user_id", snap.Stats.UserID,
		"xp", snap.Stats.TotalXP,
		"level", snap.Stats.CurrentLevel,
		"longest_streak", snap.Stats.LongestStreak,
		"current_streak", snap.CurrentStreak,
	)
	return nil
}

// ProcessCompletion runs the gamification pipeline for a session that has
// already been written as completed. Nothing here is fatal to the caller:
// failures are logged and the result carries whatever succeeded.
func (s *ProgressionService) ProcessCompletion(ctx context.Context, session *models.QuizSession) *ProgressionResult {
	result := &ProgressionResult{}

	snap, err := s.ComputeSnapshot(ctx, session.UserID)
	if err != nil {
		s.log.Error("❌ [PROGRESSION] stats recompute failed", "user_id", session.UserID, "session_id", session.ID, "error", err)
		return result
	}
	result.Snapshot = snap

	// a failed upsert does not stop the achievement pass; the next event converges
	if err := s.persist(ctx, snap); err != nil {
		s.log.Error("❌ [PROGRESSION] stats upsert failed", "user_id", session.UserID, "error", err)
	}

	if s.achievements == nil {
		return result
	}

	m := Measurements{
		CompletedQuizzes: snap.CompletedSessions,
		TotalXP:          snap.Stats.TotalXP,
		LongestStreak:    snap.Stats.LongestStreak,
		CurrentStreak:    snap.CurrentStreak,
		Session:          session,
	}
	if answered, err := s.store.CountQuestionLogs(ctx, session.UserID); err != nil {
		s.log.Error("❌ [ACHIEVEMENTS] count answered questions failed, skipping question criteria", "user_id", session.UserID, "error", err)
	} else {
		m.QuestionsAnswered = answered
		m.QuestionsAnsweredKnown = true
	}

	unlocked, err := s.achievements.Evaluate(ctx, session.UserID, m)
	if err != nil {
		s.log.Error("❌ [ACHIEVEMENTS] evaluation failed", "user_id", session.UserID, "session_id", session.ID, "error", err)
	}
	result.Unlocked = unlocked
	return result
}
