package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quiz-study-system/logger"
	"quiz-study-system/models"

	"github.com/google/uuid"
)

// CriteriaKind identifies how an achievement's criteria_value is checked.
type CriteriaKind int

const (
	// CriteriaUnsupported covers accuracy_* and anything unknown. Never satisfied.
	CriteriaUnsupported CriteriaKind = iota
	CriteriaQuizzesCompleted
	CriteriaPointsEarned
	CriteriaLongestStreak
	CriteriaQuestionsAnswered
	CriteriaPerfectScore
	CriteriaSpeedDemon
)

var criteriaNames = map[string]CriteriaKind{
	"total_quizzes_completed":  CriteriaQuizzesCompleted,
	"total_points_earned":      CriteriaPointsEarned,
	"longest_streak":           CriteriaLongestStreak,
	"total_questions_answered": CriteriaQuestionsAnswered,
	"perfect_score":            CriteriaPerfectScore,
	"speed_demon":              CriteriaSpeedDemon,
}

func ParseCriteriaKind(s string) CriteriaKind {
	if k, ok := criteriaNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k
	}
	return CriteriaUnsupported
}

var criteriaKindNames = [...]string{
	CriteriaUnsupported:       "unsupported",
	CriteriaQuizzesCompleted:  "total_quizzes_completed",
	CriteriaPointsEarned:      "total_points_earned",
	CriteriaLongestStreak:     "longest_streak",
	CriteriaQuestionsAnswered: "total_questions_answered",
	CriteriaPerfectScore:      "perfect_score",
	CriteriaSpeedDemon:        "speed_demon",
}

func (k CriteriaKind) String() string {
	if k < 0 || int(k) >= len(criteriaKindNames) {
		return "unsupported"
	}
	return criteriaKindNames[k]
}

// Measurements are the fresh values an evaluation pass checks against.
type Measurements struct {
	CompletedQuizzes  int64
	TotalXP           int64
	LongestStreak     int
	CurrentStreak     int
	QuestionsAnswered int64
	// QuestionsAnsweredKnown is false when the count could not be read;
	// question-count criteria are then unsatisfied for this pass.
	QuestionsAnsweredKnown bool
	// Session is the session whose completion triggered the pass.
	Session *models.QuizSession
}

type criterionFunc func(m Measurements, value int64) bool

// criteria has no entry for CriteriaUnsupported: lookups miss
// and the achievement is skipped.
var criteria = map[CriteriaKind]criterionFunc{
	CriteriaQuizzesCompleted: func(m Measurements, v int64) bool {
		return m.CompletedQuizzes >= v
	},
	CriteriaPointsEarned: func(m Measurements, v int64) bool {
		return m.TotalXP >= v
	},
	CriteriaLongestStreak: func(m Measurements, v int64) bool {
		return int64(m.LongestStreak) >= v
	},
	CriteriaQuestionsAnswered: func(m Measurements, v int64) bool {
		return m.QuestionsAnsweredKnown && m.QuestionsAnswered >= v
	},
	CriteriaPerfectScore: func(m Measurements, _ int64) bool {
		return m.Session != nil && m.Session.MaxPoints > 0 && m.Session.TotalPoints == m.Session.MaxPoints
	},
	CriteriaSpeedDemon: func(m Measurements, v int64) bool {
		return m.Session != nil && int64(m.Session.EstimatedMinutes) <= v
	},
}

// Satisfied reports whether a single achievement's criteria hold. The second
// return is false for unsupported kinds.
func Satisfied(a models.Achievement, m Measurements) (bool, bool) {
	check, ok := criteria[ParseCriteriaKind(a.CriteriaType)]
	if !ok {
		return false, false
	}
	return check(m, a.CriteriaValue), true
}

type AchievementService struct {
	store    AchievementStore
	notifier NotificationSink
	log      *logger.Logger
	now      func() time.Time
}

func NewAchievementService(store AchievementStore, notifier NotificationSink, log *logger.Logger) *AchievementService {
	return &AchievementService{
		store:    store,
		notifier: notifier,
		log:      log.With("service", "AchievementService"),
		now:      time.Now,
	}
}

// Evaluate checks every not-yet-unlocked achievement and unlocks the ones
// now satisfied. The unlocked set is read once per pass; the unique
// (user_id, achievement_id) constraint absorbs concurrent passes. A failed
// insert only skips that achievement.
func (s *AchievementService) Evaluate(ctx context.Context, userID string, m Measurements) ([]models.Achievement, error) {
	catalogue, err := s.store.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	unlockedIDs, err := s.store.ListUnlockedAchievementIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unlocked achievements for %s: %w", userID, err)
	}
	unlocked := make(map[string]struct{}, len(unlockedIDs))
	for _, id := range unlockedIDs {
		unlocked[id] = struct{}{}
	}

	var awarded []models.Achievement
	for _, a := range catalogue {
		if _, done := unlocked[a.ID]; done {
			continue
		}

		ok, supported := Satisfied(a, m)
		if !supported {
			s.log.Debug("⏭️ [ACHIEVEMENTS] skipping unsupported criteria",
				"achievement", a.Code, "criteria_type", a.CriteriaType)
			continue
		}
		if !ok {
			continue
		}

		inserted, err := s.store.InsertUserAchievement(ctx, &models.UserAchievement{
			ID:            uuid.NewString(),
			UserID:        userID,
			AchievementID: a.ID,
			UnlockedAt:    s.now().UTC(),
		})
		if err != nil {
			s.log.Warn("⚠️ [ACHIEVEMENTS] unlock insert failed", "achievement", a.Code, "user_id", userID, "error", err)
			continue
		}
		if !inserted {
			// another pass got there first
			continue
		}

		awarded = append(awarded, a)
		s.log.Info("🎖️ [ACHIEVEMENTS] unlocked", "achievement", a.Code, "user_id", userID)
		if s.notifier != nil {
			s.notifier.Notify(ctx, AchievementNotification(userID, a))
		}
	}
	return awarded, nil
}
