package services

import (
	"context"
	"testing"

	"quiz-study-system/logger"
	"quiz-study-system/models"
)

func TestParseCriteriaKind(t *testing.T) {
	cases := map[string]CriteriaKind{
		"total_quizzes_completed":  CriteriaQuizzesCompleted,
		" Perfect_Score ":          CriteriaPerfectScore,
		"speed_demon":              CriteriaSpeedDemon,
		"total_questions_answered": CriteriaQuestionsAnswered,
		"accuracy_book":            CriteriaUnsupported,
		"accuracy_chapter_tier":    CriteriaUnsupported,
		"":                         CriteriaUnsupported,
	}
	for in, want := range cases {
		if got := ParseCriteriaKind(in); got != want {
			t.Fatalf("ParseCriteriaKind(%q)=%v, want %v", in, got, want)
		}
	}
	for name, kind := range criteriaNames {
		if kind.String() != name {
			t.Fatalf("%v.String()=%q, want %q", int(kind), kind.String(), name)
		}
	}
	if CriteriaUnsupported.String() != "unsupported" || CriteriaKind(99).String() != "unsupported" {
		t.Fatalf("unexpected String() for unsupported kinds")
	}
}

func TestSatisfied(t *testing.T) {
	perfect := &models.QuizSession{TotalPoints: 10, MaxPoints: 10, EstimatedMinutes: 4}
	empty := &models.QuizSession{TotalPoints: 0, MaxPoints: 0, EstimatedMinutes: 12}
	m := Measurements{CompletedQuizzes: 5, TotalXP: 250, LongestStreak: 7, QuestionsAnswered: 40, QuestionsAnsweredKnown: true, Session: perfect}

	cases := []struct {
		name      string
		a         models.Achievement
		m         Measurements
		want      bool
		supported bool
	}{
		{"quizzes met", models.Achievement{CriteriaType: "total_quizzes_completed", CriteriaValue: 5}, m, true, true},
		{"quizzes short", models.Achievement{CriteriaType: "total_quizzes_completed", CriteriaValue: 6}, m, false, true},
		{"points", models.Achievement{CriteriaType: "total_points_earned", CriteriaValue: 250}, m, true, true},
		{"streak", models.Achievement{CriteriaType: "longest_streak", CriteriaValue: 8}, m, false, true},
		{"questions", models.Achievement{CriteriaType: "total_questions_answered", CriteriaValue: 40}, m, true, true},
		{"questions count unavailable", models.Achievement{CriteriaType: "total_questions_answered", CriteriaValue: 0}, Measurements{Session: perfect}, false, true},
		{"perfect", models.Achievement{CriteriaType: "perfect_score"}, m, true, true},
		{"perfect needs max > 0", models.Achievement{CriteriaType: "perfect_score"}, Measurements{Session: empty}, false, true},
		{"speed demon", models.Achievement{CriteriaType: "speed_demon", CriteriaValue: 5}, m, true, true},
		{"speed demon too slow", models.Achievement{CriteriaType: "speed_demon", CriteriaValue: 5}, Measurements{Session: empty}, false, true},
		{"accuracy unsupported", models.Achievement{CriteriaType: "accuracy_book", CriteriaValue: 0}, m, false, false},
	}
	for _, c := range cases {
		got, supported := Satisfied(c.a, c.m)
		if got != c.want || supported != c.supported {
			t.Fatalf("%s: Satisfied=(%t,%t), want (%t,%t)", c.name, got, supported, c.want, c.supported)
		}
	}
}

func TestEvaluateUnlocksOnceAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.achievements = []models.Achievement{
		{ID: "a1", Code: "first-quiz", Name: "First Quiz", CriteriaType: "total_quizzes_completed", CriteriaValue: 1},
		{ID: "a2", Code: "perfect", Name: "Flawless", CriteriaType: "perfect_score"},
		{ID: "a3", Code: "bookworm", Name: "Bookworm", CriteriaType: "accuracy_book", CriteriaValue: 90},
		{ID: "a4", Code: "xp-1000", Name: "Grinder", CriteriaType: "total_points_earned", CriteriaValue: 1000},
	}
	sink := &recordingSink{}
	svc := NewAchievementService(store, sink, logger.Nop())

	m := Measurements{CompletedQuizzes: 1, TotalXP: 10, Session: &models.QuizSession{TotalPoints: 10, MaxPoints: 10}}

	got, err := svc.Evaluate(ctx, "u1", m)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a2" {
		t.Fatalf("unlocked=%+v, want a1,a2", got)
	}
	if len(sink.sent) != 2 || sink.kinds()[0] != models.NotificationKindAchievement {
		t.Fatalf("notifications=%v", sink.kinds())
	}

	again, err := svc.Evaluate(ctx, "u1", m)
	if err != nil {
		t.Fatalf("Evaluate (again): %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("already-unlocked achievements were re-awarded: %+v", again)
	}
	if store.inserts != 2 {
		t.Fatalf("inserts=%d, want 2", store.inserts)
	}
	if len(sink.sent) != 2 {
		t.Fatalf("duplicate notifications: %d", len(sink.sent))
	}
}

func TestEvaluateDuplicateInsertIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.achievements = []models.Achievement{
		{ID: "a1", Code: "first-quiz", CriteriaType: "total_quizzes_completed", CriteriaValue: 1},
	}
	// a concurrent pass committed the unlock after our unlocked-set read
	if ok, err := store.InsertUserAchievement(ctx, &models.UserAchievement{ID: "x", UserID: "u1", AchievementID: "a1"}); !ok || err != nil {
		t.Fatalf("seed unlock: ok=%t err=%v", ok, err)
	}

	svc := NewAchievementService(&hiddenUnlocks{memStore: store}, nil, logger.Nop())
	got, err := svc.Evaluate(ctx, "u1", Measurements{CompletedQuizzes: 3})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("conflicting insert should not count as unlocked: %+v", got)
	}
}

// hiddenUnlocks hides existing unlocks from the initial read, like a racing pass.
type hiddenUnlocks struct {
	*memStore
}

func (h *hiddenUnlocks) ListUnlockedAchievementIDs(context.Context, string) ([]string, error) {
	return nil, nil
}

func TestEvaluateInsertFailureSkipsOnlyThatAchievement(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.failInsertFor = "a1"
	store.achievements = []models.Achievement{
		{ID: "a1", Code: "first-quiz", CriteriaType: "total_quizzes_completed", CriteriaValue: 1},
		{ID: "a2", Code: "points-5", CriteriaType: "total_points_earned", CriteriaValue: 5},
	}
	svc := NewAchievementService(store, nil, logger.Nop())

	got, err := svc.Evaluate(ctx, "u1", Measurements{CompletedQuizzes: 1, TotalXP: 5})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a2" {
		t.Fatalf("unlocked=%+v, want only a2", got)
	}
}

func TestEvaluateUnlockedListFailure(t *testing.T) {
	store := newMemStore()
	store.failUnlockedList = true
	svc := NewAchievementService(store, nil, logger.Nop())
	if _, err := svc.Evaluate(context.Background(), "u1", Measurements{}); err == nil {
		t.Fatalf("expected error")
	}
}
