package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"quiz-study-system/logger"
	"quiz-study-system/models"
)

type fakeUploader struct {
	keys []string
	body string
}

func (f *fakeUploader) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	raw, _ := io.ReadAll(body)
	f.keys = append(f.keys, key)
	f.body = string(raw)
	return "https://cdn.example.com/" + key, nil
}

func TestParseCatalogue(t *testing.T) {
	entries, err := ParseCatalogue(defaultCatalogue)
	if err != nil {
		t.Fatalf("embedded catalogue: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("embedded catalogue is empty")
	}

	raw := []byte("- name: Early Bird\n  criteria_type: longest_streak\n  criteria_value: 2\n")
	got, err := ParseCatalogue(raw)
	if err != nil {
		t.Fatalf("ParseCatalogue: %v", err)
	}
	if got[0].Code != "early-bird" || got[0].Rarity != "common" {
		t.Fatalf("defaults not applied: %+v", got[0])
	}

	dup := []byte("- code: a\n  criteria_type: speed_demon\n- code: a\n  criteria_type: speed_demon\n")
	if _, err := ParseCatalogue(dup); !errors.Is(err, ErrInvalidAchievement) {
		t.Fatalf("duplicate code err=%v", err)
	}
}

func TestSeedIsRepeatable(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewCatalogueService(db, nil, logger.Nop())

	if err := svc.Seed(ctx); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	first, _ := svc.List(ctx)
	if err := svc.Seed(ctx); err != nil {
		t.Fatalf("Seed (again): %v", err)
	}
	second, _ := svc.List(ctx)
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("catalogue sizes %d then %d", len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Fatalf("reseeding replaced ids")
	}
}

func TestCreateAchievementWithIcon(t *testing.T) {
	ctx := context.Background()
	up := &fakeUploader{}
	svc := NewCatalogueService(newTestDB(t), up, logger.Nop())

	a, err := svc.Create(ctx, NewAchievementInput{Name: "Night Owl", CriteriaType: " Longest_Streak ", CriteriaValue: 14}, &Icon{
		Filename: "owl.PNG", ContentType: "image/png", Size: 3, Body: strings.NewReader("png"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Code != "night-owl" || a.CriteriaType != "longest_streak" {
		t.Fatalf("achievement=%+v", a)
	}
	if len(up.keys) != 1 || up.keys[0] != "achievements/night-owl.png" || up.body != "png" {
		t.Fatalf("upload keys=%v body=%q", up.keys, up.body)
	}
	if a.IconURL != "https://cdn.example.com/achievements/night-owl.png" {
		t.Fatalf("IconURL=%s", a.IconURL)
	}

	if _, err := svc.Create(ctx, NewAchievementInput{Name: "", CriteriaType: "speed_demon"}, nil); !errors.Is(err, ErrInvalidAchievement) {
		t.Fatalf("missing name err=%v", err)
	}
}

func TestCreateAchievementIconNeedsUploader(t *testing.T) {
	svc := NewCatalogueService(newTestDB(t), nil, logger.Nop())
	_, err := svc.Create(context.Background(), NewAchievementInput{Name: "X", CriteriaType: "speed_demon"}, &Icon{Filename: "x.png", Body: strings.NewReader("")})
	if !errors.Is(err, ErrInvalidAchievement) {
		t.Fatalf("err=%v", err)
	}
}

func TestListUnlockedPreloadsAchievement(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewCatalogueService(db, nil, logger.Nop())
	a, err := svc.Create(ctx, NewAchievementInput{Name: "First", CriteriaType: "total_quizzes_completed", CriteriaValue: 1}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := db.Create(&models.UserAchievement{ID: "50000000-0000-0000-0000-000000000001", UserID: "u1", AchievementID: a.ID, UnlockedAt: testNow}).Error; err != nil {
		t.Fatalf("seed unlock: %v", err)
	}

	got, err := svc.ListUnlocked(ctx, "u1")
	if err != nil {
		t.Fatalf("ListUnlocked: %v", err)
	}
	if len(got) != 1 || got[0].Achievement == nil || got[0].Achievement.Code != "first" {
		t.Fatalf("unlocked=%+v", got)
	}
}
