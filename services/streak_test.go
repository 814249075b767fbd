package services

import (
	"math/rand"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

func TestCurrentStreak(t *testing.T) {
	cases := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{"empty", nil, 0},
		{"today only", []time.Time{daysAgo(0)}, 1},
		{"yesterday only", []time.Time{daysAgo(1)}, 1},
		{"two days ago only", []time.Time{daysAgo(2)}, 0},
		{"today and yesterday", []time.Time{daysAgo(0), daysAgo(1)}, 2},
		{"grace from yesterday", []time.Time{daysAgo(1), daysAgo(2), daysAgo(3)}, 3},
		{"gap breaks run", []time.Time{daysAgo(0), daysAgo(2), daysAgo(3)}, 1},
		{"same day twice", []time.Time{daysAgo(0), daysAgo(0).Add(-time.Hour)}, 1},
		{"unordered input", []time.Time{daysAgo(2), daysAgo(0), daysAgo(1)}, 3},
	}
	for _, c := range cases {
		if got := CurrentStreak(c.dates, testNow); got != c.want {
			t.Fatalf("%s: CurrentStreak=%d, want %d", c.name, got, c.want)
		}
	}
}

func TestCurrentStreakUsesUTCDays(t *testing.T) {
	// 23:30 on the 13th in UTC-5 is the 14th in UTC, i.e. "today".
	est := time.FixedZone("EST", -5*3600)
	late := time.Date(2026, 3, 13, 23, 30, 0, 0, est)
	if got := CurrentStreak([]time.Time{late}, testNow); got != 1 {
		t.Fatalf("CurrentStreak=%d, want 1", got)
	}
	if got := CalendarDay(late); !got.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("CalendarDay=%v", got)
	}
}

func TestLongestStreak(t *testing.T) {
	day1 := time.Date(2025, 12, 30, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{"empty", nil, 0},
		{"single", []time.Time{day1}, 1},
		{"three consecutive", []time.Time{day1, day1.AddDate(0, 0, 1), day1.AddDate(0, 0, 2)}, 3},
		{"gap", []time.Time{day1, day1.AddDate(0, 0, 2)}, 1},
		{"across year end", []time.Time{day1, day1.AddDate(0, 0, 1), day1.AddDate(0, 0, 2), day1.AddDate(0, 0, 3)}, 4},
		{"duplicates count once", []time.Time{day1, day1.Add(2 * time.Hour), day1.AddDate(0, 0, 1)}, 2},
		{"best run in middle", []time.Time{
			day1, day1.AddDate(0, 0, 3), day1.AddDate(0, 0, 4), day1.AddDate(0, 0, 5), day1.AddDate(0, 0, 8),
		}, 3},
	}
	for _, c := range cases {
		if got := LongestStreak(c.dates); got != c.want {
			t.Fatalf("%s: LongestStreak=%d, want %d", c.name, got, c.want)
		}
	}
}

func TestLongestAtLeastCurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		var dates []time.Time
		for j := rng.Intn(20); j > 0; j-- {
			dates = append(dates, daysAgo(rng.Intn(15)).Add(time.Duration(rng.Intn(24))*time.Hour))
		}
		s := ComputeStreaks(dates, testNow)
		if s.Longest < s.Current {
			t.Fatalf("longest %d < current %d for %v", s.Longest, s.Current, dates)
		}
	}
}
