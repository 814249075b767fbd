package services

import (
	"sort"
	"time"
)

// Streaks is the pair of streak values derived from a completion history.
type Streaks struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// CalendarDay truncates t to UTC midnight. Every day comparison in the
// progression code goes through here so browser-local time never leaks in.
func CalendarDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func activeDays(completions []time.Time) map[time.Time]struct{} {
	days := make(map[time.Time]struct{}, len(completions))
	for _, c := range completions {
		if c.IsZero() {
			continue
		}
		days[CalendarDay(c)] = struct{}{}
	}
	return days
}

// CurrentStreak counts consecutive active days ending today, or ending
// yesterday when today has no activity yet.
func CurrentStreak(completions []time.Time, now time.Time) int {
	days := activeDays(completions)
	cursor := CalendarDay(now)
	if _, ok := days[cursor]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
		if _, ok := days[cursor]; !ok {
			return 0
		}
	}

	streak := 0
	for {
		if _, ok := days[cursor]; !ok {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// LongestStreak is the longest run of consecutive active days ever observed.
func LongestStreak(completions []time.Time) int {
	days := activeDays(completions)
	if len(days) == 0 {
		return 0
	}

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].AddDate(0, 0, 1).Equal(sorted[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// ComputeStreaks evaluates both streaks against the same "now".
func ComputeStreaks(completions []time.Time, now time.Time) Streaks {
	return Streaks{
		Current: CurrentStreak(completions, now),
		Longest: LongestStreak(completions),
	}
}
