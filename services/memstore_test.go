package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"quiz-study-system/models"
)

// memStore is an in-memory ProgressStore with switchable failures.
type memStore struct {
	mu           sync.Mutex
	sessions     map[string]models.QuizSession
	assignments  map[string]models.Assignment
	stats        map[string]models.UserStats
	achievements []models.Achievement
	unlocked     map[string]map[string]models.UserAchievement
	logs         []models.QuestionLog

	upserts int
	inserts int

	failSave         bool
	failUpsert       bool
	failList         bool
	failAssignment   bool
	failInsertFor    string
	failUnlockedList bool
	failCount        bool
}

var errBoom = errors.New("boom")

func newMemStore() *memStore {
	return &memStore{
		sessions:    map[string]models.QuizSession{},
		assignments: map[string]models.Assignment{},
		stats:       map[string]models.UserStats{},
		unlocked:    map[string]map[string]models.UserAchievement{},
	}
}

func cloneSession(s models.QuizSession) models.QuizSession {
	out := s
	if s.Results != nil {
		out.Results = append([]models.SessionResult(nil), s.Results...)
	}
	return out
}

func (m *memStore) CreateSession(_ context.Context, s *models.QuizSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*models.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	c := cloneSession(s)
	return &c, nil
}

func (m *memStore) SaveSession(_ context.Context, s *models.QuizSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errBoom
	}
	m.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (m *memStore) InsertQuestionLog(_ context.Context, row *models.QuestionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *row)
	return nil
}

func (m *memStore) ListLoggedQuestionIDs(_ context.Context, sessionID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, l := range m.logs {
		if l.SessionID == sessionID {
			out = append(out, l.QuestionID)
		}
	}
	return out, nil
}

func (m *memStore) GetAssignment(_ context.Context, id string) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAssignment {
		return nil, errBoom
	}
	a, ok := m.assignments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memStore) ListCompletedSessions(_ context.Context, userID string) ([]models.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errBoom
	}
	var out []models.QuizSession
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == models.SessionStatusCompleted {
			out = append(out, cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(*out[j].CompletedAt) })
	return out, nil
}

func (m *memStore) CountQuestionLogs(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCount {
		return 0, errBoom
	}
	var n int64
	for _, l := range m.logs {
		if l.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetUserStats(_ context.Context, userID string) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stats[userID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *memStore) UpsertUserStats(_ context.Context, stats *models.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert {
		return errBoom
	}
	m.upserts++
	if existing, ok := m.stats[stats.UserID]; ok {
		stats.ID = existing.ID
	}
	m.stats[stats.UserID] = *stats
	return nil
}

func (m *memStore) ListUsersCompletedSince(_ context.Context, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, s := range m.sessions {
		if s.Status == models.SessionStatusCompleted && s.CompletedAt != nil && !s.CompletedAt.Before(since) && !seen[s.UserID] {
			seen[s.UserID] = true
			out = append(out, s.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) ListAchievements(_ context.Context) ([]models.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Achievement(nil), m.achievements...), nil
}

func (m *memStore) ListUnlockedAchievementIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUnlockedList {
		return nil, errBoom
	}
	var out []string
	for id := range m.unlocked[userID] {
		out = append(out, id)
	}
	return out, nil
}

func (m *memStore) InsertUserAchievement(_ context.Context, ua *models.UserAchievement) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsertFor != "" && ua.AchievementID == m.failInsertFor {
		return false, errBoom
	}
	if m.unlocked[ua.UserID] == nil {
		m.unlocked[ua.UserID] = map[string]models.UserAchievement{}
	}
	if _, ok := m.unlocked[ua.UserID][ua.AchievementID]; ok {
		return false, nil
	}
	m.inserts++
	m.unlocked[ua.UserID][ua.AchievementID] = *ua
	return true, nil
}

// recordingSink keeps every notification it is handed.
type recordingSink struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingSink) Notify(_ context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingSink) kinds() []models.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.NotificationKind
	for _, n := range r.sent {
		out = append(out, n.Kind)
	}
	return out
}
