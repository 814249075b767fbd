package services

import (
	"context"
	"fmt"
	"time"

	"quiz-study-system/logger"
	"quiz-study-system/models"

	"github.com/google/uuid"
)

// StartSessionInput is what a client sends to open a session.
type StartSessionInput struct {
	QuizID           string  `json:"quiz_id"`
	MaxPoints        int64   `json:"max_points"`
	EstimatedMinutes int     `json:"estimated_minutes"`
	AssignmentID     *string `json:"assignment_id,omitempty"`
}

// CompletionOutcome is returned to the completion trigger.
type CompletionOutcome struct {
	Session  *models.QuizSession `json:"session"`
	BonusXP  int64               `json:"bonus_xp"`
	Progress *ProgressionResult  `json:"progress,omitempty"`
}

type SessionService struct {
	store       SessionStore
	progression *ProgressionService
	notifier    NotificationSink
	log         *logger.Logger
	now         func() time.Time
}

func NewSessionService(store SessionStore, progression *ProgressionService, notifier NotificationSink, log *logger.Logger) *SessionService {
	return &SessionService{
		store:       store,
		progression: progression,
		notifier:    notifier,
		log:         log.With("service", "SessionService"),
		now:         time.Now,
	}
}

func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

func validateResult(r models.SessionResult) error {
	if r.PointsEarned < 0 || r.TotalPoints < 0 || r.PointsEarned > r.TotalPoints {
		return fmt.Errorf("%w: question %q earned %d of %d", ErrInvalidResult, r.QuestionID, r.PointsEarned, r.TotalPoints)
	}
	if r.TimeSpent < 0 {
		return fmt.Errorf("%w: question %q negative time_spent", ErrInvalidResult, r.QuestionID)
	}
	return nil
}

func (s *SessionService) Start(ctx context.Context, userID string, in StartSessionInput) (*models.QuizSession, error) {
	if in.MaxPoints < 0 || in.EstimatedMinutes < 0 {
		return nil, fmt.Errorf("%w: negative max_points or estimated_minutes", ErrInvalidResult)
	}
	sess := &models.QuizSession{
		ID:               uuid.NewString(),
		UserID:           userID,
		QuizID:           in.QuizID,
		Status:           models.SessionStatusActive,
		MaxPoints:        in.MaxPoints,
		EstimatedMinutes: in.EstimatedMinutes,
		AssignmentID:     in.AssignmentID,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Get returns the user's session or ErrSessionNotFound.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*models.QuizSession, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if sess == nil || sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Answer appends a result to an active session and logs the answered question.
func (s *SessionService) Answer(ctx context.Context, userID, sessionID string, r models.SessionResult) (*models.QuizSession, error) {
	if err := validateResult(r); err != nil {
		return nil, err
	}
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case models.SessionStatusCompleted:
		return nil, ErrSessionCompleted
	case models.SessionStatusPaused:
		return nil, fmt.Errorf("%w: session is paused", ErrInvalidTransition)
	}

	sess.Results = append(sess.Results, r)
	sess.RecomputeTotalPoints()
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sess.ID, err)
	}

	s.logAnswer(ctx, sess, r)
	return sess, nil
}

// logAnswer writes the question log row for r. The session row is the
// source of truth for points; the log only feeds counts, so failures are logged.
func (s *SessionService) logAnswer(ctx context.Context, sess *models.QuizSession, r models.SessionResult) {
	if err := s.store.InsertQuestionLog(ctx, &models.QuestionLog{
		ID:           uuid.NewString(),
		UserID:       sess.UserID,
		SessionID:    sess.ID,
		QuestionID:   r.QuestionID,
		PointsEarned: r.PointsEarned,
		TotalPoints:  r.TotalPoints,
		TimeSpent:    r.TimeSpent,
		AnsweredAt:   s.now().UTC(),
	}); err != nil {
		s.log.Warn("⚠️ [SESSION] question log insert failed", "session_id", sess.ID, "question_id", r.QuestionID, "error", err)
	}
}

// logSubmittedResults logs the results that arrived with the completion
// request and were not already logged by Answer for this session.
func (s *SessionService) logSubmittedResults(ctx context.Context, sess *models.QuizSession, results []models.SessionResult) {
	logged, err := s.store.ListLoggedQuestionIDs(ctx, sess.ID)
	if err != nil {
		s.log.Warn("⚠️ [SESSION] question log lookup failed, skipping", "session_id", sess.ID, "error", err)
		return
	}
	seen := make(map[string]bool, len(logged)+len(results))
	for _, id := range logged {
		seen[id] = true
	}
	for _, r := range results {
		if seen[r.QuestionID] {
			continue
		}
		seen[r.QuestionID] = true
		s.logAnswer(ctx, sess, r)
	}
}

func (s *SessionService) Pause(ctx context.Context, userID, sessionID string) (*models.QuizSession, error) {
	return s.transition(ctx, userID, sessionID, models.SessionStatusActive, models.SessionStatusPaused)
}

func (s *SessionService) Resume(ctx context.Context, userID, sessionID string) (*models.QuizSession, error) {
	return s.transition(ctx, userID, sessionID, models.SessionStatusPaused, models.SessionStatusActive)
}

func (s *SessionService) transition(ctx context.Context, userID, sessionID string, from, to models.SessionStatus) (*models.QuizSession, error) {
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.IsCompleted() {
		return nil, ErrSessionCompleted
	}
	if sess.Status != from {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.Status, to)
	}
	sess.Status = to
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return sess, nil
}

// Complete is the completion trigger. results, when non-nil, replaces the
// session's results before points are recomputed.
//
// The session write is the only fatal step. Bonus evaluation happens once,
// on the transition into completed; calling Complete again on a completed
// session (with nil results) only re-runs the idempotent recompute.
func (s *SessionService) Complete(ctx context.Context, userID, sessionID string, results []models.SessionResult) (*CompletionOutcome, error) {
	for _, r := range results {
		if err := validateResult(r); err != nil {
			return nil, err
		}
	}
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	firstCompletion := !sess.IsCompleted()
	if !firstCompletion && results != nil {
		return nil, ErrSessionCompleted
	}

	if results != nil {
		sess.Results = results
		sess.TotalPoints = models.SumPoints(results)
	} else {
		sess.RecomputeTotalPoints()
	}

	var bonus int64
	if firstCompletion {
		completedAt := s.now().UTC()
		sess.Status = models.SessionStatusCompleted
		sess.CompletedAt = &completedAt
		if s.progression != nil {
			bonus = s.progression.EvaluateBonus(ctx, sess)
		}
		sess.BonusXP = bonus
	}

	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save completed session %s: %w", sess.ID, err)
	}
	s.log.Info("✅ [SESSION] completed",
		"session_id", sess.ID, "user_id", userID, "total_points", sess.TotalPoints,
		"max_points", sess.MaxPoints, "bonus_xp", bonus, "first", firstCompletion)

	if firstCompletion && results != nil {
		s.logSubmittedResults(ctx, sess, results)
	}

	outcome := &CompletionOutcome{Session: sess, BonusXP: bonus}
	if bonus > 0 && s.notifier != nil {
		s.notifier.Notify(ctx, BonusNotification(sess, bonus))
	}
	if s.progression != nil {
		outcome.Progress = s.progression.ProcessCompletion(ctx, sess)
	}
	return outcome, nil
}
