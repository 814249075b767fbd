package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-study-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidAssignment = errors.New("invalid assignment")

type AssignmentService struct {
	DB *gorm.DB
}

func NewAssignmentService(db *gorm.DB) *AssignmentService {
	return &AssignmentService{DB: db}
}

type NewAssignmentInput struct {
	UserID        string  `json:"user_id"`
	QuizID        string  `json:"quiz_id"`
	TeamID        *string `json:"team_id,omitempty"`
	Title         string  `json:"title"`
	ScheduledDate string  `json:"scheduled_date"` // YYYY-MM-DD
}

// Create schedules a quiz for a user on a UTC calendar day.
func (s *AssignmentService) Create(ctx context.Context, in NewAssignmentInput) (*models.Assignment, error) {
	if in.UserID == "" || in.QuizID == "" {
		return nil, fmt.Errorf("%w: user_id and quiz_id are required", ErrInvalidAssignment)
	}
	day, err := time.Parse(time.DateOnly, in.ScheduledDate)
	if err != nil {
		return nil, fmt.Errorf("%w: scheduled_date must be YYYY-MM-DD", ErrInvalidAssignment)
	}
	a := &models.Assignment{
		ID:            uuid.NewString(),
		UserID:        in.UserID,
		QuizID:        in.QuizID,
		TeamID:        in.TeamID,
		Title:         in.Title,
		ScheduledDate: CalendarDay(day),
	}
	if err := s.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	return a, nil
}

// ListUpcoming returns the user's assignments scheduled on or after from's day.
func (s *AssignmentService) ListUpcoming(ctx context.Context, userID string, from time.Time) ([]models.Assignment, error) {
	var out []models.Assignment
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND scheduled_date >= ?", userID, CalendarDay(from)).
		Order("scheduled_date ASC").
		Find(&out).Error
	return out, err
}
