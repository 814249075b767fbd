package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-study-system/logger"
	"quiz-study-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTeamNotFound = errors.New("team not found")
	ErrNotTeamOwner = errors.New("only the team owner can manage members")
	ErrInvalidTeam  = errors.New("invalid team")
)

type TeamService struct {
	DB  *gorm.DB
	log *logger.Logger
}

func NewTeamService(db *gorm.DB, log *logger.Logger) *TeamService {
	return &TeamService{DB: db, log: log.With("service", "TeamService")}
}

// uniqueSlug appends -2, -3, ... until the slug is free.
func (s *TeamService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		return "", fmt.Errorf("%w: name must contain letters or digits", ErrInvalidTeam)
	}
	candidate := base
	for i := 2; ; i++ {
		var n int64
		if err := s.DB.WithContext(ctx).Model(&models.Team{}).Where("slug = ?", candidate).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// Create makes a team owned by ownerID, who also becomes its first member.
func (s *TeamService) Create(ctx context.Context, ownerID, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTeam)
	}
	teamSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	team := &models.Team{ID: uuid.NewString(), Name: name, Slug: teamSlug, OwnerID: ownerID}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		owner := models.TeamMember{ID: uuid.NewString(), TeamID: team.ID, UserID: ownerID, Role: "owner"}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		team.Members = []models.TeamMember{owner}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	s.log.Info("👥 [TEAM] created", "slug", team.Slug, "owner_id", ownerID)
	return team, nil
}

func (s *TeamService) GetBySlug(ctx context.Context, teamSlug string) (*models.Team, error) {
	var team models.Team
	err := s.DB.WithContext(ctx).Preload("Members").Where("slug = ?", teamSlug).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// AddMember adds userID to the team. Re-adding an existing member is a no-op.
func (s *TeamService) AddMember(ctx context.Context, teamSlug, requesterID, userID string) (*models.TeamMember, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidTeam)
	}
	team, err := s.GetBySlug(ctx, teamSlug)
	if err != nil {
		return nil, err
	}
	if team.OwnerID != requesterID {
		return nil, ErrNotTeamOwner
	}
	member := &models.TeamMember{ID: uuid.NewString(), TeamID: team.ID, UserID: userID, Role: "member"}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member).Error; err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return member, nil
}

type leaderboardRow struct {
	UserID        string
	Username      *string
	AvatarURL     *string
	TotalXP       int64
	CurrentLevel  int
	LongestStreak int
	LastQuizDate  *time.Time
}

// Leaderboard ranks team members by total XP. Members without stats count
// as zero XP at level 1; ties share a rank (1, 2, 2, 4).
func (s *TeamService) Leaderboard(ctx context.Context, teamSlug string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	team, err := s.GetBySlug(ctx, teamSlug)
	if err != nil {
		return nil, err
	}

	var rows []leaderboardRow
	if err := s.DB.WithContext(ctx).Raw(`
		SELECT tm.user_id,
		       p.username,
		       p.profile_picture_url AS avatar_url,
		       COALESCE(us.total_xp, 0) AS total_xp,
		       COALESCE(us.current_level, 1) AS current_level,
		       COALESCE(us.longest_streak, 0) AS longest_streak,
		       us.last_quiz_date
		FROM team_members tm
		LEFT JOIN user_stats us ON us.user_id = tm.user_id
		LEFT JOIN profiles p ON p.external_user_id = tm.user_id AND p.deleted_at IS NULL
		WHERE tm.team_id = ?
		ORDER BY total_xp DESC, tm.user_id ASC
		LIMIT ?
	`, team.ID, limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("leaderboard for %s: %w", teamSlug, err)
	}
	return rankRows(rows), nil
}

func rankRows(rows []leaderboardRow) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, len(rows))
	for i, r := range rows {
		rank := i + 1
		if i > 0 && r.TotalXP == rows[i-1].TotalXP {
			rank = out[i-1].Rank
		}
		username := r.UserID
		if r.Username != nil && *r.Username != "" {
			username = *r.Username
		}
		out[i] = models.LeaderboardEntry{
			Rank:          rank,
			UserID:        r.UserID,
			Username:      username,
			AvatarURL:     r.AvatarURL,
			TotalXP:       r.TotalXP,
			CurrentLevel:  r.CurrentLevel,
			LongestStreak: r.LongestStreak,
			LastQuizDate:  r.LastQuizDate,
		}
	}
	return out
}
