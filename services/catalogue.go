package services

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"quiz-study-system/logger"
	"quiz-study-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed achievements.yaml
var defaultCatalogue []byte

var ErrInvalidAchievement = errors.New("invalid achievement")

// IconUploader stores an icon and returns its public URL.
type IconUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// Icon is an uploaded file attached to a new catalogue entry.
type Icon struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type NewAchievementInput struct {
	Code          string `json:"code" form:"code"`
	Name          string `json:"name" form:"name"`
	Description   string `json:"description" form:"description"`
	CriteriaType  string `json:"criteria_type" form:"criteria_type"`
	CriteriaValue int64  `json:"criteria_value" form:"criteria_value"`
	Rarity        string `json:"rarity" form:"rarity"`
}

// CatalogueService manages the achievement catalogue and user unlock listings.
type CatalogueService struct {
	DB       *gorm.DB
	uploader IconUploader
	log      *logger.Logger
}

// NewCatalogueService accepts a nil uploader; icons are then rejected.
func NewCatalogueService(db *gorm.DB, uploader IconUploader, log *logger.Logger) *CatalogueService {
	return &CatalogueService{DB: db, uploader: uploader, log: log.With("service", "CatalogueService")}
}

// ParseCatalogue decodes a YAML list of achievements, filling in missing codes.
func ParseCatalogue(raw []byte) ([]models.Achievement, error) {
	var entries []models.Achievement
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	seen := make(map[string]bool, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.Code == "" {
			e.Code = slug.Make(e.Name)
		}
		if e.Code == "" || e.CriteriaType == "" {
			return nil, fmt.Errorf("%w: entry %d needs a name or code and a criteria_type", ErrInvalidAchievement, i)
		}
		if seen[e.Code] {
			return nil, fmt.Errorf("%w: duplicate code %q", ErrInvalidAchievement, e.Code)
		}
		seen[e.Code] = true
		if e.Rarity == "" {
			e.Rarity = "common"
		}
	}
	return entries, nil
}

// Seed upserts the embedded catalogue by code.
func (s *CatalogueService) Seed(ctx context.Context) error {
	entries, err := ParseCatalogue(defaultCatalogue)
	if err != nil {
		return err
	}
	for i := range entries {
		e := &entries[i]
		e.ID = uuid.NewString()
		if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "criteria_type", "criteria_value", "rarity"}),
		}).Create(e).Error; err != nil {
			return fmt.Errorf("seed achievement %q: %w", e.Code, err)
		}
		if ParseCriteriaKind(e.CriteriaType) == CriteriaUnsupported {
			s.log.Warn("⚠️ [CATALOGUE] seeded achievement has an unsupported criteria type", "code", e.Code, "criteria_type", e.CriteriaType)
		}
	}
	s.log.Info("📚 [CATALOGUE] seeded", "count", len(entries))
	return nil
}

func (s *CatalogueService) List(ctx context.Context) ([]models.Achievement, error) {
	var out []models.Achievement
	err := s.DB.WithContext(ctx).Order("created_at ASC, code ASC").Find(&out).Error
	return out, err
}

// ListUnlocked returns the user's unlocks with their catalogue entries, newest first.
func (s *CatalogueService) ListUnlocked(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	err := s.DB.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("unlocked_at DESC").
		Find(&out).Error
	return out, err
}

// Create adds a catalogue entry. icon is optional.
func (s *CatalogueService) Create(ctx context.Context, in NewAchievementInput, icon *Icon) (*models.Achievement, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.CriteriaType = strings.ToLower(strings.TrimSpace(in.CriteriaType))
	if in.Name == "" || in.CriteriaType == "" {
		return nil, fmt.Errorf("%w: name and criteria_type are required", ErrInvalidAchievement)
	}
	if in.CriteriaValue < 0 {
		return nil, fmt.Errorf("%w: criteria_value must not be negative", ErrInvalidAchievement)
	}
	code := slug.Make(in.Code)
	if code == "" {
		code = slug.Make(in.Name)
	}
	rarity := in.Rarity
	if rarity == "" {
		rarity = "common"
	}

	a := &models.Achievement{
		ID:            uuid.NewString(),
		Code:          code,
		Name:          in.Name,
		Description:   in.Description,
		CriteriaType:  in.CriteriaType,
		CriteriaValue: in.CriteriaValue,
		Rarity:        rarity,
	}

	if icon != nil {
		if s.uploader == nil {
			return nil, fmt.Errorf("%w: icon uploads are not configured", ErrInvalidAchievement)
		}
		key := fmt.Sprintf("achievements/%s%s", code, strings.ToLower(path.Ext(icon.Filename)))
		url, err := s.uploader.Upload(ctx, key, icon.Body, icon.Size, icon.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload icon: %w", err)
		}
		a.IconURL = url
	}

	if err := s.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, fmt.Errorf("create achievement %q: %w", code, err)
	}
	if ParseCriteriaKind(a.CriteriaType) == CriteriaUnsupported {
		s.log.Warn("⚠️ [CATALOGUE] achievement will never unlock, criteria type is unsupported", "code", code, "criteria_type", a.CriteriaType)
	}
	s.log.Info("🏅 [CATALOGUE] achievement created", "code", code, "icon", a.IconURL != "")
	return a, nil
}
