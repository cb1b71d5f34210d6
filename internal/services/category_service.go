package services

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "monestat/internal/errors"
	"monestat/internal/models"
)

// resolveCacheSize bounds the normalized-title -> id cache. Monefy exports
// carry a few dozen categories at most.
const resolveCacheSize = 256

// categoryService handles category and limit business logic.
type categoryService struct {
	db    *gorm.DB
	cache *lru.Cache[string, uint]
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, uint](resolveCacheSize)
	return &categoryService{db: db, cache: cache}
}

// ResolveOrCreate maps a title to a category id, creating the row on first
// sight. Correctness under concurrent creation is delegated to the unique
// constraint on the normalized title: the insert is a no-op on conflict and
// the winner's id is read back. No application-level lock is held. Cached ids
// never go stale because categories are never deleted.
func (s *categoryService) ResolveOrCreate(ctx context.Context, title string) (uint, error) {
	normalized := models.NormalizeTitle(title)
	if normalized == "" {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "category title is required")
	}

	if id, ok := s.cache.Get(normalized); ok {
		return id, nil
	}

	category := &models.Category{Title: normalized}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "title"}},
			DoNothing: true,
		}).
		Create(category)
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, result.Error)
	}

	if result.RowsAffected == 0 {
		// Lost the race (or the row already existed): read the winner's id.
		if err := s.db.WithContext(ctx).
			Where("title = ?", normalized).
			First(category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The conflict target did not behave like a unique
				// constraint; without it idempotence cannot be guaranteed.
				return 0, apperrors.WithMessage(apperrors.ErrStorage,
					"category uniqueness constraint is missing or ineffective")
			}
			return 0, apperrors.Wrap(apperrors.ErrStorage, err)
		}
	}

	s.cache.Add(normalized, category.ID)
	return category.ID, nil
}

// GetLimit returns the limit definition for one category, or found=false when
// the category is unknown or has no active limit.
func (s *categoryService) GetLimit(ctx context.Context, title string) (*models.Category, bool, error) {
	var category models.Category
	err := s.db.WithContext(ctx).
		Where("title = ? AND limit_amount IS NOT NULL", models.NormalizeTitle(title)).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return &category, true, nil
}

// GetLimits returns every category with an active limit.
func (s *categoryService) GetLimits(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Where("limit_amount IS NOT NULL").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return categories, nil
}

// UpsertLimit creates or replaces a category's limit. All four limit fields
// are written together so a limit is always fully set or fully cleared.
func (s *categoryService) UpsertLimit(ctx context.Context, title string, limit float64, startDate time.Time, periodDays int, isRepeated bool) (*models.Category, error) {
	if limit <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be greater than zero")
	}
	if periodDays <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be greater than zero days")
	}

	id, err := s.ResolveOrCreate(ctx, title)
	if err != nil {
		return nil, err
	}

	startDate = truncateToDay(startDate)
	updates := map[string]interface{}{
		"limit_amount": limit,
		"start_date":   startDate,
		"period_days":  periodDays,
		"is_repeated":  isRepeated,
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return &category, nil
}

// DeleteLimit clears the limit fields of a category. The row itself is kept;
// the core never hard-deletes either entity.
func (s *categoryService) DeleteLimit(ctx context.Context, title string) (bool, error) {
	normalized := models.NormalizeTitle(title)

	var category models.Category
	err := s.db.WithContext(ctx).Where("title = ?", normalized).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	updates := map[string]interface{}{
		"limit_amount": nil,
		"start_date":   nil,
		"period_days":  nil,
		"is_repeated":  nil,
	}
	if err := s.db.WithContext(ctx).
		Model(&category).
		Updates(updates).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return true, nil
}

// truncateToDay drops the time-of-day component, keeping dates comparable to
// the UTC-midnight dates the normalizer produces.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
