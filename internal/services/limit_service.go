package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "monestat/internal/errors"
	"monestat/internal/models"
)

// approachingRatio is the share of a limit at which spending starts to
// produce an "approaching" warning.
const approachingRatio = 0.7

// limitService evaluates spending against category limits.
type limitService struct {
	db *gorm.DB

	// now is swappable in tests.
	now func() time.Time
}

// NewLimitService creates a new LimitServicer.
func NewLimitService(db *gorm.DB) LimitServicer {
	return &limitService{db: db, now: time.Now}
}

// CheckLimits classifies current spending against every active limit. For a
// repeated limit whose period has lapsed, the window rolls forward by whole
// periods so evaluation always covers the current period; the stored
// start_date is left untouched. A non-repeated lapsed limit is skipped.
func (s *limitService) CheckLimits(ctx context.Context) ([]LimitWarning, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Where("limit_amount IS NOT NULL").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	today := truncateToDay(s.now().UTC())
	warnings := make([]LimitWarning, 0)
	for _, category := range categories {
		if !category.HasLimit() {
			// Partially cleared limit fields; nothing sound to evaluate.
			continue
		}

		window, ok := evaluationWindow(&category, today)
		if !ok {
			continue
		}

		current, err := s.sumAmounts(ctx, category.ID, window)
		if err != nil {
			return nil, err
		}

		if warning, ok := classify(&category, current); ok {
			warnings = append(warnings, warning)
		}
	}
	return warnings, nil
}

// evaluationWindow computes the [start, today] window for a limit, rolling a
// repeated limit forward by whole periods. It returns ok=false when the
// window has lapsed for a non-repeated limit or has not started yet.
func evaluationWindow(category *models.Category, today time.Time) (PeriodWindow, bool) {
	start := truncateToDay(*category.StartDate)
	period := *category.PeriodDays

	elapsed := daysBetween(start, today)
	if elapsed < 0 {
		return PeriodWindow{}, false
	}
	if elapsed >= period {
		if category.IsRepeated == nil || !*category.IsRepeated {
			return PeriodWindow{}, false
		}
		start = start.AddDate(0, 0, (elapsed/period)*period)
	}
	return PeriodWindow{Start: start, End: today}, true
}

// sumAmounts totals the stored amount magnitudes for a category inside the
// window.
func (s *limitService) sumAmounts(ctx context.Context, categoryID uint, window PeriodWindow) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("category_id = ? AND transaction_date BETWEEN ? AND ?", categoryID, window.Start, window.End).
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return total, nil
}

// classify derives the approaching/exceeded/none decision for a limit.
// Spending exactly at the limit produces no warning: "approaching" requires
// staying under it and "exceeded" requires going over.
func classify(category *models.Category, current float64) (LimitWarning, bool) {
	limit := *category.LimitAmount

	switch {
	case current > limit:
		return LimitWarning{
			Category: category.Title,
			Level:    LevelExceeded,
			Current:  current,
			Limit:    limit,
			Message: fmt.Sprintf("Spending for %q exceeded its limit: %.2f of %.2f",
				category.Title, current, limit),
		}, true
	case current >= approachingRatio*limit && current < limit:
		return LimitWarning{
			Category: category.Title,
			Level:    LevelApproaching,
			Current:  current,
			Limit:    limit,
			Message: fmt.Sprintf("Spending for %q is approaching its limit: %.2f of %.2f",
				category.Title, current, limit),
		}, true
	}
	return LimitWarning{}, false
}

// daysBetween returns the whole days from a to b; both are UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
