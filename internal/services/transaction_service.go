package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "monestat/internal/errors"
	"monestat/internal/ingest"
	"monestat/internal/logger"
	"monestat/internal/models"
	"monestat/internal/pagination"
)

// naturalKeyColumns is the conflict target for transaction upserts. The
// composite unique index over these columns is load-bearing: without it
// re-ingesting overlapping exports would duplicate rows.
var naturalKeyColumns = []clause.Column{
	{Name: "transaction_date"},
	{Name: "account"},
	{Name: "amount"},
	{Name: "description"},
}

// upsertColumns are the mutable fields refreshed on a natural-key conflict.
// The identity fields and the surrogate id are immutable once created.
var upsertColumns = []string{
	"category_id", "currency", "converted_amount", "converted_currency", "is_debit", "updated_at",
}

// transactionService handles ingestion and retrieval of export rows.
type transactionService struct {
	db              *gorm.DB
	categoryService CategoryServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, categoryService CategoryServicer) TransactionServicer {
	return &transactionService{
		db:              db,
		categoryService: categoryService,
	}
}

// InsertTransactions writes a batch of normalized records. Rows are processed
// strictly sequentially inside a single storage transaction, so a mid-batch
// failure rolls back cleanly and ingesting the same export any number of
// times converges to the same row set.
func (s *transactionService) InsertTransactions(ctx context.Context, records []ingest.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	// Resolve every category up front, before the batch transaction opens.
	// Categories are never deleted, so a category created for a batch that
	// later rolls back is harmless.
	categoryIDs := make(map[string]uint)
	for i, record := range records {
		normalized := models.NormalizeTitle(record.Category)
		if _, ok := categoryIDs[normalized]; ok {
			continue
		}
		id, err := s.categoryService.ResolveOrCreate(ctx, record.Category)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i+1, err)
		}
		categoryIDs[normalized] = id
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, record := range records {
			categoryID := categoryIDs[models.NormalizeTitle(record.Category)]
			if err := upsertRecord(tx, categoryID, record); err != nil {
				return fmt.Errorf("record %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return 0, err
		}
		return 0, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	logger.Get().Infow("ingested export batch", "records", len(records))
	return len(records), nil
}

// upsertRecord inserts one record or, on a natural-key conflict, refreshes
// its mutable fields. The sign of the raw amount is folded into IsDebit and
// the stored amounts are magnitudes.
func upsertRecord(tx *gorm.DB, categoryID uint, record ingest.Record) error {
	row := models.Transaction{
		TransactionDate:   record.Date,
		Account:           record.Account,
		CategoryID:        categoryID,
		Amount:            math.Abs(record.Amount),
		Currency:          record.Currency,
		ConvertedAmount:   math.Abs(record.ConvertedAmount),
		ConvertedCurrency: record.ConvertedCurrency,
		Description:       record.Description,
		IsDebit:           record.Amount > 0,
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   naturalKeyColumns,
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&row).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return nil
}

// PeriodWindow is an inclusive [Start, End] date range.
type PeriodWindow struct {
	Start time.Time
	End   time.Time
}

// WindowFromDays builds a window covering the last periodDays days up to
// today.
func WindowFromDays(periodDays int, now time.Time) (PeriodWindow, error) {
	if periodDays <= 0 {
		return PeriodWindow{}, apperrors.WithMessage(apperrors.ErrValidation, "period must be greater than zero days")
	}
	end := truncateToDay(now)
	return PeriodWindow{Start: end.AddDate(0, 0, -periodDays), End: end}, nil
}

// WindowFromDates builds a window from two literal date strings in ISO form.
// Reversed bounds are swapped so the window is always well-formed.
func WindowFromDates(start, end string) (PeriodWindow, error) {
	from, err := time.ParseInLocation(time.DateOnly, start, time.UTC)
	if err != nil {
		return PeriodWindow{}, apperrors.WithMessage(apperrors.ErrValidation,
			fmt.Sprintf("invalid start date %q", start))
	}
	to, err := time.ParseInLocation(time.DateOnly, end, time.UTC)
	if err != nil {
		return PeriodWindow{}, apperrors.WithMessage(apperrors.ErrValidation,
			fmt.Sprintf("invalid end date %q", end))
	}
	if from.After(to) {
		from, to = to, from
	}
	return PeriodWindow{Start: from, End: to}, nil
}

// GetDataPeriod returns the category's transactions inside the window, in
// storage order. An unknown category is reported through the boolean, never
// as an error.
func (s *transactionService) GetDataPeriod(ctx context.Context, category string, window PeriodWindow) ([]models.Transaction, bool, error) {
	var cat models.Category
	err := s.db.WithContext(ctx).
		Where("title = ?", models.NormalizeTitle(category)).
		First(&cat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	var transactions []models.Transaction
	err = s.db.WithContext(ctx).
		Where("category_id = ? AND transaction_date BETWEEN ? AND ?", cat.ID, window.Start, window.End).
		Find(&transactions).Error
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return transactions, true, nil
}

// ListTransactions retrieves a paginated, filtered list of transactions.
func (s *transactionService) ListTransactions(ctx context.Context, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Transaction{})
	if filter.FromDate != nil {
		base = base.Where("transaction_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("transaction_date <= ?", *filter.ToDate)
	}
	if filter.CategoryID != nil {
		base = base.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Account != "" {
		base = base.Where("account = ?", filter.Account)
	}
	if filter.IsDebit != nil {
		base = base.Where("is_debit = ?", *filter.IsDebit)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	var transactions []models.Transaction
	if err := base.Preload("Category").Scopes(pagination.Paginate(page)).Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}
