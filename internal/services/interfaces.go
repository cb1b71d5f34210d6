package services

import (
	"context"
	"time"

	"monestat/internal/ingest"
	"monestat/internal/models"
	"monestat/internal/pagination"
)

// CategoryServicer defines the contract for category and limit business logic.
type CategoryServicer interface {
	// ResolveOrCreate maps a category title to its stable id, creating the
	// category if the normalized title has never been seen. Repeated calls
	// with equivalent titles always return the same id, including under
	// concurrent callers racing to create the same title.
	ResolveOrCreate(ctx context.Context, title string) (uint, error)

	// GetLimit returns the limit definition for one category. The boolean is
	// false when the category does not exist or has no active limit; that is
	// an empty result, not an error.
	GetLimit(ctx context.Context, title string) (*models.Category, bool, error)

	// GetLimits returns every category with an active limit.
	GetLimits(ctx context.Context) ([]models.Category, error)

	// UpsertLimit creates or replaces the limit on a category, creating the
	// category if needed. The limit fields are written as a unit.
	UpsertLimit(ctx context.Context, title string, limit float64, startDate time.Time, periodDays int, isRepeated bool) (*models.Category, error)

	// DeleteLimit clears the limit fields of a category, leaving the
	// category row in place. The boolean is false when no such category
	// exists.
	DeleteLimit(ctx context.Context, title string) (bool, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	CategoryID *uint
	Account    string
	IsDebit    *bool
}

// TransactionServicer defines the contract for ingestion and retrieval of
// export rows.
type TransactionServicer interface {
	// InsertTransactions writes a batch of normalized records, resolving
	// category ids and upserting each row on its natural key. The whole
	// batch runs inside one storage transaction: a mid-batch failure leaves
	// no partial state. Returns the number of records processed.
	InsertTransactions(ctx context.Context, records []ingest.Record) (int, error)

	// GetDataPeriod returns every transaction of the named category whose
	// date falls inside the window, inclusive on both ends. The boolean is
	// false when the category is unknown; that is a result, not an error.
	GetDataPeriod(ctx context.Context, category string, window PeriodWindow) ([]models.Transaction, bool, error)

	// ListTransactions retrieves a paginated, filtered list of transactions.
	ListTransactions(ctx context.Context, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
}

// LimitWarning is one threshold classification produced by a limit check.
type LimitWarning struct {
	Category string  `json:"category"`
	Level    string  `json:"level"`
	Current  float64 `json:"current"`
	Limit    float64 `json:"limit"`
	Message  string  `json:"message"`
}

// Warning levels.
const (
	LevelApproaching = "approaching"
	LevelExceeded    = "exceeded"
)

// LimitServicer defines the contract for on-demand limit evaluation.
type LimitServicer interface {
	// CheckLimits classifies current spending against every active limit
	// and returns one warning per category that is approaching or over its
	// limit. Each invocation recomputes from scratch; no alert state is
	// kept, so repeated calls repeat the same warnings until the underlying
	// spend or limit changes.
	CheckLimits(ctx context.Context) ([]LimitWarning, error)
}
