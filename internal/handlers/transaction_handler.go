package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "monestat/internal/errors"
	"monestat/internal/ingest"
	"monestat/internal/pagination"
	"monestat/internal/services"
)

// TransactionHandler handles export ingestion and transaction listing.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	importMaxBytes     int64
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, importMaxBytes int64) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		importMaxBytes:     importMaxBytes,
	}
}

// ImportTransactions accepts a Monefy export as a multipart upload, runs it
// through the normalizer and upserts every row. With ?on_error=collect the
// parser skips malformed rows and reports them instead of failing the batch.
func (h *TransactionHandler) ImportTransactions(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "export file is required"))
		return
	}
	defer file.Close()

	opts := ingest.Options{CollectErrors: c.Query("on_error") == "collect"}
	result, err := ingest.Parse(http.MaxBytesReader(c.Writer, file, h.importMaxBytes), opts)
	if err != nil {
		respondWithError(c, err)
		return
	}

	inserted, err := h.transactionService.InsertTransactions(c.Request.Context(), result.Records)
	if err != nil {
		respondWithError(c, err)
		return
	}

	skipped := make([]string, 0, len(result.RowErrors))
	for _, rowErr := range result.RowErrors {
		skipped = append(skipped, rowErr.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"ingested": inserted,
		"skipped":  skipped,
	})
}

// ListTransactionsRequest holds the query parameters for listing transactions.
type ListTransactionsRequest struct {
	pagination.PageRequest
	From     string `form:"from" binding:"omitempty,dateonly"`
	To       string `form:"to" binding:"omitempty,dateonly"`
	Account  string `form:"account"`
	Category *uint  `form:"category_id"`
	IsDebit  *bool  `form:"is_debit"`
}

// ListTransactions handles a paginated, filtered transaction listing.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.TransactionFilter{
		CategoryID: req.Category,
		Account:    req.Account,
		IsDebit:    req.IsDebit,
	}
	if req.From != "" {
		from, _ := time.ParseInLocation(time.DateOnly, req.From, time.UTC)
		filter.FromDate = &from
	}
	if req.To != "" {
		to, _ := time.ParseInLocation(time.DateOnly, req.To, time.UTC)
		filter.ToDate = &to
	}

	result, err := h.transactionService.ListTransactions(c.Request.Context(), req.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetDataPeriodRequest holds the query parameters for a period report. Either
// period_days or both start and end must be provided.
type GetDataPeriodRequest struct {
	Category   string `form:"category" binding:"required"`
	PeriodDays *int   `form:"period_days" binding:"omitempty,gt=0"`
	Start      string `form:"start" binding:"omitempty,dateonly"`
	End        string `form:"end" binding:"omitempty,dateonly"`
}

// GetDataPeriod returns the transactions of one category inside a date
// window. An unknown category is an explicit not-found response, not a fault.
func (h *TransactionHandler) GetDataPeriod(c *gin.Context) {
	var req GetDataPeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var (
		window services.PeriodWindow
		err    error
	)
	switch {
	case req.PeriodDays != nil:
		window, err = services.WindowFromDays(*req.PeriodDays, time.Now().UTC())
	case req.Start != "" && req.End != "":
		window, err = services.WindowFromDates(req.Start, req.End)
	default:
		err = apperrors.WithMessage(apperrors.ErrValidation, "either period_days or start and end are required")
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, found, err := h.transactionService.GetDataPeriod(c.Request.Context(), req.Category, window)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if !found {
		respondWithError(c, apperrors.ErrCategoryNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category":     req.Category,
		"start":        window.Start.Format(time.DateOnly),
		"end":          window.End.Format(time.DateOnly),
		"transactions": transactions,
	})
}
