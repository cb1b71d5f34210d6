package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "monestat/internal/errors"
	"monestat/internal/services"
)

// LimitHandler handles limit definitions and on-demand limit checks.
type LimitHandler struct {
	categoryService services.CategoryServicer
	limitService    services.LimitServicer
}

// NewLimitHandler creates a new LimitHandler.
func NewLimitHandler(categoryService services.CategoryServicer, limitService services.LimitServicer) *LimitHandler {
	return &LimitHandler{categoryService: categoryService, limitService: limitService}
}

// GetLimits returns one limit definition when ?category= is given, otherwise
// all of them. A category without a limit is an empty result, not a fault.
func (h *LimitHandler) GetLimits(c *gin.Context) {
	if title := c.Query("category"); title != "" {
		limit, found, err := h.categoryService.GetLimit(c.Request.Context(), title)
		if err != nil {
			respondWithError(c, err)
			return
		}
		if !found {
			respondWithError(c, apperrors.ErrNoLimitSet)
			return
		}
		c.JSON(http.StatusOK, gin.H{"limit": limit})
		return
	}

	limits, err := h.categoryService.GetLimits(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"limits": limits})
}

// UpsertLimitRequest represents the request payload for setting a limit.
type UpsertLimitRequest struct {
	Limit      float64 `json:"limit" binding:"required,gt=0"`
	StartDate  string  `json:"start_date" binding:"required,dateonly"`
	PeriodDays int     `json:"period" binding:"required,gt=0"`
	IsRepeated bool    `json:"is_repeated"`
}

// UpsertLimit creates or replaces the limit on a category, creating the
// category if it has never been seen.
func (h *LimitHandler) UpsertLimit(c *gin.Context) {
	var req UpsertLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	// Already validated by the dateonly binding.
	startDate, _ := time.ParseInLocation(time.DateOnly, req.StartDate, time.UTC)

	limit, err := h.categoryService.UpsertLimit(
		c.Request.Context(), c.Param("category"), req.Limit, startDate, req.PeriodDays, req.IsRepeated,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"limit": limit})
}

// DeleteLimit clears the limit fields of a category. The category row stays.
func (h *LimitHandler) DeleteLimit(c *gin.Context) {
	found, err := h.categoryService.DeleteLimit(c.Request.Context(), c.Param("category"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	if !found {
		respondWithError(c, apperrors.ErrCategoryNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckLimits evaluates every active limit and returns the warning list.
func (h *LimitHandler) CheckLimits(c *gin.Context) {
	warnings, err := h.limitService.CheckLimits(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warnings": warnings})
}
