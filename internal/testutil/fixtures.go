package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"monestat/internal/models"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date builds a UTC midnight date, matching what the normalizer produces.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CreateTestCategory creates a category with a unique normalized title and no
// limit.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()
	return CreateTestCategoryWithTitle(t, db, fmt.Sprintf("category %d", nextID()))
}

// CreateTestCategoryWithTitle creates a category with the given title,
// normalized the way the resolver normalizes it.
func CreateTestCategoryWithTitle(t *testing.T, db *gorm.DB, title string) *models.Category {
	t.Helper()

	category := &models.Category{Title: models.NormalizeTitle(title)}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// SetTestLimit activates a limit on a category with all limit fields set as a
// unit.
func SetTestLimit(t *testing.T, db *gorm.DB, category *models.Category, limit float64, startDate time.Time, periodDays int, isRepeated bool) {
	t.Helper()

	updates := map[string]interface{}{
		"limit_amount": limit,
		"start_date":   startDate,
		"period_days":  periodDays,
		"is_repeated":  isRepeated,
	}
	if err := db.Model(category).Updates(updates).Error; err != nil {
		t.Fatalf("failed to set test limit: %v", err)
	}
}

// CreateTestTransaction creates a debit transaction for the category dated
// the given day.
func CreateTestTransaction(t *testing.T, db *gorm.DB, categoryID uint, date time.Time, amount float64) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		TransactionDate:   date,
		Account:           "Cash",
		CategoryID:        categoryID,
		Amount:            amount,
		Currency:          "USD",
		ConvertedAmount:   amount,
		ConvertedCurrency: "USD",
		Description:       fmt.Sprintf("test transaction %d", nextID()),
		IsDebit:           true,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
