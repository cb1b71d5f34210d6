package models

import (
	"strings"
	"time"
)

// Category represents a spending category. Categories are created lazily the
// first time a title is seen during ingestion, or explicitly by a limit
// upsert. They are never deleted; clearing a limit only nulls the limit
// fields.
//
// The limit fields (LimitAmount, StartDate, PeriodDays, IsRepeated) are either
// all set or all null: a limit is active or cleared as a unit.
type Category struct {
	Base
	Title       string     `gorm:"not null;uniqueIndex:ux_category_title" json:"title"`
	LimitAmount *float64   `json:"limit,omitempty"`
	StartDate   *time.Time `gorm:"type:date" json:"start_date,omitempty"`
	PeriodDays  *int       `json:"period,omitempty"`
	IsRepeated  *bool      `json:"is_repeated,omitempty"`

	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
}

// HasLimit reports whether the category has an active spending limit.
func (c *Category) HasLimit() bool {
	return c.LimitAmount != nil && c.StartDate != nil && c.PeriodDays != nil
}

// NormalizeTitle maps a category title to its canonical stored form: trimmed
// and lower-cased. Uniqueness is enforced on this form, so "Food", " food "
// and "FOOD" all resolve to the same row.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
