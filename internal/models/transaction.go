package models

import "time"

// Transaction represents a single row of a Monefy export. The tuple
// (transaction_date, account, amount, description) is the natural key: at
// most one row may exist per combination, and re-ingesting the same logical
// transaction updates the mutable fields instead of duplicating the row.
//
// Amount and ConvertedAmount are stored as non-negative magnitudes; the sign
// of the original export value survives only in IsDebit.
type Transaction struct {
	Base
	TransactionDate   time.Time `gorm:"type:date;not null;uniqueIndex:ux_transaction_natural_key" json:"transaction_date"`
	Account           string    `gorm:"not null;uniqueIndex:ux_transaction_natural_key" json:"account"`
	CategoryID        uint      `gorm:"not null" json:"category_id"`
	Amount            float64   `gorm:"not null;uniqueIndex:ux_transaction_natural_key" json:"amount"`
	Currency          string    `gorm:"not null" json:"currency"`
	ConvertedAmount   float64   `gorm:"not null" json:"converted_amount"`
	ConvertedCurrency string    `gorm:"not null" json:"converted_currency"`
	// Empty string rather than NULL so the natural-key index has no NULL hole.
	Description string `gorm:"not null;default:'';uniqueIndex:ux_transaction_natural_key" json:"description"`
	IsDebit     bool   `gorm:"not null" json:"is_debit"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
