package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crednine/loan-engine/internal/daycount"
)

const (
	AccrualStatusAccrued = "accrued"
	AccrualStatusPosted  = "posted"
)

// AccrualRecord is one day of interest accrual for one loan. The series is
// append-only and gap-free: a zero-principal day still produces a record
// with a zero amount. CumulativeAccrued carries forward from the prior
// day's record and resets when an interest payment posts it.
type AccrualRecord struct {
	ID                uuid.UUID           `json:"id" db:"id"`
	LoanID            string              `json:"loan_id" db:"loan_id"`
	AccrualDate       time.Time           `json:"accrual_date" db:"accrual_date"`
	OpeningBalance    decimal.Decimal     `json:"opening_balance" db:"opening_balance"`
	EffectiveRate     decimal.Decimal     `json:"effective_rate" db:"effective_rate"`
	AccruedAmount     decimal.Decimal     `json:"accrued_amount" db:"accrued_amount"`
	CumulativeAccrued decimal.Decimal     `json:"cumulative_accrued" db:"cumulative_accrued"`
	Convention        daycount.Convention `json:"day_count_convention" db:"day_count_convention"`
	Status            string              `json:"status" db:"status"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`
}
