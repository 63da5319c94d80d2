package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Installment statuses
const (
	InstallmentStatusPending   = "pending"
	InstallmentStatusPartial   = "partial"
	InstallmentStatusPaid      = "paid"
	InstallmentStatusOverdue   = "overdue"
	InstallmentStatusCancelled = "cancelled"
)

// Installment is one row of a repayment schedule.
//
// Invariants maintained by the generator: ClosingBalance equals
// OpeningBalance minus PrincipalDue and is never negative; the last
// installment's ClosingBalance is exactly zero because the residual is
// force-balanced into its PrincipalDue.
type Installment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	LoanID            string          `json:"loan_id" db:"loan_id"`
	InstallmentNumber int             `json:"installment_number" db:"installment_number"`
	DueDate           time.Time       `json:"due_date" db:"due_date"`
	PeriodStart       time.Time       `json:"period_start" db:"period_start"`
	PeriodEnd         time.Time       `json:"period_end" db:"period_end"`
	PrincipalDue      decimal.Decimal `json:"principal_due" db:"principal_due"`
	InterestDue       decimal.Decimal `json:"interest_due" db:"interest_due"`
	FeesDue           decimal.Decimal `json:"fees_due" db:"fees_due"`
	TotalDue          decimal.Decimal `json:"total_due" db:"total_due"`
	OpeningBalance    decimal.Decimal `json:"opening_balance" db:"opening_balance"`
	ClosingBalance    decimal.Decimal `json:"closing_balance" db:"closing_balance"`
	PrincipalPaid     decimal.Decimal `json:"principal_paid" db:"principal_paid"`
	InterestPaid      decimal.Decimal `json:"interest_paid" db:"interest_paid"`
	FeesPaid          decimal.Decimal `json:"fees_paid" db:"fees_paid"`
	Status            string          `json:"status" db:"status"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// Settled reports whether every bucket of the installment is fully paid.
func (i *Installment) Settled() bool {
	return i.PrincipalPaid.GreaterThanOrEqual(i.PrincipalDue) &&
		i.InterestPaid.GreaterThanOrEqual(i.InterestDue) &&
		i.FeesPaid.GreaterThanOrEqual(i.FeesDue)
}

// Unpaid reports whether the installment still owes anything. Cancelled
// installments owe nothing by definition.
func (i *Installment) Unpaid() bool {
	if i.Status == InstallmentStatusCancelled {
		return false
	}
	return !i.Settled()
}

// Schedule is the ordered installment plan generated from one LoanTerms.
// It is replaced wholesale on restructure or prepayment recompute, never
// mutated past origination (payment progress lives in the Paid columns).
type Schedule struct {
	LoanID       string         `json:"loan_id"`
	TermsID      uuid.UUID      `json:"terms_id"`
	Installments []*Installment `json:"installments"`

	// DeferredInterest is the moratorium interest tracked under the
	// "accrue" treatment: owed but not folded into any installment.
	DeferredInterest decimal.Decimal `json:"deferred_interest"`
}

// TotalPrincipal sums principal_due over all non-cancelled installments.
func (s *Schedule) TotalPrincipal() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range s.Installments {
		if inst.Status == InstallmentStatusCancelled {
			continue
		}
		total = total.Add(inst.PrincipalDue)
	}
	return total
}

// TotalCashFlow sums principal, interest and fees due over all
// non-cancelled installments.
func (s *Schedule) TotalCashFlow() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range s.Installments {
		if inst.Status == InstallmentStatusCancelled {
			continue
		}
		total = total.Add(inst.PrincipalDue).Add(inst.InterestDue).Add(inst.FeesDue)
	}
	return total
}

type ScheduleResponse struct {
	LoanID   string         `json:"loan_id"`
	Schedule []*Installment `json:"schedule"`
}
