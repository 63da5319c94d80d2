package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is an incoming repayment event from the servicing layer.
type Payment struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	LoanID      string          `json:"loan_id" db:"loan_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate time.Time       `json:"payment_date" db:"payment_date"`
	Reference   string          `json:"reference" db:"reference"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// PaymentAllocation records how much of one payment went into each bucket
// of one installment. Cumulative allocations against an installment never
// exceed the respective amounts due.
type PaymentAllocation struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	PaymentID          uuid.UUID       `json:"payment_id" db:"payment_id"`
	LoanID             string          `json:"loan_id" db:"loan_id"`
	InstallmentID      uuid.UUID       `json:"installment_id" db:"installment_id"`
	InstallmentNumber  int             `json:"installment_number" db:"installment_number"`
	PrincipalAllocated decimal.Decimal `json:"principal_allocated" db:"principal_allocated"`
	InterestAllocated  decimal.Decimal `json:"interest_allocated" db:"interest_allocated"`
	FeesAllocated      decimal.Decimal `json:"fees_allocated" db:"fees_allocated"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

// Total returns the sum allocated across the three buckets.
func (a *PaymentAllocation) Total() decimal.Decimal {
	return a.PrincipalAllocated.Add(a.InterestAllocated).Add(a.FeesAllocated)
}

type MakePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	PaymentDate time.Time       `json:"payment_date" validate:"required"`
	Reference   string          `json:"reference"`
}

type MakePaymentResponse struct {
	Payment     *Payment             `json:"payment"`
	Allocations []*PaymentAllocation `json:"allocations"`
	Unallocated decimal.Decimal      `json:"unallocated"`
}
