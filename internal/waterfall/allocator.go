package waterfall

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crednine/loan-engine/internal/domain"
	"github.com/crednine/loan-engine/pkg/money"
)

// Result is the outcome of allocating one payment across a schedule.
type Result struct {
	Allocations []*domain.PaymentAllocation
	// Unallocated is whatever the payment could not be applied to. Never
	// silently discarded; the servicing layer decides its fate (refund,
	// prepayment recompute).
	Unallocated decimal.Decimal
}

// Outstanding is the recomputed position after an allocation.
type Outstanding struct {
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Fees      decimal.Decimal
}

func (o Outstanding) Total() decimal.Decimal {
	return o.Principal.Add(o.Interest).Add(o.Fees)
}

// Allocate applies a payment across unpaid installments, oldest due date
// first, fees then interest then principal within each installment.
// Installments are updated in place: paid amounts advance and status moves
// to partial or paid. Allocation never exceeds the amount due in a bucket.
func Allocate(payment *domain.Payment, installments []*domain.Installment) *Result {
	ordered := make([]*domain.Installment, len(installments))
	copy(ordered, installments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].DueDate.Equal(ordered[j].DueDate) {
			return ordered[i].DueDate.Before(ordered[j].DueDate)
		}
		return ordered[i].InstallmentNumber < ordered[j].InstallmentNumber
	})

	remaining := payment.Amount
	result := &Result{}

	for _, inst := range ordered {
		if !remaining.GreaterThan(decimal.Zero) {
			break
		}
		if inst.Status == domain.InstallmentStatusCancelled || !inst.Unpaid() {
			continue
		}

		fees := money.Min(remaining, inst.FeesDue.Sub(inst.FeesPaid))
		if fees.IsNegative() {
			fees = decimal.Zero
		}
		remaining = remaining.Sub(fees)
		inst.FeesPaid = inst.FeesPaid.Add(fees)

		interest := money.Min(remaining, inst.InterestDue.Sub(inst.InterestPaid))
		if interest.IsNegative() {
			interest = decimal.Zero
		}
		remaining = remaining.Sub(interest)
		inst.InterestPaid = inst.InterestPaid.Add(interest)

		principal := money.Min(remaining, inst.PrincipalDue.Sub(inst.PrincipalPaid))
		if principal.IsNegative() {
			principal = decimal.Zero
		}
		remaining = remaining.Sub(principal)
		inst.PrincipalPaid = inst.PrincipalPaid.Add(principal)

		if inst.Settled() {
			inst.Status = domain.InstallmentStatusPaid
		} else {
			inst.Status = domain.InstallmentStatusPartial
		}

		allocated := fees.Add(interest).Add(principal)
		if allocated.GreaterThan(decimal.Zero) {
			result.Allocations = append(result.Allocations, &domain.PaymentAllocation{
				ID:                 uuid.New(),
				PaymentID:          payment.ID,
				LoanID:             payment.LoanID,
				InstallmentID:      inst.ID,
				InstallmentNumber:  inst.InstallmentNumber,
				PrincipalAllocated: principal,
				InterestAllocated:  interest,
				FeesAllocated:      fees,
				CreatedAt:          time.Now(),
			})
		}
	}

	result.Unallocated = remaining
	return result
}

// ComputeOutstanding sums what every non-cancelled installment still owes.
// Always a full recompute by summation, never incremental subtraction, so
// balances cannot drift.
func ComputeOutstanding(installments []*domain.Installment) Outstanding {
	out := Outstanding{Principal: decimal.Zero, Interest: decimal.Zero, Fees: decimal.Zero}
	for _, inst := range installments {
		if inst.Status == domain.InstallmentStatusCancelled {
			continue
		}
		out.Principal = out.Principal.Add(positive(inst.PrincipalDue.Sub(inst.PrincipalPaid)))
		out.Interest = out.Interest.Add(positive(inst.InterestDue.Sub(inst.InterestPaid)))
		out.Fees = out.Fees.Add(positive(inst.FeesDue.Sub(inst.FeesPaid)))
	}
	return out
}

// DPD returns days past due as of a date: the age of the earliest unpaid
// installment's due date, or zero when nothing is unpaid as of that date.
// The single source of truth for delinquency staging.
func DPD(installments []*domain.Installment, asOf time.Time) int {
	var earliest time.Time
	found := false
	for _, inst := range installments {
		if !inst.Unpaid() {
			continue
		}
		if !found || inst.DueDate.Before(earliest) {
			earliest = inst.DueDate
			found = true
		}
	}
	if !found {
		return 0
	}
	days := int(asOf.Sub(earliest).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// MarkOverdue flips unpaid installments past their due date to overdue.
// Partial payments keep the partial status.
func MarkOverdue(installments []*domain.Installment, asOf time.Time) {
	for _, inst := range installments {
		if inst.Status != domain.InstallmentStatusPending {
			continue
		}
		if inst.Unpaid() && inst.DueDate.Before(asOf) {
			inst.Status = domain.InstallmentStatusOverdue
		}
	}
}

func positive(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
