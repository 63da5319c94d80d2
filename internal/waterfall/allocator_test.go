package waterfall

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crednine/loan-engine/internal/domain"
)

func installment(number int, due time.Time, principal, interest, fees float64) *domain.Installment {
	p := decimal.NewFromFloat(principal)
	i := decimal.NewFromFloat(interest)
	f := decimal.NewFromFloat(fees)
	return &domain.Installment{
		ID:                uuid.New(),
		LoanID:            "LN-300",
		InstallmentNumber: number,
		DueDate:           due,
		PrincipalDue:      p,
		InterestDue:       i,
		FeesDue:           f,
		TotalDue:          p.Add(i).Add(f),
		PrincipalPaid:     decimal.Zero,
		InterestPaid:      decimal.Zero,
		FeesPaid:          decimal.Zero,
		Status:            domain.InstallmentStatusPending,
	}
}

func testPayment(amount float64) *domain.Payment {
	return &domain.Payment{
		ID:     uuid.New(),
		LoanID: "LN-300",
		Amount: decimal.NewFromFloat(amount),
	}
}

func TestAllocate_WaterfallOrder(t *testing.T) {
	due := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	inst := installment(1, due, 800, 150, 50)

	// 120 covers fees (50) then part of interest (70), no principal.
	result := Allocate(testPayment(120), []*domain.Installment{inst})

	require.Len(t, result.Allocations, 1)
	alloc := result.Allocations[0]
	assert.True(t, alloc.FeesAllocated.Equal(decimal.NewFromInt(50)))
	assert.True(t, alloc.InterestAllocated.Equal(decimal.NewFromInt(70)))
	assert.True(t, alloc.PrincipalAllocated.IsZero())
	assert.True(t, result.Unallocated.IsZero())
	assert.Equal(t, domain.InstallmentStatusPartial, inst.Status)
}

func TestAllocate_OldestFirst(t *testing.T) {
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	older := installment(1, jan, 1000, 100, 0)
	newer := installment(2, feb, 1000, 90, 0)

	// Pass them out of order; allocation still hits the older first.
	result := Allocate(testPayment(1100), []*domain.Installment{newer, older})

	require.Len(t, result.Allocations, 1)
	assert.Equal(t, 1, result.Allocations[0].InstallmentNumber)
	assert.Equal(t, domain.InstallmentStatusPaid, older.Status)
	assert.Equal(t, domain.InstallmentStatusPending, newer.Status)
}

func TestAllocate_SpillsAcrossInstallments(t *testing.T) {
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	// Interest-only style: the first two owe fees+interest, the third owes
	// principal.
	first := installment(1, jan, 0, 100, 25)
	second := installment(2, feb, 0, 100, 25)
	third := installment(3, mar, 1000, 0, 0)

	// Exactly fees+interest of the first two plus half the third's principal.
	result := Allocate(testPayment(750), []*domain.Installment{first, second, third})

	assert.Equal(t, domain.InstallmentStatusPaid, first.Status)
	assert.Equal(t, domain.InstallmentStatusPaid, second.Status)
	assert.Equal(t, domain.InstallmentStatusPartial, third.Status)
	assert.True(t, third.PrincipalPaid.Equal(decimal.NewFromInt(500)))
	assert.True(t, result.Unallocated.IsZero())
	require.Len(t, result.Allocations, 3)

	// Delinquency now dates from the third installment.
	asOf := mar.AddDate(0, 0, 10)
	assert.Equal(t, 10, DPD([]*domain.Installment{first, second, third}, asOf))
}

func TestAllocate_UnallocatedRemainder(t *testing.T) {
	due := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	inst := installment(1, due, 500, 50, 0)

	result := Allocate(testPayment(800), []*domain.Installment{inst})

	assert.Equal(t, domain.InstallmentStatusPaid, inst.Status)
	assert.True(t, result.Unallocated.Equal(decimal.NewFromInt(250)),
		"excess payment is tracked, not discarded: got %s", result.Unallocated)
}

func TestAllocate_NeverExceedsBucketDue(t *testing.T) {
	due := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	inst := installment(1, due, 500, 50, 25)
	inst.FeesPaid = decimal.NewFromInt(25) // fees already settled

	result := Allocate(testPayment(1000), []*domain.Installment{inst})

	require.Len(t, result.Allocations, 1)
	alloc := result.Allocations[0]
	assert.True(t, alloc.FeesAllocated.IsZero(), "fees already paid must not re-allocate")
	assert.True(t, alloc.InterestAllocated.Equal(decimal.NewFromInt(50)))
	assert.True(t, alloc.PrincipalAllocated.Equal(decimal.NewFromInt(500)))
	assert.True(t, inst.FeesPaid.Equal(inst.FeesDue))
}

func TestAllocate_SkipsCancelled(t *testing.T) {
	due := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	cancelled := installment(1, due, 500, 50, 0)
	cancelled.Status = domain.InstallmentStatusCancelled
	live := installment(2, due.AddDate(0, 1, 0), 500, 50, 0)

	result := Allocate(testPayment(550), []*domain.Installment{cancelled, live})

	require.Len(t, result.Allocations, 1)
	assert.Equal(t, 2, result.Allocations[0].InstallmentNumber)
	assert.Equal(t, domain.InstallmentStatusCancelled, cancelled.Status)
}

func TestComputeOutstanding_SumsUnpaidBuckets(t *testing.T) {
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	paid := installment(1, jan, 1000, 100, 10)
	paid.PrincipalPaid = paid.PrincipalDue
	paid.InterestPaid = paid.InterestDue
	paid.FeesPaid = paid.FeesDue
	paid.Status = domain.InstallmentStatusPaid

	partial := installment(2, jan.AddDate(0, 1, 0), 1000, 100, 10)
	partial.InterestPaid = decimal.NewFromInt(40)
	partial.Status = domain.InstallmentStatusPartial

	pending := installment(3, jan.AddDate(0, 2, 0), 1000, 100, 10)

	out := ComputeOutstanding([]*domain.Installment{paid, partial, pending})
	assert.True(t, out.Principal.Equal(decimal.NewFromInt(2000)))
	assert.True(t, out.Interest.Equal(decimal.NewFromInt(160)))
	assert.True(t, out.Fees.Equal(decimal.NewFromInt(20)))
	assert.True(t, out.Total().Equal(decimal.NewFromInt(2180)))
}

func TestDPD(t *testing.T) {
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no unpaid installments", func(t *testing.T) {
		inst := installment(1, jan, 1000, 0, 0)
		inst.PrincipalPaid = inst.PrincipalDue
		inst.Status = domain.InstallmentStatusPaid
		assert.Equal(t, 0, DPD([]*domain.Installment{inst}, jan.AddDate(0, 6, 0)))
	})

	t.Run("overdue installment due 45 days ago", func(t *testing.T) {
		inst := installment(1, jan, 1000, 0, 0)
		assert.Equal(t, 45, DPD([]*domain.Installment{inst}, jan.AddDate(0, 0, 45)))
	})

	t.Run("unpaid but not yet due", func(t *testing.T) {
		inst := installment(1, jan, 1000, 0, 0)
		assert.Equal(t, 0, DPD([]*domain.Installment{inst}, jan.AddDate(0, 0, -10)))
	})

	t.Run("earliest unpaid governs", func(t *testing.T) {
		first := installment(1, jan, 1000, 0, 0)
		second := installment(2, jan.AddDate(0, 1, 0), 1000, 0, 0)
		asOf := jan.AddDate(0, 0, 40)
		assert.Equal(t, 40, DPD([]*domain.Installment{second, first}, asOf))
	})
}

func TestMarkOverdue(t *testing.T) {
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	past := installment(1, jan, 1000, 0, 0)
	future := installment(2, jan.AddDate(0, 6, 0), 1000, 0, 0)

	MarkOverdue([]*domain.Installment{past, future}, jan.AddDate(0, 1, 0))

	assert.Equal(t, domain.InstallmentStatusOverdue, past.Status)
	assert.Equal(t, domain.InstallmentStatusPending, future.Status)
}
