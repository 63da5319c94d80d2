package schedule

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crednine/loan-engine/internal/daycount"
	"github.com/crednine/loan-engine/internal/domain"
)

func moratoriumTerms(k int, mode, treatment string) *domain.LoanTerms {
	terms := baseTerms()
	terms.Convention = daycount.Thirty360
	terms.MoratoriumPeriods = k
	terms.MoratoriumMode = mode
	terms.InterestTreatment = treatment
	return terms
}

func TestMoratorium_FullCapitalize(t *testing.T) {
	sched, err := testGenerator().Generate(context.Background(),
		moratoriumTerms(3, domain.MoratoriumFull, domain.InterestCapitalize))
	require.NoError(t, err)

	for i, inst := range sched.Installments[:3] {
		assert.True(t, inst.TotalDue.IsZero(), "moratorium installment %d should owe nothing", i+1)
		// Balance holds steady through the moratorium.
		assert.True(t, inst.ClosingBalance.Equal(decimal.NewFromInt(100000)))
	}

	// First post-moratorium opening balance = principal + capitalized
	// interest (3 months at 1% under 30/360 = 3000).
	fourth := sched.Installments[3]
	assert.True(t, fourth.OpeningBalance.Equal(decimal.NewFromInt(103000)),
		"capitalized interest should enter the balance, got %s", fourth.OpeningBalance)

	// Principal due now repays principal plus the capitalized interest.
	assert.True(t, sched.TotalPrincipal().Equal(decimal.NewFromInt(103000)),
		"got %s", sched.TotalPrincipal())
	assert.True(t, sched.Installments[11].ClosingBalance.IsZero())
	assert.True(t, sched.DeferredInterest.IsZero())
}

func TestMoratorium_FullWaive(t *testing.T) {
	sched, err := testGenerator().Generate(context.Background(),
		moratoriumTerms(3, domain.MoratoriumFull, domain.InterestWaive))
	require.NoError(t, err)

	assert.True(t, sched.TotalPrincipal().Equal(decimal.NewFromInt(100000)),
		"waived interest never becomes principal, got %s", sched.TotalPrincipal())
	assert.True(t, sched.Installments[11].ClosingBalance.IsZero())
	assert.True(t, sched.DeferredInterest.IsZero())
}

func TestMoratorium_FullAccrue(t *testing.T) {
	sched, err := testGenerator().Generate(context.Background(),
		moratoriumTerms(3, domain.MoratoriumFull, domain.InterestAccrue))
	require.NoError(t, err)

	assert.True(t, sched.DeferredInterest.Equal(decimal.NewFromInt(3000)),
		"deferred interest tracked as a memo, got %s", sched.DeferredInterest)
	assert.True(t, sched.TotalPrincipal().Equal(decimal.NewFromInt(100000)),
		"accrued treatment never alters principal")
}

func TestMoratorium_PrincipalOnly(t *testing.T) {
	sched, err := testGenerator().Generate(context.Background(),
		moratoriumTerms(2, domain.MoratoriumPrincipalOnly, domain.InterestAccrue))
	require.NoError(t, err)

	for _, inst := range sched.Installments[:2] {
		assert.True(t, inst.PrincipalDue.IsZero())
		assert.True(t, inst.InterestDue.Equal(decimal.NewFromInt(1000)),
			"interest stays due when only principal is deferred, got %s", inst.InterestDue)
	}
	assert.True(t, sched.DeferredInterest.IsZero(), "no interest was deferred")
	assert.True(t, sched.TotalPrincipal().Equal(decimal.NewFromInt(100000)))
	assert.True(t, sched.Installments[11].ClosingBalance.IsZero())
}

func TestMoratorium_InterestOnlyMode(t *testing.T) {
	sched, err := testGenerator().Generate(context.Background(),
		moratoriumTerms(2, domain.MoratoriumInterestOnly, domain.InterestWaive))
	require.NoError(t, err)

	for _, inst := range sched.Installments[:2] {
		assert.True(t, inst.InterestDue.IsZero())
		assert.False(t, inst.PrincipalDue.IsZero(), "principal stays due when only interest is deferred")
	}
	assert.True(t, sched.TotalPrincipal().Equal(decimal.NewFromInt(100000)))
}

func TestMoratorium_LongerThanSchedule(t *testing.T) {
	sched, err := testGenerator().Generate(context.Background(), baseTerms())
	require.NoError(t, err)

	err = ApplyMoratorium(sched, 12, domain.MoratoriumFull, domain.InterestWaive)
	assert.Error(t, err)

	err = ApplyMoratorium(sched, 0, domain.MoratoriumFull, domain.InterestWaive)
	assert.Error(t, err)
}
