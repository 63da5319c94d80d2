package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crednine/loan-engine/internal/domain"
	customError "github.com/crednine/loan-engine/pkg/errors"
)

func fixedTerms(rate float64) *domain.LoanTerms {
	return &domain.LoanTerms{
		LoanID:     "LN-1",
		AnnualRate: decimal.NewFromFloat(rate),
		RateType:   domain.RateTypeFixed,
	}
}

func floatingTerms(contract, spread, floor, cap float64, reset time.Time) *domain.LoanTerms {
	return &domain.LoanTerms{
		LoanID:     "LN-1",
		AnnualRate: decimal.NewFromFloat(contract),
		RateType:   domain.RateTypeFloating,
		Benchmark:  "REPO",
		Spread:     decimal.NewFromFloat(spread),
		RateFloor:  decimal.NewFromFloat(floor),
		RateCap:    decimal.NewFromFloat(cap),
		ResetDate:  reset,
	}
}

func TestEffective_Fixed(t *testing.T) {
	resolver := NewResolver(StaticProvider{})

	rate, err := resolver.Effective(context.Background(), fixedTerms(0.12), time.Now())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.12)))
}

func TestEffective_FloatingBeforeReset(t *testing.T) {
	reset := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	resolver := NewResolver(StaticProvider{"REPO": decimal.NewFromFloat(0.065)})

	rate, err := resolver.Effective(context.Background(),
		floatingTerms(0.12, 0.04, 0, 0, reset),
		time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.12)), "contract rate applies before reset")
}

func TestEffective_FloatingAfterReset(t *testing.T) {
	reset := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	resolver := NewResolver(StaticProvider{"REPO": decimal.NewFromFloat(0.065)})

	rate, err := resolver.Effective(context.Background(),
		floatingTerms(0.12, 0.04, 0, 0, reset), reset)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.105)), "benchmark + spread, got %s", rate)
}

func TestEffective_FloorAndCap(t *testing.T) {
	reset := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	asOf := reset.AddDate(0, 1, 0)

	// Benchmark + spread below floor clips up.
	resolver := NewResolver(StaticProvider{"REPO": decimal.NewFromFloat(0.02)})
	rate, err := resolver.Effective(context.Background(),
		floatingTerms(0.12, 0.01, 0.08, 0.15, reset), asOf)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.08)), "floor should apply, got %s", rate)

	// Benchmark + spread above cap clips down.
	resolver = NewResolver(StaticProvider{"REPO": decimal.NewFromFloat(0.20)})
	rate, err = resolver.Effective(context.Background(),
		floatingTerms(0.12, 0.01, 0.08, 0.15, reset), asOf)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.15)), "cap should apply, got %s", rate)
}

func TestEffective_MissingBenchmark(t *testing.T) {
	reset := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	resolver := NewResolver(StaticProvider{})

	_, err := resolver.Effective(context.Background(),
		floatingTerms(0.12, 0.04, 0, 0, reset), reset)
	require.Error(t, err)

	var compErr *customError.ComputationError
	assert.True(t, errors.As(err, &compErr), "missing benchmark should be a ComputationError")
	assert.Equal(t, "LN-1", compErr.LoanID)
	assert.True(t, errors.Is(err, customError.ErrMissingBenchmarkRate))
}
