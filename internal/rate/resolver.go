package rate

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crednine/loan-engine/internal/domain"
	customError "github.com/crednine/loan-engine/pkg/errors"
)

// BenchmarkProvider looks up a benchmark rate (e.g. a repo or treasury
// reference rate) as of a date. Injected as a fallible synchronous
// dependency; implementations may hit a rate-history store.
type BenchmarkProvider interface {
	Rate(ctx context.Context, benchmark string, asOf time.Time) (decimal.Decimal, error)
}

// StaticProvider serves benchmark rates from a fixed map. Used in tests
// and as a bootstrap provider.
type StaticProvider map[string]decimal.Decimal

func (p StaticProvider) Rate(_ context.Context, benchmark string, _ time.Time) (decimal.Decimal, error) {
	rate, ok := p[benchmark]
	if !ok {
		return decimal.Zero, customError.ErrMissingBenchmarkRate
	}
	return rate, nil
}

// Resolver resolves the effective annual interest rate for a loan's terms
// on a given date.
type Resolver struct {
	benchmarks BenchmarkProvider
}

func NewResolver(benchmarks BenchmarkProvider) *Resolver {
	return &Resolver{benchmarks: benchmarks}
}

// Effective returns the annual rate in force on asOf.
//
// Fixed loans always return the contract rate. Floating loans return the
// contract rate until the reset date; on or after it the rate is
// benchmark + spread, clipped to [floor, cap]. A floor or cap of zero
// means unset. A missing benchmark is a ComputationError, never a silent
// default.
func (r *Resolver) Effective(ctx context.Context, terms *domain.LoanTerms, asOf time.Time) (decimal.Decimal, error) {
	if terms.RateType != domain.RateTypeFloating {
		return terms.AnnualRate, nil
	}

	if terms.ResetDate.IsZero() || asOf.Before(terms.ResetDate) {
		return terms.AnnualRate, nil
	}

	benchmark, err := r.benchmarks.Rate(ctx, terms.Benchmark, asOf)
	if err != nil {
		return decimal.Zero, customError.NewComputationError(
			terms.LoanID, asOf, "no rate for benchmark "+terms.Benchmark, err)
	}

	effective := benchmark.Add(terms.Spread)

	if terms.RateFloor.GreaterThan(decimal.Zero) && effective.LessThan(terms.RateFloor) {
		effective = terms.RateFloor
	}
	if terms.RateCap.GreaterThan(decimal.Zero) && effective.GreaterThan(terms.RateCap) {
		effective = terms.RateCap
	}

	return effective, nil
}
