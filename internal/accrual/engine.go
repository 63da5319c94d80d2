package accrual

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crednine/loan-engine/internal/daycount"
	"github.com/crednine/loan-engine/internal/domain"
	"github.com/crednine/loan-engine/internal/rate"
	"github.com/crednine/loan-engine/pkg/money"
)

// Engine computes daily interest accruals. Pure apart from the rate
// lookup: idempotency and persistence are the caller's concern, the
// engine only derives the record for one (loan, date).
type Engine struct {
	rates *rate.Resolver
}

func NewEngine(rates *rate.Resolver) *Engine {
	return &Engine{rates: rates}
}

// Daily derives the accrual record for one calendar date.
//
// The daily amount is outstanding x effective rate / days-in-year under
// the terms' convention. A zero balance produces a zero-amount record, not
// a gap. CumulativeAccrued continues from prior unless prior was posted by
// an interest payment, in which case the running total restarts.
func (e *Engine) Daily(ctx context.Context, terms *domain.LoanTerms, outstanding decimal.Decimal, prior *domain.AccrualRecord, date time.Time) (*domain.AccrualRecord, error) {
	effectiveRate, err := e.rates.Effective(ctx, terms, date)
	if err != nil {
		return nil, err
	}

	yearDays, err := daycount.DaysInYear(terms.Convention, date.Year())
	if err != nil {
		return nil, err
	}

	accrued := decimal.Zero
	if outstanding.GreaterThan(decimal.Zero) {
		accrued = money.RoundAmount(outstanding.Mul(effectiveRate).Div(yearDays))
	}

	cumulative := accrued
	if prior != nil && prior.Status == domain.AccrualStatusAccrued {
		cumulative = prior.CumulativeAccrued.Add(accrued)
	}

	return &domain.AccrualRecord{
		ID:                uuid.New(),
		LoanID:            terms.LoanID,
		AccrualDate:       date,
		OpeningBalance:    outstanding,
		EffectiveRate:     money.RoundRate(effectiveRate),
		AccruedAmount:     accrued,
		CumulativeAccrued: cumulative,
		Convention:        terms.Convention,
		Status:            domain.AccrualStatusAccrued,
		CreatedAt:         time.Now(),
	}, nil
}
