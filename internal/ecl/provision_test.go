package ecl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crednine/loan-engine/internal/domain"
)

func TestEAD(t *testing.T) {
	cfg := testConfig()
	snap := snapshot(0)
	snap.InterestOutstanding = decimal.NewFromInt(1500)
	snap.FeesOutstanding = decimal.NewFromInt(500)

	assert.True(t, EAD(snap, cfg).Equal(decimal.NewFromInt(102000)))

	snap.UndrawnExposure = decimal.NewFromInt(20000)
	// + 20000 * 0.5 CCF
	assert.True(t, EAD(snap, cfg).Equal(decimal.NewFromInt(112000)))
}

func TestComputeProvision_Stage1Exact(t *testing.T) {
	// EAD=100000, PD=0.5%, LGD=65% -> 325.00 exactly.
	p := ComputeProvision(snapshot(0), testConfig(), domain.Stage1, decimal.Zero,
		time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))

	assert.True(t, p.ECL12Month.Equal(decimal.NewFromFloat(325.00)),
		"expected 325.00, got %s", p.ECL12Month)
	assert.True(t, p.ECLApplied.Equal(p.ECL12Month), "stage 1 applies the 12-month ECL")
	assert.True(t, p.ClosingProvision.Equal(p.ECLApplied))
	assert.True(t, p.Charge.Equal(decimal.NewFromFloat(325.00)))
	assert.True(t, p.Release.IsZero())
}

func TestComputeProvision_Stage2ScalesLifetime(t *testing.T) {
	// Remaining life 3y: lifetime PD = 0.005*3 = 1.5%.
	p := ComputeProvision(snapshot(45), testConfig(), domain.Stage2, decimal.Zero,
		time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))

	assert.True(t, p.ECLLifetime.Equal(decimal.NewFromFloat(975.00)),
		"expected 975.00, got %s", p.ECLLifetime)
	assert.True(t, p.ECLApplied.Equal(p.ECLLifetime), "stage 2 applies lifetime ECL")
	assert.True(t, p.PD.Equal(decimal.NewFromFloat(0.015)))
}

func TestComputeProvision_Stage3FullPD(t *testing.T) {
	p := ComputeProvision(snapshot(120), testConfig(), domain.Stage3, decimal.Zero,
		time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))

	// 100000 * 1.0 * 0.65
	assert.True(t, p.ECLApplied.Equal(decimal.NewFromInt(65000)))
	assert.True(t, p.PD.Equal(decimal.NewFromInt(1)))
}

func TestComputeProvision_LifetimePDCappedAtOne(t *testing.T) {
	cfg := testConfig()
	cfg.PD12Month = decimal.NewFromFloat(0.4)
	snap := snapshot(45)
	snap.RemainingLifeYears = decimal.NewFromInt(5) // 0.4*5 = 2.0 -> capped

	p := ComputeProvision(snap, cfg, domain.Stage2, decimal.Zero,
		time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))
	assert.True(t, p.PD.Equal(decimal.NewFromInt(1)))
}

func TestComputeProvision_RollForward(t *testing.T) {
	cfg := testConfig()
	juneDate := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	julyDate := time.Date(2024, time.July, 31, 0, 0, 0, 0, time.UTC)

	june := ComputeProvision(snapshot(0), cfg, domain.Stage1, decimal.Zero, juneDate)

	// Loan degrades to stage 2 in July; opening = June closing.
	july := ComputeProvision(snapshot(45), cfg, domain.Stage2, june.ClosingProvision, julyDate)

	assert.True(t, july.OpeningProvision.Equal(june.ClosingProvision),
		"opening(D+1) must equal closing(D)")
	assert.True(t, july.Charge.Equal(july.ECLApplied.Sub(june.ClosingProvision)))
	assert.True(t, july.Release.IsZero())

	// Exposure shrinks in August; the provision releases.
	smaller := snapshot(45)
	smaller.PrincipalOutstanding = decimal.NewFromInt(20000)
	august := ComputeProvision(smaller, cfg, domain.Stage2, july.ClosingProvision,
		time.Date(2024, time.August, 31, 0, 0, 0, 0, time.UTC))

	assert.True(t, august.Release.GreaterThan(decimal.Zero))
	assert.True(t, august.Charge.IsZero())
	assert.True(t, august.ClosingProvision.Equal(august.ECLApplied))
}

func TestSummarize(t *testing.T) {
	date := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()

	provisions := []*domain.Provision{
		ComputeProvision(snapshot(0), cfg, domain.Stage1, decimal.Zero, date),
		ComputeProvision(snapshot(10), cfg, domain.Stage1, decimal.Zero, date),
		ComputeProvision(snapshot(45), cfg, domain.Stage2, decimal.Zero, date),
		ComputeProvision(snapshot(120), cfg, domain.Stage3, decimal.Zero, date),
	}

	summary := Summarize(date, provisions)
	require.Len(t, summary.Stages, 3)

	assert.Equal(t, 2, summary.Stages[0].LoanCount)
	assert.Equal(t, 1, summary.Stages[1].LoanCount)
	assert.Equal(t, 1, summary.Stages[2].LoanCount)

	expected := decimal.NewFromFloat(325 + 325 + 975 + 65000)
	assert.True(t, summary.TotalECL.Equal(expected), "expected %s, got %s", expected, summary.TotalECL)

	// Aggregation never mutates the inputs.
	assert.True(t, provisions[0].ECLApplied.Equal(decimal.NewFromFloat(325.00)))
}
