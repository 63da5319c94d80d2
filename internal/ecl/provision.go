package ecl

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crednine/loan-engine/internal/domain"
	"github.com/crednine/loan-engine/pkg/money"
)

var one = decimal.NewFromInt(1)

// EAD is the exposure at default: everything outstanding plus any undrawn
// exposure weighted by the credit conversion factor.
func EAD(snap *domain.RiskSnapshot, cfg *domain.ECLConfig) decimal.Decimal {
	exposure := snap.PrincipalOutstanding.
		Add(snap.InterestOutstanding).
		Add(snap.FeesOutstanding)
	if snap.UndrawnExposure.GreaterThan(decimal.Zero) {
		exposure = exposure.Add(snap.UndrawnExposure.Mul(cfg.CCF))
	}
	return exposure
}

// stagePD returns the PD applied for the stage: the 12-month PD for Stage
// 1, the lifetime PD (12-month PD scaled by expected remaining life,
// capped at 1) for Stage 2, and 100% for Stage 3.
func stagePD(stage int, snap *domain.RiskSnapshot, cfg *domain.ECLConfig) decimal.Decimal {
	switch stage {
	case domain.Stage3:
		return one
	case domain.Stage2:
		return lifetimePD(snap, cfg)
	default:
		return cfg.PD12Month
	}
}

func lifetimePD(snap *domain.RiskSnapshot, cfg *domain.ECLConfig) decimal.Decimal {
	life := snap.RemainingLifeYears
	if life.LessThanOrEqual(one) {
		life = one
	}
	pd := cfg.PD12Month.Mul(life)
	if pd.GreaterThan(one) {
		return one
	}
	return pd
}

// ComputeProvision builds the provision for one loan and date. The
// applied ECL is the 12-month ECL for Stage 1, lifetime otherwise.
// Roll-forward: charge = max(0, closing - opening), release the mirror;
// the closing provision becomes the next period's opening.
func ComputeProvision(snap *domain.RiskSnapshot, cfg *domain.ECLConfig, stage int, opening decimal.Decimal, provisionDate time.Time) *domain.Provision {
	ead := EAD(snap, cfg)
	ecl12 := money.RoundAmount(ead.Mul(cfg.PD12Month).Mul(cfg.LGD))

	lifePD := stagePD(domain.Stage2, snap, cfg)
	if stage == domain.Stage3 {
		lifePD = one
	}
	eclLifetime := money.RoundAmount(ead.Mul(lifePD).Mul(cfg.LGD))

	applied := eclLifetime
	if stage == domain.Stage1 {
		applied = ecl12
	}

	charge := decimal.Zero
	release := decimal.Zero
	if applied.GreaterThan(opening) {
		charge = applied.Sub(opening)
	} else {
		release = opening.Sub(applied)
	}

	return &domain.Provision{
		ID:               uuid.New(),
		LoanID:           snap.LoanID,
		ProvisionDate:    provisionDate,
		ECLStage:         stage,
		EAD:              money.RoundAmount(ead),
		PD:               money.RoundRate(stagePD(stage, snap, cfg)),
		LGD:              money.RoundRate(cfg.LGD),
		ECL12Month:       ecl12,
		ECLLifetime:      eclLifetime,
		ECLApplied:       applied,
		OpeningProvision: opening,
		ClosingProvision: applied,
		Charge:           charge,
		Release:          release,
		CreatedAt:        time.Now(),
	}
}

// Summarize reduces a date's per-loan provisions into per-stage totals.
// A pure fold: input records are never touched.
func Summarize(provisionDate time.Time, provisions []*domain.Provision) *domain.PortfolioSummary {
	byStage := map[int]*domain.StageSummary{}
	for _, stage := range []int{domain.Stage1, domain.Stage2, domain.Stage3} {
		byStage[stage] = &domain.StageSummary{
			Stage:      stage,
			TotalEAD:   decimal.Zero,
			TotalECL:   decimal.Zero,
			NetCharge:  decimal.Zero,
			NetRelease: decimal.Zero,
		}
	}

	total := decimal.Zero
	for _, p := range provisions {
		summary, ok := byStage[p.ECLStage]
		if !ok {
			continue
		}
		summary.LoanCount++
		summary.TotalEAD = summary.TotalEAD.Add(p.EAD)
		summary.TotalECL = summary.TotalECL.Add(p.ECLApplied)
		summary.NetCharge = summary.NetCharge.Add(p.Charge)
		summary.NetRelease = summary.NetRelease.Add(p.Release)
		total = total.Add(p.ECLApplied)
	}

	return &domain.PortfolioSummary{
		ProvisionDate: provisionDate,
		Stages: []domain.StageSummary{
			*byStage[domain.Stage1],
			*byStage[domain.Stage2],
			*byStage[domain.Stage3],
		},
		TotalECL: total,
	}
}
