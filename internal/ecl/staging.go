package ecl

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crednine/loan-engine/internal/domain"
	customError "github.com/crednine/loan-engine/pkg/errors"
	"github.com/crednine/loan-engine/pkg/money"
)

// Classify proposes a credit-risk stage for a loan snapshot, most severe
// rule first. Pure: the sticky-downward guard lives in ApplyStaging, not
// here, so the classifier stays testable in isolation.
func Classify(snap *domain.RiskSnapshot, cfg *domain.ECLConfig) (int, string) {
	switch {
	case snap.WrittenOff && cfg.StageOnWriteOff:
		return domain.Stage3, "written_off"
	case snap.NPA && cfg.StageOnNPA:
		return domain.Stage3, "npa"
	case snap.DPD > cfg.Stage2MaxDPD:
		return domain.Stage3, fmt.Sprintf("dpd %d exceeds stage 2 limit %d", snap.DPD, cfg.Stage2MaxDPD)
	case snap.FraudFlagged:
		return domain.Stage3, "fraud_flagged"
	case snap.Restructured && cfg.StageOnRestructure:
		return domain.Stage2, "restructured"
	case snap.DPD > cfg.Stage1MaxDPD:
		return domain.Stage2, fmt.Sprintf("dpd %d exceeds stage 1 limit %d", snap.DPD, cfg.Stage1MaxDPD)
	case snap.SICRFlagged:
		return domain.Stage2, "sicr_flagged"
	default:
		return domain.Stage1, "performing"
	}
}

// ApplyStaging evaluates the classifier against the current stage record
// and applies the never-auto-upgrade guard at this write boundary: a
// proposed improvement is ignored, improvements only happen through Cure.
//
// Returns the stage record to keep (the existing one when nothing
// changes) and a movement when a transition occurred. Re-evaluating an
// unchanged loan returns the existing record, not an error.
func ApplyStaging(current *domain.ECLStage, snap *domain.RiskSnapshot, cfg *domain.ECLConfig) (*domain.ECLStage, *domain.ECLMovement) {
	proposed, reason := Classify(snap, cfg)

	if current == nil {
		return newStageRecord(snap, cfg, proposed, reason), nil
	}

	if proposed <= current.CurrentStage {
		// Same stage, or an improvement the guard suppresses.
		return current, nil
	}

	next := newStageRecord(snap, cfg, proposed, reason)
	movement := &domain.ECLMovement{
		ID:        uuid.New(),
		LoanID:    snap.LoanID,
		FromStage: current.CurrentStage,
		ToStage:   proposed,
		Direction: domain.MovementDowngrade,
		Reason:    reason,
		MovedAt:   snap.AsOf,
	}
	return next, movement
}

// Cure is the deliberate external upgrade action. It re-runs the
// classifier without the downward guard, but only for a loan whose
// delinquency has fully cleared; anything else is rejected.
func Cure(current *domain.ECLStage, snap *domain.RiskSnapshot, cfg *domain.ECLConfig) (*domain.ECLStage, *domain.ECLMovement, error) {
	if current == nil {
		return nil, nil, customError.WrapLoanNotFound(snap.LoanID)
	}
	if snap.DPD != 0 || snap.WrittenOff || snap.NPA {
		return nil, nil, customError.NewBusinessError("LOAN_NOT_CURABLE",
			fmt.Sprintf("loan %s cannot cure: dpd=%d written_off=%t npa=%t",
				snap.LoanID, snap.DPD, snap.WrittenOff, snap.NPA),
			customError.ErrLoanNotCurable)
	}

	proposed, reason := Classify(snap, cfg)
	if proposed >= current.CurrentStage {
		// Nothing to improve; idempotent.
		return current, nil, nil
	}

	next := newStageRecord(snap, cfg, proposed, "cured: "+reason)
	movement := &domain.ECLMovement{
		ID:        uuid.New(),
		LoanID:    snap.LoanID,
		FromStage: current.CurrentStage,
		ToStage:   proposed,
		Direction: domain.MovementUpgrade,
		Reason:    "cured",
		MovedAt:   snap.AsOf,
	}
	return next, movement, nil
}

func newStageRecord(snap *domain.RiskSnapshot, cfg *domain.ECLConfig, stage int, reason string) *domain.ECLStage {
	return &domain.ECLStage{
		ID:            uuid.New(),
		LoanID:        snap.LoanID,
		CurrentStage:  stage,
		StageReason:   reason,
		EffectiveDate: snap.AsOf,
		PD:            money.RoundRate(stagePD(stage, snap, cfg)),
		LGD:           money.RoundRate(cfg.LGD),
		EAD:           money.RoundAmount(EAD(snap, cfg)),
		UpdatedAt:     time.Now(),
	}
}
