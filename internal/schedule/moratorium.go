package schedule

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/crednine/loan-engine/internal/domain"
	customError "github.com/crednine/loan-engine/pkg/errors"
	"github.com/crednine/loan-engine/pkg/money"
)

// ApplyMoratorium rewrites the first k installments of an existing
// schedule in place per the moratorium mode, then reconciles the rest of
// the plan.
//
// Deferred principal moves to the final installment. Deferred interest
// follows interestTreatment: "capitalize" folds it into the opening
// balance of the first post-moratorium installment (and into principal to
// be repaid), "waive" drops it, "accrue" tracks it on the schedule's
// DeferredInterest without touching principal.
func ApplyMoratorium(sched *domain.Schedule, k int, mode, interestTreatment string) error {
	if k <= 0 || k >= len(sched.Installments) {
		return customError.NewValidationError("moratorium_periods",
			fmt.Sprintf("loan %s: moratorium of %d periods does not fit a %d installment schedule",
				sched.LoanID, k, len(sched.Installments)),
			customError.ErrInvalidTenure)
	}

	deferPrincipal := mode == domain.MoratoriumFull || mode == domain.MoratoriumPrincipalOnly
	deferInterest := mode == domain.MoratoriumFull || mode == domain.MoratoriumInterestOnly

	deferredPrincipal := decimal.Zero
	deferredInterest := decimal.Zero

	for _, inst := range sched.Installments[:k] {
		if deferPrincipal {
			deferredPrincipal = deferredPrincipal.Add(inst.PrincipalDue)
			inst.PrincipalDue = decimal.Zero
		}
		if deferInterest {
			deferredInterest = deferredInterest.Add(inst.InterestDue)
			inst.InterestDue = decimal.Zero
		}
		inst.TotalDue = inst.PrincipalDue.Add(inst.InterestDue).Add(inst.FeesDue)
	}

	last := sched.Installments[len(sched.Installments)-1]
	if deferredPrincipal.GreaterThan(decimal.Zero) {
		last.PrincipalDue = money.RoundAmount(last.PrincipalDue.Add(deferredPrincipal))
		last.TotalDue = last.PrincipalDue.Add(last.InterestDue).Add(last.FeesDue)
	}

	capitalized := decimal.Zero
	if deferredInterest.GreaterThan(decimal.Zero) {
		switch interestTreatment {
		case domain.InterestCapitalize:
			capitalized = money.RoundAmount(deferredInterest)
			last.PrincipalDue = money.RoundAmount(last.PrincipalDue.Add(capitalized))
			last.TotalDue = last.PrincipalDue.Add(last.InterestDue).Add(last.FeesDue)
		case domain.InterestAccrue:
			sched.DeferredInterest = money.RoundAmount(deferredInterest)
		case domain.InterestWaive:
			// dropped
		default:
			return customError.NewValidationError("interest_treatment",
				fmt.Sprintf("loan %s: unsupported interest treatment %q", sched.LoanID, interestTreatment),
				customError.ErrUnknownScheduleType)
		}
	}

	rebalance(sched.Installments, k, capitalized)
	return nil
}

// rebalance recomputes opening/closing balances after dues were moved.
// Capitalized interest enters the balance at the first post-moratorium
// installment.
func rebalance(installments []*domain.Installment, k int, capitalized decimal.Decimal) {
	balance := installments[0].OpeningBalance
	for i, inst := range installments {
		if i == k {
			balance = balance.Add(capitalized)
		}
		inst.OpeningBalance = balance
		inst.ClosingBalance = balance.Sub(inst.PrincipalDue)
		balance = inst.ClosingBalance
	}
}
