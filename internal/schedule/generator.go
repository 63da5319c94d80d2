package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crednine/loan-engine/internal/daycount"
	"github.com/crednine/loan-engine/internal/domain"
	"github.com/crednine/loan-engine/internal/rate"
	customError "github.com/crednine/loan-engine/pkg/errors"
	"github.com/crednine/loan-engine/pkg/money"
)

// Generator turns commercial terms into a repayment schedule. Pure apart
// from the rate lookup: no state survives between calls.
type Generator struct {
	rates *rate.Resolver

	// Due dates roll onto business days under AdjustMode against
	// Calendar. Zero values mean no adjustment.
	AdjustMode daycount.AdjustMode
	Calendar   *daycount.HolidayCalendar
}

func NewGenerator(rates *rate.Resolver) *Generator {
	return &Generator{rates: rates, AdjustMode: daycount.AdjustNone}
}

// Generate produces the full installment plan for the given terms.
//
// Interest for every period is opening balance x annual rate x year
// fraction of the period under the terms' convention. Monetary amounts are
// rounded half-up to the cent as the final step per installment; the last
// installment's principal absorbs the rounding residual so the closing
// balance lands on exactly zero.
func (g *Generator) Generate(ctx context.Context, terms *domain.LoanTerms) (*domain.Schedule, error) {
	if err := validate(terms); err != nil {
		return nil, err
	}

	annualRate, err := g.rates.Effective(ctx, terms, terms.StartDate)
	if err != nil {
		return nil, err
	}

	periods, err := g.periodDates(terms)
	if err != nil {
		return nil, err
	}

	var installments []*domain.Installment
	switch {
	case terms.HasStep():
		installments, err = g.buildStep(terms, annualRate, periods)
	case terms.HasBalloon():
		installments, err = g.buildBalloon(terms, annualRate, periods)
	case terms.ScheduleType == domain.ScheduleTypeEMI:
		installments, err = g.buildEMI(terms, annualRate, periods)
	case terms.ScheduleType == domain.ScheduleTypeInterestOnly:
		installments, err = g.buildNonAmortizing(terms, annualRate, periods, true)
	case terms.ScheduleType == domain.ScheduleTypeBullet:
		installments, err = g.buildNonAmortizing(terms, annualRate, periods, false)
	}
	if err != nil {
		return nil, err
	}

	sched := &domain.Schedule{
		LoanID:       terms.LoanID,
		TermsID:      terms.ID,
		Installments: installments,
	}

	if terms.HasMoratorium() {
		if err := ApplyMoratorium(sched, terms.MoratoriumPeriods, terms.MoratoriumMode, terms.InterestTreatment); err != nil {
			return nil, err
		}
	}

	return sched, nil
}

func validate(terms *domain.LoanTerms) error {
	if !terms.Principal.GreaterThan(decimal.Zero) {
		return customError.NewValidationError("principal",
			fmt.Sprintf("loan %s: principal %s must be positive", terms.LoanID, terms.Principal),
			customError.ErrInvalidPrincipal)
	}
	if terms.TenurePeriods <= 0 {
		return customError.NewValidationError("tenure_periods",
			fmt.Sprintf("loan %s: tenure %d must be positive", terms.LoanID, terms.TenurePeriods),
			customError.ErrInvalidTenure)
	}
	if terms.AnnualRate.IsNegative() {
		return customError.NewValidationError("annual_rate",
			fmt.Sprintf("loan %s: rate %s must not be negative", terms.LoanID, terms.AnnualRate),
			customError.ErrInvalidPrincipal)
	}
	if _, ok := domain.PeriodsPerYear[terms.Frequency]; !ok {
		return customError.NewValidationError("frequency",
			fmt.Sprintf("loan %s: unsupported frequency %q", terms.LoanID, terms.Frequency),
			customError.ErrUnknownFrequency)
	}
	if _, err := daycount.Parse(string(terms.Convention)); err != nil {
		return err
	}
	switch terms.ScheduleType {
	case domain.ScheduleTypeEMI, domain.ScheduleTypeInterestOnly, domain.ScheduleTypeBullet:
	default:
		return customError.NewValidationError("schedule_type",
			fmt.Sprintf("loan %s: unsupported schedule type %q", terms.LoanID, terms.ScheduleType),
			customError.ErrUnknownScheduleType)
	}
	if terms.HasStep() {
		if terms.ScheduleType != domain.ScheduleTypeEMI {
			return customError.NewValidationError("step_percent",
				fmt.Sprintf("loan %s: step schedules require the emi type", terms.LoanID),
				customError.ErrUnknownScheduleType)
		}
		if terms.StepDirection != domain.StepUp && terms.StepDirection != domain.StepDown {
			return customError.NewValidationError("step_direction",
				fmt.Sprintf("loan %s: unsupported step direction %q", terms.LoanID, terms.StepDirection),
				customError.ErrUnknownScheduleType)
		}
	}
	if terms.HasBalloon() && terms.BalloonAmount.GreaterThanOrEqual(terms.Principal) {
		return customError.NewValidationError("balloon_amount",
			fmt.Sprintf("loan %s: balloon %s must be below principal %s",
				terms.LoanID, terms.BalloonAmount, terms.Principal),
			customError.ErrInvalidPrincipal)
	}
	if terms.HasMoratorium() {
		if terms.MoratoriumPeriods >= terms.TenurePeriods {
			return customError.NewValidationError("moratorium_periods",
				fmt.Sprintf("loan %s: moratorium %d must be shorter than tenure %d",
					terms.LoanID, terms.MoratoriumPeriods, terms.TenurePeriods),
				customError.ErrInvalidTenure)
		}
		switch terms.MoratoriumMode {
		case domain.MoratoriumFull, domain.MoratoriumPrincipalOnly, domain.MoratoriumInterestOnly:
		default:
			return customError.NewValidationError("moratorium_mode",
				fmt.Sprintf("loan %s: unsupported moratorium mode %q", terms.LoanID, terms.MoratoriumMode),
				customError.ErrUnknownScheduleType)
		}
		switch terms.InterestTreatment {
		case domain.InterestCapitalize, domain.InterestAccrue, domain.InterestWaive:
		default:
			return customError.NewValidationError("interest_treatment",
				fmt.Sprintf("loan %s: unsupported interest treatment %q", terms.LoanID, terms.InterestTreatment),
				customError.ErrUnknownScheduleType)
		}
	}
	return nil
}

// period holds the raw interest period and the (possibly adjusted) due
// date for one installment.
type period struct {
	start, end, due time.Time
}

func (g *Generator) periodDates(terms *domain.LoanTerms) ([]period, error) {
	periods := make([]period, 0, terms.TenurePeriods)
	prev := terms.StartDate
	for i := 1; i <= terms.TenurePeriods; i++ {
		end := addPeriods(terms.StartDate, terms.Frequency, i)
		due, err := daycount.Adjust(end, g.AdjustMode, g.Calendar)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period{start: prev, end: end, due: due})
		prev = end
	}
	return periods, nil
}

func addPeriods(start time.Time, frequency string, n int) time.Time {
	switch frequency {
	case domain.FrequencyWeekly:
		return start.AddDate(0, 0, 7*n)
	case domain.FrequencyMonthly:
		return start.AddDate(0, n, 0)
	case domain.FrequencyQuarterly:
		return start.AddDate(0, 3*n, 0)
	case domain.FrequencySemiAnnual:
		return start.AddDate(0, 6*n, 0)
	default: // annual, guarded by validate
		return start.AddDate(n, 0, 0)
	}
}

// periodInterest computes opening x rate x year fraction, unrounded.
func periodInterest(balance, annualRate decimal.Decimal, p period, conv daycount.Convention) (decimal.Decimal, error) {
	frac, err := daycount.YearFraction(p.start, p.end, conv)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Mul(annualRate).Mul(frac), nil
}

// annuityPayment is the closed-form EMI: P*r*(1+r)^n / ((1+r)^n - 1).
// A zero rate degenerates to equal principal installments.
func annuityPayment(principal, annualRate decimal.Decimal, periodsPerYear, n int) decimal.Decimal {
	if annualRate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n)))
	}
	r := annualRate.Div(decimal.NewFromInt(int64(periodsPerYear)))
	compound := decimal.NewFromInt(1).Add(r).Pow(decimal.NewFromInt(int64(n)))
	return principal.Mul(r).Mul(compound).Div(compound.Sub(decimal.NewFromInt(1)))
}

func (g *Generator) buildEMI(terms *domain.LoanTerms, annualRate decimal.Decimal, periods []period) ([]*domain.Installment, error) {
	payment := annuityPayment(terms.Principal, annualRate, domain.PeriodsPerYear[terms.Frequency], terms.TenurePeriods)
	return g.amortize(terms, annualRate, periods, func(i int) decimal.Decimal { return payment })
}

// amortize walks the periods applying paymentAt(i) per installment:
// interest first, remainder to principal, final installment balanced to
// clear the balance exactly.
func (g *Generator) amortize(terms *domain.LoanTerms, annualRate decimal.Decimal, periods []period, paymentAt func(int) decimal.Decimal) ([]*domain.Installment, error) {
	installments := make([]*domain.Installment, 0, len(periods))
	balance := money.RoundAmount(terms.Principal)
	now := time.Now()

	for i, p := range periods {
		interest, err := periodInterest(balance, annualRate, p, terms.Convention)
		if err != nil {
			return nil, err
		}
		interestDue := money.RoundAmount(interest)

		var principalDue decimal.Decimal
		if i == len(periods)-1 {
			principalDue = balance
		} else {
			principalDue = money.RoundAmount(paymentAt(i).Sub(interest))
			if principalDue.IsNegative() {
				principalDue = decimal.Zero
			}
			if principalDue.GreaterThan(balance) {
				principalDue = balance
			}
		}

		closing := balance.Sub(principalDue)
		installments = append(installments, &domain.Installment{
			ID:                uuid.New(),
			LoanID:            terms.LoanID,
			InstallmentNumber: i + 1,
			DueDate:           p.due,
			PeriodStart:       p.start,
			PeriodEnd:         p.end,
			PrincipalDue:      principalDue,
			InterestDue:       interestDue,
			FeesDue:           decimal.Zero,
			TotalDue:          principalDue.Add(interestDue),
			OpeningBalance:    balance,
			ClosingBalance:    closing,
			Status:            domain.InstallmentStatusPending,
			CreatedAt:         now,
		})
		balance = closing
	}

	return installments, nil
}

// buildNonAmortizing covers interest-only and bullet plans: principal is
// due in full on the last installment only. Interest-only collects each
// period's interest as it arises; bullet rolls all interest into the final
// installment.
func (g *Generator) buildNonAmortizing(terms *domain.LoanTerms, annualRate decimal.Decimal, periods []period, payInterest bool) ([]*domain.Installment, error) {
	installments := make([]*domain.Installment, 0, len(periods))
	balance := money.RoundAmount(terms.Principal)
	carried := decimal.Zero
	now := time.Now()

	for i, p := range periods {
		interest, err := periodInterest(balance, annualRate, p, terms.Convention)
		if err != nil {
			return nil, err
		}

		last := i == len(periods)-1
		interestDue := decimal.Zero
		principalDue := decimal.Zero

		switch {
		case last:
			principalDue = balance
			interestDue = money.RoundAmount(carried.Add(interest))
		case payInterest:
			interestDue = money.RoundAmount(interest)
		default:
			carried = carried.Add(interest)
		}

		closing := balance.Sub(principalDue)
		installments = append(installments, &domain.Installment{
			ID:                uuid.New(),
			LoanID:            terms.LoanID,
			InstallmentNumber: i + 1,
			DueDate:           p.due,
			PeriodStart:       p.start,
			PeriodEnd:         p.end,
			PrincipalDue:      principalDue,
			InterestDue:       interestDue,
			FeesDue:           decimal.Zero,
			TotalDue:          principalDue.Add(interestDue),
			OpeningBalance:    balance,
			ClosingBalance:    closing,
			Status:            domain.InstallmentStatusPending,
			CreatedAt:         now,
		})
		balance = closing
	}

	return installments, nil
}

// buildBalloon amortizes principal minus the balloon with a regular EMI;
// the balloon itself stays outstanding until the final installment.
// Interest is charged on the full outstanding balance each period, so the
// balloon portion is serviced as it accrues.
func (g *Generator) buildBalloon(terms *domain.LoanTerms, annualRate decimal.Decimal, periods []period) ([]*domain.Installment, error) {
	balloon := money.RoundAmount(terms.BalloonAmount)
	amortizing := money.RoundAmount(terms.Principal).Sub(balloon)
	payment := annuityPayment(amortizing, annualRate, domain.PeriodsPerYear[terms.Frequency], terms.TenurePeriods)

	installments := make([]*domain.Installment, 0, len(periods))
	reduced := amortizing
	now := time.Now()

	for i, p := range periods {
		full := reduced.Add(balloon)
		interest, err := periodInterest(full, annualRate, p, terms.Convention)
		if err != nil {
			return nil, err
		}
		interestDue := money.RoundAmount(interest)

		var principalDue decimal.Decimal
		if i == len(periods)-1 {
			principalDue = reduced.Add(balloon)
		} else {
			reducedInterest, err := periodInterest(reduced, annualRate, p, terms.Convention)
			if err != nil {
				return nil, err
			}
			principalDue = money.RoundAmount(payment.Sub(reducedInterest))
			if principalDue.IsNegative() {
				principalDue = decimal.Zero
			}
			if principalDue.GreaterThan(reduced) {
				principalDue = reduced
			}
		}

		closing := full.Sub(principalDue)
		installments = append(installments, &domain.Installment{
			ID:                uuid.New(),
			LoanID:            terms.LoanID,
			InstallmentNumber: i + 1,
			DueDate:           p.due,
			PeriodStart:       p.start,
			PeriodEnd:         p.end,
			PrincipalDue:      principalDue,
			InterestDue:       interestDue,
			FeesDue:           decimal.Zero,
			TotalDue:          principalDue.Add(interestDue),
			OpeningBalance:    full,
			ClosingBalance:    closing,
			Status:            domain.InstallmentStatusPending,
			CreatedAt:         now,
		})
		if i < len(periods)-1 {
			reduced = reduced.Sub(principalDue)
		}
	}

	return installments, nil
}

// buildStep solves for the base payment that amortizes the loan exactly
// given payments stepping by a fixed percentage every N periods, then
// amortizes with the stepped payments. Bisection on the residual balance:
// the residual is monotone decreasing in the base payment, so the solve
// always converges.
func (g *Generator) buildStep(terms *domain.LoanTerms, annualRate decimal.Decimal, periods []period) ([]*domain.Installment, error) {
	multipliers := stepMultipliers(terms, len(periods))

	fractions := make([]decimal.Decimal, len(periods))
	for i, p := range periods {
		frac, err := daycount.YearFraction(p.start, p.end, terms.Convention)
		if err != nil {
			return nil, err
		}
		fractions[i] = frac
	}

	residual := func(base decimal.Decimal) decimal.Decimal {
		balance := terms.Principal
		for i := range periods {
			interest := balance.Mul(annualRate).Mul(fractions[i])
			principal := base.Mul(multipliers[i]).Sub(interest)
			balance = balance.Sub(principal)
		}
		return balance
	}

	lo := decimal.Zero
	hi := terms.Principal.Mul(decimal.NewFromInt(1).Add(annualRate))
	for grow := 0; residual(hi).GreaterThan(decimal.Zero); grow++ {
		if grow >= 64 {
			return nil, customError.NewComputationError(terms.LoanID, terms.StartDate,
				"step schedule base payment bracket too small", customError.ErrSolverDidNotConverge)
		}
		hi = hi.Mul(decimal.NewFromInt(2))
	}

	tolerance := decimal.New(1, -6)
	base := decimal.Zero
	converged := false
	for iter := 0; iter < 200; iter++ {
		base = lo.Add(hi).Div(decimal.NewFromInt(2))
		r := residual(base)
		if r.Abs().LessThan(tolerance) {
			converged = true
			break
		}
		if r.GreaterThan(decimal.Zero) {
			lo = base
		} else {
			hi = base
		}
	}
	if !converged {
		return nil, customError.NewComputationError(terms.LoanID, terms.StartDate,
			"step schedule base payment did not converge", customError.ErrSolverDidNotConverge)
	}

	return g.amortize(terms, annualRate, periods, func(i int) decimal.Decimal {
		return base.Mul(multipliers[i])
	})
}

// stepMultipliers returns the per-period payment multiplier: (1 +/- pct)
// compounded once per completed step block.
func stepMultipliers(terms *domain.LoanTerms, n int) []decimal.Decimal {
	one := decimal.NewFromInt(1)
	factor := one.Add(terms.StepPercent)
	if terms.StepDirection == domain.StepDown {
		factor = one.Sub(terms.StepPercent)
	}

	multipliers := make([]decimal.Decimal, n)
	for i := 0; i < n; i++ {
		block := i / terms.StepEveryPeriods
		multipliers[i] = factor.Pow(decimal.NewFromInt(int64(block)))
	}
	return multipliers
}
