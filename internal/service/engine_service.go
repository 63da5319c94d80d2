package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/crednine/loan-engine/internal/accrual"
	"github.com/crednine/loan-engine/internal/config"
	"github.com/crednine/loan-engine/internal/daycount"
	"github.com/crednine/loan-engine/internal/domain"
	"github.com/crednine/loan-engine/internal/ecl"
	"github.com/crednine/loan-engine/internal/repository"
	"github.com/crednine/loan-engine/internal/schedule"
	"github.com/crednine/loan-engine/internal/waterfall"
	customError "github.com/crednine/loan-engine/pkg/errors"
)

// BatchResult reports the outcome of one batch run. Item failures are
// collected here, never allowed to abort sibling loans.
type BatchResult struct {
	Date      time.Time                     `json:"date"`
	Processed int                           `json:"processed"`
	Skipped   int                           `json:"skipped"`
	Errored   int                           `json:"errored"`
	Errors    []*customError.BatchItemError `json:"errors,omitempty"`
}

// EngineService orchestrates the calculation packages against the
// repositories. All balance and delinquency figures are recomputed from
// the live schedule on every call; nothing here keeps running totals.
type EngineService struct {
	LoanRepo     repository.LoanRepository
	ScheduleRepo repository.ScheduleRepository
	PaymentRepo  repository.PaymentRepository
	AccrualRepo  repository.AccrualRepository
	ECLRepo      repository.ECLRepository

	generator *schedule.Generator
	accruals  *accrual.Engine
	redis     *redis.Client
	config    *config.Config
}

func NewEngineService(
	loanRepo repository.LoanRepository,
	scheduleRepo repository.ScheduleRepository,
	paymentRepo repository.PaymentRepository,
	accrualRepo repository.AccrualRepository,
	eclRepo repository.ECLRepository,
	generator *schedule.Generator,
	accruals *accrual.Engine,
	redisClient *redis.Client,
	cfg *config.Config,
) *EngineService {
	return &EngineService{
		LoanRepo:     loanRepo,
		ScheduleRepo: scheduleRepo,
		PaymentRepo:  paymentRepo,
		AccrualRepo:  accrualRepo,
		ECLRepo:      eclRepo,
		generator:    generator,
		accruals:     accruals,
		redis:        redisClient,
		config:       cfg,
	}
}

// DisburseLoan books a new loan: terms, generated schedule and an initial
// stage record, all in one operation.
func (s *EngineService) DisburseLoan(ctx context.Context, request *domain.DisburseLoanRequest) (*domain.DisburseLoanResponse, error) {
	existing, err := s.LoanRepo.GetByLoanID(ctx, request.LoanID)
	if err == nil && existing != nil {
		return nil, customError.WrapLoanAlreadyExists(request.LoanID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	conv, err := daycount.Parse(request.Convention)
	if err != nil {
		return nil, err
	}

	rateType := request.RateType
	if rateType == "" {
		rateType = domain.RateTypeFixed
	}

	now := time.Now()
	terms := &domain.LoanTerms{
		ID:                uuid.New(),
		LoanID:            request.LoanID,
		Principal:         request.Principal,
		AnnualRate:        request.AnnualRate,
		TenurePeriods:     request.TenurePeriods,
		StartDate:         request.StartDate,
		ScheduleType:      request.ScheduleType,
		Frequency:         request.Frequency,
		Convention:        conv,
		RateType:          rateType,
		Benchmark:         request.Benchmark,
		Spread:            request.Spread,
		RateFloor:         request.RateFloor,
		RateCap:           request.RateCap,
		ResetDate:         request.ResetDate,
		StepPercent:       request.StepPercent,
		StepEveryPeriods:  request.StepEveryPeriods,
		StepDirection:     request.StepDirection,
		BalloonAmount:     request.BalloonAmount,
		MoratoriumPeriods: request.MoratoriumPeriods,
		MoratoriumMode:    request.MoratoriumMode,
		InterestTreatment: request.InterestTreatment,
		CreatedAt:         now,
	}

	sched, err := s.generator.Generate(ctx, terms)
	if err != nil {
		return nil, err
	}

	loan := &domain.Loan{
		ID:          uuid.New(),
		LoanID:      request.LoanID,
		TermsID:     terms.ID,
		Status:      domain.LoanStatusActive,
		DisbursedAt: request.StartDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.LoanRepo.CreateTerms(ctx, terms); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if err := s.LoanRepo.CreateLoan(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if err := s.ScheduleRepo.ReplaceSchedule(ctx, request.LoanID, sched.Installments); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	// Every live loan carries a stage record from day one.
	snap := s.snapshot(loan, sched.Installments, request.StartDate)
	stage, _ := ecl.ApplyStaging(nil, snap, s.config.ECLConfig())
	if err := s.ECLRepo.SaveStage(ctx, stage); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.DisburseLoanResponse{
		Loan:     loan,
		Terms:    terms,
		Schedule: sched.Installments,
	}, nil
}

// RestructureLoan supersedes the current terms with new ones and replaces
// the schedule wholesale. The loan is flagged restructured, which the next
// staging evaluation turns into a Stage 2 downgrade.
func (s *EngineService) RestructureLoan(ctx context.Context, loanID string, request *domain.RestructureLoanRequest) (*domain.DisburseLoanResponse, error) {
	loan, err := s.getActiveLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	conv, err := daycount.Parse(request.Convention)
	if err != nil {
		return nil, err
	}

	principal := request.Principal
	if principal.IsZero() {
		installments, err := s.ScheduleRepo.GetByLoanID(ctx, loanID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		principal = waterfall.ComputeOutstanding(installments).Principal
	}

	rateType := request.RateType
	if rateType == "" {
		rateType = domain.RateTypeFixed
	}

	now := time.Now()
	terms := &domain.LoanTerms{
		ID:                uuid.New(),
		LoanID:            loanID,
		Principal:         principal,
		AnnualRate:        request.AnnualRate,
		TenurePeriods:     request.TenurePeriods,
		StartDate:         request.EffectiveDate,
		ScheduleType:      request.ScheduleType,
		Frequency:         request.Frequency,
		Convention:        conv,
		RateType:          rateType,
		Benchmark:         request.Benchmark,
		Spread:            request.Spread,
		RateFloor:         request.RateFloor,
		RateCap:           request.RateCap,
		ResetDate:         request.ResetDate,
		MoratoriumPeriods: request.MoratoriumPeriods,
		MoratoriumMode:    request.MoratoriumMode,
		InterestTreatment: request.InterestTreatment,
		CreatedAt:         now,
	}

	sched, err := s.generator.Generate(ctx, terms)
	if err != nil {
		return nil, err
	}

	if err := s.LoanRepo.SupersedeTerms(ctx, loanID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if err := s.LoanRepo.CreateTerms(ctx, terms); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if err := s.ScheduleRepo.ReplaceSchedule(ctx, loanID, sched.Installments); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	loan.TermsID = terms.ID
	loan.Restructured = true
	loan.UpdatedAt = now
	if err := s.LoanRepo.UpdateLoan(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.invalidateDPD(ctx, loanID)

	if _, _, err := s.EvaluateStaging(ctx, loanID, request.EffectiveDate); err != nil {
		return nil, err
	}

	return &domain.DisburseLoanResponse{
		Loan:     loan,
		Terms:    terms,
		Schedule: sched.Installments,
	}, nil
}

// RecomputeSchedule regenerates the remaining plan from the outstanding
// principal after a large prepayment. The commercial terms carry over
// (rate, type, frequency, convention) for the periods still to run; unlike
// a restructure the loan is not flagged, so staging is unaffected. Step,
// balloon and moratorium overlays do not survive a recompute: they were
// priced against the original principal.
func (s *EngineService) RecomputeSchedule(ctx context.Context, loanID string, effectiveDate time.Time) (*domain.DisburseLoanResponse, error) {
	loan, err := s.getActiveLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	current, err := s.LoanRepo.GetCurrentTerms(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	installments, err := s.ScheduleRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	outstanding := waterfall.ComputeOutstanding(installments).Principal
	if !outstanding.GreaterThan(decimal.Zero) {
		return nil, customError.NewValidationError("principal",
			fmt.Sprintf("loan %s has no outstanding principal to reschedule", loanID),
			customError.ErrInvalidPrincipal)
	}

	remaining := 0
	for _, inst := range installments {
		if inst.Unpaid() {
			remaining++
		}
	}
	if remaining == 0 {
		remaining = 1
	}

	now := time.Now()
	terms := &domain.LoanTerms{
		ID:            uuid.New(),
		LoanID:        loanID,
		Principal:     outstanding,
		AnnualRate:    current.AnnualRate,
		TenurePeriods: remaining,
		StartDate:     effectiveDate,
		ScheduleType:  current.ScheduleType,
		Frequency:     current.Frequency,
		Convention:    current.Convention,
		RateType:      current.RateType,
		Benchmark:     current.Benchmark,
		Spread:        current.Spread,
		RateFloor:     current.RateFloor,
		RateCap:       current.RateCap,
		ResetDate:     current.ResetDate,
		CreatedAt:     now,
	}

	sched, err := s.generator.Generate(ctx, terms)
	if err != nil {
		return nil, err
	}

	if err := s.LoanRepo.SupersedeTerms(ctx, loanID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if err := s.LoanRepo.CreateTerms(ctx, terms); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if err := s.ScheduleRepo.ReplaceSchedule(ctx, loanID, sched.Installments); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	loan.TermsID = terms.ID
	loan.UpdatedAt = now
	if err := s.LoanRepo.UpdateLoan(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.invalidateDPD(ctx, loanID)

	return &domain.DisburseLoanResponse{
		Loan:     loan,
		Terms:    terms,
		Schedule: sched.Installments,
	}, nil
}

// GetSchedule returns the live installment plan for a loan.
func (s *EngineService) GetSchedule(ctx context.Context, loanID string) (*domain.ScheduleResponse, error) {
	if _, err := s.getLoan(ctx, loanID); err != nil {
		return nil, err
	}

	installments, err := s.ScheduleRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if len(installments) == 0 {
		return nil, customError.NewBusinessError(customError.ErrCodeComputation,
			fmt.Sprintf("loan %s has no generated schedule", loanID),
			customError.ErrScheduleNotGenerated)
	}

	return &domain.ScheduleResponse{LoanID: loanID, Schedule: installments}, nil
}

// GetOutstanding recomputes the position and DPD as of a date. DPD is
// cached per loan and date in redis; a cache failure falls back to the
// recompute, never to an error.
func (s *EngineService) GetOutstanding(ctx context.Context, loanID string, asOf time.Time) (*domain.OutstandingResponse, error) {
	if _, err := s.getLoan(ctx, loanID); err != nil {
		return nil, err
	}

	installments, err := s.ScheduleRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	out := waterfall.ComputeOutstanding(installments)
	dpd := s.cachedDPD(ctx, loanID, installments, asOf)

	return &domain.OutstandingResponse{
		LoanID:               loanID,
		PrincipalOutstanding: out.Principal,
		InterestOutstanding:  out.Interest,
		FeesOutstanding:      out.Fees,
		TotalOutstanding:     out.Total(),
		DPD:                  dpd,
		AsOf:                 asOf,
	}, nil
}

// ApplyPayment runs the waterfall for one payment and persists the
// outcome. Whatever could not be allocated is reported back, never
// silently kept. Posting a payment that covers accrued interest flips the
// accrual series to posted so the running total restarts.
func (s *EngineService) ApplyPayment(ctx context.Context, loanID string, request *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error) {
	if !request.Amount.GreaterThan(decimal.Zero) {
		return nil, customError.NewValidationError("amount",
			fmt.Sprintf("payment amount %s must be positive", request.Amount),
			customError.ErrInvalidPaymentAmount)
	}

	loan, err := s.getActiveLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	installments, err := s.ScheduleRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if len(installments) == 0 {
		return nil, customError.NewBusinessError(customError.ErrCodeComputation,
			fmt.Sprintf("loan %s has no generated schedule", loanID),
			customError.ErrScheduleNotGenerated)
	}

	payment := &domain.Payment{
		ID:          uuid.New(),
		LoanID:      loanID,
		Amount:      request.Amount,
		PaymentDate: request.PaymentDate,
		Reference:   request.Reference,
		CreatedAt:   time.Now(),
	}

	result := waterfall.Allocate(payment, installments)

	if err := s.PaymentRepo.CreatePayment(ctx, payment); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if len(result.Allocations) > 0 {
		if err := s.PaymentRepo.CreateAllocations(ctx, result.Allocations); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		if err := s.ScheduleRepo.UpdateInstallments(ctx, touched(installments, result.Allocations)); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
	}

	interestPaid := decimal.Zero
	for _, alloc := range result.Allocations {
		interestPaid = interestPaid.Add(alloc.InterestAllocated)
	}
	if interestPaid.GreaterThan(decimal.Zero) {
		if err := s.AccrualRepo.MarkPosted(ctx, loanID, request.PaymentDate); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
	}

	if waterfall.ComputeOutstanding(installments).Total().IsZero() {
		loan.Status = domain.LoanStatusClosed
		loan.UpdatedAt = time.Now()
		if err := s.LoanRepo.UpdateLoan(ctx, loan); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
	}

	s.invalidateDPD(ctx, loanID)

	return &domain.MakePaymentResponse{
		Payment:     payment,
		Allocations: result.Allocations,
		Unallocated: result.Unallocated,
	}, nil
}

// AccrueLoan derives and stores the accrual record for one loan and date.
// Idempotent: an already-stored record is returned unchanged.
func (s *EngineService) AccrueLoan(ctx context.Context, loanID string, date time.Time) (*domain.AccrualRecord, error) {
	existing, err := s.AccrualRepo.Get(ctx, loanID, date)
	if err == nil && existing != nil {
		return existing, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	if _, err := s.getLoan(ctx, loanID); err != nil {
		return nil, err
	}

	terms, err := s.LoanRepo.GetCurrentTerms(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	installments, err := s.ScheduleRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	// The daily sweep doubles as the delinquency roll: anything unpaid past
	// its due date flips to overdue.
	if lapsed := markOverdue(installments, date); len(lapsed) > 0 {
		if err := s.ScheduleRepo.UpdateInstallments(ctx, lapsed); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
	}

	prior, err := s.AccrualRepo.GetLatestBefore(ctx, loanID, date)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapDatabaseError(err)
		}
		prior = nil
	}

	outstanding := waterfall.ComputeOutstanding(installments).Principal
	record, err := s.accruals.Daily(ctx, terms, outstanding, prior, date)
	if err != nil {
		return nil, err
	}

	if err := s.AccrualRepo.Create(ctx, record); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return record, nil
}

// AccrueRange catches a loan up day by day over [from, to]. Used after an
// outage so the series stays gap-free.
func (s *EngineService) AccrueRange(ctx context.Context, loanID string, from, to time.Time) ([]*domain.AccrualRecord, error) {
	if to.Before(from) {
		return nil, customError.NewValidationError("to",
			"range end precedes range start", nil)
	}

	var records []*domain.AccrualRecord
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		record, err := s.AccrueLoan(ctx, loanID, date)
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
	return records, nil
}

// RunDailyAccrual accrues every active loan for one date over a worker
// pool. A failed loan is recorded and skipped over, never fatal to the
// batch.
func (s *EngineService) RunDailyAccrual(ctx context.Context, date time.Time) (*BatchResult, error) {
	loanIDs, err := s.LoanRepo.ListActiveLoanIDs(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return s.runBatch(ctx, date, loanIDs, func(ctx context.Context, loanID string) (bool, error) {
		if existing, err := s.AccrualRepo.Get(ctx, loanID, date); err == nil && existing != nil {
			return false, nil
		}
		_, err := s.AccrueLoan(ctx, loanID, date)
		return true, err
	})
}

// EvaluateStaging reclassifies one loan and persists the stage record and
// movement when a downgrade occurred. Improvements are suppressed here;
// they only happen through CureLoan.
func (s *EngineService) EvaluateStaging(ctx context.Context, loanID string, asOf time.Time) (*domain.ECLStage, *domain.ECLMovement, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}

	installments, err := s.ScheduleRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	current, err := s.ECLRepo.GetStage(ctx, loanID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, customError.WrapDatabaseError(err)
		}
		current = nil
	}

	snap := s.snapshot(loan, installments, asOf)
	next, movement := ecl.ApplyStaging(current, snap, s.config.ECLConfig())

	if next != current {
		if err := s.ECLRepo.SaveStage(ctx, next); err != nil {
			return nil, nil, customError.WrapDatabaseError(err)
		}
	}
	if movement != nil {
		if err := s.ECLRepo.CreateMovement(ctx, movement); err != nil {
			return nil, nil, customError.WrapDatabaseError(err)
		}
	}

	return next, movement, nil
}

// CureLoan is the explicit upgrade action: a fully cleared loan moves back
// to the stage the classifier proposes, with an upgrade movement.
func (s *EngineService) CureLoan(ctx context.Context, loanID string, asOf time.Time) (*domain.ECLStage, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	installments, err := s.ScheduleRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	current, err := s.ECLRepo.GetStage(ctx, loanID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapDatabaseError(err)
		}
		current = nil
	}

	snap := s.snapshot(loan, installments, asOf)
	next, movement, err := ecl.Cure(current, snap, s.config.ECLConfig())
	if err != nil {
		return nil, err
	}

	if next != current {
		if err := s.ECLRepo.SaveStage(ctx, next); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
	}
	if movement != nil {
		if err := s.ECLRepo.CreateMovement(ctx, movement); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
	}

	return next, nil
}

// RunProvisioning computes the provision for every active loan for one
// provision date. Idempotent per (loan, date); staging is re-evaluated
// first so provisions always reflect the current stage.
func (s *EngineService) RunProvisioning(ctx context.Context, provisionDate time.Time) (*BatchResult, error) {
	loanIDs, err := s.LoanRepo.ListActiveLoanIDs(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return s.runBatch(ctx, provisionDate, loanIDs, func(ctx context.Context, loanID string) (bool, error) {
		if existing, err := s.ECLRepo.GetProvision(ctx, loanID, provisionDate); err == nil && existing != nil {
			return false, nil
		}
		return true, s.provisionLoan(ctx, loanID, provisionDate)
	})
}

func (s *EngineService) provisionLoan(ctx context.Context, loanID string, provisionDate time.Time) error {
	stage, _, err := s.EvaluateStaging(ctx, loanID, provisionDate)
	if err != nil {
		return err
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return err
	}
	installments, err := s.ScheduleRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	opening := decimal.Zero
	if prior, err := s.ECLRepo.GetLatestProvisionBefore(ctx, loanID, provisionDate); err == nil && prior != nil {
		opening = prior.ClosingProvision
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return customError.WrapDatabaseError(err)
	}

	snap := s.snapshot(loan, installments, provisionDate)
	provision := ecl.ComputeProvision(snap, s.config.ECLConfig(), stage.CurrentStage, opening, provisionDate)

	if err := s.ECLRepo.CreateProvision(ctx, provision); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

// GetStage returns the live stage record for a loan.
func (s *EngineService) GetStage(ctx context.Context, loanID string) (*domain.ECLStage, error) {
	stage, err := s.ECLRepo.GetStage(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return stage, nil
}

// GetProvision returns one loan's provision for a date.
func (s *EngineService) GetProvision(ctx context.Context, loanID string, date time.Time) (*domain.Provision, error) {
	provision, err := s.ECLRepo.GetProvision(ctx, loanID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return provision, nil
}

// PortfolioSummary reduces a date's provisions into per-stage totals.
func (s *EngineService) PortfolioSummary(ctx context.Context, provisionDate time.Time) (*domain.PortfolioSummary, error) {
	provisions, err := s.ECLRepo.ListProvisionsByDate(ctx, provisionDate)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return ecl.Summarize(provisionDate, provisions), nil
}

// runBatch fans loan IDs over the configured worker count. The item
// function reports whether it did work; errors become BatchItemErrors.
func (s *EngineService) runBatch(ctx context.Context, date time.Time, loanIDs []string, item func(context.Context, string) (bool, error)) (*BatchResult, error) {
	result := &BatchResult{Date: date}
	if len(loanIDs) == 0 {
		return result, nil
	}

	workers := s.config.Batch.Workers
	if workers > len(loanIDs) {
		workers = len(loanIDs)
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for loanID := range jobs {
				did, err := item(ctx, loanID)
				mu.Lock()
				switch {
				case err != nil:
					result.Errored++
					result.Errors = append(result.Errors, &customError.BatchItemError{LoanID: loanID, Err: err})
				case did:
					result.Processed++
				default:
					result.Skipped++
				}
				mu.Unlock()
			}
		}()
	}

	for _, loanID := range loanIDs {
		jobs <- loanID
	}
	close(jobs)
	wg.Wait()

	return result, nil
}

// snapshot assembles the risk view staging and provisioning run on.
func (s *EngineService) snapshot(loan *domain.Loan, installments []*domain.Installment, asOf time.Time) *domain.RiskSnapshot {
	out := waterfall.ComputeOutstanding(installments)

	var lastDue time.Time
	for _, inst := range installments {
		if inst.Status == domain.InstallmentStatusCancelled {
			continue
		}
		if inst.DueDate.After(lastDue) {
			lastDue = inst.DueDate
		}
	}
	life := decimal.Zero
	if lastDue.After(asOf) {
		days := int64(lastDue.Sub(asOf).Hours() / 24)
		life = decimal.NewFromInt(days).Div(decimal.NewFromInt(365))
	}

	return &domain.RiskSnapshot{
		LoanID:               loan.LoanID,
		AsOf:                 asOf,
		DPD:                  waterfall.DPD(installments, asOf),
		PrincipalOutstanding: out.Principal,
		InterestOutstanding:  out.Interest,
		FeesOutstanding:      out.Fees,
		UndrawnExposure:      decimal.Zero,
		RemainingLifeYears:   life,
		WrittenOff:           loan.WrittenOff(),
		NPA:                  loan.NPA,
		FraudFlagged:         loan.FraudFlagged,
		Restructured:         loan.Restructured,
		SICRFlagged:          loan.SICRFlagged,
	}
}

func (s *EngineService) getLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func (s *EngineService) getActiveLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, customError.NewBusinessError("LOAN_NOT_ACTIVE",
			fmt.Sprintf("loan %s is %s", loanID, loan.Status), nil)
	}
	return loan, nil
}

// cachedDPD serves DPD from redis keyed by loan and date, recomputing on
// any cache miss or failure.
func (s *EngineService) cachedDPD(ctx context.Context, loanID string, installments []*domain.Installment, asOf time.Time) int {
	key := dpdKey(loanID, asOf)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			if dpd, parseErr := strconv.Atoi(cached); parseErr == nil {
				return dpd
			}
		}
	}

	dpd := waterfall.DPD(installments, asOf)
	if s.redis != nil {
		_ = s.redis.Set(ctx, key, strconv.Itoa(dpd), s.config.Batch.DPDCacheTTL).Err()
	}
	return dpd
}

func (s *EngineService) invalidateDPD(ctx context.Context, loanID string) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, dpdKey(loanID, time.Now())).Err()
}

func dpdKey(loanID string, asOf time.Time) string {
	return fmt.Sprintf("dpd:%s:%s", loanID, asOf.Format("2006-01-02"))
}

// markOverdue applies the status roll and returns the installments whose
// status actually moved.
func markOverdue(installments []*domain.Installment, asOf time.Time) []*domain.Installment {
	before := make(map[uuid.UUID]string, len(installments))
	for _, inst := range installments {
		before[inst.ID] = inst.Status
	}

	waterfall.MarkOverdue(installments, asOf)

	var lapsed []*domain.Installment
	for _, inst := range installments {
		if inst.Status != before[inst.ID] {
			lapsed = append(lapsed, inst)
		}
	}
	return lapsed
}

// touched picks out the installments an allocation landed on, so only
// those rows are written back.
func touched(installments []*domain.Installment, allocations []*domain.PaymentAllocation) []*domain.Installment {
	hit := make(map[uuid.UUID]bool, len(allocations))
	for _, alloc := range allocations {
		hit[alloc.InstallmentID] = true
	}

	changed := make([]*domain.Installment, 0, len(hit))
	for _, inst := range installments {
		if hit[inst.ID] {
			changed = append(changed, inst)
		}
	}
	return changed
}
