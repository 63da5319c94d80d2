package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/crednine/loan-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) CreateLoan(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, loan_id, terms_id, status, restructured, sicr_flagged, fraud_flagged, npa, disbursed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.LoanID,
		loan.TermsID,
		loan.Status,
		loan.Restructured,
		loan.SICRFlagged,
		loan.FraudFlagged,
		loan.NPA,
		loan.DisbursedAt,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `
		SELECT id, loan_id, terms_id, status, restructured, sicr_flagged, fraud_flagged, npa, disbursed_at, created_at, updated_at
		FROM loans
		WHERE loan_id = $1
	`

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, loanID)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) UpdateLoan(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET terms_id = $2, status = $3, restructured = $4, sicr_flagged = $5, fraud_flagged = $6, npa = $7, updated_at = $8
		WHERE loan_id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.LoanID,
		loan.TermsID,
		loan.Status,
		loan.Restructured,
		loan.SICRFlagged,
		loan.FraudFlagged,
		loan.NPA,
		time.Now(),
	)

	return err
}

func (r *loanRepository) ListActiveLoanIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT loan_id FROM loans WHERE status = $1 ORDER BY loan_id
	`

	var loanIDs []string
	err := r.db.SelectContext(ctx, &loanIDs, query, domain.LoanStatusActive)
	if err != nil {
		return nil, err
	}

	return loanIDs, nil
}

func (r *loanRepository) CreateTerms(ctx context.Context, terms *domain.LoanTerms) error {
	query := `
		INSERT INTO loan_terms (
			id, loan_id, principal, annual_rate, tenure_periods, start_date, schedule_type, frequency, day_count_convention,
			rate_type, benchmark, spread, rate_floor, rate_cap, reset_date,
			step_percent, step_every_periods, step_direction, balloon_amount,
			moratorium_periods, moratorium_mode, interest_treatment, superseded, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	_, err := r.db.ExecContext(ctx, query,
		terms.ID,
		terms.LoanID,
		terms.Principal,
		terms.AnnualRate,
		terms.TenurePeriods,
		terms.StartDate,
		terms.ScheduleType,
		terms.Frequency,
		terms.Convention,
		terms.RateType,
		terms.Benchmark,
		terms.Spread,
		terms.RateFloor,
		terms.RateCap,
		terms.ResetDate,
		terms.StepPercent,
		terms.StepEveryPeriods,
		terms.StepDirection,
		terms.BalloonAmount,
		terms.MoratoriumPeriods,
		terms.MoratoriumMode,
		terms.InterestTreatment,
		terms.Superseded,
		terms.CreatedAt,
	)

	return err
}

func (r *loanRepository) GetCurrentTerms(ctx context.Context, loanID string) (*domain.LoanTerms, error) {
	query := `
		SELECT id, loan_id, principal, annual_rate, tenure_periods, start_date, schedule_type, frequency, day_count_convention,
		       rate_type, benchmark, spread, rate_floor, rate_cap, reset_date,
		       step_percent, step_every_periods, step_direction, balloon_amount,
		       moratorium_periods, moratorium_mode, interest_treatment, superseded, created_at
		FROM loan_terms
		WHERE loan_id = $1 AND superseded = false
		ORDER BY created_at DESC
		LIMIT 1
	`

	var terms domain.LoanTerms
	err := r.db.GetContext(ctx, &terms, query, loanID)
	if err != nil {
		return nil, err
	}

	return &terms, nil
}

func (r *loanRepository) SupersedeTerms(ctx context.Context, loanID string) error {
	query := `
		UPDATE loan_terms SET superseded = true WHERE loan_id = $1 AND superseded = false
	`

	_, err := r.db.ExecContext(ctx, query, loanID)
	return err
}
