package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/crednine/loan-engine/internal/domain"
)

type accrualRepository struct {
	db *sqlx.DB
}

func NewAccrualRepository(db *sqlx.DB) AccrualRepository {
	return &accrualRepository{db: db}
}

func (r *accrualRepository) Get(ctx context.Context, loanID string, date time.Time) (*domain.AccrualRecord, error) {
	query := `
		SELECT id, loan_id, accrual_date, opening_balance, effective_rate, accrued_amount, cumulative_accrued, day_count_convention, status, created_at
		FROM accruals
		WHERE loan_id = $1 AND accrual_date = $2
	`

	var record domain.AccrualRecord
	err := r.db.GetContext(ctx, &record, query, loanID, date)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *accrualRepository) GetLatestBefore(ctx context.Context, loanID string, date time.Time) (*domain.AccrualRecord, error) {
	query := `
		SELECT id, loan_id, accrual_date, opening_balance, effective_rate, accrued_amount, cumulative_accrued, day_count_convention, status, created_at
		FROM accruals
		WHERE loan_id = $1 AND accrual_date < $2
		ORDER BY accrual_date DESC
		LIMIT 1
	`

	var record domain.AccrualRecord
	err := r.db.GetContext(ctx, &record, query, loanID, date)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *accrualRepository) Create(ctx context.Context, record *domain.AccrualRecord) error {
	query := `
		INSERT INTO accruals (id, loan_id, accrual_date, opening_balance, effective_rate, accrued_amount, cumulative_accrued, day_count_convention, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.LoanID,
		record.AccrualDate,
		record.OpeningBalance,
		record.EffectiveRate,
		record.AccruedAmount,
		record.CumulativeAccrued,
		record.Convention,
		record.Status,
		record.CreatedAt,
	)

	return err
}

func (r *accrualRepository) MarkPosted(ctx context.Context, loanID string, upTo time.Time) error {
	query := `
		UPDATE accruals SET status = $3 WHERE loan_id = $1 AND accrual_date <= $2 AND status = $4
	`

	_, err := r.db.ExecContext(ctx, query, loanID, upTo,
		domain.AccrualStatusPosted, domain.AccrualStatusAccrued)
	return err
}
