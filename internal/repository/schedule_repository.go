package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/crednine/loan-engine/internal/domain"
)

type scheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

// ReplaceSchedule swaps a loan's live plan wholesale: the old installments
// move to cancelled and the new ones insert in the same transaction, so a
// reader never sees a half-replaced schedule.
func (r *scheduleRepository) ReplaceSchedule(ctx context.Context, loanID string, installments []*domain.Installment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cancelQuery := `
		UPDATE installments SET status = $2 WHERE loan_id = $1 AND status NOT IN ($2, $3)
	`
	if _, err = tx.ExecContext(ctx, cancelQuery, loanID,
		domain.InstallmentStatusCancelled, domain.InstallmentStatusPaid); err != nil {
		return err
	}

	insertQuery := `
		INSERT INTO installments (
			id, loan_id, installment_number, due_date, period_start, period_end,
			principal_due, interest_due, fees_due, total_due, opening_balance, closing_balance,
			principal_paid, interest_paid, fees_paid, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	for _, inst := range installments {
		_, err = tx.ExecContext(ctx, insertQuery,
			inst.ID,
			inst.LoanID,
			inst.InstallmentNumber,
			inst.DueDate,
			inst.PeriodStart,
			inst.PeriodEnd,
			inst.PrincipalDue,
			inst.InterestDue,
			inst.FeesDue,
			inst.TotalDue,
			inst.OpeningBalance,
			inst.ClosingBalance,
			inst.PrincipalPaid,
			inst.InterestPaid,
			inst.FeesPaid,
			inst.Status,
			inst.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *scheduleRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.Installment, error) {
	query := `
		SELECT id, loan_id, installment_number, due_date, period_start, period_end,
		       principal_due, interest_due, fees_due, total_due, opening_balance, closing_balance,
		       principal_paid, interest_paid, fees_paid, status, created_at
		FROM installments
		WHERE loan_id = $1 AND status != $2
		ORDER BY installment_number
	`

	var installments []*domain.Installment
	err := r.db.SelectContext(ctx, &installments, query, loanID, domain.InstallmentStatusCancelled)
	if err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *scheduleRepository) UpdateInstallments(ctx context.Context, installments []*domain.Installment) error {
	query := `
		UPDATE installments
		SET principal_paid = $2, interest_paid = $3, fees_paid = $4, status = $5
		WHERE id = $1
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, inst := range installments {
		_, err = tx.ExecContext(ctx, query,
			inst.ID,
			inst.PrincipalPaid,
			inst.InterestPaid,
			inst.FeesPaid,
			inst.Status,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
