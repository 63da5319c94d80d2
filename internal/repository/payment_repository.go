package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/crednine/loan-engine/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, loan_id, amount, payment_date, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.LoanID,
		payment.Amount,
		payment.PaymentDate,
		payment.Reference,
		payment.CreatedAt,
	)

	return err
}

func (r *paymentRepository) CreateAllocations(ctx context.Context, allocations []*domain.PaymentAllocation) error {
	query := `
		INSERT INTO payment_allocations (id, payment_id, loan_id, installment_id, installment_number, principal_allocated, interest_allocated, fees_allocated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, alloc := range allocations {
		_, err = tx.ExecContext(ctx, query,
			alloc.ID,
			alloc.PaymentID,
			alloc.LoanID,
			alloc.InstallmentID,
			alloc.InstallmentNumber,
			alloc.PrincipalAllocated,
			alloc.InterestAllocated,
			alloc.FeesAllocated,
			alloc.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	query := `
		SELECT id, loan_id, amount, payment_date, reference, created_at
		FROM payments
		WHERE loan_id = $1
		ORDER BY payment_date
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query, loanID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}
