package repository

import (
	"context"
	"time"

	"github.com/crednine/loan-engine/internal/domain"
)

// LoanRepository defines the interface for loan and terms data operations
type LoanRepository interface {
	// CreateLoan creates a new loan
	CreateLoan(ctx context.Context, loan *domain.Loan) error

	// GetByLoanID retrieves a loan by its loan ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// UpdateLoan updates a loan's status and flags
	UpdateLoan(ctx context.Context, loan *domain.Loan) error

	// ListActiveLoanIDs returns the loan IDs of all active loans
	ListActiveLoanIDs(ctx context.Context) ([]string, error)

	// CreateTerms stores a new immutable terms record
	CreateTerms(ctx context.Context, terms *domain.LoanTerms) error

	// GetCurrentTerms retrieves the non-superseded terms for a loan
	GetCurrentTerms(ctx context.Context, loanID string) (*domain.LoanTerms, error)

	// SupersedeTerms marks a terms record as superseded
	SupersedeTerms(ctx context.Context, loanID string) error
}

// ScheduleRepository defines the interface for installment data operations
type ScheduleRepository interface {
	// ReplaceSchedule cancels any live schedule for the loan and inserts
	// the new installments in one transaction
	ReplaceSchedule(ctx context.Context, loanID string, installments []*domain.Installment) error

	// GetByLoanID retrieves the live schedule ordered by installment number
	GetByLoanID(ctx context.Context, loanID string) ([]*domain.Installment, error)

	// UpdateInstallments persists payment progress and status changes
	UpdateInstallments(ctx context.Context, installments []*domain.Installment) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// CreatePayment creates a new payment record
	CreatePayment(ctx context.Context, payment *domain.Payment) error

	// CreateAllocations stores the waterfall result for a payment
	CreateAllocations(ctx context.Context, allocations []*domain.PaymentAllocation) error

	// GetByLoanID retrieves all payments for a loan
	GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error)
}

// AccrualRepository defines the interface for the accrual time series
type AccrualRepository interface {
	// Get retrieves the accrual record for one loan and date
	Get(ctx context.Context, loanID string, date time.Time) (*domain.AccrualRecord, error)

	// GetLatestBefore retrieves the most recent record strictly before date
	GetLatestBefore(ctx context.Context, loanID string, date time.Time) (*domain.AccrualRecord, error)

	// Create appends a new accrual record
	Create(ctx context.Context, record *domain.AccrualRecord) error

	// MarkPosted flips unposted records up to a date to posted
	MarkPosted(ctx context.Context, loanID string, upTo time.Time) error
}

// ECLRepository defines the interface for staging and provision data
type ECLRepository interface {
	// GetStage retrieves the live stage record for a loan
	GetStage(ctx context.Context, loanID string) (*domain.ECLStage, error)

	// SaveStage replaces the live stage record for a loan
	SaveStage(ctx context.Context, stage *domain.ECLStage) error

	// CreateMovement appends a stage transition audit record
	CreateMovement(ctx context.Context, movement *domain.ECLMovement) error

	// GetProvision retrieves the provision for one loan and date
	GetProvision(ctx context.Context, loanID string, date time.Time) (*domain.Provision, error)

	// GetLatestProvisionBefore retrieves the most recent provision strictly before date
	GetLatestProvisionBefore(ctx context.Context, loanID string, date time.Time) (*domain.Provision, error)

	// CreateProvision appends a provision record
	CreateProvision(ctx context.Context, provision *domain.Provision) error

	// ListProvisionsByDate retrieves every loan's provision for a date
	ListProvisionsByDate(ctx context.Context, date time.Time) ([]*domain.Provision, error)
}
