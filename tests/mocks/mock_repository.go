package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/crednine/loan-engine/internal/domain"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) CreateLoan(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) UpdateLoan(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) ListActiveLoanIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLoanRepository) CreateTerms(ctx context.Context, terms *domain.LoanTerms) error {
	args := m.Called(ctx, terms)
	return args.Error(0)
}

func (m *MockLoanRepository) GetCurrentTerms(ctx context.Context, loanID string) (*domain.LoanTerms, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanTerms), args.Error(1)
}

func (m *MockLoanRepository) SupersedeTerms(ctx context.Context, loanID string) error {
	args := m.Called(ctx, loanID)
	return args.Error(0)
}

type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) ReplaceSchedule(ctx context.Context, loanID string, installments []*domain.Installment) error {
	args := m.Called(ctx, loanID, installments)
	return args.Error(0)
}

func (m *MockScheduleRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockScheduleRepository) UpdateInstallments(ctx context.Context, installments []*domain.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) CreateAllocations(ctx context.Context, allocations []*domain.PaymentAllocation) error {
	args := m.Called(ctx, allocations)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

type MockAccrualRepository struct {
	mock.Mock
}

func (m *MockAccrualRepository) Get(ctx context.Context, loanID string, date time.Time) (*domain.AccrualRecord, error) {
	args := m.Called(ctx, loanID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccrualRecord), args.Error(1)
}

func (m *MockAccrualRepository) GetLatestBefore(ctx context.Context, loanID string, date time.Time) (*domain.AccrualRecord, error) {
	args := m.Called(ctx, loanID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccrualRecord), args.Error(1)
}

func (m *MockAccrualRepository) Create(ctx context.Context, record *domain.AccrualRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAccrualRepository) MarkPosted(ctx context.Context, loanID string, upTo time.Time) error {
	args := m.Called(ctx, loanID, upTo)
	return args.Error(0)
}

type MockECLRepository struct {
	mock.Mock
}

func (m *MockECLRepository) GetStage(ctx context.Context, loanID string) (*domain.ECLStage, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ECLStage), args.Error(1)
}

func (m *MockECLRepository) SaveStage(ctx context.Context, stage *domain.ECLStage) error {
	args := m.Called(ctx, stage)
	return args.Error(0)
}

func (m *MockECLRepository) CreateMovement(ctx context.Context, movement *domain.ECLMovement) error {
	args := m.Called(ctx, movement)
	return args.Error(0)
}

func (m *MockECLRepository) GetProvision(ctx context.Context, loanID string, date time.Time) (*domain.Provision, error) {
	args := m.Called(ctx, loanID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Provision), args.Error(1)
}

func (m *MockECLRepository) GetLatestProvisionBefore(ctx context.Context, loanID string, date time.Time) (*domain.Provision, error) {
	args := m.Called(ctx, loanID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Provision), args.Error(1)
}

func (m *MockECLRepository) CreateProvision(ctx context.Context, provision *domain.Provision) error {
	args := m.Called(ctx, provision)
	return args.Error(0)
}

func (m *MockECLRepository) ListProvisionsByDate(ctx context.Context, date time.Time) ([]*domain.Provision, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Provision), args.Error(1)
}
