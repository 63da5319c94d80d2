package errors

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanAlreadyExists    = errors.New("loan already exists")
	ErrInvalidPrincipal     = errors.New("principal must be greater than zero")
	ErrInvalidTenure        = errors.New("tenure must be greater than zero")
	ErrUnknownScheduleType  = errors.New("unknown schedule type")
	ErrUnknownFrequency     = errors.New("unknown repayment frequency")
	ErrUnknownConvention    = errors.New("unknown day count convention")
	ErrUnknownAdjustMode    = errors.New("unknown business day adjustment mode")
	ErrMissingBenchmarkRate = errors.New("benchmark rate unavailable")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrScheduleNotGenerated = errors.New("loan has no generated schedule")
	ErrLoanNotCurable       = errors.New("loan does not satisfy cure conditions")
	ErrSolverDidNotConverge = errors.New("amortization solver did not converge")
)

// ValidationError reports malformed or contradictory input. It is raised
// before any computation is applied, so a failed call never leaves a
// partially built result behind.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// ComputationError reports a failure inside a calculation: a missing
// benchmark rate, a solver that failed to converge. The loan and date that
// triggered it are carried so the message is never generic.
type ComputationError struct {
	LoanID  string
	Date    time.Time
	Message string
	Err     error
}

func (e *ComputationError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("computation failed for loan %s: %s", e.LoanID, e.Message)
	}
	return fmt.Sprintf("computation failed for loan %s on %s: %s",
		e.LoanID, e.Date.Format("2006-01-02"), e.Message)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

func NewComputationError(loanID string, date time.Time, message string, err error) *ComputationError {
	return &ComputationError{LoanID: loanID, Date: date, Message: message, Err: err}
}

// BatchItemError wraps a per-loan failure inside a batch run. Collected and
// reported by the batch; never aborts sibling items.
type BatchItemError struct {
	LoanID string
	Err    error
}

func (e *BatchItemError) Error() string {
	return fmt.Sprintf("batch item %s: %v", e.LoanID, e.Err)
}

func (e *BatchItemError) Unwrap() error {
	return e.Err
}

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound      = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyExists = "LOAN_ALREADY_EXISTS"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeComputation       = "COMPUTATION_ERROR"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeCacheError        = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyExists(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyExists,
		fmt.Sprintf("Loan with ID %s already exists", loanID),
		ErrLoanAlreadyExists,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
