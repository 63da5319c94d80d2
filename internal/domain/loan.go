package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crednine/loan-engine/internal/daycount"
)

const (
	LoanStatusActive     = "active"
	LoanStatusClosed     = "closed"
	LoanStatusWrittenOff = "written_off"
)

// Schedule types
const (
	ScheduleTypeEMI          = "emi"
	ScheduleTypeInterestOnly = "interest_only"
	ScheduleTypeBullet       = "bullet"
)

// Repayment frequencies
const (
	FrequencyWeekly     = "weekly"
	FrequencyMonthly    = "monthly"
	FrequencyQuarterly  = "quarterly"
	FrequencySemiAnnual = "semi_annual"
	FrequencyAnnual     = "annual"
)

// Rate types
const (
	RateTypeFixed    = "fixed"
	RateTypeFloating = "floating"
)

// Step directions
const (
	StepUp   = "up"
	StepDown = "down"
)

// Moratorium modes and deferred-interest treatments
const (
	MoratoriumFull          = "full"
	MoratoriumPrincipalOnly = "principal_only"
	MoratoriumInterestOnly  = "interest_only"

	InterestCapitalize = "capitalize"
	InterestAccrue     = "accrue"
	InterestWaive      = "waive"
)

// PeriodsPerYear maps a repayment frequency to the number of periods in a
// year, used for the periodic rate and for stepping due dates.
var PeriodsPerYear = map[string]int{
	FrequencyWeekly:     52,
	FrequencyMonthly:    12,
	FrequencyQuarterly:  4,
	FrequencySemiAnnual: 2,
	FrequencyAnnual:     1,
}

// Loan is the engine's view of a loan: identity, lifecycle status and the
// risk flags consumed by staging. Balances are never stored here; they are
// always recomputed from the schedule.
type Loan struct {
	ID           uuid.UUID `json:"id" db:"id"`
	LoanID       string    `json:"loan_id" db:"loan_id"`
	TermsID      uuid.UUID `json:"terms_id" db:"terms_id"`
	Status       string    `json:"status" db:"status"`
	Restructured bool      `json:"restructured" db:"restructured"`
	SICRFlagged  bool      `json:"sicr_flagged" db:"sicr_flagged"`
	FraudFlagged bool      `json:"fraud_flagged" db:"fraud_flagged"`
	NPA          bool      `json:"npa" db:"npa"`
	DisbursedAt  time.Time `json:"disbursed_at" db:"disbursed_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// WrittenOff reports whether the loan has been written off.
func (l *Loan) WrittenOff() bool {
	return l.Status == LoanStatusWrittenOff
}

// LoanTerms captures the commercial terms of a loan at disbursement or
// restructuring. Immutable: a restructure creates a new row and marks the
// old one superseded, it never mutates in place.
//
// Optional features are flattened: a zero StepPercent means no step, a zero
// BalloonAmount means no balloon, zero MoratoriumPeriods means no
// moratorium. Floating fields are meaningful only when RateType is
// "floating".
type LoanTerms struct {
	ID            uuid.UUID           `json:"id" db:"id"`
	LoanID        string              `json:"loan_id" db:"loan_id"`
	Principal     decimal.Decimal     `json:"principal" db:"principal"`
	AnnualRate    decimal.Decimal     `json:"annual_rate" db:"annual_rate"`
	TenurePeriods int                 `json:"tenure_periods" db:"tenure_periods"`
	StartDate     time.Time           `json:"start_date" db:"start_date"`
	ScheduleType  string              `json:"schedule_type" db:"schedule_type"`
	Frequency     string              `json:"frequency" db:"frequency"`
	Convention    daycount.Convention `json:"day_count_convention" db:"day_count_convention"`

	RateType  string          `json:"rate_type" db:"rate_type"`
	Benchmark string          `json:"benchmark" db:"benchmark"`
	Spread    decimal.Decimal `json:"spread" db:"spread"`
	RateFloor decimal.Decimal `json:"rate_floor" db:"rate_floor"`
	RateCap   decimal.Decimal `json:"rate_cap" db:"rate_cap"`
	ResetDate time.Time       `json:"reset_date" db:"reset_date"`

	StepPercent      decimal.Decimal `json:"step_percent" db:"step_percent"`
	StepEveryPeriods int             `json:"step_every_periods" db:"step_every_periods"`
	StepDirection    string          `json:"step_direction" db:"step_direction"`

	BalloonAmount decimal.Decimal `json:"balloon_amount" db:"balloon_amount"`

	MoratoriumPeriods int    `json:"moratorium_periods" db:"moratorium_periods"`
	MoratoriumMode    string `json:"moratorium_mode" db:"moratorium_mode"`
	InterestTreatment string `json:"interest_treatment" db:"interest_treatment"`

	Superseded bool      `json:"superseded" db:"superseded"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// HasStep reports whether the terms carry a step-up/step-down overlay.
func (t *LoanTerms) HasStep() bool {
	return t.StepPercent.GreaterThan(decimal.Zero) && t.StepEveryPeriods > 0
}

// HasBalloon reports whether the terms carry a balloon installment.
func (t *LoanTerms) HasBalloon() bool {
	return t.BalloonAmount.GreaterThan(decimal.Zero)
}

// HasMoratorium reports whether the terms carry a moratorium overlay.
func (t *LoanTerms) HasMoratorium() bool {
	return t.MoratoriumPeriods > 0
}

// DTOs for requests and responses

type DisburseLoanRequest struct {
	LoanID        string          `json:"loan_id" validate:"required"`
	Principal     decimal.Decimal `json:"principal" validate:"required"`
	AnnualRate    decimal.Decimal `json:"annual_rate"`
	TenurePeriods int             `json:"tenure_periods" validate:"required,gt=0"`
	StartDate     time.Time       `json:"start_date" validate:"required"`
	ScheduleType  string          `json:"schedule_type" validate:"required"`
	Frequency     string          `json:"frequency" validate:"required"`
	Convention    string          `json:"day_count_convention" validate:"required"`

	RateType  string          `json:"rate_type"`
	Benchmark string          `json:"benchmark"`
	Spread    decimal.Decimal `json:"spread"`
	RateFloor decimal.Decimal `json:"rate_floor"`
	RateCap   decimal.Decimal `json:"rate_cap"`
	ResetDate time.Time       `json:"reset_date"`

	StepPercent      decimal.Decimal `json:"step_percent"`
	StepEveryPeriods int             `json:"step_every_periods"`
	StepDirection    string          `json:"step_direction"`

	BalloonAmount decimal.Decimal `json:"balloon_amount"`

	MoratoriumPeriods int    `json:"moratorium_periods"`
	MoratoriumMode    string `json:"moratorium_mode"`
	InterestTreatment string `json:"interest_treatment"`
}

// RestructureLoanRequest carries the new commercial terms replacing the
// current ones. A zero principal means "carry the outstanding principal
// forward".
type RestructureLoanRequest struct {
	Principal     decimal.Decimal `json:"principal"`
	AnnualRate    decimal.Decimal `json:"annual_rate"`
	TenurePeriods int             `json:"tenure_periods" validate:"required,gt=0"`
	EffectiveDate time.Time       `json:"effective_date" validate:"required"`
	ScheduleType  string          `json:"schedule_type" validate:"required"`
	Frequency     string          `json:"frequency" validate:"required"`
	Convention    string          `json:"day_count_convention" validate:"required"`

	RateType  string          `json:"rate_type"`
	Benchmark string          `json:"benchmark"`
	Spread    decimal.Decimal `json:"spread"`
	RateFloor decimal.Decimal `json:"rate_floor"`
	RateCap   decimal.Decimal `json:"rate_cap"`
	ResetDate time.Time       `json:"reset_date"`

	MoratoriumPeriods int    `json:"moratorium_periods"`
	MoratoriumMode    string `json:"moratorium_mode"`
	InterestTreatment string `json:"interest_treatment"`
}

type DisburseLoanResponse struct {
	Loan     *Loan          `json:"loan"`
	Terms    *LoanTerms     `json:"terms"`
	Schedule []*Installment `json:"schedule"`
}

type OutstandingResponse struct {
	LoanID               string          `json:"loan_id"`
	PrincipalOutstanding decimal.Decimal `json:"principal_outstanding"`
	InterestOutstanding  decimal.Decimal `json:"interest_outstanding"`
	FeesOutstanding      decimal.Decimal `json:"fees_outstanding"`
	TotalOutstanding     decimal.Decimal `json:"total_outstanding"`
	DPD                  int             `json:"dpd"`
	AsOf                 time.Time       `json:"as_of"`
}
