package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ECL stages
const (
	Stage1 = 1
	Stage2 = 2
	Stage3 = 3
)

// Movement directions. A downgrade moves to a higher stage number.
const (
	MovementUpgrade   = "upgrade"
	MovementDowngrade = "downgrade"
)

// ECLConfig is long-lived reference data for staging and provisioning,
// shared across the portfolio.
type ECLConfig struct {
	Stage1MaxDPD int `json:"stage1_max_dpd"`
	Stage2MaxDPD int `json:"stage2_max_dpd"`

	PD12Month decimal.Decimal `json:"pd_12_month"`
	LGD       decimal.Decimal `json:"lgd"`
	CCF       decimal.Decimal `json:"ccf"`

	StageOnRestructure bool `json:"stage_on_restructure"`
	StageOnWriteOff    bool `json:"stage_on_write_off"`
	StageOnNPA         bool `json:"stage_on_npa"`
}

// RiskSnapshot is the per-loan state staging and provisioning operate on:
// balances and DPD from the waterfall and accrual engine plus the loan's
// risk flags. A pure value object, assembled by the service layer.
type RiskSnapshot struct {
	LoanID string    `json:"loan_id"`
	AsOf   time.Time `json:"as_of"`

	DPD                  int             `json:"dpd"`
	PrincipalOutstanding decimal.Decimal `json:"principal_outstanding"`
	InterestOutstanding  decimal.Decimal `json:"interest_outstanding"`
	FeesOutstanding      decimal.Decimal `json:"fees_outstanding"`
	UndrawnExposure      decimal.Decimal `json:"undrawn_exposure"`
	RemainingLifeYears   decimal.Decimal `json:"remaining_life_years"`

	WrittenOff   bool `json:"written_off"`
	NPA          bool `json:"npa"`
	FraudFlagged bool `json:"fraud_flagged"`
	Restructured bool `json:"restructured"`
	SICRFlagged  bool `json:"sicr_flagged"`
}

// ECLStage is the single live staging record for a loan. Replaced on
// transition, never appended; history lives in ECLMovement.
type ECLStage struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LoanID        string          `json:"loan_id" db:"loan_id"`
	CurrentStage  int             `json:"current_stage" db:"current_stage"`
	StageReason   string          `json:"stage_reason" db:"stage_reason"`
	EffectiveDate time.Time       `json:"effective_date" db:"effective_date"`
	PD            decimal.Decimal `json:"pd" db:"pd"`
	LGD           decimal.Decimal `json:"lgd" db:"lgd"`
	EAD           decimal.Decimal `json:"ead" db:"ead"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// ECLMovement is the audit record emitted on every stage transition.
type ECLMovement struct {
	ID        uuid.UUID `json:"id" db:"id"`
	LoanID    string    `json:"loan_id" db:"loan_id"`
	FromStage int       `json:"from_stage" db:"from_stage"`
	ToStage   int       `json:"to_stage" db:"to_stage"`
	Direction string    `json:"direction" db:"direction"`
	Reason    string    `json:"reason" db:"reason"`
	MovedAt   time.Time `json:"moved_at" db:"moved_at"`
}

// Provision is one loan's provision for one provision date. The series is
// append-only; ClosingProvision of date D is OpeningProvision of the next.
type Provision struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	LoanID           string          `json:"loan_id" db:"loan_id"`
	ProvisionDate    time.Time       `json:"provision_date" db:"provision_date"`
	ECLStage         int             `json:"ecl_stage" db:"ecl_stage"`
	EAD              decimal.Decimal `json:"ead" db:"ead"`
	PD               decimal.Decimal `json:"pd" db:"pd"`
	LGD              decimal.Decimal `json:"lgd" db:"lgd"`
	ECL12Month       decimal.Decimal `json:"ecl_12_month" db:"ecl_12_month"`
	ECLLifetime      decimal.Decimal `json:"ecl_lifetime" db:"ecl_lifetime"`
	ECLApplied       decimal.Decimal `json:"ecl_applied" db:"ecl_applied"`
	OpeningProvision decimal.Decimal `json:"opening_provision" db:"opening_provision"`
	ClosingProvision decimal.Decimal `json:"closing_provision" db:"closing_provision"`
	Charge           decimal.Decimal `json:"charge" db:"charge"`
	Release          decimal.Decimal `json:"release" db:"release"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// StageSummary aggregates provisions for one stage on one date.
type StageSummary struct {
	Stage      int             `json:"stage"`
	LoanCount  int             `json:"loan_count"`
	TotalEAD   decimal.Decimal `json:"total_ead"`
	TotalECL   decimal.Decimal `json:"total_ecl"`
	NetCharge  decimal.Decimal `json:"net_charge"`
	NetRelease decimal.Decimal `json:"net_release"`
}

// PortfolioSummary is the per-stage reduction over a date's provisions.
type PortfolioSummary struct {
	ProvisionDate time.Time       `json:"provision_date"`
	Stages        []StageSummary  `json:"stages"`
	TotalECL      decimal.Decimal `json:"total_ecl"`
}
