package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/crednine/loan-engine/internal/domain"
)

type eclRepository struct {
	db *sqlx.DB
}

func NewECLRepository(db *sqlx.DB) ECLRepository {
	return &eclRepository{db: db}
}

func (r *eclRepository) GetStage(ctx context.Context, loanID string) (*domain.ECLStage, error) {
	query := `
		SELECT id, loan_id, current_stage, stage_reason, effective_date, pd, lgd, ead, updated_at
		FROM ecl_stages
		WHERE loan_id = $1
	`

	var stage domain.ECLStage
	err := r.db.GetContext(ctx, &stage, query, loanID)
	if err != nil {
		return nil, err
	}

	return &stage, nil
}

// SaveStage upserts the single live record per loan.
func (r *eclRepository) SaveStage(ctx context.Context, stage *domain.ECLStage) error {
	query := `
		INSERT INTO ecl_stages (id, loan_id, current_stage, stage_reason, effective_date, pd, lgd, ead, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (loan_id) DO UPDATE
		SET current_stage = EXCLUDED.current_stage,
		    stage_reason = EXCLUDED.stage_reason,
		    effective_date = EXCLUDED.effective_date,
		    pd = EXCLUDED.pd,
		    lgd = EXCLUDED.lgd,
		    ead = EXCLUDED.ead,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		stage.ID,
		stage.LoanID,
		stage.CurrentStage,
		stage.StageReason,
		stage.EffectiveDate,
		stage.PD,
		stage.LGD,
		stage.EAD,
		stage.UpdatedAt,
	)

	return err
}

func (r *eclRepository) CreateMovement(ctx context.Context, movement *domain.ECLMovement) error {
	query := `
		INSERT INTO ecl_movements (id, loan_id, from_stage, to_stage, direction, reason, moved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		movement.ID,
		movement.LoanID,
		movement.FromStage,
		movement.ToStage,
		movement.Direction,
		movement.Reason,
		movement.MovedAt,
	)

	return err
}

func (r *eclRepository) GetProvision(ctx context.Context, loanID string, date time.Time) (*domain.Provision, error) {
	query := `
		SELECT id, loan_id, provision_date, ecl_stage, ead, pd, lgd, ecl_12_month, ecl_lifetime, ecl_applied,
		       opening_provision, closing_provision, charge, release, created_at
		FROM provisions
		WHERE loan_id = $1 AND provision_date = $2
	`

	var provision domain.Provision
	err := r.db.GetContext(ctx, &provision, query, loanID, date)
	if err != nil {
		return nil, err
	}

	return &provision, nil
}

func (r *eclRepository) GetLatestProvisionBefore(ctx context.Context, loanID string, date time.Time) (*domain.Provision, error) {
	query := `
		SELECT id, loan_id, provision_date, ecl_stage, ead, pd, lgd, ecl_12_month, ecl_lifetime, ecl_applied,
		       opening_provision, closing_provision, charge, release, created_at
		FROM provisions
		WHERE loan_id = $1 AND provision_date < $2
		ORDER BY provision_date DESC
		LIMIT 1
	`

	var provision domain.Provision
	err := r.db.GetContext(ctx, &provision, query, loanID, date)
	if err != nil {
		return nil, err
	}

	return &provision, nil
}

func (r *eclRepository) CreateProvision(ctx context.Context, provision *domain.Provision) error {
	query := `
		INSERT INTO provisions (id, loan_id, provision_date, ecl_stage, ead, pd, lgd, ecl_12_month, ecl_lifetime, ecl_applied,
			opening_provision, closing_provision, charge, release, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(ctx, query,
		provision.ID,
		provision.LoanID,
		provision.ProvisionDate,
		provision.ECLStage,
		provision.EAD,
		provision.PD,
		provision.LGD,
		provision.ECL12Month,
		provision.ECLLifetime,
		provision.ECLApplied,
		provision.OpeningProvision,
		provision.ClosingProvision,
		provision.Charge,
		provision.Release,
		provision.CreatedAt,
	)

	return err
}

func (r *eclRepository) ListProvisionsByDate(ctx context.Context, date time.Time) ([]*domain.Provision, error) {
	query := `
		SELECT id, loan_id, provision_date, ecl_stage, ead, pd, lgd, ecl_12_month, ecl_lifetime, ecl_applied,
		       opening_provision, closing_provision, charge, release, created_at
		FROM provisions
		WHERE provision_date = $1
		ORDER BY loan_id
	`

	var provisions []*domain.Provision
	err := r.db.SelectContext(ctx, &provisions, query, date)
	if err != nil {
		return nil, err
	}

	return provisions, nil
}
