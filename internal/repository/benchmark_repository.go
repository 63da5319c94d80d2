package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/crednine/loan-engine/internal/rate"
	customError "github.com/crednine/loan-engine/pkg/errors"
)

// benchmarkRepository serves benchmark rates from the rate history table.
// The rate in force on a date is the latest fixing on or before it.
type benchmarkRepository struct {
	db *sqlx.DB
}

func NewBenchmarkRepository(db *sqlx.DB) rate.BenchmarkProvider {
	return &benchmarkRepository{db: db}
}

func (r *benchmarkRepository) Rate(ctx context.Context, benchmark string, asOf time.Time) (decimal.Decimal, error) {
	query := `
		SELECT rate FROM benchmark_rates
		WHERE benchmark = $1 AND rate_date <= $2
		ORDER BY rate_date DESC
		LIMIT 1
	`

	var rate decimal.Decimal
	err := r.db.GetContext(ctx, &rate, query, benchmark, asOf)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, customError.ErrMissingBenchmarkRate
		}
		return decimal.Zero, err
	}

	return rate, nil
}
