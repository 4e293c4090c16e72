package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const defaultRatesTable = "grid_rates"

// ErrRateNotFound is returned when no tariff row exists for a billing month.
var ErrRateNotFound = errors.New("rates repo: no rate for month")

// RatesRepository manages the per-month buy/sell tariff table reports join
// against.
type RatesRepository struct {
	db    *sql.DB
	table string
}

// NewRatesRepository constructs a repository with default table name.
func NewRatesRepository(db *sql.DB, opts ...RatesOption) *RatesRepository {
	repo := &RatesRepository{db: db, table: defaultRatesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RatesOption configures the repository.
type RatesOption func(*RatesRepository)

// WithRatesTable overrides the default table name.
func WithRatesTable(table string) RatesOption {
	return func(repo *RatesRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Set writes or replaces the tariff for one month.
func (r *RatesRepository) Set(ctx context.Context, rate GridRate) error {
	if r == nil || r.db == nil {
		return errors.New("rates repo: nil db")
	}
	if rate.Year < 2000 || rate.Month < 1 || rate.Month > 12 {
		return fmt.Errorf("rates repo: invalid month %d-%d", rate.Year, rate.Month)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (year, month, sell_rate_kwh, buy_rate_kwh)
VALUES (?, ?, ?, ?)
ON CONFLICT (year, month)
DO UPDATE SET
	sell_rate_kwh = excluded.sell_rate_kwh,
	buy_rate_kwh = excluded.buy_rate_kwh`, r.table)

	_, err := r.db.ExecContext(ctx, query, rate.Year, rate.Month, rate.SellRateKWh, rate.BuyRateKWh)
	return err
}

// Get returns the tariff for one month, or ErrRateNotFound.
func (r *RatesRepository) Get(ctx context.Context, year, month int) (GridRate, error) {
	var rate GridRate
	if r == nil || r.db == nil {
		return rate, errors.New("rates repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT year, month, sell_rate_kwh, buy_rate_kwh
FROM %s
WHERE year = ? AND month = ?`, r.table)

	err := r.db.QueryRowContext(ctx, query, year, month).Scan(
		&rate.Year,
		&rate.Month,
		&rate.SellRateKWh,
		&rate.BuyRateKWh,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return GridRate{}, ErrRateNotFound
	}
	if err != nil {
		return GridRate{}, err
	}
	return rate, nil
}

// Delete removes the tariff for one month. Deleting a month that has no row
// is not an error.
func (r *RatesRepository) Delete(ctx context.Context, year, month int) error {
	if r == nil || r.db == nil {
		return errors.New("rates repo: nil db")
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE year = ? AND month = ?`, r.table)
	_, err := r.db.ExecContext(ctx, query, year, month)
	return err
}

// List returns all tariffs ordered by year then month.
func (r *RatesRepository) List(ctx context.Context) ([]GridRate, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rates repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT year, month, sell_rate_kwh, buy_rate_kwh
FROM %s
ORDER BY year, month`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GridRate
	for rows.Next() {
		var rate GridRate
		if err := rows.Scan(&rate.Year, &rate.Month, &rate.SellRateKWh, &rate.BuyRateKWh); err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}
