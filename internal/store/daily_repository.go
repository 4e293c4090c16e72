package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const defaultDailyTable = "daily_data"

// DailyRepository persists per-day energy aggregates. Re-fetching a day the
// vendor has since finalized replaces the stored row.
type DailyRepository struct {
	db       *sql.DB
	table    string
	failFast bool
}

// NewDailyRepository constructs a repository with default table name.
func NewDailyRepository(db *sql.DB, opts ...DailyOption) *DailyRepository {
	repo := &DailyRepository{db: db, table: defaultDailyTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// DailyOption configures the repository.
type DailyOption func(*DailyRepository)

// WithDailyTable overrides the default table name.
func WithDailyTable(table string) DailyOption {
	return func(repo *DailyRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// WithDailyFailFast makes UpsertBatch abort and roll back on the first bad
// row instead of skipping it.
func WithDailyFailFast() DailyOption {
	return func(repo *DailyRepository) {
		repo.failFast = true
	}
}

// UpsertBatch writes records in one transaction. A record for an existing
// (date, station) pair overwrites the stored row. By default malformed rows
// are recorded in the result and the rest of the batch still commits.
func (r *DailyRepository) UpsertBatch(ctx context.Context, records []DailyRecord) (BatchResult, error) {
	var res BatchResult
	if r == nil || r.db == nil {
		return res, errors.New("daily repo: nil db")
	}
	if len(records) == 0 {
		return res, nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	date,
	station_id,
	production_kwh,
	feed_in_kwh,
	purchased_kwh,
	charged_kwh,
	discharged_kwh,
	consumption_kwh,
	full_power_hours
) VALUES (
	?, ?, ?, ?, ?, ?, ?, ?, ?
)
ON CONFLICT (date, station_id)
DO UPDATE SET
	production_kwh = excluded.production_kwh,
	feed_in_kwh = excluded.feed_in_kwh,
	purchased_kwh = excluded.purchased_kwh,
	charged_kwh = excluded.charged_kwh,
	discharged_kwh = excluded.discharged_kwh,
	consumption_kwh = excluded.consumption_kwh,
	full_power_hours = excluded.full_power_hours,
	updated_at = datetime('now')`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return res, err
	}
	defer stmt.Close()

	for i, rec := range records {
		if rec.Date == "" || rec.StationID == 0 {
			rowErr := RowError{Index: i, Err: errors.New("daily repo: missing date or station")}
			if r.failFast {
				_ = tx.Rollback()
				return BatchResult{}, rowErr
			}
			res.Failed = append(res.Failed, rowErr)
			res.Skipped++
			continue
		}

		if _, err := stmt.ExecContext(
			ctx,
			rec.Date,
			rec.StationID,
			nullFloat(rec.ProductionKWh),
			nullFloat(rec.FeedInKWh),
			nullFloat(rec.PurchasedKWh),
			nullFloat(rec.ChargedKWh),
			nullFloat(rec.DischargedKWh),
			nullFloat(rec.ConsumptionKWh),
			nullFloat(rec.FullPowerHours),
		); err != nil {
			rowErr := RowError{Index: i, Err: err}
			if r.failFast {
				_ = tx.Rollback()
				return BatchResult{}, rowErr
			}
			res.Failed = append(res.Failed, rowErr)
			res.Skipped++
			continue
		}
		res.Written++
	}

	if err := tx.Commit(); err != nil {
		return BatchResult{}, err
	}
	return res, nil
}

// Range returns the stored rows for a station between start and end dates,
// both inclusive, ordered by date.
func (r *DailyRepository) Range(ctx context.Context, stationID int64, start, end string) ([]DailyRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("daily repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT date, station_id, production_kwh, feed_in_kwh, purchased_kwh,
	charged_kwh, discharged_kwh, consumption_kwh, full_power_hours
FROM %s
WHERE station_id = ? AND date >= ? AND date <= ?
ORDER BY date`, r.table)

	rows, err := r.db.QueryContext(ctx, query, stationID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyRecord
	for rows.Next() {
		var rec DailyRecord
		var production, feedIn, purchased, charged, discharged, consumption, fph sql.NullFloat64
		if err := rows.Scan(
			&rec.Date,
			&rec.StationID,
			&production,
			&feedIn,
			&purchased,
			&charged,
			&discharged,
			&consumption,
			&fph,
		); err != nil {
			return nil, err
		}
		rec.ProductionKWh = floatPtr(production)
		rec.FeedInKWh = floatPtr(feedIn)
		rec.PurchasedKWh = floatPtr(purchased)
		rec.ChargedKWh = floatPtr(charged)
		rec.DischargedKWh = floatPtr(discharged)
		rec.ConsumptionKWh = floatPtr(consumption)
		rec.FullPowerHours = floatPtr(fph)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
