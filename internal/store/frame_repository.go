package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const defaultFrameTable = "daily_logs"

// FrameRepository persists power samples. A sample already stored for the
// same (timestamp, station) pair is left untouched, so re-running a backfill
// over an already-covered window is harmless.
type FrameRepository struct {
	db    *sql.DB
	table string
}

// NewFrameRepository constructs a repository with default table name.
func NewFrameRepository(db *sql.DB, opts ...FrameOption) *FrameRepository {
	repo := &FrameRepository{db: db, table: defaultFrameTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// FrameOption configures the repository.
type FrameOption func(*FrameRepository)

// WithFrameTable overrides the default table name.
func WithFrameTable(table string) FrameOption {
	return func(repo *FrameRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// InsertBatch writes records in one transaction, ignoring duplicates. The
// result distinguishes newly written rows from rows skipped because an equal
// (timestamp, station) pair already exists.
func (r *FrameRepository) InsertBatch(ctx context.Context, records []FrameRecord) (BatchResult, error) {
	var res BatchResult
	if r == nil || r.db == nil {
		return res, errors.New("frame repo: nil db")
	}
	if len(records) == 0 {
		return res, nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	timestamp,
	station_id,
	production_power_kw,
	consumption_power_kw,
	grid_power_kw,
	battery_power_kw,
	battery_soc_pct,
	pv_power_kw,
	generator_power_kw,
	wire_power_kw
) VALUES (
	?, ?, ?, ?, ?, ?, ?, ?, ?, ?
)
ON CONFLICT (timestamp, station_id) DO NOTHING`, r.table)

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
		if rec.Timestamp == "" || rec.StationID == 0 {
			res.Failed = append(res.Failed, RowError{Index: i, Err: errors.New("frame repo: missing timestamp or station")})
			res.Skipped++
			continue
		}

		result, err := stmt.ExecContext(
			ctx,
			rec.Timestamp,
			rec.StationID,
			nullFloat(rec.ProductionPowerKW),
			nullFloat(rec.ConsumptionPowerKW),
			nullFloat(rec.GridPowerKW),
			nullFloat(rec.BatteryPowerKW),
			nullFloat(rec.BatterySOCPct),
			nullFloat(rec.PVPowerKW),
			nullFloat(rec.GeneratorPowerKW),
			nullFloat(rec.WirePowerKW),
		)
		if err != nil {
			res.Failed = append(res.Failed, RowError{Index: i, Err: err})
			res.Skipped++
			continue
		}
		affected, err := result.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return BatchResult{}, err
		}
		if affected == 0 {
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

// Range returns the stored samples for a station between start and end
// timestamps, both inclusive, ordered by timestamp.
func (r *FrameRepository) Range(ctx context.Context, stationID int64, start, end string) ([]FrameRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("frame repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT timestamp, station_id, production_power_kw, consumption_power_kw,
	grid_power_kw, battery_power_kw, battery_soc_pct, pv_power_kw,
	generator_power_kw, wire_power_kw
FROM %s
WHERE station_id = ? AND timestamp >= ? AND timestamp <= ?
ORDER BY timestamp`, r.table)

	rows, err := r.db.QueryContext(ctx, query, stationID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FrameRecord
	for rows.Next() {
		var rec FrameRecord
		var production, consumption, grid, battery, soc, pv, generator, wire sql.NullFloat64
		if err := rows.Scan(
			&rec.Timestamp,
			&rec.StationID,
			&production,
			&consumption,
			&grid,
			&battery,
			&soc,
			&pv,
			&generator,
			&wire,
		); err != nil {
			return nil, err
		}
		rec.ProductionPowerKW = floatPtr(production)
		rec.ConsumptionPowerKW = floatPtr(consumption)
		rec.GridPowerKW = floatPtr(grid)
		rec.BatteryPowerKW = floatPtr(battery)
		rec.BatterySOCPct = floatPtr(soc)
		rec.PVPowerKW = floatPtr(pv)
		rec.GeneratorPowerKW = floatPtr(generator)
		rec.WirePowerKW = floatPtr(wire)
		out = append(out, rec)
	}
	return out, rows.Err()
}
