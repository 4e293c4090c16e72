package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const defaultStationTable = "station_info"

// StationRepository mirrors vendor station metadata locally.
type StationRepository struct {
	db    *sql.DB
	table string
}

// NewStationRepository constructs a repository with default table name.
func NewStationRepository(db *sql.DB, opts ...StationOption) *StationRepository {
	repo := &StationRepository{db: db, table: defaultStationTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// StationOption configures the repository.
type StationOption func(*StationRepository)

// WithStationTable overrides the default table name.
func WithStationTable(table string) StationOption {
	return func(repo *StationRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Upsert writes or refreshes one station row.
func (r *StationRepository) Upsert(ctx context.Context, rec StationRecord) error {
	if r == nil || r.db == nil {
		return errors.New("station repo: nil db")
	}
	if rec.StationID == 0 {
		return errors.New("station repo: missing station id")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	station_id,
	serial_number,
	name,
	capacity_kw,
	address,
	connection_type,
	updated_at
) VALUES (
	?, ?, ?, ?, ?, ?, datetime('now')
)
ON CONFLICT (station_id)
DO UPDATE SET
	serial_number = excluded.serial_number,
	name = excluded.name,
	capacity_kw = excluded.capacity_kw,
	address = excluded.address,
	connection_type = excluded.connection_type,
	updated_at = datetime('now')`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		rec.StationID,
		rec.SerialNumber,
		rec.Name,
		nullFloat(rec.CapacityKW),
		rec.Address,
		rec.ConnectionType,
	)
	return err
}

// Get returns one station by id, or sql.ErrNoRows when it is unknown.
func (r *StationRepository) Get(ctx context.Context, stationID int64) (StationRecord, error) {
	var rec StationRecord
	if r == nil || r.db == nil {
		return rec, errors.New("station repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT station_id, serial_number, name, capacity_kw, address, connection_type
FROM %s
WHERE station_id = ?`, r.table)

	var capacity sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, stationID).Scan(
		&rec.StationID,
		&rec.SerialNumber,
		&rec.Name,
		&capacity,
		&rec.Address,
		&rec.ConnectionType,
	)
	if err != nil {
		return StationRecord{}, err
	}
	rec.CapacityKW = floatPtr(capacity)
	return rec, nil
}

// List returns all known stations ordered by id.
func (r *StationRepository) List(ctx context.Context) ([]StationRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT station_id, serial_number, name, capacity_kw, address, connection_type
FROM %s
ORDER BY station_id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StationRecord
	for rows.Next() {
		var rec StationRecord
		var capacity sql.NullFloat64
		if err := rows.Scan(
			&rec.StationID,
			&rec.SerialNumber,
			&rec.Name,
			&capacity,
			&rec.Address,
			&rec.ConnectionType,
		); err != nil {
			return nil, err
		}
		rec.CapacityKW = floatPtr(capacity)
		out = append(out, rec)
	}
	return out, rows.Err()
}
