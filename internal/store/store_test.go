package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// openTestDB opens an in-memory database and applies the embedded schema
// without going through the migration runner.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	raw, err := migrationFS.ReadFile("migrations/0001_schema.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	up, _, _ := strings.Cut(string(raw), "-- +down")
	up = strings.TrimPrefix(strings.TrimSpace(up), "-- +up")
	if _, err := db.Exec(up); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func f64(v float64) *float64 { return &v }

func TestDailyUpsertReplacesExistingDay(t *testing.T) {
	db := openTestDB(t)
	repo := NewDailyRepository(db)
	ctx := context.Background()

	first := []DailyRecord{{
		Date:          "2025-01-01",
		StationID:     42,
		ProductionKWh: f64(10.5),
		FeedInKWh:     f64(3.2),
	}}
	res, err := repo.UpsertBatch(ctx, first)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if res.Written != 1 {
		t.Fatalf("written = %d, want 1", res.Written)
	}

	second := []DailyRecord{{
		Date:          "2025-01-01",
		StationID:     42,
		ProductionKWh: f64(12.0),
	}}
	if _, err := repo.UpsertBatch(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.Range(ctx, 42, "2025-01-01", "2025-01-01")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows = %d, want 1", len(got))
	}
	if got[0].ProductionKWh == nil || *got[0].ProductionKWh != 12.0 {
		t.Fatalf("production = %v, want 12.0", got[0].ProductionKWh)
	}
	if got[0].FeedInKWh != nil {
		t.Fatalf("feed-in = %v, want nil after replace", *got[0].FeedInKWh)
	}
}

func TestDailyUpsertRefreshesUpdatedAt(t *testing.T) {
	db := openTestDB(t)
	repo := NewDailyRepository(db)
	ctx := context.Background()

	rec := DailyRecord{Date: "2025-01-01", StationID: 42, ProductionKWh: f64(10)}
	if _, err := repo.UpsertBatch(ctx, []DailyRecord{rec}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Backdate the marker so a same-second rewrite is still observable.
	const backdated = "2000-01-01 00:00:00"
	if _, err := db.ExecContext(ctx, "UPDATE daily_data SET updated_at = ?", backdated); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	rec.ProductionKWh = f64(11)
	if _, err := repo.UpsertBatch(ctx, []DailyRecord{rec}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var updatedAt string
	err := db.QueryRowContext(ctx,
		"SELECT updated_at FROM daily_data WHERE date = ? AND station_id = ?",
		rec.Date, rec.StationID).Scan(&updatedAt)
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if updatedAt == backdated {
		t.Fatal("updated_at not refreshed by replace")
	}
}

func TestDailyUpsertPreservesNulls(t *testing.T) {
	db := openTestDB(t)
	repo := NewDailyRepository(db)
	ctx := context.Background()

	rec := DailyRecord{Date: "2025-02-10", StationID: 7, ConsumptionKWh: f64(4.5)}
	if _, err := repo.UpsertBatch(ctx, []DailyRecord{rec}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.Range(ctx, 7, "2025-02-10", "2025-02-10")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows = %d, want 1", len(got))
	}
	if got[0].ProductionKWh != nil {
		t.Fatalf("production = %v, want nil", *got[0].ProductionKWh)
	}
	if got[0].ConsumptionKWh == nil || *got[0].ConsumptionKWh != 4.5 {
		t.Fatalf("consumption = %v, want 4.5", got[0].ConsumptionKWh)
	}
}

func TestDailyUpsertBestEffortSkipsBadRows(t *testing.T) {
	db := openTestDB(t)
	repo := NewDailyRepository(db)
	ctx := context.Background()

	batch := []DailyRecord{
		{Date: "2025-03-01", StationID: 1},
		{Date: "", StationID: 1},
		{Date: "2025-03-02", StationID: 1},
	}
	res, err := repo.UpsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if res.Written != 2 || res.Skipped != 1 {
		t.Fatalf("written=%d skipped=%d, want 2/1", res.Written, res.Skipped)
	}
	if len(res.Failed) != 1 || res.Failed[0].Index != 1 {
		t.Fatalf("failed = %+v, want one failure at index 1", res.Failed)
	}
}

func TestDailyUpsertFailFast(t *testing.T) {
	db := openTestDB(t)
	repo := NewDailyRepository(db, WithDailyFailFast())
	ctx := context.Background()

	batch := []DailyRecord{
		{Date: "2025-03-01", StationID: 1},
		{Date: "", StationID: 1},
	}
	_, err := repo.UpsertBatch(ctx, batch)
	if err == nil {
		t.Fatal("expected error")
	}
	var rowErr RowError
	if !errors.As(err, &rowErr) || rowErr.Index != 1 {
		t.Fatalf("err = %v, want RowError at index 1", err)
	}

	got, err := repo.Range(ctx, 1, "2025-03-01", "2025-03-01")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("rows = %d, want rollback to leave nothing", len(got))
	}
}

func TestFrameInsertIgnoresDuplicates(t *testing.T) {
	db := openTestDB(t)
	repo := NewFrameRepository(db)
	ctx := context.Background()

	first := []FrameRecord{{
		Timestamp:         "2025-01-01 12:00:00",
		StationID:         42,
		ProductionPowerKW: f64(3.5),
	}}
	res, err := repo.InsertBatch(ctx, first)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if res.Written != 1 {
		t.Fatalf("written = %d, want 1", res.Written)
	}

	dup := []FrameRecord{{
		Timestamp:         "2025-01-01 12:00:00",
		StationID:         42,
		ProductionPowerKW: f64(9.9),
	}}
	res, err = repo.InsertBatch(ctx, dup)
	if err != nil {
		t.Fatalf("dup insert: %v", err)
	}
	if res.Written != 0 || res.Skipped != 1 {
		t.Fatalf("written=%d skipped=%d, want 0/1", res.Written, res.Skipped)
	}

	got, err := repo.Range(ctx, 42, "2025-01-01 00:00:00", "2025-01-01 23:59:59")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows = %d, want 1", len(got))
	}
	if got[0].ProductionPowerKW == nil || *got[0].ProductionPowerKW != 3.5 {
		t.Fatalf("production = %v, want first write kept", got[0].ProductionPowerKW)
	}
}

func TestFrameInsertRoundTripsPVColumns(t *testing.T) {
	db := openTestDB(t)
	repo := NewFrameRepository(db)
	ctx := context.Background()

	res, err := repo.InsertBatch(ctx, []FrameRecord{{
		Timestamp:   "2025-01-01 12:00:00",
		StationID:   42,
		PVPowerKW:   f64(4.2),
		WirePowerKW: f64(1.1),
	}})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.Written != 1 {
		t.Fatalf("written = %d, want 1", res.Written)
	}

	got, err := repo.Range(ctx, 42, "2025-01-01 00:00:00", "2025-01-01 23:59:59")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows = %d, want 1", len(got))
	}
	if got[0].PVPowerKW == nil || *got[0].PVPowerKW != 4.2 {
		t.Fatalf("pv = %v, want 4.2", got[0].PVPowerKW)
	}
	if got[0].GeneratorPowerKW != nil {
		t.Fatalf("generator = %v, want nil", *got[0].GeneratorPowerKW)
	}
	if got[0].WirePowerKW == nil || *got[0].WirePowerKW != 1.1 {
		t.Fatalf("wire = %v, want 1.1", got[0].WirePowerKW)
	}
}

func TestFrameInsertSkipsMissingTimestamp(t *testing.T) {
	db := openTestDB(t)
	repo := NewFrameRepository(db)
	ctx := context.Background()

	res, err := repo.InsertBatch(ctx, []FrameRecord{
		{Timestamp: "", StationID: 42},
		{Timestamp: "2025-01-01 12:05:00", StationID: 42},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.Written != 1 || res.Skipped != 1 {
		t.Fatalf("written=%d skipped=%d, want 1/1", res.Written, res.Skipped)
	}
}

func TestStationUpsertAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewStationRepository(db)
	ctx := context.Background()

	rec := StationRecord{
		StationID:      42,
		SerialNumber:   "SN123",
		Name:           "Roof A",
		CapacityKW:     f64(8.8),
		Address:        "Somewhere 1",
		ConnectionType: "grid-tied",
	}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rec.Name = "Roof A renamed"
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Roof A renamed" {
		t.Fatalf("name = %q, want renamed", got.Name)
	}
	if got.CapacityKW == nil || *got.CapacityKW != 8.8 {
		t.Fatalf("capacity = %v, want 8.8", got.CapacityKW)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("stations = %d, want 1", len(all))
	}
}

func TestRatesSetGetDelete(t *testing.T) {
	db := openTestDB(t)
	repo := NewRatesRepository(db)
	ctx := context.Background()

	rate := GridRate{Year: 2025, Month: 1, SellRateKWh: 0.12, BuyRateKWh: 0.30}
	if err := repo.Set(ctx, rate); err != nil {
		t.Fatalf("set: %v", err)
	}

	rate.BuyRateKWh = 0.28
	if err := repo.Set(ctx, rate); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := repo.Get(ctx, 2025, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.BuyRateKWh != 0.28 {
		t.Fatalf("buy rate = %v, want 0.28", got.BuyRateKWh)
	}

	if _, err := repo.Get(ctx, 2025, 2); !errors.Is(err, ErrRateNotFound) {
		t.Fatalf("missing month err = %v, want ErrRateNotFound", err)
	}

	if err := repo.Delete(ctx, 2025, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, 2025, 1); !errors.Is(err, ErrRateNotFound) {
		t.Fatalf("after delete err = %v, want ErrRateNotFound", err)
	}

	if err := repo.Delete(ctx, 2030, 5); err != nil {
		t.Fatalf("delete of missing month: %v", err)
	}

	if err := repo.Set(ctx, GridRate{Year: 2025, Month: 13}); err == nil {
		t.Fatal("expected error for month 13")
	}
}
