package ingest

import (
	"reflect"
	"testing"
	"time"

	"solarsync/internal/deyecloud"
)

func fp(v float64) *float64 { return &v }

func TestMapFrameConvertsWattsPreservingNulls(t *testing.T) {
	ts := int64(1735732800) // 2025-01-01 12:00:00 UTC
	item := deyecloud.StationDataItem{
		TimeStamp:       &ts,
		GenerationPower: fp(3500),
		GridPower:       fp(0),
		BatterySOC:      fp(87.5),
	}

	rec, ok := MapFrame(42, item, time.UTC)
	if !ok {
		t.Fatal("row dropped")
	}
	if rec.Timestamp != "2025-01-01 12:00:00" {
		t.Fatalf("timestamp = %q", rec.Timestamp)
	}
	if rec.StationID != 42 {
		t.Fatalf("station = %d", rec.StationID)
	}
	if rec.ProductionPowerKW == nil || *rec.ProductionPowerKW != 3.5 {
		t.Fatalf("production = %v, want 3.5", rec.ProductionPowerKW)
	}
	if rec.GridPowerKW == nil || *rec.GridPowerKW != 0 {
		t.Fatalf("grid = %v, want explicit 0", rec.GridPowerKW)
	}
	if rec.ConsumptionPowerKW != nil {
		t.Fatalf("consumption = %v, want nil", *rec.ConsumptionPowerKW)
	}
	if rec.BatterySOCPct == nil || *rec.BatterySOCPct != 87.5 {
		t.Fatalf("soc = %v, want unconverted 87.5", rec.BatterySOCPct)
	}
	if rec.PVPowerKW == nil || *rec.PVPowerKW != 3.5 {
		t.Fatalf("pv = %v, want 3.5", rec.PVPowerKW)
	}
	if rec.GeneratorPowerKW != nil {
		t.Fatalf("generator = %v, want nil", *rec.GeneratorPowerKW)
	}
}

func TestMapFrameDropsMissingTimestamp(t *testing.T) {
	item := deyecloud.StationDataItem{GenerationPower: fp(1000)}
	if _, ok := MapFrame(42, item, time.UTC); ok {
		t.Fatal("expected drop")
	}
}

func TestMapFrameIsIdempotent(t *testing.T) {
	ts := int64(1735732800)
	item := deyecloud.StationDataItem{
		TimeStamp:       &ts,
		GenerationPower: fp(1234),
		BatterySOC:      fp(50),
	}

	a, okA := MapFrame(42, item, time.UTC)
	b, okB := MapFrame(42, item, time.UTC)
	if !okA || !okB {
		t.Fatal("row dropped")
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("outputs differ: %+v vs %+v", a, b)
	}
}

func TestMapDaily(t *testing.T) {
	item := deyecloud.StationDataItem{
		Year:            2025,
		Month:           1,
		Day:             3,
		GenerationValue: fp(12.4),
		FullPowerHours:  fp(3.1),
	}

	rec, ok := MapDaily(42, item)
	if !ok {
		t.Fatal("row dropped")
	}
	if rec.Date != "2025-01-03" {
		t.Fatalf("date = %q", rec.Date)
	}
	if rec.ProductionKWh == nil || *rec.ProductionKWh != 12.4 {
		t.Fatalf("production = %v", rec.ProductionKWh)
	}
	if rec.FeedInKWh != nil {
		t.Fatalf("feed-in = %v, want nil", *rec.FeedInKWh)
	}

	if _, ok := MapDaily(42, deyecloud.StationDataItem{Year: 2025}); ok {
		t.Fatal("expected drop for missing month/day")
	}
}

func TestMapStation(t *testing.T) {
	rec := MapStation(deyecloud.Station{
		ID:                      7,
		SN:                      "SN7",
		Name:                    "Barn",
		InstalledCapacity:       9.6,
		LocationAddress:         "Field 2",
		GridInterconnectionType: "hybrid",
	})
	if rec.StationID != 7 || rec.SerialNumber != "SN7" || rec.Name != "Barn" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.CapacityKW == nil || *rec.CapacityKW != 9.6 {
		t.Fatalf("capacity = %v", rec.CapacityKW)
	}
}
