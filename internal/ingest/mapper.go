package ingest

import (
	"fmt"
	"time"

	"solarsync/internal/deyecloud"
	"solarsync/internal/store"
)

const frameTimeLayout = "2006-01-02 15:04:05"

// MapDaily turns a daily-granularity vendor item into a storage row. Vendor
// energy values are already kWh and pass through unchanged; an unreported
// field stays nil. The second return is false when the item carries no date.
func MapDaily(stationID int64, item deyecloud.StationDataItem) (store.DailyRecord, bool) {
	if item.Year == 0 || item.Month == 0 || item.Day == 0 {
		return store.DailyRecord{}, false
	}
	return store.DailyRecord{
		Date:           fmt.Sprintf("%04d-%02d-%02d", item.Year, item.Month, item.Day),
		StationID:      stationID,
		ProductionKWh:  item.GenerationValue,
		FeedInKWh:      item.GridValue,
		PurchasedKWh:   item.PurchaseValue,
		ChargedKWh:     item.ChargeValue,
		DischargedKWh:  item.DischargeValue,
		ConsumptionKWh: item.ConsumptionValue,
		FullPowerHours: item.FullPowerHours,
	}, true
}

// MapFrame turns a frame-granularity vendor item into a storage row. Power
// fields arrive in watts and are divided by 1000; a nil input stays nil so
// "not reported" never collapses to "0 kW measured". SOC is a percentage and
// passes through. The second return is false when the timestamp is missing,
// since such a row cannot satisfy the (timestamp, station) key.
func MapFrame(stationID int64, item deyecloud.StationDataItem, loc *time.Location) (store.FrameRecord, bool) {
	if item.TimeStamp == nil {
		return store.FrameRecord{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	return store.FrameRecord{
		Timestamp:          time.Unix(*item.TimeStamp, 0).In(loc).Format(frameTimeLayout),
		StationID:          stationID,
		ProductionPowerKW:  wattsToKW(item.GenerationPower),
		ConsumptionPowerKW: wattsToKW(item.ConsumptionPower),
		GridPowerKW:        wattsToKW(item.GridPower),
		BatteryPowerKW:     wattsToKW(item.BatteryPower),
		BatterySOCPct:      item.BatterySOC,
		// The vendor has no dedicated PV or generator channel; generation
		// power doubles as PV and the generator column stays NULL.
		PVPowerKW:        wattsToKW(item.GenerationPower),
		GeneratorPowerKW: nil,
		WirePowerKW:      wattsToKW(item.WirePower),
	}, true
}

// MapStation turns vendor station metadata into a storage row.
func MapStation(s deyecloud.Station) store.StationRecord {
	capacity := s.InstalledCapacity
	return store.StationRecord{
		StationID:      s.ID,
		SerialNumber:   s.SN,
		Name:           s.Name,
		CapacityKW:     &capacity,
		Address:        s.LocationAddress,
		ConnectionType: s.GridInterconnectionType,
	}
}

func wattsToKW(w *float64) *float64 {
	if w == nil {
		return nil
	}
	kw := *w / 1000
	return &kw
}
