package store

// DailyRecord is one day of energy aggregates for a station. Measured fields
// are pointers so a value the vendor never reported stays NULL instead of
// collapsing to zero.
type DailyRecord struct {
	Date           string
	StationID      int64
	ProductionKWh  *float64
	FeedInKWh      *float64
	PurchasedKWh   *float64
	ChargedKWh     *float64
	DischargedKWh  *float64
	ConsumptionKWh *float64
	FullPowerHours *float64
}

// FrameRecord is a single power sample for a station. Timestamp is the
// sample time formatted as "2006-01-02 15:04:05" in local time.
type FrameRecord struct {
	Timestamp          string
	StationID          int64
	ProductionPowerKW  *float64
	ConsumptionPowerKW *float64
	GridPowerKW        *float64
	BatteryPowerKW     *float64
	BatterySOCPct      *float64
	PVPowerKW          *float64
	GeneratorPowerKW   *float64
	WirePowerKW        *float64
}

// StationRecord mirrors the vendor's station metadata.
type StationRecord struct {
	StationID      int64
	SerialNumber   string
	Name           string
	CapacityKW     *float64
	Address        string
	ConnectionType string
}

// GridRate is the buy/sell tariff for one billing month.
type GridRate struct {
	Year        int
	Month       int
	SellRateKWh float64
	BuyRateKWh  float64
}

// RowError records a single row that failed to persist in a best-effort
// batch write.
type RowError struct {
	Index int
	Err   error
}

func (e RowError) Error() string { return e.Err.Error() }

func (e RowError) Unwrap() error { return e.Err }

// BatchResult summarizes a batch write.
type BatchResult struct {
	Written int
	Skipped int
	Failed  []RowError
}
