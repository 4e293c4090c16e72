package deyecloud

// envelope is the common response wrapper on vendor endpoints.
type envelope struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}

// Station describes a physical installation as reported by /station/list.
type Station struct {
	ID                      int64   `json:"id"`
	SN                      string  `json:"sn"`
	Name                    string  `json:"name"`
	InstalledCapacity       float64 `json:"installedCapacity"`
	LocationAddress         string  `json:"locationAddress"`
	GridInterconnectionType string  `json:"gridInterconnectionType"`
}

type stationListResponse struct {
	envelope
	StationList []Station `json:"stationList"`
}

// StationDataItem is one telemetry point from /station/history. Daily items
// (granularity 2) carry the Year/Month/Day and *Value energy fields; frame
// items (granularity 1) carry TimeStamp and the *Power fields in watts.
// Pointers preserve the difference between "0 measured" and "not reported".
type StationDataItem struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`

	GenerationValue  *float64 `json:"generationValue"`
	GridValue        *float64 `json:"gridValue"`
	PurchaseValue    *float64 `json:"purchaseValue"`
	ChargeValue      *float64 `json:"chargeValue"`
	DischargeValue   *float64 `json:"dischargeValue"`
	ConsumptionValue *float64 `json:"consumptionValue"`
	FullPowerHours   *float64 `json:"fullPowerHours"`

	TimeStamp        *int64   `json:"timeStamp"`
	GenerationPower  *float64 `json:"generationPower"`
	ConsumptionPower *float64 `json:"consumptionPower"`
	GridPower        *float64 `json:"gridPower"`
	BatteryPower     *float64 `json:"batteryPower"`
	BatterySOC       *float64 `json:"batterySOC"`
	WirePower        *float64 `json:"wirePower"`
}

type stationHistoryResponse struct {
	envelope
	StationDataItems []StationDataItem `json:"stationDataItems"`
}

type orderSubmitResponse struct {
	envelope
	OrderID int64 `json:"orderId"`
}

// Order status codes as documented by the vendor.
const (
	OrderStatusCreated   = 0
	OrderStatusSending   = 100
	OrderStatusSucceeded = 666
)

// Order is the vendor-side asynchronous job for a device-control command.
// Orders are transient; they are never persisted locally.
type Order struct {
	OrderID        int64  `json:"orderId"`
	Status         int    `json:"status"`
	AnalysisResult string `json:"analysisResult"`
	Error          string `json:"error"`
}

// Pending reports whether the order is still in flight.
func (o *Order) Pending() bool {
	return o.Status == OrderStatusCreated || o.Status == OrderStatusSending
}

// Succeeded reports whether the order reached the success terminal state.
func (o *Order) Succeeded() bool {
	return o.Status == OrderStatusSucceeded
}

// TimeUseSettingItem is one slot of a time-of-use schedule.
type TimeUseSettingItem struct {
	EnableGeneration bool   `json:"enableGeneration"`
	EnableGridCharge bool   `json:"enableGridCharge"`
	SOC              int    `json:"soc"`
	Power            int    `json:"power"`
	Time             string `json:"time"`
}

// DynamicControlRequest is the /strategy/dynamicControl payload.
type DynamicControlRequest struct {
	DeviceSN            string               `json:"deviceSn"`
	GridChargeAction    string               `json:"gridChargeAction,omitempty"`
	SolarSellAction     string               `json:"solarSellAction,omitempty"`
	TOUAction           string               `json:"touAction"`
	TOUDays             []string             `json:"touDays"`
	WorkMode            string               `json:"workMode"`
	TimeUseSettingItems []TimeUseSettingItem `json:"timeUseSettingItems"`
}
