// Package strategy builds time-of-use control payloads for the vendor's
// dynamic-control endpoint from a small set of named operating presets.
package strategy

import (
	"fmt"
	"strings"

	"solarsync/internal/deyecloud"
)

// Preset names an inverter operating profile.
type Preset string

const (
	// PresetFullyCharge charges the battery from grid and PV up to a high
	// target in every slot, ahead of an outage or a cheap-tariff window.
	PresetFullyCharge Preset = "fully-charge"
	// PresetSelfConsumption discharges down to a safety floor and keeps
	// export disabled, the default economic mode.
	PresetSelfConsumption Preset = "self-consumption"
	// PresetFeedInGrid keeps the battery near its floor so PV surplus is
	// exported instead of stored.
	PresetFeedInGrid Preset = "feed-in-grid"
	// PresetIdle holds the current charge and stops the battery cycling.
	PresetIdle Preset = "idle"
)

// The vendor takes full uppercase day names, Sunday first.
var allDays = []string{"SUNDAY", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"}

// Slot boundaries of the vendor's six-slot schedule.
var slotTimes = []string{"00:00", "04:00", "08:00", "12:00", "16:00", "20:00"}

const defaultSlotPowerW = 5000

// Build assembles the dynamic-control request for a preset. An empty days
// slice applies the schedule to the whole week; day names are matched case
// insensitively.
func Build(preset Preset, deviceSN string, days []string) (deyecloud.DynamicControlRequest, error) {
	if deviceSN == "" {
		return deyecloud.DynamicControlRequest{}, fmt.Errorf("strategy: empty device sn")
	}
	days, err := normalizeDays(days)
	if err != nil {
		return deyecloud.DynamicControlRequest{}, err
	}

	var soc int
	gridCharge := false
	var workMode string
	switch preset {
	case PresetFullyCharge:
		soc = 90
		gridCharge = true
		workMode = "ZERO_EXPORT_TO_CT"
	case PresetSelfConsumption:
		soc = 15
		workMode = "ZERO_EXPORT_TO_CT"
	case PresetFeedInGrid:
		soc = 15
		workMode = "SELLING_FIRST"
	case PresetIdle:
		soc = 70
		workMode = "SELLING_FIRST"
	default:
		return deyecloud.DynamicControlRequest{}, fmt.Errorf("strategy: unknown preset %q", preset)
	}

	items := make([]deyecloud.TimeUseSettingItem, 0, len(slotTimes))
	for _, at := range slotTimes {
		items = append(items, deyecloud.TimeUseSettingItem{
			EnableGeneration: true,
			EnableGridCharge: true,
			SOC:              soc,
			Power:            defaultSlotPowerW,
			Time:             at,
		})
	}

	req := deyecloud.DynamicControlRequest{
		DeviceSN:            deviceSN,
		TOUAction:           "on",
		TOUDays:             days,
		WorkMode:            workMode,
		TimeUseSettingItems: items,
	}
	if gridCharge {
		req.GridChargeAction = "on"
	} else {
		req.SolarSellAction = "on"
	}
	return req, nil
}

func normalizeDays(days []string) ([]string, error) {
	if len(days) == 0 {
		return allDays, nil
	}
	out := make([]string, 0, len(days))
	for _, d := range days {
		name := strings.ToUpper(d)
		full := ""
		for _, want := range allDays {
			// Full names and three-letter abbreviations both work.
			if name == want || (len(name) == 3 && strings.HasPrefix(want, name)) {
				full = want
				break
			}
		}
		if full == "" {
			return nil, fmt.Errorf("strategy: unknown day %q", d)
		}
		out = append(out, full)
	}
	return out, nil
}

// Presets lists the known preset names, for CLI help output.
func Presets() []Preset {
	return []Preset{PresetFullyCharge, PresetSelfConsumption, PresetFeedInGrid, PresetIdle}
}
