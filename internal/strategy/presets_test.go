package strategy

import (
	"testing"
)

func TestBuildFullyCharge(t *testing.T) {
	req, err := Build(PresetFullyCharge, "SN1", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.DeviceSN != "SN1" {
		t.Fatalf("device = %q", req.DeviceSN)
	}
	if len(req.TOUDays) != 7 {
		t.Fatalf("days = %d, want full week by default", len(req.TOUDays))
	}
	if req.TOUDays[0] != "SUNDAY" || req.TOUDays[6] != "SATURDAY" {
		t.Fatalf("days = %v, want SUNDAY..SATURDAY", req.TOUDays)
	}
	if len(req.TimeUseSettingItems) != 6 {
		t.Fatalf("slots = %d, want 6", len(req.TimeUseSettingItems))
	}
	if req.TOUAction != "on" {
		t.Fatalf("tou action = %q, want on", req.TOUAction)
	}
	if req.GridChargeAction != "on" {
		t.Fatalf("grid charge action = %q, want on", req.GridChargeAction)
	}
	if req.WorkMode != "ZERO_EXPORT_TO_CT" {
		t.Fatalf("work mode = %q", req.WorkMode)
	}
	for i, item := range req.TimeUseSettingItems {
		if !item.EnableGridCharge || !item.EnableGeneration {
			t.Fatalf("slot %d: grid charge or generation disabled", i)
		}
		if item.SOC != 90 {
			t.Fatalf("slot %d: soc = %d, want 90", i, item.SOC)
		}
	}
}

func TestBuildSelfConsumptionSellsSolarInstead(t *testing.T) {
	req, err := Build(PresetSelfConsumption, "SN1", []string{"sat", "sun"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := len(req.TOUDays); got != 2 {
		t.Fatalf("days = %v", req.TOUDays)
	}
	if req.TOUDays[0] != "SATURDAY" || req.TOUDays[1] != "SUNDAY" {
		t.Fatalf("days = %v, want uppercase full names", req.TOUDays)
	}
	if req.GridChargeAction != "" {
		t.Fatalf("grid charge action = %q, want unset", req.GridChargeAction)
	}
	if req.SolarSellAction != "on" {
		t.Fatalf("solar sell action = %q, want on", req.SolarSellAction)
	}
	for i, item := range req.TimeUseSettingItems {
		if item.SOC != 15 {
			t.Fatalf("slot %d: soc = %d, want 15", i, item.SOC)
		}
	}
}

func TestBuildFeedInGridSellingFirst(t *testing.T) {
	req, err := Build(PresetFeedInGrid, "SN1", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.WorkMode != "SELLING_FIRST" {
		t.Fatalf("work mode = %q", req.WorkMode)
	}
	if req.SolarSellAction != "on" {
		t.Fatalf("solar sell action = %q, want on", req.SolarSellAction)
	}
}

func TestBuildRejectsUnknownDay(t *testing.T) {
	if _, err := Build(PresetIdle, "SN1", []string{"someday"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildRejectsUnknownPreset(t *testing.T) {
	if _, err := Build(Preset("boost"), "SN1", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildRejectsEmptyDevice(t *testing.T) {
	if _, err := Build(PresetIdle, "", nil); err == nil {
		t.Fatal("expected error")
	}
}
