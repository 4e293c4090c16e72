package main

import (
	"testing"
	"time"
)

func TestParseRangeDates(t *testing.T) {
	start, end, err := parseRange([]string{"2025-01-01", "2025-01-31"}, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if start.Format("2006-01-02") != "2025-01-01" || end.Format("2006-01-02") != "2025-01-31" {
		t.Fatalf("range = %v..%v", start, end)
	}
}

func TestParseRangeShortcut(t *testing.T) {
	start, end, err := parseRange([]string{"last7"}, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days != 7 {
		t.Fatalf("days = %d, want 7", days)
	}
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	if end.Format("2006-01-02") != yesterday {
		t.Fatalf("end = %v, want yesterday", end)
	}
}

func TestParseRangeRejectsGarbage(t *testing.T) {
	for _, args := range [][]string{{}, {"soon"}, {"2025-01-01"}, {"2025-13-01", "2025-01-02"}} {
		if _, _, err := parseRange(args, time.UTC); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestParseDayCount(t *testing.T) {
	cases := map[string]int{"last7": 7, "last30": 30, "14": 14}
	for in, want := range cases {
		got, err := parseDayCount(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if got != want {
			t.Fatalf("%s = %d, want %d", in, got, want)
		}
	}
	for _, in := range []string{"0", "-3", "weekly"} {
		if _, err := parseDayCount(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestParseUint16(t *testing.T) {
	cases := map[string]uint16{"100": 100, "0x100": 256, "0XFF": 255}
	for in, want := range cases {
		got, err := parseUint16(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if got != want {
			t.Fatalf("%s = %d, want %d", in, got, want)
		}
	}
	if _, err := parseUint16("65536"); err == nil {
		t.Fatal("expected overflow error")
	}
}
