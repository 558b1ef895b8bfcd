package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2024-10-10")
	if !ok {
		t.Fatalf("expected ok")
	}
	if DayKey(got) != "2024-10-10" {
		t.Fatalf("unexpected day %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestAddTradingDaysSkipsWeekend(t *testing.T) {
	fri := time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC) // Friday
	got := AddTradingDays(fri, 1)
	if got.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %v", got.Weekday())
	}
	got = AddTradingDays(fri, 5)
	if DayKey(got) != "2024-10-18" {
		t.Fatalf("expected next Friday, got %v", DayKey(got))
	}
}

func TestIsTradingDay(t *testing.T) {
	sat := time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC)
	if IsTradingDay(sat) {
		t.Fatalf("saturday is not a trading day")
	}
	mon := time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC)
	if !IsTradingDay(mon) {
		t.Fatalf("monday is a trading day")
	}
}
