package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validBar(d time.Time) Bar {
	return Bar{Date: d, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
}

func TestNewBarSeries(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := []Bar{validBar(d), validBar(d.AddDate(0, 0, 1)), validBar(d.AddDate(0, 0, 2))}

	s, err := NewBarSeries("SPY", bars)
	if err != nil {
		t.Fatalf("valid series rejected: %v", err)
	}
	if s.Symbol != "SPY" || len(s.Bars) != 3 {
		t.Errorf("series = %q/%d bars, want SPY/3", s.Symbol, len(s.Bars))
	}
}

func TestNewBarSeriesRejects(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		mutate func(*Bar)
		reason string
	}{
		{"zero close", func(b *Bar) { b.Close = 0 }, "non-positive price"},
		{"negative open", func(b *Bar) { b.Open = -1 }, "non-positive price"},
		{"high below close", func(b *Bar) { b.High = 99.5 }, "high below open/close"},
		{"low above open", func(b *Bar) { b.Low = 100.5 }, "low above open/close"},
		{"negative volume", func(b *Bar) { b.Volume = -1 }, "negative volume"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bars := []Bar{validBar(d), validBar(d.AddDate(0, 0, 1))}
			tc.mutate(&bars[1])

			_, err := NewBarSeries("SPY", bars)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if verr.Index != 1 || verr.Reason != tc.reason {
				t.Errorf("got index=%d reason=%q, want 1/%q", verr.Index, verr.Reason, tc.reason)
			}
		})
	}
}

func TestNewBarSeriesRejectsNonAscendingDates(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	dup := []Bar{validBar(d), validBar(d)}
	if _, err := NewBarSeries("SPY", dup); err == nil {
		t.Errorf("duplicate dates accepted")
	}

	back := []Bar{validBar(d), validBar(d.AddDate(0, 0, -1))}
	_, err := NewBarSeries("SPY", back)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != "date not strictly ascending" {
		t.Errorf("got %v, want ascending-date ValidationError", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Symbol: "SPY", Index: 7, Reason: "negative volume"}
	msg := err.Error()
	for _, part := range []string{"SPY", "7", "negative volume"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error %q missing %q", msg, part)
		}
	}
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		votes int
		want  Tier
	}{
		{4, TierUltra},
		{3, TierSuper},
		{2, TierPartial},
		{1, TierNone},
		{0, TierNone},
	}
	for _, tc := range cases {
		if got := TierFor(tc.votes); got != tc.want {
			t.Errorf("TierFor(%d) = %q, want %q", tc.votes, got, tc.want)
		}
	}
}

func TestMaxVotes(t *testing.T) {
	r := &ConsensusResult{CallVotes: 1, PutVotes: 3, HoldVotes: 0}
	if got := r.MaxVotes(); got != 3 {
		t.Errorf("MaxVotes = %d, want 3", got)
	}

	// HOLD votes are not a direction and never win.
	quiet := &ConsensusResult{HoldVotes: 4}
	if got := quiet.MaxVotes(); got != 0 {
		t.Errorf("MaxVotes = %d, want 0 for all-hold", got)
	}
	if got := TierFor(quiet.MaxVotes()); got != TierNone {
		t.Errorf("tier = %q, want NONE for all-hold", got)
	}
}
