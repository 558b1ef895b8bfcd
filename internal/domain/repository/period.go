package repository

// Period represents a daily-bar lookback window.
type Period string

const (
	P3Mo Period = "3mo"
	P6Mo Period = "6mo"
	P1Y  Period = "1y"
)

// Bars returns the number of trading days covered by the period.
func (p Period) Bars() int {
	switch p {
	case P3Mo:
		return 63
	case P6Mo:
		return 126
	case P1Y:
		return 252
	default:
		return 126
	}
}

// IsValidPeriod returns true if p is a supported period.
func IsValidPeriod(p Period) bool {
	switch p {
	case P3Mo, P6Mo, P1Y:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the default lookback period.
func DefaultPeriod() Period { return P6Mo }

// NormalizePeriod converts a raw string to a valid period (or default).
func NormalizePeriod(s string) Period {
	if s == "" {
		return DefaultPeriod()
	}
	p := Period(s)
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}
