package usecase

import (
	"sort"
	"time"

	"TradePulse/internal/domain/models"
)

// Sector ETF universe for the rotation model.
var (
	CyclicalSymbols  = []string{"XLK", "XLF", "XLY", "XLI", "XLB", "XLE"}
	DefensiveSymbols = []string{"XLV", "XLP", "XLU", "XLRE"}
)

const (
	weekBars  = 5  // 1 trading week
	monthBars = 21 // 1 trading month

	rotationSpreadThreshold = 0.5 // percent, cyclical avg minus defensive avg
	ratingThreshold         = 1.0 // percent weekly change
)

// BuildSectorRotation compares trailing 1-week/1-month returns between the
// cyclical and defensive sector sets. Pure function of the enriched series;
// symbols with too little history are skipped.
func BuildSectorRotation(enriched map[string][]models.EnrichedBar, now time.Time) *models.SectorRotation {
	sr := &models.SectorRotation{GeneratedAt: now}

	var cycSum, defSum float64
	var cycN, defN int

	appendRows := func(symbols []string, class models.SectorClass) {
		for _, sym := range symbols {
			bars := enriched[sym]
			if len(bars) <= monthBars {
				continue
			}
			last := bars[len(bars)-1]
			week := pctChange(bars[len(bars)-1-weekBars].Close, last.Close)
			month := pctChange(bars[len(bars)-1-monthBars].Close, last.Close)

			row := models.SectorRow{
				Symbol:      sym,
				Price:       last.Close,
				WeekChange:  week,
				MonthChange: month,
				RSI:         last.RSI,
				Bias:        last.Bias,
				Class:       class,
				Rating:      rateWeekly(week),
			}
			sr.Rows = append(sr.Rows, row)

			if class == models.SectorCyclical {
				cycSum += week
				cycN++
			} else {
				defSum += week
				defN++
			}
		}
	}
	appendRows(CyclicalSymbols, models.SectorCyclical)
	appendRows(DefensiveSymbols, models.SectorDefensive)

	if cycN > 0 {
		sr.CyclicalAvg = cycSum / float64(cycN)
	}
	if defN > 0 {
		sr.DefensiveAvg = defSum / float64(defN)
	}
	sr.Spread = sr.CyclicalAvg - sr.DefensiveAvg

	switch {
	case sr.Spread > rotationSpreadThreshold:
		sr.Rotation = "Risk-On"
		sr.Description = "Tech Leading"
	case sr.Spread < -rotationSpreadThreshold:
		sr.Rotation = "Risk-Off"
		sr.Description = "Defensive Mode"
	default:
		sr.Rotation = "Neutral"
		sr.Description = "Mixed Signals"
	}

	sort.Slice(sr.Rows, func(i, j int) bool { return sr.Rows[i].WeekChange > sr.Rows[j].WeekChange })
	return sr
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

func rateWeekly(week float64) string {
	switch {
	case week > ratingThreshold:
		return "Overweight"
	case week < -ratingThreshold:
		return "Underweight"
	default:
		return "Neutral"
	}
}
