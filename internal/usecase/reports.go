package usecase

import (
	"sort"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/util"
)

const (
	portfolioHoldDays = 5   // trading days until expiry
	entryBandATR      = 0.5 // half an ATR around the close
)

// FilterTier returns the results at or above the given tier. Tier order is
// NONE < PARTIAL < SUPER < ULTRA.
func FilterTier(results []*models.ConsensusResult, min models.Tier) []*models.ConsensusResult {
	rank := map[models.Tier]int{
		models.TierNone:    0,
		models.TierPartial: 1,
		models.TierSuper:   2,
		models.TierUltra:   3,
	}
	out := make([]*models.ConsensusResult, 0, len(results))
	for _, r := range results {
		if rank[r.Tier] >= rank[min] {
			out = append(out, r)
		}
	}
	return out
}

// BuildPortfolio turns the most recent n approved results into open
// positions. Exit fields and PNL stay empty; a downstream process closes
// them out.
func BuildPortfolio(results []*models.ConsensusResult, enriched map[string][]models.EnrichedBar, n int) []models.PortfolioEntry {
	approved := make([]*models.ConsensusResult, 0, len(results))
	for _, r := range results {
		if r.Approved {
			approved = append(approved, r)
		}
	}
	sort.Slice(approved, func(i, j int) bool { return approved[i].Date.After(approved[j].Date) })
	if len(approved) > n {
		approved = approved[:n]
	}

	entries := make([]models.PortfolioEntry, 0, len(approved))
	for _, r := range approved {
		band := entryBandATR * fallbackBarATR(enriched[r.Symbol], r.Date)
		entries = append(entries, models.PortfolioEntry{
			Symbol:     r.Symbol,
			Signal:     r.Signal,
			EntryDate:  r.Date,
			EntryPrice: r.Entry,
			EntryLow:   r.Entry - band,
			EntryHigh:  r.Entry + band,
			Stop:       r.Stop,
			Target1:    r.Target1,
			Target2:    r.Target2,
			ExpiryDate: util.AddTradingDays(r.Date, portfolioHoldDays),
			Status:     "OPEN",
		})
	}
	return entries
}

func fallbackBarATR(bars []models.EnrichedBar, date time.Time) float64 {
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Date.Equal(date) {
			if bars[i].ATR != nil {
				return *bars[i].ATR
			}
			break
		}
	}
	return 5.0
}

// BuildAgreement tallies how the four agents lined up over a run.
func BuildAgreement(results []*models.ConsensusResult, now time.Time) *models.AgreementAnalysis {
	aa := &models.AgreementAnalysis{
		GeneratedAt: now,
		Results:     len(results),
		Tiers:       map[models.Tier]int{},
		Symbols:     map[string]int{},
	}

	type acc struct {
		calls, puts, holds int
		confSum            float64
		agreed             int
	}
	var order []string
	byAgent := map[string]*acc{}

	for _, r := range results {
		aa.Tiers[r.Tier]++
		aa.Symbols[r.Symbol]++
		if r.Approved {
			aa.Approved++
		}
		for _, a := range r.Agents {
			st, ok := byAgent[a.Agent]
			if !ok {
				st = &acc{}
				byAgent[a.Agent] = st
				order = append(order, a.Agent)
			}
			switch a.Signal {
			case models.SignalCall:
				st.calls++
			case models.SignalPut:
				st.puts++
			default:
				st.holds++
			}
			st.confSum += a.Confidence
			if a.Signal == r.Signal {
				st.agreed++
			}
		}
	}

	for _, name := range order {
		st := byAgent[name]
		total := st.calls + st.puts + st.holds
		stats := models.AgentStats{
			Agent: name,
			Calls: st.calls,
			Puts:  st.puts,
			Holds: st.holds,
		}
		if total > 0 {
			stats.AvgConfidence = st.confSum / float64(total)
			stats.ConsensusAgreement = float64(st.agreed) / float64(total)
		}
		aa.Agents = append(aa.Agents, stats)
	}
	return aa
}
