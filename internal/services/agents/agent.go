// Package agents holds the four heuristic scorers that vote on each enriched
// bar. Every agent is a pure function of the bar: shared helpers below build
// the trade plan from ATR multiples, and a HOLD always carries the sentinel
// entry=stop=target1=target2=close so the consensus engine can filter it out
// before averaging.
package agents

import (
	"TradePulse/internal/domain/models"
	domservice "TradePulse/internal/domain/service"
)

// fallbackATR is used when a bar predates the ATR lookback. Five price units
// keeps stops/targets plausible for index-ETF price ranges.
const fallbackATR = 5.0

// All returns the agent set in its fixed evaluation order. The order is part
// of the output contract; comparison rows list agents in this order.
func All() []domservice.Agent {
	return []domservice.Agent{
		NewBaseConfluence(),
		NewGannElliott(),
		NewDQNMomentum(),
		NewThreeWave(),
	}
}

func barATR(eb models.EnrichedBar) float64 {
	if eb.ATR != nil {
		return *eb.ATR
	}
	return fallbackATR
}

// plan builds direction-signed stop/target levels around the close.
func plan(eb models.EnrichedBar, sig models.Signal, stopMult, t1Mult, t2Mult float64) (entry, stop, t1, t2 float64) {
	atr := barATR(eb)
	entry = eb.Close
	if sig == models.SignalCall {
		return entry, entry - atr*stopMult, entry + atr*t1Mult, entry + atr*t2Mult
	}
	return entry, entry + atr*stopMult, entry - atr*t1Mult, entry - atr*t2Mult
}

func hold(name string, eb models.EnrichedBar) models.AgentSignal {
	return models.AgentSignal{
		Agent:      name,
		Signal:     models.SignalHold,
		Confidence: 0,
		Entry:      eb.Close,
		Stop:       eb.Close,
		Target1:    eb.Close,
		Target2:    eb.Close,
	}
}
