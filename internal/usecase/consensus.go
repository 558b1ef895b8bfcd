package usecase

import (
	"TradePulse/internal/domain/models"
	domsvc "TradePulse/internal/domain/service"
)

// ConsensusEngine folds the four agent votes on one enriched bar into a
// ConsensusResult. Stateless; safe to call concurrently across
// (date, symbol) pairs.
type ConsensusEngine struct {
	agents []domsvc.Agent
}

func NewConsensusEngine(agents []domsvc.Agent) *ConsensusEngine {
	return &ConsensusEngine{agents: agents}
}

// Evaluate runs every agent in the fixed order and aggregates the votes.
func (e *ConsensusEngine) Evaluate(eb models.EnrichedBar) *models.ConsensusResult {
	r := &models.ConsensusResult{
		Symbol: eb.Symbol,
		Date:   eb.Date,
		Agents: make([]models.AgentSignal, 0, len(e.agents)),
		Close:  eb.Close,
	}

	for _, a := range e.agents {
		sig := a.Evaluate(eb)
		r.Agents = append(r.Agents, sig)
		switch sig.Signal {
		case models.SignalCall:
			r.CallVotes++
		case models.SignalPut:
			r.PutVotes++
		default:
			r.HoldVotes++
		}
	}

	r.Tier = models.TierFor(r.MaxVotes())

	switch {
	case r.CallVotes > r.PutVotes && r.CallVotes > r.HoldVotes:
		r.Signal = models.SignalCall
	case r.PutVotes > r.CallVotes && r.PutVotes > r.HoldVotes:
		r.Signal = models.SignalPut
	default:
		r.Signal = models.SignalHold // covers ties
	}

	// Mean plan over the agents that actually voted. HOLD sentinels carry
	// entry=stop=target=close and would bias the averages if included.
	var n float64
	for _, sig := range r.Agents {
		if sig.Signal == models.SignalHold {
			continue
		}
		n++
		r.Confidence += sig.Confidence
		r.Entry += sig.Entry
		r.Stop += sig.Stop
		r.Target1 += sig.Target1
		r.Target2 += sig.Target2
	}
	if n > 0 {
		r.Confidence /= n
		r.Entry /= n
		r.Stop /= n
		r.Target1 /= n
		r.Target2 /= n
	} else {
		r.Confidence = 0
		r.Entry = eb.Close
		r.Stop = eb.Close
		r.Target1 = eb.Close
		r.Target2 = eb.Close
	}

	// Extended 10% in the consensus direction; HOLD takes the PUT side.
	if r.Signal == models.SignalCall {
		r.Target3 = r.Target2 * 1.1
	} else {
		r.Target3 = r.Target2 * 0.9
	}

	r.Approved = r.MaxVotes() >= 3 && r.Signal != models.SignalHold
	return r
}

// EvaluateSeries evaluates the trailing bars of an enriched series in
// ascending-date order.
func (e *ConsensusEngine) EvaluateSeries(enriched []models.EnrichedBar, trailing int) []*models.ConsensusResult {
	start := 0
	if trailing > 0 && len(enriched) > trailing {
		start = len(enriched) - trailing
	}
	out := make([]*models.ConsensusResult, 0, len(enriched)-start)
	for i := start; i < len(enriched); i++ {
		out = append(out, e.Evaluate(enriched[i]))
	}
	return out
}
