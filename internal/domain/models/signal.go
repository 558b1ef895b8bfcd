package models

import "time"

// Signal is the closed direction enum. Normalized once at the boundary and
// never re-interpreted downstream.
type Signal string

const (
	SignalCall Signal = "CALL"
	SignalPut  Signal = "PUT"
	SignalHold Signal = "HOLD"
)

// Tier classifies how many of the four agents agree.
type Tier string

const (
	TierUltra   Tier = "ULTRA"   // 4 of 4
	TierSuper   Tier = "SUPER"   // 3 of 4
	TierPartial Tier = "PARTIAL" // 2 of 4
	TierNone    Tier = "NONE"
)

// TierFor maps the winning vote count to a tier.
func TierFor(maxVotes int) Tier {
	switch {
	case maxVotes >= 4:
		return TierUltra
	case maxVotes >= 3:
		return TierSuper
	case maxVotes >= 2:
		return TierPartial
	default:
		return TierNone
	}
}

// AgentSignal is one agent's opinion on one enriched bar. A HOLD carries the
// sentinel plan entry=stop=target1=target2=close and confidence 0; the
// consensus engine filters HOLDs out before averaging.
type AgentSignal struct {
	Agent      string
	Signal     Signal
	Confidence float64 // 0-100, heuristic
	Entry      float64
	Stop       float64
	Target1    float64
	Target2    float64
	Reasons    []string
}

// ConsensusResult aggregates the four AgentSignals for one (date, symbol).
type ConsensusResult struct {
	Symbol    string
	Date      time.Time
	Agents    []AgentSignal // fixed order: Base Confluence, Gann-Elliott, DQN/Momentum, 3-Wave
	CallVotes int
	PutVotes  int
	HoldVotes int
	Signal    Signal
	Tier      Tier
	// Means over the non-HOLD agents; the bar's close when all four hold.
	Confidence float64
	Entry      float64
	Stop       float64
	Target1    float64
	Target2    float64
	Target3    float64 // target2 extended 10% in the consensus direction
	Approved   bool
	Close      float64
}

// MaxVotes returns the winning directional vote count. HOLD votes never
// count toward the tier: an all-HOLD bar is a quiet day, not agreement.
func (r *ConsensusResult) MaxVotes() int {
	if r.PutVotes > r.CallVotes {
		return r.PutVotes
	}
	return r.CallVotes
}
