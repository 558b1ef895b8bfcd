package agents

import (
	"fmt"

	"TradePulse/internal/domain/models"
	domservice "TradePulse/internal/domain/service"
)

const DQNMomentumName = "DQN/Momentum"

// DQNMomentum trades RSI extremes at full conviction and bias-confirmed
// momentum at reduced conviction.
type DQNMomentum struct{}

var _ domservice.Agent = (*DQNMomentum)(nil)

func NewDQNMomentum() *DQNMomentum { return &DQNMomentum{} }

func (a *DQNMomentum) Name() string { return DQNMomentumName }

func (a *DQNMomentum) Evaluate(eb models.EnrichedBar) models.AgentSignal {
	var sig models.Signal
	var conf float64
	var reason string

	switch {
	case eb.RSI < 30:
		sig, conf = models.SignalCall, 71
		reason = fmt.Sprintf("RSI oversold at %.1f", eb.RSI)
	case eb.RSI > 70:
		sig, conf = models.SignalPut, 71
		reason = fmt.Sprintf("RSI overbought at %.1f", eb.RSI)
	case eb.Bias == models.SignalCall && eb.RSI > 50 && eb.RSI < 70:
		sig, conf = models.SignalCall, 60
		reason = fmt.Sprintf("CALL bias with momentum RSI %.1f", eb.RSI)
	case eb.Bias == models.SignalPut && eb.RSI > 30 && eb.RSI < 50:
		sig, conf = models.SignalPut, 60
		reason = fmt.Sprintf("PUT bias with momentum RSI %.1f", eb.RSI)
	default:
		return hold(DQNMomentumName, eb)
	}

	entry, stop, t1, t2 := plan(eb, sig, 1.0, 1.5, 2.5)
	return models.AgentSignal{
		Agent:      DQNMomentumName,
		Signal:     sig,
		Confidence: conf,
		Entry:      entry,
		Stop:       stop,
		Target1:    t1,
		Target2:    t2,
		Reasons:    []string{reason},
	}
}
