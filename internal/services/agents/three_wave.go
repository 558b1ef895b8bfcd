package agents

import (
	"fmt"
	"math"

	"TradePulse/internal/domain/models"
	domservice "TradePulse/internal/domain/service"
)

const ThreeWaveName = "3-Wave"

// ThreeWave signals in the bias direction when the close sits within half an
// ATR of the 0.618 retracement level.
type ThreeWave struct{}

var _ domservice.Agent = (*ThreeWave)(nil)

func NewThreeWave() *ThreeWave { return &ThreeWave{} }

func (a *ThreeWave) Name() string { return ThreeWaveName }

func (a *ThreeWave) Evaluate(eb models.EnrichedBar) models.AgentSignal {
	if eb.Bias != models.SignalCall && eb.Bias != models.SignalPut {
		return hold(ThreeWaveName, eb)
	}
	if math.Abs(eb.Close-eb.PhiLevel) >= 0.5*barATR(eb) {
		return hold(ThreeWaveName, eb)
	}

	entry, stop, t1, t2 := plan(eb, eb.Bias, 1.2, 2.0, 3.5)
	return models.AgentSignal{
		Agent:      ThreeWaveName,
		Signal:     eb.Bias,
		Confidence: 68,
		Entry:      entry,
		Stop:       stop,
		Target1:    t1,
		Target2:    t2,
		Reasons: []string{
			fmt.Sprintf("%s bias with close %.2f at phi level %.2f", eb.Bias, eb.Close, eb.PhiLevel),
		},
	}
}
