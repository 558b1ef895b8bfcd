package agents

import (
	"fmt"
	"strings"

	"TradePulse/internal/domain/models"
	domservice "TradePulse/internal/domain/service"
)

const GannElliottName = "Gann-Elliott"

// GannElliott buys pullbacks to Square-of-9 support inside an up wave and
// fades rallies into resistance inside a down wave. Levels anchor the plan
// rather than ATR multiples.
type GannElliott struct{}

var _ domservice.Agent = (*GannElliott)(nil)

func NewGannElliott() *GannElliott { return &GannElliott{} }

func (a *GannElliott) Name() string { return GannElliottName }

func (a *GannElliott) Evaluate(eb models.EnrichedBar) models.AgentSignal {
	up := strings.Contains(eb.WavePosition, "UP")
	down := strings.Contains(eb.WavePosition, "DOWN")

	var sig models.Signal
	var stop, t1, t2 float64
	var reasons []string

	switch {
	case up && eb.Close <= eb.GannSupport*1.01:
		sig = models.SignalCall
		stop = eb.GannSupport * 0.99
		t1 = eb.GannResistance
		t2 = t1 * 1.01
		reasons = append(reasons,
			fmt.Sprintf("%s with close %.2f at gann support %.2f", eb.WavePosition, eb.Close, eb.GannSupport))
	case down && eb.Close >= eb.GannResistance*0.99:
		sig = models.SignalPut
		stop = eb.GannResistance * 1.01
		t1 = eb.GannSupport
		t2 = t1 * 0.99
		reasons = append(reasons,
			fmt.Sprintf("%s with close %.2f at gann resistance %.2f", eb.WavePosition, eb.Close, eb.GannResistance))
	default:
		return hold(GannElliottName, eb)
	}

	conf := 72.0
	if eb.TimeConfluence {
		conf += 5
		reasons = append(reasons, "time cycle confluence")
	}

	return models.AgentSignal{
		Agent:      GannElliottName,
		Signal:     sig,
		Confidence: conf,
		Entry:      eb.Close,
		Stop:       stop,
		Target1:    t1,
		Target2:    t2,
		Reasons:    reasons,
	}
}
