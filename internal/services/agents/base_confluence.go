package agents

import (
	"fmt"

	"TradePulse/internal/domain/models"
	domservice "TradePulse/internal/domain/service"
)

const BaseConfluenceName = "Base Confluence"

// BaseConfluence signals in the bias direction when the close sits on a
// price-confluence level.
type BaseConfluence struct{}

var _ domservice.Agent = (*BaseConfluence)(nil)

func NewBaseConfluence() *BaseConfluence { return &BaseConfluence{} }

func (a *BaseConfluence) Name() string { return BaseConfluenceName }

func (a *BaseConfluence) Evaluate(eb models.EnrichedBar) models.AgentSignal {
	if !eb.PriceConfluence || (eb.Bias != models.SignalCall && eb.Bias != models.SignalPut) {
		return hold(BaseConfluenceName, eb)
	}

	entry, stop, t1, t2 := plan(eb, eb.Bias, 1.5, 2.0, 3.0)
	return models.AgentSignal{
		Agent:      BaseConfluenceName,
		Signal:     eb.Bias,
		Confidence: 65,
		Entry:      entry,
		Stop:       stop,
		Target1:    t1,
		Target2:    t2,
		Reasons: []string{
			fmt.Sprintf("%s bias with price confluence at geo level %.2f", eb.Bias, eb.GeoLevel),
		},
	}
}
