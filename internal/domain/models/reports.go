package models

import "time"

// PortfolioEntry is one open position candidate taken from an approved
// consensus result. Exit fields and PNL stay empty at emission time; a
// downstream process closes them out.
type PortfolioEntry struct {
	Symbol     string
	Signal     Signal
	EntryDate  time.Time
	ExitDate   *time.Time
	EntryPrice float64
	ExitPrice  *float64
	PNL        *float64
	EntryLow   float64
	EntryHigh  float64
	Stop       float64
	Target1    float64
	Target2    float64
	ExpiryDate time.Time
	Status     string // "OPEN"
}

// SectorClass tags a symbol as cyclical or defensive in the rotation model.
type SectorClass string

const (
	SectorCyclical  SectorClass = "Cyclical"
	SectorDefensive SectorClass = "Defensive"
)

// SectorRow is one symbol's slice of the sector-rotation table.
type SectorRow struct {
	Symbol      string
	Price       float64
	WeekChange  float64 // 1-week (5 trading days) percent change
	MonthChange float64 // 1-month (21 trading days) percent change
	RSI         float64
	Bias        Signal
	Class       SectorClass
	Rating      string // "Overweight" | "Underweight" | "Neutral"
}

// SectorRotation summarizes cyclical vs defensive leadership.
type SectorRotation struct {
	GeneratedAt  time.Time
	Rows         []SectorRow
	CyclicalAvg  float64 // mean 1-week change over the cyclical set
	DefensiveAvg float64
	Spread       float64
	Rotation     string // "Risk-On" | "Risk-Off" | "Neutral"
	Description  string // "Tech Leading" | "Defensive Mode" | "Mixed Signals"
}

// MarketConditions is the 3-factor safe-to-trade summary for one symbol.
type MarketConditions struct {
	GeneratedAt   time.Time
	Symbol        string
	EstVolatility float64 // annualized proxy, clamped to [10, 50]
	VolatilityOK  bool    // estimated volatility below threshold
	AboveSlowSMA  bool
	TrendDistance float64 // percent distance of close from the slow SMA
	Rotation      string
	RotationOK    bool // sector rotation not risk-off
	ConditionsMet int  // 0-3
	SafeToTrade   bool // conditions met >= 2
}

// AgentStats holds per-agent tallies for the agreement analysis.
type AgentStats struct {
	Agent         string  `json:"agent"`
	Calls         int     `json:"calls"`
	Puts          int     `json:"puts"`
	Holds         int     `json:"holds"`
	AvgConfidence float64 `json:"avg_confidence"`
	// Fraction of results where this agent's vote matched the consensus.
	ConsensusAgreement float64 `json:"consensus_agreement"`
}

// AgreementAnalysis summarizes how the four agents lined up over a run.
type AgreementAnalysis struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Results     int            `json:"results"`
	Approved    int            `json:"approved"`
	Tiers       map[Tier]int   `json:"tiers"`
	Agents      []AgentStats   `json:"agents"`
	Symbols     map[string]int `json:"symbols"`
}
