package models

// Requests for the signal HTTP endpoints. Defined in domain for consistency and reuse.

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Tier   string `query:"tier" json:"tier" default:"NONE" validate:"oneof=ULTRA SUPER PARTIAL NONE"`
	N      int    `query:"n" json:"n" default:"100" validate:"gte=1,lte=1000"`
}

type EnrichedRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"100" validate:"gte=1,lte=5000"`
	Period string `query:"period" json:"period" validate:"omitempty,oneof=3mo 6mo 1y"`
}

type ScanRequest struct {
	Symbols  []string `json:"symbols" validate:"omitempty,dive,required"`
	Lookback int      `json:"lookback" default:"100" validate:"gte=50,lte=1000"`
}

type PortfolioRequest struct {
	N int `query:"n" json:"n" default:"10" validate:"gte=1,lte=100"`
}

type MarketConditionsRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"SPY" validate:"required"`
}
