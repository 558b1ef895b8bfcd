package api

import (
	"encoding/json"
	"fmt"
	"time"

	models "TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	mid "TradePulse/internal/middleware"
	icache "TradePulse/internal/service/cache"
	"TradePulse/internal/service/metrics"
	"TradePulse/internal/service/ratelimit"
	"TradePulse/internal/usecase"
	xhttp "TradePulse/pkg/http"
	xlogger "TradePulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalsHandler serves the consensus read API and the scan trigger.
type SignalsHandler struct {
	logger  *xlogger.Logger
	results *usecase.ResultsUseCase
	scans   mid.Enqueuer
	cache   icache.BytesCache
	rl      *ratelimit.Limiter
}

func NewSignalsHandler(logger *xlogger.Logger, results *usecase.ResultsUseCase, scans mid.Enqueuer) *SignalsHandler {
	metrics.Register()
	return &SignalsHandler{logger: logger, results: results, scans: scans, rl: ratelimit.New()}
}

// SetCache injects the response cache.
func (h *SignalsHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/signals", h.Signals)
	g.GET("/enriched", h.Enriched)
	g.GET("/portfolio", h.Portfolio)
	g.GET("/sector-rotation", h.SectorRotation)
	g.GET("/market-conditions", h.MarketConditions)
	g.POST("/scan", h.Scan)
	e.GET("/healthz", h.Health)
}

func (h *SignalsHandler) Signals(c echo.Context) error {
	start := time.Now()
	endpoint := "signals"
	defer func() { metrics.ScanLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":signals", 10, 5) {
		return xhttp.DataResponse(c, 429, "rate limited")
	}

	cacheKey := fmt.Sprintf("signals:%s:%s:%d", req.Symbol, req.Tier, req.N)
	if b, ok := h.cached(cacheKey); ok {
		return c.JSONBlob(200, b)
	}

	res, err := h.results.GetSignals(c.Request().Context(), usecase.GetSignalsParams{
		Symbol: req.Symbol,
		Tier:   models.Tier(req.Tier),
		Limit:  req.N,
	})
	if err != nil {
		metrics.ScanErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("signals usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.store(cacheKey, res, 30*time.Second)
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsHandler) Enriched(c echo.Context) error {
	start := time.Now()
	endpoint := "enriched"
	defer func() { metrics.ScanLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.EnrichedRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	n := req.N
	if req.Period != "" {
		n = domrepo.NormalizePeriod(req.Period).Bars()
	}
	bars, err := h.results.GetEnriched(req.Symbol, n)
	if err != nil {
		metrics.ScanErrors.WithLabelValues(endpoint).Inc()
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, bars)
}

func (h *SignalsHandler) Portfolio(c echo.Context) error {
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	report := h.results.Latest()
	if report == nil {
		return xhttp.NotFoundResponse(c, "no scan has completed yet")
	}
	return xhttp.SuccessResponse(c, usecase.BuildPortfolio(report.Results, report.Enriched, req.N))
}

func (h *SignalsHandler) SectorRotation(c echo.Context) error {
	report := h.results.Latest()
	if report == nil || report.Rotation == nil {
		return xhttp.NotFoundResponse(c, "no scan has completed yet")
	}
	return xhttp.SuccessResponse(c, report.Rotation)
}

func (h *SignalsHandler) MarketConditions(c echo.Context) error {
	req := &models.MarketConditionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	report := h.results.Latest()
	if report == nil || report.Rotation == nil {
		return xhttp.NotFoundResponse(c, "no scan has completed yet")
	}
	if req.Symbol == report.Conditions.Symbol {
		return xhttp.SuccessResponse(c, report.Conditions)
	}
	bars, ok := report.Enriched[req.Symbol]
	if !ok {
		return xhttp.NotFoundResponse(c, fmt.Sprintf("symbol %s not scanned", req.Symbol))
	}
	mc := usecase.BuildMarketConditions(req.Symbol, bars, report.Rotation.Rotation, time.Now())
	return xhttp.SuccessResponse(c, mc)
}

// Scan enqueues a rescan for the requested symbols (or the whole universe).
func (h *SignalsHandler) Scan(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":scan", 2, 0.2) {
		return xhttp.DataResponse(c, 429, "rate limited")
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = []string{""} // empty symbol means full-universe scan
	}
	ctx := c.Request().Context()
	for _, sym := range symbols {
		if err := h.scans.EnqueueScan(ctx, sym); err != nil {
			h.logger.Error("scan enqueue error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
	}
	return xhttp.DataResponse(c, 202, map[string]interface{}{"queued": len(symbols)})
}

func (h *SignalsHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *SignalsHandler) cached(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.logger.Warn("cache get error", xlogger.Error(err))
		return nil, false
	}
	return b, ok
}

func (h *SignalsHandler) store(key string, v interface{}, ttl time.Duration) {
	if h.cache == nil {
		return
	}
	b, err := json.Marshal(xhttp.APIResponse{Status: 200, Message: "OK", Data: v})
	if err != nil {
		return
	}
	if err := h.cache.SetBytes(key, b, ttl); err != nil {
		h.logger.Warn("cache set error", xlogger.Error(err))
	}
}
