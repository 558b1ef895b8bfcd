package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"TradePulse/internal/domain/models"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/service/ratelimit"
	pkgcache "TradePulse/pkg/cache"
	pkghttp "TradePulse/pkg/http"
	"TradePulse/pkg/util"
)

// Client fetches daily OHLCV bars from the provider's REST API.
type Client struct {
	baseURL  string
	token    string
	http     *pkghttp.Client
	limiter  *ratelimit.Limiter
	cache    pkgcache.Service
	cacheTTL time.Duration
}

var _ domsvc.BarProvider = (*Client)(nil)

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBarCache caches fetched bar windows for ttl. Rescans triggered by
// live-quote drift inside the TTL reuse the same history.
func WithBarCache(c pkgcache.Service, ttl time.Duration) ClientOption {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// NewClient creates a daily-bar REST client. limiter may be nil when the
// provider quota doesn't matter (tests, local replay).
func NewClient(baseURL, token string, timeout time.Duration, limiter *ratelimit.Limiter, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		limiter: limiter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type dailyBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// DailyBars returns up to lookback trading days, ascending by date.
func (c *Client) DailyBars(ctx context.Context, symbol string, lookback int) ([]models.Bar, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	cacheKey := pkgcache.GenerateKeyWithParams("bars", symbol, lookback)
	if c.cache != nil {
		var cached []models.Bar
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	if c.limiter != nil && !c.limiter.Allow("marketdata:"+symbol, 5, 1) {
		return nil, fmt.Errorf("marketdata: rate limited")
	}

	// Calendar span padded for weekends/holidays.
	start := time.Now().AddDate(0, 0, -(lookback*7/5 + 10))

	var raw []dailyBar
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    fmt.Sprintf("%s/daily/%s/prices", c.baseURL, symbol),
		QueryParams: map[string][]string{
			"startDate": {util.DayKey(start)},
			"token":     {c.token},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars %s: %w", symbol, err)
	}

	bars := make([]models.Bar, 0, len(raw))
	for _, r := range raw {
		day, ok := util.ParseTime(r.Date)
		if !ok {
			return nil, fmt.Errorf("fetch daily bars %s: bad date %s", symbol, strconv.Quote(r.Date))
		}
		if !util.IsTradingDay(day) {
			continue
		}
		bars = append(bars, models.Bar{
			Date:   day,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	if c.cache != nil {
		_ = c.cache.Set(ctx, cacheKey, bars, c.cacheTTL)
	}
	return bars, nil
}
