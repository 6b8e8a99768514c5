// Package yahoo provides a market data client for the Yahoo Finance chart API
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/logging"
)

const (
	DefaultBaseURL      = "https://query2.finance.yahoo.com"
	DefaultTimeout      = 15 * time.Second
	DefaultRateLimit    = 2 // requests per second
	DefaultHomeCurrency = "KRW"
	DefaultFxTTL        = time.Hour

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

type fxQuote struct {
	rate    decimal.Decimal
	expires time.Time
}

// Client implements domain.MarketDataProvider
type Client struct {
	baseURL      string
	homeCurrency string
	fxTTL        time.Duration
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *logging.Logger
	now          func() time.Time

	mu sync.Mutex
	fx map[string]fxQuote
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHomeCurrency sets the currency every rate converts into
func WithHomeCurrency(currency string) ClientOption {
	return func(c *Client) {
		c.homeCurrency = strings.ToUpper(currency)
	}
}

// WithFxTTL sets how long an exchange rate is reused
func WithFxTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.fxTTL = ttl
	}
}

// WithClock overrides the wall clock used for the rate cache
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		homeCurrency: DefaultHomeCurrency,
		fxTTL:        DefaultFxTTL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  logging.NewSilentLogger(),
		now:     time.Now,
		fx:      make(map[string]fxQuote),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error status or payload returned by the chart API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Symbol     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo chart error for %s: %s %s (status: %d)", e.Symbol, e.Code, e.Message, e.StatusCode)
}

// Unwrap classifies every API error as a provider failure
func (e *APIError) Unwrap() error {
	return domain.ErrProviderUnavailable
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol               string   `json:"symbol"`
		Currency             string   `json:"currency"`
		ExchangeTimezoneName string   `json:"exchangeTimezoneName"`
		RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamps []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// chart performs a rate-limited request against /v8/finance/chart
func (c *Client) chart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("includePrePost", "false")
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug().Str("symbol", symbol).Str("interval", params.Get("interval")).Msg("yahoo chart request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrProviderUnavailable, err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body)), Symbol: symbol}
		}
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrProviderUnavailable, err)
	}
	if e := parsed.Chart.Error; e != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: e.Code, Message: e.Description, Symbol: symbol}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Symbol: symbol}
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty chart for %s", domain.ErrProviderUnavailable, symbol)
	}
	return &parsed.Chart.Result[0], nil
}

func (c *Client) bars(ctx context.Context, ticker, interval string, start, end time.Time) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("interval", interval)
	params.Set("period1", strconv.FormatInt(domain.Today(start).Unix(), 10))
	// period2 is exclusive
	params.Set("period2", strconv.FormatInt(domain.Today(end).AddDate(0, 0, 1).Unix(), 10))

	res, err := c.chart(ctx, ticker, params)
	if err != nil {
		return nil, err
	}

	loc := time.UTC
	if tz, err := time.LoadLocation(res.Meta.ExchangeTimezoneName); err == nil && res.Meta.ExchangeTimezoneName != "" {
		loc = tz
	}

	var closes []*float64
	if len(res.Indicators.Quote) > 0 {
		closes = res.Indicators.Quote[0].Close
	}

	out := make([]domain.Bar, 0, len(closes))
	for i, px := range closes {
		if px == nil || i >= len(res.Timestamps) {
			continue
		}
		local := time.Unix(res.Timestamps[i], 0).In(loc)
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		if date.Before(domain.Today(start)) || date.After(domain.Today(end)) {
			continue
		}
		bar := domain.Bar{Date: date, Close: decimal.NewFromFloat(*px)}
		// Yahoo repeats the live bar at the end of a series; keep the later quote
		if n := len(out); n > 0 && out[n-1].Date.Equal(date) {
			out[n-1] = bar
			continue
		}
		out = append(out, bar)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no %s bars for %s", domain.ErrProviderUnavailable, interval, ticker)
	}
	return out, nil
}

// DailyBars returns daily closes between start and end inclusive
func (c *Client) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	return c.bars(ctx, ticker, "1d", start, end)
}

// MonthlyBars returns monthly closes between start and end inclusive
func (c *Client) MonthlyBars(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	return c.bars(ctx, ticker, "1mo", start, end)
}

// SpotPrice returns the regular market price of a ticker
func (c *Client) SpotPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	res, err := c.chart(ctx, ticker, params)
	if err != nil {
		return decimal.Zero, err
	}
	if res.Meta.RegularMarketPrice == nil || *res.Meta.RegularMarketPrice <= 0 {
		return decimal.Zero, fmt.Errorf("%w: no spot price for %s", domain.ErrProviderUnavailable, ticker)
	}
	return decimal.NewFromFloat(*res.Meta.RegularMarketPrice), nil
}

// FxRate returns how much one unit of currency is worth in the home currency.
// Rates are cached for the configured TTL.
func (c *Client) FxRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == c.homeCurrency {
		return decimal.NewFromInt(1), nil
	}

	c.mu.Lock()
	cached, ok := c.fx[currency]
	c.mu.Unlock()
	if ok && c.now().Before(cached.expires) {
		return cached.rate, nil
	}

	fx, err := c.SpotPrice(ctx, currency+c.homeCurrency+"=X")
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get %s exchange rate: %w", currency, err)
	}

	c.mu.Lock()
	c.fx[currency] = fxQuote{rate: fx, expires: c.now().Add(c.fxTTL)}
	c.mu.Unlock()
	return fx, nil
}

var _ domain.MarketDataProvider = (*Client)(nil)
