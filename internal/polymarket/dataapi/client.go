package dataapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/liamashdown/insiderdetector/internal/config"
	"github.com/liamashdown/insiderdetector/internal/metrics"
	"github.com/liamashdown/insiderdetector/internal/ratelimit"
)

// ErrNoActivity is returned when a wallet has no recorded activity
var ErrNoActivity = errors.New("no activity found")

// Client handles communication with the Polymarket Data API
type Client struct {
	baseURL         string
	httpClient      *http.Client
	authMode        config.AuthMode
	bearerToken     string
	apiKey          string
	extraHeaders    map[string]string
	tradesLimiter   *ratelimit.Limiter
	activityLimiter *ratelimit.Limiter
}

// NewClient creates a new Data API client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:         cfg.DataAPIBaseURL,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		authMode:        cfg.DataAPIAuthMode,
		bearerToken:     cfg.DataAPIBearerToken,
		apiKey:          cfg.DataAPIAPIKey,
		extraHeaders:    cfg.DataAPIExtraHeaders,
		tradesLimiter:   ratelimit.New(cfg.DataAPITradesRPS),
		activityLimiter: ratelimit.New(cfg.DataAPIActivityRPS),
	}
}

// TradeParams holds parameters for the GetTrades call
type TradeParams struct {
	Limit         int
	Offset        int
	TakerOnly     bool
	FilterType    string  // CASH, TOKENS
	FilterAmount  float64 // minimum amount for FilterType
	Market        string
	EventID       string
	User          string
	Side          string // BUY, SELL
	Start         int64  // Unix seconds, inclusive
	End           int64  // Unix seconds
	SortBy        string // TIMESTAMP, CASH, TOKENS
	SortDirection string // ASC, DESC
}

func (p TradeParams) query() url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.TakerOnly {
		q.Set("takerOnly", "true")
	}
	if p.FilterType != "" {
		q.Set("filterType", p.FilterType)
	}
	if p.FilterAmount > 0 {
		q.Set("filterAmount", strconv.FormatFloat(p.FilterAmount, 'f', -1, 64))
	}
	if p.Market != "" {
		q.Set("market", p.Market)
	}
	if p.EventID != "" {
		q.Set("eventId", p.EventID)
	}
	if p.User != "" {
		q.Set("user", p.User)
	}
	if p.Side != "" {
		q.Set("side", p.Side)
	}
	if p.Start > 0 {
		q.Set("start", strconv.FormatInt(p.Start, 10))
	}
	if p.End > 0 {
		q.Set("end", strconv.FormatInt(p.End, 10))
	}
	if p.SortBy != "" {
		q.Set("sortBy", p.SortBy)
	}
	if p.SortDirection != "" {
		q.Set("sortDirection", p.SortDirection)
	}
	return q
}

// GetTrades fetches public trades matching params
func (c *Client) GetTrades(ctx context.Context, params TradeParams) (*TradesResponse, error) {
	if err := c.tradesLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var trades []Trade
	if err := c.get(ctx, "/trades", params.query(), &trades); err != nil {
		return nil, err
	}

	return &TradesResponse{Trades: trades, Count: len(trades)}, nil
}

// GetWalletFirstActivity fetches the earliest activity for a wallet
func (c *Client) GetWalletFirstActivity(ctx context.Context, wallet string) (*ActivityEvent, error) {
	if err := c.activityLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("user", wallet)
	q.Set("sortBy", "TIMESTAMP")
	q.Set("sortDirection", "ASC")
	q.Set("limit", "1")

	var activities []ActivityEvent
	if err := c.get(ctx, "/activity", q, &activities); err != nil {
		return nil, err
	}

	if len(activities) == 0 {
		return nil, fmt.Errorf("wallet %s: %w", wallet, ErrNoActivity)
	}

	return &activities[0], nil
}

// GetTradedMarkets returns how many distinct markets a wallet has traded
func (c *Client) GetTradedMarkets(ctx context.Context, wallet string) (*TradedMarkets, error) {
	if err := c.activityLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("user", wallet)

	var traded TradedMarkets
	if err := c.get(ctx, "/traded", q, &traded); err != nil {
		return nil, err
	}
	return &traded, nil
}

// Ping checks that the API answers
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("limit", "1")
	var trades []Trade
	return c.get(ctx, "/trades", q, &trades)
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAPIRequest("data", endpoint, time.Since(start), err)
	}()

	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("401 Unauthorized (auth_mode=%s) - check credentials", c.authMode)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	switch c.authMode {
	case config.AuthModeBearer:
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	case config.AuthModeAPIKey:
		req.Header.Set("X-API-KEY", c.apiKey)
	case config.AuthModeNone:
		// No auth headers
	}

	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}
}
