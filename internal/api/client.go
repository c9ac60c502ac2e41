package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"rollup-dashboard/internal/logging"
	"rollup-dashboard/internal/utils"
	"rollup-dashboard/models"
)

// Config holds upstream API client configuration.
type Config struct {
	BaseURL       string        `json:"baseUrl"`
	Timeout       time.Duration `json:"timeout"`
	MaxRetries    int           `json:"maxRetries"`
	RetryBaseWait time.Duration `json:"retryBaseWait"`
}

// DefaultConfig returns default API client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:4000/v1",
		Timeout:       10 * time.Second,
		MaxRetries:    3,
		RetryBaseWait: time.Second,
	}
}

// Client is the HTTP client for the rollup metrics backend. A single
// http.Client is reused for connection pooling.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates an upstream API client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				MaxConnsPerHost:     50,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: logging.Component("api"),
	}
}

// FetchDashboardMetrics returns the headline metric cards for a range.
func (c *Client) FetchDashboardMetrics(ctx context.Context, r models.TimeRange, address string) (Result[models.DashboardMetrics], error) {
	query := url.Values{"range": {string(r)}}
	if address != "" {
		query.Set("address", address)
	}
	return getJSON[models.DashboardMetrics](ctx, c, "metrics/overview", query)
}

// FetchChartSeries returns the chart-ready series set for a range.
func (c *Client) FetchChartSeries(ctx context.Context, r models.TimeRange, address string) (Result[models.SeriesSet], error) {
	query := url.Values{"range": {string(r)}}
	if address != "" {
		query.Set("address", address)
	}
	return getJSON[models.SeriesSet](ctx, c, "metrics/series", query)
}

// FetchBlocks returns one page of blocks in the window.
func (c *Client) FetchBlocks(ctx context.Context, q PageQuery) (Result[[]models.Block], error) {
	return getJSON[[]models.Block](ctx, c, "blocks", pageQueryValues(q))
}

// FetchTransactions returns one page of transactions in the window.
func (c *Client) FetchTransactions(ctx context.Context, q PageQuery) (Result[[]models.Transaction], error) {
	return getJSON[[]models.Transaction](ctx, c, "transactions", pageQueryValues(q))
}

// FetchDistribution returns one page of the fee distribution breakdown.
func (c *Client) FetchDistribution(ctx context.Context, q PageQuery) (Result[[]models.DistributionSlice], error) {
	return getJSON[[]models.DistributionSlice](ctx, c, "distribution", pageQueryValues(q))
}

func pageQueryValues(q PageQuery) url.Values {
	query := url.Values{"range": {string(q.Range)}}
	if q.Address != "" {
		query.Set("address", q.Address)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.StartingAfter != "" {
		query.Set("starting_after", q.StartingAfter)
	}
	if q.EndingBefore != "" {
		query.Set("ending_before", q.EndingBefore)
	}
	return query
}

// getJSON performs a GET with retry on 5xx/429 and decodes the payload.
// HTTP 400 maps to a BadRequest result rather than an error.
func getJSON[T any](ctx context.Context, c *Client, endpoint string, query url.Values) (Result[T], error) {
	urlStr := fmt.Sprintf("%s/%s", c.cfg.BaseURL, endpoint)
	if len(query) > 0 {
		urlStr = fmt.Sprintf("%s?%s", urlStr, query.Encode())
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		body, status, err := c.doRequest(ctx, urlStr)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return Result[T]{}, ctx.Err()
			}
			if attempt < c.cfg.MaxRetries {
				c.backoff(ctx, attempt, 0)
				continue
			}
			return Result[T]{}, utils.WrapError(lastErr, utils.ErrorTypeNetwork,
				"UPSTREAM_UNREACHABLE", "request failed", "api")
		}

		switch {
		case status == http.StatusBadRequest:
			c.log.Warn().Str("endpoint", endpoint).Msg("upstream rejected request parameters")
			return Result[T]{BadRequest: true}, nil
		case status >= 500 || status == http.StatusTooManyRequests:
			lastErr = &APIError{StatusCode: status, Message: string(body)}
			if attempt < c.cfg.MaxRetries {
				c.backoff(ctx, attempt, status)
				continue
			}
			return Result[T]{}, lastErr
		case status >= 400:
			return Result[T]{}, &APIError{StatusCode: status, Message: string(body)}
		}

		var payload T
		if err := json.Unmarshal(body, &payload); err != nil {
			return Result[T]{}, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		}
		return Result[T]{Data: &payload}, nil
	}
	return Result[T]{}, lastErr
}

func (c *Client) doRequest(ctx context.Context, urlStr string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// backoff sleeps exponentially between retry attempts.
func (c *Client) backoff(ctx context.Context, attempt, status int) {
	wait := c.cfg.RetryBaseWait << (attempt - 1)
	c.log.Debug().Int("attempt", attempt).Int("status", status).Dur("wait", wait).Msg("retrying upstream request")
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
