// Package market fetches quotes, listings, and price history from the
// public crypto data services.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/config"
	"cryptochat/internal/infra/tracer"
)

// maxResponseBody caps what we read from a data endpoint.
const maxResponseBody = 4 * 1024 * 1024 // 4 MB

// Client talks to the quote service (CoinCap) and the history service
// (Yahoo chart API). Every call is a single GET with no retry or caching.
type Client struct {
	client     *http.Client
	coinCapURL string
	yahooURL   string
	userAgent  string
	logger     *slog.Logger
}

// NewClient builds a Client from config. A zero cfg.Timeout leaves the
// transport default in place.
func NewClient(cfg config.MarketConfig, logger *slog.Logger) *Client {
	return &Client{
		client:     &http.Client{Timeout: cfg.Timeout},
		coinCapURL: strings.TrimRight(cfg.CoinCapURL, "/"),
		yahooURL:   strings.TrimRight(cfg.YahooURL, "/"),
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

// getJSON issues a GET and decodes the JSON body into out.
// Client errors (4xx) still decode: the quote service answers unknown
// tickers with a JSON body that simply lacks "data". Network errors,
// server errors, and bodies that are not JSON are transport failures.
func (c *Client) getJSON(ctx context.Context, op, url string, out any) error {
	ctx, span := tracer.StartSpan(ctx, "market.get")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("market.op", op), tracer.StringAttr("http.url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		tracer.RecordError(span, err)
		return domain.NewDomainError(op, domain.ErrTransportFailure, err.Error())
	}
	defer resp.Body.Close()

	span.SetAttributes(tracer.IntAttr("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		tracer.RecordError(span, err)
		return domain.NewDomainError(op, domain.ErrTransportFailure, fmt.Sprintf("read body: %v", err))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		err := domain.NewDomainError(op, domain.ErrTransportFailure, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200)))
		tracer.RecordError(span, err)
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		err := domain.NewDomainError(op, domain.ErrTransportFailure, fmt.Sprintf("HTTP %d: decode body: %v", resp.StatusCode, err))
		tracer.RecordError(span, err)
		return err
	}

	c.logger.Debug("market request completed", "op", op, "status", resp.StatusCode, "bytes", len(body))
	tracer.SetOK(span)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
