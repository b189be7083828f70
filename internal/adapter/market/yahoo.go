package market

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"cryptochat/internal/domain"
)

// DefaultPeriod is the history range used when none is given.
const DefaultPeriod = "1mo"

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *yahooChartError   `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []yahooQuote `json:"quote"`
	} `json:"indicators"`
}

// Bars can have null entries on days without trades.
type yahooQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type yahooChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// PriceHistory fetches daily bars for ticker (e.g. "BTC-USD") over period.
// The period is passed through unvalidated. Any failure is logged and
// yields an empty series; callers never see an error.
func (c *Client) PriceHistory(ctx context.Context, ticker, period string) domain.PriceSeries {
	if period == "" {
		period = DefaultPeriod
	}
	series := domain.PriceSeries{Ticker: ticker, Period: period}

	points, err := c.fetchHistory(ctx, ticker, period)
	if err != nil {
		c.logger.Warn("price history unavailable",
			"ticker", ticker,
			"period", period,
			"code", domain.ErrorCodeOf(err),
			"error", err,
		)
		return series
	}
	series.Points = points
	return series
}

func (c *Client) fetchHistory(ctx context.Context, ticker, period string) ([]domain.PricePoint, error) {
	q := url.Values{}
	q.Set("range", period)
	q.Set("interval", "1d")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.yahooURL, url.PathEscape(ticker), q.Encode())

	var resp yahooChartResponse
	if err := c.getJSON(ctx, "Yahoo.PriceHistory", u, &resp); err != nil {
		return nil, errors.Join(domain.ErrHistoryUnavailable, err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, domain.NewDomainError("Yahoo.PriceHistory", domain.ErrHistoryUnavailable, e.Code+": "+e.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, domain.NewDomainError("Yahoo.PriceHistory", domain.ErrHistoryUnavailable, "empty result for "+ticker)
	}

	res := resp.Chart.Result[0]
	quote := res.Indicators.Quote[0]
	points := make([]domain.PricePoint, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePx := at(quote.Close, i)
		if closePx == nil {
			continue
		}
		points = append(points, domain.PricePoint{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   deref(at(quote.Open, i)),
			High:   deref(at(quote.High, i)),
			Low:    deref(at(quote.Low, i)),
			Close:  *closePx,
			Volume: deref(at(quote.Volume, i)),
		})
	}
	return points, nil
}

func at(s []*float64, i int) *float64 {
	if i >= len(s) {
		return nil
	}
	return s[i]
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
