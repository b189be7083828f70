package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"cryptochat/internal/domain"
)

// listingSize is how many listing entries the gainers/trending answers use.
const listingSize = 15

// coincapAssetResponse.Data stays raw: anything but an object lacks the
// requested field.
type coincapAssetResponse struct {
	Data json.RawMessage `json:"data"`
}

type coincapListingResponse struct {
	Data *[]coincapAsset `json:"data"`
}

type coincapAsset struct {
	ID string `json:"id"`
}

// Quote fetches one field of the asset quote for ticker. A response that
// lacks the field is QuoteNotAvailable, not an error.
func (c *Client) Quote(ctx context.Context, ticker string, field domain.QuoteField) (domain.QuoteResult, error) {
	var resp coincapAssetResponse
	u := c.coinCapURL + "/v2/assets/" + url.PathEscape(ticker)
	if err := c.getJSON(ctx, "CoinCap.Quote", u, &resp); err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(resp.Data, &fields); err != nil {
		c.logger.Debug("quote data is not an object", "ticker", ticker)
		return domain.QuoteNotAvailable{}, nil
	}
	raw, ok := fields[string(field)]
	if !ok {
		return domain.QuoteNotAvailable{}, nil
	}
	return domain.QuoteFound{Value: jsonValueText(raw)}, nil
}

// CurrentPrice returns "Current Price of {ticker}: {priceUsd} USD".
func (c *Client) CurrentPrice(ctx context.Context, ticker string) (string, error) {
	return c.metric(ctx, ticker, MetricPrice)
}

// MarketCap returns "Market Cap of {ticker}: {marketCapUsd} USD".
func (c *Client) MarketCap(ctx context.Context, ticker string) (string, error) {
	return c.metric(ctx, ticker, MetricMarketCap)
}

// CirculatingSupply returns "Circulating Supply of {ticker}: {supply}".
func (c *Client) CirculatingSupply(ctx context.Context, ticker string) (string, error) {
	return c.metric(ctx, ticker, MetricCirculatingSupply)
}

// TotalSupply returns "Total Supply of {ticker}: {maxSupply}".
func (c *Client) TotalSupply(ctx context.Context, ticker string) (string, error) {
	return c.metric(ctx, ticker, MetricTotalSupply)
}

func (c *Client) metric(ctx context.Context, ticker string, m Metric) (string, error) {
	r, err := c.Quote(ctx, ticker, m.Field)
	if err != nil {
		return "", err
	}
	return m.Format(ticker, r), nil
}

// ConvertToFiat prices amount units of ticker in USD. An unavailable
// price is returned as its text unchanged.
func (c *Client) ConvertToFiat(ctx context.Context, ticker string, amount domain.Amount) (string, error) {
	price, na, err := c.unitPrice(ctx, "Market.ConvertToFiat", ticker)
	if err != nil || na != "" {
		return na, err
	}
	v, err := amount.Float()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s is equal to %s USD", amount, ticker, domain.FormatFloat(v*price)), nil
}

// ConvertToCrypto converts amount USD into units of ticker.
func (c *Client) ConvertToCrypto(ctx context.Context, ticker string, amount domain.Amount) (string, error) {
	price, na, err := c.unitPrice(ctx, "Market.ConvertToCrypto", ticker)
	if err != nil || na != "" {
		return na, err
	}
	v, err := amount.Float()
	if err != nil {
		return "", err
	}
	if price == 0 {
		return "", domain.NewDomainError("Market.ConvertToCrypto", domain.ErrArgumentCoercion, "price of "+ticker+" is zero")
	}
	return fmt.Sprintf("%s USD is equal to %s %s", amount, domain.FormatFloat(v/price), ticker), nil
}

// unitPrice returns the parsed USD price, or the not-available text when
// the quote has no price.
func (c *Client) unitPrice(ctx context.Context, op, ticker string) (float64, string, error) {
	r, err := c.Quote(ctx, ticker, MetricPrice.Field)
	if err != nil {
		return 0, "", err
	}
	found, ok := r.(domain.QuoteFound)
	if !ok {
		return 0, MetricPrice.Format(ticker, r), nil
	}
	price, err := parsePrice(found.Value)
	if err != nil {
		return 0, "", domain.NewDomainError(op, domain.ErrArgumentCoercion, err.Error())
	}
	return price, "", nil
}

// HighestGainers lists the first listing entries. The listing is not
// sorted by price change; this matches TrendingCryptos on purpose.
func (c *Client) HighestGainers(ctx context.Context) (string, error) {
	ids, ok, err := c.topAssetIDs(ctx, "CoinCap.HighestGainers")
	if err != nil {
		return "", err
	}
	if !ok {
		return "Highest gainers not available", nil
	}
	return "Highest Gainers: " + strings.Join(ids, ", "), nil
}

// TrendingCryptos lists the first listing entries in upstream order.
func (c *Client) TrendingCryptos(ctx context.Context) (string, error) {
	ids, ok, err := c.topAssetIDs(ctx, "CoinCap.TrendingCryptos")
	if err != nil {
		return "", err
	}
	if !ok {
		return "Trending cryptocurrencies not available", nil
	}
	return "Trending Cryptocurrencies: " + strings.Join(ids, ", "), nil
}

func (c *Client) topAssetIDs(ctx context.Context, op string) ([]string, bool, error) {
	var resp coincapListingResponse
	if err := c.getJSON(ctx, op, c.coinCapURL+"/v2/assets", &resp); err != nil {
		return nil, false, err
	}
	if resp.Data == nil {
		return nil, false, nil
	}

	assets := *resp.Data
	if len(assets) > listingSize {
		assets = assets[:listingSize]
	}
	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}
	return ids, true, nil
}
