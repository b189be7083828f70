package function

import (
	"encoding/json"

	"cryptochat/internal/domain"
)

// Function names exposed to the model.
const (
	GetCurrentPrice      = "get_current_price"
	ConvertToFiat        = "convert_to_fiat"
	ConvertToCrypto      = "convert_to_crypto"
	GetMarketCap         = "get_market_cap"
	GetCirculatingSupply = "get_circulating_supply"
	GetTotalSupply       = "get_total_supply"
	GetHighestGainers    = "get_highest_gainers"
	GetTrendingCryptos   = "get_trending_cryptos"
	GetPriceHistory      = "get_price_history"
	PlotPriceHistory     = "plot_price_history"
)

const tickerSchema = `{
	"type": "object",
	"properties": {
		"ticker": {"type": "string", "description": "Ticker symbol for a coin, for example, 'bitcoin' for Bitcoin"}
	},
	"required": ["ticker"]
}`

func conversionSchema(amountDescription string) json.RawMessage {
	return json.RawMessage(`{
	"type": "object",
	"properties": {
		"ticker": {"type": "string", "description": "Ticker symbol for a coin, for example, 'bitcoin' for Bitcoin"},
		"amount": {"type": "number", "description": "` + amountDescription + `"}
	},
	"required": ["ticker", "amount"]
}`)
}

const historySchema = `{
	"type": "object",
	"properties": {
		"ticker": {"type": "string", "description": "Ticker symbol for a coin, for example, 'BTC-USD' for Bitcoin"},
		"period": {
			"type": "string",
			"description": "The period for which historical data should be retrieved (e.g., '1mo' for 1 month, '1d' for 1 day)",
			"default": "1mo"
		}
	},
	"required": ["ticker"]
}`

// Specs is the static catalogue advertised to the model, in declaration order.
// Every entry must have exactly one registered callable; Registry.Verify
// enforces that at startup.
var Specs = []domain.FunctionSpec{
	{
		Name:        GetCurrentPrice,
		Description: "Get the current price(in real time) of a cryptocurrency. Uses CoinCap API. (Ticker type: String(example(bitcoin:'bitcoin')))",
		Parameters:  json.RawMessage(tickerSchema),
	},
	{
		Name:        ConvertToFiat,
		Description: "Convert cryptocurrency to fiat currency. Uses CoinCap API. (Ticker type: String(example(bitcoin:'bitcoin')))",
		Parameters:  conversionSchema("Amount of cryptocurrency to convert to fiat currency"),
	},
	{
		Name:        ConvertToCrypto,
		Description: "Convert fiat currency to cryptocurrency. Uses CoinCap API. (Ticker type: String(example(bitcoin:'bitcoin')))",
		Parameters:  conversionSchema("Amount of fiat currency to convert to cryptocurrency"),
	},
	{
		Name:        GetMarketCap,
		Description: "Get the market capitalization of a cryptocurrency((in real time)). Uses CoinCap API. (Ticker type: String(example(bitcoin:'bitcoin')))",
		Parameters:  json.RawMessage(tickerSchema),
	},
	{
		Name:        GetCirculatingSupply,
		Description: "Get the circulating supply of a cryptocurrency((in real time)). Uses CoinCap API. (Ticker type: String(example(bitcoin:'bitcoin')))",
		Parameters:  json.RawMessage(tickerSchema),
	},
	{
		Name:        GetTotalSupply,
		Description: "Get the total supply of a cryptocurrency((in real time)). Uses CoinCap API. (Ticker type: String(example(bitcoin:'bitcoin')))",
		Parameters:  json.RawMessage(tickerSchema),
	},
	{
		Name:        GetHighestGainers,
		Description: "Get the highest gainers in the market((in real time)). Uses CoinCap API. (Ticker type: None)",
	},
	{
		Name:        GetTrendingCryptos,
		Description: "Get trending cryptocurrencies. Uses CoinCap API. (Ticker type: None)",
	},
	{
		Name:        GetPriceHistory,
		Description: "Get price history of a cryptocurrency. Uses yfinance API. (Ticker type: String(example(bitcoin:'BTC-USD')))",
		Parameters:  json.RawMessage(historySchema),
	},
	{
		Name:        PlotPriceHistory,
		Description: "Plot price history of a cryptocurrency. Uses yfinance API. (Ticker type: String(example(bitcoin:'BTC-USD')))",
		Parameters:  json.RawMessage(historySchema),
	},
}

// SpecByName returns the catalogue entry for name.
func SpecByName(name string) (domain.FunctionSpec, bool) {
	for _, s := range Specs {
		if s.Name == name {
			return s, true
		}
	}
	return domain.FunctionSpec{}, false
}
