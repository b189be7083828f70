package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"cryptochat/internal/domain"
)

// Metric pairs a quote field with the label used when it is shown.
type Metric struct {
	Field  domain.QuoteField
	Label  string
	Suffix string
}

var (
	MetricPrice             = Metric{Field: domain.FieldPriceUSD, Label: "Current Price", Suffix: " USD"}
	MetricMarketCap         = Metric{Field: domain.FieldMarketCapUSD, Label: "Market Cap", Suffix: " USD"}
	MetricCirculatingSupply = Metric{Field: domain.FieldSupply, Label: "Circulating Supply"}
	MetricTotalSupply       = Metric{Field: domain.FieldMaxSupply, Label: "Total Supply"}
)

// Format renders a quote result as user-facing text.
func (m Metric) Format(ticker string, r domain.QuoteResult) string {
	if found, ok := r.(domain.QuoteFound); ok {
		return fmt.Sprintf("%s of %s: %s%s", m.Label, ticker, found.Value, m.Suffix)
	}
	return fmt.Sprintf("%s of %s not available", m.Label, ticker)
}

// jsonValueText renders a raw JSON scalar the way it is shown to users:
// strings unquoted, null as None, integral numbers as written.
func jsonValueText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return "None"
	case bytes.Equal(raw, []byte("true")):
		return "True"
	case bytes.Equal(raw, []byte("false")):
		return "False"
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case bytes.ContainsAny(raw, ".eE"):
		if v, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return domain.FormatFloat(v)
		}
	}
	return string(raw)
}

// parsePrice reads the numeric quote value.
func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("price %q is not a number", s)
	}
	return v, nil
}
