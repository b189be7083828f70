package domain

import (
	"fmt"
	"strings"
	"time"
)

// QuoteField names a field of the quote-by-ticker response.
type QuoteField string

const (
	FieldPriceUSD     QuoteField = "priceUsd"
	FieldMarketCapUSD QuoteField = "marketCapUsd"
	FieldSupply       QuoteField = "supply"
	FieldMaxSupply    QuoteField = "maxSupply"
)

// QuoteResult is either QuoteFound or QuoteNotAvailable.
type QuoteResult interface {
	isQuoteResult()
}

// QuoteFound carries the upstream value verbatim.
type QuoteFound struct {
	Value string
}

// QuoteNotAvailable means the response lacked the requested field.
type QuoteNotAvailable struct{}

func (QuoteFound) isQuoteResult()        {}
func (QuoteNotAvailable) isQuoteResult() {}

// PricePoint is one daily bar of a price series.
type PricePoint struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries is a time-ordered price history. An empty Points slice means
// no data was available.
type PriceSeries struct {
	Ticker string
	Period string
	Points []PricePoint
}

// Empty reports whether the series has no data.
func (s PriceSeries) Empty() bool { return len(s.Points) == 0 }

// Closes returns the Close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// HistoryColumns is the header used wherever a series is shown as a table.
var HistoryColumns = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// Rows formats the series as table rows matching HistoryColumns.
func (s PriceSeries) Rows() [][]string {
	rows := make([][]string, 0, len(s.Points))
	for _, p := range s.Points {
		rows = append(rows, []string{
			p.Time.Format("2006-01-02"),
			fmt.Sprintf("%.6f", p.Open),
			fmt.Sprintf("%.6f", p.High),
			fmt.Sprintf("%.6f", p.Low),
			fmt.Sprintf("%.6f", p.Close),
			fmt.Sprintf("%.0f", p.Volume),
		})
	}
	return rows
}

func (s PriceSeries) String() string {
	if s.Empty() {
		return "Price history of " + s.Ticker + " not available"
	}
	var b strings.Builder
	b.WriteString(strings.Join(HistoryColumns, "\t"))
	for _, row := range s.Rows() {
		b.WriteByte('\n')
		b.WriteString(strings.Join(row, "\t"))
	}
	return b.String()
}
