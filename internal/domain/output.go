package domain

// OutputKind tells the UI how to render a turn result.
type OutputKind string

const (
	OutputText  OutputKind = "text"
	OutputTable OutputKind = "table"
	OutputImage OutputKind = "image"
)

// FunctionOutput is the sum of everything a Function can return.
type FunctionOutput interface {
	Kind() OutputKind
	String() string
}

// TextOutput is a formatted string result.
type TextOutput struct {
	Value string
}

func (TextOutput) Kind() OutputKind  { return OutputText }
func (o TextOutput) String() string { return o.Value }

// TableOutput is a historical price series to show as a table.
type TableOutput struct {
	Series PriceSeries
}

func (TableOutput) Kind() OutputKind  { return OutputTable }
func (o TableOutput) String() string { return o.Series.String() }

// ImageOutput points at a chart written to local storage.
// Rendered is false when there was no data and nothing was written.
type ImageOutput struct {
	Path     string
	Ticker   string
	Rendered bool
}

func (ImageOutput) Kind() OutputKind { return OutputImage }

func (o ImageOutput) String() string {
	if !o.Rendered {
		return "Price history of " + o.Ticker + " not available"
	}
	return o.Path
}
