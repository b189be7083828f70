package theme

import (
	"os"
	"strings"
)

// Glyphs drawn by the chat and setup screens.
var (
	SymbolSuccess  = "✓"
	SymbolError    = "✗"
	SymbolSpinner  = "⏳"
	SymbolChart    = "📈"
	SymbolArrowR   = "→"
	SymbolBullet   = "•"
	SymbolEllipsis = "…"
	SymbolUser     = "You"
	SymbolBot      = "Assistant"
)

// glyph pairs a symbol variable with its plain-ASCII stand-in.
type glyph struct {
	target  *string
	unicode string
	ascii   string
}

var glyphs = []glyph{
	{&SymbolSuccess, "✓", "[OK]"},
	{&SymbolError, "✗", "[ERR]"},
	{&SymbolSpinner, "⏳", "[...]"},
	{&SymbolChart, "📈", "[chart]"},
	{&SymbolArrowR, "→", "->"},
	{&SymbolBullet, "•", "*"},
	{&SymbolEllipsis, "…", "..."},
}

// ASCIIRequested reports whether the terminal asked for plain symbols,
// through CRYPTOCHAT_ASCII_SYMBOLS or TERM=dumb.
func ASCIIRequested() bool {
	if v := os.Getenv("CRYPTOCHAT_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return true
	}
	return os.Getenv("TERM") == "dumb"
}

// UseASCII swaps every glyph to its ASCII form, or back to Unicode.
func UseASCII(on bool) {
	for _, g := range glyphs {
		if on {
			*g.target = g.ascii
		} else {
			*g.target = g.unicode
		}
	}
}

func init() {
	UseASCII(ASCIIRequested())
}
