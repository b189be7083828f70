package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestASCIIRequested(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("CRYPTOCHAT_ASCII_SYMBOLS", "")
	assert.False(t, ASCIIRequested())

	t.Setenv("CRYPTOCHAT_ASCII_SYMBOLS", "TRUE")
	assert.True(t, ASCIIRequested())

	t.Setenv("CRYPTOCHAT_ASCII_SYMBOLS", "")
	t.Setenv("TERM", "dumb")
	assert.True(t, ASCIIRequested())
}

func TestUseASCII(t *testing.T) {
	t.Cleanup(func() { UseASCII(false) })

	UseASCII(true)
	assert.Equal(t, "[OK]", SymbolSuccess)
	assert.Equal(t, "->", SymbolArrowR)
	assert.Equal(t, "Assistant", SymbolBot)

	UseASCII(false)
	assert.Equal(t, "✓", SymbolSuccess)
	assert.Equal(t, "📈", SymbolChart)
}
