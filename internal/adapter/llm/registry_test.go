package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptochat/internal/domain"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&mockProvider{name: "openai"}))
	require.NoError(t, r.Register(&mockProvider{name: "anthropic"}))

	assert.Error(t, r.Register(&mockProvider{name: "openai"}), "duplicate name")
	assert.Equal(t, []string{"anthropic", "openai"}, r.List())

	p, err := r.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = r.Get("groq")
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}
