package usecase

import (
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptochat/internal/domain"
)

func TestNewConversation(t *testing.T) {
	c := NewConversation()

	_, err := ulid.Parse(c.ID())
	require.NoError(t, err, "ID should be a ULID")
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.CreatedAt().IsZero())
	assert.NotEqual(t, c.ID(), NewConversation().ID())
}

func TestConversationAppendOrderAndCopy(t *testing.T) {
	c := NewConversation()
	c.Append(domain.Message{Role: domain.RoleUser, Content: "one"})
	c.Append(domain.Message{Role: domain.RoleAssistant, Content: "two"})

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
	assert.False(t, msgs[0].Timestamp.IsZero(), "Append stamps messages")

	msgs[0].Content = "mutated"
	assert.Equal(t, "one", c.Messages()[0].Content, "Messages returns a copy")
}

func TestConversationConcurrentReads(t *testing.T) {
	c := NewConversation()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Append(domain.Message{Role: domain.RoleUser, Content: "x"})
		}()
		go func() {
			defer wg.Done()
			_ = c.Messages()
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, c.Len())
}
