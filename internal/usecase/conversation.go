package usecase

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"cryptochat/internal/domain"
)

// Conversation is the append-only message history of one chat.
// Reads are safe while a turn is appending; turns themselves are
// serialized by the caller.
type Conversation struct {
	mu        sync.RWMutex
	id        string
	msgs      []domain.Message
	createdAt time.Time
}

// NewConversation creates an empty conversation with a generated ULID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		id:        generateULID(now),
		msgs:      make([]domain.Message, 0),
		createdAt: now,
	}
}

func generateULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// ID returns the conversation's ULID.
func (c *Conversation) ID() string { return c.id }

// CreatedAt returns when the conversation started.
func (c *Conversation) CreatedAt() time.Time { return c.createdAt }

// Append adds a message, stamping it if it has no timestamp.
func (c *Conversation) Append(msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	c.msgs = append(c.msgs, msg)
}

// Messages returns a copy of the history in insertion order.
func (c *Conversation) Messages() []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make([]domain.Message, len(c.msgs))
	copy(cp, c.msgs)
	return cp
}

// Len returns the number of stored messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.msgs)
}
