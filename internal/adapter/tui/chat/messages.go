// Package chat implements the Bubble Tea chat screen of cryptochat.
package chat

import (
	"time"

	"cryptochat/internal/usecase"
)

// TurnDoneMsg carries the result of one dispatcher turn.
// Gen identifies the turn so results from a replaced conversation are dropped.
type TurnDoneMsg struct {
	Outcome *usecase.Outcome
	Err     error
	Gen     uint64
	Elapsed time.Duration
}

// QuitMsg signals the program to exit.
type QuitMsg struct{}

// StreamTickMsg drives the progressive reveal of assistant text.
type StreamTickMsg struct{}
