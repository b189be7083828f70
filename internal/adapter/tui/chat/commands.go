package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cryptochat/internal/usecase"
)

// TurnHandler runs one user turn against a conversation.
type TurnHandler interface {
	Handle(ctx context.Context, conv *usecase.Conversation, userText string) (*usecase.Outcome, error)
}

// runTurnCmd runs the handler off the update loop with a cancellable context.
func runTurnCmd(ctx context.Context, h TurnHandler, conv *usecase.Conversation, text string, gen uint64) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		out, err := h.Handle(ctx, conv, text)
		return TurnDoneMsg{Outcome: out, Err: err, Gen: gen, Elapsed: time.Since(start)}
	}
}

// streamTickCmd fires a StreamTickMsg after rate.
func streamTickCmd(rate time.Duration) tea.Cmd {
	if rate <= 0 {
		rate = 16 * time.Millisecond
	}
	return tea.Tick(rate, func(time.Time) tea.Msg {
		return StreamTickMsg{}
	})
}
