package setup

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cryptochat/internal/infra/config"
)

// keyCheckTimeout bounds one key check round-trip.
const keyCheckTimeout = 10 * time.Second

// KeyChecker verifies that a provider accepts the configured key.
type KeyChecker func(ctx context.Context, pc config.ProviderConfig) error

func checkKeyCmd(ctx context.Context, check KeyChecker, pc config.ProviderConfig) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, keyCheckTimeout)
		defer cancel()
		return KeyCheckedMsg{Err: check(ctx, pc)}
	}
}
