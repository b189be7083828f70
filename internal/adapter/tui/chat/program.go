package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the chat screen and blocks until the user quits or ctx is done.
// Extra options are appended to the alt-screen and mouse defaults.
func Run(ctx context.Context, deps ChatModelDeps, opts ...tea.ProgramOption) error {
	if deps.Context == nil {
		deps.Context = ctx
	}
	model := NewChatModel(deps)

	base := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	}
	program := tea.NewProgram(model, append(base, opts...)...)

	// Quit when the root context is cancelled (SIGINT, SIGTERM).
	stop := context.AfterFunc(ctx, func() {
		program.Send(QuitMsg{})
	})
	defer stop()

	_, err := program.Run()
	return err
}
