package chat

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"cryptochat/internal/adapter/tui/components"
	"cryptochat/internal/adapter/tui/theme"
	"cryptochat/internal/usecase"
)

var slashCommands = []components.CommandDef{
	{Name: "/help", Description: "Show available commands"},
	{Name: "/clear", Description: "Start a new conversation"},
	{Name: "/cancel", Description: "Cancel the active request"},
	{Name: "/speed", Description: "Set or cycle reply speed"},
	{Name: "/info", Description: "Show conversation details"},
	{Name: "/quit", Aliases: []string{"/exit"}, Description: "Exit cryptochat"},
}

const helpText = `Available commands:
  /help            - Show this help
  /clear           - Start a new conversation
  /cancel          - Cancel the active request
  /speed [name]    - Reply speed: normal, fast or instant
  /info            - Show conversation details
  /quit            - Exit cryptochat

Try asking:
  What is the price of bitcoin?
  Convert 2.5 ethereum to USD
  Show me the price history of BTC-USD
  Plot the price history of ETH-USD for 3mo

Keybindings:
  Enter            - Send message
  Alt+Enter        - New line
  Up/Down          - Previous questions
  PgUp/PgDn        - Scroll chat
  Ctrl+L           - New conversation
  Ctrl+C           - Cancel/Quit`

// handleSlashCommand processes a slash command.
func (m ChatModel) handleSlashCommand(cmd string, args []string) (tea.Model, tea.Cmd) {
	switch cmd {
	case "/help":
		return m.systemNote(helpText), nil

	case "/quit", "/exit":
		m.quitting = true
		m.cancelInFlight()
		return m, tea.Quit

	case "/clear":
		if m.waiting {
			return m.systemNote("A request is running. Use /cancel first."), nil
		}
		m.conv = usecase.NewConversation()
		m.gen++
		m.turns = 0
		m.statusBar.Turns = 0
		m.chatView.Clear()
		m.deps.Logger.Info("conversation reset", "conversation", m.conv.ID())
		return m.systemNote("%s New conversation started.", theme.SymbolSuccess), nil

	case "/cancel":
		if !m.waiting || m.cancelling {
			return m.systemNote("No active request to cancel."), nil
		}
		m.cancelRequest("Request cancelled.")
		return m, nil

	case "/speed":
		next := m.streamCfg.Speed.Next()
		if len(args) > 0 {
			s, err := ParseStreamSpeed(args[0])
			if err != nil {
				return m.systemNote("%s", err), nil
			}
			next = s
		}
		m.streamCfg = StreamConfigForSpeed(next)
		return m.systemNote("Reply speed: %s", next), nil

	case "/info":
		var sb strings.Builder
		sb.WriteString("Conversation " + m.conv.ID())
		sb.WriteString("\n  Started: " + m.conv.CreatedAt().Format("2006-01-02 15:04:05"))
		sb.WriteString("\n  Messages stored: ")
		sb.WriteString(strconv.Itoa(m.conv.Len()))
		if m.deps.ProviderName != "" {
			sb.WriteString("\n  Provider: " + m.deps.ProviderName)
		}
		if m.deps.ModelName != "" {
			sb.WriteString("\n  Model: " + m.deps.ModelName)
		}
		return m.systemNote("%s", sb.String()), nil

	default:
		return m.systemNote("Unknown command: %s. Type /help for available commands.", cmd), nil
	}
}
