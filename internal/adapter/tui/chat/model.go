package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cryptochat/internal/adapter/tui/components"
	"cryptochat/internal/adapter/tui/theme"
	"cryptochat/internal/adapter/tui/uxerror"
	"cryptochat/internal/domain"
	"cryptochat/internal/usecase"
)

// AppTitle is shown above the conversation.
const AppTitle = "Crypto Currency Chatbot Assistant"

// ChatModelDeps are dependencies injected into the chat model.
type ChatModelDeps struct {
	Handler      TurnHandler
	Conversation *usecase.Conversation // nil = start a new one
	Context      context.Context       // parent of every turn; nil = Background
	Logger       *slog.Logger
	ProviderName string
	ModelName    string
	Speed        StreamSpeed
}

// ChatModel is the root Bubble Tea model for the chat TUI.
type ChatModel struct {
	deps ChatModelDeps
	conv *usecase.Conversation

	// Sub-models
	chatView  components.ChatViewModel
	input     components.InputAreaModel
	statusBar components.StatusBarModel
	spinner   spinner.Model

	// State
	waiting    bool // a turn is in flight
	cancelling bool // the in-flight turn was cancelled; its result is dropped
	streaming  bool
	streamBuf  []rune
	streamPos  int
	width      int
	height     int
	quitting   bool
	turns      int

	streamCfg StreamConfig

	// gen is bumped on every turn and on /clear. TurnDoneMsg with an older
	// gen is discarded.
	gen      uint64
	cancelFn context.CancelFunc
}

// NewChatModel creates the root chat model.
func NewChatModel(deps ChatModelDeps) ChatModel {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	conv := deps.Conversation
	if conv == nil {
		conv = usecase.NewConversation()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	sb := components.NewStatusBar()
	sb.ProviderName = deps.ProviderName
	sb.ModelName = deps.ModelName
	sb.Hints = defaultHints()

	chatView := components.NewChatView()
	chatView.SetMaxMessages(500)

	inputArea := components.NewInputArea()
	inputArea.Autocomplete = components.NewAutocomplete(slashCommands)

	return ChatModel{
		deps:      deps,
		conv:      conv,
		chatView:  chatView,
		input:     inputArea,
		statusBar: sb,
		spinner:   s,
		streamCfg: StreamConfigForSpeed(deps.Speed),
	}
}

// Conversation returns the conversation turns are currently appended to.
func (m ChatModel) Conversation() *usecase.Conversation { return m.conv }

// Init starts the spinner.
func (m ChatModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles all incoming messages.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case components.InputSubmitMsg:
		return m.handleSubmit(msg.Value)

	case TurnDoneMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		return m.handleTurnDone(msg)

	case StreamTickMsg:
		return m.handleStreamTick()

	case QuitMsg:
		m.quitting = true
		m.cancelInFlight()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if !m.waiting {
		if _, isMouse := msg.(tea.MouseMsg); !isMouse {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.chatView, cmd = m.chatView.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the entire chat UI.
func (m ChatModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width == 0 {
		return "  Initializing..."
	}

	title := theme.Title.Width(m.width).Render(AppTitle)

	inputView := m.input.View()
	if m.waiting {
		inputView = theme.Dim.Render("> waiting for response...") +
			"\n" + m.spinner.View() + " " + m.statusBar.Extra
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.chatView.View(),
		components.Divider(m.width),
		inputView,
		m.statusBar.View(),
	)
}

// layout recalculates sizes for all sub-models.
func (m *ChatModel) layout() {
	const titleH, inputH, statusH, dividerH = 1, 3, 1, 1
	contentH := max(m.height-titleH-inputH-statusH-dividerH-m.input.Autocomplete.Height(), 5)

	m.statusBar.SetWidth(m.width)
	m.chatView.SetSize(m.width, contentH)
	m.input.SetWidth(m.width)
}

// handleKey processes keyboard input.
func (m ChatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if isMouseEscapeLeak(msg.String()) {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.waiting && !m.cancelling {
			m.cancelRequest("Request cancelled.")
			return m, nil
		}
		m.quitting = true
		m.cancelInFlight()
		return m, tea.Quit

	case tea.KeyCtrlL:
		return m.handleSlashCommand("/clear", nil)

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd
	}

	if m.waiting {
		// Arrow keys scroll while the input is locked.
		switch msg.String() {
		case "up", "k":
			m.chatView.Viewport.LineUp(3)
		case "down", "j":
			m.chatView.Viewport.LineDown(3)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.layout()
	return m, cmd
}

// handleSubmit starts a turn or runs a slash command.
func (m ChatModel) handleSubmit(value string) (tea.Model, tea.Cmd) {
	if cmd, args, ok := components.ParseSlashCommand(value); ok {
		return m.handleSlashCommand(cmd, args)
	}
	if m.waiting {
		return m, nil
	}

	m.chatView.AddMessage(components.ChatMessage{
		Role:      components.RoleUser,
		Content:   value,
		Timestamp: time.Now(),
	})

	m.gen++
	ctx, cancel := context.WithCancel(m.deps.Context)
	m.cancelFn = cancel

	m.waiting = true
	m.cancelling = false
	m.streaming = false
	m.input.SetEnabled(false)
	m.statusBar.Extra = theme.SymbolSpinner + " Thinking..."

	return m, runTurnCmd(ctx, m.deps.Handler, m.conv, value, m.gen)
}

// handleTurnDone renders the outcome of the finished turn.
func (m ChatModel) handleTurnDone(msg TurnDoneMsg) (tea.Model, tea.Cmd) {
	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}

	if m.cancelling {
		m.deps.Logger.Debug("dropped result of cancelled turn", "conversation", m.conv.ID())
		m.finishTurn()
		return m, nil
	}

	if msg.Err != nil {
		if !errors.Is(msg.Err, context.Canceled) {
			m.deps.Logger.Error("turn failed",
				"error", msg.Err,
				"code", domain.ErrorCodeOf(msg.Err),
				"conversation", m.conv.ID(),
			)
			m.chatView.AddMessage(components.ChatMessage{
				Role:    components.RoleError,
				Content: uxerror.Humanize(msg.Err).Render(),
			})
		}
		m.finishTurn()
		return m, nil
	}

	out := msg.Outcome
	m.turns++
	m.statusBar.Turns = m.turns
	m.deps.Logger.Debug("turn completed",
		"kind", out.Kind,
		"function", out.FunctionName,
		"elapsed", msg.Elapsed,
		"conversation", m.conv.ID(),
	)

	switch out.Kind {
	case domain.OutputTable:
		series := out.Series
		m.chatView.AddMessage(components.ChatMessage{
			Role:         components.RoleTable,
			Content:      out.Text,
			FunctionName: out.FunctionName,
			Series:       &series,
		})
		m.finishTurn()
		return m, nil

	case domain.OutputImage:
		img := out.Image
		m.chatView.AddMessage(components.ChatMessage{
			Role:         components.RoleImage,
			Content:      out.Text,
			FunctionName: out.FunctionName,
			Image:        &img,
		})
		m.finishTurn()
		return m, nil
	}

	m.chatView.AddMessage(components.ChatMessage{
		Role:         components.RoleAssistant,
		FunctionName: out.FunctionName,
		Timestamp:    time.Now(),
	})

	if m.streamCfg.Speed == StreamInstant || out.Text == "" {
		m.chatView.UpdateLastMessage(out.Text)
		m.finishTurn()
		return m, nil
	}

	m.streamBuf = []rune(out.Text)
	m.streamPos = 0
	m.streaming = true
	return m, streamTickCmd(m.streamCfg.TickRate)
}

// handleStreamTick reveals the next chunk of the assistant reply.
func (m ChatModel) handleStreamTick() (tea.Model, tea.Cmd) {
	if !m.streaming {
		return m, nil
	}

	m.streamPos = min(m.streamPos+m.streamCfg.ChunkSize, len(m.streamBuf))
	m.chatView.UpdateLastMessage(string(m.streamBuf[:m.streamPos]))

	if m.streamPos >= len(m.streamBuf) {
		m.finishTurn()
		return m, nil
	}
	return m, streamTickCmd(m.streamCfg.TickRate)
}

// finishTurn unlocks the input after a turn.
func (m *ChatModel) finishTurn() {
	m.waiting = false
	m.cancelling = false
	m.streaming = false
	m.streamBuf = nil
	m.input.SetEnabled(true)
	m.statusBar.Extra = ""
	m.statusBar.Hints = defaultHints()
}

// cancelRequest cancels the in-flight turn. The input stays locked until the
// dispatcher returns so turns never overlap on one conversation.
func (m *ChatModel) cancelRequest(reason string) {
	m.cancelInFlight()
	m.cancelling = true
	m.statusBar.Extra = "Cancelling..."
	m.chatView.AddMessage(components.ChatMessage{
		Role:    components.RoleSystem,
		Content: reason,
	})
}

func (m *ChatModel) cancelInFlight() {
	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
}

func defaultHints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "Enter", Desc: "Send"},
		{Key: "Alt+Enter", Desc: "Newline"},
		{Key: "PgUp/PgDn", Desc: "Scroll"},
		{Key: "/help", Desc: "Commands"},
		{Key: "Ctrl+C", Desc: "Quit"},
	}
}

// isSGRMouseSequence detects SGR mouse escape sequences that leak through
// as key input (e.g. "<65;38;21M") on some terminals.
func isSGRMouseSequence(s string) bool {
	if len(s) < 5 || s[0] != '<' {
		return false
	}
	last := s[len(s)-1]
	if last != 'M' && last != 'm' {
		return false
	}
	return digitsAndSemicolons(s[1 : len(s)-1])
}

// isMouseEscapeLeak detects SGR, X11 and URXVT mouse sequences delivered as
// key input during fast trackpad scrolling.
func isMouseEscapeLeak(s string) bool {
	if isSGRMouseSequence(s) {
		return true
	}
	if len(s) >= 2 && s[0] == '[' && (s[1] == 'M' || s[1] == 'm') {
		return true
	}
	return len(s) >= 5 && s[0] == '[' && s[len(s)-1] == 'M' && digitsAndSemicolons(s[1:len(s)-1])
}

func digitsAndSemicolons(s string) bool {
	for _, r := range s {
		if r != ';' && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func (m ChatModel) systemNote(format string, args ...any) ChatModel {
	m.chatView.AddMessage(components.ChatMessage{
		Role:    components.RoleSystem,
		Content: fmt.Sprintf(format, args...),
	})
	return m
}
