package chat

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptochat/internal/adapter/tui/components"
	"cryptochat/internal/domain"
	"cryptochat/internal/usecase"
)

type fakeHandler struct {
	mu    sync.Mutex
	out   *usecase.Outcome
	err   error
	texts []string
	block bool // wait for ctx cancellation
}

func (f *fakeHandler) Handle(ctx context.Context, _ *usecase.Conversation, text string) (*usecase.Outcome, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.out, f.err
}

func newTestModel(t *testing.T, h TurnHandler, speed StreamSpeed) ChatModel {
	t.Helper()
	m := NewChatModel(ChatModelDeps{
		Handler:      h,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		ProviderName: "openai",
		ModelName:    "gpt-3.5-turbo",
		Speed:        speed,
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(ChatModel)
}

func update(t *testing.T, m ChatModel, msg tea.Msg) (ChatModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	cm, ok := updated.(ChatModel)
	require.True(t, ok)
	return cm, cmd
}

// runTurn submits text and feeds the turn's result back into the model.
func runTurn(t *testing.T, m ChatModel, text string) ChatModel {
	t.Helper()
	m, cmd := update(t, m, components.InputSubmitMsg{Value: text})
	require.NotNil(t, cmd, "submit should start a turn")
	m, _ = update(t, m, cmd())
	return m
}

func lastMessage(t *testing.T, m ChatModel) components.ChatMessage {
	t.Helper()
	msg, ok := m.chatView.Last()
	require.True(t, ok, "chat view is empty")
	return msg
}

func TestSubmitLocksInputUntilTurnDone(t *testing.T) {
	h := &fakeHandler{out: &usecase.Outcome{Kind: domain.OutputText, Text: "Hello there"}}
	m := newTestModel(t, h, StreamInstant)

	m, cmd := update(t, m, components.InputSubmitMsg{Value: "hi"})
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	assert.False(t, m.input.Enabled)
	assert.Equal(t, components.RoleUser, lastMessage(t, m).Role)
	assert.Equal(t, "hi", lastMessage(t, m).Content)

	done, ok := cmd().(TurnDoneMsg)
	require.True(t, ok)
	assert.Equal(t, m.gen, done.Gen)

	m, _ = update(t, m, done)
	assert.False(t, m.waiting)
	assert.True(t, m.input.Enabled)
	assert.Equal(t, 1, m.turns)

	last := lastMessage(t, m)
	assert.Equal(t, components.RoleAssistant, last.Role)
	assert.Equal(t, "Hello there", last.Content)
	assert.Equal(t, []string{"hi"}, h.texts)
}

func TestTextOutcomeCarriesFunctionName(t *testing.T) {
	h := &fakeHandler{out: &usecase.Outcome{
		Kind:         domain.OutputText,
		Text:         "Bitcoin trades at 67000.5 USD.",
		FunctionName: "get_current_price",
	}}
	m := runTurn(t, newTestModel(t, h, StreamInstant), "price of bitcoin?")

	last := lastMessage(t, m)
	assert.Equal(t, components.RoleAssistant, last.Role)
	assert.Equal(t, "get_current_price", last.FunctionName)
}

func TestTableOutcome(t *testing.T) {
	series := domain.PriceSeries{
		Ticker: "BTC-USD",
		Period: "1mo",
		Points: []domain.PricePoint{{
			Time: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100,
		}},
	}
	h := &fakeHandler{out: &usecase.Outcome{
		Kind:         domain.OutputTable,
		Series:       series,
		Text:         series.String(),
		FunctionName: "get_price_history",
	}}
	m := runTurn(t, newTestModel(t, h, StreamNormal), "history of BTC-USD")

	last := lastMessage(t, m)
	assert.Equal(t, components.RoleTable, last.Role)
	require.NotNil(t, last.Series)
	assert.Equal(t, "BTC-USD", last.Series.Ticker)
	assert.False(t, m.streaming, "tables are shown at once")
	assert.True(t, m.input.Enabled)
}

func TestImageOutcome(t *testing.T) {
	tests := []struct {
		name string
		img  domain.ImageOutput
	}{
		{"rendered", domain.ImageOutput{Path: "output.png", Ticker: "ETH-USD", Rendered: true}},
		{"no data", domain.ImageOutput{Ticker: "NOPE", Rendered: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHandler{out: &usecase.Outcome{
				Kind:         domain.OutputImage,
				Image:        tt.img,
				Text:         tt.img.String(),
				FunctionName: "plot_price_history",
			}}
			m := runTurn(t, newTestModel(t, h, StreamInstant), "plot it")

			last := lastMessage(t, m)
			assert.Equal(t, components.RoleImage, last.Role)
			require.NotNil(t, last.Image)
			assert.Equal(t, tt.img, *last.Image)
		})
	}
}

func TestErrorOutcomeShowsFriendlyError(t *testing.T) {
	h := &fakeHandler{err: domain.NewDomainError("Client.Quote", domain.ErrTransportFailure, "HTTP 500")}
	m := runTurn(t, newTestModel(t, h, StreamInstant), "price of bitcoin?")

	last := lastMessage(t, m)
	assert.Equal(t, components.RoleError, last.Role)
	assert.Contains(t, last.Content, "Market Data Unavailable")
	assert.Contains(t, last.Content, string(domain.CodeTransportFailure))
	assert.False(t, m.waiting)
	assert.Equal(t, 0, m.turns)
}

func TestStaleTurnDoneIsDiscarded(t *testing.T) {
	m := newTestModel(t, &fakeHandler{}, StreamInstant)
	before := m.chatView.Len()

	m, _ = update(t, m, TurnDoneMsg{Gen: m.gen + 7, Outcome: &usecase.Outcome{Kind: domain.OutputText, Text: "late"}})
	assert.Equal(t, before, m.chatView.Len())
}

func TestCancelDropsResultAndUnlocksAfterReturn(t *testing.T) {
	h := &fakeHandler{block: true}
	m := newTestModel(t, h, StreamInstant)

	m, cmd := update(t, m, components.InputSubmitMsg{Value: "slow question"})
	require.NotNil(t, cmd)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.cancelling)
	assert.True(t, m.waiting, "input stays locked until the turn returns")
	assert.Equal(t, "Request cancelled.", lastMessage(t, m).Content)

	// The handler observes the cancelled context and returns.
	m, _ = update(t, m, cmd())
	assert.False(t, m.waiting)
	assert.False(t, m.cancelling)
	assert.Equal(t, components.RoleSystem, lastMessage(t, m).Role, "no error entry for a cancelled turn")
}

func TestCtrlCQuitsWhenIdle(t *testing.T) {
	m := newTestModel(t, &fakeHandler{}, StreamInstant)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Equal(t, "Goodbye!\n", m.View())
}

func TestClearStartsNewConversation(t *testing.T) {
	h := &fakeHandler{out: &usecase.Outcome{Kind: domain.OutputText, Text: "ok"}}
	m := runTurn(t, newTestModel(t, h, StreamInstant), "hi")
	oldID := m.Conversation().ID()
	oldGen := m.gen

	m, _ = update(t, m, components.InputSubmitMsg{Value: "/clear"})
	assert.NotEqual(t, oldID, m.Conversation().ID())
	assert.Greater(t, m.gen, oldGen)
	assert.Equal(t, 0, m.turns)
	assert.Equal(t, 1, m.chatView.Len())
	assert.Contains(t, lastMessage(t, m).Content, "New conversation started.")
}

func TestClearRefusedWhileWaiting(t *testing.T) {
	m := newTestModel(t, &fakeHandler{block: true}, StreamInstant)
	m, _ = update(t, m, components.InputSubmitMsg{Value: "question"})
	id := m.Conversation().ID()

	m, _ = update(t, m, components.InputSubmitMsg{Value: "/clear"})
	assert.Equal(t, id, m.Conversation().ID())
	assert.Contains(t, lastMessage(t, m).Content, "/cancel")
	m.cancelInFlight()
}

func TestStreamingRevealsWholeReply(t *testing.T) {
	text := "Bitcoin is trading at 67000.5 USD according to the latest quote."
	h := &fakeHandler{out: &usecase.Outcome{Kind: domain.OutputText, Text: text}}
	m := runTurn(t, newTestModel(t, h, StreamNormal), "hi")

	require.True(t, m.streaming)
	assert.True(t, m.waiting)
	for i := 0; m.streaming && i < 100; i++ {
		m, _ = update(t, m, StreamTickMsg{})
	}
	assert.False(t, m.streaming)
	assert.False(t, m.waiting)
	assert.Equal(t, text, lastMessage(t, m).Content)
}

func TestSlashCommands(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/help", "Available commands"},
		{"/speed fast", "Reply speed: fast"},
		{"/speed warp", "unknown stream speed"},
		{"/cancel", "No active request to cancel."},
		{"/info", "Messages stored: 0"},
		{"/bogus", "Unknown command: /bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := newTestModel(t, &fakeHandler{}, StreamInstant)
			m, _ = update(t, m, components.InputSubmitMsg{Value: tt.input})
			last := lastMessage(t, m)
			assert.Equal(t, components.RoleSystem, last.Role)
			assert.Contains(t, last.Content, tt.want)
		})
	}
}

func TestQuitCommand(t *testing.T) {
	for _, cmd := range []string{"/quit", "/exit"} {
		m := newTestModel(t, &fakeHandler{}, StreamInstant)
		m, c := update(t, m, components.InputSubmitMsg{Value: cmd})
		require.NotNil(t, c)
		assert.True(t, m.quitting, cmd)
	}
}

func TestViewShowsTitleAndStatus(t *testing.T) {
	m := newTestModel(t, &fakeHandler{}, StreamInstant)
	view := m.View()
	assert.Contains(t, view, AppTitle)
	assert.Contains(t, view, "gpt-3.5-turbo")
	assert.Contains(t, view, "What's on your mind")

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, m.View(), "gpt-3.5-turbo")
}

func TestMouseEscapeLeak(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"<65;38;21M", true},
		{"<0;1;1m", true},
		{"[M", true},
		{"[32;10;5M", true},
		{"hello", false},
		{"<65;x;21M", false},
		{"ctrl+c", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isMouseEscapeLeak(tt.in), tt.in)
	}
}

func TestStreamSpeed(t *testing.T) {
	s, err := ParseStreamSpeed("FAST")
	require.NoError(t, err)
	assert.Equal(t, StreamFast, s)

	_, err = ParseStreamSpeed("warp")
	assert.Error(t, err)

	assert.Equal(t, StreamFast, StreamNormal.Next())
	assert.Equal(t, StreamInstant, StreamFast.Next())
	assert.Equal(t, StreamNormal, StreamInstant.Next())

	assert.Zero(t, StreamConfigForSpeed(StreamInstant).ChunkSize)
	assert.Equal(t, 8, StreamConfigForSpeed(StreamNormal).ChunkSize)
}
