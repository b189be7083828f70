package setup

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cryptochat/internal/adapter/tui/components"
	"cryptochat/internal/adapter/tui/components/wizard"
	"cryptochat/internal/adapter/tui/theme"
	"cryptochat/internal/infra/config"
)

const defaultRegion = "us-east-1"

// listItem implements list.Item for the bubbles list component.
type listItem struct {
	title string
	desc  string
	id    string
}

func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.desc }
func (i listItem) FilterValue() string { return i.title }

// Options configures the wizard.
type Options struct {
	// Check verifies a key before it is accepted. Nil skips the check.
	Check KeyChecker
	// Context bounds key checks. Nil means Background.
	Context context.Context
	// ConfigPath and KeyFile are shown in the summary.
	ConfigPath string
	KeyFile    string
}

// Result is what the wizard collected.
type Result struct {
	Provider config.ProviderConfig
	APIKey   string // empty for providers that use no key
}

// WizardModel is the root Bubble Tea model for the setup wizard.
type WizardModel struct {
	opts Options

	phase Phase
	steps wizard.StepIndicatorModel
	list  list.Model
	field wizard.FormFieldModel
	check wizard.KeyCheckModel

	choice ProviderChoice
	apiKey string
	region string
	model  string

	done      bool
	cancelled bool
	width     int
	height    int
}

// NewWizardModel creates the wizard on its welcome screen.
func NewWizardModel(opts Options) WizardModel {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	names := make([]string, 0, int(phaseCount))
	for p := PhaseWelcome; p < phaseCount; p++ {
		names = append(names, p.String())
	}
	return WizardModel{
		opts:  opts,
		steps: wizard.NewStepIndicator(names...),
		check: wizard.NewKeyCheck(),
	}
}

// Phase returns the current screen.
func (m WizardModel) Phase() Phase { return m.phase }

// Cancelled reports whether the user quit before finishing.
func (m WizardModel) Cancelled() bool { return m.cancelled }

// Result returns the collected settings. ok is false unless the user
// confirmed the summary.
func (m WizardModel) Result() (Result, bool) {
	if !m.done {
		return Result{}, false
	}
	return Result{
		Provider: config.ProviderConfig{
			Name:   m.choice.Type,
			Type:   m.choice.Type,
			Model:  m.model,
			Region: m.region,
		},
		APIKey: m.apiKey,
	}, true
}

func (m WizardModel) Init() tea.Cmd { return nil }

func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.steps.SetWidth(m.width - 4)
		if m.list.Items() != nil {
			m.list.SetSize(m.listSize())
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEsc:
			if m.phase == PhaseWelcome {
				m.cancelled = true
				return m, tea.Quit
			}
			return m.enterPhase(m.phase - 1)
		}

	case KeyCheckedMsg:
		if !m.check.Checking {
			return m, nil
		}
		m.check.Finish(msg.Err)
		if msg.Err == nil {
			return m.enterPhase(PhaseModel)
		}
		return m, nil
	}

	switch m.phase {
	case PhaseWelcome, PhaseComplete:
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
			if m.phase == PhaseComplete {
				m.done = true
				return m, tea.Quit
			}
			return m.enterPhase(PhaseProvider)
		}
		return m, nil
	case PhaseProvider:
		return m.updateProvider(msg)
	case PhaseCredential:
		return m.updateCredential(msg)
	case PhaseModel:
		return m.updateModel(msg)
	}
	return m, nil
}

func (m WizardModel) listSize() (int, int) {
	return max(m.width-4, 20), max(m.height-12, 6)
}

func (m WizardModel) enterPhase(p Phase) (tea.Model, tea.Cmd) {
	m.phase = p
	m.steps.SetCurrent(int(p))

	switch p {
	case PhaseProvider:
		m.list = m.buildList(providerItems())
	case PhaseCredential:
		m.check.Reset()
		if m.choice.NeedsKey() {
			m.field = wizard.NewSecretField(fmt.Sprintf("Enter your %s API key:", m.choice.Name), "paste key here")
			m.field.Description = "Create one at: " + m.choice.KeyURL
		} else {
			m.field = wizard.NewTextField("AWS region:", defaultRegion)
			m.field.Description = "Credentials come from the AWS SDK chain (env, profile, role)."
		}
	case PhaseModel:
		m.list = m.buildList(modelItems(m.choice))
	}
	return m, nil
}

func (m WizardModel) updateProvider(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		if item, ok := m.list.SelectedItem().(listItem); ok {
			for _, p := range Providers() {
				if p.Type == item.id {
					m.choice = p
				}
			}
			m.apiKey, m.region = "", ""
			return m.enterPhase(PhaseCredential)
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m WizardModel) updateCredential(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case wizard.FieldSubmitMsg:
		if !m.choice.NeedsKey() {
			m.region = msg.Value
			return m.enterPhase(PhaseModel)
		}
		if msg.Value == "" {
			m.field.SetError("API key cannot be empty")
			return m, nil
		}
		m.field.ClearError()
		m.apiKey = msg.Value
		if m.opts.Check == nil {
			return m.enterPhase(PhaseModel)
		}
		pc := config.ProviderConfig{Name: m.choice.Type, Type: m.choice.Type, APIKey: m.apiKey}
		return m, tea.Batch(m.check.Start(), checkKeyCmd(m.opts.Context, m.opts.Check, pc))

	case tea.KeyMsg:
		if m.check.Checking {
			return m, nil
		}
		if msg.Type == tea.KeyCtrlS && m.check.ErrMsg != "" {
			return m.enterPhase(PhaseModel)
		}

	default:
		var cmd tea.Cmd
		m.check, cmd = m.check.Update(msg)
		if cmd != nil {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.field, cmd = m.field.Update(msg)
	return m, cmd
}

func (m WizardModel) updateModel(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter && m.list.FilterState() != list.Filtering {
		if item, ok := m.list.SelectedItem().(listItem); ok {
			m.model = item.id
			return m.enterPhase(PhaseComplete)
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m WizardModel) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	var content string
	switch m.phase {
	case PhaseWelcome:
		content = viewWelcome()
	case PhaseProvider:
		content = lipgloss.JoinVertical(lipgloss.Left, theme.Bold.Render("Choose your model provider:"), "", m.list.View())
	case PhaseCredential:
		content = m.field.View()
		if v := m.check.View(); v != "" {
			content += "\n\n" + v
		}
	case PhaseModel:
		content = lipgloss.JoinVertical(lipgloss.Left, theme.Bold.Render("Choose a model:"), "", m.list.View())
	case PhaseComplete:
		content = m.viewSummary()
	}

	sb := components.NewStatusBar()
	sb.Hints = []components.KeyHint{
		{Key: "Enter", Desc: "Select"},
		{Key: "Esc", Desc: "Back"},
		{Key: "Ctrl+C", Desc: "Quit"},
	}
	sb.SetWidth(m.width)

	return lipgloss.JoinVertical(lipgloss.Left,
		theme.WizardTitle.Render("cryptochat setup"),
		m.steps.View(),
		"",
		content,
		"",
		sb.View(),
	)
}

func viewWelcome() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		theme.Bold.Render("Welcome to the Crypto Currency Chatbot Assistant!"),
		"",
		"This wizard writes the config file and the API key file.",
		"",
		theme.TextMuted.Render("You will choose:"),
		"  "+theme.SymbolBullet+" a model provider (OpenAI, Anthropic, Gemini or Bedrock)",
		"  "+theme.SymbolBullet+" its API key, checked against the provider",
		"  "+theme.SymbolBullet+" the model that answers your questions",
		"",
		theme.TextInfo.Render("Press Enter to begin"),
	)
}

func (m WizardModel) viewSummary() string {
	lines := []string{
		theme.TextSuccess.Render(theme.SymbolSuccess + " Ready to save"),
		"",
		theme.Bold.Render("Summary:"),
		fmt.Sprintf("  Provider:  %s", theme.TextInfo.Render(m.choice.Name)),
		fmt.Sprintf("  Model:     %s", theme.TextInfo.Render(m.model)),
	}
	if m.region != "" {
		lines = append(lines, fmt.Sprintf("  Region:    %s", theme.TextInfo.Render(m.region)))
	}
	if m.opts.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("  Config:    %s", theme.TextInfo.Render(m.opts.ConfigPath)))
	}
	if m.apiKey != "" && m.opts.KeyFile != "" {
		lines = append(lines, fmt.Sprintf("  Key file:  %s", theme.TextInfo.Render(m.opts.KeyFile)))
	}
	lines = append(lines,
		"",
		theme.Bold.Render("Next:"),
		"  Run "+theme.TextInfo.Render("cryptochat")+" and ask about a coin",
		"",
		theme.TextInfo.Render("Press Enter to save and exit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func providerItems() []list.Item {
	var items []list.Item
	for _, p := range Providers() {
		items = append(items, listItem{title: p.Name, desc: p.Description, id: p.Type})
	}
	return items
}

func modelItems(p ProviderChoice) []list.Item {
	var items []list.Item
	for i, id := range p.Models {
		desc := p.Name + " model"
		if i == 0 {
			desc += " (Recommended)"
		}
		items = append(items, listItem{title: id, desc: desc, id: id})
	}
	return items
}

func (m WizardModel) buildList(items []list.Item) list.Model {
	w, h := m.listSize()
	l := list.New(items, list.NewDefaultDelegate(), w, h)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)
	return l
}
