package setup

// Phase is one screen of the setup wizard.
type Phase int

const (
	PhaseWelcome Phase = iota
	PhaseProvider
	PhaseCredential
	PhaseModel
	PhaseComplete
	phaseCount
)

var phaseNames = [...]string{
	PhaseWelcome:    "Welcome",
	PhaseProvider:   "Provider",
	PhaseCredential: "Credential",
	PhaseModel:      "Model",
	PhaseComplete:   "Complete",
}

func (p Phase) String() string {
	if p < 0 || p >= phaseCount {
		return "unknown"
	}
	return phaseNames[p]
}

// ProviderChoice is a selectable model provider.
type ProviderChoice struct {
	Type        string
	Name        string
	Description string
	KeyURL      string   // where to create a key; empty when no key is used
	Models      []string // suggestions, first is recommended
}

// NeedsKey reports whether the provider authenticates with an API key.
func (p ProviderChoice) NeedsKey() bool { return p.KeyURL != "" }

// Providers returns the provider types cryptochat can talk to.
func Providers() []ProviderChoice {
	return []ProviderChoice{
		{
			Type:        "openai",
			Name:        "OpenAI",
			Description: "Chat completions with function calling (default)",
			KeyURL:      "https://platform.openai.com/api-keys",
			Models:      []string{"gpt-3.5-turbo", "gpt-4o-mini", "gpt-4o"},
		},
		{
			Type:        "anthropic",
			Name:        "Anthropic",
			Description: "Claude via the Messages API",
			KeyURL:      "https://console.anthropic.com/settings/keys",
			Models:      []string{"claude-3-5-haiku-latest", "claude-3-5-sonnet-latest"},
		},
		{
			Type:        "gemini",
			Name:        "Google Gemini",
			Description: "Gemini via the GenAI API",
			KeyURL:      "https://aistudio.google.com/apikey",
			Models:      []string{"gemini-2.0-flash", "gemini-1.5-pro"},
		},
		{
			Type:        "bedrock",
			Name:        "AWS Bedrock",
			Description: "Converse API with AWS credentials (needs -tags bedrock)",
			Models:      []string{"anthropic.claude-3-haiku-20240307-v1:0", "anthropic.claude-3-5-sonnet-20240620-v1:0"},
		},
	}
}

// EnvVarFor is the variable the credential is exported as for a provider type.
func EnvVarFor(providerType string) string {
	switch providerType {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
