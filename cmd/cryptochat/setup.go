package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cryptochat/internal/adapter/tui/setup"
	"cryptochat/internal/domain"
	"cryptochat/internal/infra/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Choose a model provider and write the config and key files",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		// Start over from the defaults rather than patching a broken file.
		fmt.Fprintf(cmd.ErrOrStderr(), "ignoring existing config: %v\n", err)
		cfg = config.Defaults()
	}

	model := setup.NewWizardModel(setup.Options{
		Check:      checkAPIKey,
		Context:    cmd.Context(),
		ConfigPath: flagConfig,
		KeyFile:    cfg.Credential.KeyFile,
	})
	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	if err != nil {
		return fmt.Errorf("setup wizard: %w", err)
	}

	res, ok := final.(setup.WizardModel).Result()
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Setup cancelled, nothing written.")
		return nil
	}
	return saveSetup(cfg, res, flagConfig, cmd.OutOrStdout())
}

// applySetup makes res the default provider, replacing any provider of
// the same name.
func applySetup(cfg *config.Config, res setup.Result) {
	replaced := false
	for i := range cfg.LLM.Providers {
		if cfg.LLM.Providers[i].Name == res.Provider.Name {
			p := &cfg.LLM.Providers[i]
			p.Type, p.Model, p.Region = res.Provider.Type, res.Provider.Model, res.Provider.Region
			p.APIKey = "" // the key lives in the credential file
			replaced = true
		}
	}
	if !replaced {
		cfg.LLM.Providers = append(cfg.LLM.Providers, res.Provider)
	}
	cfg.LLM.DefaultProvider = res.Provider.Name
	if res.APIKey != "" {
		cfg.Credential.EnvVar = setup.EnvVarFor(res.Provider.Type)
	}
}

// saveSetup writes the key file and then the config, both 0600.
func saveSetup(cfg *config.Config, res setup.Result, path string, w io.Writer) error {
	applySetup(cfg, res)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if res.APIKey != "" {
		if err := os.WriteFile(cfg.Credential.KeyFile, []byte(res.APIKey+"\n"), 0o600); err != nil {
			return fmt.Errorf("write key file: %w", err)
		}
		fmt.Fprintf(w, "API key written to %s\n", cfg.Credential.KeyFile)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(w, "Config written to %s\n", path)
	return nil
}

// checkAPIKey lists models with the key, which needs auth but costs nothing.
func checkAPIKey(ctx context.Context, pc config.ProviderConfig) error {
	req, err := keyCheckRequest(ctx, pc)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("connection timeout, check your internet connection")
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrAuthInvalid
	case resp.StatusCode == http.StatusBadRequest && pc.Type == "gemini":
		// Gemini reports a malformed key as 400 API_KEY_INVALID.
		return domain.ErrAuthInvalid
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimit
	default:
		return fmt.Errorf("%w: HTTP %d", domain.ErrProviderFailure, resp.StatusCode)
	}
}

func keyCheckRequest(ctx context.Context, pc config.ProviderConfig) (*http.Request, error) {
	base := strings.TrimRight(pc.BaseURL, "/")
	var (
		endpoint string
		headers  = map[string]string{}
	)
	switch pc.Type {
	case "openai":
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		endpoint = base + "/models"
		headers["Authorization"] = "Bearer " + pc.APIKey
	case "anthropic":
		if base == "" {
			base = "https://api.anthropic.com"
		}
		endpoint = base + "/v1/models"
		headers["x-api-key"] = pc.APIKey
		headers["anthropic-version"] = "2023-06-01"
	case "gemini":
		if base == "" {
			base = "https://generativelanguage.googleapis.com"
		}
		endpoint = base + "/v1beta/models?key=" + url.QueryEscape(pc.APIKey)
	default:
		return nil, fmt.Errorf("no key check for provider type %q", pc.Type)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
