package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cryptochat/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// probeTimeout bounds each network check.
const probeTimeout = 10 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check config, credentials and upstream reachability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDoctor(cmd.Context(), cmd.OutOrStdout(), flagConfig)
	},
}

// runDoctor executes all health checks and reports results.
func runDoctor(ctx context.Context, w io.Writer, cfgPath string) error {
	// Some checks work without a loaded config.
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Credential", Fn: checkCredential},
		{Name: "LLM provider", Fn: checkLLMProvider},
		{Name: "LLM connectivity", Fn: checkLLMConnectivity(ctx)},
		{Name: "CoinCap API", Fn: checkCoinCap(ctx)},
		{Name: "Yahoo Finance", Fn: checkYahoo(ctx)},
		{Name: "Chart output", Fn: checkChartOutput},
	}

	fmt.Fprintln(w, "cryptochat doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		fmt.Fprintln(w, "\nFix the FAIL issues above before starting cryptochat.")
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if warn > 0 {
		fmt.Fprintln(w, "\ncryptochat should work, but consider addressing the warnings.")
	} else {
		fmt.Fprintln(w, "\nAll checks passed! cryptochat is ready to run.")
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

var notLoaded = CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}

// checkConfigFile reports whether the config file exists and parses.
// A missing file is only a warning because the defaults apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Check %s syntax and permissions (0600)", cfgPath),
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config at %s, using defaults", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkCredential verifies the API key file exists and is not empty.
func checkCredential(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	if pc, ok := cfg.Provider(cfg.LLM.DefaultProvider); ok && pc.Type == "bedrock" {
		return CheckResult{Status: StatusPass, Message: "bedrock uses the AWS credential chain"}
	}
	path := cfg.Credential.KeyFile
	data, err := os.ReadFile(path)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot read %s: %v", path, err),
			Fix:     fmt.Sprintf("Write your API key to %s", path),
		}
	}
	if strings.TrimSpace(string(data)) == "" {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s is empty", path),
			Fix:     fmt.Sprintf("Write your API key to %s", path),
		}
	}
	if info, err := os.Stat(path); err == nil && info.Mode().Perm()&0o077 != 0 {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s is readable by other users (%04o)", path, info.Mode().Perm()),
			Fix:     fmt.Sprintf("chmod 600 %s", path),
		}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("key read from %s", path)}
}

// checkLLMProvider verifies the default provider can be constructed.
func checkLLMProvider(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	pc, ok := cfg.Provider(cfg.LLM.DefaultProvider)
	if !ok {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("default provider %q not found in config", cfg.LLM.DefaultProvider),
		}
	}
	if pc.Type == "bedrock" && !bedrockAvailable {
		return CheckResult{
			Status:  StatusFail,
			Message: "bedrock provider is not compiled in",
			Fix:     "Rebuild with -tags bedrock",
		}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s (%s, model %s)", pc.Name, pc.Type, pc.Model)}
}

// checkLLMConnectivity tests if the default provider's endpoint answers.
func checkLLMConnectivity(ctx context.Context) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return notLoaded
		}
		pc, ok := cfg.Provider(cfg.LLM.DefaultProvider)
		if !ok {
			return CheckResult{Status: StatusWarn, Message: "skipped, no default provider"}
		}
		endpoint := providerEndpoint(pc)
		if endpoint == "" {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no known endpoint for provider type %q, skipping", pc.Type),
			}
		}
		return probe(ctx, pc.Name, endpoint, "")
	}
}

// providerEndpoint returns a URL that answers when the provider is up.
func providerEndpoint(p config.ProviderConfig) string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	switch p.Type {
	case "openai":
		return "https://api.openai.com/v1/models"
	case "anthropic":
		return "https://api.anthropic.com/"
	case "gemini":
		return "https://generativelanguage.googleapis.com/"
	case "bedrock":
		if p.Region == "" {
			return ""
		}
		return "https://bedrock-runtime." + p.Region + ".amazonaws.com/"
	default:
		return ""
	}
}

func checkCoinCap(ctx context.Context) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return notLoaded
		}
		base := strings.TrimRight(cfg.Market.CoinCapURL, "/")
		return probe(ctx, "CoinCap", base+"/v2/assets/bitcoin", cfg.Market.UserAgent)
	}
}

func checkYahoo(ctx context.Context) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return notLoaded
		}
		base := strings.TrimRight(cfg.Market.YahooURL, "/")
		return probe(ctx, "Yahoo", base+"/v8/finance/chart/BTC-USD?range=1d&interval=1d", cfg.Market.UserAgent)
	}
}

// probe issues a GET and reports latency. Any HTTP answer below 500
// counts as reachable; auth errors are expected without credentials.
func probe(ctx context.Context, name, endpoint, userAgent string) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot reach %s: %v", endpoint, err),
			Fix:     "Check your internet connection and firewall settings",
		}
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s answered HTTP %d (latency: %dms)", name, resp.StatusCode, latency.Milliseconds()),
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s reachable (latency: %dms)", name, latency.Milliseconds()),
	}
}

// checkChartOutput verifies the chart's directory accepts new files.
func checkChartOutput(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	dir := filepath.Dir(cfg.Chart.OutputPath)
	f, err := os.CreateTemp(dir, ".cryptochat-doctor-*")
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot write to %s: %v", dir, err),
			Fix:     "Point chart.output_path at a writable directory",
		}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("charts will be written to %s", cfg.Chart.OutputPath)}
}
