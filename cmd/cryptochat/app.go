package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cryptochat/internal/adapter/chart"
	"cryptochat/internal/adapter/function"
	"cryptochat/internal/adapter/market"
	"cryptochat/internal/infra/config"
	"cryptochat/internal/infra/logger"
	"cryptochat/internal/infra/tracer"
	"cryptochat/internal/usecase"
)

// mode selects which outputs the process owns. The TUI owns the terminal
// and the MCP server owns stdout, so logs are moved out of their way.
type mode int

const (
	modeTUI mode = iota
	modeCLI
	modeMCP
)

// tuiLogFile receives logs while the chat screen is up.
const tuiLogFile = "cryptochat.log"

// app is the wired application graph.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	llm        *LLMComponents // nil when the mode needs no model
	functions  *function.Registry
	dispatcher *usecase.Dispatcher

	closers []func(context.Context) error
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	if flagLogLevel != "" {
		cfg.Logger.Level = flagLogLevel
	}
	if flagProvider != "" {
		cfg.LLM.DefaultProvider = flagProvider
	}
	if flagModel != "" {
		for i := range cfg.LLM.Providers {
			if cfg.LLM.Providers[i].Name == cfg.LLM.DefaultProvider {
				cfg.LLM.Providers[i].Model = flagModel
			}
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	return cfg, nil
}

var errConfig = errors.New("config")

// logOutputFor keeps log lines away from the stream a mode writes to.
func logOutputFor(m mode, output string) string {
	out := strings.ToLower(output)
	switch m {
	case modeTUI:
		if out == "" || out == "stdout" || out == "stderr" {
			return tuiLogFile
		}
	case modeMCP:
		if out == "stdout" {
			return "stderr"
		}
	}
	return output
}

// bootstrap wires config, credentials, logging, tracing, market data, the
// function registry and, unless the mode is MCP, the model dispatcher.
func bootstrap(ctx context.Context, m mode) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if m != modeMCP {
		if _, err := config.LoadCredential(cfg); err != nil {
			return nil, fmt.Errorf("load credential: %w", err)
		}
	}

	cfg.Logger.Output = logOutputFor(m, cfg.Logger.Output)
	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func(context.Context) error { return closeLog() })

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.closers = append(a.closers, shutdownTracer)

	marketClient := market.NewClient(cfg.Market, log)
	renderer := chart.NewRenderer(marketClient, cfg.Chart, log)
	a.functions, err = function.NewDefaultRegistry(marketClient, renderer, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("function registry: %w", err)
	}

	if m == modeMCP {
		log.Info("cryptochat started", "mode", "mcp", "functions", len(a.functions.Names()))
		return a, nil
	}

	a.llm, err = initLLM(ctx, cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}

	a.dispatcher = usecase.NewDispatcher(usecase.DispatcherDeps{
		LLM:          a.llm.DefaultLLM,
		Functions:    a.functions,
		Arguments:    function.ArgumentsFor,
		Model:        a.llm.Model,
		SystemPrompt: cfg.Agent.SystemPrompt,
		TurnTimeout:  cfg.Agent.TurnTimeout,
		Logger:       log,
	})

	log.Info("cryptochat started",
		"provider", a.llm.DefaultLLM.Name(),
		"model", a.llm.Model,
		"functions", len(a.functions.Names()),
	)
	return a, nil
}

// close runs the shutdown hooks in reverse order.
func (a *app) close() {
	ctx := context.Background()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.log != nil {
			a.log.Warn("shutdown", "error", err)
		}
	}
	a.closers = nil
}
