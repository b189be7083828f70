// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the TUI.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"cryptochat/internal/adapter/tui/theme"
	"cryptochat/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Connection Failed"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Code    domain.ErrorCode
	Raw     string // original error text (for debug)
}

// Render formats the FriendlyError for display in the TUI message list.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Code != "" && fe.Code != domain.CodeUnknown {
		sb.WriteString(" ")
		sb.WriteString(theme.Dim.Render("[" + string(fe.Code) + "]"))
	}
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Domain sentinels first so errors.Is works through wrapping.
	{
		match: isErr(domain.ErrUnknownFunction),
		produce: constantError("Unknown Function",
			"The model asked for a function this assistant does not provide.",
			[]string{"Rephrase the question", "Run 'cryptochat functions' to see what is available"}),
	},
	{
		match: isErr(domain.ErrArgumentCoercion),
		produce: constantError("Invalid Arguments",
			"The model supplied arguments that could not be used.",
			[]string{"Give the amount as a plain number", "Name the coin explicitly, e.g. bitcoin"}),
	},
	{
		match: isErr(domain.ErrTransportFailure),
		produce: constantError("Market Data Unavailable",
			"The price service could not be reached or returned an error.",
			[]string{"Check your internet connection", "Verify market.coincap_url in config", "Check the coin id (e.g. bitcoin, ethereum)"}),
	},
	{
		match: isErr(domain.ErrChartWrite),
		produce: constantError("Chart Not Saved",
			"The price chart could not be written to disk.",
			[]string{"Check chart.output_path is writable"}),
	},
	{
		match: isErr(domain.ErrRateLimit),
		produce: constantError("Rate Limited",
			"Too many requests sent to the model provider.",
			[]string{"Wait a moment before retrying", "Consider upgrading your API plan"}),
	},
	{
		match: isErr(domain.ErrAuthInvalid),
		produce: constantError("Authentication Failed",
			"The API key was rejected by the model provider.",
			[]string{"Check the key in api_openai_key", "Verify the key hasn't expired"}),
	},
	{
		match: isErr(domain.ErrEmptyResponse),
		produce: constantError("Empty Response",
			"The model returned no answer.",
			[]string{"Try again"}),
	},

	// Network / connectivity patterns (string matching for external errors).
	{
		match:   containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Connection Failed", "Could not reach the remote service.", []string{"Check your internet connection", "Verify the service URL in config", "Check if a firewall is blocking the connection"}),
	},
	{
		match:   containsAny("deadline exceeded", "timeout", "context deadline"),
		produce: constantError("Request Timed Out", "The request took too long to complete.", []string{"Try again", "Check your network connection", "Increase agent.turn_timeout in config"}),
	},
	{
		match:   containsAny("402", "quota", "billing", "insufficient"),
		produce: constantError("Quota Exceeded", "Your API quota or billing limit has been reached.", []string{"Check your API provider billing dashboard", "Upgrade your plan or add credits"}),
	},
	{
		match:   isErr(domain.ErrProviderFailure),
		produce: constantError("Model Provider Error", "The language model request failed.", []string{"Try again", "Check llm.providers in config"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			fe := p.produce(err)
			fe.Code = domain.ErrorCodeOf(err)
			return fe
		}
	}

	// Fallback for unrecognized errors.
	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"Try again", "Run with --log-level debug and check cryptochat.log"},
		Code:    domain.ErrorCodeOf(err),
		Raw:     err.Error(),
	}
}

func isErr(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
