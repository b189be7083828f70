package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/config"
)

// roundTripFunc is a function type that implements http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// errorReadCloser is an io.ReadCloser whose Read always returns an error.
type errorReadCloser struct{}

func (e *errorReadCloser) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated body read error")
}

func (e *errorReadCloser) Close() error {
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func TestOpenAIProviderChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content-type: %s", r.Header.Get("Content-Type"))
		}

		resp := openaiResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-3.5-turbo",
			Choices: []openaiChoice{{
				Message:      openaiMessage{Role: "assistant", Content: strPtr("Hello! How can I help?")},
				FinishReason: "stop",
			}},
			Usage: openaiUsage{PromptTokens: 10, CompletionTokens: 8, TotalTokens: 18},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{
		Name:    "test",
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "gpt-3.5-turbo",
	}, newTestLogger())

	resp, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if resp.Message.Content != "Hello! How can I help?" {
		t.Errorf("Content = %q, want %q", resp.Message.Content, "Hello! How can I help?")
	}
	if resp.Message.HasFunctionCall() {
		t.Error("plain reply should not carry a function call")
	}
	if resp.Usage.TotalTokens != 18 {
		t.Errorf("TotalTokens = %d, want 18", resp.Usage.TotalTokens)
	}
}

func TestOpenAIProviderChatWithFunctionCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "chatcmpl-456",
			"model": "gpt-3.5-turbo",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": null,
					"function_call": {"name": "get_current_price", "arguments": "{\"ticker\":\"bitcoin\"}"}
				},
				"finish_reason": "function_call"
			}]
		}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL, Model: "gpt-3.5-turbo"}, newTestLogger())

	resp, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "price of bitcoin"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if !resp.Message.HasFunctionCall() {
		t.Fatal("expected a function call")
	}
	if resp.Message.FunctionCall.Name != "get_current_price" {
		t.Errorf("Name = %q", resp.Message.FunctionCall.Name)
	}
	if string(resp.Message.FunctionCall.Arguments) != `{"ticker":"bitcoin"}` {
		t.Errorf("Arguments = %s", resp.Message.FunctionCall.Arguments)
	}
	if resp.Message.Content != "" {
		t.Errorf("Content = %q, want empty", resp.Message.Content)
	}
}

func TestOpenAIProviderSendsFunctions(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL, Model: "gpt-3.5-turbo"}, newTestLogger())

	_, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
		Functions: []domain.FunctionSpec{{
			Name:        "get_current_price",
			Description: "Get the current price",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"ticker":{"type":"string"}}}`),
		}},
		FunctionCall: domain.FunctionCallAuto,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if got["model"] != "gpt-3.5-turbo" {
		t.Errorf("model = %v", got["model"])
	}
	if got["function_call"] != "auto" {
		t.Errorf("function_call = %v", got["function_call"])
	}
	fns, ok := got["functions"].([]any)
	if !ok || len(fns) != 1 {
		t.Fatalf("functions = %v", got["functions"])
	}
	if fns[0].(map[string]any)["name"] != "get_current_price" {
		t.Errorf("function name = %v", fns[0])
	}
	if _, has := got["tools"]; has {
		t.Error("request must not carry tools")
	}
}

func TestOpenAIProviderOmitsFunctionsWhenEmpty(t *testing.T) {
	var raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"summary"}}]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())
	_, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages:     []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
		FunctionCall: domain.FunctionCallAuto,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if strings.Contains(raw, `"functions"`) || strings.Contains(raw, `"function_call"`) {
		t.Errorf("request should carry no function fields: %s", raw)
	}
}

func TestToOpenAIMessageFunctionRole(t *testing.T) {
	msg := toOpenAIMessage(domain.Message{
		Role:    domain.RoleFunction,
		Name:    "get_current_price",
		Content: "Price of bitcoin: $67000.5 USD",
	})
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"role":"function","content":"Price of bitcoin: $67000.5 USD","name":"get_current_price"}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestToOpenAIMessageAssistantFunctionCall(t *testing.T) {
	msg := toOpenAIMessage(domain.Message{
		Role: domain.RoleAssistant,
		FunctionCall: &domain.FunctionCall{
			Name:      "get_market_cap",
			Arguments: json.RawMessage(`{"ticker":"ethereum"}`),
		},
	})
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"role":"assistant","content":null,"function_call":{"name":"get_market_cap","arguments":"{\"ticker\":\"ethereum\"}"}}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestToOpenAIMessageEmptyArguments(t *testing.T) {
	msg := toOpenAIMessage(domain.Message{
		Role:         domain.RoleAssistant,
		FunctionCall: &domain.FunctionCall{Name: "get_trending_cryptos"},
	})
	if msg.FunctionCall.Arguments != "{}" {
		t.Errorf("Arguments = %q, want {}", msg.FunctionCall.Arguments)
	}
}

func TestToOpenAIMessageNameOnlyForFunctionRole(t *testing.T) {
	msg := toOpenAIMessage(domain.Message{Role: domain.RoleUser, Content: "hi", Name: "ignored"})
	if msg.Name != "" {
		t.Errorf("Name = %q, want empty for user role", msg.Name)
	}
}

func TestFromOpenAIResponseEmptyChoices(t *testing.T) {
	_, err := fromOpenAIResponse(openaiResponse{ID: "chatcmpl-0"})
	if !errors.Is(err, domain.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIProviderDefaults(t *testing.T) {
	p := NewOpenAIProvider(config.ProviderConfig{Name: "openai", MaxTokens: 256, Temperature: 0.3}, newTestLogger())
	if p.baseURL != "https://api.openai.com/v1" {
		t.Errorf("baseURL = %q", p.baseURL)
	}
	if p.Name() != "openai" {
		t.Errorf("Name = %q", p.Name())
	}

	var got openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()
	p.baseURL = server.URL

	if _, err := p.Chat(context.Background(), domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}}}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d, want 256", got.MaxTokens)
	}
	if got.Temperature == nil || *got.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", got.Temperature)
	}
}

func TestOpenAIProviderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())
	_, err := provider.Chat(context.Background(), domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}}})
	if !errors.Is(err, domain.ErrAuthInvalid) {
		t.Errorf("expected ErrAuthInvalid, got %v", err)
	}
}

func TestOpenAIProviderMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())
	_, err := provider.Chat(context.Background(), domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}}})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure, got %v", err)
	}
}

func TestOpenAIProviderBodyReadError(t *testing.T) {
	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: "http://example.invalid"}, newTestLogger())
	provider.client = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: &errorReadCloser{}, Header: http.Header{}}, nil
	})}

	_, err := provider.Chat(context.Background(), domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}}})
	if err == nil || !strings.Contains(err.Error(), "read response") {
		t.Errorf("expected read response error, got %v", err)
	}
}

func TestOpenAIProviderContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())
	if _, err := provider.Chat(ctx, domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}}}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestToOpenAIRequestParameterlessFunction(t *testing.T) {
	req := toOpenAIRequest(domain.ChatRequest{
		Messages:     []domain.Message{{Role: domain.RoleUser, Content: "what is trending?"}},
		Functions:    []domain.FunctionSpec{{Name: "get_trending_cryptos", Description: "Trending"}},
		FunctionCall: domain.FunctionCallAuto,
	})

	if len(req.Functions) != 1 {
		t.Fatalf("functions = %d, want 1", len(req.Functions))
	}
	data, err := json.Marshal(req.Functions[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	params, ok := got["parameters"].(map[string]any)
	if !ok {
		t.Fatalf("parameters = %v, want empty object schema", got["parameters"])
	}
	if params["type"] != "object" {
		t.Errorf("parameters.type = %v", params["type"])
	}
	if props, ok := params["properties"].(map[string]any); !ok || len(props) != 0 {
		t.Errorf("parameters.properties = %v", params["properties"])
	}
}
