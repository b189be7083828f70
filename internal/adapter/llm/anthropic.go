package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/config"
	"cryptochat/internal/infra/tracer"
)

const (
	defaultAnthropicVersion   = "2023-06-01"
	defaultAnthropicMaxTokens = 1024
)

// emptyObjectSchema stands in for functions that declare no parameters.
var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// AnthropicProvider implements domain.LLMProvider for the Anthropic Messages API.
// Function calls map onto tool_use / tool_result content blocks.
type AnthropicProvider struct {
	name      string
	model     string
	apiKey    string
	baseURL   string
	maxTokens int
	client    *http.Client
	logger    *slog.Logger
	version   string
}

// NewAnthropicProvider creates a provider for the Anthropic Messages API.
func NewAnthropicProvider(cfg config.ProviderConfig, logger *slog.Logger) *AnthropicProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicProvider{
		name:      cfg.Name,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		client:    NewHTTPClient(cfg),
		logger:    logger,
		version:   defaultAnthropicVersion,
	}
}

// Chat implements domain.LLMProvider.
func (p *AnthropicProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = p.maxTokens
	}

	ctx, span := tracer.StartSpan(ctx, "llm.chat",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", p.name),
			tracer.StringAttr("llm.model", req.Model),
			tracer.IntAttr("llm.functions", len(req.Functions)),
		),
	)
	defer span.End()

	body, err := json.Marshal(toAnthropicRequest(req))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": p.version,
	}

	respBody, err := doJSONRequest(ctx, p.client, p.baseURL+"/v1/messages", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var antResp anthropicResponse
	if err := json.Unmarshal(respBody, &antResp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("%w: unmarshal response: %v", domain.ErrProviderFailure, err)
	}

	result, err := fromAnthropicResponse(antResp)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	setUsageAttrs(span, result.Usage)
	tracer.SetOK(span)
	logChatCompleted(p.logger, p.name, result)

	return result, nil
}

// Name implements domain.LLMProvider.
func (p *AnthropicProvider) Name() string { return p.name }

// --- Anthropic API wire types ---

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	ToolChoice  *anthropicChoice   `json:"tool_choice,omitempty"`
}

type anthropicChoice struct {
	Type string `json:"type"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
	Usage   anthropicUsage     `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// toAnthropicRequest converts a chat request. The API rejects tool blocks
// in a request that declares no tools, so without functions the
// call/result pair is sent as plain text.
func toAnthropicRequest(req domain.ChatRequest) anthropicRequest {
	antReq := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: temperaturePtr(req.Temperature),
	}
	if antReq.MaxTokens <= 0 {
		antReq.MaxTokens = defaultAnthropicMaxTokens
	}

	withTools := len(req.Functions) > 0
	var system []string
	var callSeq int
	var lastCallID string

	for _, m := range req.Messages {
		switch {
		case m.Role == domain.RoleSystem:
			system = append(system, m.Content)

		case m.Role == domain.RoleFunction && withTools:
			block := anthropicContent{Type: "tool_result", ToolUseID: lastCallID, Content: m.Content}
			antReq.Messages = appendAnthropic(antReq.Messages, "user", block)

		case m.Role == domain.RoleFunction:
			text := fmt.Sprintf("Result of %s: %s", m.Name, m.Content)
			antReq.Messages = appendAnthropic(antReq.Messages, "user", anthropicContent{Type: "text", Text: text})

		case m.HasFunctionCall() && withTools:
			callSeq++
			lastCallID = fmt.Sprintf("call_%d", callSeq)
			input := m.FunctionCall.Arguments
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			var blocks []anthropicContent
			if m.Content != "" {
				blocks = append(blocks, anthropicContent{Type: "text", Text: m.Content})
			}
			blocks = append(blocks, anthropicContent{Type: "tool_use", ID: lastCallID, Name: m.FunctionCall.Name, Input: input})
			antReq.Messages = appendAnthropic(antReq.Messages, "assistant", blocks...)

		case m.HasFunctionCall():
			text := fmt.Sprintf("Calling %s with %s", m.FunctionCall.Name, string(m.FunctionCall.Arguments))
			antReq.Messages = appendAnthropic(antReq.Messages, "assistant", anthropicContent{Type: "text", Text: text})

		default:
			antReq.Messages = appendAnthropic(antReq.Messages, m.Role, anthropicContent{Type: "text", Text: m.Content})
		}
	}
	antReq.System = strings.Join(system, "\n\n")

	for _, f := range req.Functions {
		schema := f.Parameters
		if len(schema) == 0 {
			schema = emptyObjectSchema
		}
		antReq.Tools = append(antReq.Tools, anthropicTool{
			Name:        f.Name,
			Description: f.Description,
			InputSchema: schema,
		})
	}
	if withTools && req.FunctionCall == domain.FunctionCallAuto {
		antReq.ToolChoice = &anthropicChoice{Type: "auto"}
	}

	return antReq
}

// appendAnthropic merges consecutive same-role turns into one message.
func appendAnthropic(msgs []anthropicMessage, role string, blocks ...anthropicContent) []anthropicMessage {
	if n := len(msgs); n > 0 && msgs[n-1].Role == role {
		msgs[n-1].Content = append(msgs[n-1].Content, blocks...)
		return msgs
	}
	return append(msgs, anthropicMessage{Role: role, Content: blocks})
}

func fromAnthropicResponse(resp anthropicResponse) (*domain.ChatResponse, error) {
	if len(resp.Content) == 0 {
		return nil, domain.NewDomainError("Anthropic.Chat", domain.ErrEmptyResponse, resp.ID)
	}

	result := &domain.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		CreatedAt: time.Now(),
	}

	msg := domain.Message{
		Role:      domain.RoleAssistant,
		Timestamp: result.CreatedAt,
	}

	var texts []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			// Only the first call is honoured; the dispatch loop runs one function per turn.
			if msg.FunctionCall == nil {
				msg.FunctionCall = &domain.FunctionCall{Name: block.Name, Arguments: block.Input}
			}
		}
	}
	msg.Content = strings.Join(texts, "")

	result.Message = msg
	return result, nil
}
