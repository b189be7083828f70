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

// OpenAIProvider implements domain.LLMProvider for the OpenAI chat
// completions API using the "functions" / "function_call" request fields.
type OpenAIProvider struct {
	name        string
	model       string
	apiKey      string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

// NewOpenAIProvider creates a provider with configured timeouts.
func NewOpenAIProvider(cfg config.ProviderConfig, logger *slog.Logger) *OpenAIProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIProvider{
		name:        cfg.Name,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      NewHTTPClient(cfg),
		logger:      logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *OpenAIProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = p.maxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = p.temperature
	}

	ctx, span := tracer.StartSpan(ctx, "llm.chat",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", p.name),
			tracer.StringAttr("llm.model", req.Model),
			tracer.IntAttr("llm.functions", len(req.Functions)),
		),
	)
	defer span.End()

	body, err := json.Marshal(toOpenAIRequest(req))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	respBody, err := doJSONRequest(ctx, p.client, p.baseURL+"/chat/completions", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var oaiResp openaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("%w: unmarshal response: %v", domain.ErrProviderFailure, err)
	}

	result, err := fromOpenAIResponse(oaiResp)
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
func (p *OpenAIProvider) Name() string { return p.name }

// --- OpenAI API wire types ---

type openaiRequest struct {
	Model        string           `json:"model"`
	Messages     []openaiMessage  `json:"messages"`
	Functions    []openaiFunction `json:"functions,omitempty"`
	FunctionCall string           `json:"function_call,omitempty"`
	MaxTokens    int              `json:"max_tokens,omitempty"`
	Temperature  *float64         `json:"temperature,omitempty"`
}

// openaiMessage.Content is a pointer so an assistant function-call turn
// is sent with "content": null.
type openaiMessage struct {
	Role         string              `json:"role"`
	Content      *string             `json:"content"`
	Name         string              `json:"name,omitempty"`
	FunctionCall *openaiFunctionCall `json:"function_call,omitempty"`
}

type openaiFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// openaiFunctionCall.Arguments is a JSON document encoded as a string.
type openaiFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func toOpenAIRequest(req domain.ChatRequest) openaiRequest {
	oaiReq := openaiRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: temperaturePtr(req.Temperature),
	}

	oaiReq.Messages = make([]openaiMessage, len(req.Messages))
	for i, m := range req.Messages {
		oaiReq.Messages[i] = toOpenAIMessage(m)
	}

	if len(req.Functions) > 0 {
		oaiReq.Functions = make([]openaiFunction, len(req.Functions))
		for i, f := range req.Functions {
			params := f.Parameters
			if len(params) == 0 {
				params = emptyObjectSchema
			}
			oaiReq.Functions[i] = openaiFunction{
				Name:        f.Name,
				Description: f.Description,
				Parameters:  params,
			}
		}
		oaiReq.FunctionCall = req.FunctionCall
	}

	return oaiReq
}

func toOpenAIMessage(m domain.Message) openaiMessage {
	msg := openaiMessage{Role: m.Role}
	if m.Role == domain.RoleFunction {
		msg.Name = m.Name
	}

	if m.HasFunctionCall() {
		args := string(m.FunctionCall.Arguments)
		if args == "" {
			args = "{}"
		}
		msg.FunctionCall = &openaiFunctionCall{Name: m.FunctionCall.Name, Arguments: args}
		if m.Content != "" {
			content := m.Content
			msg.Content = &content
		}
		return msg
	}

	content := m.Content
	msg.Content = &content
	return msg
}

func fromOpenAIResponse(resp openaiResponse) (*domain.ChatResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, domain.NewDomainError("OpenAI.Chat", domain.ErrEmptyResponse, resp.ID)
	}

	result := &domain.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		CreatedAt: time.Unix(resp.Created, 0),
	}

	choice := resp.Choices[0].Message
	msg := domain.Message{
		Role:      choice.Role,
		Name:      choice.Name,
		Timestamp: result.CreatedAt,
	}
	if msg.Role == "" {
		msg.Role = domain.RoleAssistant
	}
	if choice.Content != nil {
		msg.Content = *choice.Content
	}
	if fc := choice.FunctionCall; fc != nil && fc.Name != "" {
		msg.FunctionCall = &domain.FunctionCall{
			Name:      fc.Name,
			Arguments: json.RawMessage(fc.Arguments),
		}
	}

	result.Message = msg
	return result, nil
}
