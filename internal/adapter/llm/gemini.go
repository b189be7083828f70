package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/config"
	"cryptochat/internal/infra/tracer"
)

const defaultGeminiModel = "gemini-2.0-flash"

// geminiGenerator is the subset of *genai.Models the provider calls.
type geminiGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider implements domain.LLMProvider on the Google GenAI SDK.
type GeminiProvider struct {
	name        string
	model       string
	maxTokens   int
	temperature float64
	models      geminiGenerator
	logger      *slog.Logger
}

// NewGeminiProvider creates a Gemini API client.
func NewGeminiProvider(ctx context.Context, cfg config.ProviderConfig, logger *slog.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, domain.NewDomainError("NewGeminiProvider", domain.ErrCredentialMissing, cfg.Name)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: NewHTTPClient(cfg),
	}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base + "/"}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return newGeminiProvider(cfg, client.Models, logger), nil
}

func newGeminiProvider(cfg config.ProviderConfig, models geminiGenerator, logger *slog.Logger) *GeminiProvider {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{
		name:        cfg.Name,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		models:      models,
		logger:      logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *GeminiProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
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

	contents, genCfg := toGeminiRequest(req)
	resp, err := p.models.GenerateContent(ctx, req.Model, contents, genCfg)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("%w: gemini generate: %v", domain.ErrProviderFailure, err)
	}

	result, err := fromGeminiResponse(resp, req.Model)
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
func (p *GeminiProvider) Name() string { return p.name }

func toGeminiRequest(req domain.ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	genCfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != 0 {
		genCfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	var system []string
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch {
		case m.Role == domain.RoleSystem:
			system = append(system, m.Content)
		case m.Role == domain.RoleFunction:
			part := genai.NewPartFromFunctionResponse(m.Name, map[string]any{"result": m.Content})
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		case m.HasFunctionCall():
			part := genai.NewPartFromFunctionCall(m.FunctionCall.Name, argumentMap(m.FunctionCall.Arguments))
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleModel))
		case m.Role == domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		genCfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	if len(req.Functions) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Functions))
		for _, f := range req.Functions {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        f.Name,
				Description: f.Description,
				Parameters:  toGeminiSchema(f.Parameters),
			})
		}
		// Gemini expects one Tool holding every declaration.
		genCfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		if req.FunctionCall == domain.FunctionCallAuto {
			genCfg.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
			}
		}
	}

	return contents, genCfg
}

// argumentMap decodes a JSON arguments object. Anything else yields an empty map.
func argumentMap(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &args)
	}
	return args
}

// jsonSchema is the subset of JSON Schema the function catalogue uses.
type jsonSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Properties  map[string]*jsonSchema `json:"properties"`
	Required    []string               `json:"required"`
	Items       *jsonSchema            `json:"items"`
}

// toGeminiSchema converts a JSON Schema document into a genai.Schema.
// Parameterless functions get an empty object.
func toGeminiSchema(raw json.RawMessage) *genai.Schema {
	var js jsonSchema
	if len(raw) == 0 || json.Unmarshal(raw, &js) != nil {
		return &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
	}
	return convertSchema(&js)
}

func convertSchema(js *jsonSchema) *genai.Schema {
	s := &genai.Schema{
		Type:        geminiType(js.Type),
		Description: js.Description,
		Required:    js.Required,
	}
	if len(js.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(js.Properties))
		for name, prop := range js.Properties {
			s.Properties[name] = convertSchema(prop)
		}
	}
	if js.Items != nil {
		s.Items = convertSchema(js.Items)
	}
	if s.Type == genai.TypeObject && s.Properties == nil {
		s.Properties = map[string]*genai.Schema{}
	}
	return s
}

func geminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object", "":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func fromGeminiResponse(resp *genai.GenerateContentResponse, model string) (*domain.ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, domain.NewDomainError("Gemini.Chat", domain.ErrEmptyResponse, model)
	}

	result := &domain.ChatResponse{
		ID:        resp.ResponseID,
		Model:     model,
		CreatedAt: time.Now(),
	}
	if resp.ModelVersion != "" {
		result.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		result.Usage = domain.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	msg := domain.Message{
		Role:      domain.RoleAssistant,
		Timestamp: result.CreatedAt,
	}

	if c := resp.Candidates[0].Content; c != nil {
		var texts []string
		for _, part := range c.Parts {
			if part != nil && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
		msg.Content = strings.Join(texts, "")
	}

	if calls := resp.FunctionCalls(); len(calls) > 0 {
		args, err := json.Marshal(calls[0].Args)
		if err != nil {
			return nil, fmt.Errorf("%w: encode function args: %v", domain.ErrProviderFailure, err)
		}
		if calls[0].Args == nil {
			args = []byte(`{}`)
		}
		msg.FunctionCall = &domain.FunctionCall{Name: calls[0].Name, Arguments: args}
	}

	result.Message = msg
	return result, nil
}
