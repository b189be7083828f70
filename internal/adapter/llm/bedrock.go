//go:build bedrock

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel/trace"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/config"
	"cryptochat/internal/infra/tracer"
)

// bedrockConverseAPI abstracts the Bedrock runtime methods for testability.
type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockProvider implements domain.LLMProvider via the AWS Bedrock Converse API.
type BedrockProvider struct {
	name   string
	model  string
	client bedrockConverseAPI
	logger *slog.Logger
}

// NewBedrockProvider creates a Bedrock provider using the default AWS credential chain.
func NewBedrockProvider(cfg config.ProviderConfig, logger *slog.Logger) (*BedrockProvider, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newBedrockProviderWithClient(cfg.Name, cfg.Model, bedrockruntime.NewFromConfig(awsCfg), logger), nil
}

// newBedrockProviderWithClient creates a BedrockProvider with an injected client (for testing).
func newBedrockProviderWithClient(name, model string, client bedrockConverseAPI, logger *slog.Logger) *BedrockProvider {
	return &BedrockProvider{
		name:   name,
		model:  model,
		client: client,
		logger: logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *BedrockProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}

	ctx, span := tracer.StartSpan(ctx, "llm.chat",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", p.name),
			tracer.StringAttr("llm.model", req.Model),
			tracer.IntAttr("llm.functions", len(req.Functions)),
		),
	)
	defer span.End()

	output, err := p.client.Converse(ctx, toBedrockConverseInput(req))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, mapBedrockError(err)
	}

	result, err := fromBedrockConverseOutput(output, req.Model)
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
func (p *BedrockProvider) Name() string { return p.name }

// --- Bedrock request/response conversion ---

// toBedrockConverseInput mirrors the Anthropic mapping: tool blocks are
// only legal alongside a tool config, so a request without functions
// carries the call/result pair as text.
func toBedrockConverseInput(req domain.ChatRequest) *bedrockruntime.ConverseInput {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model),
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	input.InferenceConfig = &types.InferenceConfiguration{
		MaxTokens: aws.Int32(int32(maxTokens)),
	}
	if req.Temperature > 0 {
		input.InferenceConfig.Temperature = aws.Float32(float32(req.Temperature))
	}

	withTools := len(req.Functions) > 0
	var callSeq int
	var lastCallID string

	for _, m := range req.Messages {
		var role types.ConversationRole
		var block types.ContentBlock

		switch {
		case m.Role == domain.RoleSystem:
			input.System = append(input.System, &types.SystemContentBlockMemberText{Value: m.Content})
			continue

		case m.Role == domain.RoleFunction && withTools:
			role = types.ConversationRoleUser
			block = &types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
				ToolUseId: aws.String(lastCallID),
				Content: []types.ToolResultContentBlock{
					&types.ToolResultContentBlockMemberText{Value: m.Content},
				},
			}}

		case m.Role == domain.RoleFunction:
			role = types.ConversationRoleUser
			block = &types.ContentBlockMemberText{Value: fmt.Sprintf("Result of %s: %s", m.Name, m.Content)}

		case m.HasFunctionCall() && withTools:
			callSeq++
			lastCallID = fmt.Sprintf("call_%d", callSeq)
			role = types.ConversationRoleAssistant
			block = &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
				ToolUseId: aws.String(lastCallID),
				Name:      aws.String(m.FunctionCall.Name),
				Input:     document.NewLazyDocument(argumentMap(m.FunctionCall.Arguments)),
			}}

		case m.HasFunctionCall():
			role = types.ConversationRoleAssistant
			block = &types.ContentBlockMemberText{Value: fmt.Sprintf("Calling %s with %s", m.FunctionCall.Name, string(m.FunctionCall.Arguments))}

		case m.Role == domain.RoleAssistant:
			role = types.ConversationRoleAssistant
			block = &types.ContentBlockMemberText{Value: m.Content}

		default:
			role = types.ConversationRoleUser
			block = &types.ContentBlockMemberText{Value: m.Content}
		}

		if n := len(input.Messages); n > 0 && input.Messages[n-1].Role == role {
			input.Messages[n-1].Content = append(input.Messages[n-1].Content, block)
			continue
		}
		input.Messages = append(input.Messages, types.Message{Role: role, Content: []types.ContentBlock{block}})
	}

	if withTools {
		input.ToolConfig = toBedrockToolConfig(req.Functions, req.FunctionCall)
	}

	return input
}

func toBedrockToolConfig(functions []domain.FunctionSpec, callMode string) *types.ToolConfiguration {
	var tools []types.Tool
	for _, f := range functions {
		var schema map[string]any
		if len(f.Parameters) > 0 {
			_ = json.Unmarshal(f.Parameters, &schema)
		}
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		tools = append(tools, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(f.Name),
				Description: aws.String(f.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(schema),
				},
			},
		})
	}

	tc := &types.ToolConfiguration{Tools: tools}
	if callMode == domain.FunctionCallAuto {
		tc.ToolChoice = &types.ToolChoiceMemberAuto{Value: types.AutoToolChoice{}}
	}
	return tc
}

func fromBedrockConverseOutput(output *bedrockruntime.ConverseOutput, model string) (*domain.ChatResponse, error) {
	outMsg, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok || len(outMsg.Value.Content) == 0 {
		return nil, domain.NewDomainError("Bedrock.Chat", domain.ErrEmptyResponse, model)
	}

	now := time.Now()
	result := &domain.ChatResponse{
		Model:     model,
		CreatedAt: now,
	}

	if output.Usage != nil {
		in := int(aws.ToInt32(output.Usage.InputTokens))
		out := int(aws.ToInt32(output.Usage.OutputTokens))
		result.Usage = domain.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}
	}

	msg := domain.Message{
		Role:      domain.RoleAssistant,
		Timestamp: now,
	}

	for _, block := range outMsg.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			msg.Content += b.Value
		case *types.ContentBlockMemberToolUse:
			if msg.FunctionCall == nil {
				msg.FunctionCall = &domain.FunctionCall{
					Name:      aws.ToString(b.Value.Name),
					Arguments: marshalDocument(b.Value.Input),
				}
			}
		}
	}

	result.Message = msg
	return result, nil
}

// marshalDocument converts a Bedrock document.Interface to json.RawMessage.
func marshalDocument(doc document.Interface) json.RawMessage {
	if doc == nil {
		return json.RawMessage("{}")
	}
	var v any
	if err := doc.UnmarshalSmithyDocument(&v); err != nil {
		return json.RawMessage("{}")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// --- Error mapping ---

func mapBedrockError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return fmt.Errorf("%w: %s", domain.ErrRateLimit, err.Error())
		case "AccessDeniedException", "UnrecognizedClientException":
			return fmt.Errorf("%w: %s", domain.ErrAuthInvalid, err.Error())
		}
	}

	return fmt.Errorf("%w: bedrock: %v", domain.ErrProviderFailure, err)
}
