package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/config"
)

type fakeGenerator struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = cfg
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		ResponseID: "resp-1",
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     7,
			CandidatesTokenCount: 3,
			TotalTokenCount:      10,
		},
	}
}

func TestGeminiProviderChat(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("Ethereum is trending.")}
	p := newGeminiProvider(config.ProviderConfig{Name: "gemini"}, gen, newTestLogger())

	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "what is trending?"}},
	})
	require.NoError(t, err)

	assert.Equal(t, defaultGeminiModel, gen.model)
	assert.Equal(t, "Ethereum is trending.", resp.Message.Content)
	assert.Equal(t, domain.RoleAssistant, resp.Message.Role)
	assert.False(t, resp.Message.HasFunctionCall())
	assert.Equal(t, 10, resp.Usage.TotalTokens)
	assert.Equal(t, "gemini", p.Name())
}

func TestGeminiProviderFunctionCall(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{
				FunctionCall: &genai.FunctionCall{Name: "convert_to_fiat", Args: map[string]any{"ticker": "bitcoin", "amount": 2.0}},
			}}},
		}},
	}}
	p := newGeminiProvider(config.ProviderConfig{Name: "gemini", Model: "gemini-pro"}, gen, newTestLogger())

	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages:     []domain.Message{{Role: domain.RoleUser, Content: "2 bitcoin in usd"}},
		Functions:    []domain.FunctionSpec{{Name: "convert_to_fiat", Parameters: json.RawMessage(`{"type":"object"}`)}},
		FunctionCall: domain.FunctionCallAuto,
	})
	require.NoError(t, err)
	require.True(t, resp.Message.HasFunctionCall())

	assert.Equal(t, "gemini-pro", gen.model)
	assert.Equal(t, "convert_to_fiat", resp.Message.FunctionCall.Name)
	assert.JSONEq(t, `{"ticker":"bitcoin","amount":2}`, string(resp.Message.FunctionCall.Arguments))
	require.NotNil(t, gen.config.ToolConfig)
	assert.Equal(t, genai.FunctionCallingConfigModeAuto, gen.config.ToolConfig.FunctionCallingConfig.Mode)
}

func TestGeminiProviderErrors(t *testing.T) {
	t.Run("generate failure", func(t *testing.T) {
		p := newGeminiProvider(config.ProviderConfig{Name: "gemini"}, &fakeGenerator{err: errors.New("quota")}, newTestLogger())
		_, err := p.Chat(context.Background(), domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}}})
		assert.ErrorIs(t, err, domain.ErrProviderFailure)
	})

	t.Run("no candidates", func(t *testing.T) {
		p := newGeminiProvider(config.ProviderConfig{Name: "gemini"}, &fakeGenerator{resp: &genai.GenerateContentResponse{}}, newTestLogger())
		_, err := p.Chat(context.Background(), domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}}})
		assert.ErrorIs(t, err, domain.ErrEmptyResponse)
	})
}

func TestNewGeminiProviderRequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), config.ProviderConfig{Name: "gemini"}, newTestLogger())
	assert.ErrorIs(t, err, domain.ErrCredentialMissing)
}

func TestToGeminiRequest(t *testing.T) {
	req := domain.ChatRequest{
		MaxTokens:   300,
		Temperature: 0.5,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "Be brief."},
			{Role: domain.RoleUser, Content: "price of bitcoin"},
			{Role: domain.RoleAssistant, FunctionCall: &domain.FunctionCall{Name: "get_current_price", Arguments: json.RawMessage(`{"ticker":"bitcoin"}`)}},
			{Role: domain.RoleFunction, Name: "get_current_price", Content: "Price of bitcoin: $67000.5 USD"},
			{Role: domain.RoleAssistant, Content: "Bitcoin trades at $67000.5."},
		},
	}

	contents, cfg := toGeminiRequest(req)

	require.Len(t, contents, 4)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "bitcoin", contents[1].Parts[0].FunctionCall.Args["ticker"])
	require.NotNil(t, contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, "get_current_price", contents[2].Parts[0].FunctionResponse.Name)
	assert.Equal(t, "Price of bitcoin: $67000.5 USD", contents[2].Parts[0].FunctionResponse.Response["result"])
	assert.Equal(t, "model", contents[3].Role)

	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "Be brief.", cfg.SystemInstruction.Parts[0].Text)
	assert.Equal(t, int32(300), cfg.MaxOutputTokens)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.5, *cfg.Temperature, 1e-6)
	assert.Empty(t, cfg.Tools)
	assert.Nil(t, cfg.ToolConfig)
}

func TestToGeminiSchema(t *testing.T) {
	s := toGeminiSchema(json.RawMessage(`{
		"type": "object",
		"properties": {
			"ticker": {"type": "string", "description": "coin id"},
			"amount": {"type": "number"}
		},
		"required": ["ticker", "amount"]
	}`))

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"ticker", "amount"}, s.Required)
	require.Contains(t, s.Properties, "ticker")
	assert.Equal(t, genai.TypeString, s.Properties["ticker"].Type)
	assert.Equal(t, "coin id", s.Properties["ticker"].Description)
	assert.Equal(t, genai.TypeNumber, s.Properties["amount"].Type)

	empty := toGeminiSchema(nil)
	assert.Equal(t, genai.TypeObject, empty.Type)
	assert.NotNil(t, empty.Properties)
}
