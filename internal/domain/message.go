package domain

import "time"

// Role constants for message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// FunctionCallAuto lets the model decide whether to call a function.
const FunctionCallAuto = "auto"

// Message represents a single message in a conversation.
// Name is set only for RoleFunction messages. Content is empty for an
// assistant turn that carries only a FunctionCall.
type Message struct {
	Role         string        `json:"role"`
	Content      string        `json:"content"`
	Name         string        `json:"name,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// HasFunctionCall reports whether the message carries a function-call directive.
func (m Message) HasFunctionCall() bool {
	return m.FunctionCall != nil && m.FunctionCall.Name != ""
}

// ChatRequest is sent to an LLM provider.
// An empty Functions slice means a plain completion.
type ChatRequest struct {
	Model        string         `json:"model"`
	Messages     []Message      `json:"messages"`
	Functions    []FunctionSpec `json:"functions,omitempty"`
	FunctionCall string         `json:"function_call,omitempty"`
	MaxTokens    int            `json:"max_tokens,omitempty"`
	Temperature  float64        `json:"temperature,omitempty"`
}

// ChatResponse is returned from an LLM provider.
type ChatResponse struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Message   Message   `json:"message"`
	Usage     Usage     `json:"usage"`
	CreatedAt time.Time `json:"created_at"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
