package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/tracer"
)

// FunctionSet resolves function names advertised to the model.
type FunctionSet interface {
	Lookup(name string) (domain.Function, error)
	Specs() []domain.FunctionSpec
}

// ArgumentShaper turns the model's raw JSON arguments into typed Args
// for the named function.
type ArgumentShaper func(name string, raw json.RawMessage) (domain.Args, error)

// DispatcherDeps holds injected dependencies for the dispatcher.
type DispatcherDeps struct {
	LLM          domain.LLMProvider
	Functions    FunctionSet
	Arguments    ArgumentShaper
	Model        string        // empty = provider default
	SystemPrompt string        // sent first on every request, never stored
	TurnTimeout  time.Duration // optional, 0 = no deadline
	Logger       *slog.Logger
}

// Outcome is what the UI renders for one turn.
type Outcome struct {
	Kind         domain.OutputKind
	Text         string
	Series       domain.PriceSeries
	Image        domain.ImageOutput
	FunctionName string // empty when the model answered directly
}

// Dispatcher runs the user-turn loop: one model call, at most one function
// invocation, and for text-valued functions one summarizing model call.
type Dispatcher struct {
	deps DispatcherDeps
}

// NewDispatcher creates a dispatcher with the given dependencies.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Dispatcher{deps: deps}
}

// Handle processes one user turn against conv. Errors leave conv exactly as
// it was at the point of failure.
func (d *Dispatcher) Handle(ctx context.Context, conv *Conversation, userText string) (*Outcome, error) {
	if d.deps.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.deps.TurnTimeout)
		defer cancel()
	}

	ctx, span := tracer.StartSpan(ctx, "dispatch.turn",
		trace.WithAttributes(tracer.StringAttr("conversation.id", conv.ID())),
	)
	defer span.End()

	conv.Append(domain.Message{Role: domain.RoleUser, Content: userText})

	resp, err := d.deps.LLM.Chat(ctx, domain.ChatRequest{
		Model:        d.deps.Model,
		Messages:     d.requestMessages(conv),
		Functions:    d.deps.Functions.Specs(),
		FunctionCall: domain.FunctionCallAuto,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("llm chat: %w", err)
	}

	reply := resp.Message
	if !reply.HasFunctionCall() {
		conv.Append(domain.Message{Role: domain.RoleAssistant, Content: reply.Content})
		tracer.SetOK(span)
		return &Outcome{Kind: domain.OutputText, Text: reply.Content}, nil
	}

	call := *reply.FunctionCall
	span.SetAttributes(tracer.StringAttr("function.name", call.Name))

	fn, err := d.deps.Functions.Lookup(call.Name)
	if err != nil {
		tracer.RecordError(span, err)
		d.deps.Logger.Warn("model requested unknown function", "function", call.Name, "conversation", conv.ID())
		return nil, err
	}

	args, err := d.deps.Arguments(call.Name, call.Arguments)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	d.deps.Logger.Debug("invoking function",
		"function", call.Name,
		"ticker", args.Ticker,
		"conversation", conv.ID(),
	)
	out, err := fn.Invoke(ctx, args)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("invoke %s: %w", call.Name, err)
	}

	switch o := out.(type) {
	case domain.TableOutput:
		tracer.SetOK(span)
		return &Outcome{Kind: domain.OutputTable, Series: o.Series, Text: o.String(), FunctionName: call.Name}, nil
	case domain.ImageOutput:
		tracer.SetOK(span)
		return &Outcome{Kind: domain.OutputImage, Image: o, Text: o.String(), FunctionName: call.Name}, nil
	}

	result := out.String()
	conv.Append(domain.Message{
		Role:         domain.RoleAssistant,
		Content:      reply.Content,
		FunctionCall: &call,
	})
	conv.Append(domain.Message{Role: domain.RoleFunction, Name: call.Name, Content: result})

	// The summarizing call carries no functions; a function call in its
	// reply is ignored.
	summary, err := d.deps.LLM.Chat(ctx, domain.ChatRequest{
		Model:    d.deps.Model,
		Messages: d.requestMessages(conv),
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("llm summary: %w", err)
	}

	conv.Append(domain.Message{Role: domain.RoleAssistant, Content: summary.Message.Content})
	tracer.SetOK(span)
	return &Outcome{Kind: domain.OutputText, Text: summary.Message.Content, FunctionName: call.Name}, nil
}

// requestMessages is the optional system prompt followed by the full history.
func (d *Dispatcher) requestMessages(conv *Conversation) []domain.Message {
	history := conv.Messages()
	if d.deps.SystemPrompt == "" {
		return history
	}
	msgs := make([]domain.Message, 0, len(history)+1)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: d.deps.SystemPrompt})
	return append(msgs, history...)
}
