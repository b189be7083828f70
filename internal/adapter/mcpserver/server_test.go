package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptochat/internal/domain"
)

type stubFunction struct {
	spec domain.FunctionSpec
	out  domain.FunctionOutput
	err  error
	args domain.Args
}

func (f *stubFunction) Spec() domain.FunctionSpec { return f.spec }

func (f *stubFunction) Invoke(_ context.Context, args domain.Args) (domain.FunctionOutput, error) {
	f.args = args
	return f.out, f.err
}

type stubCatalogue struct {
	order []string
	funcs map[string]*stubFunction
}

func newCatalogue(fns ...*stubFunction) *stubCatalogue {
	c := &stubCatalogue{funcs: map[string]*stubFunction{}}
	for _, f := range fns {
		c.order = append(c.order, f.spec.Name)
		c.funcs[f.spec.Name] = f
	}
	return c
}

func (c *stubCatalogue) Specs() []domain.FunctionSpec {
	specs := make([]domain.FunctionSpec, 0, len(c.order))
	for _, n := range c.order {
		specs = append(specs, c.funcs[n].spec)
	}
	return specs
}

func (c *stubCatalogue) Lookup(name string) (domain.Function, error) {
	f, ok := c.funcs[name]
	if !ok {
		return nil, domain.NewDomainError("Registry.Lookup", domain.ErrUnknownFunction, name)
	}
	return f, nil
}

func tickerArgs(_ string, raw json.RawMessage) (domain.Args, error) {
	var a struct {
		Ticker string `json:"ticker"`
		Period string `json:"period"`
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return domain.Args{}, errors.Join(domain.ErrArgumentCoercion, err)
	}
	return domain.Args{Ticker: a.Ticker, Period: a.Period}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(fns ...*stubFunction) *Server {
	return New(Deps{
		Functions: newCatalogue(fns...),
		Arguments: tickerArgs,
		Version:   "test",
		Logger:    discardLogger(),
	})
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type toolResult struct {
	Content []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Data     string `json:"data"`
		MimeType string `json:"mimeType"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func rpc(t *testing.T, s *Server, method string, params any) rpcResponse {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	reply := s.MCP().HandleMessage(context.Background(), body)
	require.NotNil(t, reply)
	data, err := json.Marshal(reply)
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) toolResult {
	t.Helper()
	resp := rpc(t, s, "tools/call", map[string]any{"name": name, "arguments": args})
	require.Nil(t, resp.Error, "unexpected JSON-RPC error")
	var res toolResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	return res
}

func priceFunction() *stubFunction {
	return &stubFunction{
		spec: domain.FunctionSpec{
			Name:        "get_current_price",
			Description: "Get the current price of a cryptocurrency",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"ticker":{"type":"string"}},"required":["ticker"]}`),
		},
		out: domain.TextOutput{Value: "Current Price of bitcoin: 67000.5 USD"},
	}
}

func TestToolsList(t *testing.T) {
	gainers := &stubFunction{
		spec: domain.FunctionSpec{Name: "get_highest_gainers", Description: "Top gainers"},
		out:  domain.TextOutput{Value: "Highest Gainers: a"},
	}
	s := newTestServer(priceFunction(), gainers)

	resp := rpc(t, s, "tools/list", map[string]any{})
	require.Nil(t, resp.Error)

	var list struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &list))
	require.Len(t, list.Tools, 2)

	byName := map[string]json.RawMessage{}
	for _, tool := range list.Tools {
		byName[tool.Name] = tool.InputSchema
	}
	assert.Contains(t, string(byName["get_current_price"]), `"ticker"`)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(byName["get_highest_gainers"]))
}

func TestCallTextTool(t *testing.T) {
	fn := priceFunction()
	s := newTestServer(fn)

	res := callTool(t, s, "get_current_price", map[string]any{"ticker": "bitcoin"})
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "text", res.Content[0].Type)
	assert.Equal(t, "Current Price of bitcoin: 67000.5 USD", res.Content[0].Text)
	assert.Equal(t, "bitcoin", fn.args.Ticker)
}

func TestCallTableToolReturnsTSV(t *testing.T) {
	series := domain.PriceSeries{
		Ticker: "BTC-USD",
		Period: "1mo",
		Points: []domain.PricePoint{{Time: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Close: 1.5}},
	}
	fn := &stubFunction{
		spec: domain.FunctionSpec{Name: "get_price_history", Description: "History"},
		out:  domain.TableOutput{Series: series},
	}
	s := newTestServer(fn)

	res := callTool(t, s, "get_price_history", map[string]any{"ticker": "BTC-USD", "period": "1mo"})
	require.Len(t, res.Content, 1)
	assert.True(t, strings.HasPrefix(res.Content[0].Text, "Date\tOpen\tHigh\tLow\tClose\tVolume"))
	assert.Contains(t, res.Content[0].Text, "2024-05-01")
	assert.Equal(t, "1mo", fn.args.Period)
}

func TestCallImageToolInlinesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.png")
	png := []byte("\x89PNG\r\n\x1a\nfake")
	require.NoError(t, os.WriteFile(path, png, 0o600))

	fn := &stubFunction{
		spec: domain.FunctionSpec{Name: "plot_price_history", Description: "Plot"},
		out:  domain.ImageOutput{Path: path, Ticker: "ETH-USD", Rendered: true},
	}
	s := newTestServer(fn)

	res := callTool(t, s, "plot_price_history", map[string]any{"ticker": "ETH-USD"})
	var image, text bool
	for _, c := range res.Content {
		switch c.Type {
		case "image":
			image = true
			assert.Equal(t, "image/png", c.MimeType)
			assert.Equal(t, base64.StdEncoding.EncodeToString(png), c.Data)
		case "text":
			text = true
			assert.Contains(t, c.Text, "Price History of ETH-USD")
		}
	}
	assert.True(t, image, "image content expected")
	assert.True(t, text, "caption expected")
}

// sharedPathPlot writes the ticker into one fixed file, like the chart
// renderer does, and lingers so overlapping calls would collide.
type sharedPathPlot struct {
	path string
}

func (p *sharedPathPlot) Spec() domain.FunctionSpec {
	return domain.FunctionSpec{Name: "plot_price_history", Description: "Plot"}
}

func (p *sharedPathPlot) Invoke(_ context.Context, args domain.Args) (domain.FunctionOutput, error) {
	if err := os.WriteFile(p.path, []byte(args.Ticker), 0o600); err != nil {
		return nil, err
	}
	time.Sleep(40 * time.Millisecond)
	return domain.ImageOutput{Path: p.path, Ticker: args.Ticker, Rendered: true}, nil
}

func TestConcurrentImageCallsKeepTheirOwnChart(t *testing.T) {
	plot := &sharedPathPlot{path: filepath.Join(t.TempDir(), "output.png")}
	s := New(Deps{
		Functions: &singleFunction{fn: plot},
		Arguments: tickerArgs,
		Logger:    discardLogger(),
	})

	tickers := []string{"BTC-USD", "ETH-USD", "SOL-USD"}
	replies := make([]json.RawMessage, len(tickers))
	var wg sync.WaitGroup
	for i, ticker := range tickers {
		body, err := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      i + 1,
			"method":  "tools/call",
			"params":  map[string]any{"name": "plot_price_history", "arguments": map[string]any{"ticker": ticker}},
		})
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			reply := s.MCP().HandleMessage(context.Background(), body)
			replies[i], _ = json.Marshal(reply)
		}()
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	for i, ticker := range tickers {
		var resp rpcResponse
		require.NoError(t, json.Unmarshal(replies[i], &resp), ticker)
		require.Nil(t, resp.Error, ticker)
		var res toolResult
		require.NoError(t, json.Unmarshal(resp.Result, &res), ticker)

		var found bool
		for _, c := range res.Content {
			if c.Type != "image" {
				continue
			}
			found = true
			data, err := base64.StdEncoding.DecodeString(c.Data)
			require.NoError(t, err)
			assert.Equal(t, ticker, string(data), "chart bytes for %s", ticker)
		}
		assert.True(t, found, "image content expected for %s", ticker)
	}
}

type singleFunction struct {
	fn domain.Function
}

func (c *singleFunction) Specs() []domain.FunctionSpec { return []domain.FunctionSpec{c.fn.Spec()} }

func (c *singleFunction) Lookup(name string) (domain.Function, error) {
	if name != c.fn.Spec().Name {
		return nil, domain.NewDomainError("Registry.Lookup", domain.ErrUnknownFunction, name)
	}
	return c.fn, nil
}

func TestCallImageToolWithoutData(t *testing.T) {
	fn := &stubFunction{
		spec: domain.FunctionSpec{Name: "plot_price_history", Description: "Plot"},
		out:  domain.ImageOutput{Ticker: "NOPE"},
	}
	res := callTool(t, newTestServer(fn), "plot_price_history", map[string]any{"ticker": "NOPE"})
	require.Len(t, res.Content, 1)
	assert.Equal(t, "Price history of NOPE not available", res.Content[0].Text)
}

func TestCallToolErrorsAreInBand(t *testing.T) {
	fn := priceFunction()
	fn.err = domain.NewDomainError("Client.Quote", domain.ErrTransportFailure, "HTTP 500")
	s := newTestServer(fn)

	res := callTool(t, s, "get_current_price", map[string]any{"ticker": "bitcoin"})
	assert.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	assert.Contains(t, res.Content[0].Text, "upstream transport failure")
}

func TestCallToolArgumentError(t *testing.T) {
	fn := priceFunction()
	s := New(Deps{
		Functions: newCatalogue(fn),
		Arguments: func(string, json.RawMessage) (domain.Args, error) {
			return domain.Args{}, fmt.Errorf("shape: %w", domain.ErrArgumentCoercion)
		},
		Logger: discardLogger(),
	})

	res := callTool(t, s, "get_current_price", map[string]any{"ticker": 7})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "argument coercion failed")
	assert.Empty(t, fn.args.Ticker, "function must not run")
}

func TestCallUnknownTool(t *testing.T) {
	resp := rpc(t, newTestServer(priceFunction()), "tools/call", map[string]any{"name": "get_weather"})
	assert.NotNil(t, resp.Error, "unregistered tools are rejected by the protocol layer")
}

func TestServeStdioStopsOnCancel(t *testing.T) {
	s := newTestServer(priceFunction())
	ctx, cancel := context.WithCancel(context.Background())

	pr, pw := io.Pipe()
	defer pw.Close()

	done := make(chan error, 1)
	go func() { done <- s.ServeStdio(ctx, pr, io.Discard) }()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ServeStdio did not return after cancel")
	}
}
