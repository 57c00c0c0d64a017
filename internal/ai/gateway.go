// Package ai wraps the OpenAI Responses API behind a small, provider-neutral
// request/reply shape used by the chat orchestrator.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// ErrNotConfigured means the API key or model is missing. It is a
// precondition failure and is never retried.
var ErrNotConfigured = errors.New("llm gateway not configured: missing API key or model")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Request is one model call. Tools may be empty for plain completions.
type Request struct {
	Messages []Message
	Tools    []ToolSpec
}

// Reply holds either a tool call or plain text. Both may be empty when the
// model produced nothing usable.
type Reply struct {
	Text     string
	ToolCall *ToolCall
}

type Config struct {
	APIKey  string
	BaseURL string // without the /v1 suffix
	Model   string
	Timeout time.Duration
}

type Gateway struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewGateway builds a gateway. It never fails; a gateway built without a key
// or model returns ErrNotConfigured from every call.
func NewGateway(cfg Config) *Gateway {
	g := &Gateway{model: cfg.Model, timeout: cfg.Timeout}
	if cfg.APIKey == "" || cfg.Model == "" {
		return g
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/v1/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)
	g.client = &client
	return g
}

// Configured reports whether calls can reach the model at all.
func (g *Gateway) Configured() bool {
	return g != nil && g.client != nil
}

func (g *Gateway) Model() string { return g.model }

// Complete sends the conversation and returns the first function call, or
// the concatenated output text when there is none.
func (g *Gateway) Complete(ctx context.Context, req Request) (*Reply, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	input := make(responses.ResponseInputParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		input = append(input, responses.ResponseInputItemUnionParam{
			OfMessage: &responses.EasyInputMessageParam{
				Role: responses.EasyInputMessageRole(m.Role),
				Content: responses.EasyInputMessageContentUnionParam{
					OfString: param.NewOpt(m.Content),
				},
			},
		})
	}

	params := responses.ResponseNewParams{
		Model:             shared.ResponsesModel(g.model),
		Input:             responses.ResponseNewParamsInputUnion{OfInputItemList: input},
		Temperature:       param.NewOpt(0.2),
		ParallelToolCalls: param.NewOpt(false),
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
		params.ToolChoice = responses.ResponseNewParamsToolChoiceUnion{
			OfToolChoiceMode: param.NewOpt(responses.ToolChoiceOptionsAuto),
		}
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	for _, item := range resp.Output {
		if item.Type != "function_call" {
			continue
		}
		fc := item.AsFunctionCall()
		args := []byte(strings.TrimSpace(fc.Arguments))
		if !json.Valid(args) {
			args = []byte("{}")
		}
		return &Reply{ToolCall: &ToolCall{CallID: fc.CallID, Name: fc.Name, Arguments: args}}, nil
	}
	return &Reply{Text: strings.TrimSpace(resp.OutputText())}, nil
}

// Ping sends a trivial prompt and returns the model's text.
func (g *Gateway) Ping(ctx context.Context) (string, error) {
	reply, err := g.Complete(ctx, Request{Messages: []Message{
		{Role: RoleUser, Content: "Responde solamente: ok"},
	}})
	if err != nil {
		return "", err
	}
	if reply.Text == "" {
		return "", fmt.Errorf("empty response content")
	}
	return reply.Text, nil
}
