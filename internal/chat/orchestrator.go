// Package chat runs one natural-language analytics turn: safety check,
// session history, model dispatch, tool execution, answer synthesis and
// rolling summaries.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"invagro/internal/ai"
	"invagro/internal/analytics"
	"invagro/internal/metrics"

	"go.uber.org/zap"
)

// User-facing replies.
const (
	RefusalReply     = "Solo puedo consultar información de ventas. No puedo crear, modificar ni eliminar datos."
	UnreachableReply = "No se pudo contactar al modelo de lenguaje."
	AskDetailReply   = "Necesito más detalle para responder: indique el cliente, el rango de fechas o la pregunta concreta (por ejemplo, \"productos más vendidos en enero 2024\")."
	NotPermitted     = "La herramienta solicitada no está permitida."
	FailureReply     = "No se pudo procesar la consulta."
)

var (
	ErrEmptyMessage   = errors.New("el mensaje está vacío")
	ErrMissingSession = errors.New("chat session id is required")
	// ErrProcessing is returned when a turn fails unexpectedly; the cause is
	// only logged.
	ErrProcessing = errors.New(FailureReply)
)

// LLM is the subset of the model gateway the orchestrator needs.
type LLM interface {
	Complete(ctx context.Context, req ai.Request) (*ai.Reply, error)
}

// Tools is the analytics registry as seen by the orchestrator.
type Tools interface {
	Definitions() []analytics.Definition
	Execute(ctx context.Context, call analytics.Call, name string, args json.RawMessage) (*analytics.Result, error)
	Run(ctx context.Context, call analytics.Call, params analytics.Params) (*analytics.Result, error)
}

// Turn is one user message in an explicit session.
type Turn struct {
	SessionID string
	Username  string
	Message   string
}

// Reply is what the user sees, plus how it was produced.
type Reply struct {
	Text    string `json:"reply"`
	Tool    string `json:"tool,omitempty"`
	Outcome string `json:"-"`
}

const (
	OutcomeRefused  = "refused"
	OutcomeText     = "text"
	OutcomeTool     = "tool"
	OutcomeFallback = "fallback"
	OutcomeToolErr  = "tool_error"
	OutcomeClarify  = "clarify"
	OutcomeFailed   = "failed"
)

type Orchestrator struct {
	llm     LLM
	tools   Tools
	store   Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	company string
	now     func() time.Time
}

func NewOrchestrator(llm LLM, tools Tools, store Store, logger *zap.Logger, m *metrics.Metrics, company string) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if company == "" {
		company = "Invagro"
	}
	return &Orchestrator{llm: llm, tools: tools, store: store, logger: logger, metrics: m, company: company, now: time.Now}
}

// Handle runs one chat turn. Validation problems return ErrEmptyMessage or
// ErrMissingSession; anything unexpected, panics included, returns
// ErrProcessing after logging the cause.
func (o *Orchestrator) Handle(ctx context.Context, t Turn) (reply *Reply, err error) {
	log := o.logger.With(zap.String("session_id", t.SessionID), zap.String("username", t.Username))
	defer func() {
		if r := recover(); r != nil {
			log.Error("chat turn panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			o.metrics.ChatTurn(OutcomeFailed)
			reply, err = nil, ErrProcessing
		}
	}()

	message := strings.TrimSpace(t.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if t.SessionID == "" {
		return nil, ErrMissingSession
	}

	reply, err = o.handle(ctx, log, t.SessionID, t.Username, message)
	if err != nil {
		if errors.Is(err, ErrSessionForbidden) {
			return nil, err
		}
		log.Error("chat turn failed", zap.Error(err))
		o.metrics.ChatTurn(OutcomeFailed)
		// Best effort: keep the history consistent with what the user saw.
		_ = o.store.AppendMessage(ctx, t.SessionID, ai.RoleAssistant, FailureReply)
		return nil, ErrProcessing
	}
	o.metrics.ChatTurn(reply.Outcome)
	return reply, nil
}

func (o *Orchestrator) handle(ctx context.Context, log *zap.Logger, sessionID, username, message string) (*Reply, error) {
	if err := o.store.EnsureSession(ctx, sessionID, username); err != nil {
		return nil, err
	}

	if DetectsMutation(message) {
		if err := o.store.AppendMessage(ctx, sessionID, ai.RoleUser, message); err != nil {
			return nil, err
		}
		log.Info("mutation request refused")
		// The refusal skips dispatch, so only a failed summary call counts as the model being down.
		return o.finish(ctx, log, sessionID, &Reply{Text: RefusalReply, Outcome: OutcomeRefused}, true)
	}

	history, err := o.store.RecentMessages(ctx, sessionID, historyWindow)
	if err != nil {
		return nil, err
	}
	summary, err := o.store.Summary(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := o.store.AppendMessage(ctx, sessionID, ai.RoleUser, message); err != nil {
		return nil, err
	}

	now := o.now()
	call := analytics.Call{SessionID: sessionID, Username: username, Question: message}

	modelReply, llmErr := o.llm.Complete(ctx, ai.Request{
		Messages: buildPrompt(o.company, now, summary, history, message),
		Tools:    toolSpecs(o.tools.Definitions()),
	})
	o.metrics.LLMCall("select", llmErr)
	llmUp := llmErr == nil
	if llmErr != nil {
		log.Warn("model dispatch failed, using keyword fallback", zap.Error(llmErr))
	}

	var (
		result  *analytics.Result
		toolErr error
		outcome string
	)
	switch {
	case llmUp && modelReply.ToolCall != nil:
		tc := modelReply.ToolCall
		log.Info("model selected tool", zap.String("tool", tc.Name), zap.ByteString("arguments", tc.Arguments))
		result, toolErr = o.tools.Execute(ctx, call, tc.Name, tc.Arguments)
		outcome = OutcomeTool

	case llmUp && modelReply.Text != "":
		return o.finish(ctx, log, sessionID, &Reply{Text: modelReply.Text, Outcome: OutcomeText}, llmUp)

	default:
		params, ok := SelectFallback(message, now)
		if !ok {
			text := AskDetailReply
			if !llmUp {
				text = UnreachableReply + " " + AskDetailReply
			}
			return o.finish(ctx, log, sessionID, &Reply{Text: text, Outcome: OutcomeClarify}, llmUp)
		}
		log.Info("fallback selected tool", zap.String("tool", string(params.Tool())))
		result, toolErr = o.tools.Run(ctx, call, params)
		outcome = OutcomeFallback
	}

	if toolErr != nil {
		text, ok := userToolError(toolErr)
		if !ok {
			return nil, toolErr
		}
		return o.finish(ctx, log, sessionID, &Reply{Text: text, Outcome: OutcomeToolErr}, llmUp)
	}

	text := ""
	if llmUp {
		text = o.synthesize(ctx, log, message, result)
	}
	if text == "" {
		text = FormatResult(result)
		if !llmUp {
			text = UnreachableReply + "\n" + text
		}
	}
	return o.finish(ctx, log, sessionID, &Reply{Text: text, Tool: string(result.Tool), Outcome: outcome}, llmUp)
}

// finish persists the assistant reply and refreshes the summary when due.
func (o *Orchestrator) finish(ctx context.Context, log *zap.Logger, sessionID string, reply *Reply, llmUp bool) (*Reply, error) {
	if err := o.store.AppendMessage(ctx, sessionID, ai.RoleAssistant, reply.Text); err != nil {
		return nil, err
	}
	if err := o.maybeSummarize(ctx, sessionID, llmUp); err != nil {
		log.Warn("failed to refresh chat summary", zap.Error(err))
	}
	return reply, nil
}

// synthesize asks the model to explain the result; "" means fall back to the template.
func (o *Orchestrator) synthesize(ctx context.Context, log *zap.Logger, question string, res *analytics.Result) string {
	payload, err := json.Marshal(res)
	if err != nil {
		log.Warn("failed to encode tool result", zap.Error(err))
		return ""
	}
	out, err := o.llm.Complete(ctx, ai.Request{Messages: []ai.Message{
		{Role: ai.RoleSystem, Content: synthesisPrompt},
		{Role: ai.RoleUser, Content: fmt.Sprintf("Pregunta: %s\nResultado (JSON):\n%s", question, payload)},
	}})
	o.metrics.LLMCall("synthesize", err)
	if err != nil {
		log.Warn("answer synthesis failed, using template", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(out.Text)
}

// maybeSummarize recomputes the summary once the history reaches 12
// messages and then every 6.
func (o *Orchestrator) maybeSummarize(ctx context.Context, sessionID string, llmUp bool) error {
	count, err := o.store.CountMessages(ctx, sessionID)
	if err != nil {
		return err
	}
	if count < summaryMinimum || count%summaryEvery != 0 {
		return nil
	}
	older, err := o.store.MessagesBefore(ctx, sessionID, historyWindow)
	if err != nil {
		return err
	}
	if len(older) == 0 {
		return nil
	}
	text := transcript(older)

	summary := ""
	if llmUp {
		out, err := o.llm.Complete(ctx, ai.Request{Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: summaryPrompt},
			{Role: ai.RoleUser, Content: text},
		}})
		o.metrics.LLMCall("summarize", err)
		if err != nil {
			o.logger.Warn("summary call failed, truncating history", zap.Error(err))
		} else {
			summary = strings.TrimSpace(out.Text)
		}
	}
	if summary == "" {
		summary = truncateRunes(text, summaryCharBudget)
	}
	return o.store.SaveSummary(ctx, sessionID, summary, len(older))
}

// userToolError returns the message to show for validation and permission
// failures. Other errors are internal.
func userToolError(err error) (string, bool) {
	var te *analytics.ToolError
	if errors.As(err, &te) {
		return te.Msg, true
	}
	if errors.Is(err, analytics.ErrToolNotPermitted) {
		return NotPermitted, true
	}
	return "", false
}

func toolSpecs(defs []analytics.Definition) []ai.ToolSpec {
	out := make([]ai.ToolSpec, 0, len(defs))
	for _, d := range defs {
		out = append(out, ai.ToolSpec{Name: string(d.Name), Description: d.Description, Parameters: d.Schema})
	}
	return out
}
