package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"invagro/internal/ai"
	"invagro/internal/analytics"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type scriptedLLM struct {
	replies  []*ai.Reply
	errs     []error
	requests []ai.Request
}

func (l *scriptedLLM) Complete(_ context.Context, req ai.Request) (*ai.Reply, error) {
	i := len(l.requests)
	l.requests = append(l.requests, req)
	if i < len(l.errs) && l.errs[i] != nil {
		return nil, l.errs[i]
	}
	if i < len(l.replies) {
		return l.replies[i], nil
	}
	return &ai.Reply{}, nil
}

type fakeTools struct {
	executed []string
	ran      []analytics.Params
	result   *analytics.Result
	err      error
}

func (f *fakeTools) Definitions() []analytics.Definition { return analytics.Definitions() }

func (f *fakeTools) Execute(_ context.Context, _ analytics.Call, name string, args json.RawMessage) (*analytics.Result, error) {
	f.executed = append(f.executed, name+" "+string(args))
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeTools) Run(_ context.Context, _ analytics.Call, p analytics.Params) (*analytics.Result, error) {
	f.ran = append(f.ran, p)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type memStore struct {
	mu        sync.Mutex
	owners    map[string]string
	messages  map[string][]Message
	summaries map[string]string
	covered   map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		owners:    map[string]string{},
		messages:  map[string][]Message{},
		summaries: map[string]string{},
		covered:   map[string]int{},
	}
}

func (s *memStore) EnsureSession(_ context.Context, id, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.owners[id]; ok && owner != username {
		return ErrSessionForbidden
	}
	s.owners[id] = username
	return nil
}

func (s *memStore) AppendMessage(_ context.Context, id string, role ai.Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[id] = append(s.messages[id], Message{Role: role, Content: content, CreatedAt: time.Now()})
	return nil
}

func (s *memStore) RecentMessages(_ context.Context, id string, n int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.messages[id]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return append([]Message(nil), all...), nil
}

func (s *memStore) CountMessages(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[id]), nil
}

func (s *memStore) MessagesBefore(_ context.Context, id string, keep int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.messages[id]
	if len(all) <= keep {
		return nil, nil
	}
	return append([]Message(nil), all[:len(all)-keep]...), nil
}

func (s *memStore) Summary(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaries[id], nil
}

func (s *memStore) SaveSummary(_ context.Context, id, text string, covered int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if covered > s.covered[id] {
		s.summaries[id], s.covered[id] = text, covered
	}
	return nil
}

func topResult() *analytics.Result {
	limit := 10
	return &analytics.Result{
		Tool:      analytics.ToolTopProductos,
		Criterion: "Productos por cantidad.",
		Params:    analytics.TopProductosParams{FechaInicio: "2024-01-01", FechaFin: "2024-01-31", Limite: &limit},
		RowCount:  1,
		Rows: []analytics.ProductRow{
			{ProductID: 1, ProductName: "Desparasitante Interno", QtyTotal: 3, Total: decimal.RequireFromString("34.50")},
		},
	}
}

func newTestOrchestrator(llm LLM, tools Tools, store Store) *Orchestrator {
	o := NewOrchestrator(llm, tools, store, nil, nil, "Invagro")
	o.now = func() time.Time { return time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC) }
	return o
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestHandle_EmptyMessage(t *testing.T) {
	o := newTestOrchestrator(&scriptedLLM{}, &fakeTools{}, newMemStore())
	_, err := o.Handle(context.Background(), Turn{SessionID: "s", Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestHandle_MutationRefusedWithoutDispatch(t *testing.T) {
	for _, msg := range []string{
		"Elimina al cliente Ana",
		"BORRA las facturas",
		"modifíca el precio",
		"actualiza el stock",
		"agrega un producto",
		"drop table clients",
	} {
		t.Run(msg, func(t *testing.T) {
			llm, tools, store := &scriptedLLM{}, &fakeTools{}, newMemStore()
			reply, err := newTestOrchestrator(llm, tools, store).Handle(context.Background(), Turn{SessionID: "s", Username: "u", Message: msg})
			require.NoError(t, err)
			assert.Equal(t, RefusalReply, reply.Text)
			assert.Empty(t, llm.requests)
			assert.Empty(t, tools.executed)
			assert.Empty(t, tools.ran)
			require.Len(t, store.messages["s"], 2)
			assert.Equal(t, ai.RoleAssistant, store.messages["s"][1].Role)
		})
	}
}

func TestHandle_ToolCallThenSynthesis(t *testing.T) {
	llm := &scriptedLLM{replies: []*ai.Reply{
		{ToolCall: &ai.ToolCall{Name: "top_productos", Arguments: []byte(`{"fecha_inicio":"2024-01-01","fecha_fin":"2024-01-31","limite":null}`)}},
		{Text: "Ordené por cantidad. El más vendido fue Desparasitante Interno con 3 unidades (L 34.50)."},
	}}
	tools := &fakeTools{result: topResult()}
	store := newMemStore()

	reply, err := newTestOrchestrator(llm, tools, store).Handle(context.Background(), Turn{SessionID: "s", Username: "u", Message: "¿Qué se vendió más en enero 2024?"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeTool, reply.Outcome)
	assert.Equal(t, "top_productos", reply.Tool)
	assert.Contains(t, reply.Text, "Desparasitante Interno")
	require.Len(t, tools.executed, 1)

	require.Len(t, llm.requests, 2)
	first := llm.requests[0]
	assert.Len(t, first.Tools, 5)
	assert.Equal(t, ai.RoleSystem, first.Messages[0].Role)
	assert.Contains(t, first.Messages[0].Content, "2024-02-15")
	assert.Equal(t, "¿Qué se vendió más en enero 2024?", first.Messages[len(first.Messages)-1].Content)
	assert.Contains(t, llm.requests[1].Messages[1].Content, `"qty_total":3`)

	msgs := store.messages["s"]
	require.Len(t, msgs, 2)
	assert.Equal(t, ai.RoleUser, msgs[0].Role)
	assert.Equal(t, reply.Text, msgs[1].Content)
}

func TestHandle_SynthesisFailureUsesTemplate(t *testing.T) {
	llm := &scriptedLLM{
		replies: []*ai.Reply{{ToolCall: &ai.ToolCall{Name: "top_productos", Arguments: []byte(`{}`)}}},
		errs:    []error{nil, errors.New("timeout")},
	}
	reply, err := newTestOrchestrator(llm, &fakeTools{result: topResult()}, newMemStore()).
		Handle(context.Background(), Turn{SessionID: "s", Message: "top enero"})
	require.NoError(t, err)
	assert.Equal(t, "Productos por cantidad.\n• Desparasitante Interno: 3 unidades, L 34.50", reply.Text)
}

func TestHandle_PlainTextAnswerSkipsTools(t *testing.T) {
	llm := &scriptedLLM{replies: []*ai.Reply{{Text: "¿De qué cliente desea ver las compras?"}}}
	tools := &fakeTools{}
	reply, err := newTestOrchestrator(llm, tools, newMemStore()).Handle(context.Background(), Turn{SessionID: "s", Message: "compras del cliente"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeText, reply.Outcome)
	assert.Empty(t, tools.executed)
	assert.Empty(t, tools.ran)
	assert.Len(t, llm.requests, 1)
}

func TestHandle_UnreachableModelFallsBack(t *testing.T) {
	llm := &scriptedLLM{errs: []error{ai.ErrNotConfigured}}
	tools := &fakeTools{result: topResult()}
	reply, err := newTestOrchestrator(llm, tools, newMemStore()).Handle(context.Background(), Turn{SessionID: "s", Message: "productos más vendidos en enero 2024"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeFallback, reply.Outcome)
	require.Len(t, tools.ran, 1)
	p, ok := tools.ran[0].(analytics.TopProductosParams)
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", p.FechaInicio)
	assert.Equal(t, "2024-01-31", p.FechaFin)
	assert.True(t, strings.HasPrefix(reply.Text, UnreachableReply))
	assert.Contains(t, reply.Text, "L 34.50")
	assert.Len(t, llm.requests, 1, "no synthesis call when the model is down")
}

func TestHandle_NoHeuristicAsksForDetail(t *testing.T) {
	llm := &scriptedLLM{replies: []*ai.Reply{{}}}
	reply, err := newTestOrchestrator(llm, &fakeTools{}, newMemStore()).Handle(context.Background(), Turn{SessionID: "s", Message: "hola"})
	require.NoError(t, err)
	assert.Equal(t, AskDetailReply, reply.Text)
}

func TestHandle_ToolErrorIsShownVerbatim(t *testing.T) {
	llm := &scriptedLLM{replies: []*ai.Reply{{ToolCall: &ai.ToolCall{Name: "clientes_inactivos", Arguments: []byte(`{"dias":0}`)}}}}
	tools := &fakeTools{err: &analytics.ToolError{Msg: "dias debe estar entre 1 y 730"}}
	store := newMemStore()
	reply, err := newTestOrchestrator(llm, tools, store).Handle(context.Background(), Turn{SessionID: "s", Message: "clientes inactivos"})
	require.NoError(t, err)
	assert.Equal(t, "dias debe estar entre 1 y 730", reply.Text)
	assert.Equal(t, reply.Text, store.messages["s"][1].Content)
}

func TestHandle_InternalErrorIsGeneric(t *testing.T) {
	llm := &scriptedLLM{replies: []*ai.Reply{{ToolCall: &ai.ToolCall{Name: "clientes_inactivos", Arguments: []byte(`{"dias":30}`)}}}}
	store := newMemStore()
	_, err := newTestOrchestrator(llm, &fakeTools{err: errors.New("connection reset")}, store).
		Handle(context.Background(), Turn{SessionID: "s", Message: "clientes inactivos"})
	assert.ErrorIs(t, err, ErrProcessing)
	msgs := store.messages["s"]
	require.NotEmpty(t, msgs)
	assert.Equal(t, FailureReply, msgs[len(msgs)-1].Content)
}

type panickyTools struct{ fakeTools }

func (p *panickyTools) Execute(context.Context, analytics.Call, string, json.RawMessage) (*analytics.Result, error) {
	panic("boom")
}

func TestHandle_PanicIsContained(t *testing.T) {
	llm := &scriptedLLM{replies: []*ai.Reply{{ToolCall: &ai.ToolCall{Name: "top_productos", Arguments: []byte(`{}`)}}}}
	_, err := newTestOrchestrator(llm, &panickyTools{}, newMemStore()).Handle(context.Background(), Turn{SessionID: "s", Message: "top"})
	assert.ErrorIs(t, err, ErrProcessing)
}

func TestHandle_SessionOwnedByAnotherUser(t *testing.T) {
	store := newMemStore()
	store.owners["s"] = "ana"
	_, err := newTestOrchestrator(&scriptedLLM{}, &fakeTools{}, store).Handle(context.Background(), Turn{SessionID: "s", Username: "luis", Message: "top"})
	assert.ErrorIs(t, err, ErrSessionForbidden)
}

func TestHandle_HistoryWindowAndSummary(t *testing.T) {
	store := newMemStore()
	llm := &scriptedLLM{}
	o := newTestOrchestrator(llm, &fakeTools{}, store)

	// Each turn is answered with plain text, so every turn adds two messages.
	for i := 0; i < 6; i++ {
		llm.replies = append(llm.replies, &ai.Reply{Text: fmt.Sprintf("respuesta %d", i)})
		if i == 5 {
			llm.replies = append(llm.replies, &ai.Reply{Text: "- resumen"})
		}
		_, err := o.Handle(context.Background(), Turn{SessionID: "s", Message: fmt.Sprintf("pregunta %d", i)})
		require.NoError(t, err)
	}

	assert.Len(t, store.messages["s"], 12)
	assert.Equal(t, "- resumen", store.summaries["s"])
	assert.Equal(t, 4, store.covered["s"])

	// Turn 6 saw 8 prior messages plus the system prompt and the new one.
	sixth := llm.requests[5]
	assert.Len(t, sixth.Messages, 1+historyWindow+1)

	// The next turn includes the summary as a second system message.
	llm.replies = append(llm.replies, &ai.Reply{Text: "ok"})
	_, err := o.Handle(context.Background(), Turn{SessionID: "s", Message: "otra"})
	require.NoError(t, err)
	last := llm.requests[len(llm.requests)-1]
	assert.Equal(t, ai.RoleSystem, last.Messages[1].Role)
	assert.Contains(t, last.Messages[1].Content, "- resumen")
}

func TestHandle_RefusalStillSummarizesWithModel(t *testing.T) {
	store := newMemStore()
	llm := &scriptedLLM{}
	o := newTestOrchestrator(llm, &fakeTools{}, store)

	for i := 0; i < 5; i++ {
		llm.replies = append(llm.replies, &ai.Reply{Text: fmt.Sprintf("respuesta %d", i)})
		_, err := o.Handle(context.Background(), Turn{SessionID: "s", Message: fmt.Sprintf("pregunta %d", i)})
		require.NoError(t, err)
	}
	require.Len(t, store.messages["s"], 10)

	// The refusal lands on the 12th message, which is when the summary is due.
	llm.replies = append(llm.replies, &ai.Reply{Text: "- resumen del modelo"})
	reply, err := o.Handle(context.Background(), Turn{SessionID: "s", Message: "elimina al cliente Ana"})
	require.NoError(t, err)
	assert.Equal(t, RefusalReply, reply.Text)

	require.Len(t, llm.requests, 6, "only the summary call follows the refusal")
	assert.Equal(t, summaryPrompt, llm.requests[5].Messages[0].Content)
	assert.Equal(t, "- resumen del modelo", store.summaries["s"])
	assert.Equal(t, 4, store.covered["s"])
}

func TestHandle_RefusalTruncatesOnlyWhenSummaryCallFails(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 10; i++ {
		_ = store.AppendMessage(context.Background(), "s", ai.RoleUser, fmt.Sprintf("mensaje %d", i))
	}
	llm := &scriptedLLM{errs: []error{errors.New("down")}}
	o := newTestOrchestrator(llm, &fakeTools{}, store)

	_, err := o.Handle(context.Background(), Turn{SessionID: "s", Message: "borra las facturas"})
	require.NoError(t, err)

	require.Len(t, llm.requests, 1)
	assert.Equal(t, transcript(store.messages["s"][:4]), store.summaries["s"])
}

func TestMaybeSummarize_TruncatesWhenModelFails(t *testing.T) {
	store := newMemStore()
	long := strings.Repeat("á", 400)
	for i := 0; i < 12; i++ {
		_ = store.AppendMessage(context.Background(), "s", ai.RoleUser, long)
	}
	llm := &scriptedLLM{errs: []error{errors.New("down")}}
	o := newTestOrchestrator(llm, &fakeTools{}, store)

	require.NoError(t, o.maybeSummarize(context.Background(), "s", true))
	assert.Equal(t, summaryCharBudget, len([]rune(store.summaries["s"])))
}
