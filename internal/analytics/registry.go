package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"invagro/internal/metrics"
	"invagro/internal/textnorm"

	"go.uber.org/zap"
)

// Call identifies who asked and what they asked, for client resolution and auditing.
type Call struct {
	SessionID string
	Username  string
	Question  string
}

// Result is the outcome of one tool execution. Rows holds the typed row
// slice of the tool; Params is the resolved parameter set actually queried.
type Result struct {
	Tool      ToolName `json:"tool"`
	Criterion string   `json:"criterio"`
	Params    Params   `json:"params"`
	RowCount  int      `json:"row_count"`
	Rows      any      `json:"rows"`
}

// Registry dispatches validated tool calls to the Store.
type Registry struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRegistry(store Store, logger *zap.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, logger: logger, metrics: m, now: time.Now}
}

// Definitions exposes the static tool catalog.
func (r *Registry) Definitions() []Definition {
	return Definitions()
}

// Execute validates untyped arguments for the named tool and runs it.
func (r *Registry) Execute(ctx context.Context, call Call, name string, args json.RawMessage) (*Result, error) {
	params, err := Decode(name, args)
	if err != nil {
		status := "invalid"
		if errors.Is(err, ErrToolNotPermitted) {
			status = "denied"
		}
		r.metrics.ToolExecuted(name, status, 0)
		r.logger.Warn("tool call rejected", zap.String("tool", name), zap.Error(err))
		return nil, err
	}
	return r.Run(ctx, call, params)
}

// Run executes already typed params. Every successful execution is audited.
func (r *Registry) Run(ctx context.Context, call Call, params Params) (*Result, error) {
	start := time.Now()
	res, err := r.dispatch(ctx, call, params)
	elapsed := time.Since(start)
	tool := string(params.Tool())
	if err != nil {
		status := "error"
		var te *ToolError
		if errors.As(err, &te) {
			status = "invalid"
		}
		r.metrics.ToolExecuted(tool, status, elapsed)
		r.logger.Warn("tool execution failed", zap.String("tool", tool), zap.Error(err))
		return nil, err
	}
	r.metrics.ToolExecuted(tool, "ok", elapsed)

	raw, err := json.Marshal(res.Params)
	if err != nil {
		raw = []byte("{}")
	}
	entry := AuditEntry{
		SessionID:    call.SessionID,
		Username:     call.Username,
		Question:     call.Question,
		ToolName:     res.Tool,
		Params:       raw,
		ElapsedMS:    elapsed.Milliseconds(),
		RowsReturned: res.RowCount,
	}
	if err := r.store.RecordAudit(ctx, entry); err != nil {
		// The answer is still valid; a lost audit row is logged, not surfaced.
		r.logger.Error("failed to record tool audit", zap.String("tool", tool), zap.Error(err))
	}
	r.logger.Info("tool executed",
		zap.String("tool", tool),
		zap.Int("rows", res.RowCount),
		zap.Int64("elapsed_ms", entry.ElapsedMS),
		zap.String("session_id", call.SessionID),
	)
	return res, nil
}

func (r *Registry) dispatch(ctx context.Context, call Call, params Params) (*Result, error) {
	switch p := params.(type) {
	case TopProductosParams:
		from, to, err := parseRange(p.FechaInicio, p.FechaFin)
		if err != nil {
			return nil, err
		}
		limit, err := resolveLimit(p.Limite)
		if err != nil {
			return nil, err
		}
		p.Limite = &limit
		rows, err := r.store.TopProducts(ctx, from, to, nil, limit)
		if err != nil {
			return nil, err
		}
		return &Result{
			Tool:      p.Tool(),
			Criterion: fmt.Sprintf("Productos ordenados por cantidad vendida y luego por monto entre %s y %s (máximo %d).", p.FechaInicio, p.FechaFin, limit),
			Params:    p,
			RowCount:  len(rows),
			Rows:      nonNil(rows),
		}, nil

	case ClientesInactivosParams:
		if err := validateDias(p.Dias); err != nil {
			return nil, err
		}
		cutoff := r.now().AddDate(0, 0, -p.Dias)
		rows, err := r.store.InactiveClients(ctx, cutoff, MaxRows)
		if err != nil {
			return nil, err
		}
		return &Result{
			Tool:      p.Tool(),
			Criterion: fmt.Sprintf("Clientes sin compras desde hace más de %d días (antes del %s), primero los que nunca compraron.", p.Dias, cutoff.Format(dateLayout)),
			Params:    p,
			RowCount:  len(rows),
			Rows:      nonNil(rows),
		}, nil

	case ComprasPorClienteParams:
		from, to, err := parseRange(p.FechaInicio, p.FechaFin)
		if err != nil {
			return nil, err
		}
		id, err := r.resolveClient(ctx, p.ClienteID, call.Question)
		if err != nil {
			return nil, err
		}
		p.ClienteID = &id
		row, err := r.store.ClientPurchases(ctx, id, from, to)
		if err != nil {
			return nil, err
		}
		rows := []ClientPurchasesRow{*row}
		return &Result{
			Tool:      p.Tool(),
			Criterion: fmt.Sprintf("Compras de %s entre %s y %s: líneas, cantidad, monto y última compra.", row.ClientName, p.FechaInicio, p.FechaFin),
			Params:    p,
			RowCount:  len(rows),
			Rows:      rows,
		}, nil

	case ProductosPorClienteParams:
		from, to, err := parseRange(p.FechaInicio, p.FechaFin)
		if err != nil {
			return nil, err
		}
		limit, err := resolveLimit(p.Limite)
		if err != nil {
			return nil, err
		}
		id, err := r.resolveClient(ctx, p.ClienteID, call.Question)
		if err != nil {
			return nil, err
		}
		p.ClienteID, p.Limite = &id, &limit
		rows, err := r.store.TopProducts(ctx, from, to, &id, limit)
		if err != nil {
			return nil, err
		}
		return &Result{
			Tool:      p.Tool(),
			Criterion: fmt.Sprintf("Productos más comprados por el cliente %d entre %s y %s, por cantidad y luego por monto (máximo %d).", id, p.FechaInicio, p.FechaFin, limit),
			Params:    p,
			RowCount:  len(rows),
			Rows:      nonNil(rows),
		}, nil

	case ProductosDisminuidosParams:
		if err := validateYears(p.YearActual, p.YearPasado, r.now()); err != nil {
			return nil, err
		}
		id, err := r.resolveClient(ctx, p.ClienteID, call.Question)
		if err != nil {
			return nil, err
		}
		p.ClienteID = &id
		rows, err := r.store.DecreasedProducts(ctx, id, p.YearActual, p.YearPasado, MaxRows)
		if err != nil {
			return nil, err
		}
		return &Result{
			Tool:      p.Tool(),
			Criterion: fmt.Sprintf("Productos que el cliente %d compró menos en %d que en %d, primero la mayor caída en cantidad.", id, p.YearActual, p.YearPasado),
			Params:    p,
			RowCount:  len(rows),
			Rows:      nonNil(rows),
		}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrToolNotPermitted, params)
}

// maxClientChoices caps the names listed when a question matches several clients.
const maxClientChoices = 5

// resolveClient returns the explicit id, or the single client whose name
// appears in the question. Matching ignores case and accents.
func (r *Registry) resolveClient(ctx context.Context, explicit *int, question string) (int, error) {
	if explicit != nil {
		if *explicit <= 0 {
			return 0, toolErrorf("cliente_id inválido: %d", *explicit)
		}
		return *explicit, nil
	}
	clients, err := r.store.Clients(ctx)
	if err != nil {
		return 0, err
	}
	matches := MatchClients(clients, question)
	switch len(matches) {
	case 1:
		return matches[0].ID, nil
	case 0:
		return 0, toolErrorf("No identifiqué al cliente. Indique el nombre completo del cliente o su id.")
	default:
		shown := matches
		if len(shown) > maxClientChoices {
			shown = shown[:maxClientChoices]
		}
		names := make([]string, 0, len(shown)+1)
		for _, m := range shown {
			names = append(names, fmt.Sprintf("%s (id %d)", m.Name, m.ID))
		}
		if extra := len(matches) - len(shown); extra > 0 {
			names = append(names, fmt.Sprintf("y %d más", extra))
		}
		return 0, toolErrorf("La pregunta coincide con varios clientes: %s. Indique cuál.", strings.Join(names, ", "))
	}
}

// MatchClients returns the clients whose normalized name is contained in the
// normalized text.
func MatchClients(clients []ClientRef, text string) []ClientRef {
	haystack := textnorm.Normalize(text)
	if haystack == "" {
		return nil
	}
	var out []ClientRef
	for _, c := range clients {
		name := textnorm.Normalize(c.Name)
		if name != "" && strings.Contains(haystack, name) {
			out = append(out, c)
		}
	}
	return out
}

// nonNil keeps empty results encoded as [] instead of null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
