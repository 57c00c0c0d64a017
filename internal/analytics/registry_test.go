package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	clients  []ClientRef
	products []ProductRow
	audits   []AuditEntry

	gotLimit    int
	gotClientID *int
	gotCutoff   time.Time
	auditErr    error
}

func (f *fakeStore) TopProducts(_ context.Context, _, _ time.Time, clientID *int, limit int) ([]ProductRow, error) {
	f.gotLimit, f.gotClientID = limit, clientID
	return f.products, nil
}

func (f *fakeStore) InactiveClients(_ context.Context, cutoff time.Time, limit int) ([]InactiveClientRow, error) {
	f.gotCutoff, f.gotLimit = cutoff, limit
	return nil, nil
}

func (f *fakeStore) ClientPurchases(_ context.Context, clientID int, _, _ time.Time) (*ClientPurchasesRow, error) {
	f.gotClientID = &clientID
	return &ClientPurchasesRow{ClientID: clientID, ClientName: "Ana López", Lines: 1, QtyTotal: 3, Total: decimal.RequireFromString("34.50")}, nil
}

func (f *fakeStore) DecreasedProducts(_ context.Context, clientID, _, _, limit int) ([]DecreasedProductRow, error) {
	f.gotClientID, f.gotLimit = &clientID, limit
	return nil, nil
}

func (f *fakeStore) Clients(context.Context) ([]ClientRef, error) { return f.clients, nil }

func (f *fakeStore) RecordAudit(_ context.Context, e AuditEntry) error {
	f.audits = append(f.audits, e)
	return f.auditErr
}

func newTestRegistry(store *fakeStore) *Registry {
	r := NewRegistry(store, nil, nil)
	r.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestDefinitions_StrictSchemas(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 5)

	for _, d := range defs {
		t.Run(string(d.Name), func(t *testing.T) {
			assert.Equal(t, false, d.Schema["additionalProperties"])
			assert.NotContains(t, d.Schema, "$schema")
			props, ok := d.Schema["properties"].(map[string]any)
			require.True(t, ok)
			assert.Len(t, d.required, len(props), "every property must be required")
		})
	}
}

func TestEnsureDateRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, EnsureDateRange(start, start), "0 days")
	assert.True(t, EnsureDateRange(start, start.AddDate(0, 0, 730)))
	assert.False(t, EnsureDateRange(start, start.AddDate(0, 0, 731)))
	assert.False(t, EnsureDateRange(start, start.AddDate(0, 0, -1)))
}

func TestDecode_RejectsNonConformingPayloads(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args string
	}{
		{"extra key", "clientes_inactivos", `{"dias": 30, "drop": true}`},
		{"missing key", "top_productos", `{"fecha_inicio": "2024-01-01", "fecha_fin": "2024-01-31"}`},
		{"wrong type", "clientes_inactivos", `{"dias": "treinta"}`},
		{"not an object", "clientes_inactivos", `[1]`},
		{"empty arguments", "clientes_inactivos", ``},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.tool, json.RawMessage(tc.args))
			var te *ToolError
			assert.True(t, errors.As(err, &te), "got %v", err)
		})
	}
}

func TestDecode_NullableLimit(t *testing.T) {
	p, err := Decode("top_productos", json.RawMessage(`{"fecha_inicio":"2024-01-01","fecha_fin":"2024-01-31","limite":null}`))
	require.NoError(t, err)
	top, ok := p.(TopProductosParams)
	require.True(t, ok)
	assert.Nil(t, top.Limite)
}

func TestExecute_UnknownToolNotPermitted(t *testing.T) {
	store := &fakeStore{}
	_, err := newTestRegistry(store).Execute(context.Background(), Call{}, "borrar_clientes", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrToolNotPermitted)
	assert.Empty(t, store.audits)
}

func TestExecute_ClientesInactivosDiasBounds(t *testing.T) {
	ctx := context.Background()
	for _, dias := range []int{0, 731} {
		store := &fakeStore{}
		_, err := newTestRegistry(store).Execute(ctx, Call{}, "clientes_inactivos", json.RawMessage(`{"dias":`+itoa(dias)+`}`))
		var te *ToolError
		assert.True(t, errors.As(err, &te), "dias=%d", dias)
		assert.Empty(t, store.audits)
	}

	store := &fakeStore{}
	res, err := newTestRegistry(store).Execute(ctx, Call{}, "clientes_inactivos", json.RawMessage(`{"dias":730}`))
	require.NoError(t, err)
	assert.Equal(t, ToolClientesInactivos, res.Tool)
	assert.Equal(t, MaxRows, store.gotLimit)
	assert.Equal(t, "2023-06-02", store.gotCutoff.Format(dateLayout))
	assert.Equal(t, []InactiveClientRow{}, res.Rows)
}

func TestExecute_TopProductosAuditsAndDefaultsLimit(t *testing.T) {
	store := &fakeStore{products: []ProductRow{
		{ProductID: 1, ProductName: "Desparasitante Interno", QtyTotal: 3, Total: decimal.RequireFromString("34.50")},
	}}
	call := Call{SessionID: "s1", Username: "admin", Question: "top enero"}

	res, err := newTestRegistry(store).Execute(context.Background(), call, "top_productos",
		json.RawMessage(`{"fecha_inicio":"2024-01-01","fecha_fin":"2024-01-31","limite":null}`))
	require.NoError(t, err)

	assert.Equal(t, DefaultLimit, store.gotLimit)
	assert.Nil(t, store.gotClientID)
	require.Equal(t, 1, res.RowCount)
	rows := res.Rows.([]ProductRow)
	assert.Equal(t, 3, rows[0].QtyTotal)
	assert.True(t, rows[0].Total.Equal(decimal.RequireFromString("34.50")))

	require.Len(t, store.audits, 1)
	a := store.audits[0]
	assert.Equal(t, ToolTopProductos, a.ToolName)
	assert.Equal(t, 1, a.RowsReturned)
	assert.Equal(t, "s1", a.SessionID)
	assert.JSONEq(t, `{"fecha_inicio":"2024-01-01","fecha_fin":"2024-01-31","limite":10}`, string(a.Params))
}

func TestExecute_AuditFailureDoesNotFailTool(t *testing.T) {
	store := &fakeStore{auditErr: errors.New("db down")}
	_, err := newTestRegistry(store).Execute(context.Background(), Call{}, "clientes_inactivos", json.RawMessage(`{"dias":30}`))
	assert.NoError(t, err)
}

func TestExecute_RangeAndLimitValidation(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"inverted range": `{"fecha_inicio":"2024-02-01","fecha_fin":"2024-01-01","limite":5}`,
		"range too long": `{"fecha_inicio":"2022-01-01","fecha_fin":"2024-01-31","limite":5}`,
		"bad date":       `{"fecha_inicio":"01/01/2024","fecha_fin":"2024-01-31","limite":5}`,
		"limit too high": `{"fecha_inicio":"2024-01-01","fecha_fin":"2024-01-31","limite":51}`,
		"limit zero":     `{"fecha_inicio":"2024-01-01","fecha_fin":"2024-01-31","limite":0}`,
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestRegistry(&fakeStore{}).Execute(ctx, Call{}, "top_productos", json.RawMessage(args))
			var te *ToolError
			assert.True(t, errors.As(err, &te), "got %v", err)
		})
	}
}

func TestExecute_ResolvesClientFromQuestion(t *testing.T) {
	store := &fakeStore{clients: []ClientRef{
		{ID: 1, Name: "Ana López"},
		{ID: 2, Name: "Veterinaria San Francisco"},
	}}
	call := Call{Question: "¿Cuánto compró ANA LOPEZ en enero?"}

	res, err := newTestRegistry(store).Execute(context.Background(), call, "compras_por_cliente",
		json.RawMessage(`{"cliente_id":null,"fecha_inicio":"2024-01-01","fecha_fin":"2024-01-31"}`))
	require.NoError(t, err)
	require.NotNil(t, store.gotClientID)
	assert.Equal(t, 1, *store.gotClientID)
	assert.Equal(t, 1, res.RowCount)
}

func TestExecute_AmbiguousOrUnknownClient(t *testing.T) {
	store := &fakeStore{clients: []ClientRef{
		{ID: 1, Name: "Ana"},
		{ID: 2, Name: "Ana López"},
	}}
	reg := newTestRegistry(store)
	args := json.RawMessage(`{"cliente_id":null,"year_actual":2024,"year_pasado":2023}`)

	_, err := reg.Execute(context.Background(), Call{Question: "qué dejó de comprar ana lópez"}, "productos_disminuidos", args)
	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Contains(t, te.Msg, "varios clientes")

	_, err = reg.Execute(context.Background(), Call{Question: "qué dejó de comprar pedro"}, "productos_disminuidos", args)
	require.True(t, errors.As(err, &te))
	assert.Contains(t, te.Msg, "No identifiqué")
}

func TestExecute_AmbiguousClientListsAtMostFive(t *testing.T) {
	tests := []struct {
		name    string
		matches int
		listed  int
		more    string
	}{
		{"two matches", 2, 2, ""},
		{"exactly five", 5, 5, ""},
		{"seven matches", 7, 5, "y 2 más"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			for i := 1; i <= tt.matches; i++ {
				store.clients = append(store.clients, ClientRef{ID: i, Name: "Agro"})
			}
			args := json.RawMessage(`{"cliente_id":null,"fecha_inicio":"2024-01-01","fecha_fin":"2024-01-31"}`)

			_, err := newTestRegistry(store).Execute(context.Background(), Call{Question: "compras de agro en enero"}, "compras_por_cliente", args)
			var te *ToolError
			require.True(t, errors.As(err, &te), "got %v", err)
			assert.Equal(t, tt.listed, strings.Count(te.Msg, "(id "), te.Msg)
			if tt.more != "" {
				assert.Contains(t, te.Msg, tt.more)
				assert.NotContains(t, te.Msg, "(id 6)")
			} else {
				assert.NotContains(t, te.Msg, "más")
			}
		})
	}
}

func TestExecute_ProductosDisminuidosYears(t *testing.T) {
	reg := newTestRegistry(&fakeStore{})
	for _, args := range []string{
		`{"cliente_id":1,"year_actual":2024,"year_pasado":2024}`,
		`{"cliente_id":1,"year_actual":2030,"year_pasado":2024}`,
	} {
		_, err := reg.Execute(context.Background(), Call{}, "productos_disminuidos", json.RawMessage(args))
		var te *ToolError
		assert.True(t, errors.As(err, &te), args)
	}
}

func TestMatchClients(t *testing.T) {
	clients := []ClientRef{{ID: 1, Name: "José Pérez"}, {ID: 2, Name: "Agroveterinaria El Campo"}}
	got := MatchClients(clients, "ventas de  jose   perez")
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)
	assert.Empty(t, MatchClients(clients, ""))
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
