package chat

import (
	"testing"
	"time"

	"invagro/internal/analytics"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)

func TestDetectsMutation(t *testing.T) {
	blocked := []string{"Elimina el cliente", "ELIMÍNALO", "borra todo", "Modifica el precio", "actualiza stock", "Agrega un producto", "please DELETE it", "update clients"}
	for _, m := range blocked {
		assert.True(t, DetectsMutation(m), m)
	}
	allowed := []string{"¿Qué productos se vendieron más en enero?", "clientes inactivos 90 días", "compras de Ana en 2024", "productos disminuidos"}
	for _, m := range allowed {
		assert.False(t, DetectsMutation(m), m)
	}
}

func TestSelectFallback(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    analytics.Params
	}{
		{
			name:    "decreased products with years",
			message: "¿Qué productos disminuyó Ana en 2024 respecto a 2023?",
			want:    analytics.ProductosDisminuidosParams{YearActual: 2024, YearPasado: 2023},
		},
		{
			name:    "decreased products default years",
			message: "qué dejó de comprar la veterinaria",
			want:    analytics.ProductosDisminuidosParams{YearActual: 2024, YearPasado: 2023},
		},
		{
			name:    "inactive clients with days",
			message: "Clientes inactivos hace 45 días",
			want:    analytics.ClientesInactivosParams{Dias: 45},
		},
		{
			name:    "inactive clients in months",
			message: "clientes sin compras en 3 meses",
			want:    analytics.ClientesInactivosParams{Dias: 90},
		},
		{
			name:    "inactive clients default",
			message: "clientes inactivos",
			want:    analytics.ClientesInactivosParams{Dias: 90},
		},
		{
			name:    "products by client in month",
			message: "productos del cliente Ana en marzo 2023",
			want:    analytics.ProductosPorClienteParams{FechaInicio: "2023-03-01", FechaFin: "2023-03-31"},
		},
		{
			name:    "purchases with iso dates",
			message: "compras de Ana entre 2024-01-31 y 2024-01-01",
			want:    analytics.ComprasPorClienteParams{FechaInicio: "2024-01-01", FechaFin: "2024-01-31"},
		},
		{
			name:    "top products by year",
			message: "lo más vendido en 2023",
			want:    analytics.TopProductosParams{FechaInicio: "2023-01-01", FechaFin: "2023-12-31"},
		},
		{
			name:    "most bought products with limit",
			message: "top 5 productos más comprados este año",
			want:    analytics.TopProductosParams{FechaInicio: "2024-01-16", FechaFin: "2024-02-15", Limite: intPtr(5)},
		},
		{
			name:    "most bought products in month",
			message: "¿Cuáles fueron los productos más comprados en enero 2024?",
			want:    analytics.TopProductosParams{FechaInicio: "2024-01-01", FechaFin: "2024-01-31"},
		},
		{
			name:    "products sold in year",
			message: "productos vendidos en 2023",
			want:    analytics.TopProductosParams{FechaInicio: "2023-01-01", FechaFin: "2023-12-31"},
		},
		{
			name:    "purchases of a named client",
			message: "¿cuánto compró la Veterinaria San Francisco en 2023?",
			want:    analytics.ComprasPorClienteParams{FechaInicio: "2023-01-01", FechaFin: "2023-12-31"},
		},
		{
			name:    "top products default range",
			message: "top productos",
			want:    analytics.TopProductosParams{FechaInicio: "2024-01-16", FechaFin: "2024-02-15"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SelectFallback(tc.message, fixedNow)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, m := range []string{"hola, ¿cómo estás?", "¿qué cliente compró más?"} {
		_, ok := SelectFallback(m, fixedNow)
		assert.False(t, ok, m)
	}
}

func intPtr(n int) *int { return &n }

func TestSelectFallback_Limit(t *testing.T) {
	got, ok := SelectFallback("top 5 de enero", fixedNow)
	require.True(t, ok)
	p := got.(analytics.TopProductosParams)
	require.NotNil(t, p.Limite)
	assert.Equal(t, 5, *p.Limite)
	assert.Equal(t, "2024-01-01", p.FechaInicio)
}

func TestFormatResult(t *testing.T) {
	last := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	res := &analytics.Result{
		Criterion: "Clientes sin compras.",
		RowCount:  2,
		Rows: []analytics.InactiveClientRow{
			{ClientID: 2, ClientName: "Finca El Roble"},
			{ClientID: 1, ClientName: "Ana", LastPurchase: &last},
		},
	}
	assert.Equal(t, "Clientes sin compras.\n• Finca El Roble: sin compras registradas\n• Ana: última compra 10/01/2024", FormatResult(res))

	empty := &analytics.Result{Criterion: "x", Rows: []analytics.ProductRow{}}
	assert.Equal(t, "x\n"+noResults, FormatResult(empty))

	dec := &analytics.Result{
		Params:   analytics.ProductosDisminuidosParams{YearActual: 2024, YearPasado: 2023},
		RowCount: 1,
		Rows: []analytics.DecreasedProductRow{{
			ProductName: "Vitaminas", QtyActual: 1, QtyPasado: 4,
			TotalActual: decimal.RequireFromString("65"), TotalPasado: decimal.RequireFromString("260"),
		}},
	}
	assert.Equal(t, "• Vitaminas: 1 unidades en 2024 frente a 4 en 2023 (L 65.00 frente a L 260.00)", FormatResult(dec))
}
