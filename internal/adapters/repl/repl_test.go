package repl

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"invagro/internal/app"
	"invagro/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	app.ApplicationService
	sessions []string
	messages []string
	order    *app.CreateOrderRequest
}

func (f *fakeService) Chat(_ context.Context, req app.ChatRequest) (*app.ChatResult, error) {
	f.sessions = append(f.sessions, req.SessionID)
	f.messages = append(f.messages, req.Message)
	return &app.ChatResult{Reply: "respuesta"}, nil
}

func (f *fakeService) CreateOrder(_ context.Context, req app.CreateOrderRequest) (*app.OrderResult, error) {
	f.order = &req
	return &app.OrderResult{Order: &core.Order{
		ID:         5,
		Number:     "PED-000005",
		ClientName: "Juan Pérez García",
		Status:     core.OrderStatusPending,
		OrderDate:  time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC),
		Total:      decimal.RequireFromString("90"),
	}}, nil
}

func (f *fakeService) DeliverOrder(_ context.Context, id int) (*app.OrderResult, error) {
	return &app.OrderResult{Order: &core.Order{ID: id, Number: "PED-000005", Status: core.OrderStatusDelivered}}, nil
}

func run(t *testing.T, svc app.ApplicationService, input string) string {
	t.Helper()
	var out bytes.Buffer
	Run(context.Background(), svc, bufio.NewReader(strings.NewReader(input)), &out, "admin")
	return out.String()
}

func TestRun_FreeTextGoesToChat(t *testing.T) {
	svc := &fakeService{}
	out := run(t, svc, "top productos\n¿y el mes pasado?\n/salir\n")

	assert.Equal(t, []string{"top productos", "¿y el mes pasado?"}, svc.messages)
	require.Len(t, svc.sessions, 2)
	assert.Equal(t, svc.sessions[0], svc.sessions[1])
	assert.Contains(t, out, "respuesta")
	assert.Contains(t, out, "¡Hasta luego!")
}

func TestRun_ClearStartsNewSession(t *testing.T) {
	svc := &fakeService{}
	out := run(t, svc, "hola\n/limpiar\nhola\n")

	require.Len(t, svc.sessions, 2)
	assert.NotEqual(t, svc.sessions[0], svc.sessions[1])
	assert.Contains(t, out, "Conversación reiniciada.")
}

func TestRun_NewOrderWizard(t *testing.T) {
	svc := &fakeService{}
	out := run(t, svc, "/nuevo-pedido 3\n1 2\nx\n2 1 5.50\nlisto\n2024-03-18\nentregar en la tarde\n")

	require.NotNil(t, svc.order)
	assert.Equal(t, 3, svc.order.ClientID)
	assert.Equal(t, "2024-03-18", svc.order.OrderDate)
	assert.Equal(t, "entregar en la tarde", svc.order.Notes)
	require.Len(t, svc.order.Lines, 2)
	assert.Equal(t, app.LineInput{ProductID: 1, Quantity: 2, UnitDiscount: decimal.Zero}, svc.order.Lines[0])
	assert.True(t, svc.order.Lines[1].UnitDiscount.Equal(decimal.RequireFromString("5.50")))
	assert.Contains(t, out, "Formato inválido")
	assert.Contains(t, out, "PED-000005")
}

func TestRun_NewOrderCancelled(t *testing.T) {
	svc := &fakeService{}
	out := run(t, svc, "/nuevo-pedido 3\n1 2\ncancelar\n")

	assert.Nil(t, svc.order)
	assert.Contains(t, out, "Pedido cancelado.")
}

func TestRun_CommandArguments(t *testing.T) {
	out := run(t, &fakeService{}, "/entregar\n/entregar abc\n/entregar 5\n/desconocido\n")

	assert.Contains(t, out, "Uso: /entregar <pedido-id>")
	assert.Contains(t, out, "ID inválido: abc")
	assert.Contains(t, out, "Pedido PED-000005 ENTREGADO.")
	assert.Contains(t, out, "Comando desconocido: /desconocido")
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr string
	}{
		{"1 2", ""},
		{"1 2 0.5", ""},
		{"1", "Formato inválido. Use: <producto-id> <cantidad> [descuento-unitario]"},
		{"x 2", "Producto inválido."},
		{"1 0", "Cantidad inválida."},
		{"1 2 -1", "Descuento inválido."},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, msg := parseLine(tt.raw)
			assert.Equal(t, tt.wantErr, msg)
		})
	}
}
