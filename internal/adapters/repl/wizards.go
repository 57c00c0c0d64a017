package repl

import (
	"fmt"
	"strconv"
	"strings"

	"invagro/internal/app"

	"github.com/shopspring/decimal"
)

// newOrder runs an interactive order creation session for clientID.
func (s *session) newOrder(clientID int) error {
	out := s.out
	fmt.Fprintf(out, "Nuevo pedido para el cliente #%d\n", clientID)
	fmt.Fprintln(out, "Ingrese las líneas. Escriba 'listo' para terminar o 'cancelar' para abortar.")
	fmt.Fprintln(out, "Formato: <producto-id> <cantidad> [descuento-unitario]")
	fmt.Fprintln(out, "  Ejemplo: 3 10")
	fmt.Fprintln(out, "  Ejemplo: 3 5 2.50")

	var lines []app.LineInput
	lineNum := 1
	for {
		fmt.Fprintf(out, "  Línea %d: ", lineNum)
		raw, err := s.reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		cmd := strings.ToLower(raw)
		if cmd == "cancelar" {
			fmt.Fprintln(out, "Pedido cancelado.")
			return nil
		}
		// EOF ends input the same way as 'listo'.
		if cmd == "listo" || (err != nil && raw == "") {
			break
		}
		if raw == "" {
			continue
		}

		line, perr := parseLine(raw)
		if perr != "" {
			fmt.Fprintf(out, "  %s\n", perr)
			continue
		}
		lines = append(lines, line)
		lineNum++
	}

	if len(lines) == 0 {
		fmt.Fprintln(out, "No se ingresaron líneas. Pedido no creado.")
		return nil
	}

	fmt.Fprint(out, "Fecha del pedido (YYYY-MM-DD, vacío para hoy): ")
	orderDate, _ := s.reader.ReadString('\n')

	fmt.Fprint(out, "Notas (opcional): ")
	notes, _ := s.reader.ReadString('\n')

	result, err := s.svc.CreateOrder(s.ctx, app.CreateOrderRequest{
		ClientID:  clientID,
		OrderDate: strings.TrimSpace(orderDate),
		Notes:     strings.TrimSpace(notes),
		Lines:     lines,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nPedido creado (ID: %d, estado: pendiente)\n", result.Order.ID)
	printOrderDetail(out, result.Order)
	fmt.Fprintln(out, "Use '/entregar <id>' cuando el pedido sea despachado.")
	return nil
}

// parseLine returns a line input or a user-facing message describing the problem.
func parseLine(raw string) (app.LineInput, string) {
	parts := strings.Fields(raw)
	if len(parts) < 2 {
		return app.LineInput{}, "Formato inválido. Use: <producto-id> <cantidad> [descuento-unitario]"
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil || id <= 0 {
		return app.LineInput{}, "Producto inválido."
	}
	qty, err := strconv.Atoi(parts[1])
	if err != nil || qty <= 0 {
		return app.LineInput{}, "Cantidad inválida."
	}
	discount := decimal.Zero
	if len(parts) >= 3 {
		discount, err = decimal.NewFromString(parts[2])
		if err != nil || discount.IsNegative() {
			return app.LineInput{}, "Descuento inválido."
		}
	}
	return app.LineInput{ProductID: id, Quantity: qty, UnitDiscount: discount}, ""
}
