package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"invagro/internal/app"

	"github.com/google/uuid"
)

var errExit = errors.New("exit")

// session holds the state of one interactive terminal session.
type session struct {
	ctx      context.Context
	svc      app.ApplicationService
	reader   *bufio.Reader
	out      io.Writer
	username string
	chatID   string
}

// Run starts the interactive REPL loop.
// Slash commands are dispatched deterministically; any other input is sent to
// the sales assistant within a single conversation session.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer, username string) {
	s := &session{
		ctx:      ctx,
		svc:      svc,
		reader:   reader,
		out:      out,
		username: username,
		chatID:   uuid.NewString(),
	}

	fmt.Fprintln(out, "Invagro")
	fmt.Fprintf(out, "Usuario: %s\n", username)
	fmt.Fprintln(out, "Haga una pregunta sobre ventas o use /ayuda para ver los comandos.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(out, "\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				return
			}
			continue
		}

		if strings.HasPrefix(input, "/") {
			if derr := s.dispatch(input); derr != nil {
				if errors.Is(derr, errExit) {
					fmt.Fprintln(out, "¡Hasta luego!")
					return
				}
				fmt.Fprintf(out, "Error: %v\n", derr)
			}
		} else {
			s.ask(input)
		}
		if err != nil {
			return
		}
	}
}

func (s *session) ask(message string) {
	fmt.Fprintln(s.out, "[IA] Procesando...")
	res, err := s.svc.Chat(s.ctx, app.ChatRequest{
		SessionID: s.chatID,
		Username:  s.username,
		Message:   message,
	})
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "\n%s\n", res.Reply)
}

func (s *session) dispatch(input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]
	ctx, out, svc := s.ctx, s.out, s.svc

	switch cmd {
	case "clientes":
		result, err := svc.ListClients(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		printClients(out, result)

	case "productos":
		result, err := svc.ListProducts(ctx, len(args) > 0 && args[0] == "todos")
		if err != nil {
			return err
		}
		printProducts(out, result)

	case "pedidos":
		var status *string
		if len(args) > 0 {
			st := strings.ToLower(args[0])
			status = &st
		}
		result, err := svc.ListOrders(ctx, status)
		if err != nil {
			return err
		}
		printOrders(out, result)

	case "facturas":
		result, err := svc.ListInvoices(ctx, app.ListInvoicesRequest{Limit: 20})
		if err != nil {
			return err
		}
		printInvoices(out, result)

	case "factura":
		id, ok := s.idArg(args, "/factura <id>")
		if !ok {
			return nil
		}
		result, err := svc.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		printInvoiceDetail(out, result.Invoice)

	case "cxc":
		result, err := svc.ListReceivables(ctx)
		if err != nil {
			return err
		}
		printReceivables(out, result)

	case "nuevo-pedido":
		id, ok := s.idArg(args, "/nuevo-pedido <cliente-id>")
		if !ok {
			return nil
		}
		return s.newOrder(id)

	case "entregar":
		id, ok := s.idArg(args, "/entregar <pedido-id>")
		if !ok {
			return nil
		}
		result, err := svc.DeliverOrder(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pedido %s ENTREGADO.\n", result.Order.Number)

	case "cancelar":
		id, ok := s.idArg(args, "/cancelar <pedido-id>")
		if !ok {
			return nil
		}
		result, err := svc.CancelOrder(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pedido %s CANCELADO.\n", result.Order.Number)

	case "panel":
		stats, err := svc.GetDashboard(ctx)
		if err != nil {
			return err
		}
		printDashboard(out, stats)

	case "ventas":
		from, to := "", ""
		if len(args) >= 2 {
			from, to = args[0], args[1]
		}
		rep, err := svc.GetSalesReport(ctx, from, to)
		if err != nil {
			return err
		}
		printSalesReport(out, rep)

	case "rango":
		result, err := svc.GetInvoiceSettings(ctx)
		if err != nil {
			return err
		}
		printRange(out, result)

	case "limpiar":
		s.chatID = uuid.NewString()
		fmt.Fprintln(out, "Conversación reiniciada.")

	case "ayuda", "help", "h":
		printHelp(out)

	case "salir", "exit", "quit", "q":
		return errExit

	default:
		fmt.Fprintf(out, "Comando desconocido: /%s  (escriba /ayuda)\n", cmd)
	}
	return nil
}

func (s *session) idArg(args []string, usage string) (int, bool) {
	if len(args) < 1 {
		fmt.Fprintf(s.out, "Uso: %s\n", usage)
		return 0, false
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		fmt.Fprintf(s.out, "ID inválido: %s\n", args[0])
		return 0, false
	}
	return id, true
}
