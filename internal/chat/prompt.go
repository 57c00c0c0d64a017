package chat

import (
	"fmt"
	"strings"
	"time"

	"invagro/internal/ai"
)

const (
	historyWindow     = 8
	summaryEvery      = 6
	summaryMinimum    = 12
	summaryCharBudget = 1500
)

func systemPrompt(company string, now time.Time) string {
	return fmt.Sprintf(`Eres el asistente de análisis de ventas de %s. Fecha actual: %s.
Responde siempre en español y de forma breve.
Usa únicamente las herramientas disponibles para consultar datos; nunca inventes cifras.
Si la pregunta es ambigua (cliente, periodo o métrica), pide una aclaración en lugar de suponer.
Nunca intentes crear, modificar ni eliminar información: solo tienes acceso de lectura.
Las fechas se expresan como AAAA-MM-DD y un rango no puede superar 730 días.
Si el usuario menciona un cliente por nombre y no conoces su id, envía cliente_id como null.`,
		company, now.Format("2006-01-02"))
}

const synthesisPrompt = `Eres un analista de ventas. Explica en una o dos frases el criterio del análisis y luego presenta el resultado.
Usa montos en lempiras con el formato L 1,234.50. No agregues datos que no estén en el resultado.
Si el resultado está vacío, dilo claramente.`

const summaryPrompt = `Resume la siguiente conversación en 3 a 5 viñetas breves en español.
Conserva clientes, productos, fechas y cifras mencionadas. No agregues información nueva.`

// buildPrompt assembles system prompt, summary, history and the new message.
func buildPrompt(company string, now time.Time, summary string, history []Message, message string) []ai.Message {
	msgs := make([]ai.Message, 0, len(history)+3)
	msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: systemPrompt(company, now)})
	if summary != "" {
		msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: "Resumen de la conversación anterior:\n" + summary})
	}
	for _, m := range history {
		msgs = append(msgs, ai.Message{Role: m.Role, Content: m.Content})
	}
	return append(msgs, ai.Message{Role: ai.RoleUser, Content: message})
}

func transcript(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		label := "Usuario"
		if m.Role == ai.RoleAssistant {
			label = "Asistente"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
