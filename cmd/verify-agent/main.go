package main

import (
	"context"
	"fmt"
	"os"

	"invagro/internal/ai"
	"invagro/internal/analytics"
	"invagro/internal/config"
	"invagro/internal/logger"

	"go.uber.org/zap"
)

// Sends a trivial prompt, then a sample sales question with the analytics tool
// catalog attached, and prints which tool the model picks.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: "console"})
	defer log.Sync() //nolint:errcheck

	if !cfg.LLMEnabled() {
		log.Fatal("OPENAI_API_KEY and OPENAI_MODEL must be set")
	}

	gateway := ai.NewGateway(ai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAI.Timeout,
	})
	ctx := context.Background()

	text, err := gateway.Ping(ctx)
	if err != nil {
		log.Fatal("ping failed", zap.Error(err))
	}
	fmt.Printf("MODEL: %s\nPING:  %s\n", gateway.Model(), text)

	var specs []ai.ToolSpec
	for _, d := range analytics.Definitions() {
		specs = append(specs, ai.ToolSpec{Name: string(d.Name), Description: d.Description, Parameters: d.Schema})
	}

	question := "¿Cuáles fueron los 5 productos más vendidos este mes?"
	fmt.Printf("\nQUESTION: %s\n", question)
	reply, err := gateway.Complete(ctx, ai.Request{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "Eres el asistente de ventas de Invagro. Usa una herramienta para responder."},
			{Role: ai.RoleUser, Content: question},
		},
		Tools: specs,
	})
	if err != nil {
		log.Fatal("tool dispatch failed", zap.Error(err))
	}
	if reply.ToolCall == nil {
		fmt.Printf("NO TOOL CALL, text reply: %s\n", reply.Text)
		os.Exit(1)
	}
	fmt.Printf("TOOL: %s\nARGS: %s\n", reply.ToolCall.Name, reply.ToolCall.Arguments)
}
