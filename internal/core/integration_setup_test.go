package core_test

import (
	"context"
	"os"
	"testing"

	"invagro/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// setupTestDB connects to TEST_DATABASE_URL, applies the schema and reseeds a
// small catalog: clients 1-2, products 1 (taxed, 10.00) and 2 (untaxed, 65.00).
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := migrations.Up(pool); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE chat_audit, chat_summaries, chat_messages, chat_sessions,
			credit_payments, invoice_lines, invoices, order_lines, orders,
			invoice_sequences, document_sequences, company_settings,
			products, categories, clients, users RESTART IDENTITY CASCADE;

		INSERT INTO categories (id, name) VALUES (1, 'veterinario'), (2, 'shampoo');

		INSERT INTO clients (id, name, rtn_dni) VALUES
		(1, 'Ana López',                  '0801199000001'),
		(2, 'Veterinaria San Francisco', '0801199000002');

		INSERT INTO products (id, code, name, category_id, price, tax_applicable, stock) VALUES
		(1, 'VET002', 'Desparasitante Interno', 1, 10.00, true,  100),
		(2, 'VET001', 'Vitaminas Caninas',      1, 65.00, false, 100);

		SELECT setval('clients_id_seq', 2), setval('products_id_seq', 2), setval('categories_id_seq', 2);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}
