package seed_test

import (
	"context"
	"os"
	"testing"

	"invagro/internal/core"
	"invagro/internal/seed"
	"invagro/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, migrations.Up(pool))

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE chat_audit, chat_summaries, chat_messages, chat_sessions,
			credit_payments, invoice_lines, invoices, order_lines, orders,
			invoice_sequences, document_sequences, company_settings,
			products, categories, clients, users RESTART IDENTITY CASCADE;
	`)
	require.NoError(t, err)

	t.Cleanup(pool.Close)
	return pool
}

func TestRun_IsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	first, err := seed.Run(ctx, pool, "", nil)
	require.NoError(t, err)
	assert.True(t, first.AdminCreated)
	assert.Equal(t, 2, first.Categories)
	assert.Equal(t, 4, first.Products)
	assert.Equal(t, 3, first.Clients)

	second, err := seed.Run(ctx, pool, "otra-clave", nil)
	require.NoError(t, err)
	assert.Equal(t, &seed.Summary{}, second)

	users := core.NewUserService(pool)
	admin, err := users.Authenticate(ctx, "admin", seed.DefaultAdminPassword)
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, admin.Role)
}
