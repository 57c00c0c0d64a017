// Package seed loads the default admin user and the sample catalog.
// Every insert is idempotent, so running it twice changes nothing.
package seed

import (
	"context"
	"fmt"

	"invagro/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DefaultAdminPassword is used when no password is supplied.
const DefaultAdminPassword = "invagro2024"

// Summary counts the rows actually inserted.
type Summary struct {
	AdminCreated bool
	Categories   int
	Products     int
	Clients      int
}

type category struct{ name, description string }

type product struct {
	code, name, category, description string
	price                             string
	taxable                           bool
	stock                             int
}

type client struct{ name, rtn, address, phone, email string }

var categories = []category{
	{"veterinario", "Medicamentos y suplementos veterinarios"},
	{"shampoo", "Shampoos y productos de higiene animal"},
}

var products = []product{
	{"SHMP001", "Shampoo Antipulgas Premium", "shampoo", "Shampoo antipulgas de alta calidad para perros", "45.00", true, 50},
	{"SHMP002", "Shampoo Hipoalergénico", "shampoo", "Shampoo especial para pieles sensibles", "38.00", true, 30},
	{"VET001", "Vitaminas Caninas", "veterinario", "Suplemento vitamínico completo", "65.00", false, 40},
	{"VET002", "Desparasitante Interno", "veterinario", "Desparasitante de amplio espectro", "55.00", false, 60},
}

var clients = []client{
	{"Veterinaria San Francisco", "08019012345678", "Col. Palmira, Tegucigalpa", "2234-5678", "ventas@vetsanfrancisco.hn"},
	{"Pet Shop Los Cachorros", "05019098765432", "Barrio Guamilito, San Pedro Sula", "2550-8765", "info@loscachorros.hn"},
	{"Juan Pérez García", "0801199012345", "Col. Kennedy, Tegucigalpa", "9876-5432", "juan.perez@email.com"},
}

// Run inserts the admin user, categories, products and clients in one transaction.
func Run(ctx context.Context, pool *pgxpool.Pool, adminPassword string, logger *zap.Logger) (*Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adminPassword == "" {
		adminPassword = DefaultAdminPassword
	}
	hash, err := core.HashPassword(adminPassword)
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sum := &Summary{}

	tag, err := tx.Exec(ctx, `
		INSERT INTO users (username, password_hash, full_name, email, role)
		VALUES ('admin', $1, 'Administrador Invagro', 'admin@invagro.hn', $2)
		ON CONFLICT (username) DO NOTHING
	`, hash, core.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}
	sum.AdminCreated = tag.RowsAffected() == 1

	for _, c := range categories {
		n, err := execCount(ctx, tx, `
			INSERT INTO categories (name, description) VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, c.name, c.description)
		if err != nil {
			return nil, fmt.Errorf("failed to seed category %s: %w", c.name, err)
		}
		sum.Categories += n
	}

	for _, p := range products {
		n, err := execCount(ctx, tx, `
			INSERT INTO products (code, name, category_id, description, price, tax_applicable, stock)
			SELECT $1, $2, c.id, $4, $5::numeric, $6, $7
			FROM categories c WHERE c.name = $3
			ON CONFLICT (code) DO NOTHING
		`, p.code, p.name, p.category, p.description, p.price, p.taxable, p.stock)
		if err != nil {
			return nil, fmt.Errorf("failed to seed product %s: %w", p.code, err)
		}
		sum.Products += n
	}

	for _, c := range clients {
		n, err := execCount(ctx, tx, `
			INSERT INTO clients (name, rtn_dni, address, phone, email)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (rtn_dni) DO NOTHING
		`, c.name, c.rtn, c.address, c.phone, c.email)
		if err != nil {
			return nil, fmt.Errorf("failed to seed client %s: %w", c.name, err)
		}
		sum.Clients += n
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit seed: %w", err)
	}

	logger.Info("seed applied",
		zap.Bool("admin_created", sum.AdminCreated),
		zap.Int("categories", sum.Categories),
		zap.Int("products", sum.Products),
		zap.Int("clients", sum.Clients),
	)
	return sum, nil
}

func execCount(ctx context.Context, tx pgx.Tx, sql string, args ...any) (int, error) {
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
