package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CatalogService manages the client, product and category master data.
type CatalogService interface {
	ListClients(ctx context.Context, search string) ([]Client, error)
	GetClient(ctx context.Context, id int) (*Client, error)
	CreateClient(ctx context.Context, in CreateClientInput) (*Client, error)

	ListProducts(ctx context.Context, includeInactive bool) ([]Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error)

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name, description string) (*Category, error)
}

type CreateClientInput struct {
	Name    string `json:"name"`
	RTNDNI  string `json:"rtn_dni"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type CreateProductInput struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	CategoryID    *int            `json:"category_id"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	TaxApplicable bool            `json:"tax_applicable"`
	Stock         int             `json:"stock"`
}

type catalogService struct {
	pool *pgxpool.Pool
}

func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

const clientColumns = `id, name, rtn_dni, address, phone, email, created_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(&c.ID, &c.Name, &c.RTNDNI, &c.Address, &c.Phone, &c.Email, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ── Clients ──────────────────────────────────────────────────────────────────

func (s *catalogService) ListClients(ctx context.Context, search string) ([]Client, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR rtn_dni ILIKE '%' || $1 || '%'
		ORDER BY name
	`, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (s *catalogService) GetClient(ctx context.Context, id int) (*Client, error) {
	c, err := scanClient(s.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get client %d: %w", id, err)
	}
	return c, nil
}

func (s *catalogService) CreateClient(ctx context.Context, in CreateClientInput) (*Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Err: errors.New("el nombre del cliente es obligatorio")}
	}
	var rtn *string
	if v := strings.TrimSpace(in.RTNDNI); v != "" {
		rtn = &v
	}

	c, err := scanClient(s.pool.QueryRow(ctx, `
		INSERT INTO clients (name, rtn_dni, address, phone, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+clientColumns,
		name, rtn, in.Address, in.Phone, in.Email,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, invalid(ErrDuplicate, "RTN/DNI %s", *rtn)
		}
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

// ── Products ─────────────────────────────────────────────────────────────────

const productSelect = `
	SELECT p.id, p.code, p.name, p.category_id, COALESCE(c.name, ''), p.description,
	       p.price, p.tax_applicable, p.stock, p.is_active, p.created_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.CategoryID, &p.CategoryName, &p.Description,
		&p.Price, &p.TaxApplicable, &p.Stock, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *catalogService) ListProducts(ctx context.Context, includeInactive bool) ([]Product, error) {
	rows, err := s.pool.Query(ctx, productSelect+`
		WHERE p.is_active OR $1
		ORDER BY p.code
	`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *catalogService) GetProduct(ctx context.Context, id int) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return p, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, &ValidationError{Err: errors.New("código y nombre del producto son obligatorios")}
	}
	if in.Price.IsNegative() {
		return nil, &ValidationError{Err: errors.New("el precio no puede ser negativo")}
	}

	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (code, name, category_id, description, price, tax_applicable, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, code, name, in.CategoryID, in.Description, in.Price.Round(2), in.TaxApplicable, in.Stock).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, invalid(ErrDuplicate, "código %s", code)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return s.GetProduct(ctx, id)
}

// loadProducts fetches the active products referenced by items, keyed by id.
// Missing or inactive products are simply absent; the calculator reports them.
func loadProducts(ctx context.Context, q pgxQuerier, items []LineItem) (map[int]Product, error) {
	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	rows, err := q.Query(ctx, productSelect+` WHERE p.id = ANY($1) AND p.is_active`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	defer rows.Close()

	out := make(map[int]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out[p.ID] = *p
	}
	return out, rows.Err()
}

// ── Categories ───────────────────────────────────────────────────────────────

func (s *catalogService) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *catalogService) CreateCategory(ctx context.Context, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Err: errors.New("el nombre de la categoría es obligatorio")}
	}
	c := Category{Name: name, Description: description}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id`,
		name, description,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, invalid(ErrDuplicate, "categoría %s", name)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &c, nil
}
