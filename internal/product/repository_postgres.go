package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/wichananm65/zynapse-backend/internal/apperror"
	"github.com/wichananm65/zynapse-backend/internal/logger"
)

type PostgresRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

const (
	productColumns = `id, name, description, price, stock, link, category, created_at, updated_at`

	listProductsQuery = `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY id
	`
	listProductsByCategoryQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE lower(category) = lower($1)
		ORDER BY id
	`
	getProductByIDQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1
	`
	getProductsByIDsQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1::int[])
	`
	randomProductQuery = `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = '' OR lower(category) = lower($1))
		ORDER BY random()
		LIMIT 1
	`
	listCategoriesQuery = `
		SELECT DISTINCT category
		FROM products
		WHERE category <> ''
		ORDER BY category
	`
	insertProductQuery = `
		INSERT INTO products (name, description, price, stock, link, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + productColumns
	updateProductQuery = `
		UPDATE products
		SET name = $1,
			description = $2,
			price = $3,
			stock = $4,
			link = $5,
			category = $6,
			updated_at = $7
		WHERE id = $8
		RETURNING ` + productColumns
	deleteProductQuery = `
		DELETE FROM products
		WHERE id = $1
		RETURNING ` + productColumns
)

func NewPostgresRepository(db *sql.DB, l *zap.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, logger: logger.Named(l, "product.repository")}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ScanProduct reads the columns listed in productColumns, in order.
func ScanProduct(row rowScanner) (Product, error) {
	var (
		p    Product
		link sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &link, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	if link.Valid && link.String != "" {
		p.Link = &link.String
	}
	return p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (Product, error) {
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, insertProductQuery, p.Name, p.Description, p.Price, p.Stock, nullString(p.Link), p.Category, now)
	created, err := ScanProduct(row)
	if err != nil {
		return Product{}, r.fail("Create", msgDBUpdateFailed, err)
	}
	return created, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	return r.query(ctx, "List", listProductsQuery)
}

func (r *PostgresRepository) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	return r.query(ctx, "ListByCategory", listProductsByCategoryQuery, category)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Product, error) {
	p, err := ScanProduct(r.db.QueryRowContext(ctx, getProductByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, r.fail("GetByID", msgDBReadFailed, err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []int) (map[int]Product, error) {
	out := make(map[int]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	products, err := r.query(ctx, "GetByIDs", getProductsByIDsQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *PostgresRepository) Random(ctx context.Context, category string) (Product, error) {
	p, err := ScanProduct(r.db.QueryRowContext(ctx, randomProductQuery, category))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if category != "" {
				return Product{}, noProductsForCategory(category)
			}
			return Product{}, ErrNoProducts
		}
		return Product{}, r.fail("Random", msgDBReadFailed, err)
	}
	return p, nil
}

func (r *PostgresRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listCategoriesQuery)
	if err != nil {
		return nil, r.fail("Categories", msgDBReadFailed, err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, r.fail("Categories", msgDBReadFailed, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("Categories", msgDBReadFailed, err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int, p Product) (Product, error) {
	row := r.db.QueryRowContext(ctx, updateProductQuery, p.Name, p.Description, p.Price, p.Stock, nullString(p.Link), p.Category, time.Now().UTC(), id)
	updated, err := ScanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, r.fail("Update", msgDBUpdateFailed, err)
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) (Product, error) {
	deleted, err := ScanProduct(r.db.QueryRowContext(ctx, deleteProductQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, r.fail("Delete", msgDBUpdateFailed, err)
	}
	return deleted, nil
}

func (r *PostgresRepository) query(ctx context.Context, op, q string, args ...any) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, r.fail(op, msgDBReadFailed, err)
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := ScanProduct(rows)
		if err != nil {
			return nil, r.fail(op, msgDBReadFailed, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail(op, msgDBReadFailed, err)
	}
	return out, nil
}

// fail logs a storage error and converts it into a generic internal failure.
func (r *PostgresRepository) fail(op, message string, err error) error {
	r.logger.Error("product storage failure", zap.String("op", op), zap.Error(err))
	return apperror.Internal(message, fmt.Errorf("product.%s: %w", op, err))
}
