package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wichananm65/zynapse-backend/internal/apperror"
	"github.com/wichananm65/zynapse-backend/internal/logger"
	"github.com/wichananm65/zynapse-backend/internal/product"
)

type PostgresRepository struct {
	db       *sql.DB
	products ProductLookup
	logger   *zap.Logger
}

const (
	ensureCartQuery = `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at, updated_at
	`
	listItemsQuery = `
		SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY id
	`
	// addItemQuery inserts or merges a line only while the merged quantity
	// stays within stock. Zero affected rows means the guard failed or the
	// product does not exist.
	addItemQuery = `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		SELECT $1, p.id, $3
		FROM products p
		WHERE p.id = $2 AND p.stock >= $3
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity,
			updated_at = now()
		WHERE cart_items.quantity + EXCLUDED.quantity <= (
			SELECT stock FROM products WHERE id = EXCLUDED.product_id
		)
	`
	productStockQuery = `
		SELECT stock FROM products WHERE id = $1
	`
	lockItemQuery = `
		SELECT ci.id, ci.cart_id, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = $1 AND c.user_id = $2
		FOR UPDATE OF ci
	`
	setQuantityQuery = `
		UPDATE cart_items
		SET quantity = $1, updated_at = now()
		WHERE id = $2
			AND $1 <= (SELECT stock FROM products WHERE id = cart_items.product_id)
	`
	decrementQuery = `
		UPDATE cart_items
		SET quantity = quantity - $1, updated_at = now()
		WHERE id = $2
	`
	deleteItemQuery = `
		DELETE FROM cart_items WHERE id = $1
	`
	clearItemsQuery = `
		DELETE FROM cart_items WHERE cart_id = $1
	`
	touchCartQuery = `
		UPDATE carts SET updated_at = now() WHERE id = $1
	`
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewPostgresRepository(db *sql.DB, products ProductLookup, l *zap.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, products: products, logger: logger.Named(l, "cart.repository")}
}

func (r *PostgresRepository) GetCart(ctx context.Context, userID string) (Cart, error) {
	c, err := r.ensureCart(ctx, r.db, userID)
	if err != nil {
		return Cart{}, r.fail("GetCart", msgDBReadFailed, err)
	}
	items, err := r.listItems(ctx, r.db, c.ID)
	if err != nil {
		return Cart{}, r.fail("GetCart", msgDBReadFailed, err)
	}
	c.Items = items
	return r.hydrate(ctx, c)
}

func (r *PostgresRepository) AddItemToCart(ctx context.Context, userID string, productID, qty int) (Cart, error) {
	err := r.withTx(ctx, "AddItemToCart", func(tx *sql.Tx) error {
		c, err := r.ensureCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, addItemQuery, c.ID, productID, qty)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var stock int
			if err := tx.QueryRowContext(ctx, productStockQuery, productID).Scan(&stock); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return product.ErrNotFound
				}
				return err
			}
			return ErrInsufficientStock
		}
		_, err = tx.ExecContext(ctx, touchCartQuery, c.ID)
		return err
	})
	if err != nil {
		return Cart{}, err
	}
	return r.GetCart(ctx, userID)
}

func (r *PostgresRepository) UpdateItemQuantity(ctx context.Context, userID string, itemID, qty int) (Cart, error) {
	err := r.withTx(ctx, "UpdateItemQuantity", func(tx *sql.Tx) error {
		cartID, _, err := r.lockItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if qty <= 0 {
			if _, err := tx.ExecContext(ctx, deleteItemQuery, itemID); err != nil {
				return err
			}
		} else {
			res, err := tx.ExecContext(ctx, setQuantityQuery, qty, itemID)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrInsufficientStock
			}
		}
		_, err = tx.ExecContext(ctx, touchCartQuery, cartID)
		return err
	})
	if err != nil {
		return Cart{}, err
	}
	return r.GetCart(ctx, userID)
}

func (r *PostgresRepository) RemoveItemFromCart(ctx context.Context, userID string, itemID, qty int) (Cart, error) {
	err := r.withTx(ctx, "RemoveItemFromCart", func(tx *sql.Tx) error {
		cartID, current, err := r.lockItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if qty >= current {
			_, err = tx.ExecContext(ctx, deleteItemQuery, itemID)
		} else {
			_, err = tx.ExecContext(ctx, decrementQuery, qty, itemID)
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, touchCartQuery, cartID)
		return err
	})
	if err != nil {
		return Cart{}, err
	}
	return r.GetCart(ctx, userID)
}

func (r *PostgresRepository) ClearCart(ctx context.Context, userID string) (Cart, error) {
	err := r.withTx(ctx, "ClearCart", func(tx *sql.Tx) error {
		c, err := r.ensureCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, clearItemsQuery, c.ID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, touchCartQuery, c.ID)
		return err
	})
	if err != nil {
		return Cart{}, err
	}
	return r.GetCart(ctx, userID)
}

// withTx runs fn in a transaction. Errors already classified by this
// package or the catalog pass through; anything else is a storage failure.
func (r *PostgresRepository) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return r.fail(op, msgDBUpdateFailed, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrItemNotFound) || errors.Is(err, product.ErrNotFound) {
			return err
		}
		return r.fail(op, msgDBUpdateFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return r.fail(op, msgDBUpdateFailed, err)
	}
	return nil
}

func (r *PostgresRepository) ensureCart(ctx context.Context, q querier, userID string) (Cart, error) {
	var c Cart
	err := q.QueryRowContext(ctx, ensureCartQuery, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// lockItem locks the user's line for the rest of the transaction and returns
// its cart id and current quantity.
func (r *PostgresRepository) lockItem(ctx context.Context, tx *sql.Tx, userID string, itemID int) (int, int, error) {
	var id, cartID, qty int
	if err := tx.QueryRowContext(ctx, lockItemQuery, itemID, userID).Scan(&id, &cartID, &qty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ErrItemNotFound
		}
		return 0, 0, err
	}
	return cartID, qty, nil
}

func (r *PostgresRepository) listItems(ctx context.Context, q querier, cartID int) ([]Item, error) {
	rows, err := q.QueryContext(ctx, listItemsQuery, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) hydrate(ctx context.Context, c Cart) (Cart, error) {
	if len(c.Items) == 0 {
		return c, nil
	}
	ids := make([]int, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := r.products.GetByIDs(ctx, ids)
	if err != nil {
		return Cart{}, err
	}
	items := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		it.Product = p
		items = append(items, it)
	}
	c.Items = items
	return c, nil
}

func (r *PostgresRepository) fail(op, message string, err error) error {
	r.logger.Error("cart storage failure", zap.String("op", op), zap.Error(err))
	return apperror.Internal(message, fmt.Errorf("cart.%s: %w", op, err))
}
