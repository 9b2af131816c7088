// Package cart keeps each buyer's product→quantity mapping.
//
// Cart rows hold no prices. Every summary joins against the live catalog,
// so a price change is visible on the next summary and only orders
// snapshot it.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/tg-storefront/internal/catalog"
	"github.com/01moynul/tg-storefront/internal/database"
	"github.com/01moynul/tg-storefront/internal/models"
)

// Store is the Cart Store.
type Store struct {
	db              *database.DB
	defaultCurrency string
	now             func() time.Time
}

// New creates a Store. defaultCurrency labels the total of an empty cart.
func New(db *database.DB, defaultCurrency string) *Store {
	return &Store{db: db, defaultCurrency: defaultCurrency, now: time.Now}
}

// Add increments the quantity of sku in the user's cart, creating the line
// at qty 1. Inactive or unknown skus fail with ErrProductUnavailable and a
// product in a different currency from the cart fails with
// ErrMixedCurrency. The cart is unchanged on failure.
func (s *Store) Add(ctx context.Context, userID int64, sku string) (*models.Product, error) {
	var product *models.Product

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. --- Resolve Product ---
		p, err := catalog.GetActiveWith(ctx, tx, sku)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("sku %s: %w", sku, models.ErrProductUnavailable)
		}
		if err != nil {
			return err
		}
		product = p

		// 2. --- Enforce Single Currency ---
		var current string
		err = tx.QueryRowContext(ctx, `
			SELECT p.currency FROM cart_items c
			JOIN products p ON p.sku = c.sku
			WHERE c.user_id = ? AND c.sku <> ?
			ORDER BY c.added_at ASC, c.sku ASC
			LIMIT 1`, userID, sku).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("failed to read cart currency: %w", err)
		case current != p.Currency:
			return fmt.Errorf("%w: cart holds %s, %s is priced in %s", models.ErrMixedCurrency, current, sku, p.Currency)
		}

		// 3. --- Increment ---
		d := s.db.Dialect
		query := "INSERT INTO cart_items (user_id, sku, qty, added_at) VALUES (?, ?, 1, ?) " +
			d.Upsert("user_id, sku", "qty = qty + 1")
		if _, err := tx.ExecContext(ctx, query, userID, sku, s.now().Unix()); err != nil {
			return fmt.Errorf("failed to add to cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Decrement lowers the quantity of sku by one and removes the line when it
// reaches zero. Decrementing a missing line is a no-op.
func (s *Store) Decrement(ctx context.Context, userID int64, sku string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE cart_items SET qty = qty - 1 WHERE user_id = ? AND sku = ?", userID, sku); err != nil {
			return fmt.Errorf("failed to decrement cart line: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM cart_items WHERE user_id = ? AND sku = ? AND qty <= 0", userID, sku); err != nil {
			return fmt.Errorf("failed to prune cart line: %w", err)
		}
		return nil
	})
}

// Summary joins the user's cart against the current catalog.
func (s *Store) Summary(ctx context.Context, userID int64) (models.CartSummary, error) {
	return s.SummaryWith(ctx, s.db, userID)
}

// SummaryWith is Summary through q, for use inside a transaction.
// Lines whose product later became inactive are kept; the join reads
// whatever the catalog currently says.
func (s *Store) SummaryWith(ctx context.Context, q database.Querier, userID int64) (models.CartSummary, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.sku, p.title, p.price, p.currency, c.qty
		FROM cart_items c
		JOIN products p ON p.sku = c.sku
		WHERE c.user_id = ?
		ORDER BY c.added_at ASC, c.sku ASC`, userID)
	if err != nil {
		return models.CartSummary{}, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	summary := models.CartSummary{Lines: []models.CartLine{}}
	for rows.Next() {
		var line models.CartLine
		if err := rows.Scan(&line.SKU, &line.Title, &line.Price, &line.Currency, &line.Qty); err != nil {
			return models.CartSummary{}, fmt.Errorf("failed to scan cart line: %w", err)
		}
		summary.Lines = append(summary.Lines, line)
		summary.Total += line.LineTotal()
	}
	if err := rows.Err(); err != nil {
		return models.CartSummary{}, fmt.Errorf("error iterating cart rows: %w", err)
	}

	summary.Currency = s.defaultCurrency
	if len(summary.Lines) > 0 {
		summary.Currency = summary.Lines[0].Currency
	}
	return summary, nil
}

// Clear removes every line of the user's cart. Clearing an empty cart
// succeeds.
func (s *Store) Clear(ctx context.Context, userID int64) error {
	return s.ClearWith(ctx, s.db, userID)
}

// ClearWith is Clear through q, for use inside a transaction.
func (s *Store) ClearWith(ctx context.Context, q database.Querier, userID int64) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
