// Package orders is the Order Ledger: the only place orders are written.
//
// Creation is a single transaction covering the order row, its item
// snapshots and, for cart checkouts, clearing the cart. The operator is
// notified only after commit and a failed notification never affects the
// order.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/01moynul/tg-storefront/internal/database"
	"github.com/01moynul/tg-storefront/internal/models"
)

// Notifier is the Notification Relay as seen by the ledger.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Ledger is the Order Ledger.
type Ledger struct {
	db       *database.DB
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	// Tracks in-flight notifications.
	wg sync.WaitGroup
}

// NewLedger creates a Ledger.
func NewLedger(db *database.DB, notifier Notifier, log *slog.Logger) *Ledger {
	return &Ledger{db: db, notifier: notifier, log: log, now: time.Now}
}

// Create writes a new order with status "new" from src's items. The total
// and currency are computed once here and never change afterwards.
func (l *Ledger) Create(ctx context.Context, buyer models.Buyer, delivery models.Delivery, src ItemSource) (*models.Order, error) {
	now := l.now()
	order := &models.Order{
		Buyer:     buyer,
		Delivery:  delivery.Trimmed(),
		Status:    models.StatusNew,
		Source:    src.source(),
		CreatedAt: time.Unix(now.Unix(), 0),
		UpdatedAt: time.Unix(now.Unix(), 0),
	}
	order.Buyer.Username = strings.TrimPrefix(buyer.Username, "@")

	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. --- Resolve Items ---
		items, currency, err := src.resolve(ctx, tx)
		if err != nil {
			return err
		}
		order.Currency = currency
		order.Total, err = models.OrderTotal(items)
		if err != nil {
			return err
		}

		// 2. --- Insert Order ---
		res, err := tx.ExecContext(ctx, `
			INSERT INTO orders (user_id, username, buyer_name, total, currency, city, branch, receiver, phone, status, source, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			order.Buyer.UserID, order.Buyer.Username, order.Buyer.Name,
			order.Total, order.Currency,
			order.Delivery.City, order.Delivery.Branch, order.Delivery.Receiver, order.Delivery.Phone,
			order.Status, order.Source, now.Unix(), now.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		order.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read order id: %w", err)
		}

		// 3. --- Insert Item Snapshots ---
		for _, it := range items {
			res, err := tx.ExecContext(ctx,
				"INSERT INTO order_items (order_id, sku, title, price, qty) VALUES (?, ?, ?, ?, ?)",
				order.ID, it.SKU, it.Title, it.Price, it.Qty)
			if err != nil {
				return fmt.Errorf("failed to insert order item %s: %w", it.SKU, err)
			}
			it.OrderID = order.ID
			it.ID, _ = res.LastInsertId()
			order.Items = append(order.Items, it)
		}

		// 4. --- Source Cleanup (cart clear) ---
		return src.finalize(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("order created",
		"order_id", order.ID, "user_id", order.Buyer.UserID,
		"total", order.Total, "currency", order.Currency, "source", order.Source)

	l.notify(ctx, NotificationText(order))
	return order, nil
}

// notify runs the relay detached from the request so a slow or failing
// channel never delays or fails the buyer's confirmation.
func (l *Ledger) notify(ctx context.Context, text string) {
	if l.notifier == nil {
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.notifier.Notify(context.WithoutCancel(ctx), text); err != nil {
			l.log.Warn("order notification not delivered", "error", err)
		}
	}()
}

// Wait blocks until every pending notification has finished.
func (l *Ledger) Wait() {
	l.wg.Wait()
}

// SetStatus moves an order to status. Any valid status may follow any
// other.
func (l *Ledger) SetStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	if _, err := models.ParseOrderStatus(string(status)); err != nil {
		return err
	}
	return l.update(ctx, id, "status", string(status))
}

// SetTracking stores the carrier tracking number, replacing any previous one.
func (l *Ledger) SetTracking(ctx context.Context, id int64, tracking string) error {
	tracking = strings.TrimSpace(tracking)
	if tracking == "" {
		return fmt.Errorf("%w: tracking number must not be empty", models.ErrValidation)
	}
	return l.update(ctx, id, "tracking_number", tracking)
}

// Get returns an order with its items.
func (l *Ledger) Get(ctx context.Context, id int64) (*models.Order, error) {
	// 1. --- Order Row ---
	o, err := scanOrder(l.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	// 2. --- Item Snapshots ---
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, order_id, sku, title, price, qty FROM order_items WHERE order_id = ? ORDER BY id ASC", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	o.Items = []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.SKU, &it.Title, &it.Price, &it.Qty); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return o, nil
}

// ListRecent returns the newest orders without items.
func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := l.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	list := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}

// update sets one mutable column. column is a constant from this file.
func (l *Ledger) update(ctx context.Context, id int64, column string, value any) error {
	res, err := l.db.ExecContext(ctx,
		"UPDATE orders SET "+column+" = ?, updated_at = ? WHERE id = ?", value, l.now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var one int
	err = l.db.QueryRowContext(ctx, "SELECT 1 FROM orders WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("order %d: %w", id, models.ErrNotFound)
	}
	return err
}

const orderColumns = "id, user_id, username, buyer_name, total, currency, city, branch, receiver, phone, status, tracking_number, source, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*models.Order, error) {
	var (
		o                    models.Order
		tracking             sql.NullString
		createdAt, updatedAt int64
	)
	err := s.Scan(&o.ID, &o.Buyer.UserID, &o.Buyer.Username, &o.Buyer.Name,
		&o.Total, &o.Currency,
		&o.Delivery.City, &o.Delivery.Branch, &o.Delivery.Receiver, &o.Delivery.Phone,
		&o.Status, &tracking, &o.Source, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if tracking.Valid {
		o.TrackingNumber = &tracking.String
	}
	o.CreatedAt = time.Unix(createdAt, 0)
	o.UpdatedAt = time.Unix(updatedAt, 0)
	return &o, nil
}
