package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/01moynul/tg-storefront/internal/cart"
	"github.com/01moynul/tg-storefront/internal/catalog"
	"github.com/01moynul/tg-storefront/internal/models"
)

// ItemSource supplies the line items of a new order. Both steps run inside
// the order's transaction.
type ItemSource interface {
	// resolve snapshots the items and their shared currency.
	resolve(ctx context.Context, tx *sql.Tx) ([]models.OrderItem, string, error)
	// finalize runs after the order rows are written.
	finalize(ctx context.Context, tx *sql.Tx) error
	source() models.OrderSource
}

// FromCart orders the buyer's current cart and clears it in the same
// transaction.
func FromCart(carts *cart.Store, userID int64) ItemSource {
	return &cartSource{carts: carts, userID: userID}
}

type cartSource struct {
	carts  *cart.Store
	userID int64
}

func (s *cartSource) resolve(ctx context.Context, tx *sql.Tx) ([]models.OrderItem, string, error) {
	summary, err := s.carts.SummaryWith(ctx, tx, s.userID)
	if err != nil {
		return nil, "", err
	}
	if summary.Empty() {
		return nil, "", models.ErrEmptyCart
	}

	items := make([]models.OrderItem, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		items = append(items, models.OrderItem{
			SKU:   line.SKU,
			Title: line.Title,
			Price: line.Price,
			Qty:   line.Qty,
		})
	}
	return items, summary.Currency, nil
}

func (s *cartSource) finalize(ctx context.Context, tx *sql.Tx) error {
	return s.carts.ClearWith(ctx, tx, s.userID)
}

func (s *cartSource) source() models.OrderSource {
	return models.SourceDialogue
}

// FromSubmission orders an explicit list of sku/qty pairs. Every sku is
// re-resolved against the active catalog; missing, inactive and
// non-positive entries are dropped, as are quantities above
// models.MaxLineQty and entries priced in a different currency from the
// first surviving one.
func FromSubmission(lines []SubmissionItem) ItemSource {
	return &submissionSource{lines: lines}
}

type submissionSource struct {
	lines []SubmissionItem
}

func (s *submissionSource) resolve(ctx context.Context, tx *sql.Tx) ([]models.OrderItem, string, error) {
	var (
		items    []models.OrderItem
		currency string
		index    = map[string]int{}
	)

	for _, line := range s.lines {
		if line.Qty <= 0 || line.Qty > models.MaxLineQty {
			continue
		}

		p, err := catalog.GetActiveWith(ctx, tx, line.SKU)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve sku %s: %w", line.SKU, err)
		}

		if currency == "" {
			currency = p.Currency
		} else if p.Currency != currency {
			continue
		}

		// Repeated skus collapse into one line, within the same bound.
		if i, ok := index[p.SKU]; ok {
			if items[i].Qty+line.Qty <= models.MaxLineQty {
				items[i].Qty += line.Qty
			}
			continue
		}
		index[p.SKU] = len(items)
		items = append(items, models.OrderItem{
			SKU:   p.SKU,
			Title: p.Title,
			Price: p.Price,
			Qty:   line.Qty,
		})
	}

	if len(items) == 0 {
		return nil, "", models.ErrEmptyOrder
	}
	return items, currency, nil
}

func (s *submissionSource) finalize(context.Context, *sql.Tx) error {
	return nil
}

func (s *submissionSource) source() models.OrderSource {
	return models.SourceSubmission
}
