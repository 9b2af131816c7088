package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/01moynul/tg-storefront/internal/models"
	"github.com/01moynul/tg-storefront/internal/orders"
)

const timeLayout = "02.01 15:04"

func (c *Console) listOrders(ctx context.Context, _ request) (string, error) {
	list, err := c.ledger.ListRecent(ctx, c.cfg.RecentLimit)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return msgNoOrders, nil
	}

	blocks := make([]string, 0, len(list))
	for _, o := range list {
		blocks = append(blocks, fmt.Sprintf("%s\n%s / %s\n%s / %s\n———",
			c.orderHeadline(&o),
			o.Delivery.City, o.Delivery.Branch,
			o.Delivery.Receiver, o.Delivery.Phone))
	}
	return strings.Join(blocks, "\n"), nil
}

func (c *Console) showOrder(ctx context.Context, req request) (string, error) {
	id, err := parseOrderID(req.args)
	if err != nil {
		return "", models.Usage("/order <id>")
	}

	o, err := c.ledger.Get(ctx, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order %s\n", c.orderHeadline(o))
	fmt.Fprintf(&b, "Buyer: %s (%s), ID: %d\n", o.Buyer.Name, o.Buyer.Handle(), o.Buyer.UserID)
	b.WriteString(orders.ItemLines(o.Items, o.Currency))
	fmt.Fprintf(&b, "\nCity: %s\nBranch: %s\nReceiver: %s / %s", o.Delivery.City, o.Delivery.Branch, o.Delivery.Receiver, o.Delivery.Phone)
	if o.TrackingNumber != nil {
		fmt.Fprintf(&b, "\nTTN: %s", *o.TrackingNumber)
	}
	return b.String(), nil
}

func (c *Console) setStatus(ctx context.Context, req request) (string, error) {
	const usage = "/status <id> <new|paid|packed|shipped|done|cancelled>"

	fields := strings.Fields(req.args)
	if len(fields) != 2 {
		return "", models.Usage(usage)
	}
	id, err := parseOrderID(fields[0])
	if err != nil {
		return "", models.Usage(usage)
	}
	status, err := models.ParseOrderStatus(fields[1])
	if err != nil {
		return "", models.Usage(usage)
	}

	if err := c.ledger.SetStatus(ctx, id, status); err != nil {
		return "", err
	}
	return fmt.Sprintf("Order #%d status → %s", id, status), nil
}

func (c *Console) setTracking(ctx context.Context, req request) (string, error) {
	const usage = "/ttn <id> <number>"

	idStr, tracking, _ := strings.Cut(req.args, " ")
	tracking = strings.TrimSpace(tracking)
	id, err := parseOrderID(idStr)
	if err != nil || tracking == "" {
		return "", models.Usage(usage)
	}

	if err := c.ledger.SetTracking(ctx, id, tracking); err != nil {
		return "", err
	}
	return fmt.Sprintf("Tracking number for order #%d saved.", id), nil
}

// orderHeadline renders "#id • total cur • status • dd.mm HH:MM".
func (c *Console) orderHeadline(o *models.Order) string {
	return fmt.Sprintf("#%d • %s • %s • %s",
		o.ID, orders.FormatMoney(o.Total, o.Currency), o.Status,
		o.CreatedAt.In(c.cfg.Location).Format(timeLayout))
}

func parseOrderID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order id %q", s)
	}
	return id, nil
}
