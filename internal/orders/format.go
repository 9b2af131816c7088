package orders

import (
	"fmt"
	"strings"

	"github.com/01moynul/tg-storefront/internal/models"
)

// FormatMoney renders an amount with its currency code.
func FormatMoney(amount int64, currency string) string {
	return fmt.Sprintf("%d %s", amount, currency)
}

// ItemLines renders one "• title × qty = line total" row per item.
func ItemLines(items []models.OrderItem, currency string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("• %s × %d = %s", it.Title, it.Qty, FormatMoney(it.LineTotal(), currency)))
	}
	return strings.Join(lines, "\n")
}

// NotificationText is the operator message sent for a new order.
func NotificationText(o *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 New order #%d\n", o.ID)
	fmt.Fprintf(&b, "Buyer: %s (%s)\n", o.Buyer.Name, o.Buyer.Handle())
	fmt.Fprintf(&b, "ID: %d\n", o.Buyer.UserID)
	b.WriteString(ItemLines(o.Items, o.Currency))
	fmt.Fprintf(&b, "\nTotal: %s\n", FormatMoney(o.Total, o.Currency))
	fmt.Fprintf(&b, "City: %s\n", o.Delivery.City)
	fmt.Fprintf(&b, "Branch: %s\n", o.Delivery.Branch)
	fmt.Fprintf(&b, "Receiver: %s / %s", o.Delivery.Receiver, o.Delivery.Phone)
	return b.String()
}
