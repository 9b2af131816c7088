package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// OrderStatus is the closed set of fulfilment states. Any valid status may
// follow any other; only unknown strings are rejected.
type OrderStatus string

const (
	StatusNew       OrderStatus = "new"
	StatusPaid      OrderStatus = "paid"
	StatusPacked    OrderStatus = "packed"
	StatusShipped   OrderStatus = "shipped"
	StatusDone      OrderStatus = "done"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every valid status in display order.
var OrderStatuses = []OrderStatus{
	StatusNew, StatusPaid, StatusPacked, StatusShipped, StatusDone, StatusCancelled,
}

// ParseOrderStatus validates raw against the closed status set.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range OrderStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, raw)
}

// OrderSource records which checkout path produced the order.
type OrderSource string

const (
	SourceDialogue   OrderSource = "dialogue"
	SourceSubmission OrderSource = "webapp"
)

// Buyer identifies who placed an order.
type Buyer struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Handle renders "@username" or a dash when the buyer has none.
func (b Buyer) Handle() string {
	if b.Username == "" {
		return "—"
	}
	return "@" + strings.TrimPrefix(b.Username, "@")
}

// Delivery holds the four free-text delivery fields.
type Delivery struct {
	City     string `json:"city"`
	Branch   string `json:"branch"`
	Receiver string `json:"receiver"`
	Phone    string `json:"phone"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (d Delivery) Trimmed() Delivery {
	return Delivery{
		City:     strings.TrimSpace(d.City),
		Branch:   strings.TrimSpace(d.Branch),
		Receiver: strings.TrimSpace(d.Receiver),
		Phone:    strings.TrimSpace(d.Phone),
	}
}

// Order is the model for the 'orders' table. Only Status and
// TrackingNumber change after creation; Total and Currency are frozen.
type Order struct {
	ID             int64       `json:"id" db:"id"`
	Buyer          Buyer       `json:"buyer"`
	Total          int64       `json:"total" db:"total"`
	Currency       string      `json:"currency" db:"currency"`
	Delivery       Delivery    `json:"delivery"`
	Status         OrderStatus `json:"status" db:"status"`
	TrackingNumber *string     `json:"trackingNumber,omitempty" db:"tracking_number"`
	Source         OrderSource `json:"source" db:"source"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time   `json:"updatedAt" db:"updated_at"`

	// Populated by Get, not by list projections.
	Items []OrderItem `json:"items,omitempty" db:"-"`
}

// OrderItem is the model for the 'order_items' table: a snapshot of the
// product at purchase time, decoupled from later catalog edits.
type OrderItem struct {
	ID      int64  `json:"id" db:"id"`
	OrderID int64  `json:"orderId" db:"order_id"`
	SKU     string `json:"sku" db:"sku"`
	Title   string `json:"title" db:"title"`
	Price   int64  `json:"price" db:"price"` // Price at the time of purchase
	Qty     int    `json:"qty" db:"qty"`
}

// MaxLineQty is the largest quantity a single order line may carry.
const MaxLineQty = 10_000

// LineTotal is price × qty.
func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Qty)
}

// OrderTotal sums the line totals, failing with ErrOrderTooLarge instead of
// overflowing.
func OrderTotal(items []OrderItem) (int64, error) {
	var total int64
	for _, it := range items {
		if it.Qty < 0 || it.Price < 0 {
			return 0, fmt.Errorf("%w: negative line %s", ErrValidation, it.SKU)
		}
		if it.Qty > 0 && it.Price > math.MaxInt64/int64(it.Qty) {
			return 0, ErrOrderTooLarge
		}
		line := it.LineTotal()
		if total > math.MaxInt64-line {
			return 0, ErrOrderTooLarge
		}
		total += line
	}
	return total, nil
}
