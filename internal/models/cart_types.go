package models

// CartLine is one cart row joined against the current catalog.
// Price, title and currency are live values, not snapshots.
type CartLine struct {
	SKU      string `json:"sku"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	Qty      int    `json:"qty"`
}

// LineTotal is price × qty.
func (l CartLine) LineTotal() int64 {
	return l.Price * int64(l.Qty)
}

// CartSummary is the result of joining a user's cart against the catalog.
type CartSummary struct {
	Lines    []CartLine `json:"lines"`
	Total    int64      `json:"total"`
	Currency string     `json:"currency"`
}

// Empty reports whether the cart has no lines.
func (s CartSummary) Empty() bool {
	return len(s.Lines) == 0
}

// Count returns the number of distinct lines.
func (s CartSummary) Count() int {
	return len(s.Lines)
}
