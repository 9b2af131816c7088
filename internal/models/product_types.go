package models

import "time"

// Product is the model for the 'products' table.
// Products are never deleted, only deactivated, because order items
// reference them historically.
type Product struct {
	SKU          string    `json:"sku" db:"sku"`
	Title        string    `json:"title" db:"title"`
	Price        int64     `json:"price" db:"price"` // Integer amount, unit per deployment convention
	Currency     string    `json:"currency" db:"currency"`
	Active       bool      `json:"active" db:"is_active"`
	Description  string    `json:"description,omitempty" db:"description"`
	ImageURL     string    `json:"imageUrl,omitempty" db:"image_url"`
	Category     string    `json:"category,omitempty" db:"category"`
	CategorySlug string    `json:"categorySlug,omitempty" db:"category_slug"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Category is a distinct category of the active catalog.
type Category struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// Length limits that keep callback data such as "prod:view:<sku>" within
// Telegram's 64-byte callback_data limit.
const (
	MaxSKULength          = 48
	MaxCategorySlugLength = 40
)

// ProductInput is the operator's add-or-update payload. The SKU bound
// matches MaxSKULength; printascii makes it a byte bound too.
type ProductInput struct {
	SKU      string `validate:"required,max=48,printascii,excludesall=0x7C"`
	Title    string `validate:"required,max=255"`
	Price    int64  `validate:"gte=0"`
	Currency string `validate:"required,len=3,alpha"`
}
