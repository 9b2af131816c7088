// Package catalog reads and edits the product table.
//
// Buyers only ever see active products, ordered by title for deterministic
// pagination. Operators see everything and mutate rows one at a time.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"

	"github.com/01moynul/tg-storefront/internal/database"
	"github.com/01moynul/tg-storefront/internal/models"
)

const productColumns = "sku, title, price, currency, is_active, description, image_url, category, category_slug, updated_at"

// Catalog is the Catalog Reader and Writer over the products table.
type Catalog struct {
	db       *database.DB
	pageSize int
	currency string
	validate *validator.Validate
	now      func() time.Time
}

// New creates a Catalog with a fixed page size. defaultCurrency is applied
// to products added without one.
func New(db *database.DB, pageSize int, defaultCurrency string) *Catalog {
	if pageSize <= 0 {
		pageSize = 6
	}
	return &Catalog{
		db:       db,
		pageSize: pageSize,
		currency: defaultCurrency,
		validate: validator.New(),
		now:      time.Now,
	}
}

// PageSize returns the fixed number of products per page.
func (c *Catalog) PageSize() int {
	return c.pageSize
}

// HasNext reports whether a page after page exists for total products.
func (c *Catalog) HasNext(page, total int) bool {
	return (page+1)*c.pageSize < total
}

//
// --- Reader ---
//

// List returns one page of active products and the total number of active
// products matching the optional category slug. A page beyond range yields
// an empty slice, not an error.
func (c *Catalog) List(ctx context.Context, page int, categorySlug string) ([]models.Product, int, error) {
	if page < 0 {
		page = 0
	}

	// 1. --- Build Filter ---
	where := "WHERE is_active = 1"
	args := []any{}
	if categorySlug != "" {
		where += " AND category_slug = ?"
		args = append(args, categorySlug)
	}

	// 2. --- Count ---
	var total int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	// 3. --- Fetch Page ---
	query := "SELECT " + productColumns + " FROM products " + where + " ORDER BY title ASC, sku ASC LIMIT ? OFFSET ?"
	args = append(args, c.pageSize, page*c.pageSize)

	products, err := c.queryProducts(ctx, c.db, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Get returns a product regardless of its active flag.
func (c *Catalog) Get(ctx context.Context, sku string) (*models.Product, error) {
	return getProduct(ctx, c.db, "SELECT "+productColumns+" FROM products WHERE sku = ?", sku)
}

// GetActive returns a buyer-visible product. Inactive products are
// reported as not found.
func (c *Catalog) GetActive(ctx context.Context, sku string) (*models.Product, error) {
	return GetActiveWith(ctx, c.db, sku)
}

// GetActiveWith resolves an active product through q, so callers can
// snapshot it inside their own transaction.
func GetActiveWith(ctx context.Context, q database.Querier, sku string) (*models.Product, error) {
	return getProduct(ctx, q, "SELECT "+productColumns+" FROM products WHERE sku = ? AND is_active = 1", sku)
}

// Categories lists the distinct categories of active products.
func (c *Catalog) Categories(ctx context.Context) ([]models.Category, error) {
	query := `
		SELECT category, category_slug, COUNT(*)
		FROM products
		WHERE is_active = 1 AND category_slug <> ''
		GROUP BY category_slug, category
		ORDER BY category ASC`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.Name, &cat.Slug, &cat.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

//
// --- Writer ---
//

// All lists every product, active or not, ordered by title.
func (c *Catalog) All(ctx context.Context) ([]models.Product, error) {
	return c.queryProducts(ctx, c.db, "SELECT "+productColumns+" FROM products ORDER BY title ASC, sku ASC")
}

// Upsert adds a product or replaces its title, price and currency. The
// product is (re)activated either way.
func (c *Catalog) Upsert(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Title = strings.TrimSpace(in.Title)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = c.currency
	}

	if err := c.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if strings.ContainsAny(in.SKU, " \t\n") {
		return nil, fmt.Errorf("%w: sku must not contain whitespace", models.ErrValidation)
	}

	d := c.db.Dialect
	query := `
		INSERT INTO products (sku, title, price, currency, is_active, updated_at)
		VALUES (?, ?, ?, ?, 1, ?) ` + d.Upsert("sku",
		"title = "+d.Excluded("title")+
			", price = "+d.Excluded("price")+
			", currency = "+d.Excluded("currency")+
			", is_active = 1"+
			", updated_at = "+d.Excluded("updated_at"))

	if _, err := c.db.ExecContext(ctx, query, in.SKU, in.Title, in.Price, in.Currency, c.now().Unix()); err != nil {
		return nil, fmt.Errorf("failed to upsert product: %w", err)
	}
	return c.Get(ctx, in.SKU)
}

// SetPrice overwrites the live price. Existing orders keep their snapshot.
func (c *Catalog) SetPrice(ctx context.Context, sku string, price int64) error {
	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", models.ErrValidation)
	}
	return c.updateColumn(ctx, sku, "price", price)
}

// SetTitle overwrites the live title.
func (c *Catalog) SetTitle(ctx context.Context, sku, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title must not be empty", models.ErrValidation)
	}
	return c.updateColumn(ctx, sku, "title", title)
}

// SetDescription overwrites the description.
func (c *Catalog) SetDescription(ctx context.Context, sku, text string) error {
	return c.updateColumn(ctx, sku, "description", strings.TrimSpace(text))
}

// SetImage overwrites the image reference.
func (c *Catalog) SetImage(ctx context.Context, sku, url string) error {
	return c.updateColumn(ctx, sku, "image_url", strings.TrimSpace(url))
}

// SetCategory overwrites the category and its slug.
func (c *Catalog) SetCategory(ctx context.Context, sku, category string) error {
	category = strings.TrimSpace(category)
	query := "UPDATE products SET category = ?, category_slug = ?, updated_at = ? WHERE sku = ?"
	res, err := c.db.ExecContext(ctx, query, category, CategorySlug(category), c.now().Unix(), sku)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return c.checkAffected(ctx, res, sku)
}

// ToggleActive flips the active flag and returns the new value.
func (c *Catalog) ToggleActive(ctx context.Context, sku string) (bool, error) {
	var active bool
	err := c.db.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. --- Read Current Flag ---
		if err := tx.QueryRowContext(ctx, "SELECT is_active FROM products WHERE sku = ?", sku).Scan(&active); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("product %s: %w", sku, models.ErrNotFound)
			}
			return fmt.Errorf("failed to read product: %w", err)
		}

		// 2. --- Flip It ---
		active = !active
		_, err := tx.ExecContext(ctx, "UPDATE products SET is_active = ?, updated_at = ? WHERE sku = ?",
			active, c.now().Unix(), sku)
		if err != nil {
			return fmt.Errorf("failed to toggle product: %w", err)
		}
		return nil
	})
	return active, err
}

// CategorySlug normalises a category name into its filter key, at most
// models.MaxCategorySlugLength bytes long.
func CategorySlug(category string) string {
	if strings.TrimSpace(category) == "" {
		return ""
	}
	s := slug.Make(category)
	if len(s) > models.MaxCategorySlugLength {
		s = strings.TrimRight(s[:models.MaxCategorySlugLength], "-")
	}
	return s
}

//
// --- Helpers ---
//

// updateColumn is a helper to DRY up the single-column setters.
// column is always a constant from this file, never user input.
func (c *Catalog) updateColumn(ctx context.Context, sku, column string, value any) error {
	query := "UPDATE products SET " + column + " = ?, updated_at = ? WHERE sku = ?"
	res, err := c.db.ExecContext(ctx, query, value, c.now().Unix(), sku)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return c.checkAffected(ctx, res, sku)
}

// checkAffected maps a zero-row update to ErrNotFound. MySQL reports zero
// affected rows when the value did not change, so existence is re-checked.
func (c *Catalog) checkAffected(ctx context.Context, res sql.Result, sku string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	var one int
	err = c.db.QueryRowContext(ctx, "SELECT 1 FROM products WHERE sku = ?", sku).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %s: %w", sku, models.ErrNotFound)
	}
	return err
}

func getProduct(ctx context.Context, q database.Querier, query string, args ...any) (*models.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %v: %w", args[0], models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return p, nil
}

func (c *Catalog) queryProducts(ctx context.Context, q database.Querier, query string, args ...any) ([]models.Product, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}
	return products, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*models.Product, error) {
	var (
		p         models.Product
		updatedAt int64
	)
	err := s.Scan(&p.SKU, &p.Title, &p.Price, &p.Currency, &p.Active,
		&p.Description, &p.ImageURL, &p.Category, &p.CategorySlug, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return &p, nil
}
