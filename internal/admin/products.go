package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/01moynul/tg-storefront/internal/models"
	"github.com/01moynul/tg-storefront/internal/orders"
)

func (c *Console) listProducts(ctx context.Context, _ request) (string, error) {
	products, err := c.catalog.All(ctx)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return msgCatalogEmpty, nil
	}

	lines := make([]string, 0, len(products))
	for _, p := range products {
		mark := "⛔️"
		if p.Active {
			mark = "✅"
		}
		lines = append(lines, fmt.Sprintf("%s %s [%s] — %s", mark, p.Title, p.SKU, orders.FormatMoney(p.Price, p.Currency)))
	}
	return strings.Join(lines, "\n"), nil
}

func (c *Console) addProduct(ctx context.Context, req request) (string, error) {
	const usage = "/addproduct <sku> | <title> | <price> [| <currency>]"

	parts := splitPipe(req.args)
	if len(parts) < 3 || len(parts) > 4 {
		return "", models.Usage(usage)
	}
	price, err := parsePrice(parts[2])
	if err != nil {
		return "", models.Usage(usage)
	}
	in := models.ProductInput{SKU: parts[0], Title: parts[1], Price: price}
	if len(parts) == 4 {
		in.Currency = parts[3]
	}

	p, err := c.catalog.Upsert(ctx, in)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Product [%s] saved: %s — %s", p.SKU, p.Title, orders.FormatMoney(p.Price, p.Currency)), nil
}

func (c *Console) setPrice(ctx context.Context, req request) (string, error) {
	const usage = "/setprice <sku> <price>"

	fields := strings.Fields(req.args)
	if len(fields) != 2 {
		return "", models.Usage(usage)
	}
	price, err := parsePrice(fields[1])
	if err != nil {
		return "", models.Usage(usage)
	}

	if err := c.catalog.SetPrice(ctx, fields[0], price); err != nil {
		return "", err
	}
	return fmt.Sprintf("Price of %s → %d", fields[0], price), nil
}

func (c *Console) setTitle(ctx context.Context, req request) (string, error) {
	sku, title, err := skuAndText(req.args, "/settitle <sku> | <title>")
	if err != nil {
		return "", err
	}
	if err := c.catalog.SetTitle(ctx, sku, title); err != nil {
		return "", err
	}
	return fmt.Sprintf("Title of %s → %s", sku, title), nil
}

func (c *Console) setDescription(ctx context.Context, req request) (string, error) {
	sku, text, err := skuAndText(req.args, "/setdesc <sku> | <text>")
	if err != nil {
		return "", err
	}
	if err := c.catalog.SetDescription(ctx, sku, text); err != nil {
		return "", err
	}
	return fmt.Sprintf("Description of %s updated.", sku), nil
}

func (c *Console) setCategory(ctx context.Context, req request) (string, error) {
	sku, category, err := skuAndText(req.args, "/setcat <sku> | <category>")
	if err != nil {
		return "", err
	}
	if err := c.catalog.SetCategory(ctx, sku, category); err != nil {
		return "", err
	}
	return fmt.Sprintf("Category of %s → %s", sku, category), nil
}

func (c *Console) setImage(ctx context.Context, req request) (string, error) {
	fields := strings.Fields(req.args)
	if len(fields) != 2 {
		return "", models.Usage("/setimg <sku> <image_url>")
	}
	if err := c.catalog.SetImage(ctx, fields[0], fields[1]); err != nil {
		return "", err
	}
	return fmt.Sprintf("Image of %s updated.", fields[0]), nil
}

func (c *Console) toggle(ctx context.Context, req request) (string, error) {
	sku := strings.TrimSpace(req.args)
	if sku == "" || strings.ContainsAny(sku, " \t") {
		return "", models.Usage("/toggle <sku>")
	}

	active, err := c.catalog.ToggleActive(ctx, sku)
	if err != nil {
		return "", err
	}
	if active {
		return fmt.Sprintf("Product %s enabled", sku), nil
	}
	return fmt.Sprintf("Product %s disabled", sku), nil
}

func (c *Console) draftDescription(ctx context.Context, req request) (string, error) {
	sku := strings.TrimSpace(req.args)
	if sku == "" {
		return "", models.Usage("/aidesc <sku>")
	}
	if c.drafter == nil {
		return msgAssistantOff, nil
	}

	// 1. --- Product Must Exist ---
	if _, err := c.catalog.Get(ctx, sku); err != nil {
		return "", err
	}

	// 2. --- Draft & Store ---
	text, err := c.drafter.DraftDescription(ctx, sku)
	if err != nil {
		return "", fmt.Errorf("failed to draft description: %w", err)
	}
	if err := c.catalog.SetDescription(ctx, sku, text); err != nil {
		return "", err
	}
	return fmt.Sprintf("Description of %s updated:\n%s", sku, text), nil
}

// splitPipe splits "a | b | c" into trimmed parts.
func splitPipe(args string) []string {
	if !strings.Contains(args, "|") {
		return nil
	}
	parts := strings.Split(args, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// skuAndText parses "<sku> | <text>". The text may itself contain pipes.
func skuAndText(args, usage string) (string, string, error) {
	sku, text, ok := strings.Cut(args, "|")
	sku, text = strings.TrimSpace(sku), strings.TrimSpace(text)
	if !ok || sku == "" || text == "" {
		return "", "", models.Usage(usage)
	}
	return sku, text, nil
}

func parsePrice(s string) (int64, error) {
	price, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || price < 0 {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return price, nil
}
