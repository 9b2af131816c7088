package shop

import (
	"fmt"

	"github.com/01moynul/tg-storefront/internal/bot"
	"github.com/01moynul/tg-storefront/internal/models"
	"github.com/01moynul/tg-storefront/internal/orders"
)

// Callback data prefixes.
const (
	cbCatalogPage = "cat:page:"
	cbProductView = "prod:view:"
	cbCartAdd     = "cart:add:"
	cbCartDec     = "cart:dec:"
	cbCartOpen    = "cart:open"
	cbCartClear   = "cart:clear"
	cbCheckout    = "cart:checkout"
)

func pageData(page int, categorySlug string) string {
	return fmt.Sprintf("%s%d:%s", cbCatalogPage, page, categorySlug)
}

func cartButton() bot.Button {
	return bot.Callback("🧺 Cart", cbCartOpen)
}

func backToCatalog() bot.Button {
	return bot.Callback("« Catalog", pageData(0, ""))
}

// catalogKeyboard lists one product per row, then paging, then the cart.
func (h *Handler) catalogKeyboard(products []models.Product, page, total int, categorySlug string) [][]bot.Button {
	rows := make([][]bot.Button, 0, len(products)+2)
	for _, p := range products {
		label := fmt.Sprintf("%s • %s", p.Title, orders.FormatMoney(p.Price, p.Currency))
		rows = append(rows, bot.Row(bot.Callback(label, cbProductView+p.SKU)))
	}

	var nav []bot.Button
	if page > 0 {
		nav = append(nav, bot.Callback("« Back", pageData(page-1, categorySlug)))
	}
	if h.catalog.HasNext(page, total) {
		nav = append(nav, bot.Callback("Next »", pageData(page+1, categorySlug)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	return append(rows, bot.Row(cartButton()))
}

func productKeyboard(sku string) [][]bot.Button {
	return [][]bot.Button{
		bot.Row(bot.Callback("➕ Add to cart", cbCartAdd+sku)),
		bot.Row(cartButton()),
		bot.Row(backToCatalog()),
	}
}

func cartKeyboard(summary models.CartSummary) [][]bot.Button {
	rows := make([][]bot.Button, 0, len(summary.Lines)+3)
	for _, l := range summary.Lines {
		rows = append(rows, bot.Row(
			bot.Callback("➖ "+l.Title, cbCartDec+l.SKU),
			bot.Callback("➕", cbCartAdd+l.SKU),
		))
	}
	return append(rows,
		bot.Row(bot.Callback("🧾 Checkout", cbCheckout)),
		bot.Row(bot.Callback("🗑 Clear", cbCartClear)),
		bot.Row(backToCatalog()),
	)
}
