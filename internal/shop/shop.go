// Package shop is the buyer-facing bot: catalog browsing, the cart, the
// guided checkout and web app submissions.
package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/01moynul/tg-storefront/internal/bot"
	"github.com/01moynul/tg-storefront/internal/cart"
	"github.com/01moynul/tg-storefront/internal/catalog"
	"github.com/01moynul/tg-storefront/internal/checkout"
	"github.com/01moynul/tg-storefront/internal/models"
	"github.com/01moynul/tg-storefront/internal/orders"
)

// Buyer-visible messages.
const (
	msgWelcome         = "Welcome! Choose an action:"
	msgCatalog         = "Catalog:"
	msgCatalogEmpty    = "Catalog is empty."
	msgCategories      = "Categories:"
	msgNoCategories    = "No categories yet."
	msgNoDescription   = "Description coming soon."
	msgProductNotFound = "Product not found."
	msgUnavailable     = "Product unavailable."
	msgMixedCurrency   = "Your cart holds items in another currency. Check out or clear it first."
	msgCartEmpty       = "Cart is empty."
	msgCartCleared     = "Cart cleared."
	msgCancelled       = "Checkout cancelled."
	msgNothingToCancel = "Nothing to cancel."
	msgOrderCreated    = "✅ Order #%d created! We will contact you about delivery."
	msgEmptyOrder      = "Cart is empty or the items are unavailable."
	msgOrderTooLarge   = "The order is too large. Please reduce the quantities."
	msgUnreadable      = "Could not read the storefront data."
	msgUnknownPayload  = "Storefront data received, but its type is unknown."
	msgWebAppOff       = "The storefront is not available right now."
	msgWebApp          = "Open the storefront:"
	msgHint            = "Use /catalog to browse products or /cart to see your cart."
	msgStaleButton     = "This button is no longer supported."
)

// Handler is the shop bot's bot.Handler.
type Handler struct {
	catalog   *catalog.Catalog
	carts     *cart.Store
	dialogue  *checkout.Dialogue
	ledger    *orders.Ledger
	webAppURL string
	log       *slog.Logger
}

// New creates the shop Handler.
func New(cat *catalog.Catalog, carts *cart.Store, dialogue *checkout.Dialogue, ledger *orders.Ledger, webAppURL string, log *slog.Logger) *Handler {
	return &Handler{
		catalog:   cat,
		carts:     carts,
		dialogue:  dialogue,
		ledger:    ledger,
		webAppURL: webAppURL,
		log:       log,
	}
}

// Handle routes one update. Web app data wins over callbacks, callbacks
// over text. Free text goes to the checkout dialogue when one is open.
func (h *Handler) Handle(ctx context.Context, u bot.Update) ([]bot.Reply, error) {
	switch {
	case u.WebAppData != "":
		return h.submission(ctx, u)
	case u.Callback != "":
		return h.callback(ctx, u)
	}

	if name, _, ok := bot.Command(u.Text); ok {
		return h.command(ctx, u, name)
	}

	if h.dialogue.Active(u.From.ID) {
		return h.dialogueInput(ctx, u)
	}
	return one(bot.Text(msgHint)), nil
}

//
// --- Commands ---
//

func (h *Handler) command(ctx context.Context, u bot.Update, name string) ([]bot.Reply, error) {
	switch name {
	case "start":
		return h.start(), nil
	case "webapp":
		return h.webApp(), nil
	case "catalog":
		return h.catalogPage(ctx, 0, "")
	case "categories":
		return h.categories(ctx)
	case "cart":
		return h.cartView(ctx, u.From.ID)
	case "cancel":
		if h.dialogue.Cancel(u.From.ID) {
			return one(bot.Text(msgCancelled)), nil
		}
		return one(bot.Text(msgNothingToCancel)), nil
	default:
		return one(bot.Text(msgHint)), nil
	}
}

func (h *Handler) start() []bot.Reply {
	rows := [][]bot.Button{
		bot.Row(bot.Callback("🗂 Catalog", pageData(0, ""))),
		bot.Row(cartButton()),
	}
	if h.webAppURL != "" {
		rows = append(rows, bot.Row(bot.WebApp("🛍 Storefront", h.webAppURL)))
	}
	return one(bot.Text(msgWelcome, rows...))
}

func (h *Handler) webApp() []bot.Reply {
	if h.webAppURL == "" {
		return one(bot.Text(msgWebAppOff))
	}
	return one(bot.Text(msgWebApp,
		bot.Row(bot.WebApp("🛍 Open in Telegram", h.webAppURL)),
		bot.Row(bot.Link("🌐 Open in browser", h.webAppURL)),
	))
}

func (h *Handler) catalogPage(ctx context.Context, page int, categorySlug string) ([]bot.Reply, error) {
	products, total, err := h.catalog.List(ctx, page, categorySlug)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return one(bot.Text(msgCatalogEmpty, bot.Row(cartButton()))), nil
	}
	return one(bot.Text(msgCatalog, h.catalogKeyboard(products, page, total, categorySlug)...)), nil
}

func (h *Handler) categories(ctx context.Context) ([]bot.Reply, error) {
	cats, err := h.catalog.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return one(bot.Text(msgNoCategories)), nil
	}

	rows := make([][]bot.Button, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, bot.Row(bot.Callback(fmt.Sprintf("%s (%d)", c.Name, c.Count), pageData(0, c.Slug))))
	}
	return one(bot.Text(msgCategories, rows...)), nil
}

//
// --- Callbacks ---
//

func (h *Handler) callback(ctx context.Context, u bot.Update) ([]bot.Reply, error) {
	data := u.Callback
	userID := u.From.ID

	switch {
	case strings.HasPrefix(data, cbCatalogPage):
		page, slug, ok := parsePage(strings.TrimPrefix(data, cbCatalogPage))
		if !ok {
			return one(bot.Text(msgStaleButton)), nil
		}
		return h.catalogPage(ctx, page, slug)

	case strings.HasPrefix(data, cbProductView):
		return h.productView(ctx, strings.TrimPrefix(data, cbProductView))

	case strings.HasPrefix(data, cbCartAdd):
		return h.cartAdd(ctx, userID, strings.TrimPrefix(data, cbCartAdd))

	case strings.HasPrefix(data, cbCartDec):
		if err := h.carts.Decrement(ctx, userID, strings.TrimPrefix(data, cbCartDec)); err != nil {
			return nil, err
		}
		return h.cartView(ctx, userID)

	case data == cbCartOpen:
		return h.cartView(ctx, userID)

	case data == cbCartClear:
		if err := h.carts.Clear(ctx, userID); err != nil {
			return nil, err
		}
		replies, err := h.cartView(ctx, userID)
		return append([]bot.Reply{bot.Text(msgCartCleared)}, replies...), err

	case data == cbCheckout:
		prompt, err := h.dialogue.Begin(ctx, userID)
		if errors.Is(err, models.ErrEmptyCart) {
			return one(bot.Text(msgCartEmpty)), nil
		}
		if err != nil {
			return nil, err
		}
		return one(bot.Text(prompt)), nil

	default:
		return one(bot.Text(msgStaleButton)), nil
	}
}

// parsePage reads "N:slug". The slug may be empty.
func parsePage(rest string) (int, string, bool) {
	pageStr, slug, _ := strings.Cut(rest, ":")
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 0 {
		return 0, "", false
	}
	return page, slug, true
}

func (h *Handler) productView(ctx context.Context, sku string) ([]bot.Reply, error) {
	p, err := h.catalog.GetActive(ctx, sku)
	if errors.Is(err, models.ErrNotFound) {
		return one(bot.Text(msgProductNotFound)), nil
	}
	if err != nil {
		return nil, err
	}

	desc := p.Description
	if desc == "" {
		desc = msgNoDescription
	}
	caption := fmt.Sprintf("%s\n%s\n\n%s", p.Title, orders.FormatMoney(p.Price, p.Currency), desc)

	return one(bot.Reply{Text: caption, PhotoURL: p.ImageURL, Buttons: productKeyboard(p.SKU)}), nil
}

func (h *Handler) cartAdd(ctx context.Context, userID int64, sku string) ([]bot.Reply, error) {
	_, err := h.carts.Add(ctx, userID, sku)
	switch {
	case errors.Is(err, models.ErrProductUnavailable):
		return one(bot.Text(msgUnavailable)), nil
	case errors.Is(err, models.ErrMixedCurrency):
		return one(bot.Text(msgMixedCurrency, bot.Row(cartButton()))), nil
	case err != nil:
		return nil, err
	}

	summary, err := h.carts.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("Items in cart: %d • Total: %s", summary.Count(), orders.FormatMoney(summary.Total, summary.Currency))
	return one(bot.Text(text, bot.Row(bot.Callback("🧺 Open cart", cbCartOpen)))), nil
}

func (h *Handler) cartView(ctx context.Context, userID int64) ([]bot.Reply, error) {
	summary, err := h.carts.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	if summary.Empty() {
		return one(bot.Text(msgCartEmpty, bot.Row(backToCatalog()))), nil
	}

	var b strings.Builder
	b.WriteString("🧺 Cart\n")
	for _, l := range summary.Lines {
		fmt.Fprintf(&b, "• %s × %d = %s\n", l.Title, l.Qty, orders.FormatMoney(l.LineTotal(), summary.Currency))
	}
	fmt.Fprintf(&b, "\nTotal: %s", orders.FormatMoney(summary.Total, summary.Currency))

	return one(bot.Text(b.String(), cartKeyboard(summary)...)), nil
}

//
// --- Checkout ---
//

func (h *Handler) dialogueInput(ctx context.Context, u bot.Update) ([]bot.Reply, error) {
	res, err := h.dialogue.Input(ctx, buyerOf(u), u.Text)
	switch {
	case errors.Is(err, checkout.ErrNoSession):
		return one(bot.Text(msgHint)), nil
	case errors.Is(err, models.ErrEmptyCart):
		return one(bot.Text(msgCartEmpty)), nil
	case errors.Is(err, models.ErrOrderTooLarge):
		return one(bot.Text(msgOrderTooLarge)), nil
	case err != nil:
		return nil, err
	}

	if res.Order != nil {
		return one(bot.Text(fmt.Sprintf(msgOrderCreated, res.Order.ID))), nil
	}
	return one(bot.Text(res.Prompt)), nil
}

func (h *Handler) submission(ctx context.Context, u bot.Update) ([]bot.Reply, error) {
	sub, err := orders.ParseSubmission(u.WebAppData)
	switch {
	case errors.Is(err, orders.ErrUnknownSubmission):
		return one(bot.Text(msgUnknownPayload)), nil
	case err != nil:
		h.log.Warn("unreadable web app data", "user_id", u.From.ID, "error", err)
		return one(bot.Text(msgUnreadable)), nil
	}

	order, err := h.ledger.Create(ctx, buyerOf(u), sub.Delivery(), orders.FromSubmission(sub.Items))
	switch {
	case errors.Is(err, models.ErrEmptyOrder):
		return one(bot.Text(msgEmptyOrder)), nil
	case errors.Is(err, models.ErrOrderTooLarge):
		return one(bot.Text(msgOrderTooLarge)), nil
	case err != nil:
		return nil, err
	}
	return one(bot.Text(fmt.Sprintf(msgOrderCreated, order.ID))), nil
}

func buyerOf(u bot.Update) models.Buyer {
	return models.Buyer{
		UserID:   u.From.ID,
		Username: u.From.Username,
		Name:     u.From.FullName(),
	}
}

func one(r bot.Reply) []bot.Reply {
	return []bot.Reply{r}
}
