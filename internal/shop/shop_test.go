package shop

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/tg-storefront/internal/bot"
	"github.com/01moynul/tg-storefront/internal/cart"
	"github.com/01moynul/tg-storefront/internal/catalog"
	"github.com/01moynul/tg-storefront/internal/checkout"
	"github.com/01moynul/tg-storefront/internal/database"
	"github.com/01moynul/tg-storefront/internal/database/dbtest"
	"github.com/01moynul/tg-storefront/internal/logger"
	"github.com/01moynul/tg-storefront/internal/models"
	"github.com/01moynul/tg-storefront/internal/orders"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) error { return nil }

type fixture struct {
	db *database.DB
	h  *Handler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	dbtest.SeedProduct(t, db, "MUG", "Mug", 150, "UAH", true)
	dbtest.SeedProduct(t, db, "OFF", "Off", 10, "UAH", false)
	dbtest.SeedProduct(t, db, "CAP", "Cap", 20, "USD", true)

	cat := catalog.New(db, 6, "UAH")
	carts := cart.New(db, "UAH")
	ledger := orders.NewLedger(db, nopNotifier{}, logger.Discard())
	t.Cleanup(ledger.Wait)
	dialogue := checkout.New(carts, ledger, 0, 100, logger.Discard())

	return &fixture{
		db: db,
		h:  New(cat, carts, dialogue, ledger, "https://shop.example/app", logger.Discard()),
	}
}

const jane = int64(7)

func (f *fixture) send(t *testing.T, u bot.Update) []bot.Reply {
	t.Helper()
	u.ChatID = jane
	u.From = bot.User{ID: jane, Username: "jane", FirstName: "Jane", LastName: "Doe"}
	replies, err := f.h.Handle(context.Background(), u)
	require.NoError(t, err)
	require.NotEmpty(t, replies)
	return replies
}

func (f *fixture) text(t *testing.T, text string) bot.Reply {
	return f.send(t, bot.Update{Text: text})[0]
}

func (f *fixture) press(t *testing.T, data string) bot.Reply {
	return f.send(t, bot.Update{Callback: data})[0]
}

func TestStart_ShowsWebAppButton(t *testing.T) {
	f := setup(t)

	r := f.text(t, "/start")
	assert.Equal(t, msgWelcome, r.Text)
	require.Len(t, r.Buttons, 3)
	assert.Equal(t, "https://shop.example/app", r.Buttons[2][0].WebAppURL)

	r = f.text(t, "/webapp")
	require.Len(t, r.Buttons, 2)
	assert.Equal(t, "https://shop.example/app", r.Buttons[1][0].URL)
}

func TestCatalog_Paging(t *testing.T) {
	f := setup(t)
	for i := 0; i < 7; i++ {
		dbtest.SeedProduct(t, f.db, fmt.Sprintf("P%d", i), fmt.Sprintf("Poster %d", i), 100, "UAH", true)
	}

	r := f.text(t, "/catalog")
	assert.Equal(t, msgCatalog, r.Text)
	// 6 products, a nav row with only "Next", and the cart row.
	require.Len(t, r.Buttons, 8)
	assert.Equal(t, "Cap • 20 USD", r.Buttons[0][0].Text)
	assert.Equal(t, "Mug • 150 UAH", r.Buttons[1][0].Text)
	assert.Equal(t, "prod:view:MUG", r.Buttons[1][0].Data)
	assert.Equal(t, "cat:page:1:", r.Buttons[6][0].Data)

	// 9 active products: the second page holds the last 3.
	r = f.press(t, "cat:page:1:")
	require.Len(t, r.Buttons, 5)
	require.Len(t, r.Buttons[3], 1)
	assert.Equal(t, "cat:page:0:", r.Buttons[3][0].Data)
	assert.Equal(t, cbCartOpen, r.Buttons[4][0].Data)

	assert.Equal(t, msgStaleButton, f.press(t, "cat:page:x:").Text)
}

func TestCategories(t *testing.T) {
	f := setup(t)
	_, err := f.db.ExecContext(context.Background(),
		"UPDATE products SET category = 'Kitchen Ware', category_slug = 'kitchen-ware' WHERE sku = 'MUG'")
	require.NoError(t, err)

	r := f.text(t, "/categories")
	require.Len(t, r.Buttons, 1)
	assert.Equal(t, "Kitchen Ware (1)", r.Buttons[0][0].Text)

	r = f.press(t, r.Buttons[0][0].Data)
	assert.Equal(t, "prod:view:MUG", r.Buttons[0][0].Data)
}

func TestProductView(t *testing.T) {
	f := setup(t)

	r := f.press(t, "prod:view:MUG")
	assert.Equal(t, "Mug\n150 UAH\n\n"+msgNoDescription, r.Text)
	assert.Equal(t, "cart:add:MUG", r.Buttons[0][0].Data)

	assert.Equal(t, msgProductNotFound, f.press(t, "prod:view:OFF").Text)
	assert.Equal(t, msgProductNotFound, f.press(t, "prod:view:NOPE").Text)
}

func TestCartFlow(t *testing.T) {
	f := setup(t)

	assert.Equal(t, "Items in cart: 1 • Total: 150 UAH", f.press(t, "cart:add:MUG").Text)
	assert.Equal(t, "Items in cart: 1 • Total: 300 UAH", f.press(t, "cart:add:MUG").Text)
	assert.Equal(t, msgUnavailable, f.press(t, "cart:add:OFF").Text)
	assert.Equal(t, msgMixedCurrency, f.press(t, "cart:add:CAP").Text)

	r := f.text(t, "/cart")
	assert.Contains(t, r.Text, "• Mug × 2 = 300 UAH")
	assert.Contains(t, r.Text, "Total: 300 UAH")

	r = f.press(t, "cart:dec:MUG")
	assert.Contains(t, r.Text, "• Mug × 1 = 150 UAH")

	replies := f.send(t, bot.Update{Callback: "cart:clear"})
	require.Len(t, replies, 2)
	assert.Equal(t, msgCartCleared, replies[0].Text)
	assert.Equal(t, msgCartEmpty, replies[1].Text)
}

func TestGuidedCheckout(t *testing.T) {
	f := setup(t)

	assert.Equal(t, msgCartEmpty, f.press(t, "cart:checkout").Text)

	f.press(t, "cart:add:MUG")
	f.press(t, "cart:add:MUG")

	assert.Equal(t, checkout.PromptCity, f.press(t, "cart:checkout").Text)
	assert.Equal(t, checkout.PromptCity, f.text(t, "  ").Text)
	assert.Equal(t, checkout.PromptBranch, f.text(t, "Kyiv").Text)
	assert.Equal(t, checkout.PromptReceiver, f.text(t, "Branch 12").Text)
	assert.Equal(t, checkout.PromptPhone, f.text(t, "Jane Doe").Text)
	assert.Equal(t, "✅ Order #1 created! We will contact you about delivery.", f.text(t, "+380001112233").Text)

	assert.Equal(t, 1, dbtest.Count(t, f.db, "orders"))
	assert.Equal(t, 0, dbtest.Count(t, f.db, "cart_items"))
	assert.Equal(t, msgHint, f.text(t, "hello").Text)
}

func TestCancelCheckout(t *testing.T) {
	f := setup(t)
	f.press(t, "cart:add:MUG")
	f.press(t, "cart:checkout")

	assert.Equal(t, msgCancelled, f.text(t, "/cancel").Text)
	assert.Equal(t, msgNothingToCancel, f.text(t, "/cancel").Text)
	assert.Equal(t, msgHint, f.text(t, "Kyiv").Text)
}

func TestWebAppSubmission(t *testing.T) {
	f := setup(t)

	r := f.send(t, bot.Update{WebAppData: `{"type":"checkout","items":[{"sku":"MUG","qty":2},{"sku":"OFF"}],
		"city":"Kyiv","branch":"12","receiver":"Jane","phone":"+380"}`})[0]
	assert.Equal(t, "✅ Order #1 created! We will contact you about delivery.", r.Text)

	assert.Equal(t, msgEmptyOrder, f.send(t, bot.Update{WebAppData: `{"type":"checkout","items":[{"sku":"OFF"}]}`})[0].Text)
	assert.Equal(t, msgUnknownPayload, f.send(t, bot.Update{WebAppData: `{"type":"hello"}`})[0].Text)
	assert.Equal(t, msgUnreadable, f.send(t, bot.Update{WebAppData: `{`})[0].Text)

	assert.Equal(t, 1, dbtest.Count(t, f.db, "orders"))
}

func TestUnknownCallback(t *testing.T) {
	f := setup(t)
	assert.Equal(t, msgStaleButton, f.press(t, "legacy:button").Text)
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	const limit = 64
	f := setup(t)
	ctx := context.Background()

	sku := strings.Repeat("S", models.MaxSKULength)
	dbtest.SeedProduct(t, f.db, sku, "Long", 1, "UAH", true)
	require.NoError(t, f.h.catalog.SetCategory(ctx, sku, strings.Repeat("Outdoor Garden Furniture ", 5)))
	_, err := f.h.carts.Add(ctx, jane, sku)
	require.NoError(t, err)

	slug := catalog.CategorySlug(strings.Repeat("Outdoor Garden Furniture ", 5))
	var keyboards [][][]bot.Button
	keyboards = append(keyboards, productKeyboard(sku))
	keyboards = append(keyboards, f.h.catalogKeyboard([]models.Product{{SKU: sku, Title: "Long"}}, 999, 100000, slug))
	sum, err := f.h.carts.Summary(ctx, jane)
	require.NoError(t, err)
	keyboards = append(keyboards, cartKeyboard(sum))

	for _, kb := range keyboards {
		for _, row := range kb {
			for _, b := range row {
				assert.LessOrEqual(t, len(b.Data), limit, "callback %q", b.Data)
			}
		}
	}
}
