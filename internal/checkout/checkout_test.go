package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/tg-storefront/internal/cart"
	"github.com/01moynul/tg-storefront/internal/database"
	"github.com/01moynul/tg-storefront/internal/database/dbtest"
	"github.com/01moynul/tg-storefront/internal/logger"
	"github.com/01moynul/tg-storefront/internal/models"
	"github.com/01moynul/tg-storefront/internal/orders"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) error { return nil }

type fixture struct {
	db       *database.DB
	carts    *cart.Store
	dialogue *Dialogue
}

func setup(t *testing.T, ttl time.Duration) *fixture {
	return setupWithLimit(t, ttl, 100)
}

func setupWithLimit(t *testing.T, ttl time.Duration, maxSessions int) *fixture {
	t.Helper()
	db := dbtest.New(t)
	dbtest.SeedProduct(t, db, "MUG", "Mug", 150, "UAH", true)

	carts := cart.New(db, "UAH")
	ledger := orders.NewLedger(db, nopNotifier{}, logger.Discard())
	t.Cleanup(ledger.Wait)

	d := New(carts, ledger, ttl, maxSessions, logger.Discard())
	return &fixture{db: db, carts: carts, dialogue: d}
}

var buyer = models.Buyer{UserID: 7, Username: "jane", Name: "Jane Doe"}

func TestDialogue_HappyPath(t *testing.T) {
	f := setup(t, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.carts.Add(ctx, buyer.UserID, "MUG")
		require.NoError(t, err)
	}

	prompt, err := f.dialogue.Begin(ctx, buyer.UserID)
	require.NoError(t, err)
	assert.Equal(t, PromptCity, prompt)

	steps := []struct {
		input string
		want  string
	}{
		{"Kyiv", PromptBranch},
		{"Branch 12", PromptReceiver},
		{"Jane Doe", PromptPhone},
	}
	for _, s := range steps {
		res, err := f.dialogue.Input(ctx, buyer, s.input)
		require.NoError(t, err)
		assert.Equal(t, s.want, res.Prompt)
		assert.Nil(t, res.Order)
	}

	res, err := f.dialogue.Input(ctx, buyer, "+380001112233")
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Equal(t, Completed, res.Step)
	assert.Equal(t, int64(300), res.Order.Total)
	assert.Equal(t, models.Delivery{City: "Kyiv", Branch: "Branch 12", Receiver: "Jane Doe", Phone: "+380001112233"}, res.Order.Delivery)

	assert.False(t, f.dialogue.Active(buyer.UserID))
	sum, err := f.carts.Summary(ctx, buyer.UserID)
	require.NoError(t, err)
	assert.True(t, sum.Empty())
	assert.Equal(t, 1, dbtest.Count(t, f.db, "orders"))
}

func TestDialogue_BeginOnEmptyCart(t *testing.T) {
	f := setup(t, 0)

	_, err := f.dialogue.Begin(context.Background(), buyer.UserID)
	assert.ErrorIs(t, err, models.ErrEmptyCart)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.False(t, f.dialogue.Active(buyer.UserID))
}

func TestDialogue_BlankInputRepeatsPrompt(t *testing.T) {
	f := setup(t, 0)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, buyer.UserID, "MUG")
	require.NoError(t, err)
	_, err = f.dialogue.Begin(ctx, buyer.UserID)
	require.NoError(t, err)

	res, err := f.dialogue.Input(ctx, buyer, "   ")
	require.NoError(t, err)
	assert.Equal(t, AwaitingCity, res.Step)
	assert.Equal(t, PromptCity, res.Prompt)
}

func TestDialogue_InputWithoutSession(t *testing.T) {
	f := setup(t, 0)

	_, err := f.dialogue.Input(context.Background(), buyer, "Kyiv")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestDialogue_SessionDiscardedWhenOrderFails(t *testing.T) {
	f := setup(t, 0)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, buyer.UserID, "MUG")
	require.NoError(t, err)
	_, err = f.dialogue.Begin(ctx, buyer.UserID)
	require.NoError(t, err)

	for _, in := range []string{"Kyiv", "12", "Jane"} {
		_, err := f.dialogue.Input(ctx, buyer, in)
		require.NoError(t, err)
	}

	// The cart is emptied elsewhere before the last answer arrives.
	require.NoError(t, f.carts.Clear(ctx, buyer.UserID))

	_, err = f.dialogue.Input(ctx, buyer, "+380")
	assert.ErrorIs(t, err, models.ErrEmptyCart)
	assert.False(t, f.dialogue.Active(buyer.UserID))
	assert.Equal(t, 0, dbtest.Count(t, f.db, "orders"))
}

func TestDialogue_Cancel(t *testing.T) {
	f := setup(t, 0)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, buyer.UserID, "MUG")
	require.NoError(t, err)
	_, err = f.dialogue.Begin(ctx, buyer.UserID)
	require.NoError(t, err)

	assert.True(t, f.dialogue.Cancel(buyer.UserID))
	assert.False(t, f.dialogue.Cancel(buyer.UserID))
	assert.False(t, f.dialogue.Active(buyer.UserID))
}

func TestDialogue_Expiry(t *testing.T) {
	ttl := 200 * time.Millisecond
	f := setup(t, ttl)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, buyer.UserID, "MUG")
	require.NoError(t, err)
	_, err = f.dialogue.Begin(ctx, buyer.UserID)
	require.NoError(t, err)

	// Activity keeps the session alive past the original deadline.
	time.Sleep(ttl * 3 / 5)
	_, err = f.dialogue.Input(ctx, buyer, "Kyiv")
	require.NoError(t, err)
	time.Sleep(ttl * 3 / 5)
	assert.True(t, f.dialogue.Active(buyer.UserID))

	// Idle past the TTL behaves as if no session existed.
	time.Sleep(ttl * 3 / 2)
	assert.False(t, f.dialogue.Active(buyer.UserID))
	assert.False(t, f.dialogue.Cancel(buyer.UserID))

	_, err = f.dialogue.Input(ctx, buyer, "Branch 12")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestDialogue_EvictsOldestBeyondLimit(t *testing.T) {
	f := setupWithLimit(t, 0, 2)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		_, err := f.carts.Add(ctx, id, "MUG")
		require.NoError(t, err)
		_, err = f.dialogue.Begin(ctx, id)
		require.NoError(t, err)
	}

	assert.False(t, f.dialogue.Active(1))
	assert.True(t, f.dialogue.Active(2))
	assert.True(t, f.dialogue.Active(3))
}

func TestStepPrompt(t *testing.T) {
	assert.Equal(t, "", Completed.Prompt())
	assert.Equal(t, "awaiting_phone", AwaitingPhone.String())
}
