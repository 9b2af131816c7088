package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/tg-storefront/internal/database/dbtest"
	"github.com/01moynul/tg-storefront/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db := dbtest.New(t)
	dbtest.SeedProduct(t, db, "MUG", "Mug", 150, "UAH", true)
	dbtest.SeedProduct(t, db, "TEE", "Tee", 400, "UAH", true)
	dbtest.SeedProduct(t, db, "OLD", "Old", 10, "UAH", false)
	dbtest.SeedProduct(t, db, "CAP", "Cap", 20, "USD", true)
	return New(db, "UAH")
}

func TestAdd_IncrementsQuantity(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	p, err := s.Add(ctx, 1, "MUG")
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Title)
	_, err = s.Add(ctx, 1, "MUG")
	require.NoError(t, err)

	sum, err := s.Summary(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sum.Lines, 1)
	assert.Equal(t, 2, sum.Lines[0].Qty)
	assert.Equal(t, int64(300), sum.Total)
	assert.Equal(t, "UAH", sum.Currency)
}

func TestAdd_RejectsUnavailable(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, 1, "OLD")
	assert.ErrorIs(t, err, models.ErrProductUnavailable)
	_, err = s.Add(ctx, 1, "GHOST")
	assert.ErrorIs(t, err, models.ErrProductUnavailable)

	assert.Equal(t, 0, dbtest.Count(t, s.db, "cart_items"))
}

func TestAdd_RejectsMixedCurrency(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, 1, "MUG")
	require.NoError(t, err)
	_, err = s.Add(ctx, 1, "CAP")
	assert.ErrorIs(t, err, models.ErrMixedCurrency)
	assert.ErrorIs(t, err, models.ErrValidation)

	sum, err := s.Summary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count())
}

func TestSummary_FollowsLivePrice(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, 7, "TEE")
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, "UPDATE products SET price = 500 WHERE sku = 'TEE'")
	require.NoError(t, err)

	sum, err := s.Summary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(500), sum.Total)
}

func TestSummary_KeepsLinesOfDeactivatedProducts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, 7, "TEE")
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, "UPDATE products SET is_active = 0 WHERE sku = 'TEE'")
	require.NoError(t, err)

	sum, err := s.Summary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count())
}

func TestSummary_EmptyCartUsesDefaultCurrency(t *testing.T) {
	s := setupStore(t)

	sum, err := s.Summary(context.Background(), 99)
	require.NoError(t, err)
	assert.True(t, sum.Empty())
	assert.Equal(t, int64(0), sum.Total)
	assert.Equal(t, "UAH", sum.Currency)
}

func TestDecrement(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.Add(ctx, 1, "MUG")
		require.NoError(t, err)
	}

	require.NoError(t, s.Decrement(ctx, 1, "MUG"))
	sum, err := s.Summary(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sum.Lines, 1)
	assert.Equal(t, 1, sum.Lines[0].Qty)

	require.NoError(t, s.Decrement(ctx, 1, "MUG"))
	require.NoError(t, s.Decrement(ctx, 1, "MUG"))
	assert.Equal(t, 0, dbtest.Count(t, s.db, "cart_items"))
}

func TestClear_IsIdempotentAndScoped(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, 1, "MUG")
	require.NoError(t, err)
	_, err = s.Add(ctx, 2, "MUG")
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, 1))
	require.NoError(t, s.Clear(ctx, 1))

	assert.Equal(t, 1, dbtest.Count(t, s.db, "cart_items"))
}
