package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/tg-storefront/internal/database/dbtest"
	"github.com/01moynul/tg-storefront/internal/models"
)

func TestStore_GetSet(t *testing.T) {
	s := New(dbtest.New(t))
	ctx := context.Background()

	_, err := s.Get(ctx, models.SettingPrimaryChannel)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.Set(ctx, models.SettingPrimaryChannel, "111"))
	require.NoError(t, s.Set(ctx, models.SettingPrimaryChannel, "222"))

	v, err := s.Get(ctx, models.SettingPrimaryChannel)
	require.NoError(t, err)
	assert.Equal(t, "222", v)
	assert.Equal(t, 1, dbtest.Count(t, s.db, "settings"))
}
