package redis_a_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/ammerola/pos-ledger/internal/adapters/redis_adapter"
	"github.com/ammerola/pos-ledger/test/helpers"
)

func TestCartStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := helpers.SetupTestRedis(t)
	store := redis_a.NewCartStore(r.Client, time.Hour, helpers.TestLogger())

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	cart := helpers.CreateTestCart("POS2", 3.5, 10)
	require.NoError(t, store.Save(ctx, "sess-1", cart))
	assert.True(t, r.Server.Exists("pos:cart:sess-1"))

	got, err = store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "POS2", got.Terminal)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Items[0].Subtotal.Equal(cart.Items[0].Subtotal))

	require.NoError(t, store.Clear(ctx, "sess-1"))
	got, err = store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCartStore_Expires(t *testing.T) {
	ctx := context.Background()
	r := helpers.SetupTestRedis(t)
	store := redis_a.NewCartStore(r.Client, time.Minute, helpers.TestLogger())

	require.NoError(t, store.Save(ctx, "sess-2", helpers.CreateTestCart("POS1", 1)))
	assert.Equal(t, time.Minute, r.Server.TTL("pos:cart:sess-2"))

	r.Server.FastForward(2 * time.Minute)

	got, err := store.Get(ctx, "sess-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCartStore_UnreadableCartIsDropped(t *testing.T) {
	r := helpers.SetupTestRedis(t)
	store := redis_a.NewCartStore(r.Client, time.Hour, helpers.TestLogger())

	require.NoError(t, r.Server.Set("pos:cart:bad", "{not json"))

	got, err := store.Get(context.Background(), "bad")
	require.NoError(t, err)
	assert.Nil(t, got)
}
