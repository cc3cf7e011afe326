package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestDraftStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewDraftStore(client, time.Minute)
	ctx := context.Background()

	draft := ReceiptDraft{
		DocumentNumber: "2500007",
		Generated:      true,
		Legs: []DraftLeg{
			{Account: "10000", Date: "10.03.2025", Text: "round trip", Debit: "12.30"},
		},
	}
	require.NoError(t, store.Put(ctx, "tok-1", draft))

	loaded, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, draft, loaded)

	require.NoError(t, store.Delete(ctx, "tok-1"))
	_, err = store.Get(ctx, "tok-1")
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestDraftStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewDraftStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tok-2", ReceiptDraft{DocumentNumber: "2500008"}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "tok-2")
	require.ErrorIs(t, err, ErrDraftNotFound)
}
