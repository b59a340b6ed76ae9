package yearcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.GetYears(ctx, "docs:year:abc")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.PutYears(ctx, "docs:year:abc", []int{2020, 2021}, 0))
	years, ok, err := store.GetYears(ctx, "docs:year:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int{2020, 2021}, years)

	years[0] = 1900
	years, _, _ = store.GetYears(ctx, "docs:year:abc")
	require.Equal(t, 2020, years[0])
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.PutYears(ctx, "k", []int{}, time.Minute))
	_, ok, _ := store.GetYears(ctx, "k")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = store.GetYears(ctx, "k")
	require.False(t, ok)
}

func TestMemoryStoreInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.PutYears(ctx, "k", []int{2022}, 0))
	require.NoError(t, store.Invalidate(ctx))
	_, ok, _ := store.GetYears(ctx, "k")
	require.False(t, ok)
}
