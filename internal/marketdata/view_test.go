package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/kwonlabs/xge/internal/model"
	"github.com/kwonlabs/xge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestOrderBookMissing(t *testing.T) {
	v := New(store.NewMemoryStore())
	_, ok, err := v.LatestOrderBook(context.Background(), "bitget", "BTC/USDT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestOrderBookRoundTrip(t *testing.T) {
	s := store.NewMemoryStore()
	snap := model.OrderBookSnapshot{Exchange: "bitget", Symbol: "BTC/USDT", Bid: 100, Ask: 101}
	raw, err := snap.ToJSON()
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), store.LatestKey("bitget", "BTC/USDT"), raw, 0))

	v := New(s)
	got, ok, err := v.LatestOrderBook(context.Background(), "bitget", "BTC/USDT")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, snap, got)
}

func TestLatestFundingRoundTrip(t *testing.T) {
	s := store.NewMemoryStore()
	entry := model.FundingEntry{Exchange: "bitget", SpotSymbol: "BTC/USDT", FundingRate: 0.0005}
	raw, err := entry.ToJSON()
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), store.FundingKey("bitget", "BTC/USDT"), raw, 0))

	v := New(s)
	got, ok, err := v.LatestFunding(context.Background(), "bitget", "BTC/USDT")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry, got)
}

func TestIsStale(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	fresh := model.FundingEntry{Timestamp: float64(now.Add(-1 * time.Minute).Unix())}
	assert.False(t, IsStale(fresh, now, 5*time.Minute))

	stale := model.FundingEntry{Timestamp: float64(now.Add(-20 * time.Minute).Unix())}
	assert.True(t, IsStale(stale, now, 5*time.Minute))
}
