package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreScanKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, PositionKey("bitget", "BTC/USDT"), "a", 0))
	require.NoError(t, s.Set(ctx, PositionKey("bitget", "ETH/USDT"), "b", 0))
	require.NoError(t, s.Set(ctx, PositionKey("okx", "BTC/USDT"), "c", 0))

	keys, err := s.ScanKeys(ctx, PositionPattern("bitget"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{PositionKey("bitget", "BTC/USDT"), PositionKey("bitget", "ETH/USDT")}, keys)

	all, err := s.ScanKeys(ctx, PositionPattern(""))
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStoreListOps(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.RPush(ctx, TradeHistoryKey, "t1"))
	require.NoError(t, s.RPush(ctx, TradeHistoryKey, "t2"))
	require.NoError(t, s.RPush(ctx, TradeHistoryKey, "t3"))

	all, err := s.LRange(ctx, TradeHistoryKey, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "t3"}, all)

	last2, err := s.LRange(ctx, TradeHistoryKey, -2, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3"}, last2)
}

func TestMemoryStorePubSub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemoryStore()

	ch, err := s.Subscribe(ctx, PriceChannel("bitget", "BTC/USDT"))
	require.NoError(t, err)

	require.NoError(t, s.Publish(ctx, PriceChannel("bitget", "BTC/USDT"), "tick"))

	select {
	case msg := <-ch:
		assert.Equal(t, "tick", msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "latest:bitget:BTC/USDT", LatestKey("bitget", "BTC/USDT"))
	assert.Equal(t, "funding:bitget:BTC/USDT", FundingKey("bitget", "BTC/USDT"))
	assert.Equal(t, "position:bitget:BTC/USDT", PositionKey("bitget", "BTC/USDT"))
	assert.Equal(t, "position:*", PositionPattern(""))
	assert.Equal(t, "position:bitget:*", PositionPattern("bitget"))
	assert.Equal(t, "basis:bitget:BTC/USDT:100", BasisKey("bitget", "BTC/USDT", 100))
	assert.Equal(t, "basis:bitget:BTC/USDT:-5", BasisKey("bitget", "BTC/USDT", -5))
}
