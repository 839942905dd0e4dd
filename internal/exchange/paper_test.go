package exchange

import (
	"context"
	"testing"

	"github.com/kwonlabs/xge/internal/model"
	"github.com/kwonlabs/xge/internal/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *tier.Registry {
	return tier.NewRegistry(
		[]tier.Tier{{Name: "tier_1", Symbols: []string{"BTC/USDT"}, CapitalTotal: 1000, SizePerPair: 200, MaxPairsOpen: 2}},
		nil,
		map[string]tier.FeeSchedule{"bitget": {Spot: 0.001, PerpMaker: 0.0002, PerpTaker: 0.0006}},
	)
}

func TestPaperExecutorExecuteOpen(t *testing.T) {
	market := newFakeMarket()
	market.setBook("BTC/USDT", 49990, 50010)
	market.setBook("BTC/USDT:USDT", 50005, 50015)

	p := NewPaperExecutor(market, testRegistry())
	signal := model.TradeSignal{Exchange: "bitget", Symbol: "BTC/USDT", PerpSymbol: "BTC/USDT:USDT", SizeUSDT: 1000}

	spot, perp, err := p.ExecuteOpen(context.Background(), signal)
	require.NoError(t, err)

	assert.Equal(t, "buy", spot.Side)
	assert.Equal(t, 50010.0, spot.Price)
	assert.InDelta(t, 1000.0/50010, spot.Quantity, 1e-9)
	assert.InDelta(t, 1000*0.001, spot.Fee, 1e-9)
	assert.NotEmpty(t, spot.ClientOrderID)

	assert.Equal(t, "sell", perp.Side)
	assert.Equal(t, 50005.0, perp.Price)
	assert.InDelta(t, 1000.0/50005, perp.Quantity, 1e-9)
	assert.InDelta(t, 1000*0.0006, perp.Fee, 1e-9)
	assert.NotEmpty(t, perp.ClientOrderID)
}

func TestPaperExecutorExecuteClose(t *testing.T) {
	market := newFakeMarket()
	market.setBook("BTC/USDT", 49990, 50010)
	market.setBook("BTC/USDT:USDT", 50005, 50015)

	p := NewPaperExecutor(market, testRegistry())
	signal := model.TradeSignal{Exchange: "bitget", Symbol: "BTC/USDT", PerpSymbol: "BTC/USDT:USDT"}

	spot, perp, err := p.ExecuteClose(context.Background(), signal, 0.02, 0.02)
	require.NoError(t, err)

	assert.Equal(t, "sell", spot.Side)
	assert.Equal(t, 49990.0, spot.Price)
	assert.InDelta(t, 0.02, spot.Quantity, 1e-12)

	assert.Equal(t, "buy", perp.Side)
	assert.Equal(t, 50015.0, perp.Price)
	assert.InDelta(t, 0.02, perp.Quantity, 1e-12)
	assert.InDelta(t, 50015*0.02*0.0002, perp.Fee, 1e-9)
}

func TestPaperExecutorConnectIsNoop(t *testing.T) {
	p := NewPaperExecutor(newFakeMarket(), testRegistry())
	require.NoError(t, p.Connect(context.Background(), "bitget"))
	assert.Equal(t, "paper", p.Name())
}
