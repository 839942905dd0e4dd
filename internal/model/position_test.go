package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionCalculatePnL(t *testing.T) {
	p := Position{
		Status:           StatusClosed,
		SpotEntryPrice:   100,
		SpotExitPrice:    105,
		SpotQuantity:     1,
		PerpEntryPrice:   100,
		PerpExitPrice:    97,
		PerpQuantity:     1,
		FundingCollected: 2,
	}
	// spot: (105-100)*1=5, perp: (100-97)*1=3, funding=2 -> 10
	assert.InDelta(t, 10.0, p.CalculatePnL(), 1e-6)
}

func TestPositionCalculatePnLNotClosed(t *testing.T) {
	p := Position{Status: StatusOpen, SpotQuantity: 1, PerpQuantity: 1}
	assert.Equal(t, 0.0, p.CalculatePnL())
}

func TestPositionEstimateUnrealizedPnL(t *testing.T) {
	p := Position{
		SpotEntryPrice:   100,
		SpotQuantity:     2,
		PerpEntryPrice:   100,
		PerpQuantity:     2,
		FundingCollected: 1,
	}
	// spot: (110-100)*2=20, perp: (100-98)*2=4, funding=1 -> 25
	assert.InDelta(t, 25.0, p.EstimateUnrealizedPnL(110, 98), 1e-6)
}

func TestPositionRoundTrip(t *testing.T) {
	p := Position{
		Exchange:        "bitget",
		Symbol:          "BTC/USDT",
		PerpSymbol:      "BTC/USDT:USDT",
		Direction:       DirectionLongSpotShortPerp,
		Status:          StatusOpen,
		Tier:            "tier_1",
		SizeUSDT:        315,
		SpotEntryPrice:  50000,
		SpotQuantity:    0.0063,
		PerpEntryPrice:  50010,
		PerpQuantity:    0.0063,
		EntryFundingRate: 0.0005,
		Paper:           true,
	}
	raw, err := p.ToJSON()
	require.NoError(t, err)
	back, err := PositionFromJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestPositionKey(t *testing.T) {
	p := Position{Exchange: "bitget", Symbol: "BTC/USDT"}
	assert.Equal(t, "position:bitget:BTC/USDT", p.Key())
	assert.Equal(t, p.Key(), PositionKey("bitget", "BTC/USDT"))
}

func TestSpotToPerp(t *testing.T) {
	assert.Equal(t, "BTC/USDT:USDT", SpotToPerp("BTC/USDT"))
	assert.Equal(t, "BTC/USDT:USDT", SpotToPerp("BTC/USDT:USDT"))
}

func TestFundingEntryAnnualizedRatePct(t *testing.T) {
	f := FundingEntry{FundingRate: 0.0005}
	// 0.0005 * 3 * 365 * 100 = 54.75
	assert.InDelta(t, 54.75, f.AnnualizedRatePct(), 1e-9)
}

func TestClassifyDirection(t *testing.T) {
	pos := FundingEntry{FundingRate: 0.0005}
	dir, ann, ok := ClassifyDirection(pos, 10)
	require.True(t, ok)
	assert.Equal(t, DirectionLongSpotShortPerp, dir)
	assert.InDelta(t, 54.75, ann, 1e-9)

	neg := FundingEntry{FundingRate: -0.0005}
	dir, _, ok = ClassifyDirection(neg, 10)
	require.True(t, ok)
	assert.Equal(t, DirectionShortSpotLongPerp, dir)

	weak := FundingEntry{FundingRate: 0.0000001}
	_, _, ok = ClassifyDirection(weak, 10)
	assert.False(t, ok)
}
