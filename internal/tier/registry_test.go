package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultTestRegistry() *Registry {
	tier1 := Tier{
		Name: "tier_1", Symbols: []string{"BTC/USDT", "ETH/USDT"},
		CapitalTotal: 1260, SizePerPair: 315, MaxPairsOpen: 4,
		MinFundingRate: 0.00008, StopLossFraction: 0.005, DeltaAlertFraction: 0.02,
	}
	tier2 := Tier{
		Name: "tier_2", Symbols: []string{"WLD/USDT"},
		CapitalTotal: 360, SizePerPair: 180, MaxPairsOpen: 2,
		MinFundingRate: 0.00015, StopLossFraction: 0.005, DeltaAlertFraction: 0.02,
	}
	fees := map[string]FeeSchedule{
		"bitget": {Spot: 0.001, PerpMaker: 0.0002, PerpTaker: 0.0006},
	}
	return NewRegistry([]Tier{tier1, tier2}, []string{"ATOM/USDT"}, fees)
}

func TestTierForBlacklistWins(t *testing.T) {
	r := defaultTestRegistry()
	_, ok := r.TierFor("ATOM/USDT")
	assert.False(t, ok)
}

func TestTierForLookup(t *testing.T) {
	r := defaultTestRegistry()
	tr, ok := r.TierFor("BTC/USDT")
	assert.True(t, ok)
	assert.Equal(t, "tier_1", tr.Name)

	_, ok = r.TierFor("UNKNOWN/USDT")
	assert.False(t, ok)
}

func TestFeesForFallback(t *testing.T) {
	r := defaultTestRegistry()
	assert.Equal(t, FeeSchedule{Spot: 0.001, PerpMaker: 0.0002, PerpTaker: 0.0006}, r.FeesFor("bitget"))
	assert.Equal(t, DefaultFeeSchedule, r.FeesFor("unknown_exchange"))
}

func TestAllTierSymbols(t *testing.T) {
	r := defaultTestRegistry()
	assert.ElementsMatch(t, []string{"BTC/USDT", "ETH/USDT", "WLD/USDT"}, r.AllTierSymbols())
}

func TestNewRegistryPanicsOnBadTier(t *testing.T) {
	bad := Tier{Name: "bad", Symbols: []string{"X"}, CapitalTotal: 100, SizePerPair: 60, MaxPairsOpen: 2}
	assert.Panics(t, func() {
		NewRegistry([]Tier{bad}, nil, nil)
	})
}
