package exit

import (
	"context"
	"testing"
	"time"

	"github.com/kwonlabs/xge/internal/delta"
	"github.com/kwonlabs/xge/internal/exchange"
	"github.com/kwonlabs/xge/internal/marketdata"
	"github.com/kwonlabs/xge/internal/model"
	"github.com/kwonlabs/xge/internal/position"
	"github.com/kwonlabs/xge/internal/store"
	"github.com/kwonlabs/xge/internal/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	books map[string]model.OrderBookSnapshot
}

func (f *fakeMarket) GetOrderBook(ctx context.Context, exchangeID, symbol string) (model.OrderBookSnapshot, error) {
	return f.books[symbol], nil
}
func (f *fakeMarket) GetFundingRate(ctx context.Context, exchangeID, symbol string) (model.FundingEntry, error) {
	return model.FundingEntry{}, nil
}
func (f *fakeMarket) GetFundingHistory(ctx context.Context, exchangeID, symbol string, periods int) ([]model.FundingEntry, error) {
	return nil, nil
}
func (f *fakeMarket) GetVolume24h(ctx context.Context, exchangeID, symbol string) (float64, error) {
	return 0, nil
}
func (f *fakeMarket) GetOpenInterest(ctx context.Context, exchangeID, symbol string) (float64, float64, error) {
	return 0, 0, nil
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{books: map[string]model.OrderBookSnapshot{
		"BTC/USDT":      {Bid: 50000, Ask: 50010},
		"BTC/USDT:USDT": {Bid: 50005, Ask: 50015},
	}}
}

func setup(t *testing.T, paper bool) (*Controller, *delta.Monitor, store.Store, *tier.Registry) {
	t.Helper()
	s := store.NewMemoryStore()
	market := newFakeMarket()
	tiers := tier.NewRegistry(
		[]tier.Tier{{Name: "tier_1", Symbols: []string{"BTC/USDT"}, CapitalTotal: 1000, SizePerPair: 200, MaxPairsOpen: 2, StopLossFraction: 0.1, DeltaAlertFraction: 0.02}},
		nil, nil,
	)
	view := marketdata.New(s)
	positions := position.New(s, 3, 10)
	monitor := delta.New(s, view, tiers, paper)
	executor := exchange.NewPaperExecutor(market, tiers)
	ctrl := New(view, positions, tiers, monitor, executor, 5*time.Minute)
	return ctrl, monitor, s, tiers
}

func seedFundingAndBook(t *testing.T, s store.Store, rate float64, age time.Duration) {
	t.Helper()
	ctx := context.Background()
	funding := model.FundingEntry{Exchange: "bitget", SpotSymbol: "BTC/USDT", FundingRate: rate, Timestamp: float64(time.Now().Add(-age).Unix())}
	raw, err := funding.ToJSON()
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, store.FundingKey("bitget", "BTC/USDT"), raw, 0))

	book := model.OrderBookSnapshot{Exchange: "bitget", Symbol: "BTC/USDT", Bid: 50000, Ask: 50010}
	rawBook, err := book.ToJSON()
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, store.LatestKey("bitget", "BTC/USDT"), rawBook, 0))
}

func TestAccrueFundingAddsPayment(t *testing.T) {
	ctrl, _, s, _ := setup(t, true)
	seedFundingAndBook(t, s, 0.0005, 0)

	now := time.Now()
	p := model.Position{
		Exchange: "bitget", Symbol: "BTC/USDT", Status: model.StatusOpen,
		PerpQuantity: 0.004, LastFundingUpdate: float64(now.Add(-4 * time.Hour).Unix()),
	}
	updated, funding, ok, err := ctrl.AccrueFunding(context.Background(), p, now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Greater(t, updated.FundingCollected, 0.0)
	assert.Equal(t, 0.0005, funding.FundingRate)
}

func TestAccrueFundingSkipsOnStaleFunding(t *testing.T) {
	ctrl, _, s, _ := setup(t, true)
	seedFundingAndBook(t, s, 0.0005, 1*time.Hour)

	p := model.Position{Exchange: "bitget", Symbol: "BTC/USDT", Status: model.StatusOpen}
	_, _, ok, err := ctrl.AccrueFunding(context.Background(), p, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateFundingDropAfterMinHold(t *testing.T) {
	ctrl, _, _, _ := setup(t, true)
	now := time.Now()
	p := model.Position{
		Exchange: "bitget", Symbol: "BTC/USDT", EntryFundingRate: 0.0005,
		OpenedAt: float64(now.Add(-10 * time.Hour).Unix()),
	}
	current := model.FundingEntry{FundingRate: 0.0003}
	reason, fired := ctrl.Evaluate(p, current, 0, now, false)
	assert.True(t, fired)
	assert.Equal(t, model.ExitReasonFundingDrop, reason)
}

func TestEvaluateFundingDropSuppressedBeforeMinHold(t *testing.T) {
	ctrl, _, _, _ := setup(t, true)
	now := time.Now()
	p := model.Position{
		Exchange: "bitget", Symbol: "BTC/USDT", EntryFundingRate: 0.0005,
		OpenedAt: float64(now.Add(-1 * time.Hour).Unix()),
	}
	current := model.FundingEntry{FundingRate: 0.0003}
	_, fired := ctrl.Evaluate(p, current, 0, now, false)
	assert.False(t, fired)
}

func TestEvaluateFundingNegativeFiresRegardlessOfHold(t *testing.T) {
	ctrl, monitor, _, _ := setup(t, true)
	now := time.Now()
	p := model.Position{
		Exchange: "bitget", Symbol: "BTC/USDT", EntryFundingRate: 0.0005,
		OpenedAt: float64(now.Add(-1 * time.Hour).Unix()),
	}
	monitor.TrackNegativeFunding("bitget", "BTC/USDT", true)
	monitor.TrackNegativeFunding("bitget", "BTC/USDT", true)

	current := model.FundingEntry{FundingRate: 0.0005}
	reason, fired := ctrl.Evaluate(p, current, 0, now, false)
	assert.True(t, fired)
	assert.Equal(t, model.ExitReasonFundingNegative, reason)
}

func TestEvaluateSingleNegativeObservationDoesNotFire(t *testing.T) {
	ctrl, monitor, _, _ := setup(t, true)
	now := time.Now()
	p := model.Position{
		Exchange: "bitget", Symbol: "BTC/USDT", EntryFundingRate: 0.0005,
		OpenedAt: float64(now.Add(-1 * time.Hour).Unix()),
	}
	monitor.TrackNegativeFunding("bitget", "BTC/USDT", true)

	current := model.FundingEntry{FundingRate: 0.0005}
	_, fired := ctrl.Evaluate(p, current, 0, now, false)
	assert.False(t, fired)
}

func TestEvaluateStopLossFiresRegardlessOfHold(t *testing.T) {
	ctrl, _, _, _ := setup(t, true)
	now := time.Now()
	p := model.Position{
		Exchange: "bitget", Symbol: "BTC/USDT", EntryFundingRate: 0.0005,
		OpenedAt: float64(now.Add(-1 * time.Hour).Unix()), FundingCollected: 5,
	}
	// tier_1 stop_loss_fraction=0.1, size_per_pair=200 -> threshold=-20
	reason, fired := ctrl.Evaluate(p, model.FundingEntry{FundingRate: 0.0005}, -25, now, false)
	assert.True(t, fired)
	assert.Equal(t, model.ExitReasonStopLoss, reason)
}

func TestEvaluateStopLossNotTriggeredAtExactBoundary(t *testing.T) {
	ctrl, _, _, _ := setup(t, true)
	now := time.Now()
	p := model.Position{
		Exchange: "bitget", Symbol: "BTC/USDT", EntryFundingRate: 0.0005,
		OpenedAt: float64(now.Add(-1 * time.Hour).Unix()), FundingCollected: 20,
	}
	reason, fired := ctrl.Evaluate(p, model.FundingEntry{FundingRate: 0.0005}, -20, now, false)
	assert.False(t, fired)
	assert.Equal(t, model.ExitReason(""), reason)
}

func TestEvaluateReserveProtectionBypassesMinHold(t *testing.T) {
	ctrl, _, _, _ := setup(t, true)
	now := time.Now()
	p := model.Position{
		Exchange: "bitget", Symbol: "BTC/USDT", EntryFundingRate: 0.0005,
		OpenedAt: float64(now.Add(-1 * time.Minute).Unix()),
	}
	reason, fired := ctrl.Evaluate(p, model.FundingEntry{FundingRate: 0.0005}, 0, now, true)
	assert.True(t, fired)
	assert.Equal(t, model.ExitReasonReserveProtection, reason)
}

func TestCloseComputesRealizedPnLAndResetsCounters(t *testing.T) {
	ctrl, monitor, s, _ := setup(t, true)
	monitor.TrackNegativeFunding("bitget", "BTC/USDT", true)

	p := model.Position{
		Exchange: "bitget", Symbol: "BTC/USDT", PerpSymbol: "BTC/USDT:USDT",
		Status: model.StatusOpen, Tier: "tier_1", SizeUSDT: 200,
		SpotEntryPrice: 49000, SpotQuantity: 0.004,
		PerpEntryPrice: 49010, PerpQuantity: 0.004,
		FundingCollected: 1.5,
	}
	require.NoError(t, position.New(s, 3, 10).Save(context.Background(), p))

	outcome, err := ctrl.Close(context.Background(), p, model.ExitReasonFundingDrop, time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.Closed)
	assert.Equal(t, model.StatusClosed, outcome.Position.Status)
	assert.InDelta(t, outcome.Position.CalculatePnL(), outcome.Position.RealizedPnL, 1e-9)
	assert.Equal(t, 0, monitor.NegativeCount("bitget", "BTC/USDT"))
}
