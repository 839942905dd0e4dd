package exchange

import (
	"context"

	"github.com/kwonlabs/xge/internal/model"
)

// fakeMarket is a canned MarketDataPort for exercising PaperExecutor
// without a real gateway.
type fakeMarket struct {
	books map[string]model.OrderBookSnapshot
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{books: make(map[string]model.OrderBookSnapshot)}
}

func (f *fakeMarket) setBook(symbol string, bid, ask float64) {
	f.books[symbol] = model.OrderBookSnapshot{Bid: bid, Ask: ask}
}

func (f *fakeMarket) GetOrderBook(ctx context.Context, exchange, symbol string) (model.OrderBookSnapshot, error) {
	return f.books[symbol], nil
}

func (f *fakeMarket) GetFundingRate(ctx context.Context, exchange, symbol string) (model.FundingEntry, error) {
	return model.FundingEntry{}, nil
}

func (f *fakeMarket) GetFundingHistory(ctx context.Context, exchange, symbol string, periods int) ([]model.FundingEntry, error) {
	return nil, nil
}

func (f *fakeMarket) GetVolume24h(ctx context.Context, exchange, symbol string) (float64, error) {
	return 0, nil
}

func (f *fakeMarket) GetOpenInterest(ctx context.Context, exchange, symbol string) (float64, float64, error) {
	return 0, 0, nil
}
