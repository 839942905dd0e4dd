// FILE: paper.go
// PaperExecutor simulates fills against the latest cached order book,
// grounded on the teacher's broker_paper.go (PaperBroker: in-memory,
// env-free simulated fills) and original_source's executor.py
// _paper_open/_paper_close (fill against ticker ask/bid, flat 0.1% fee
// estimate until a real fee schedule is supplied).
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kwonlabs/xge/internal/model"
	"github.com/kwonlabs/xge/internal/tier"
)

// nowFunc is overridable in tests; defaults to time.Now().
var nowFunc = func() float64 { return float64(time.Now().Unix()) }

// PaperExecutor fills trades against snapshots supplied by a
// MarketDataPort, charging fees from a tier.Registry the way
// executor.py derives an estimated fee per fill.
type PaperExecutor struct {
	market MarketDataPort
	fees   *tier.Registry
}

// NewPaperExecutor builds a PaperExecutor reading prices from market and
// charging fees from fees.
func NewPaperExecutor(market MarketDataPort, fees *tier.Registry) *PaperExecutor {
	return &PaperExecutor{market: market, fees: fees}
}

func (p *PaperExecutor) Name() string { return "paper" }

// Connect is a no-op; paper mode never holds exchange credentials.
func (p *PaperExecutor) Connect(ctx context.Context, exchangeID string) error { return nil }

// ExecuteOpen buys spot at the ask and shorts perp at the bid, the same
// crossing-the-spread convention as _paper_open.
func (p *PaperExecutor) ExecuteOpen(ctx context.Context, signal model.TradeSignal) (model.LegFill, model.LegFill, error) {
	spotBook, err := p.market.GetOrderBook(ctx, signal.Exchange, signal.Symbol)
	if err != nil {
		return model.LegFill{}, model.LegFill{}, fmt.Errorf("paper open: spot book: %w", err)
	}
	perpBook, err := p.market.GetOrderBook(ctx, signal.Exchange, signal.PerpSymbol)
	if err != nil {
		return model.LegFill{}, model.LegFill{}, fmt.Errorf("paper open: perp book: %w", err)
	}

	spotPrice := spotBook.Ask
	perpPrice := perpBook.Bid
	spotQty := signal.SizeUSDT / spotPrice
	perpQty := signal.SizeUSDT / perpPrice

	fees := p.fees.FeesFor(signal.Exchange)
	now := nowFunc()

	spot := model.LegFill{
		Side: "buy", MarketType: "spot", Symbol: signal.Symbol,
		Price: spotPrice, Quantity: spotQty, Fee: signal.SizeUSDT * fees.Spot, Timestamp: now,
		ClientOrderID: newClientOrderID(),
	}
	perp := model.LegFill{
		Side: "sell", MarketType: "perp", Symbol: signal.PerpSymbol,
		Price: perpPrice, Quantity: perpQty, Fee: signal.SizeUSDT * fees.PerpTaker, Timestamp: now,
		ClientOrderID: newClientOrderID(),
	}
	return spot, perp, nil
}

// ExecuteClose sells spot at the bid and covers the perp short at the
// ask, charging the maker rate on the perp leg (exit is routed through a
// resting order in the live path; paper mirrors that cost).
func (p *PaperExecutor) ExecuteClose(ctx context.Context, signal model.TradeSignal, spotQuantity, perpQuantity float64) (model.LegFill, model.LegFill, error) {
	spotBook, err := p.market.GetOrderBook(ctx, signal.Exchange, signal.Symbol)
	if err != nil {
		return model.LegFill{}, model.LegFill{}, fmt.Errorf("paper close: spot book: %w", err)
	}
	perpBook, err := p.market.GetOrderBook(ctx, signal.Exchange, signal.PerpSymbol)
	if err != nil {
		return model.LegFill{}, model.LegFill{}, fmt.Errorf("paper close: perp book: %w", err)
	}

	spotPrice := spotBook.Bid
	perpPrice := perpBook.Ask

	fees := p.fees.FeesFor(signal.Exchange)
	now := nowFunc()
	notional := spotPrice * spotQuantity

	spot := model.LegFill{
		Side: "sell", MarketType: "spot", Symbol: signal.Symbol,
		Price: spotPrice, Quantity: spotQuantity, Fee: notional * fees.Spot, Timestamp: now,
		ClientOrderID: newClientOrderID(),
	}
	perp := model.LegFill{
		Side: "buy", MarketType: "perp", Symbol: signal.PerpSymbol,
		Price: perpPrice, Quantity: perpQuantity, Fee: perpPrice * perpQuantity * fees.PerpMaker, Timestamp: now,
		ClientOrderID: newClientOrderID(),
	}
	return spot, perp, nil
}

// newClientOrderID mints an idempotency key for a simulated fill,
// mirroring the teacher's use of google/uuid for paper/bridge order IDs.
func newClientOrderID() string {
	return uuid.New().String()
}
