// FILE: ports.go
// Package exchange defines the two ports the engine talks to —
// OrderExecutionPort and MarketDataPort — keeping exchange connectivity
// as an external collaborator behind an interface, the way the teacher's
// broker.go isolates the trading loop from any one venue's wire format.
package exchange

import (
	"context"

	"github.com/kwonlabs/xge/internal/model"
)

// OrderExecutionPort executes the two-leg open/close trades the engine
// issues. Implementations: PaperExecutor (simulated) and GatewayExecutor
// (an external execution gateway, e.g. a ccxt-backed sidecar).
type OrderExecutionPort interface {
	Name() string
	// Connect prepares exchangeID for trading (credential check, session
	// setup); a no-op for paper mode.
	Connect(ctx context.Context, exchangeID string) error
	// ExecuteOpen buys spot and shorts perp per signal, returning the two
	// leg fills in (spot, perp) order.
	ExecuteOpen(ctx context.Context, signal model.TradeSignal) (spot, perp model.LegFill, err error)
	// ExecuteClose sells spot and closes the perp short for the given
	// quantities, returning the two leg fills in (spot, perp) order.
	ExecuteClose(ctx context.Context, signal model.TradeSignal, spotQuantity, perpQuantity float64) (spot, perp model.LegFill, err error)
}

// MarketDataPort is the read-only market data surface the validator and
// PaperExecutor pull from. A live implementation fetches from an exchange
// gateway; the entry/exit gates and the delta monitor instead read cached
// snapshots back out of internal/store via internal/marketdata.
type MarketDataPort interface {
	GetOrderBook(ctx context.Context, exchange, symbol string) (model.OrderBookSnapshot, error)
	GetFundingRate(ctx context.Context, exchange, symbol string) (model.FundingEntry, error)
	// GetFundingHistory returns the most recent `periods` funding entries,
	// oldest first, used by the validator's 7-day positivity check.
	GetFundingHistory(ctx context.Context, exchange, symbol string, periods int) ([]model.FundingEntry, error)
	GetVolume24h(ctx context.Context, exchange, symbol string) (float64, error)
	// GetOpenInterest returns current and 24h-ago open interest for the
	// drop-percentage check (spec §4.3).
	GetOpenInterest(ctx context.Context, exchange, symbol string) (current, dayAgo float64, err error)
}
