// FILE: controller.go
// Package entry implements EntryController (spec §4.5): the 8-step gate
// pipeline that decides whether to open a new basis-trade position for
// one (exchange, symbol) pair, grounded on
// original_source/src/xge/trading/strategy.py's _evaluate_entry.
package entry

import (
	"context"
	"fmt"
	"time"

	"github.com/kwonlabs/xge/internal/breakeven"
	"github.com/kwonlabs/xge/internal/exchange"
	"github.com/kwonlabs/xge/internal/marketdata"
	"github.com/kwonlabs/xge/internal/model"
	"github.com/kwonlabs/xge/internal/position"
	"github.com/kwonlabs/xge/internal/tier"
	"github.com/kwonlabs/xge/internal/validator"
)

// CapitalState mirrors spec §3's derived capital snapshot. Callers
// recompute it each tick from CAPITAL config and PositionStore.History.
type CapitalState struct {
	Deployed         float64
	Free             float64
	EstimatedBalance float64
}

// Decision records the outcome of running the gate for one pair, for
// logging and tests — every gate failure is non-fatal per spec §4.5, so
// a rejected Decision is an expected, common result, not an error.
type Decision struct {
	Opened bool
	Reason string
	Position model.Position
}

// Controller runs the entry gate pipeline.
type Controller struct {
	view      *marketdata.View
	tiers     *tier.Registry
	positions *position.Store
	validator *validator.Validator
	executor  exchange.OrderExecutionPort

	minEntryAnnualizedPct float64
	pollInterval          time.Duration
	operativeFloor        float64
	paper                 bool
}

// New builds a Controller. minEntryAnnualizedPct and pollInterval come
// from TradingConfig/FundingConfig; operativeFloor is CAPITAL.operative
// (gate 5's reserve-intact check); paper marks positions opened through
// this controller as paper trades.
func New(
	view *marketdata.View,
	tiers *tier.Registry,
	positions *position.Store,
	val *validator.Validator,
	executor exchange.OrderExecutionPort,
	minEntryAnnualizedPct float64,
	pollInterval time.Duration,
	operativeFloor float64,
	paper bool,
) *Controller {
	return &Controller{
		view: view, tiers: tiers, positions: positions,
		validator: val, executor: executor,
		minEntryAnnualizedPct: minEntryAnnualizedPct, pollInterval: pollInterval,
		operativeFloor: operativeFloor, paper: paper,
	}
}

// TryOpen runs the full gate for (exchange, symbol) and, on approval,
// submits an open intent and persists the resulting Position. capital
// is the caller's freshly-computed CapitalState for this tick; openPairsInTier
// is the current count of open positions sharing this symbol's tier.
func (c *Controller) TryOpen(ctx context.Context, exchangeID, symbol string, capital CapitalState, openPairsInTier int) Decision {
	now := time.Now()

	// 1. Blacklist / tier presence.
	t, ok := c.tiers.TierFor(symbol)
	if !ok {
		return Decision{Reason: fmt.Sprintf("%s not eligible (blacklisted or untiered)", symbol)}
	}

	// 2. Funding freshness.
	funding, ok, err := c.view.LatestFunding(ctx, exchangeID, symbol)
	if err != nil {
		return Decision{Reason: fmt.Sprintf("funding read error: %v", err)}
	}
	if !ok {
		return Decision{Reason: "no funding entry cached yet"}
	}
	if marketdata.IsStale(funding, now, c.pollInterval) {
		return Decision{Reason: "funding entry is stale"}
	}

	// 3. Funding rate floor (tier-specific, falling back to the global
	// floor the validator also checks).
	minRate := t.MinFundingRate
	if minRate <= 0 {
		minRate = validator.MinFundingRate
	}
	if funding.FundingRate <= 0 || funding.FundingRate < minRate {
		return Decision{Reason: fmt.Sprintf("funding rate %.6f below tier floor %.6f", funding.FundingRate, minRate)}
	}

	// 4. Annualized rate floor.
	annualized := funding.AnnualizedRatePct()
	if annualized < c.minEntryAnnualizedPct {
		return Decision{Reason: fmt.Sprintf("annualized rate %.2f%% below minimum %.2f%%", annualized, c.minEntryAnnualizedPct)}
	}

	// 5. Capital checks.
	if capital.Free < t.SizePerPair {
		return Decision{Reason: fmt.Sprintf("free capital %.2f below tier size %.2f", capital.Free, t.SizePerPair)}
	}
	if openPairsInTier >= t.MaxPairsOpen {
		return Decision{Reason: fmt.Sprintf("tier %s already has %d open pairs", t.Name, openPairsInTier)}
	}
	if capital.EstimatedBalance < c.operativeFloor {
		return Decision{Reason: fmt.Sprintf("estimated balance %.2f below operative reserve floor %.2f", capital.EstimatedBalance, c.operativeFloor)}
	}

	// 6. PositionStore duplicate/quota check.
	canOpen, reason, err := c.positions.CanOpen(ctx, exchangeID, symbol)
	if err != nil {
		return Decision{Reason: fmt.Sprintf("position store error: %v", err)}
	}
	if !canOpen {
		return Decision{Reason: reason}
	}

	// 7. Order book presence + breakeven viability.
	snap, ok, err := c.view.LatestOrderBook(ctx, exchangeID, symbol)
	if err != nil {
		return Decision{Reason: fmt.Sprintf("order book read error: %v", err)}
	}
	if !ok {
		return Decision{Reason: "no order book snapshot cached yet"}
	}
	fees := c.tiers.FeesFor(exchangeID)
	be := breakeven.Evaluate(t.SizePerPair, snap.Mid(), snap.Mid(), funding.FundingRate, breakeven.Fees(fees), nil, nil)
	if !be.Viable {
		return Decision{Reason: fmt.Sprintf("breakeven not viable: %.1f periods", be.BreakevenPeriods)}
	}

	// 8. PairValidator.
	perpSymbol := model.SpotToPerp(symbol)
	result := c.validator.Validate(ctx, exchangeID, symbol, perpSymbol, funding.FundingRate)
	if !result.Approved {
		return Decision{Reason: fmt.Sprintf("pair validation failed: %v", result.Reasons)}
	}

	signal := model.TradeSignal{
		Action: "open", Exchange: exchangeID, Symbol: symbol, PerpSymbol: perpSymbol,
		Direction: model.DirectionDefault, SizeUSDT: t.SizePerPair,
		FundingRate: funding.FundingRate, AnnualizedRate: annualized,
		Reason: "entry_gate_approved", Timestamp: float64(now.Unix()),
	}

	spotFill, perpFill, err := c.executor.ExecuteOpen(ctx, signal)
	if err != nil {
		return Decision{Reason: fmt.Sprintf("execution failed: %v", err)}
	}

	p := model.Position{
		Exchange: exchangeID, Symbol: symbol, PerpSymbol: perpSymbol,
		Direction: model.DirectionDefault, Status: model.StatusOpen, Tier: t.Name,
		SizeUSDT: t.SizePerPair,
		SpotEntryPrice: spotFill.Price, SpotQuantity: spotFill.Quantity,
		PerpEntryPrice: perpFill.Price, PerpQuantity: perpFill.Quantity,
		EntryFundingRate: funding.FundingRate, EntryAnnualizedRate: annualized,
		LastFundingUpdate: float64(now.Unix()), OpenedAt: float64(now.Unix()),
		Paper: c.paper,
	}
	if err := c.positions.Save(ctx, p); err != nil {
		return Decision{Reason: fmt.Sprintf("position persist failed: %v", err)}
	}

	return Decision{Opened: true, Reason: "opened", Position: p}
}
