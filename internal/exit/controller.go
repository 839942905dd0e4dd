// FILE: controller.go
// Package exit implements ExitController (spec §4.6): funding accrual
// bookkeeping and the five ordered exit triggers, grounded on
// original_source/src/xge/trading/strategy.py's _evaluate_exit.
package exit

import (
	"context"
	"fmt"
	"time"

	"github.com/kwonlabs/xge/internal/delta"
	"github.com/kwonlabs/xge/internal/exchange"
	"github.com/kwonlabs/xge/internal/marketdata"
	"github.com/kwonlabs/xge/internal/model"
	"github.com/kwonlabs/xge/internal/position"
	"github.com/kwonlabs/xge/internal/tier"
)

// MinHold is the minimum time a position must stay open before a
// non-emergency trigger (funding_drop) is allowed to close it.
const MinHold = 8 * time.Hour

// FundingPeriodSeconds is the 8h funding period used for accrual.
const FundingPeriodSeconds = 28_800.0

// FundingDropFraction: funding_drop fires when current funding falls
// below this fraction of the entry funding rate.
const FundingDropFraction = 0.70

// NegativeFundingTriggerCount: funding_negative fires once the
// consecutive-negative counter reaches this value.
const NegativeFundingTriggerCount = 2

// Outcome records the result of evaluating one open position's triggers.
type Outcome struct {
	Closed     bool
	ExitReason model.ExitReason
	Position   model.Position
}

// Controller evaluates funding accrual and exit triggers for open
// positions.
type Controller struct {
	view     *marketdata.View
	positions *position.Store
	tiers    *tier.Registry
	monitor  *delta.Monitor
	executor exchange.OrderExecutionPort
	pollInterval time.Duration
}

// New builds a Controller.
func New(view *marketdata.View, positions *position.Store, tiers *tier.Registry, monitor *delta.Monitor, executor exchange.OrderExecutionPort, pollInterval time.Duration) *Controller {
	return &Controller{view: view, positions: positions, tiers: tiers, monitor: monitor, executor: executor, pollInterval: pollInterval}
}

// AccrueFunding reads the latest fresh FundingEntry and order book for p,
// adds the elapsed funding payment to funding_collected, and persists the
// updated position. Returns the position unchanged (and ok=false) if
// funding or order book data isn't available/fresh this tick.
func (c *Controller) AccrueFunding(ctx context.Context, p model.Position, now time.Time) (model.Position, model.FundingEntry, bool, error) {
	funding, ok, err := c.view.LatestFunding(ctx, p.Exchange, p.Symbol)
	if err != nil {
		return p, model.FundingEntry{}, false, fmt.Errorf("exit: funding read: %w", err)
	}
	if !ok || marketdata.IsStale(funding, now, c.pollInterval) {
		return p, funding, false, nil
	}

	snap, ok, err := c.view.LatestOrderBook(ctx, p.Exchange, p.Symbol)
	if err != nil {
		return p, funding, false, fmt.Errorf("exit: order book read: %w", err)
	}
	if !ok {
		return p, funding, false, nil
	}

	elapsed := now.Sub(time.Unix(int64(p.LastFundingUpdate), 0)).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	payment := p.PerpQuantity * snap.Mid() * funding.FundingRate * (elapsed / FundingPeriodSeconds)

	p.FundingCollected += payment
	p.LastFundingUpdate = float64(now.Unix())

	if err := c.positions.Save(ctx, p); err != nil {
		return p, funding, false, fmt.Errorf("exit: accrual persist: %w", err)
	}
	return p, funding, true, nil
}

// Evaluate runs the five ordered triggers against p using currentFunding
// (the entry AccrueFunding just read) and reserveProtection (set
// externally by ReserveGuard for this tick). The first matching trigger
// wins. unrealizedPnL must be computed by the caller from current spot/
// perp marks (EstimateUnrealizedPnL), since ExitController has no direct
// market access beyond what View/AccrueFunding already fetched.
func (c *Controller) Evaluate(p model.Position, currentFunding model.FundingEntry, unrealizedPnL float64, now time.Time, reserveProtection bool) (model.ExitReason, bool) {
	holdElapsed := now.Sub(time.Unix(int64(p.OpenedAt), 0))

	t, hasTier := c.tiers.TierFor(p.Symbol)
	stopLossFraction := 0.0
	if hasTier {
		stopLossFraction = t.StopLossFraction
	}

	// a) funding_drop — checked first; d) the min_hold filter suppresses
	// this non-emergency trigger until MinHold has elapsed.
	fundingDrop := currentFunding.FundingRate > 0 && currentFunding.FundingRate < FundingDropFraction*p.EntryFundingRate
	if fundingDrop && holdElapsed >= MinHold {
		return model.ExitReasonFundingDrop, true
	}

	// b) funding_negative — fires regardless of hold time.
	negativeCount := c.monitor.NegativeCount(p.Exchange, p.Symbol)
	if negativeCount >= NegativeFundingTriggerCount {
		return model.ExitReasonFundingNegative, true
	}

	// c) stop_loss — fires regardless of hold time.
	if hasTier && unrealizedPnL < -stopLossFraction*t.SizePerPair && p.FundingCollected < absf(unrealizedPnL) {
		return model.ExitReasonStopLoss, true
	}

	// e) reserve_protection — bypasses MIN_HOLD, set externally.
	if reserveProtection {
		return model.ExitReasonReserveProtection, true
	}

	return "", false
}

// Close executes the close leg, computes realized PnL, persists the
// closed position, and resets the DeltaMonitor counters for it.
func (c *Controller) Close(ctx context.Context, p model.Position, reason model.ExitReason, now time.Time) (Outcome, error) {
	signal := model.TradeSignal{
		Action: "close", Exchange: p.Exchange, Symbol: p.Symbol, PerpSymbol: p.PerpSymbol,
		Direction: p.Direction, SizeUSDT: p.SizeUSDT, Reason: string(reason), Timestamp: float64(now.Unix()),
	}

	spotFill, perpFill, err := c.executor.ExecuteClose(ctx, signal, p.SpotQuantity, p.PerpQuantity)
	if err != nil {
		return Outcome{}, fmt.Errorf("exit: execution failed: %w", err)
	}

	p.SpotExitPrice = spotFill.Price
	p.PerpExitPrice = perpFill.Price
	p.Status = model.StatusClosed
	p.ClosedAt = float64(now.Unix())
	p.ExitReason = reason
	p.RealizedPnL = p.CalculatePnL()

	if err := c.positions.Save(ctx, p); err != nil {
		return Outcome{}, fmt.Errorf("exit: persist close: %w", err)
	}
	c.monitor.ResetTracking(p.Exchange, p.Symbol)

	return Outcome{Closed: true, ExitReason: reason, Position: p}, nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
