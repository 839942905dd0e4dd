// FILE: runner.go
// Package strategy implements StrategyRunner (spec §4.10): the periodic
// orchestrator that ticks EntryController, ReserveGuard, ExitController,
// and MetricsAggregator on one schedule, with DeltaMonitor running
// independently on its own timer — grounded on
// original_source/src/xge/trading/strategy.py's run loop and the
// teacher's live.go ticker-driven main loop shape.
package strategy

import (
	"context"
	"log"
	"time"

	"github.com/kwonlabs/xge/internal/delta"
	"github.com/kwonlabs/xge/internal/entry"
	"github.com/kwonlabs/xge/internal/exit"
	"github.com/kwonlabs/xge/internal/marketdata"
	"github.com/kwonlabs/xge/internal/metrics"
	"github.com/kwonlabs/xge/internal/model"
	"github.com/kwonlabs/xge/internal/notify"
	"github.com/kwonlabs/xge/internal/position"
	"github.com/kwonlabs/xge/internal/reserve"
	"github.com/kwonlabs/xge/internal/telemetry"
	"github.com/kwonlabs/xge/internal/tier"
)

// DeltaMonitorInterval is DeltaMonitor's independent tick cadence (spec
// §2/§4.7), unrelated to the configurable check_interval StrategyRunner
// uses for its own tick.
const DeltaMonitorInterval = 30 * time.Second

// PnLSummaryEveryNTicks mirrors spec §4.10's "every_10_ticks
// logPnLSummary()".
const PnLSummaryEveryNTicks = 10

// Capital mirrors the CAPITAL config block (spec §3) plus the derived
// fields (Deployed, Free, EstimatedBalance) Runner recomputes from live
// position/history data on every tick.
type Capital struct {
	Total            float64
	Operative        float64
	ReserveRebalance float64
	StableBuffer     float64

	Deployed         float64
	Free             float64
	EstimatedBalance float64
}

// Runner owns the tick: checkEntries, reserve guard, checkExits,
// logCapital, and (every 10th tick) logPnLSummary, per spec §4.10's
// pseudo-contract.
type Runner struct {
	view      *marketdata.View
	tiers     *tier.Registry
	positions *position.Store
	entries   *entry.Controller
	exits     *exit.Controller
	guard     *reserve.Guard
	monitor   *delta.Monitor
	notifier  notify.Notifier
	telemetry *telemetry.Metrics

	exchanges []string
	symbols   []string
	capital   Capital

	checkInterval time.Duration
	ticks         int
}

// New builds a Runner. exchanges and symbols are the cross-product
// EntryController's gate runs over each tick (spec §2's control-flow
// description).
func New(
	view *marketdata.View,
	tiers *tier.Registry,
	positions *position.Store,
	entries *entry.Controller,
	exits *exit.Controller,
	guard *reserve.Guard,
	monitor *delta.Monitor,
	notifier notify.Notifier,
	tel *telemetry.Metrics,
	exchanges, symbols []string,
	capital Capital,
	checkInterval time.Duration,
) *Runner {
	return &Runner{
		view: view, tiers: tiers, positions: positions,
		entries: entries, exits: exits, guard: guard, monitor: monitor,
		notifier: notifier, telemetry: tel,
		exchanges: exchanges, symbols: symbols, capital: capital,
		checkInterval: checkInterval,
	}
}

// Run blocks, ticking every checkInterval until ctx is cancelled. It
// also starts DeltaMonitor's independent 30s timer as a second
// concurrently-scheduled task (spec §2, §5): the two tasks share the
// PositionStore but DeltaMonitor never writes positions, so no mutex is
// needed beyond the ones internal/delta.Monitor already holds over its
// own counters.
func (r *Runner) Run(ctx context.Context) {
	go r.runDeltaMonitor(ctx)

	ticker := time.NewTicker(r.checkInterval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("runner: shutdown")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one StrategyRunner iteration: checkEntries, then the
// reserve guard, then checkExits, then capital logging, then (every
// 10th tick) the PnL summary. Per-pair and per-position failures are
// logged and skipped — spec §4.5/§4.6's "all failure paths are
// non-fatal" rule — so one bad (exchange, symbol) never blocks the rest
// of the tick.
func (r *Runner) tick(ctx context.Context) {
	r.ticks++
	r.checkEntries(ctx)

	if report, err := r.guard.Run(ctx, time.Now()); err != nil {
		log.Printf("runner: reserve guard: %v", err)
	} else if report.Breached {
		r.telemetry.RecordReserveAlert()
		log.Printf("runner: reserve breached: balance %.2f -> %.2f, closed %d position(s)",
			report.StartingBalance, report.EndingBalance, len(report.ClosedPositions))
		for _, p := range report.ClosedPositions {
			r.notifyClosed(ctx, p)
		}
	}

	r.checkExits(ctx)
	r.logCapital(ctx)

	if r.ticks%PnLSummaryEveryNTicks == 0 {
		r.logPnLSummary(ctx)
	}
}

// checkEntries runs EntryController's gate over the exchange x symbol
// cross-product (spec §2's control flow).
func (r *Runner) checkEntries(ctx context.Context) {
	capital, err := r.capitalState(ctx)
	if err != nil {
		log.Printf("runner: capital state: %v", err)
		return
	}

	open, err := r.positions.List(ctx, "")
	if err != nil {
		log.Printf("runner: list positions: %v", err)
		return
	}
	openPerTier := make(map[string]int, len(open))
	for _, p := range open {
		openPerTier[p.Tier]++
	}

	for _, exchangeID := range r.exchanges {
		for _, symbol := range r.symbols {
			t, ok := r.tiers.TierFor(symbol)
			entryCapital := entry.CapitalState{Deployed: capital.Deployed, Free: capital.Free, EstimatedBalance: capital.EstimatedBalance}
			decision := r.entries.TryOpen(ctx, exchangeID, symbol, entryCapital, openPerTier[tierNameOr(t, ok)])
			if decision.Opened {
				r.telemetry.RecordOrder(exchangeID, "open")
				r.telemetry.SetOpenPositions(decision.Position.Tier, openPerTier[decision.Position.Tier]+1)
				openPerTier[decision.Position.Tier]++
				capital.Deployed += decision.Position.SizeUSDT
				capital.Free -= decision.Position.SizeUSDT
				r.notifyOpened(ctx, decision.Position)
			} else {
				log.Printf("entry skip %s:%s: %s", exchangeID, symbol, decision.Reason)
			}
		}
	}
}

func tierNameOr(t tier.Tier, ok bool) string {
	if !ok {
		return ""
	}
	return t.Name
}

// checkExits accrues funding and evaluates the five exit triggers for
// every open position (spec §4.6).
func (r *Runner) checkExits(ctx context.Context) {
	open, err := r.positions.List(ctx, "")
	if err != nil {
		log.Printf("runner: list positions: %v", err)
		return
	}
	now := time.Now()

	for _, p := range open {
		priorFundingCollected := p.FundingCollected
		updated, funding, accrued, err := r.exits.AccrueFunding(ctx, p, now)
		if err != nil {
			log.Printf("exit %s:%s: accrue funding: %v", p.Exchange, p.Symbol, err)
			continue
		}
		p = updated
		if accrued {
			r.telemetry.AddFundingCollected(p.Exchange, p.FundingCollected-priorFundingCollected)
		}

		isNegative := accrued && funding.FundingRate < 0
		r.monitor.TrackNegativeFunding(p.Exchange, p.Symbol, isNegative)

		if _, ok, err := r.view.LatestOrderBook(ctx, p.Exchange, p.Symbol); err == nil && ok {
			if _, err := r.monitor.Check(ctx, p, now); err != nil {
				log.Printf("delta %s:%s: %v", p.Exchange, p.Symbol, err)
			}
		}

		unrealized := r.estimateUnrealized(ctx, p)
		reason, shouldClose := r.exits.Evaluate(p, funding, unrealized, now, false)
		if !shouldClose {
			continue
		}

		outcome, err := r.exits.Close(ctx, p, reason, now)
		if err != nil {
			log.Printf("exit %s:%s: close: %v", p.Exchange, p.Symbol, err)
			continue
		}
		r.telemetry.RecordOrder(p.Exchange, "close")
		r.telemetry.RecordExit(string(reason))
		r.notifyClosed(ctx, outcome.Position)
	}
}

func (r *Runner) estimateUnrealized(ctx context.Context, p model.Position) float64 {
	spotBook, ok, err := r.view.LatestOrderBook(ctx, p.Exchange, p.Symbol)
	if err != nil || !ok {
		return 0
	}
	mid := spotBook.Mid()
	return p.EstimateUnrealizedPnL(mid, mid)
}

// capitalState recomputes entry.CapitalState from live position and
// history data, the derived CapitalState of spec §3.
func (r *Runner) capitalState(ctx context.Context) (Capital, error) {
	open, err := r.positions.List(ctx, "")
	if err != nil {
		return Capital{}, err
	}
	history, err := r.positions.History(ctx)
	if err != nil {
		return Capital{}, err
	}

	var deployed float64
	for _, p := range open {
		deployed += p.SizeUSDT
	}
	balance := r.capital.Total
	for _, p := range history {
		balance += p.RealizedPnL
	}

	return Capital{
		Total:            r.capital.Total,
		Operative:        r.capital.Operative,
		ReserveRebalance: r.capital.ReserveRebalance,
		StableBuffer:     r.capital.StableBuffer,
		Deployed:         deployed,
		Free:             r.capital.Operative - deployed,
		EstimatedBalance: balance,
	}, nil
}

// logCapital logs a one-line capital summary each tick (spec §4.10).
func (r *Runner) logCapital(ctx context.Context) {
	capital, err := r.capitalState(ctx)
	if err != nil {
		log.Printf("runner: log capital: %v", err)
		return
	}
	r.telemetry.SetEstimatedBalance(capital.EstimatedBalance)
	log.Printf("%s", metrics.CapitalStatusLine(capital.Deployed, capital.Free, capital.ReserveRebalance))
}

// logPnLSummary logs the full MetricsAggregator report every 10th tick
// (spec §4.10).
func (r *Runner) logPnLSummary(ctx context.Context) {
	history, err := r.positions.History(ctx)
	if err != nil {
		log.Printf("runner: pnl summary: history: %v", err)
		return
	}
	open, err := r.positions.List(ctx, "")
	if err != nil {
		log.Printf("runner: pnl summary: list: %v", err)
		return
	}
	report := metrics.Calculate(history, open, metrics.Capital{
		Total: r.capital.Total, Operative: r.capital.Operative, ReserveRebalance: r.capital.ReserveRebalance,
	})
	log.Printf("\n%s", metrics.FormatReport(report))
}

// runDeltaMonitor is DeltaMonitor's independent 30s-interval task (spec
// §2, §4.7) — a second long-lived loop scheduled concurrently with the
// main tick, reading the same PositionStore but never writing positions.
func (r *Runner) runDeltaMonitor(ctx context.Context) {
	ticker := time.NewTicker(DeltaMonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			open, err := r.positions.List(ctx, "")
			if err != nil {
				log.Printf("delta monitor: list positions: %v", err)
				continue
			}
			now := time.Now()
			for _, p := range open {
				if result, err := r.monitor.Check(ctx, p, now); err != nil {
					log.Printf("delta monitor %s:%s: %v", p.Exchange, p.Symbol, err)
				} else if result.BreachedThreshold {
					r.telemetry.SetDeltaDrift(p.Exchange, p.Symbol, result.Delta)
				}
			}
		}
	}
}

func (r *Runner) notifyOpened(ctx context.Context, p model.Position) {
	if err := r.notifier.TradeOpened(ctx, p); err != nil {
		log.Printf("notify opened %s:%s: %v", p.Exchange, p.Symbol, err)
	}
}

func (r *Runner) notifyClosed(ctx context.Context, p model.Position) {
	if err := r.notifier.TradeClosed(ctx, p); err != nil {
		log.Printf("notify closed %s:%s: %v", p.Exchange, p.Symbol, err)
	}
}
