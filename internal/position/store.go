// FILE: store.go
// Package position implements the PositionStore of spec §4.4: CRUD over
// open positions plus the append-only trade_history list and startup
// reconciliation, grounded on
// original_source/src/xge/trading/position_manager.py.
package position

import (
	"context"
	"fmt"
	"time"

	"github.com/kwonlabs/xge/internal/model"
	"github.com/kwonlabs/xge/internal/store"
)

// Store is the CRUD+reconcile surface over positions, backed by a
// store.Store. It holds no in-process cache; every call round-trips
// through the backing store so it stays correct regardless of which
// process instance made the last write.
type Store struct {
	s                    store.Store
	maxPerExchange       int
	maxTotal             int
}

// New builds a Store enforcing maxPerExchange and maxTotal open-position
// quotas, matching PositionManager's constructor defaults.
func New(s store.Store, maxPerExchange, maxTotal int) *Store {
	return &Store{s: s, maxPerExchange: maxPerExchange, maxTotal: maxTotal}
}

// Get returns the open position for (exchange, symbol), or (zero, false,
// nil) if none exists.
func (st *Store) Get(ctx context.Context, exchange, symbol string) (model.Position, bool, error) {
	raw, ok, err := st.s.Get(ctx, store.PositionKey(exchange, symbol))
	if err != nil {
		return model.Position{}, false, fmt.Errorf("position: get: %w", err)
	}
	if !ok {
		return model.Position{}, false, nil
	}
	p, err := model.PositionFromJSON(raw)
	if err != nil {
		return model.Position{}, false, fmt.Errorf("position: decode: %w", err)
	}
	return p, true, nil
}

// Save persists p. A closed (or stale_closed) position is removed from
// its open-position key and appended to trade_history; an open position
// is written with a refreshed 7-day TTL.
func (st *Store) Save(ctx context.Context, p model.Position) error {
	if p.Status == model.StatusOpen {
		raw, err := p.ToJSON()
		if err != nil {
			return fmt.Errorf("position: encode: %w", err)
		}
		return st.s.Set(ctx, p.Key(), raw, store.DefaultPositionTTL)
	}

	if err := st.s.Delete(ctx, p.Key()); err != nil {
		return fmt.Errorf("position: delete on close: %w", err)
	}
	raw, err := p.ToJSON()
	if err != nil {
		return fmt.Errorf("position: encode: %w", err)
	}
	return st.s.RPush(ctx, store.TradeHistoryKey, raw)
}

// List returns all open positions, optionally scoped to one exchange
// ("" means all exchanges).
func (st *Store) List(ctx context.Context, exchange string) ([]model.Position, error) {
	keys, err := st.s.ScanKeys(ctx, store.PositionPattern(exchange))
	if err != nil {
		return nil, fmt.Errorf("position: scan: %w", err)
	}
	positions := make([]model.Position, 0, len(keys))
	for _, k := range keys {
		raw, ok, err := st.s.Get(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("position: list get %s: %w", k, err)
		}
		if !ok {
			continue
		}
		p, err := model.PositionFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("position: list decode %s: %w", k, err)
		}
		positions = append(positions, p)
	}
	return positions, nil
}

// CanOpen reports whether a new position may be opened for
// (exchange, symbol): it must not already exist, and must respect the
// per-exchange and total open-position quotas.
func (st *Store) CanOpen(ctx context.Context, exchange, symbol string) (bool, string, error) {
	_, exists, err := st.Get(ctx, exchange, symbol)
	if err != nil {
		return false, "", err
	}
	if exists {
		return false, fmt.Sprintf("position already exists for %s:%s", exchange, symbol), nil
	}

	exchangePositions, err := st.List(ctx, exchange)
	if err != nil {
		return false, "", err
	}
	if len(exchangePositions) >= st.maxPerExchange {
		return false, fmt.Sprintf("max positions per exchange reached (%d) for %s", st.maxPerExchange, exchange), nil
	}

	allPositions, err := st.List(ctx, "")
	if err != nil {
		return false, "", err
	}
	if len(allPositions) >= st.maxTotal {
		return false, fmt.Sprintf("max total positions reached (%d)", st.maxTotal), nil
	}

	return true, "ok", nil
}

// TierLookup is the minimal surface Reconcile needs from the tier
// registry, kept narrow to avoid importing internal/tier here.
type TierLookup interface {
	IsAssigned(symbol string) bool
}

// Reconcile closes positions that survived a deploy: older than maxAge,
// lacking a tier, or referencing a symbol no longer in the tier
// registry. Closed positions get status=stale_closed,
// exit_reason=reconciled, realized_pnl=0, and are appended to history.
// Idempotent: a position already closed/removed is not found by List,
// so running Reconcile twice in a row is a no-op the second time.
func (st *Store) Reconcile(ctx context.Context, now time.Time, maxAge time.Duration, tiers TierLookup) (int, error) {
	positions, err := st.List(ctx, "")
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, p := range positions {
		shouldClose := false

		switch {
		case now.Sub(time.Unix(int64(p.OpenedAt), 0)) > maxAge:
			shouldClose = true
		case p.Tier == "":
			shouldClose = true
		case tiers != nil && !tiers.IsAssigned(p.Symbol):
			shouldClose = true
		}

		if !shouldClose {
			continue
		}

		p.Status = model.StatusStaleClosed
		p.ClosedAt = float64(now.Unix())
		p.RealizedPnL = 0
		p.ExitReason = model.ExitReasonReconciled
		if err := st.Save(ctx, p); err != nil {
			return cleaned, fmt.Errorf("position: reconcile save %s: %w", p.Key(), err)
		}
		cleaned++
	}
	return cleaned, nil
}

// History returns every closed/reconciled position ever appended to
// trade_history, in write order.
func (st *Store) History(ctx context.Context) ([]model.Position, error) {
	raw, err := st.s.LRange(ctx, store.TradeHistoryKey, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("position: history: %w", err)
	}
	out := make([]model.Position, 0, len(raw))
	for _, r := range raw {
		p, err := model.PositionFromJSON(r)
		if err != nil {
			return nil, fmt.Errorf("position: history decode: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}
