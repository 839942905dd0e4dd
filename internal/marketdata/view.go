// FILE: view.go
// Package marketdata is the read-only accessor for cached order books
// and funding entries over the store (spec §4.2's MarketDataView),
// grounded on original_source/src/xge/cache/redis_cache.py's
// get_latest/get_funding pair, generalized from positional args into
// the shared store.Store contract.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/kwonlabs/xge/internal/model"
	"github.com/kwonlabs/xge/internal/store"
)

// View reads the latest order book and funding snapshots a collector
// has written to the store, with a staleness check shared by the
// entry/exit gates.
type View struct {
	s store.Store
}

// New builds a View over s.
func New(s store.Store) *View {
	return &View{s: s}
}

// LatestOrderBook returns the cached snapshot for exchange/symbol, or
// (zero, false, nil) if none has been collected yet.
func (v *View) LatestOrderBook(ctx context.Context, exchange, symbol string) (model.OrderBookSnapshot, bool, error) {
	raw, ok, err := v.s.Get(ctx, store.LatestKey(exchange, symbol))
	if err != nil {
		return model.OrderBookSnapshot{}, false, fmt.Errorf("marketdata: order book: %w", err)
	}
	if !ok {
		return model.OrderBookSnapshot{}, false, nil
	}
	snap, err := model.OrderBookSnapshotFromJSON(raw)
	if err != nil {
		return model.OrderBookSnapshot{}, false, fmt.Errorf("marketdata: decode order book: %w", err)
	}
	return snap, true, nil
}

// LatestFunding returns the cached funding entry for exchange/symbol, or
// (zero, false, nil) if none has been collected yet.
func (v *View) LatestFunding(ctx context.Context, exchange, symbol string) (model.FundingEntry, bool, error) {
	raw, ok, err := v.s.Get(ctx, store.FundingKey(exchange, symbol))
	if err != nil {
		return model.FundingEntry{}, false, fmt.Errorf("marketdata: funding: %w", err)
	}
	if !ok {
		return model.FundingEntry{}, false, nil
	}
	entry, err := model.FundingEntryFromJSON(raw)
	if err != nil {
		return model.FundingEntry{}, false, fmt.Errorf("marketdata: decode funding: %w", err)
	}
	return entry, true, nil
}

// IsStale reports whether a funding entry's ingest timestamp is older
// than 2x pollInterval, the staleness window spec §6/§7 define.
func IsStale(entry model.FundingEntry, now time.Time, pollInterval time.Duration) bool {
	age := now.Sub(time.Unix(int64(entry.Timestamp), 0))
	return age > 2*pollInterval
}
