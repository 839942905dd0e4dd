// FILE: store.go
// Package store is the KV/list/pub-sub contract spec §6 requires
// (latest:*, funding:*, position:*, trade_history, basis:* channels),
// grounded on original_source/src/xge/cache/redis_cache.py and keyed the
// way tgeconf-nof0/internal/cache/keys.go names its Redis keys.
package store

import (
	"context"
	"time"
)

// Store is the KV/list/pub-sub surface every component depends on
// instead of talking to Redis directly, mirroring the teacher's
// Broker-port pattern (broker.go) applied to the persistence layer.
type Store interface {
	// Get returns the value at key, or ("", false, nil) if absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value at key with an optional TTL (0 means no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key; no error if it was already absent.
	Delete(ctx context.Context, key string) error
	// ScanKeys returns every key matching a glob-style pattern (e.g. "position:*").
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	// RPush appends value to the list at key.
	RPush(ctx context.Context, key, value string) error
	// LRange returns list elements at key in [start, stop] (inclusive,
	// -1 means "to the end"), matching Redis LRANGE semantics.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// Publish broadcasts data on channel; no error if there are no subscribers.
	Publish(ctx context.Context, channel, data string) error
	// Subscribe returns a channel of messages published to channel (or a
	// pattern, implementation-dependent) until ctx is canceled.
	Subscribe(ctx context.Context, channel string) (<-chan string, error)
	// Close releases the underlying connection.
	Close() error
}

// Key-naming helpers, grounded on redis_cache.py's f-string keys and
// tgeconf-nof0's NewTTLSet/formatKey convention of centralizing key
// construction so call sites never hand-format strings.

// LatestKey is the latest order-book snapshot key for exchange/symbol.
func LatestKey(exchange, symbol string) string {
	return "latest:" + exchange + ":" + symbol
}

// FundingKey is the latest funding-rate entry key for exchange/symbol.
func FundingKey(exchange, symbol string) string {
	return "funding:" + exchange + ":" + symbol
}

// PositionKey is the open-position key for exchange/symbol.
func PositionKey(exchange, symbol string) string {
	return "position:" + exchange + ":" + symbol
}

// PositionPattern is the scan pattern for every open position, optionally
// scoped to one exchange ("" means all exchanges).
func PositionPattern(exchange string) string {
	if exchange == "" {
		return "position:*"
	}
	return "position:" + exchange + ":*"
}

// TradeHistoryKey is the append-only list of closed/reconciled positions.
const TradeHistoryKey = "trade_history"

// BasisKey is a timestamped delta/basis snapshot key, used by
// internal/delta for drift auditing.
func BasisKey(exchange, symbol string, unixTime int64) string {
	return "basis:" + exchange + ":" + symbol + ":" + itoa(unixTime)
}

// PriceChannel is the pub/sub channel name for live order-book ticks.
func PriceChannel(exchange, symbol string) string {
	return "prices:" + exchange + ":" + symbol
}

// FundingChannel is the pub/sub channel name for live funding-rate ticks.
func FundingChannel(exchange, symbol string) string {
	return "funding:" + exchange + ":" + symbol
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// DefaultPositionTTL is how long an open position's key lives before
// Redis would expire it absent a refresh; PositionStore.Save re-sets
// this TTL on every write to an open position (spec §4.4).
const DefaultPositionTTL = 7 * 24 * time.Hour
