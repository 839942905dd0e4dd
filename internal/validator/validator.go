// FILE: validator.go
// Package validator implements the PairValidator multi-check approval
// pipeline (spec §4.3), grounded on
// original_source/src/xge/trading/pair_selector.py's validate_pair.
package validator

import (
	"context"
	"fmt"

	"github.com/kwonlabs/xge/internal/exchange"
	"github.com/kwonlabs/xge/internal/tier"
)

// Thresholds, ported verbatim from pair_selector.py.
const (
	MinFundingRate = 0.0001
	MaxSpread      = 0.0005
	MinVolume24h   = 5_000_000.0
	MaxOIDropPct   = 0.10

	fundingHistoryPeriods = 21 // ~7 days at 3 periods/day
)

// Result is the typed record PairValidator returns — a fixed struct
// rather than the original's dynamic dict (spec §9's redesign note).
type Result struct {
	Approved           bool
	Reasons            []string
	Funding7dAvg       float64
	Spread             float64
	Volume24h          float64
	OpenInterestChange float64
}

func (r *Result) veto(reason string) {
	r.Approved = false
	r.Reasons = append(r.Reasons, reason)
}

func (r *Result) note(reason string) {
	r.Reasons = append(r.Reasons, reason)
}

// Validator runs the approval pipeline against a MarketDataPort.
type Validator struct {
	market exchange.MarketDataPort
	tiers  *tier.Registry
}

// New builds a Validator reading market data from market and tier/
// blacklist membership from tiers.
func New(market exchange.MarketDataPort, tiers *tier.Registry) *Validator {
	return &Validator{market: market, tiers: tiers}
}

// Validate runs the six ordered checks for (exchange, symbol, perpSymbol)
// against currentFundingRate (already fetched by the caller's
// MarketDataView so the validator doesn't duplicate that read).
func (v *Validator) Validate(ctx context.Context, exchangeID, symbol, perpSymbol string, currentFundingRate float64) Result {
	result := Result{Approved: true}

	// 1. Blacklist / tier presence.
	if v.tiers.IsBlacklisted(symbol) {
		result.veto(fmt.Sprintf("%s is blacklisted", symbol))
		return result
	}
	if _, ok := v.tiers.TierFor(symbol); !ok {
		result.veto(fmt.Sprintf("%s not assigned to any tier", symbol))
		return result
	}

	// 2. Current funding rate floor.
	if currentFundingRate <= MinFundingRate {
		result.veto(fmt.Sprintf("current funding %.6f <= %.6f", currentFundingRate, MinFundingRate))
	}

	// 3. 7-day funding history positivity (non-blocking on fetch error —
	// some exchanges don't expose this endpoint).
	history, err := v.market.GetFundingHistory(ctx, exchangeID, perpSymbol, fundingHistoryPeriods)
	if err != nil {
		result.note(fmt.Sprintf("funding history unavailable: %v", err))
	} else if len(history) == 0 {
		result.veto("no funding history available")
	} else {
		window := history
		if len(window) > fundingHistoryPeriods {
			window = window[len(window)-fundingHistoryPeriods:]
		}
		var sum float64
		nonPositive := 0
		for _, h := range window {
			sum += h.FundingRate
			if h.FundingRate <= 0 {
				nonPositive++
			}
		}
		result.Funding7dAvg = sum / float64(len(window))
		if nonPositive > 0 {
			result.veto(fmt.Sprintf("funding not positive for 7 consecutive days (%d/%d non-positive)", nonPositive, len(window)))
		}
	}

	// 4. Spot/perp spread.
	spotBook, err := v.market.GetOrderBook(ctx, exchangeID, symbol)
	if err != nil {
		result.veto(fmt.Sprintf("failed to fetch spot price: %v", err))
	} else {
		perpBook, err := v.market.GetOrderBook(ctx, exchangeID, perpSymbol)
		if err != nil {
			result.veto(fmt.Sprintf("failed to fetch perp price: %v", err))
		} else if perpBook.Mid() > 0 {
			spread := absf(spotBook.Mid()-perpBook.Mid()) / perpBook.Mid()
			result.Spread = spread
			if spread > MaxSpread {
				result.veto(fmt.Sprintf("spread %.6f > %.6f (%.4f%%)", spread, MaxSpread, spread*100))
			}
		}
	}

	// 5. 24h perp volume.
	volume, err := v.market.GetVolume24h(ctx, exchangeID, perpSymbol)
	if err != nil {
		result.veto(fmt.Sprintf("failed to fetch volume: %v", err))
	} else {
		result.Volume24h = volume
		if volume < MinVolume24h {
			result.veto(fmt.Sprintf("24h volume $%.0f < $%.0f", volume, MinVolume24h))
		}
	}

	// 6. Open-interest stability (non-blocking on fetch error — not all
	// exchanges expose OI history).
	current, dayAgo, err := v.market.GetOpenInterest(ctx, exchangeID, perpSymbol)
	if err != nil {
		result.note(fmt.Sprintf("open interest unavailable: %v", err))
	} else if dayAgo > 0 {
		change := (current - dayAgo) / dayAgo
		result.OpenInterestChange = change
		if change < -MaxOIDropPct {
			result.veto(fmt.Sprintf("OI dropped %.1f%% > -%.0f%% threshold", change*100, MaxOIDropPct*100))
		}
	}

	return result
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
