// Package tier implements the static capital/tier/fee lookup tables
// (spec §4.1). Tiers are an open, ordered collection with lookup by
// symbol rather than hard-coded branches, per spec §9's redesign note.
package tier

// Tier is a named capital bucket with sizing and risk thresholds for a
// set of symbols.
type Tier struct {
	Name              string
	Symbols           []string
	CapitalTotal      float64
	SizePerPair       float64
	MaxPairsOpen      int
	MinFundingRate    float64
	StopLossFraction  float64
	DeltaAlertFraction float64
}

// symbolSet returns the unique symbol set for this tier.
func (t Tier) symbolSet() map[string]struct{} {
	set := make(map[string]struct{}, len(t.Symbols))
	for _, s := range t.Symbols {
		set[s] = struct{}{}
	}
	return set
}

// FeeSchedule holds fee fractions for one exchange.
type FeeSchedule struct {
	Spot      float64
	PerpMaker float64
	PerpTaker float64
}

// DefaultFeeSchedule is used for exchanges with no explicit entry.
var DefaultFeeSchedule = FeeSchedule{Spot: 0.001, PerpMaker: 0.0005, PerpTaker: 0.001}

// Registry is the immutable lookup surface over tiers, a blacklist, and
// per-exchange fee schedules. Construct with NewRegistry; it performs no
// I/O and holds no mutable state after construction.
type Registry struct {
	tiers     []Tier
	blacklist map[string]struct{}
	fees      map[string]FeeSchedule
}

// NewRegistry builds a Registry from ordered tiers, a blacklist, and a
// fee schedule map keyed by exchange id. Invariant checked eagerly:
// size_per_pair * max_pairs_open <= capital_total for every tier; a
// violation panics at construction time since tier tables are static
// configuration, not runtime input.
func NewRegistry(tiers []Tier, blacklist []string, fees map[string]FeeSchedule) *Registry {
	for _, t := range tiers {
		if t.SizePerPair*float64(t.MaxPairsOpen) > t.CapitalTotal+1e-6 {
			panic("tier " + t.Name + ": size_per_pair * max_pairs_open exceeds capital_total")
		}
	}
	bl := make(map[string]struct{}, len(blacklist))
	for _, s := range blacklist {
		bl[s] = struct{}{}
	}
	feeMap := make(map[string]FeeSchedule, len(fees))
	for k, v := range fees {
		feeMap[k] = v
	}
	return &Registry{tiers: tiers, blacklist: bl, fees: feeMap}
}

// TierFor returns the tier that owns symbol, or (Tier{}, false) if the
// symbol is blacklisted or not assigned to any tier. Blacklist wins over
// tier membership; among tiers, first match in registration order wins.
func (r *Registry) TierFor(symbol string) (Tier, bool) {
	if _, blocked := r.blacklist[symbol]; blocked {
		return Tier{}, false
	}
	for _, t := range r.tiers {
		if _, ok := t.symbolSet()[symbol]; ok {
			return t, true
		}
	}
	return Tier{}, false
}

// FeesFor returns the fee schedule for exchange, falling back to
// DefaultFeeSchedule for unknown exchanges.
func (r *Registry) FeesFor(exchange string) FeeSchedule {
	if f, ok := r.fees[exchange]; ok {
		return f
	}
	return DefaultFeeSchedule
}

// AllTierSymbols returns every symbol assigned to any tier (excluding
// the blacklist), in tier-registration order.
func (r *Registry) AllTierSymbols() []string {
	var out []string
	for _, t := range r.tiers {
		for _, s := range t.Symbols {
			if !r.IsBlacklisted(s) {
				out = append(out, s)
			}
		}
	}
	return out
}

// Tiers returns the ordered tier list as configured.
func (r *Registry) Tiers() []Tier {
	return r.tiers
}

// IsBlacklisted reports whether symbol is permanently excluded.
func (r *Registry) IsBlacklisted(symbol string) bool {
	_, ok := r.blacklist[symbol]
	return ok
}

// IsAssigned reports whether symbol currently belongs to some tier
// (satisfies position.TierLookup for reconciliation).
func (r *Registry) IsAssigned(symbol string) bool {
	_, ok := r.TierFor(symbol)
	return ok
}

// DefaultTiers returns the two tiers shipped with the engine, ported
// literally from original_source/src/xge/trading/tier_config.py's
// TIER_1/TIER_2 (name, symbols, capital_total, size_per_pair,
// max_pairs_open, min_funding_rate, stop_loss_pct, delta_alert_pct).
// Tiers are an open set (spec §9 anticipates a tier_3); callers that
// need a different allocation build their own []Tier and pass it to
// NewRegistry instead.
func DefaultTiers() []Tier {
	return []Tier{
		{
			Name:               "tier_1",
			Symbols:            []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "XRP/USDT"},
			CapitalTotal:       1260,
			SizePerPair:        315,
			MaxPairsOpen:       4,
			MinFundingRate:     0.00008,
			StopLossFraction:   0.005,
			DeltaAlertFraction: 0.02,
		},
		{
			Name:               "tier_2",
			Symbols:            []string{"WLD/USDT", "NEAR/USDT", "AVAX/USDT"},
			CapitalTotal:       360,
			SizePerPair:        180,
			MaxPairsOpen:       2,
			MinFundingRate:     0.00015,
			StopLossFraction:   0.005,
			DeltaAlertFraction: 0.02,
		},
	}
}

// DefaultBlacklist returns the symbols permanently excluded from any
// tier, ported from tier_config.py's BLACKLIST.
func DefaultBlacklist() []string {
	return []string{"ATOM/USDT", "DOT/USDT", "OP/USDT", "AAVE/USDT"}
}

// DefaultFeeSchedules returns the per-exchange fee tables ported from
// tier_config.py's FEE_SCHEDULE. Exchanges absent from this map fall
// back to DefaultFeeSchedule via FeesFor.
func DefaultFeeSchedules() map[string]FeeSchedule {
	return map[string]FeeSchedule{
		"bitget": {Spot: 0.001, PerpMaker: 0.0002, PerpTaker: 0.0006},
		"okx":    {Spot: 0.001, PerpMaker: 0.0002, PerpTaker: 0.0005},
		"mexc":   {Spot: 0.0002, PerpMaker: 0.0, PerpTaker: 0.0006},
	}
}
