// Package breakeven implements the cycle-cost/viability calculation of
// spec §4.2, grounded on original_source/src/xge/trading/breakeven.py.
package breakeven

import "math"

// MaxBreakevenPeriods is the viability cutoff: breakeven must complete
// within 9 funding periods (3 days) to be considered viable.
const MaxBreakevenPeriods = 9

// HoursPerPeriod is the funding period length.
const HoursPerPeriod = 8

// Fees carries the per-exchange spot/perp fee fractions used for the
// cost calculation; supplied by tier.FeeSchedule via the adapter the
// caller already has (kept decoupled here to avoid an import cycle).
type Fees struct {
	Spot      float64
	PerpMaker float64
	PerpTaker float64
}

// Result exposes every intermediate of the breakeven calculation so
// callers can log and test against them individually (spec §4.2: "Output
// is a record with all intermediates exposed").
type Result struct {
	EntryCostUSDT      float64
	ExitCostUSDT       float64
	TotalCostUSDT      float64
	FundingPerPeriod   float64
	BreakevenPeriods   float64
	BreakevenHours     float64
	Viable             bool
}

// Evaluate computes breakeven cost/viability for a candidate position.
// Entry cost uses taker fees on both legs (market orders); exit cost
// uses maker fees on the perp leg (exit targets a limit order), per
// spec §4.2. If spotFeeOverride/perpFeeOverride are non-nil they replace
// the schedule's spot/perp fee for both entry and exit legs.
func Evaluate(sizeUSDT, spotEntryPrice, perpEntryPrice, fundingRate float64, fees Fees, spotFeeOverride, perpFeeOverride *float64) Result {
	_ = spotEntryPrice // exposed for callers/tests; not needed by the cost formula itself
	_ = perpEntryPrice

	spotFee := fees.Spot
	if spotFeeOverride != nil {
		spotFee = *spotFeeOverride
	}
	perpFeeEntry := fees.PerpTaker
	perpFeeExit := fees.PerpMaker
	if perpFeeOverride != nil {
		perpFeeEntry = *perpFeeOverride
		perpFeeExit = *perpFeeOverride
	}

	entryCost := sizeUSDT * (spotFee + perpFeeEntry)
	exitCost := sizeUSDT * (spotFee + perpFeeExit)
	totalCost := entryCost + exitCost

	fundingPerPeriod := sizeUSDT * fundingRate

	var periods float64
	if fundingPerPeriod > 0 {
		periods = totalCost / fundingPerPeriod
	} else {
		periods = math.Inf(1)
	}

	hours := periods * HoursPerPeriod

	return Result{
		EntryCostUSDT:    entryCost,
		ExitCostUSDT:     exitCost,
		TotalCostUSDT:    totalCost,
		FundingPerPeriod: fundingPerPeriod,
		BreakevenPeriods: periods,
		BreakevenHours:   hours,
		Viable:           periods < MaxBreakevenPeriods,
	}
}
