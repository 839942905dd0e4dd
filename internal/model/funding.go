package model

import (
	"encoding/json"
	"strings"
)

// PeriodsPerDay is the number of 8h funding periods per day.
const PeriodsPerDay = 3

// SpotToPerp derives the perpetual symbol from a spot symbol, e.g.
// "BTC/USDT" -> "BTC/USDT:USDT". If the symbol already carries a settle
// suffix (contains ':'), it is returned unchanged.
func SpotToPerp(spot string) string {
	if strings.Contains(spot, ":") {
		return spot
	}
	quote := "USDT"
	if parts := strings.SplitN(spot, "/", 2); len(parts) == 2 {
		quote = parts[1]
	}
	return spot + ":" + quote
}

// FundingEntry is the latest funding-rate observation for one
// (exchange, perp symbol), keyed in the store by its spot symbol.
type FundingEntry struct {
	Exchange               string   `json:"exchange"`
	PerpSymbol             string   `json:"perp_symbol"`
	SpotSymbol             string   `json:"spot_symbol"`
	FundingRate            float64  `json:"funding_rate"`
	FundingTimestamp       float64  `json:"funding_timestamp"`
	NextFundingTimestamp   *float64 `json:"next_funding_timestamp,omitempty"`
	NextFundingRate        *float64 `json:"next_funding_rate,omitempty"`
	Timestamp              float64  `json:"timestamp"`
}

// AnnualizedRatePct returns the funding rate annualized assuming
// PeriodsPerDay payments per day, as a percentage.
func (f FundingEntry) AnnualizedRatePct() float64 {
	return f.FundingRate * PeriodsPerDay * 365 * 100
}

// ToJSON serializes the entry for storage.
func (f FundingEntry) ToJSON() (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FundingEntryFromJSON deserializes a stored entry.
func FundingEntryFromJSON(data string) (FundingEntry, error) {
	var f FundingEntry
	err := json.Unmarshal([]byte(data), &f)
	return f, err
}

// Direction classifies which leg goes long/short for a funding
// observation. Supplemented from the original source's SpotFundingArb;
// the strategy only ever acts on DirectionLongSpotShortPerp (spec §4.5
// gate 3 requires funding_rate > 0). ClassifyDirection reports both
// directions, but the entry and exit paths do not call it.
type Direction string

const (
	DirectionLongSpotShortPerp Direction = "long_spot_short_perp"
	DirectionShortSpotLongPerp Direction = "short_spot_long_perp"
)

// ClassifyDirection reports which basis-trade direction a funding
// observation favors and its annualized rate. Returns ok=false if the
// annualized magnitude is below minAnnualizedPct.
func ClassifyDirection(f FundingEntry, minAnnualizedPct float64) (dir Direction, annualizedPct float64, ok bool) {
	annualizedPct = f.AnnualizedRatePct()
	if abs(annualizedPct) < minAnnualizedPct {
		return "", annualizedPct, false
	}
	if f.FundingRate > 0 {
		return DirectionLongSpotShortPerp, annualizedPct, true
	}
	return DirectionShortSpotLongPerp, annualizedPct, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
