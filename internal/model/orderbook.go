// Package model holds the wire types shared across the trading core:
// order book snapshots, funding entries, positions, and the signals/fills
// exchanged between the entry/exit controllers and the order execution
// adapter.
package model

import "encoding/json"

// OrderBookSnapshot is the latest top-of-book view for one (exchange, symbol)
// pair, as produced by the external collector.
type OrderBookSnapshot struct {
	Exchange  string  `json:"exchange"`
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	BidVolume float64 `json:"bid_volume"`
	AskVolume float64 `json:"ask_volume"`
	Timestamp float64 `json:"timestamp"`
}

// Mid returns the mid price, (bid+ask)/2.
func (s OrderBookSnapshot) Mid() float64 {
	return (s.Bid + s.Ask) / 2
}

// SpreadPct returns the bid/ask spread as a percentage of the bid.
func (s OrderBookSnapshot) SpreadPct() float64 {
	if s.Bid == 0 {
		return 0
	}
	return (s.Ask - s.Bid) / s.Bid * 100
}

// ToJSON serializes the snapshot for storage.
func (s OrderBookSnapshot) ToJSON() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// OrderBookSnapshotFromJSON deserializes a stored snapshot.
func OrderBookSnapshotFromJSON(data string) (OrderBookSnapshot, error) {
	var s OrderBookSnapshot
	err := json.Unmarshal([]byte(data), &s)
	return s, err
}
