// FILE: aggregator.go
// Package metrics implements MetricsAggregator (spec §4.9): pure
// computation of performance and capital metrics over trade history and
// the open position set, grounded on
// original_source/src/xge/trading/metrics.py.
package metrics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kwonlabs/xge/internal/model"
)

// ReserveStatus mirrors metrics.py's OK/ALERT string.
type ReserveStatus string

const (
	ReserveOK    ReserveStatus = "OK"
	ReserveAlert ReserveStatus = "ALERT"
)

// Report is the typed record calculate_metrics returned as a dict.
type Report struct {
	TotalTrades           int
	WinRatePct            float64
	AvgPnLPerTrade        float64
	TotalRealizedPnL      float64
	TotalFundingCollected float64
	FundingYieldPct       float64
	AvgBasisCostPct       float64
	NetPnLRatioPct        float64
	FundingVsDrift        float64
	ProjectedMonthlyYield float64

	BestPair      string
	BestPairRatio float64
	WorstPair     string
	WorstPairRatio float64

	CapitalTotal     float64
	CapitalDeployed  float64
	CapitalFree      float64
	ReserveRebalance float64
	ReserveStatus    ReserveStatus
	OpenPositions    int
	DaysActive       float64
}

// Capital carries the CAPITAL config block metrics reads against.
type Capital struct {
	Total            float64
	Operative        float64
	ReserveRebalance float64
}

// nowFunc is overridable in tests; defaults to time.Now().
var nowFunc = func() time.Time { return time.Now() }

// Calculate computes a Report from closed trade history and the open
// position set, exactly mirroring calculate_metrics's field set.
func Calculate(history, open []model.Position, capital Capital) Report {
	var closed []model.Position
	for _, p := range history {
		if p.Status == model.StatusClosed || p.Status == model.StatusStaleClosed {
			closed = append(closed, p)
		}
	}
	totalTrades := len(closed)

	var totalRealized, totalFunding float64
	var positive int
	for _, t := range closed {
		totalRealized += t.RealizedPnL
		totalFunding += t.FundingCollected
		if t.RealizedPnL > 0 {
			positive++
		}
	}

	winRate := 0.0
	avgPnL := 0.0
	if totalTrades > 0 {
		winRate = float64(positive) / float64(totalTrades) * 100
		avgPnL = totalRealized / float64(totalTrades)
	}

	pairPnL := map[string]float64{}
	pairSize := map[string]float64{}
	for _, t := range closed {
		key := t.Exchange + ":" + t.Symbol
		pairPnL[key] += t.RealizedPnL
		pairSize[key] += t.SizeUSDT
	}
	pairRatio := map[string]float64{}
	for key, pnl := range pairPnL {
		if pairSize[key] > 0 {
			pairRatio[key] = pnl / pairSize[key] * 100
		}
	}
	bestPair, bestRatio := "N/A", 0.0
	worstPair, worstRatio := "N/A", 0.0
	first := true
	for key, ratio := range pairRatio {
		if first || ratio > bestRatio {
			bestPair, bestRatio = key, ratio
		}
		if first || ratio < worstRatio {
			worstPair, worstRatio = key, ratio
		}
		first = false
	}

	var totalSize float64
	for _, t := range closed {
		totalSize += t.SizeUSDT
	}
	fundingYield := 0.0
	if totalSize > 0 {
		fundingYield = totalFunding / totalSize * 100
	}
	netPnLRatio := 0.0
	if totalSize > 0 {
		netPnLRatio = totalRealized / totalSize * 100
	}

	var basisCosts []float64
	for _, t := range closed {
		if t.PerpEntryPrice > 0 {
			basisCosts = append(basisCosts, absf(t.SpotEntryPrice-t.PerpEntryPrice)/t.PerpEntryPrice*100)
		}
	}
	avgBasisCost := 0.0
	if len(basisCosts) > 0 {
		var sum float64
		for _, c := range basisCosts {
			sum += c
		}
		avgBasisCost = sum / float64(len(basisCosts))
	}

	var capitalDeployed float64
	for _, p := range open {
		capitalDeployed += p.SizeUSDT
	}
	capitalFree := capital.Operative - capitalDeployed
	reserveStatus := ReserveOK
	if capitalFree+capitalDeployed > capital.Operative {
		reserveStatus = ReserveAlert
	}
	estimatedBalance := capital.Total + totalRealized
	if estimatedBalance < capital.Operative {
		reserveStatus = ReserveAlert
	}

	totalNonFundingPnL := totalRealized - totalFunding
	fundingVsDrift := math.Inf(1)
	if totalNonFundingPnL != 0 {
		fundingVsDrift = absf(totalFunding / totalNonFundingPnL)
	}

	daysActive := 0.0
	projectedMonthly := 0.0
	if len(closed) > 0 {
		firstOpened := closed[0].OpenedAt
		for _, t := range closed {
			if t.OpenedAt < firstOpened {
				firstOpened = t.OpenedAt
			}
		}
		elapsed := nowFunc().Sub(time.Unix(int64(firstOpened), 0)).Hours() / 24
		daysActive = math.Max(elapsed, 1)
		projectedMonthly = (fundingYield / daysActive) * 30
	}

	return Report{
		TotalTrades: totalTrades, WinRatePct: winRate, AvgPnLPerTrade: avgPnL,
		TotalRealizedPnL: totalRealized, TotalFundingCollected: totalFunding,
		FundingYieldPct: fundingYield, AvgBasisCostPct: avgBasisCost, NetPnLRatioPct: netPnLRatio,
		FundingVsDrift: fundingVsDrift, ProjectedMonthlyYield: projectedMonthly,
		BestPair: bestPair, BestPairRatio: bestRatio, WorstPair: worstPair, WorstPairRatio: worstRatio,
		CapitalTotal: capital.Total, CapitalDeployed: capitalDeployed, CapitalFree: capitalFree,
		ReserveRebalance: capital.ReserveRebalance, ReserveStatus: reserveStatus,
		OpenPositions: len(open), DaysActive: daysActive,
	}
}

// FormatReport renders r as the same fixed-width text report
// format_report produces.
func FormatReport(r Report) string {
	var b strings.Builder
	line := strings.Repeat("=", 55)
	dash := strings.Repeat("-", 55)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "  XGE BASIS TRADE REPORT")
	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "  CAPITAL OVERVIEW")
	pct := 0.0
	if r.CapitalTotal > 0 {
		pct = r.CapitalDeployed / r.CapitalTotal * 100
	}
	fmt.Fprintf(&b, "  Total:       %10.0f USDT\n", r.CapitalTotal)
	fmt.Fprintf(&b, "  Deployed:    %10.2f USDT (%.0f%%)\n", r.CapitalDeployed, pct)
	fmt.Fprintf(&b, "  Free:        %10.2f USDT\n", r.CapitalFree)
	fmt.Fprintf(&b, "  Reserve:     %10.0f USDT [%s]\n", r.ReserveRebalance, r.ReserveStatus)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, dash)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "  PERFORMANCE")
	fmt.Fprintf(&b, "  Total trades:       %8d\n", r.TotalTrades)
	fmt.Fprintf(&b, "  Win rate:           %7.1f%%\n", r.WinRatePct)
	fmt.Fprintf(&b, "  Avg PnL/trade:     $%10.4f\n", r.AvgPnLPerTrade)
	fmt.Fprintf(&b, "  Total realized:    $%10.4f\n", r.TotalRealizedPnL)
	fmt.Fprintf(&b, "  Total funding:     $%10.4f\n", r.TotalFundingCollected)
	fmt.Fprintf(&b, "  Funding yield:      %7.2f%%\n", r.FundingYieldPct)
	fmt.Fprintf(&b, "  Avg basis cost:     %7.4f%%\n", r.AvgBasisCostPct)
	fmt.Fprintf(&b, "  Funding/drift:      %7.1fx\n", r.FundingVsDrift)
	fmt.Fprintf(&b, "  Projected monthly:  %7.2f%%\n", r.ProjectedMonthlyYield)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "  Best pair:   %s (%.2f%%)\n", r.BestPair, r.BestPairRatio)
	fmt.Fprintf(&b, "  Worst pair:  %s (%.2f%%)\n", r.WorstPair, r.WorstPairRatio)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "  Open positions: %d\n", r.OpenPositions)
	fmt.Fprintf(&b, "  Days active:    %.1f\n", r.DaysActive)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, line)
	return b.String()
}

// CapitalStatusLine renders the one-line capital summary
// log_capital_status emits every tick.
func CapitalStatusLine(deployed, free, reserve float64) string {
	return fmt.Sprintf("[CAPITAL] Deployed: $%.2f | Free: $%.2f | Reserve: $%.0f", deployed, free, reserve)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
