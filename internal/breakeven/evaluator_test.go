package breakeven

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testFees = Fees{Spot: 0.001, PerpMaker: 0.0005, PerpTaker: 0.001}

func TestEvaluateViable(t *testing.T) {
	r := Evaluate(1000, 50000, 50010, 0.0005, testFees, nil, nil)
	// entry: 1000*(0.001+0.001)=2, exit: 1000*(0.001+0.0005)=1.5, total=3.5
	assert.InDelta(t, 2.0, r.EntryCostUSDT, 1e-9)
	assert.InDelta(t, 1.5, r.ExitCostUSDT, 1e-9)
	assert.InDelta(t, 3.5, r.TotalCostUSDT, 1e-9)
	// funding_per_period = 1000*0.0005 = 0.5, periods = 3.5/0.5 = 7
	assert.InDelta(t, 0.5, r.FundingPerPeriod, 1e-9)
	assert.InDelta(t, 7.0, r.BreakevenPeriods, 1e-9)
	assert.InDelta(t, 56.0, r.BreakevenHours, 1e-9)
	assert.True(t, r.Viable)
}

func TestEvaluateNotViablePastNinePeriods(t *testing.T) {
	// small funding rate drags breakeven past the 9-period cutoff
	r := Evaluate(1000, 50000, 50010, 0.00005, testFees, nil, nil)
	assert.False(t, r.Viable)
}

func TestEvaluateZeroFundingRateIsInfinite(t *testing.T) {
	r := Evaluate(1000, 50000, 50010, 0, testFees, nil, nil)
	assert.True(t, math.IsInf(r.BreakevenPeriods, 1))
	assert.False(t, r.Viable)
}

func TestEvaluateNegativeFundingRateIsInfinite(t *testing.T) {
	r := Evaluate(1000, 50000, 50010, -0.0003, testFees, nil, nil)
	assert.True(t, math.IsInf(r.BreakevenPeriods, 1))
	assert.False(t, r.Viable)
}

// Cost and funding income both scale linearly with size, so breakeven
// periods is homogeneous of degree 0 in size: doubling size leaves the
// number of periods unchanged.
func TestEvaluateSizeInvariantHomogeneity(t *testing.T) {
	small := Evaluate(500, 50000, 50010, 0.0004, testFees, nil, nil)
	large := Evaluate(5000, 50000, 50010, 0.0004, testFees, nil, nil)
	assert.InDelta(t, small.BreakevenPeriods, large.BreakevenPeriods, 1e-9)
}

func TestEvaluateFeeOverrides(t *testing.T) {
	spotOverride := 0.0
	perpOverride := 0.0
	r := Evaluate(1000, 50000, 50010, 0.0005, testFees, &spotOverride, &perpOverride)
	assert.Equal(t, 0.0, r.TotalCostUSDT)
	assert.True(t, r.Viable)
}
