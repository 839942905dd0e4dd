// FILE: guard.go
// Package reserve implements ReserveGuard (spec §4.8): the global
// balance check and tiered forced-close cascade. It has no counterpart
// in original_source; it is built on internal/exit.Controller.Close.
package reserve

import (
	"context"
	"fmt"
	"time"

	"github.com/kwonlabs/xge/internal/exit"
	"github.com/kwonlabs/xge/internal/model"
	"github.com/kwonlabs/xge/internal/position"
)

// CascadeOrder is the tier closure order when the reserve is breached
// (Open Question 3): tier_2 (smaller, more disposable allocation) closes
// before tier_1 (the core allocation).
var CascadeOrder = []string{"tier_2", "tier_1"}

// Report records what ReserveGuard did this tick.
type Report struct {
	Breached         bool
	StartingBalance  float64
	EndingBalance    float64
	ClosedPositions  []model.Position
}

// Guard checks estimated_balance against the operative floor and, on
// breach, force-closes positions tier by tier via CascadeOrder until the
// balance is restored or every tier has been swept.
type Guard struct {
	positions      *position.Store
	exits          *exit.Controller
	capitalTotal   float64
	operativeFloor float64
}

// New builds a Guard. capitalTotal and operativeFloor come from the
// CAPITAL config block (spec §3).
func New(positions *position.Store, exits *exit.Controller, capitalTotal, operativeFloor float64) *Guard {
	return &Guard{positions: positions, exits: exits, capitalTotal: capitalTotal, operativeFloor: operativeFloor}
}

// EstimatedBalance computes CAPITAL.total + Σ history.realized_pnl.
func (g *Guard) EstimatedBalance(ctx context.Context) (float64, error) {
	history, err := g.positions.History(ctx)
	if err != nil {
		return 0, fmt.Errorf("reserve: history: %w", err)
	}
	balance := g.capitalTotal
	for _, p := range history {
		balance += p.RealizedPnL
	}
	return balance, nil
}

// Run checks the reserve and, if breached, force-closes positions tier
// by tier (CascadeOrder), recomputing the balance after each tier and
// stopping early once restored.
func (g *Guard) Run(ctx context.Context, now time.Time) (Report, error) {
	balance, err := g.EstimatedBalance(ctx)
	if err != nil {
		return Report{}, err
	}
	report := Report{StartingBalance: balance, EndingBalance: balance}
	if balance >= g.operativeFloor {
		return report, nil
	}
	report.Breached = true

	for _, tierName := range CascadeOrder {
		open, err := g.positions.List(ctx, "")
		if err != nil {
			return report, fmt.Errorf("reserve: list: %w", err)
		}
		for _, p := range open {
			if p.Tier != tierName {
				continue
			}
			outcome, err := g.exits.Close(ctx, p, model.ExitReasonReserveProtection, now)
			if err != nil {
				return report, fmt.Errorf("reserve: close %s:%s: %w", p.Exchange, p.Symbol, err)
			}
			report.ClosedPositions = append(report.ClosedPositions, outcome.Position)
		}

		balance, err = g.EstimatedBalance(ctx)
		if err != nil {
			return report, err
		}
		report.EndingBalance = balance
		if balance >= g.operativeFloor {
			break
		}
	}

	return report, nil
}
