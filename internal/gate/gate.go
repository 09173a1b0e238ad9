// Package gate decides whether a tracked token warrants entry. Evaluation
// is pure: it reads a snapshot of token flow and a threshold set and
// yields wait, close, or trigger.
package gate

import (
	"fmt"
	"time"
)

// Outcome is the terminal character of a decision.
type Outcome string

const (
	// OutcomeWait keeps the token under watch.
	OutcomeWait Outcome = "WAIT"
	// OutcomeClose abandons the token permanently.
	OutcomeClose Outcome = "CLOSE"
	// OutcomeTrigger fires an entry.
	OutcomeTrigger Outcome = "TRIGGER"
)

// CloseReason names why a token was abandoned.
type CloseReason string

const (
	ReasonNone           CloseReason = ""
	ReasonOvershoot      CloseReason = "overshoot"
	ReasonTooManySells   CloseReason = "too-many-sells"
	ReasonWhaleDominance CloseReason = "whale-dominance"
	ReasonStale          CloseReason = "stale"
	ReasonBotPump        CloseReason = "bot-pump"
	ReasonConcentration  CloseReason = "concentration"
)

// Decision is the result of one evaluation.
type Decision struct {
	Outcome Outcome
	Reason  CloseReason
	// Detail carries the failing comparison for logs and the journal.
	Detail string
}

// View is a read-only snapshot of a token's buy/sell flow.
type View struct {
	Mint             string
	Creator          string
	AgeSeconds       float64
	TotalSolIn       float64
	UniqueBuyers     int
	SellCount        int
	LargestSingleBuy float64
	// Velocity is SOL inflow per second, computed by the tracker.
	Velocity float64
	// BuyAmounts holds individual buy sizes in SOL, unordered.
	BuyAmounts []float64
}

// Thresholds parameterize the gate. All SOL amounts are whole SOL.
type Thresholds struct {
	MinSol              float64
	MaxSol              float64
	MinBuyers           int
	MaxSellsBeforeEntry int
	MaxSingleBuyPercent float64
	MinVelocity         float64
	MaxVelocity         float64
	MinTokenAge         time.Duration
	MaxTokenAge         time.Duration
	MaxTop2Percent      float64
}

// DefaultThresholds returns the calibrated production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSol:              2.0,
		MaxSol:              5.0,
		MinBuyers:           4,
		MaxSellsBeforeEntry: 3,
		MaxSingleBuyPercent: 35.0,
		MinVelocity:         1.0,
		MaxVelocity:         8.0,
		MinTokenAge:         2 * time.Second,
		MaxTokenAge:         10 * time.Second,
		MaxTop2Percent:      50.0,
	}
}

// ageEpsilon floors the velocity denominator so brand-new tokens do not
// divide by zero.
const ageEpsilon = 0.1

// Velocity is SOL inflow per second of token age.
func Velocity(totalSolIn, ageSeconds float64) float64 {
	age := ageSeconds
	if age < ageEpsilon {
		age = ageEpsilon
	}
	return totalSolIn / age
}

// Top2Percent is the share of total inflow held by the two largest buys.
// Returns 0 when there is no inflow.
func Top2Percent(buyAmounts []float64, totalSolIn float64) float64 {
	if totalSolIn <= 0 {
		return 0
	}
	var first, second float64
	for _, a := range buyAmounts {
		switch {
		case a > first:
			second = first
			first = a
		case a > second:
			second = a
		}
	}
	return (first + second) / totalSolIn * 100
}

// Evaluate applies the entry rules in order. The first rule whose
// condition holds determines the decision; later rules are not consulted.
func Evaluate(v View, th Thresholds) Decision {
	if v.TotalSolIn < th.MinSol {
		return wait("inflow %.2f SOL below %.2f", v.TotalSolIn, th.MinSol)
	}
	if v.TotalSolIn > th.MaxSol {
		return closed(ReasonOvershoot, "inflow %.2f SOL above %.2f", v.TotalSolIn, th.MaxSol)
	}
	if v.UniqueBuyers < th.MinBuyers {
		return wait("%d buyers below %d", v.UniqueBuyers, th.MinBuyers)
	}
	if v.SellCount > th.MaxSellsBeforeEntry {
		return closed(ReasonTooManySells, "%d sells above %d", v.SellCount, th.MaxSellsBeforeEntry)
	}
	if v.TotalSolIn > 0 {
		whalePct := v.LargestSingleBuy / v.TotalSolIn * 100
		if whalePct > th.MaxSingleBuyPercent {
			return closed(ReasonWhaleDominance, "largest buy %.1f%% above %.1f%%", whalePct, th.MaxSingleBuyPercent)
		}
	}
	if v.Velocity < th.MinVelocity {
		return wait("velocity %.2f below %.2f", v.Velocity, th.MinVelocity)
	}
	if v.AgeSeconds < th.MinTokenAge.Seconds() {
		return wait("age %.1fs below %.1fs", v.AgeSeconds, th.MinTokenAge.Seconds())
	}
	if v.AgeSeconds > th.MaxTokenAge.Seconds() {
		return closed(ReasonStale, "age %.1fs above %.1fs", v.AgeSeconds, th.MaxTokenAge.Seconds())
	}
	if v.Velocity > th.MaxVelocity {
		return closed(ReasonBotPump, "velocity %.2f above %.2f", v.Velocity, th.MaxVelocity)
	}
	top2 := Top2Percent(v.BuyAmounts, v.TotalSolIn)
	if top2 > th.MaxTop2Percent {
		return closed(ReasonConcentration, "top2 %.1f%% above %.1f%%", top2, th.MaxTop2Percent)
	}

	return Decision{Outcome: OutcomeTrigger}
}

func wait(format string, args ...interface{}) Decision {
	return Decision{Outcome: OutcomeWait, Detail: fmt.Sprintf(format, args...)}
}

func closed(reason CloseReason, format string, args ...interface{}) Decision {
	return Decision{Outcome: OutcomeClose, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
