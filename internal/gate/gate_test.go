package gate

import (
	"math"
	"testing"
)

// healthyView satisfies every rule under DefaultThresholds.
func healthyView() View {
	return View{
		Mint:             "mint-1",
		AgeSeconds:       6.0,
		TotalSolIn:       4.9,
		UniqueBuyers:     5,
		SellCount:        0,
		LargestSingleBuy: 1.0,
		Velocity:         3.0,
		BuyAmounts:       []float64{1.0, 1.0, 1.0, 0.98, 0.92},
	}
}

func TestEvaluateTrigger(t *testing.T) {
	d := Evaluate(healthyView(), DefaultThresholds())
	if d.Outcome != OutcomeTrigger {
		t.Fatalf("expected TRIGGER, got %s (%s: %s)", d.Outcome, d.Reason, d.Detail)
	}
	if d.Reason != ReasonNone {
		t.Errorf("trigger must carry no close reason, got %s", d.Reason)
	}
}

func TestEvaluateRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*View)
		outcome Outcome
		reason  CloseReason
	}{
		{
			name:    "below min inflow waits",
			mutate:  func(v *View) { v.TotalSolIn = 1.5 },
			outcome: OutcomeWait,
		},
		{
			name:    "overshoot closes",
			mutate:  func(v *View) { v.TotalSolIn = 6.0 },
			outcome: OutcomeClose,
			reason:  ReasonOvershoot,
		},
		{
			name:    "too few buyers waits",
			mutate:  func(v *View) { v.UniqueBuyers = 3 },
			outcome: OutcomeWait,
		},
		{
			name:    "too many sells closes",
			mutate:  func(v *View) { v.SellCount = 4 },
			outcome: OutcomeClose,
			reason:  ReasonTooManySells,
		},
		{
			name:    "whale dominance closes",
			mutate:  func(v *View) { v.LargestSingleBuy = 2.0 }, // 40.8% of 4.9
			outcome: OutcomeClose,
			reason:  ReasonWhaleDominance,
		},
		{
			name:    "low velocity waits",
			mutate:  func(v *View) { v.Velocity = 0.5 },
			outcome: OutcomeWait,
		},
		{
			name:    "too young waits",
			mutate:  func(v *View) { v.AgeSeconds = 1.0 },
			outcome: OutcomeWait,
		},
		{
			name:    "stale closes",
			mutate:  func(v *View) { v.AgeSeconds = 11.0 },
			outcome: OutcomeClose,
			reason:  ReasonStale,
		},
		{
			name:    "bot pump closes",
			mutate:  func(v *View) { v.Velocity = 9.0 },
			outcome: OutcomeClose,
			reason:  ReasonBotPump,
		},
		{
			name:    "concentration closes",
			mutate: func(v *View) {
				// Largest stays under the 35% whale bound but the top
				// two together clear 50%.
				v.BuyAmounts = []float64{1.7, 0.8, 0.8, 0.8, 0.8}
				v.LargestSingleBuy = 1.7
			},
			outcome: OutcomeClose,
			reason:  ReasonConcentration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := healthyView()
			tt.mutate(&v)
			d := Evaluate(v, DefaultThresholds())
			if d.Outcome != tt.outcome {
				t.Fatalf("expected %s, got %s (%s)", tt.outcome, d.Outcome, d.Detail)
			}
			if d.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, d.Reason)
			}
		})
	}
}

// Rule 1 precedes everything: insufficient inflow yields Wait no matter
// how disqualifying the rest of the snapshot looks.
func TestEvaluateMinSolFirst(t *testing.T) {
	v := View{
		AgeSeconds:       30.0,
		TotalSolIn:       1.0,
		UniqueBuyers:     1,
		SellCount:        50,
		LargestSingleBuy: 1.0,
		Velocity:         0.03,
		BuyAmounts:       []float64{1.0},
	}
	d := Evaluate(v, DefaultThresholds())
	if d.Outcome != OutcomeWait {
		t.Fatalf("expected WAIT below min inflow, got %s (%s)", d.Outcome, d.Reason)
	}
}

// Ordering between close rules: overshoot wins over later disqualifiers.
func TestEvaluateOvershootBeforeSells(t *testing.T) {
	v := healthyView()
	v.TotalSolIn = 6.0
	v.SellCount = 10
	d := Evaluate(v, DefaultThresholds())
	if d.Reason != ReasonOvershoot {
		t.Errorf("expected overshoot to take precedence, got %s", d.Reason)
	}
}

func TestEvaluateWhaleZeroGuard(t *testing.T) {
	th := DefaultThresholds()
	th.MinSol = 0
	v := View{TotalSolIn: 0, UniqueBuyers: 10, Velocity: 2.0, AgeSeconds: 6}
	// Must not divide by zero; with zero inflow the whale rule is skipped.
	d := Evaluate(v, th)
	if d.Reason == ReasonWhaleDominance {
		t.Error("whale rule fired on zero inflow")
	}
}

func TestTop2Percent(t *testing.T) {
	amounts := []float64{3, 2, 1, 1}
	got := Top2Percent(amounts, 7)
	want := 5.0 / 7.0 * 100
	if math.Abs(got-want) > 0.01 {
		t.Errorf("expected top2 %.2f%%, got %.2f%%", want, got)
	}

	if Top2Percent(nil, 0) != 0 {
		t.Error("expected 0 for empty inflow")
	}

	// Order of amounts must not matter.
	if Top2Percent([]float64{1, 3, 1, 2}, 7) != got {
		t.Error("top2 depends on input order")
	}

	// Single buy: second slot is zero.
	if got := Top2Percent([]float64{2}, 2); got != 100 {
		t.Errorf("expected 100%%, got %.2f%%", got)
	}
}

func TestVelocityEpsilonFloor(t *testing.T) {
	// Near-zero age uses the epsilon floor instead of dividing by zero.
	got := Velocity(1.0, 0)
	if math.IsInf(got, 1) || math.IsNaN(got) {
		t.Fatalf("velocity not finite: %f", got)
	}
	if got != 1.0/ageEpsilon {
		t.Errorf("expected %.1f, got %f", 1.0/ageEpsilon, got)
	}

	if got := Velocity(6.0, 3.0); got != 2.0 {
		t.Errorf("expected 2.0, got %f", got)
	}
}
