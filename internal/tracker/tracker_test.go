package tracker

import (
	"testing"
	"time"

	"curve-sniper/internal/events"
	"curve-sniper/internal/gate"
)

const (
	mintA = "A914FxTY8cCXMaX17AjcteUR3GdXGZKeeb3hX6wPpump"
	mintB = "CKaTvCdrnARQAUK2ZmAXGroXqZ8BUNHESg1Zokngpump"
)

// newTestTracker returns a tracker with a controllable clock.
func newTestTracker(t *testing.T) (*Tracker, *time.Time) {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	tr := NewTracker(Options{})
	tr.now = func() time.Time { return now }
	return tr, &now
}

func create(mint string) *events.CreateEvent {
	return &events.CreateEvent{Mint: mint, Creator: "creator-1", Symbol: "TST"}
}

func buy(mint, trader string, sol float64) *events.TradeEvent {
	return &events.TradeEvent{Mint: mint, Trader: trader, SolLamports: uint64(sol * 1e9), IsBuy: true}
}

func sell(mint, trader string) *events.TradeEvent {
	return &events.TradeEvent{Mint: mint, Trader: trader, IsBuy: false}
}

func TestOnCreateIdempotent(t *testing.T) {
	tr, now := newTestTracker(t)

	tr.handleEvent(create(mintA))
	first := tr.states[mintA]

	*now = now.Add(3 * time.Second)
	tr.handleEvent(buy(mintA, "t1", 1.0))
	tr.handleEvent(create(mintA))

	if tr.Tracked() != 1 {
		t.Fatalf("expected 1 tracked state, got %d", tr.Tracked())
	}
	if got := tr.states[mintA]; got != first {
		t.Error("replayed create replaced existing state")
	}
	if tr.states[mintA].TotalSolIn != 1.0 {
		t.Error("replayed create reset accumulated flow")
	}
}

func TestOnBuyUnknownMintIgnored(t *testing.T) {
	tr, _ := newTestTracker(t)

	if n := tr.handleEvent(buy(mintA, "t1", 3.0)); n != nil {
		t.Errorf("expected no notice for untracked mint, got %+v", n)
	}
	if tr.Tracked() != 0 {
		t.Error("buy created state for untracked mint")
	}
}

func TestOnBuyAccumulates(t *testing.T) {
	tr, now := newTestTracker(t)
	tr.handleEvent(create(mintA))

	*now = now.Add(time.Second)
	tr.handleEvent(buy(mintA, "t1", 0.5))
	tr.handleEvent(buy(mintA, "t1", 0.8)) // same trader again
	tr.handleEvent(buy(mintA, "t2", 0.3))

	s := tr.states[mintA]
	if len(s.Buyers) != 2 {
		t.Errorf("expected 2 unique buyers, got %d", len(s.Buyers))
	}
	if s.BuyCount != 3 {
		t.Errorf("expected 3 buys, got %d", s.BuyCount)
	}
	if s.TotalSolIn != 1.6 {
		t.Errorf("expected 1.6 SOL in, got %f", s.TotalSolIn)
	}
	if s.LargestSingleBuy != 0.8 {
		t.Errorf("expected largest 0.8, got %f", s.LargestSingleBuy)
	}
	if len(s.BuyAmounts) != 3 {
		t.Errorf("expected 3 recorded amounts, got %d", len(s.BuyAmounts))
	}
}

func TestOnSellCountsOnly(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.handleEvent(create(mintA))

	tr.handleEvent(sell(mintA, "t1"))
	tr.handleEvent(sell(mintA, "t2"))
	tr.handleEvent(sell(mintB, "t1")) // untracked

	if got := tr.states[mintA].SellCount; got != 2 {
		t.Errorf("expected 2 sells, got %d", got)
	}
}

func TestPeakVelocityAgeGuard(t *testing.T) {
	tr, now := newTestTracker(t)
	tr.handleEvent(create(mintA))

	*now = now.Add(400 * time.Millisecond)
	tr.handleEvent(buy(mintA, "t1", 1.0))
	if got := tr.states[mintA].PeakVelocity; got != 0 {
		t.Errorf("peak velocity updated below age guard: %f", got)
	}

	*now = now.Add(200 * time.Millisecond) // age 0.6s
	tr.handleEvent(buy(mintA, "t2", 0.2))
	got := tr.states[mintA].PeakVelocity
	if got <= 0 {
		t.Error("peak velocity not updated past age guard")
	}
	want := 1.2 / 0.6
	if diff := got - want; diff > 0.01 || diff < -0.01 {
		t.Errorf("expected peak velocity %.2f, got %.2f", want, got)
	}
}

func TestEndToEndTrigger(t *testing.T) {
	tr, now := newTestTracker(t)
	tr.handleEvent(create(mintA))

	// Four buyers trickle in under the age floor; all evaluations wait.
	schedule := []struct {
		at     time.Duration
		trader string
	}{
		{600 * time.Millisecond, "t1"},
		{900 * time.Millisecond, "t2"},
		{1200 * time.Millisecond, "t3"},
		{1800 * time.Millisecond, "t4"},
	}
	start := *now
	for _, step := range schedule {
		*now = start.Add(step.at)
		if n := tr.handleEvent(buy(mintA, step.trader, 0.98)); n != nil {
			t.Fatalf("premature terminal decision at %v: %+v", step.at, n.Decision)
		}
	}

	// Fifth buyer lands at age 3s: 4.9 SOL, 5 buyers, velocity 1.63,
	// largest 20%, top2 40%.
	*now = start.Add(3 * time.Second)
	n := tr.handleEvent(buy(mintA, "t5", 0.98))
	if n == nil {
		t.Fatal("expected trigger notice")
	}
	if n.Decision.Outcome != gate.OutcomeTrigger {
		t.Fatalf("expected TRIGGER, got %s (%s)", n.Decision.Outcome, n.Decision.Detail)
	}
	if n.View.UniqueBuyers != 5 {
		t.Errorf("expected 5 buyers in view, got %d", n.View.UniqueBuyers)
	}
	if n.View.Creator != "creator-1" {
		t.Errorf("creator missing from view: %q", n.View.Creator)
	}

	// Closure is monotonic: nothing further for this mint.
	*now = start.Add(4 * time.Second)
	if n := tr.handleEvent(buy(mintA, "t6", 0.5)); n != nil {
		t.Errorf("decision after closure: %+v", n.Decision)
	}
}

func TestOvershootClosesOnce(t *testing.T) {
	tr, now := newTestTracker(t)
	tr.handleEvent(create(mintA))

	*now = now.Add(time.Second)
	if n := tr.handleEvent(buy(mintA, "t1", 3.0)); n != nil {
		t.Fatalf("unexpected terminal decision: %+v", n.Decision)
	}

	n := tr.handleEvent(buy(mintA, "t2", 3.5)) // 6.5 SOL total
	if n == nil {
		t.Fatal("expected close notice")
	}
	if n.Decision.Outcome != gate.OutcomeClose || n.Decision.Reason != gate.ReasonOvershoot {
		t.Fatalf("expected CLOSE/overshoot, got %s/%s", n.Decision.Outcome, n.Decision.Reason)
	}

	// Further buys and sells mutate state but never re-decide.
	if n := tr.handleEvent(buy(mintA, "t3", 1.0)); n != nil {
		t.Errorf("decision after close: %+v", n.Decision)
	}
	tr.handleEvent(sell(mintA, "t1"))
	if !tr.states[mintA].Closed {
		t.Error("state reopened")
	}
}

func TestSweepPurgesAndRecreates(t *testing.T) {
	tr, now := newTestTracker(t)
	tr.handleEvent(create(mintA))
	*now = now.Add(time.Second)
	tr.handleEvent(buy(mintA, "t1", 3.0))
	tr.handleEvent(buy(mintA, "t2", 3.5)) // closed on overshoot

	*now = now.Add(2 * time.Second)
	tr.handleEvent(create(mintB))

	// Past the watch horizon for mintA only.
	*now = now.Add(58 * time.Second)
	tr.sweep()

	if _, ok := tr.states[mintA]; ok {
		t.Error("expected mintA purged")
	}
	if _, ok := tr.states[mintB]; !ok {
		t.Error("mintB purged too early")
	}

	// A fresh launch of the same mint starts from zero.
	tr.handleEvent(create(mintA))
	s := tr.states[mintA]
	if s.Closed || s.TotalSolIn != 0 || len(s.Buyers) != 0 {
		t.Errorf("recreated state not fresh: %+v", s)
	}
}
