// Package tracker maintains per-token flow state and runs the entry gate
// on every buy. All state is owned by a single goroutine; nothing here is
// safe for concurrent use.
package tracker

import (
	"context"
	"log"
	"os"
	"time"

	"curve-sniper/internal/events"
	"curve-sniper/internal/gate"
	"curve-sniper/internal/observability"
)

// TokenState is the tracked flow of one launched token.
type TokenState struct {
	Mint             string
	Creator          string
	CreatedAt        time.Time
	Buyers           map[string]struct{}
	BuyAmounts       []float64
	TotalSolIn       float64
	BuyCount         int
	SellCount        int
	LargestSingleBuy float64
	PeakVelocity     float64
	Closed           bool
}

// peakVelocityMinAge guards the peak velocity update: below this age the
// division would produce a spurious extreme reading.
const peakVelocityMinAge = 500 * time.Millisecond

// Notice is a terminal gate decision together with the snapshot that
// produced it.
type Notice struct {
	Decision     gate.Decision
	View         gate.View
	PeakVelocity float64
	At           time.Time
}

// Options configure the tracker. Zero values get defaults.
type Options struct {
	Thresholds gate.Thresholds
	// SweepInterval is how often stale states are purged.
	SweepInterval time.Duration
	// MaxWatch is the age beyond which a state is purged, closed or not.
	MaxWatch time.Duration
	// Buffer is the outbound notice channel capacity.
	Buffer int
	Logger *log.Logger
}

// Tracker consumes the event stream and emits terminal decisions.
type Tracker struct {
	opts    Options
	states  map[string]*TokenState
	notices chan Notice
	logger  *log.Logger
	now     func() time.Time
}

// NewTracker creates a tracker.
func NewTracker(opts Options) *Tracker {
	if opts.Thresholds == (gate.Thresholds{}) {
		opts.Thresholds = gate.DefaultThresholds()
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Second
	}
	if opts.MaxWatch <= 0 {
		opts.MaxWatch = 60 * time.Second
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 100
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[tracker] ", log.LstdFlags)
	}
	return &Tracker{
		opts:    opts,
		states:  make(map[string]*TokenState),
		notices: make(chan Notice, opts.Buffer),
		logger:  opts.Logger,
		now:     time.Now,
	}
}

// Notices returns the terminal decision channel. Closed when Run returns.
func (t *Tracker) Notices() <-chan Notice {
	return t.notices
}

// Run consumes events until the context is cancelled or the event channel
// closes.
func (t *Tracker) Run(ctx context.Context, in <-chan events.Event) {
	defer close(t.notices)

	sweepTicker := time.NewTicker(t.opts.SweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.C:
			t.sweep()
		case ev, ok := <-in:
			if !ok {
				t.logger.Println("event stream closed")
				return
			}
			if notice := t.handleEvent(ev); notice != nil {
				select {
				case t.notices <- *notice:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handleEvent mutates tracked state and returns a notice when the gate
// reaches a terminal decision.
func (t *Tracker) handleEvent(ev events.Event) *Notice {
	switch e := ev.(type) {
	case *events.CreateEvent:
		t.onCreate(e)
		return nil
	case *events.TradeEvent:
		if e.IsBuy {
			return t.onBuy(e)
		}
		t.onSell(e)
		return nil
	default:
		return nil
	}
}

// onCreate registers a new token. Replayed creates for a tracked mint are
// ignored.
func (t *Tracker) onCreate(e *events.CreateEvent) {
	if _, exists := t.states[e.Mint]; exists {
		return
	}
	t.states[e.Mint] = &TokenState{
		Mint:      e.Mint,
		Creator:   e.Creator,
		CreatedAt: t.now(),
		Buyers:    make(map[string]struct{}),
	}
	observability.UpdateTrackedTokens(len(t.states))
	t.logger.Printf("tracking %s (%s) by %s", e.Symbol, e.Mint, e.Creator)
}

func (t *Tracker) onBuy(e *events.TradeEvent) *Notice {
	state, ok := t.states[e.Mint]
	if !ok {
		return nil
	}

	sol := e.SolAmount()
	state.Buyers[e.Trader] = struct{}{}
	state.TotalSolIn += sol
	state.BuyCount++
	if sol > state.LargestSingleBuy {
		state.LargestSingleBuy = sol
	}
	state.BuyAmounts = append(state.BuyAmounts, sol)

	age := t.now().Sub(state.CreatedAt)
	if age >= peakVelocityMinAge {
		if v := state.TotalSolIn / age.Seconds(); v > state.PeakVelocity {
			state.PeakVelocity = v
		}
	}

	if state.Closed {
		return nil
	}
	return t.evaluate(state)
}

func (t *Tracker) onSell(e *events.TradeEvent) {
	if state, ok := t.states[e.Mint]; ok {
		state.SellCount++
	}
}

// evaluate runs the gate against the current state and closes the mint on
// a terminal outcome. A mint reaches at most one terminal decision.
func (t *Tracker) evaluate(state *TokenState) *Notice {
	now := t.now()
	view := t.viewOf(state, now)

	decision := gate.Evaluate(view, t.opts.Thresholds)
	if decision.Outcome == gate.OutcomeWait {
		return nil
	}

	state.Closed = true
	observability.RecordDecision(string(decision.Outcome), string(decision.Reason))
	t.logger.Printf("%s %s: %s %s", decision.Outcome, state.Mint, decision.Reason, decision.Detail)

	return &Notice{
		Decision:     decision,
		View:         view,
		PeakVelocity: state.PeakVelocity,
		At:           now,
	}
}

func (t *Tracker) viewOf(state *TokenState, now time.Time) gate.View {
	age := now.Sub(state.CreatedAt).Seconds()
	return gate.View{
		Mint:             state.Mint,
		Creator:          state.Creator,
		AgeSeconds:       age,
		TotalSolIn:       state.TotalSolIn,
		UniqueBuyers:     len(state.Buyers),
		SellCount:        state.SellCount,
		LargestSingleBuy: state.LargestSingleBuy,
		Velocity:         gate.Velocity(state.TotalSolIn, age),
		BuyAmounts:       append([]float64(nil), state.BuyAmounts...),
	}
}

// sweep purges states older than the watch horizon regardless of whether
// they are closed. A later create for the same mint starts fresh.
func (t *Tracker) sweep() {
	cutoff := t.now().Add(-t.opts.MaxWatch)
	swept := 0
	for mint, state := range t.states {
		if state.CreatedAt.Before(cutoff) {
			delete(t.states, mint)
			swept++
		}
	}
	if swept > 0 {
		observability.RecordTokensSwept(swept)
		observability.UpdateTrackedTokens(len(t.states))
		t.logger.Printf("swept %d stale states, %d tracked", swept, len(t.states))
	}
}

// Tracked reports the number of live token states.
func (t *Tracker) Tracked() int {
	return len(t.states)
}
