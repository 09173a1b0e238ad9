// Package engine wires the event stream, the token tracker, and the
// trade path into one run loop.
package engine

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"curve-sniper/internal/curve"
	"curve-sniper/internal/domain"
	"curve-sniper/internal/events"
	"curve-sniper/internal/exec"
	"curve-sniper/internal/gate"
	"curve-sniper/internal/idhash"
	"curve-sniper/internal/storage"
	"curve-sniper/internal/tracker"
	"curve-sniper/internal/trade"
)

// Entry describes a confirmed position handed to the position manager.
type Entry struct {
	Mint             string
	Creator          string
	Signature        string
	AgeSeconds       float64
	TotalSolIn       float64
	UniqueBuyers     int
	Velocity         float64
	ConcentrationPct float64
}

// PositionManager receives confirmed entries. Exit logic lives behind
// this boundary.
type PositionManager interface {
	OnEntry(ctx context.Context, e Entry)
}

// CurveSource gates entries on curve liquidity; *curve.Reader satisfies it.
type CurveSource interface {
	CheckLiquidity(ctx context.Context, mint string, buyLamports uint64) (*curve.Snapshot, error)
}

// Builder assembles signed buys; *trade.Builder satisfies it.
type Builder interface {
	BuildBuy(ctx context.Context, snap *curve.Snapshot, solLamports uint64) (*trade.SignedTransaction, *trade.Quote, error)
}

// Executor submits and confirms transactions; *exec.Client satisfies it.
type Executor interface {
	Submit(ctx context.Context, tx *trade.SignedTransaction) (string, error)
	Confirm(ctx context.Context, signature string) exec.Result
}

// Journal bundles the stores the engine records through. Nil stores
// disable that recording.
type Journal struct {
	Launches  storage.LaunchStore
	Decisions storage.DecisionStore
	Trades    storage.TradeStore
	Archive   storage.EventArchive
}

// Options configure the engine.
type Options struct {
	// BuySolLamports is the position size submitted on each trigger.
	BuySolLamports uint64
	// SlippageBps is recorded on journaled trades; the builder applies it.
	SlippageBps uint64
	// Buffer sizes the channel feeding the tracker.
	Buffer int
	// ArchiveFlushInterval bounds how long observed trades sit unflushed.
	ArchiveFlushInterval time.Duration
	// ArchiveBatchSize forces a flush when the buffer reaches this many rows.
	ArchiveBatchSize int
	Logger           *log.Logger
}

// Engine runs the decision loop and dispatches one detached trade task
// per trigger.
type Engine struct {
	tracker   *tracker.Tracker
	curves    CurveSource
	builder   Builder
	executor  Executor
	positions PositionManager
	journal   Journal
	opts      Options
	logger    *log.Logger

	tasks sync.WaitGroup
	now   func() time.Time
}

// New creates an engine around already-constructed components.
func New(tr *tracker.Tracker, curves CurveSource, builder Builder, executor Executor, positions PositionManager, journal Journal, opts Options) *Engine {
	if opts.BuySolLamports == 0 {
		opts.BuySolLamports = 500_000_000
	}
	if opts.SlippageBps == 0 {
		opts.SlippageBps = 500
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 1000
	}
	if opts.ArchiveFlushInterval <= 0 {
		opts.ArchiveFlushInterval = 2 * time.Second
	}
	if opts.ArchiveBatchSize <= 0 {
		opts.ArchiveBatchSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[engine] ", log.LstdFlags)
	}
	return &Engine{
		tracker:   tr,
		curves:    curves,
		builder:   builder,
		executor:  executor,
		positions: positions,
		journal:   journal,
		opts:      opts,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// Run consumes classified events until the context is cancelled or the
// input channel closes, then waits for in-flight trade tasks.
func (e *Engine) Run(ctx context.Context, in <-chan events.Event) {
	feed := make(chan events.Event, e.opts.Buffer)

	var trackerDone sync.WaitGroup
	trackerDone.Add(1)
	go func() {
		defer trackerDone.Done()
		e.tracker.Run(ctx, feed)
	}()

	flush := time.NewTicker(e.opts.ArchiveFlushInterval)
	defer flush.Stop()

	notices := e.tracker.Notices()
	var buf []*domain.TradeEventRow

	defer func() {
		e.flushArchive(buf)
		trackerDone.Wait()
		e.tasks.Wait()
		e.logger.Println("engine stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			close(feed)
			return
		case ev, ok := <-in:
			if !ok {
				close(feed)
				// Remaining decisions drain before shutdown.
				if notices != nil {
					for n := range notices {
						e.handleNotice(ctx, n)
					}
				}
				return
			}
			buf = e.journalEvent(ctx, ev, buf)
			select {
			case feed <- ev:
			case <-ctx.Done():
			}
		case n, ok := <-notices:
			if !ok {
				notices = nil
				continue
			}
			e.handleNotice(ctx, n)
		case <-flush.C:
			buf = e.flushAndReset(buf)
		}
	}
}

// journalEvent records launches and buffers trade events for the archive.
func (e *Engine) journalEvent(ctx context.Context, ev events.Event, buf []*domain.TradeEventRow) []*domain.TradeEventRow {
	switch t := ev.(type) {
	case *events.CreateEvent:
		if e.journal.Launches == nil {
			return buf
		}
		err := e.journal.Launches.Insert(ctx, &domain.Launch{
			Mint:        t.Mint,
			Creator:     t.Creator,
			Name:        t.Name,
			Symbol:      t.Symbol,
			URI:         t.URI,
			TxSignature: t.Signature,
			Slot:        int64(t.Slot),
			ObservedAt:  t.Timestamp.UnixMilli(),
		})
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			e.logger.Printf("journal launch %s: %v", t.Mint, err)
		}
	case *events.TradeEvent:
		if e.journal.Archive == nil {
			return buf
		}
		side := domain.TradeSideSell
		if t.IsBuy {
			side = domain.TradeSideBuy
		}
		buf = append(buf, &domain.TradeEventRow{
			Mint:        t.Mint,
			Trader:      t.Trader,
			Side:        side,
			SolLamports: t.SolLamports,
			TxSignature: t.Signature,
			Slot:        int64(t.Slot),
			ObservedAt:  t.Timestamp.UnixMilli(),
		})
		if len(buf) >= e.opts.ArchiveBatchSize {
			buf = e.flushAndReset(buf)
		}
	}
	return buf
}

func (e *Engine) flushAndReset(buf []*domain.TradeEventRow) []*domain.TradeEventRow {
	e.flushArchive(buf)
	return nil
}

func (e *Engine) flushArchive(buf []*domain.TradeEventRow) {
	if e.journal.Archive == nil || len(buf) == 0 {
		return
	}
	// The run context may already be cancelled during shutdown; the
	// flush gets its own bound.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.journal.Archive.InsertBulk(ctx, buf); err != nil {
		e.logger.Printf("archive flush of %d events: %v", len(buf), err)
	}
}

// handleNotice journals the decision and dispatches a trade task on
// triggers.
func (e *Engine) handleNotice(ctx context.Context, n tracker.Notice) {
	e.journalDecision(ctx, n)

	if n.Decision.Outcome != gate.OutcomeTrigger {
		return
	}

	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		e.runTrade(ctx, n)
	}()
}

func (e *Engine) journalDecision(ctx context.Context, n tracker.Notice) {
	if e.journal.Decisions == nil {
		return
	}

	outcome := domain.DecisionClose
	if n.Decision.Outcome == gate.OutcomeTrigger {
		outcome = domain.DecisionTrigger
	}

	decidedAt := n.At.UnixMilli()
	d := &domain.Decision{
		DecisionID:       idhash.ComputeDecisionID(n.View.Mint, outcome, decidedAt),
		Mint:             n.View.Mint,
		Outcome:          outcome,
		Reason:           string(n.Decision.Reason),
		Detail:           n.Decision.Detail,
		AgeSeconds:       n.View.AgeSeconds,
		TotalSolIn:       n.View.TotalSolIn,
		UniqueBuyers:     n.View.UniqueBuyers,
		SellCount:        n.View.SellCount,
		Velocity:         n.View.Velocity,
		ConcentrationPct: gate.Top2Percent(n.View.BuyAmounts, n.View.TotalSolIn),
		DecidedAt:        decidedAt,
	}
	if err := e.journal.Decisions.Insert(ctx, d); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		e.logger.Printf("journal decision %s: %v", n.View.Mint, err)
	}
}

// runTrade is the detached per-trigger task: liquidity check, build,
// submit, confirm, notify. Failures are logged and journaled, never
// propagated.
func (e *Engine) runTrade(ctx context.Context, n tracker.Notice) {
	mint := n.View.Mint

	snap, err := e.curves.CheckLiquidity(ctx, mint, e.opts.BuySolLamports)
	if err != nil {
		if errors.Is(err, curve.ErrLiquidity) {
			e.logger.Printf("entry skipped for %s: %v", mint, err)
		} else {
			e.logger.Printf("curve read for %s: %v", mint, err)
		}
		return
	}

	tx, quote, err := e.builder.BuildBuy(ctx, snap, e.opts.BuySolLamports)
	if err != nil {
		e.logger.Printf("build buy for %s: %v", mint, err)
		return
	}

	sig, err := e.executor.Submit(ctx, tx)
	if err != nil {
		e.logger.Printf("submit buy for %s: %v", mint, err)
		return
	}

	submittedAt := e.now().UnixMilli()
	tradeID := idhash.ComputeTradeID(mint, domain.TradeSideBuy, submittedAt)
	e.journalTrade(ctx, &domain.Trade{
		TradeID:     tradeID,
		Mint:        mint,
		Side:        domain.TradeSideBuy,
		TxSignature: sig,
		SolLamports: e.opts.BuySolLamports,
		TokenAmount: quote.Amount,
		Bound:       quote.Bound,
		SlippageBps: e.opts.SlippageBps,
		Status:      domain.TradeStatusSubmitted,
		SubmittedAt: submittedAt,
	})

	res := e.executor.Confirm(ctx, sig)
	e.resolveTrade(ctx, tradeID, res)

	if !res.Confirmed() {
		e.logger.Printf("entry for %s did not confirm: %s", mint, res.ErrorKind)
		return
	}

	if e.positions != nil {
		e.positions.OnEntry(ctx, Entry{
			Mint:             mint,
			Creator:          n.View.Creator,
			Signature:        sig,
			AgeSeconds:       n.View.AgeSeconds,
			TotalSolIn:       n.View.TotalSolIn,
			UniqueBuyers:     n.View.UniqueBuyers,
			Velocity:         n.View.Velocity,
			ConcentrationPct: gate.Top2Percent(n.View.BuyAmounts, n.View.TotalSolIn),
		})
	}
}

func (e *Engine) journalTrade(ctx context.Context, t *domain.Trade) {
	if e.journal.Trades == nil {
		return
	}
	if err := e.journal.Trades.Insert(ctx, t); err != nil {
		e.logger.Printf("journal trade %s: %v", t.TradeID, err)
	}
}

func (e *Engine) resolveTrade(ctx context.Context, tradeID string, res exec.Result) {
	if e.journal.Trades == nil {
		return
	}
	status := domain.TradeStatusFailed
	if res.Confirmed() {
		status = domain.TradeStatusConfirmed
	}
	err := e.journal.Trades.Resolve(ctx, tradeID, status, res.ErrorKind, int64(res.Slot), e.now().UnixMilli())
	if err != nil {
		e.logger.Printf("resolve trade %s: %v", tradeID, err)
	}
}
