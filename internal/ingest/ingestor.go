package ingest

import (
	"context"
	"log"
	"os"
	"sync/atomic"
	"time"

	"curve-sniper/internal/events"
	"curve-sniper/internal/observability"
	"curve-sniper/internal/solana"
)

// LogSource delivers log notifications for the subscribed program.
// *solana.LogStream satisfies it.
type LogSource interface {
	Notifications() <-chan solana.LogNotification
}

// Options configure the Ingestor. Zero values get defaults.
type Options struct {
	// Buffer is the outbound event channel capacity.
	Buffer int
	// Logger receives ingest diagnostics.
	Logger *log.Logger
}

// Ingestor consumes raw log notifications and emits typed events.
// Malformed payloads are dropped and counted, never fatal.
type Ingestor struct {
	source LogSource
	out    chan events.Event
	logger *log.Logger

	dropped atomic.Uint64
}

// NewIngestor creates an ingestor reading from source.
func NewIngestor(source LogSource, opts Options) *Ingestor {
	if opts.Buffer <= 0 {
		opts.Buffer = 1000
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[ingest] ", log.LstdFlags)
	}
	return &Ingestor{
		source: source,
		out:    make(chan events.Event, opts.Buffer),
		logger: opts.Logger,
	}
}

// Events returns the outbound event channel. It is closed when Run returns.
func (in *Ingestor) Events() <-chan events.Event {
	return in.out
}

// Dropped reports how many notifications were discarded.
func (in *Ingestor) Dropped() uint64 {
	return in.dropped.Load()
}

// Run consumes notifications until the context is cancelled or the source
// channel closes.
func (in *Ingestor) Run(ctx context.Context) {
	defer close(in.out)

	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-in.source.Notifications():
			if !ok {
				in.logger.Println("notification source closed")
				return
			}
			in.process(ctx, notif)
		}
	}
}

func (in *Ingestor) process(ctx context.Context, notif solana.LogNotification) {
	// Failed transactions never move the curve.
	if notif.Err != nil {
		return
	}

	ev, err := Decode(notif)
	if err != nil {
		in.drop(err)
		return
	}
	if ev == nil {
		return
	}

	observability.RecordEventIngested(string(ev.Kind()))

	select {
	case in.out <- ev:
	case <-ctx.Done():
	}
}

func (in *Ingestor) drop(err error) {
	in.dropped.Add(1)
	observability.RecordDecodeFailure()
	in.logger.Printf("dropped notification: %v", err)
}

// Decode classifies a notification and decodes its payload into a typed
// event. Returns (nil, nil) for notifications that are not pump.fun
// instruction logs.
func Decode(notif solana.LogNotification) (events.Event, error) {
	kind, payload, ok, err := classify(notif.Logs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	now := time.Now()
	switch kind {
	case events.KindCreate:
		ev, err := decodeCreate(payload)
		if err != nil {
			return nil, err
		}
		ev.Signature = notif.Signature
		ev.Slot = notif.Slot
		ev.Timestamp = now
		return ev, nil
	default:
		ev, err := decodeTrade(payload, kind == events.KindBuy)
		if err != nil {
			return nil, err
		}
		ev.Signature = notif.Signature
		ev.Slot = notif.Slot
		ev.Timestamp = now
		return ev, nil
	}
}
