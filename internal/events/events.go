// Package events defines the typed launch and trade events produced by the
// log ingestor. Amounts are lamports; SOL floats appear only at the
// decision boundary.
package events

import "time"

// EventKind identifies the concrete event type.
type EventKind string

const (
	KindCreate EventKind = "create"
	KindBuy    EventKind = "buy"
	KindSell   EventKind = "sell"
)

// Event is the tagged union over launch and trade events.
type Event interface {
	Kind() EventKind
	MintAddress() string
}

// CreateEvent is emitted when a new token launches on the bonding curve.
type CreateEvent struct {
	Signature string
	Slot      uint64
	Mint      string
	Creator   string
	Name      string
	Symbol    string
	URI       string
	Timestamp time.Time
}

func (e *CreateEvent) Kind() EventKind     { return KindCreate }
func (e *CreateEvent) MintAddress() string { return e.Mint }

// TradeEvent is a single buy or sell against a token's bonding curve.
type TradeEvent struct {
	Signature   string
	Slot        uint64
	Mint        string
	Trader      string
	SolLamports uint64
	IsBuy       bool
	Timestamp   time.Time
}

func (e *TradeEvent) Kind() EventKind {
	if e.IsBuy {
		return KindBuy
	}
	return KindSell
}

func (e *TradeEvent) MintAddress() string { return e.Mint }

// SolAmount returns the trade size in SOL.
func (e *TradeEvent) SolAmount() float64 {
	return float64(e.SolLamports) / 1e9
}
