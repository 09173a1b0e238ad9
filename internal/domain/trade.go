package domain

// Trade side constants.
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Trade status constants.
const (
	TradeStatusSubmitted = "submitted"
	TradeStatusConfirmed = "confirmed"
	TradeStatusFailed    = "failed"
)

// Trade represents a submitted transaction and its confirmation
// outcome. Corresponds to the trades table in PostgreSQL. The record is
// inserted at submit time and updated once when confirmation resolves.
type Trade struct {
	TradeID     string // PRIMARY KEY, deterministic hash
	Mint        string // FK to launches
	Side        string // buy | sell
	TxSignature string
	SolLamports uint64 // lamports spent (buy) or received bound (sell)
	TokenAmount uint64 // token amount in the instruction
	Bound       uint64 // slippage bound encoded in the instruction
	SlippageBps uint64
	Status      string // submitted | confirmed | failed
	ErrorKind   string // empty unless failed
	Slot        int64  // confirmation slot, 0 until resolved
	SubmittedAt int64  // Unix timestamp in milliseconds
	ResolvedAt  int64  // confirmation resolution timestamp (ms), 0 until resolved
}
