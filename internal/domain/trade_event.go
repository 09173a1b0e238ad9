package domain

// TradeEventRow is one observed buy or sell, archived append-only.
// Corresponds to the trade_events table in ClickHouse.
type TradeEventRow struct {
	Mint        string
	Trader      string // wallet that traded
	Side        string // buy | sell
	SolLamports uint64
	TxSignature string
	Slot        int64
	ObservedAt  int64 // Unix timestamp in milliseconds
}
