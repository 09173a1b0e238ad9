package domain

// Decision outcome constants.
const (
	DecisionTrigger = "trigger"
	DecisionClose   = "close"
)

// Decision represents a terminal gate verdict for one launch.
// Corresponds to the decisions table in PostgreSQL. A mint receives at
// most one decision.
type Decision struct {
	DecisionID       string  // PRIMARY KEY, deterministic hash
	Mint             string  // UNIQUE, FK to launches
	Outcome          string  // trigger | close
	Reason           string  // close reason, empty for triggers
	Detail           string  // human-readable rule detail
	AgeSeconds       float64 // token age at decision time
	TotalSolIn       float64 // cumulative buy volume in SOL
	UniqueBuyers     int
	SellCount        int
	Velocity         float64 // SOL per second at decision time
	ConcentrationPct float64 // top-2 buyer share of volume
	DecidedAt        int64   // Unix timestamp in milliseconds
}
