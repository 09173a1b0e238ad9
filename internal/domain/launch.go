package domain

// Launch represents an observed token creation.
// Corresponds to the launches table in PostgreSQL; the mint is the
// primary key.
type Launch struct {
	Mint        string // token mint address, PRIMARY KEY
	Creator     string // deployer wallet address
	Name        string
	Symbol      string
	URI         string // off-chain metadata URI
	TxSignature string // creation transaction signature
	Slot        int64  // Solana slot number
	ObservedAt  int64  // Unix timestamp in milliseconds
}
