// Package curve reads pump.fun bonding curve accounts and answers
// liquidity and slippage questions about them.
package curve

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"curve-sniper/internal/cache"
	"curve-sniper/internal/ingest"
	"curve-sniper/internal/observability"
	"curve-sniper/internal/solana"
)

// curveSeed prefixes the bonding curve PDA derivation.
const curveSeed = "bonding-curve"

// Account layout offsets, after the 8-byte discriminator header.
const (
	offVirtualTokenReserves = 8
	offVirtualSolReserves   = 16
	offRealTokenReserves    = 24
	offRealSolReserves      = 32
	offTokenTotalSupply     = 40
	offComplete             = 48
	accountMinLen           = 49
)

// Liquidity check failures. All wrap ErrLiquidity.
var (
	ErrLiquidity            = errors.New("liquidity check failed")
	ErrCurveNotFound        = fmt.Errorf("%w: curve account not found", ErrLiquidity)
	ErrCurveMigrated        = fmt.Errorf("%w: curve already migrated", ErrLiquidity)
	ErrLowLiquidity         = fmt.Errorf("%w: reserves below floor", ErrLiquidity)
	ErrInsufficientMultiple = fmt.Errorf("%w: reserves below required multiple of buy", ErrLiquidity)
)

// Snapshot is a decoded bonding curve account at a point in time.
type Snapshot struct {
	Mint                 string
	Address              string
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	FetchedAt            time.Time
}

// Price is virtual SOL over virtual token reserves, in lamports per base
// token unit. Zero when the token side is empty.
func (s *Snapshot) Price() float64 {
	if s.VirtualTokenReserves == 0 {
		return 0
	}
	return float64(s.VirtualSolReserves) / float64(s.VirtualTokenReserves)
}

// AccountFetcher fetches raw accounts; *solana.HTTPClient satisfies it.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
}

// Options configure the Reader. Zero values get defaults.
type Options struct {
	// ProgramID overrides the pump.fun program address.
	ProgramID string
	// SnapshotTTL bounds how long a fetched snapshot may be reused.
	SnapshotTTL time.Duration
	// MinSolReserves is the absolute liquidity floor in lamports.
	MinSolReserves uint64
	// ReserveMultiple is how many times the intended buy the real SOL
	// reserves must cover.
	ReserveMultiple uint64
	Logger          *log.Logger
}

// Reader reads and caches bonding curve state.
type Reader struct {
	fetcher   AccountFetcher
	programID string
	opts      Options
	snapshots *cache.TTL[string, *Snapshot]
	addresses *cache.TTL[string, string]
	logger    *log.Logger
}

// NewReader creates a curve reader.
func NewReader(fetcher AccountFetcher, opts Options) *Reader {
	if opts.ProgramID == "" {
		opts.ProgramID = ingest.PumpFunProgramID
	}
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = 2 * time.Second
	}
	if opts.MinSolReserves == 0 {
		opts.MinSolReserves = 500_000_000 // 0.5 SOL
	}
	if opts.ReserveMultiple == 0 {
		opts.ReserveMultiple = 3
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[curve] ", log.LstdFlags)
	}
	return &Reader{
		fetcher:   fetcher,
		programID: opts.ProgramID,
		opts:      opts,
		snapshots: cache.New[string, *Snapshot](opts.SnapshotTTL),
		addresses: cache.New[string, string](time.Hour),
		logger:    opts.Logger,
	}
}

// DeriveAddress returns the bonding curve PDA for mint. Derivation is
// deterministic and cached.
func (r *Reader) DeriveAddress(mint string) (string, error) {
	if addr, ok := r.addresses.Get(mint); ok {
		return addr, nil
	}

	mintRaw, err := solana.DecodePubkey(mint)
	if err != nil {
		return "", err
	}
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(curveSeed), mintRaw}, r.programID)
	if err != nil {
		return "", fmt.Errorf("derive curve address for %s: %w", mint, err)
	}

	r.addresses.Set(mint, addr)
	return addr, nil
}

// GetSnapshot returns curve state for mint, from cache when fresh. A
// stale entry is always refetched, never reused.
func (r *Reader) GetSnapshot(ctx context.Context, mint string) (*Snapshot, error) {
	if snap, ok := r.snapshots.Get(mint); ok {
		observability.RecordCurveFetch("cache")
		return snap, nil
	}

	addr, err := r.DeriveAddress(mint)
	if err != nil {
		return nil, err
	}

	info, err := r.fetcher.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("fetch curve account %s: %w", addr, err)
	}
	if info == nil {
		return nil, ErrCurveNotFound
	}

	snap, err := decodeAccount(info.Data)
	if err != nil {
		return nil, fmt.Errorf("curve account %s: %w", addr, err)
	}
	snap.Mint = mint
	snap.Address = addr
	snap.FetchedAt = time.Now()

	observability.RecordCurveFetch("rpc")
	r.snapshots.Set(mint, snap)
	return snap, nil
}

// decodeAccount parses the fixed little-endian account layout.
func decodeAccount(data []byte) (*Snapshot, error) {
	if len(data) < accountMinLen {
		return nil, fmt.Errorf("account data %d bytes, need %d", len(data), accountMinLen)
	}
	return &Snapshot{
		VirtualTokenReserves: binary.LittleEndian.Uint64(data[offVirtualTokenReserves:]),
		VirtualSolReserves:   binary.LittleEndian.Uint64(data[offVirtualSolReserves:]),
		RealTokenReserves:    binary.LittleEndian.Uint64(data[offRealTokenReserves:]),
		RealSolReserves:      binary.LittleEndian.Uint64(data[offRealSolReserves:]),
		TokenTotalSupply:     binary.LittleEndian.Uint64(data[offTokenTotalSupply:]),
		Complete:             data[offComplete] != 0,
	}, nil
}

// CheckLiquidity verifies the curve can absorb a buy of buyLamports.
func (r *Reader) CheckLiquidity(ctx context.Context, mint string, buyLamports uint64) (*Snapshot, error) {
	snap, err := r.GetSnapshot(ctx, mint)
	if err != nil {
		if errors.Is(err, ErrCurveNotFound) {
			observability.RecordLiquiditySkip("not-found")
		}
		return nil, err
	}

	if snap.Complete {
		observability.RecordLiquiditySkip("migrated")
		return nil, fmt.Errorf("%w: mint %s", ErrCurveMigrated, mint)
	}
	if snap.RealSolReserves < r.opts.MinSolReserves {
		observability.RecordLiquiditySkip("low-reserves")
		return nil, fmt.Errorf("%w: %d lamports below %d", ErrLowLiquidity, snap.RealSolReserves, r.opts.MinSolReserves)
	}
	if snap.RealSolReserves < buyLamports*r.opts.ReserveMultiple {
		observability.RecordLiquiditySkip("thin-for-size")
		return nil, fmt.Errorf("%w: reserves %d, need %dx of %d", ErrInsufficientMultiple, snap.RealSolReserves, r.opts.ReserveMultiple, buyLamports)
	}

	return snap, nil
}

// EstimateSlippage returns the percent by which the constant-product
// execution price for a buy of buyLamports exceeds the spot price.
func EstimateSlippage(snap *Snapshot, buyLamports uint64) float64 {
	if buyLamports == 0 || snap.VirtualTokenReserves == 0 || snap.VirtualSolReserves == 0 {
		return 0
	}

	tokensOut := TokensOut(snap.VirtualTokenReserves, snap.VirtualSolReserves, buyLamports)
	if tokensOut == 0 {
		return 100
	}

	execPrice := float64(buyLamports) / float64(tokensOut)
	spotPrice := snap.Price()
	if spotPrice == 0 {
		return 0
	}
	return (execPrice/spotPrice - 1) * 100
}
