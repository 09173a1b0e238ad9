package trade

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"curve-sniper/internal/cache"
	"curve-sniper/internal/curve"
	"curve-sniper/internal/solana"
	"curve-sniper/internal/wallet"
)

// BlockhashFetcher provides a recent blockhash; *solana.HTTPClient
// satisfies it.
type BlockhashFetcher interface {
	GetLatestBlockhash(ctx context.Context) (*solana.Blockhash, error)
}

// CurveAddresser derives bonding curve addresses; *curve.Reader
// satisfies it.
type CurveAddresser interface {
	DeriveAddress(mint string) (string, error)
}

// Quote captures the computed trade bounds for the journal and logs.
type Quote struct {
	// TokensOut is the raw constant-product quote.
	TokensOut uint64
	// Amount is the instruction's amount field after slippage.
	Amount uint64
	// Bound is the instruction's limit field (max cost or min proceeds).
	Bound uint64
}

// Options configure the Builder.
type Options struct {
	// SlippageBps is the slippage tolerance in basis points.
	SlippageBps uint64
	// BlockhashTTL bounds reuse of a fetched blockhash.
	BlockhashTTL time.Duration
	Logger       *log.Logger
}

// Builder assembles signed buy and sell transactions.
type Builder struct {
	blockhash BlockhashFetcher
	curves    CurveAddresser
	wallet    wallet.Wallet
	opts      Options
	recent    *cache.TTL[string, string]
	logger    *log.Logger
}

// NewBuilder creates a trade builder.
func NewBuilder(blockhash BlockhashFetcher, curves CurveAddresser, w wallet.Wallet, opts Options) *Builder {
	if opts.SlippageBps == 0 {
		opts.SlippageBps = 500
	}
	if opts.BlockhashTTL <= 0 {
		opts.BlockhashTTL = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[trade] ", log.LstdFlags)
	}
	return &Builder{
		blockhash: blockhash,
		curves:    curves,
		wallet:    w,
		opts:      opts,
		recent:    cache.New[string, string](opts.BlockhashTTL),
		logger:    opts.Logger,
	}
}

// resolveAccounts derives every address the trade touches.
func (b *Builder) resolveAccounts(mint string) (TradeAccounts, error) {
	curveAddr, err := b.curves.DeriveAddress(mint)
	if err != nil {
		return TradeAccounts{}, err
	}
	vault, err := solana.DeriveATA(curveAddr, mint)
	if err != nil {
		return TradeAccounts{}, err
	}
	user := b.wallet.PublicKey()
	userATA, err := solana.DeriveATA(user, mint)
	if err != nil {
		return TradeAccounts{}, err
	}
	return TradeAccounts{
		Mint:         mint,
		BondingCurve: curveAddr,
		CurveVault:   vault,
		UserATA:      userATA,
		User:         user,
	}, nil
}

func (b *Builder) recentBlockhash(ctx context.Context) (string, error) {
	if hash, ok := b.recent.Get("latest"); ok {
		return hash, nil
	}
	bh, err := b.blockhash.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch blockhash: %w", err)
	}
	b.recent.Set("latest", bh.Hash)
	return bh.Hash, nil
}

// BuildBuy assembles and signs a buy of solLamports against the given
// curve snapshot. The ATA-create instruction is prepended when the
// wallet has no token account for the mint yet.
func (b *Builder) BuildBuy(ctx context.Context, snap *curve.Snapshot, solLamports uint64) (*SignedTransaction, *Quote, error) {
	tokensOut := curve.TokensOut(snap.VirtualTokenReserves, snap.VirtualSolReserves, solLamports)
	if tokensOut == 0 {
		return nil, nil, fmt.Errorf("zero token quote for %d lamports", solLamports)
	}
	quote := &Quote{
		TokensOut: tokensOut,
		Amount:    curve.WithSlippageDown(tokensOut, b.opts.SlippageBps),
		Bound:     curve.WithSlippageUp(solLamports, b.opts.SlippageBps),
	}

	accounts, err := b.resolveAccounts(snap.Mint)
	if err != nil {
		return nil, nil, err
	}

	var instructions []Instruction
	exists, err := b.wallet.TokenAccountExists(ctx, snap.Mint)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		instructions = append(instructions,
			createATAInstruction(accounts.User, accounts.UserATA, accounts.User, accounts.Mint))
	}
	instructions = append(instructions, buyInstruction(accounts, quote.Amount, quote.Bound))

	tx, err := b.compileAndSign(ctx, instructions)
	if err != nil {
		return nil, nil, err
	}

	b.logger.Printf("built buy %s: %d lamports for >=%d tokens (sig %s)",
		snap.Mint, solLamports, quote.Amount, tx.Signature)
	return tx, quote, nil
}

// BuildSell assembles and signs a sell of tokenAmount tokens.
func (b *Builder) BuildSell(ctx context.Context, snap *curve.Snapshot, tokenAmount uint64) (*SignedTransaction, *Quote, error) {
	solOut := curve.SolOut(snap.VirtualTokenReserves, snap.VirtualSolReserves, tokenAmount)
	if solOut == 0 {
		return nil, nil, fmt.Errorf("zero sol quote for %d tokens", tokenAmount)
	}
	quote := &Quote{
		TokensOut: solOut,
		Amount:    tokenAmount,
		Bound:     curve.WithSlippageDown(solOut, b.opts.SlippageBps),
	}

	accounts, err := b.resolveAccounts(snap.Mint)
	if err != nil {
		return nil, nil, err
	}

	tx, err := b.compileAndSign(ctx, []Instruction{
		sellInstruction(accounts, quote.Amount, quote.Bound),
	})
	if err != nil {
		return nil, nil, err
	}

	b.logger.Printf("built sell %s: %d tokens for >=%d lamports (sig %s)",
		snap.Mint, tokenAmount, quote.Bound, tx.Signature)
	return tx, quote, nil
}

func (b *Builder) compileAndSign(ctx context.Context, instructions []Instruction) (*SignedTransaction, error) {
	hash, err := b.recentBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	message, err := CompileMessage(b.wallet.PublicKey(), hash, instructions)
	if err != nil {
		return nil, fmt.Errorf("compile message: %w", err)
	}
	return SignMessage(message, b.wallet)
}
