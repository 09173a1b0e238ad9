package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"curve-sniper/internal/curve"
	"curve-sniper/internal/engine"
	"curve-sniper/internal/exec"
	"curve-sniper/internal/ingest"
	"curve-sniper/internal/observability"
	"curve-sniper/internal/solana"
	"curve-sniper/internal/storage"
	chstore "curve-sniper/internal/storage/clickhouse"
	"curve-sniper/internal/storage/memory"
	"curve-sniper/internal/storage/migrations"
	pgstore "curve-sniper/internal/storage/postgres"
	"curve-sniper/internal/tracker"
	"curve-sniper/internal/trade"
	"curve-sniper/internal/wallet"
)

const lamportsPerSol = 1_000_000_000

func main() {
	// Parse flags; SNIPER_WALLET_KEY comes from the environment so the
	// secret never appears in process listings.
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for the trade journal")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the event archive (empty to keep it in memory)")
	buySol := flag.Float64("buy-sol", 0.5, "Position size per entry in SOL")
	slippageBps := flag.Uint64("slippage-bps", 500, "Slippage tolerance in basis points")
	preflight := flag.Bool("preflight", false, "Run the node's preflight simulation before submitting")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[sniper] ", log.LstdFlags|log.Lshortfile)

	// Load .env if present; the real environment still wins.
	if err := godotenv.Load(); err == nil {
		logger.Println("Loaded .env")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err := run(ctx, logger, *rpcEndpoint, *wsEndpoint, *postgresDSN, *clickhouseDSN, *buySol, *slippageBps, *preflight, *useMemory)

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// run wires the live pipeline and blocks until ctx is cancelled or the
// event stream ends.
func run(ctx context.Context, logger *log.Logger, rpcEndpoint, wsEndpoint, postgresDSN, clickhouseDSN string, buySol float64, slippageBps uint64, preflight, useMemory bool) error {
	if rpcEndpoint == "" {
		return fmt.Errorf("--rpc-endpoint is required")
	}
	if wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required")
	}
	if buySol <= 0 {
		return fmt.Errorf("--buy-sol must be positive")
	}
	secret := os.Getenv("SNIPER_WALLET_KEY")
	if secret == "" {
		return fmt.Errorf("SNIPER_WALLET_KEY is required (base58 ed25519 secret)")
	}

	// Require --postgres-dsn unless --use-memory is explicitly set
	if !useMemory && postgresDSN == "" {
		return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create RPC client
	rpc := solana.NewHTTPClient(rpcEndpoint)

	// Create stores (use interfaces)
	var launchStore storage.LaunchStore = memory.NewLaunchStore()
	var decisionStore storage.DecisionStore = memory.NewDecisionStore()
	var tradeStore storage.TradeStore = memory.NewTradeStore()
	var eventArchive storage.EventArchive = memory.NewEventArchive()

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("create postgres pool: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}

		launchStore = pgstore.NewLaunchStore(pool)
		decisionStore = pgstore.NewDecisionStore(pool)
		tradeStore = pgstore.NewTradeStore(pool)
		logger.Println("Using PostgreSQL journal")

		if clickhouseDSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
			if err != nil {
				return fmt.Errorf("run clickhouse migrations: %w", err)
			}
			defer conn.Close()

			eventArchive = chstore.NewTradeEventArchive(conn)
			logger.Println("Using ClickHouse event archive")
		}
	} else {
		logger.Println("Using in-memory storage")
	}

	// Wallet from the environment secret; the RPC client answers the
	// ATA existence probe.
	kp, err := wallet.NewKeypair(secret, rpc)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	logger.Printf("Wallet loaded: %s", kp.PublicKey())

	balance, err := rpc.GetBalance(ctx, kp.PublicKey())
	if err != nil {
		return fmt.Errorf("fetch wallet balance: %w", err)
	}
	logger.Printf("Wallet balance: %.4f SOL", float64(balance)/lamportsPerSol)
	if balance < uint64(buySol*lamportsPerSol) {
		return fmt.Errorf("wallet balance %d lamports below position size %d", balance, uint64(buySol*lamportsPerSol))
	}

	// Subscribe to pump.fun program logs
	stream, err := solana.NewLogStream(ctx, wsEndpoint, []string{ingest.PumpFunProgramID}, nil, nil)
	if err != nil {
		return fmt.Errorf("open log stream: %w", err)
	}
	defer stream.Close()

	ingestor := ingest.NewIngestor(stream, ingest.Options{})
	go ingestor.Run(ctx)

	curves := curve.NewReader(rpc, curve.Options{})
	builder := trade.NewBuilder(rpc, curves, kp, trade.Options{SlippageBps: slippageBps})
	executor := exec.NewClient(rpc, exec.Options{EnablePreflight: preflight})
	tr := tracker.NewTracker(tracker.Options{})

	eng := engine.New(tr, curves, builder, executor, &logPositions{logger: logger}, engine.Journal{
		Launches:  launchStore,
		Decisions: decisionStore,
		Trades:    tradeStore,
		Archive:   eventArchive,
	}, engine.Options{
		BuySolLamports: uint64(buySol * lamportsPerSol),
		SlippageBps:    slippageBps,
		Logger:         logger,
	})

	logger.Printf("Watching launches on %s", ingest.PumpFunProgramID)
	eng.Run(ctx, ingestor.Events())
	return ctx.Err()
}

// logPositions records confirmed entries in the log. Position lifecycle
// management past entry runs elsewhere.
type logPositions struct {
	logger *log.Logger
}

func (p *logPositions) OnEntry(ctx context.Context, e engine.Entry) {
	p.logger.Printf("ENTRY %s sig=%s buyers=%d sol_in=%.3f velocity=%.2f",
		e.Mint, e.Signature, e.UniqueBuyers, e.TotalSolIn, e.Velocity)
}
