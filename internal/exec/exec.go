// Package exec submits signed transactions and tracks them to a
// terminal confirmation state.
package exec

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"curve-sniper/internal/observability"
	"curve-sniper/internal/solana"
	"curve-sniper/internal/trade"
)

// Status is the terminal state of a submitted transaction.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Error kinds attached to failed results. ConfirmationTimeout means the
// confirmation bound expired with the transaction still unseen: unknown,
// not necessarily failed.
const (
	KindInstructionError    = "instruction-error"
	KindBlockhashExpired    = "blockhash-expired"
	KindInsufficientFunds   = "insufficient-funds"
	KindTransactionError    = "transaction-error"
	KindConfirmationTimeout = "confirmation-timeout"
)

// Result is the outcome of a confirmation poll.
type Result struct {
	Signature string
	Status    Status
	Slot      uint64
	ErrorKind string
	// Detail carries the raw on-chain error for the journal.
	Detail string
}

// Confirmed reports whether the transaction landed without error.
func (r Result) Confirmed() bool {
	return r.Status == StatusConfirmed
}

// RPC is the node surface the client needs; *solana.HTTPClient
// satisfies it.
type RPC interface {
	SendTransaction(ctx context.Context, signedTx string, opts solana.SendOptions) (string, error)
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*solana.SignatureStatus, error)
}

// Options configure the execution client.
type Options struct {
	// EnablePreflight turns the node's preflight simulation back on,
	// trading latency for an early rejection signal.
	EnablePreflight bool
	// MaxAttempts bounds the number of status polls per confirmation.
	MaxAttempts int
	// ConfirmTimeout bounds the total confirmation wait.
	ConfirmTimeout time.Duration
	// InitialBackoff is the first poll delay; it doubles up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         *log.Logger
}

// Client submits transactions and polls for their confirmation.
type Client struct {
	rpc    RPC
	opts   Options
	logger *log.Logger
}

// NewClient creates an execution client.
func NewClient(rpc RPC, opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 30
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 30 * time.Second
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 4 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[exec] ", log.LstdFlags)
	}
	return &Client{rpc: rpc, opts: opts, logger: opts.Logger}
}

// Submit sends a signed transaction. Preflight simulation is skipped
// unless EnablePreflight is set.
func (c *Client) Submit(ctx context.Context, tx *trade.SignedTransaction) (string, error) {
	sig, err := c.rpc.SendTransaction(ctx, tx.Wire, solana.SendOptions{
		SkipPreflight: !c.opts.EnablePreflight,
	})
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	observability.RecordTradeSubmitted()
	c.logger.Printf("submitted %s", sig)
	return sig, nil
}

// Confirm polls the signature status until a terminal confirmation
// level is seen or the attempt/time bound expires. On-chain errors are
// final and never retried.
func (c *Client) Confirm(ctx context.Context, signature string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ConfirmTimeout)
	defer cancel()

	start := time.Now()
	backoff := c.opts.InitialBackoff

	for attempt := 0; attempt < c.opts.MaxAttempts; attempt++ {
		statuses, err := c.rpc.GetSignatureStatuses(ctx, []string{signature})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Printf("status poll %s: %v", signature, err)
		} else if len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				res := Result{
					Signature: signature,
					Status:    StatusFailed,
					Slot:      st.Slot,
					ErrorKind: classifyChainError(st.Err),
					Detail:    renderChainError(st.Err),
				}
				observability.RecordTradeOutcome(res.ErrorKind)
				c.logger.Printf("failed %s: %s", signature, res.Detail)
				return res
			}
			if st.ConfirmationStatus == "confirmed" || st.ConfirmationStatus == "finalized" {
				observability.RecordTradeOutcome(string(StatusConfirmed))
				observability.RecordConfirmLatency(time.Since(start).Seconds())
				c.logger.Printf("confirmed %s in slot %d (%s)", signature, st.Slot, time.Since(start).Round(time.Millisecond))
				return Result{Signature: signature, Status: StatusConfirmed, Slot: st.Slot}
			}
		}

		select {
		case <-ctx.Done():
			attempt = c.opts.MaxAttempts
		case <-time.After(backoff):
			backoff = nextBackoff(backoff, c.opts.MaxBackoff)
		}
	}

	observability.RecordTradeOutcome(KindConfirmationTimeout)
	c.logger.Printf("confirmation timed out for %s after %s", signature, time.Since(start).Round(time.Millisecond))
	return Result{
		Signature: signature,
		Status:    StatusFailed,
		ErrorKind: KindConfirmationTimeout,
		Detail:    "status unknown within confirmation bound",
	}
}

// nextBackoff doubles the poll delay up to the cap.
func nextBackoff(d, max time.Duration) time.Duration {
	d *= 2
	if d > max {
		return max
	}
	return d
}

// classifyChainError maps a raw status error into a stable kind.
func classifyChainError(raw interface{}) string {
	s := renderChainError(raw)
	switch {
	case strings.Contains(s, "InstructionError"):
		return KindInstructionError
	case strings.Contains(s, "BlockhashNotFound"):
		return KindBlockhashExpired
	case strings.Contains(s, "InsufficientFunds"):
		return KindInsufficientFunds
	default:
		return KindTransactionError
	}
}

func renderChainError(raw interface{}) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	return string(b)
}
