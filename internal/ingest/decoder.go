// Package ingest turns raw pump.fun log notifications into typed launch
// and trade events.
package ingest

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"curve-sniper/internal/events"
)

// PumpFunProgramID is the pump.fun bonding curve program.
const PumpFunProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// Anchor event discriminators emitted in Program data logs.
var (
	createEventDiscriminator = [8]byte{27, 114, 169, 77, 222, 235, 99, 118}
)

// ErrDecode wraps all event payload decode failures. Callers drop and
// count these; they are never fatal.
var ErrDecode = errors.New("decode error")

const (
	logPrefixProgramData = "Program data: "
	logInstructionCreate = "Program log: Instruction: Create"
	logInstructionBuy    = "Program log: Instruction: Buy"
	logInstructionSell   = "Program log: Instruction: Sell"
)

// classify inspects log lines and returns the event kind plus the binary
// payload of the last "Program data:" line. ok is false when the logs
// carry no recognizable pump.fun instruction or no data line.
func classify(logs []string) (kind events.EventKind, payload []byte, ok bool, err error) {
	var dataLine string
	for _, line := range logs {
		switch {
		case strings.Contains(line, logInstructionCreate):
			kind = events.KindCreate
		case strings.Contains(line, logInstructionBuy):
			if kind == "" {
				kind = events.KindBuy
			}
		case strings.Contains(line, logInstructionSell):
			if kind == "" {
				kind = events.KindSell
			}
		case strings.HasPrefix(line, logPrefixProgramData):
			dataLine = strings.TrimPrefix(line, logPrefixProgramData)
		}
	}

	if kind == "" || dataLine == "" {
		return "", nil, false, nil
	}

	payload, decodeErr := base64.StdEncoding.DecodeString(dataLine)
	if decodeErr != nil {
		return "", nil, false, fmt.Errorf("%w: base64 program data: %v", ErrDecode, decodeErr)
	}
	return kind, payload, true, nil
}

// byteReader walks a binary payload with bounds checking. Any overrun
// leaves err set and aborts the event.
type byteReader struct {
	data []byte
	pos  int
	err  error
}

func (r *byteReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrDecode, n, r.pos, len(r.data))
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *byteReader) u32() uint32 {
	b := r.take(4)
	if r.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *byteReader) u64() uint64 {
	b := r.take(8)
	if r.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// lenString reads a 4-byte little-endian length prefix followed by that
// many bytes of UTF-8.
func (r *byteReader) lenString() string {
	n := r.u32()
	if r.err != nil {
		return ""
	}
	b := r.take(int(n))
	if r.err != nil {
		return ""
	}
	return string(b)
}

func (r *byteReader) pubkey() string {
	b := r.take(32)
	if r.err != nil {
		return ""
	}
	return base58.Encode(b)
}

// decodeCreate parses a token launch event payload.
func decodeCreate(payload []byte) (*events.CreateEvent, error) {
	if len(payload) < 8 {
		return nil, fmt.Errorf("%w: payload too short for discriminator", ErrDecode)
	}
	if [8]byte(payload[:8]) != createEventDiscriminator {
		return nil, fmt.Errorf("%w: not a create event payload", ErrDecode)
	}

	r := &byteReader{data: payload, pos: 8}
	name := r.lenString()
	symbol := r.lenString()
	uri := r.lenString()
	mint := r.pubkey()
	creator := r.pubkey()
	if r.err != nil {
		return nil, r.err
	}

	return &events.CreateEvent{
		Mint:    mint,
		Creator: creator,
		Name:    name,
		Symbol:  symbol,
		URI:     uri,
	}, nil
}

// tradeMinLen covers discriminator, mint, amounts, direction flag and
// trader key.
const tradeMinLen = 89

// decodeTrade parses a buy or sell event payload. Fixed offsets: mint at
// [8:40], lamports at [40:48], trader at [56:88].
func decodeTrade(payload []byte, isBuy bool) (*events.TradeEvent, error) {
	if len(payload) >= 8 && [8]byte(payload[:8]) == createEventDiscriminator {
		return nil, fmt.Errorf("%w: create payload in trade context", ErrDecode)
	}
	if len(payload) < tradeMinLen {
		return nil, fmt.Errorf("%w: trade payload %d bytes, need %d", ErrDecode, len(payload), tradeMinLen)
	}

	mint := base58.Encode(payload[8:40])
	if !plausibleMint(mint) {
		return nil, fmt.Errorf("%w: implausible mint %s", ErrDecode, mint)
	}

	return &events.TradeEvent{
		Mint:        mint,
		SolLamports: binary.LittleEndian.Uint64(payload[40:48]),
		Trader:      base58.Encode(payload[56:88]),
		IsBuy:       isBuy,
	}, nil
}

// plausibleMint applies the vanity-suffix heuristic: pump.fun mints are
// ground to end in "pump".
func plausibleMint(mint string) bool {
	return strings.HasSuffix(mint, "pump")
}
