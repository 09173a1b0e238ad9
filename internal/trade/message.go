// Package trade builds, compiles and signs pump.fun transactions locally.
// Local construction exists to avoid the latency of a remote trade relay.
package trade

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"

	"curve-sniper/internal/solana"
)

// AccountMeta describes one account an instruction touches.
type AccountMeta struct {
	Pubkey     string
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation before compilation.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

func meta(pubkey string, signer, writable bool) AccountMeta {
	return AccountMeta{Pubkey: pubkey, IsSigner: signer, IsWritable: writable}
}

// appendShortvec writes a compact-u16 length prefix.
func appendShortvec(buf []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// keyEntry accumulates merged flags for one account across instructions.
type keyEntry struct {
	pubkey   string
	signer   bool
	writable bool
}

// CompileMessage assembles a legacy transaction message: header, ordered
// account keys, recent blockhash, compiled instructions. feePayer is
// always the first key.
func CompileMessage(feePayer, recentBlockhash string, instructions []Instruction) ([]byte, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("no instructions")
	}

	// Merge every referenced account, program IDs included.
	order := []string{feePayer}
	merged := map[string]*keyEntry{
		feePayer: {pubkey: feePayer, signer: true, writable: true},
	}
	touch := func(m AccountMeta) {
		e, ok := merged[m.Pubkey]
		if !ok {
			e = &keyEntry{pubkey: m.Pubkey}
			merged[m.Pubkey] = e
			order = append(order, m.Pubkey)
		}
		e.signer = e.signer || m.IsSigner
		e.writable = e.writable || m.IsWritable
	}
	for _, ix := range instructions {
		for _, m := range ix.Accounts {
			touch(m)
		}
		touch(meta(ix.ProgramID, false, false))
	}

	// Wire order: fee payer, writable signers, readonly signers,
	// writable non-signers, readonly non-signers. Within a class,
	// first-touch order is kept.
	var keys []*keyEntry
	appendClass := func(signer, writable bool) {
		for _, pk := range order {
			e := merged[pk]
			if e.signer == signer && e.writable == writable {
				keys = append(keys, e)
			}
		}
	}
	appendClass(true, true)
	appendClass(true, false)
	appendClass(false, true)
	appendClass(false, false)

	index := make(map[string]int, len(keys))
	var numSigners, numReadonlySigned, numReadonlyUnsigned int
	for i, e := range keys {
		index[e.pubkey] = i
		if e.signer {
			numSigners++
			if !e.writable {
				numReadonlySigned++
			}
		} else if !e.writable {
			numReadonlyUnsigned++
		}
	}

	blockhash, err := solana.DecodePubkey(recentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("blockhash: %w", err)
	}

	var msg []byte
	msg = append(msg, byte(numSigners), byte(numReadonlySigned), byte(numReadonlyUnsigned))

	msg = appendShortvec(msg, len(keys))
	for _, e := range keys {
		raw, err := solana.DecodePubkey(e.pubkey)
		if err != nil {
			return nil, err
		}
		msg = append(msg, raw...)
	}

	msg = append(msg, blockhash...)

	msg = appendShortvec(msg, len(instructions))
	for _, ix := range instructions {
		msg = append(msg, byte(index[ix.ProgramID]))
		msg = appendShortvec(msg, len(ix.Accounts))
		for _, m := range ix.Accounts {
			msg = append(msg, byte(index[m.Pubkey]))
		}
		msg = appendShortvec(msg, len(ix.Data))
		msg = append(msg, ix.Data...)
	}

	return msg, nil
}

// SignedTransaction is a fully signed transaction ready for submission.
type SignedTransaction struct {
	// Signature is the base58 transaction signature (the fee payer's).
	Signature string
	// Wire is the base64-encoded serialized transaction.
	Wire string
}

// Signer signs a compiled message; wallet.Keypair satisfies it.
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// SignMessage wraps a compiled single-signer message into a serialized,
// signed transaction.
func SignMessage(message []byte, signer Signer) (*SignedTransaction, error) {
	sig, err := signer.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}
	if len(sig) != 64 {
		return nil, fmt.Errorf("signature: expected 64 bytes, got %d", len(sig))
	}

	var wire []byte
	wire = appendShortvec(wire, 1)
	wire = append(wire, sig...)
	wire = append(wire, message...)

	return &SignedTransaction{
		Signature: base58.Encode(sig),
		Wire:      base64.StdEncoding.EncodeToString(wire),
	}, nil
}
