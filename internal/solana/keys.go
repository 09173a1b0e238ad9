package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program addresses.
const (
	SystemProgramID = "11111111111111111111111111111111"
	TokenProgramID  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	ATAProgramID    = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	RentSysvarID    = "SysvarRent111111111111111111111111111111111"
)

// pdaMarker terminates the seed hash for program-derived addresses.
const pdaMarker = "ProgramDerivedAddress"

// DecodePubkey decodes a base58 address into its 32-byte form.
func DecodePubkey(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", address, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("pubkey %q: expected 32 bytes, got %d", address, len(raw))
	}
	return raw, nil
}

// isOnCurve reports whether the 32 bytes form a valid ed25519 point.
// Program-derived addresses must not be on the curve.
func isOnCurve(pubkey []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(pubkey)
	return err == nil
}

// FindProgramAddress derives the program address for the given seeds,
// trying bump seeds from 255 downward until the hash falls off the curve.
// The derivation is deterministic: same seeds and program, same address.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := DecodePubkey(programID)
	if err != nil {
		return "", 0, err
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			if len(seed) > 32 {
				return "", 0, fmt.Errorf("seed exceeds 32 bytes")
			}
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program)
		h.Write([]byte(pdaMarker))

		candidate := h.Sum(nil)
		if !isOnCurve(candidate) {
			return base58.Encode(candidate), uint8(bump), nil
		}
	}

	return "", 0, fmt.Errorf("no valid program address for seeds")
}

// DeriveATA derives the associated token account for wallet and mint.
func DeriveATA(wallet, mint string) (string, error) {
	walletRaw, err := DecodePubkey(wallet)
	if err != nil {
		return "", err
	}
	mintRaw, err := DecodePubkey(mint)
	if err != nil {
		return "", err
	}
	tokenProgram, err := DecodePubkey(TokenProgramID)
	if err != nil {
		return "", err
	}

	addr, _, err := FindProgramAddress([][]byte{walletRaw, tokenProgram, mintRaw}, ATAProgramID)
	if err != nil {
		return "", fmt.Errorf("derive ATA for %s/%s: %w", wallet, mint, err)
	}
	return addr, nil
}
