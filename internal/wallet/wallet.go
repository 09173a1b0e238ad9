// Package wallet holds the signing key and answers token account
// questions for the trading identity.
package wallet

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"curve-sniper/internal/solana"
)

// Wallet is the signing identity used by the trade path.
type Wallet interface {
	// PublicKey returns the base58 wallet address.
	PublicKey() string
	// Sign signs a compiled transaction message.
	Sign(message []byte) ([]byte, error)
	// TokenAccountExists reports whether the wallet's associated token
	// account for mint already exists on chain.
	TokenAccountExists(ctx context.Context, mint string) (bool, error)
}

// AccountChecker looks up accounts; *solana.HTTPClient satisfies it.
type AccountChecker interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
}

// Keypair is a local ed25519 wallet.
type Keypair struct {
	priv    ed25519.PrivateKey
	pubkey  string
	checker AccountChecker
}

var _ Wallet = (*Keypair)(nil)

// NewKeypair loads a wallet from a base58-encoded 64-byte secret key
// (the standard Solana export format: seed followed by public key).
func NewKeypair(secret string, checker AccountChecker) (*Keypair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)

	return &Keypair{
		priv:    priv,
		pubkey:  base58.Encode(pub),
		checker: checker,
	}, nil
}

// PublicKey returns the base58 wallet address.
func (k *Keypair) PublicKey() string {
	return k.pubkey
}

// Sign signs message with the wallet key.
func (k *Keypair) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, message), nil
}

// TokenAccountExists checks the derived associated token account on chain.
func (k *Keypair) TokenAccountExists(ctx context.Context, mint string) (bool, error) {
	ata, err := solana.DeriveATA(k.pubkey, mint)
	if err != nil {
		return false, err
	}
	info, err := k.checker.GetAccountInfo(ctx, ata)
	if err != nil {
		return false, fmt.Errorf("check token account %s: %w", ata, err)
	}
	return info != nil, nil
}
