package trade

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"curve-sniper/internal/curve"
	"curve-sniper/internal/solana"
	"curve-sniper/internal/wallet"
)

const (
	testMint      = "A914FxTY8cCXMaX17AjcteUR3GdXGZKeeb3hX6wPpump"
	testBlockhash = "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"
)

func TestAppendShortvec(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
	}
	for _, tt := range tests {
		got := appendShortvec(nil, tt.n)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("shortvec(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestEncodeTradeData(t *testing.T) {
	data := encodeTradeData(buyOpcode, 1_000_000, 2_000_000_000)
	if len(data) != 24 {
		t.Fatalf("expected 24 bytes, got %d", len(data))
	}
	if !bytes.Equal(data[:8], buyOpcode[:]) {
		t.Error("opcode mismatch")
	}
	if binary.LittleEndian.Uint64(data[8:]) != 1_000_000 {
		t.Error("amount mismatch")
	}
	if binary.LittleEndian.Uint64(data[16:]) != 2_000_000_000 {
		t.Error("bound mismatch")
	}
}

func TestBuyInstructionAccountOrder(t *testing.T) {
	a := TradeAccounts{
		Mint:         testMint,
		BondingCurve: "curve11111111111111111111111111111111111111",
		CurveVault:   "vau1t11111111111111111111111111111111111111",
		UserATA:      "userata111111111111111111111111111111111111",
		User:         "user111111111111111111111111111111111111111",
	}
	ix := buyInstruction(a, 100, 200)

	wantOrder := []string{
		globalAccount, feeRecipient, a.Mint, a.BondingCurve, a.CurveVault,
		a.UserATA, a.User, solana.SystemProgramID, solana.TokenProgramID,
		solana.RentSysvarID, eventAuthority, ix.ProgramID,
	}
	if len(ix.Accounts) != len(wantOrder) {
		t.Fatalf("expected %d accounts, got %d", len(wantOrder), len(ix.Accounts))
	}
	for i, want := range wantOrder {
		if ix.Accounts[i].Pubkey != want {
			t.Errorf("account %d: expected %s, got %s", i, want, ix.Accounts[i].Pubkey)
		}
	}

	// Only the user signs; curve-side accounts and the fee recipient are
	// written by the program.
	for i, m := range ix.Accounts {
		if m.IsSigner != (m.Pubkey == a.User) {
			t.Errorf("account %d signer flag wrong", i)
		}
	}
}

func TestCompileMessageShape(t *testing.T) {
	payer := "4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"
	readonly := solana.TokenProgramID

	ix := Instruction{
		ProgramID: solana.SystemProgramID,
		Accounts: []AccountMeta{
			meta(payer, true, true),
			meta(readonly, false, false),
		},
		Data: []byte{9, 9, 9},
	}

	msg, err := CompileMessage(payer, testBlockhash, []Instruction{ix})
	if err != nil {
		t.Fatalf("CompileMessage: %v", err)
	}

	// Header: 1 signer, 0 readonly signed, 2 readonly unsigned (token
	// program and the invoked system program).
	if msg[0] != 1 || msg[1] != 0 || msg[2] != 2 {
		t.Fatalf("unexpected header: %v", msg[:3])
	}

	// Key count then 3 keys of 32 bytes, payer first.
	if msg[3] != 3 {
		t.Fatalf("expected 3 keys, got %d", msg[3])
	}
	payerRaw, _ := solana.DecodePubkey(payer)
	if !bytes.Equal(msg[4:36], payerRaw) {
		t.Error("fee payer is not the first key")
	}

	// Blockhash follows the key table.
	hashRaw, _ := solana.DecodePubkey(testBlockhash)
	hashStart := 4 + 3*32
	if !bytes.Equal(msg[hashStart:hashStart+32], hashRaw) {
		t.Error("blockhash not at expected offset")
	}

	// One instruction: program index, 2 account indices, 3 data bytes.
	rest := msg[hashStart+32:]
	if rest[0] != 1 {
		t.Fatalf("expected 1 instruction, got %d", rest[0])
	}
	progIndex := rest[1]
	if progIndex == 0 {
		t.Error("program index must not point at the fee payer")
	}
	if rest[2] != 2 {
		t.Errorf("expected 2 account indices, got %d", rest[2])
	}
	if rest[3] != 0 {
		t.Errorf("first instruction account must be the payer (index 0), got %d", rest[3])
	}
	dataLen := rest[5]
	if dataLen != 3 || !bytes.Equal(rest[6:9], []byte{9, 9, 9}) {
		t.Error("instruction data not serialized")
	}
}

func TestCompileMessageMergesDuplicates(t *testing.T) {
	payer := "4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"
	shared := solana.TokenProgramID

	ixs := []Instruction{
		{
			ProgramID: solana.SystemProgramID,
			Accounts:  []AccountMeta{meta(payer, true, true), meta(shared, false, false)},
			Data:      []byte{1},
		},
		{
			ProgramID: solana.SystemProgramID,
			Accounts:  []AccountMeta{meta(shared, false, true)}, // writable here
			Data:      []byte{2},
		},
	}

	msg, err := CompileMessage(payer, testBlockhash, ixs)
	if err != nil {
		t.Fatalf("CompileMessage: %v", err)
	}

	// payer, shared, system program: 3 unique keys. shared is writable
	// after the merge, so only the system program stays readonly.
	if msg[3] != 3 {
		t.Errorf("expected 3 unique keys, got %d", msg[3])
	}
	if msg[2] != 1 {
		t.Errorf("expected 1 readonly unsigned key after merge, got %d", msg[2])
	}
}

// fixtures for the builder

type fakeBlockhash struct {
	calls int
}

func (f *fakeBlockhash) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	f.calls++
	return &solana.Blockhash{Hash: testBlockhash, LastValidBlockHeight: 100}, nil
}

type fakeAddresser struct{}

func (fakeAddresser) DeriveAddress(mint string) (string, error) {
	return solana.DeriveATA(mint, mint) // any deterministic off-curve address
}

type fakeChecker struct {
	exists bool
}

func (f *fakeChecker) GetAccountInfo(_ context.Context, _ string) (*solana.AccountInfo, error) {
	if f.exists {
		return &solana.AccountInfo{}, nil
	}
	return nil, nil
}

func newTestWallet(t *testing.T, ataExists bool) (*wallet.Keypair, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	kp, err := wallet.NewKeypair(base58.Encode(priv), &fakeChecker{exists: ataExists})
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}
	return kp, pub
}

func testSnapshot() *curve.Snapshot {
	return &curve.Snapshot{
		Mint:                 testMint,
		VirtualTokenReserves: 1e12,
		VirtualSolReserves:   30e9,
		RealSolReserves:      5e9,
	}
}

func TestBuildBuySignsVerifiably(t *testing.T) {
	kp, pub := newTestWallet(t, true)
	bh := &fakeBlockhash{}
	b := NewBuilder(bh, fakeAddresser{}, kp, Options{SlippageBps: 500})

	tx, quote, err := b.BuildBuy(context.Background(), testSnapshot(), 1e9)
	if err != nil {
		t.Fatalf("BuildBuy: %v", err)
	}

	if quote.TokensOut != 32_258_064_516 {
		t.Errorf("unexpected quote: %d", quote.TokensOut)
	}
	if quote.Amount != curve.WithSlippageDown(quote.TokensOut, 500) {
		t.Error("amount does not reflect slippage")
	}
	if quote.Bound != 1_050_000_000 {
		t.Errorf("expected max cost 1.05 SOL, got %d", quote.Bound)
	}

	// Wire: shortvec(1) | sig[64] | message. The signature must verify
	// against the message bytes under the wallet key.
	raw, err := base64.StdEncoding.DecodeString(tx.Wire)
	if err != nil {
		t.Fatalf("wire not base64: %v", err)
	}
	if raw[0] != 1 {
		t.Fatalf("expected 1 signature, got %d", raw[0])
	}
	sig, message := raw[1:65], raw[65:]
	if !ed25519.Verify(pub, message, sig) {
		t.Error("transaction signature does not verify")
	}
	if tx.Signature != base58.Encode(sig) {
		t.Error("reported signature mismatch")
	}
}

func TestBuildBuyPrependsATACreate(t *testing.T) {
	withATA, _ := newTestWallet(t, true)
	withoutATA, _ := newTestWallet(t, false)
	bh := &fakeBlockhash{}

	txA, _, err := NewBuilder(bh, fakeAddresser{}, withATA, Options{}).
		BuildBuy(context.Background(), testSnapshot(), 1e9)
	if err != nil {
		t.Fatalf("BuildBuy: %v", err)
	}
	txB, _, err := NewBuilder(bh, fakeAddresser{}, withoutATA, Options{}).
		BuildBuy(context.Background(), testSnapshot(), 1e9)
	if err != nil {
		t.Fatalf("BuildBuy: %v", err)
	}

	rawA, _ := base64.StdEncoding.DecodeString(txA.Wire)
	rawB, _ := base64.StdEncoding.DecodeString(txB.Wire)
	if len(rawB) <= len(rawA) {
		t.Error("expected larger transaction when ATA create is prepended")
	}
}

func TestBuilderCachesBlockhash(t *testing.T) {
	kp, _ := newTestWallet(t, true)
	bh := &fakeBlockhash{}
	b := NewBuilder(bh, fakeAddresser{}, kp, Options{BlockhashTTL: time.Minute})

	ctx := context.Background()
	if _, _, err := b.BuildBuy(ctx, testSnapshot(), 1e9); err != nil {
		t.Fatalf("BuildBuy: %v", err)
	}
	if _, _, err := b.BuildSell(ctx, testSnapshot(), 1e9); err != nil {
		t.Fatalf("BuildSell: %v", err)
	}
	if bh.calls != 1 {
		t.Errorf("expected 1 blockhash fetch, got %d", bh.calls)
	}
}

func TestBuildSellBounds(t *testing.T) {
	kp, _ := newTestWallet(t, true)
	b := NewBuilder(&fakeBlockhash{}, fakeAddresser{}, kp, Options{SlippageBps: 100})

	_, quote, err := b.BuildSell(context.Background(), testSnapshot(), 32_258_064_516)
	if err != nil {
		t.Fatalf("BuildSell: %v", err)
	}
	if quote.Amount != 32_258_064_516 {
		t.Errorf("sell amount changed: %d", quote.Amount)
	}
	solOut := curve.SolOut(1e12, 30e9, 32_258_064_516)
	if quote.Bound != curve.WithSlippageDown(solOut, 100) {
		t.Errorf("min proceeds bound wrong: %d", quote.Bound)
	}
}
