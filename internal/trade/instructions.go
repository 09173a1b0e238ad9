package trade

import (
	"encoding/binary"

	"curve-sniper/internal/ingest"
	"curve-sniper/internal/solana"
)

// pump.fun program accounts.
const (
	globalAccount  = "4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"
	feeRecipient   = "CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM"
	eventAuthority = "Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7Xxwp9nA"
)

// Instruction opcode discriminators.
var (
	buyOpcode  = [8]byte{102, 6, 61, 18, 1, 218, 235, 234}
	sellOpcode = [8]byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// encodeTradeData packs opcode | amount u64 LE | bound u64 LE.
func encodeTradeData(opcode [8]byte, amount, bound uint64) []byte {
	data := make([]byte, 24)
	copy(data, opcode[:])
	binary.LittleEndian.PutUint64(data[8:], amount)
	binary.LittleEndian.PutUint64(data[16:], bound)
	return data
}

// TradeAccounts are the resolved addresses a buy or sell references.
type TradeAccounts struct {
	Mint         string
	BondingCurve string
	// CurveVault is the curve's associated token account for the mint.
	CurveVault string
	// UserATA is the trader's associated token account for the mint.
	UserATA string
	User    string
}

// buyInstruction encodes a buy of tokenAmount tokens spending at most
// maxSolCost lamports. The account order is part of the program's wire
// contract; reordering breaks the instruction.
func buyInstruction(a TradeAccounts, tokenAmount, maxSolCost uint64) Instruction {
	return Instruction{
		ProgramID: ingest.PumpFunProgramID,
		Accounts: []AccountMeta{
			meta(globalAccount, false, false),
			meta(feeRecipient, false, true),
			meta(a.Mint, false, false),
			meta(a.BondingCurve, false, true),
			meta(a.CurveVault, false, true),
			meta(a.UserATA, false, true),
			meta(a.User, true, true),
			meta(solana.SystemProgramID, false, false),
			meta(solana.TokenProgramID, false, false),
			meta(solana.RentSysvarID, false, false),
			meta(eventAuthority, false, false),
			meta(ingest.PumpFunProgramID, false, false),
		},
		Data: encodeTradeData(buyOpcode, tokenAmount, maxSolCost),
	}
}

// sellInstruction encodes a sell of tokenAmount tokens for at least
// minSolOut lamports.
func sellInstruction(a TradeAccounts, tokenAmount, minSolOut uint64) Instruction {
	return Instruction{
		ProgramID: ingest.PumpFunProgramID,
		Accounts: []AccountMeta{
			meta(globalAccount, false, false),
			meta(feeRecipient, false, true),
			meta(a.Mint, false, false),
			meta(a.BondingCurve, false, true),
			meta(a.CurveVault, false, true),
			meta(a.UserATA, false, true),
			meta(a.User, true, true),
			meta(solana.SystemProgramID, false, false),
			meta(solana.ATAProgramID, false, false),
			meta(solana.TokenProgramID, false, false),
			meta(eventAuthority, false, false),
			meta(ingest.PumpFunProgramID, false, false),
		},
		Data: encodeTradeData(sellOpcode, tokenAmount, minSolOut),
	}
}

// createATAInstruction creates the owner's associated token account for
// mint if it does not already exist (CreateIdempotent).
func createATAInstruction(payer, ata, owner, mint string) Instruction {
	return Instruction{
		ProgramID: solana.ATAProgramID,
		Accounts: []AccountMeta{
			meta(payer, true, true),
			meta(ata, false, true),
			meta(owner, false, false),
			meta(mint, false, false),
			meta(solana.SystemProgramID, false, false),
			meta(solana.TokenProgramID, false, false),
		},
		Data: []byte{1},
	}
}
