package curve

import "math/big"

// Constant-product quotes. Products of two u64 reserves overflow uint64,
// so the intermediate math runs on big.Int.

// TokensOut quotes a buy: tokens received for solIn lamports against
// virtual reserves, floored.
func TokensOut(virtualTokens, virtualSol, solIn uint64) uint64 {
	if solIn == 0 || virtualTokens == 0 {
		return 0
	}

	num := new(big.Int).Mul(
		new(big.Int).SetUint64(virtualTokens),
		new(big.Int).SetUint64(solIn),
	)
	den := new(big.Int).Add(
		new(big.Int).SetUint64(virtualSol),
		new(big.Int).SetUint64(solIn),
	)
	return new(big.Int).Quo(num, den).Uint64()
}

// SolOut quotes a sell: lamports received for tokensIn against virtual
// reserves, floored.
func SolOut(virtualTokens, virtualSol, tokensIn uint64) uint64 {
	if tokensIn == 0 || virtualSol == 0 {
		return 0
	}

	num := new(big.Int).Mul(
		new(big.Int).SetUint64(virtualSol),
		new(big.Int).SetUint64(tokensIn),
	)
	den := new(big.Int).Add(
		new(big.Int).SetUint64(virtualTokens),
		new(big.Int).SetUint64(tokensIn),
	)
	return new(big.Int).Quo(num, den).Uint64()
}

// WithSlippageDown reduces amount by slippageBps basis points, floored.
func WithSlippageDown(amount uint64, slippageBps uint64) uint64 {
	n := new(big.Int).Mul(new(big.Int).SetUint64(amount), new(big.Int).SetUint64(10_000-slippageBps))
	return new(big.Int).Quo(n, big.NewInt(10_000)).Uint64()
}

// WithSlippageUp raises amount by slippageBps basis points, floored.
func WithSlippageUp(amount uint64, slippageBps uint64) uint64 {
	n := new(big.Int).Mul(new(big.Int).SetUint64(amount), new(big.Int).SetUint64(10_000+slippageBps))
	return new(big.Int).Quo(n, big.NewInt(10_000)).Uint64()
}
