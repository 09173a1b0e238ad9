// Package idhash derives deterministic record identifiers so that the
// same observation always maps to the same row.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeDecisionID computes a deterministic decision_id using SHA256.
// Formula: SHA256(mint|outcome|decided_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeDecisionID(mint, outcome string, decidedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", mint, outcome, decidedAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(mint|side|submitted_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(mint, side string, submittedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", mint, side, submittedAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
