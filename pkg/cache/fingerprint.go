package cache

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/llm-dev-ops/policy-engine/pkg/policy"
)

// Fingerprint is the cache key for a Context: a BLAKE3-256 digest of its
// canonical serialization. A cryptographic hash is required here rather
// than a fast non-cryptographic one (the donor's analogous ResultCache
// keys on xxhash): cache correctness depends on there being no false
// positives, and a 64-bit non-cryptographic hash cannot give that
// guarantee at scale.
type Fingerprint [32]byte

// String renders the fingerprint as hex, useful for logging.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%x", [32]byte(f))
}

// ComputeFingerprint computes the cache key for ctx. Two contexts that are
// equivalent under Context.Canonical (same fields, metadata keys sorted)
// fingerprint identically regardless of construction order.
func ComputeFingerprint(ctx *policy.Context) (Fingerprint, error) {
	data, err := json.Marshal(ctx.Canonical())
	if err != nil {
		return Fingerprint{}, &policy.Error{Kind: policy.KindSerialization, Message: "fingerprint context", Err: err}
	}
	return blake3.Sum256(data), nil
}
