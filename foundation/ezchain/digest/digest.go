// Package digest provides helper functions for hashing values and rendering
// digests as hex strings at the boundary.
package digest

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// =============================================================================

// Hash returns a unique string for the value.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hexutil.Encode(hash[:])
}

// HashBytes returns a unique string for the concatenation of the specified
// byte slices. Identifiers like unit ids, vpb ids and nullifiers are built
// this way so they can be recomputed from their parts.
func HashBytes(parts ...[]byte) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write(part)
	}

	return hexutil.Encode(h.Sum(nil))
}

// Sum returns the raw sha256 digest of the specified data.
func Sum(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:]
}
