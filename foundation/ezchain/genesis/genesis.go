// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ezchain/ezchain/foundation/ezchain/value"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date           time.Time              `json:"date"`
	ChainID        uint16                 `json:"chain_id"`         // The chain id represents an unique id for this running instance.
	BlocksPerEpoch uint64                 `json:"blocks_per_epoch"` // Number of blocks grouped into one epoch window.
	BloomCapacity  uint64                 `json:"bloom_capacity"`   // Expected nullifiers per epoch window.
	BloomFPRate    float64                `json:"bloom_fp_rate"`    // False positive rate traded for memory.
	SelectStrategy string                 `json:"select_strategy"`  // Coin selection strategy for planning spends.
	Allocations    map[string]value.Value `json:"allocations"`      // Value ranges confirmed to accounts at the genesis block.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
