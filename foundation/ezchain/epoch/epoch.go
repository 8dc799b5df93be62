// Package epoch maps block heights to epoch numbers. Epochs bound the
// double-spend guard's scope and let the proof validator check that a
// provenance chain never regresses in time.
package epoch

import "fmt"

// GenesisHeight is the height of the chain's origin block. Provenance is
// allowed to start there with no predecessor proof unit.
const GenesisHeight uint64 = 0

// DefaultBlocksPerEpoch is used when the genesis file does not specify an
// epoch length.
const DefaultBlocksPerEpoch uint64 = 100

// Epochs performs the deterministic, monotonic mapping from block heights
// to epoch numbers.
type Epochs struct {
	blocksPerEpoch uint64
}

// New constructs an Epochs value for the specified epoch length.
func New(blocksPerEpoch uint64) (Epochs, error) {
	if blocksPerEpoch < 1 {
		return Epochs{}, fmt.Errorf("blocks per epoch must be at least 1, got %d", blocksPerEpoch)
	}

	return Epochs{blocksPerEpoch: blocksPerEpoch}, nil
}

// Number returns the epoch the specified block height belongs to.
func (e Epochs) Number(height uint64) uint64 {
	return height / e.blocksPerEpoch
}

// IsGenesis reports whether the specified height is the genesis block.
func IsGenesis(height uint64) bool {
	return height == GenesisHeight
}
