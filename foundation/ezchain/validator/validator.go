// Package validator verifies the structural and cryptographic validity of a
// provenance chain presented with an inbound transfer. Verification is a
// straight-line pipeline; no stage is ever revisited.
package validator

import (
	"errors"
	"fmt"

	"github.com/ezchain/ezchain/foundation/ezchain/epoch"
	"github.com/ezchain/ezchain/foundation/ezchain/merkle"
	"github.com/ezchain/ezchain/foundation/ezchain/proof"
	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
)

// ErrProofInvalid is returned when a chain fails a structural, inclusion or
// epoch-regression check.
var ErrProofInvalid = errors.New("proof invalid")

// =============================================================================

// State represents how far a chain progressed through the pipeline.
type State int

// Set of states a verification can terminate in.
const (
	Unverified State = iota
	StructurallyValid
	InclusionVerified
	Accepted
	Rejected
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case Unverified:
		return "unverified"
	case StructurallyValid:
		return "structurally-valid"
	case InclusionVerified:
		return "inclusion-verified"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	}

	return "unknown"
}

// =============================================================================

// Validator verifies provenance chains against the epoch mapping.
type Validator struct {
	epochs epoch.Epochs
}

// New constructs a validator for use.
func New(epochs epoch.Epochs) *Validator {
	return &Validator{epochs: epochs}
}

// Validate runs the specified chain through the pipeline and returns the
// state it terminated in. Any failure returns Rejected with an error that
// unwraps to ErrProofInvalid.
func (v *Validator) Validate(chain proof.Proofs) (State, error) {

	// Structural stage: every unit id must recompute from its owner and
	// batch digest, and the chain must have a custody root.
	if err := v.validateStructure(chain); err != nil {
		return Rejected, err
	}

	// Inclusion stage: the terminal unit's merkle proof must reproduce the
	// claimed block root from the batch leaf.
	if err := v.validateInclusion(chain); err != nil {
		return Rejected, err
	}

	// Epoch stage: the chain must never regress in time.
	if err := v.validateEpochs(chain); err != nil {
		return Rejected, err
	}

	return Accepted, nil
}

// ValidateExtension verifies that a new unit confirming the specified batch
// at the specified height may extend the chain: the batch's merkle proof must
// reproduce the claimed block root, and the new unit's epoch must not regress
// from the chain's terminal unit. Any failure unwraps to ErrProofInvalid.
func (v *Validator) ValidateExtension(chain proof.Proofs, batchDigest string, blockHeight uint64, mp proof.MerkleProof) error {

	// The genesis allocation carries no inclusion proof; every later block
	// has a merkle tree the batch must prove membership in.
	if !epoch.IsGenesis(blockHeight) || len(mp.Path) != 0 {
		leaf := transaction.LeafHash(batchDigest)
		if err := merkle.VerifyProof(leaf, mp.Path, mp.Order, mp.Root); err != nil {
			return fmt.Errorf("batch %s inclusion at height %d: %v: %w", batchDigest, blockHeight, err, ErrProofInvalid)
		}
	}

	if terminal := chain.Latest(); terminal != nil {
		if cur, last := v.epochs.Number(blockHeight), v.epochs.Number(terminal.BlockHeight); cur < last {
			return fmt.Errorf("extension epoch %d regresses from %d: %w", cur, last, ErrProofInvalid)
		}
	}

	return nil
}

// validateStructure performs the tamper and genesis-distinction checks.
func (v *Validator) validateStructure(chain proof.Proofs) error {
	if chain.Len() == 0 {
		return fmt.Errorf("chain has no units: %w", ErrProofInvalid)
	}

	for i, u := range chain.Units {
		if u.UnitID != proof.UnitID(u.Owner, u.BatchDigest) {
			return fmt.Errorf("unit %d id does not recompute: %w", i, ErrProofInvalid)
		}
	}

	// A chain with no predecessor is only permitted when provenance starts
	// at the genesis block.
	if first := chain.Units[0]; !epoch.IsGenesis(first.BlockHeight) {
		return fmt.Errorf("chain origin at height %d has no predecessor unit: %w", first.BlockHeight, ErrProofInvalid)
	}

	return nil
}

// validateInclusion rehashes the terminal unit's batch leaf up the sibling
// path and compares against the claimed merkle root.
func (v *Validator) validateInclusion(chain proof.Proofs) error {
	terminal := chain.Latest()

	// The genesis allocation carries no inclusion proof; there was no block
	// merkle tree before the chain existed.
	if epoch.IsGenesis(terminal.BlockHeight) && len(terminal.Proof.Path) == 0 {
		return nil
	}

	leaf := transaction.LeafHash(terminal.BatchDigest)
	if err := merkle.VerifyProof(leaf, terminal.Proof.Path, terminal.Proof.Order, terminal.Proof.Root); err != nil {
		return fmt.Errorf("terminal unit inclusion: %v: %w", err, ErrProofInvalid)
	}

	return nil
}

// validateEpochs checks the epoch of each unit never regresses relative to
// its predecessor.
func (v *Validator) validateEpochs(chain proof.Proofs) error {
	prev := v.epochs.Number(chain.Units[0].BlockHeight)

	for i := 1; i < chain.Len(); i++ {
		cur := v.epochs.Number(chain.Units[i].BlockHeight)
		if cur < prev {
			return fmt.Errorf("unit %d epoch %d regresses from %d: %w", i, cur, prev, ErrProofInvalid)
		}
		prev = cur
	}

	return nil
}
