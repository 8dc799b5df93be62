// Package proof implements the append-only provenance chain that travels
// with a value. Each unit of the chain attests that an owner had a
// transaction batch included at a block via a merkle proof.
package proof

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ezchain/ezchain/foundation/ezchain/digest"
	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
)

// ErrDuplicateProofUnit is returned when a proof unit is appended to a chain
// that already carries a unit with the same id.
var ErrDuplicateProofUnit = errors.New("duplicate proof unit")

// =============================================================================

// MerkleProof carries the sibling path that ties a transfer to the merkle
// root of the block the batch was confirmed in. Order values follow the
// merkle package convention: 0 concatenates the sibling first, 1 second.
type MerkleProof struct {
	Root      []byte   `json:"-"`
	Path      [][]byte `json:"-"`
	Order     []int64  `json:"order"`
	LeafIndex int      `json:"leaf_index"`
}

// merkleProofJSON renders the hashes as hex strings at the boundary.
type merkleProofJSON struct {
	Root      string   `json:"root"`
	Path      []string `json:"path"`
	Order     []int64  `json:"order"`
	LeafIndex int      `json:"leaf_index"`
}

// MarshalJSON implements the json.Marshaler interface.
func (mp MerkleProof) MarshalJSON() ([]byte, error) {
	path := make([]string, len(mp.Path))
	for i, h := range mp.Path {
		path[i] = hexutil.Encode(h)
	}

	return json.Marshal(merkleProofJSON{
		Root:      hexutil.Encode(mp.Root),
		Path:      path,
		Order:     mp.Order,
		LeafIndex: mp.LeafIndex,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (mp *MerkleProof) UnmarshalJSON(data []byte) error {
	var mpj merkleProofJSON
	if err := json.Unmarshal(data, &mpj); err != nil {
		return err
	}

	root, err := hexutil.Decode(mpj.Root)
	if err != nil {
		return fmt.Errorf("decoding root: %w", err)
	}

	path := make([][]byte, len(mpj.Path))
	for i, h := range mpj.Path {
		if path[i], err = hexutil.Decode(h); err != nil {
			return fmt.Errorf("decoding path hash %d: %w", i, err)
		}
	}

	mp.Root = root
	mp.Path = path
	mp.Order = mpj.Order
	mp.LeafIndex = mpj.LeafIndex
	return nil
}

// =============================================================================

// Unit represents one link in a provenance chain. It is immutable after
// creation except for the reference counter, which the updater maintains
// under its per-account serialization.
type Unit struct {
	Owner       transaction.AccountID `json:"owner"`
	BatchDigest string                `json:"batch_digest"`
	BlockHeight uint64                `json:"block_height"`
	Proof       MerkleProof           `json:"merkle_proof"`
	UnitID      string                `json:"unit_id"`
	RefCount    int64                 `json:"ref_count"`
}

// NewUnit constructs a proof unit and derives its id from the owner and the
// batch digest so tampering with either is detectable.
func NewUnit(owner transaction.AccountID, batchDigest string, blockHeight uint64, mp MerkleProof) *Unit {
	return &Unit{
		Owner:       owner,
		BatchDigest: batchDigest,
		BlockHeight: blockHeight,
		Proof:       mp,
		UnitID:      UnitID(owner, batchDigest),
	}
}

// UnitID derives the id of a proof unit from its owner and batch digest.
func UnitID(owner transaction.AccountID, batchDigest string) string {
	return digest.HashBytes([]byte(owner), []byte(batchDigest))
}

// AddRef records that another VPB pair adopted this unit. The counter is a
// garbage-collection hint, never an input to validity decisions.
func (u *Unit) AddRef() {
	u.RefCount++
}

// =============================================================================

// Proofs is the append-only custody chain from issuance, or the last split
// point, to the current owner. Units are ordered oldest to newest and are
// never reordered.
type Proofs struct {
	Units []*Unit `json:"units"`
}

// AddProofUnit appends the specified unit to the chain and increments its
// reference count. A unit id already present in the chain is a caller error.
func (p *Proofs) AddProofUnit(u *Unit) error {
	for _, existing := range p.Units {
		if existing.UnitID == u.UnitID {
			return fmt.Errorf("unit %s: %w", u.UnitID, ErrDuplicateProofUnit)
		}
	}

	p.Units = append(p.Units, u)
	u.AddRef()

	return nil
}

// Latest returns the newest unit in the chain, or nil when the chain
// is empty.
func (p *Proofs) Latest() *Unit {
	if len(p.Units) == 0 {
		return nil
	}

	return p.Units[len(p.Units)-1]
}

// Len returns the number of units in the chain.
func (p *Proofs) Len() int {
	return len(p.Units)
}

// Clone returns a new chain sharing the same units. Both chains keep the
// custody root produced before a split, so each shared unit's reference
// count is incremented for the adopting pair.
func (p *Proofs) Clone() Proofs {
	units := make([]*Unit, len(p.Units))
	for i, u := range p.Units {
		units[i] = u
		u.AddRef()
	}

	return Proofs{Units: units}
}
