// Package ownership maintains the per-VPB record of the block heights a
// value was confirmed at and the ordered log of ownership transfers.
package ownership

import (
	"fmt"
	"sort"

	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
)

// Change records that a value passed to a new owner at a block height.
// Entries are append-only and never mutated.
type Change struct {
	BlockHeight uint64                `json:"block_height"`
	NewOwner    transaction.AccountID `json:"new_owner"`
}

// BlockIndexList tracks the block heights a VPB was anchored at and its
// ownership-transfer log. The height set is strictly increasing with no
// duplicates.
type BlockIndexList struct {
	Owner        transaction.AccountID `json:"owner"`
	IndexLst     []uint64              `json:"index_lst"`
	OwnerHistory []Change              `json:"owner_history"`

	// requireMonotonic turns out-of-order ownership anchoring into an error
	// instead of accepting any height.
	requireMonotonic bool
}

// Option configures a BlockIndexList at construction.
type Option func(b *BlockIndexList)

// WithMonotonicHistory makes AddOwnershipChange reject a block height lower
// than the last recorded change.
func WithMonotonicHistory() Option {
	return func(b *BlockIndexList) {
		b.requireMonotonic = true
	}
}

// New constructs a block index list for the specified original owner.
func New(owner transaction.AccountID, options ...Option) BlockIndexList {
	b := BlockIndexList{Owner: owner}

	for _, option := range options {
		option(&b)
	}

	return b
}

// AddBlockHeight records that the value was confirmed at the specified
// height. The call is idempotent and keeps the set sorted.
func (b *BlockIndexList) AddBlockHeight(height uint64) {
	i := sort.Search(len(b.IndexLst), func(i int) bool {
		return b.IndexLst[i] >= height
	})

	if i < len(b.IndexLst) && b.IndexLst[i] == height {
		return
	}

	b.IndexLst = append(b.IndexLst, 0)
	copy(b.IndexLst[i+1:], b.IndexLst[i:])
	b.IndexLst[i] = height
}

// AddOwnershipChange appends a transfer to the history. It always appends,
// even when the new owner repeats the current owner, so callers can re-anchor
// a value at a new height. Height monotonicity against prior entries is only
// enforced when the list was constructed with WithMonotonicHistory.
func (b *BlockIndexList) AddOwnershipChange(height uint64, newOwner transaction.AccountID) error {
	if b.requireMonotonic && len(b.OwnerHistory) > 0 {
		if last := b.OwnerHistory[len(b.OwnerHistory)-1]; height < last.BlockHeight {
			return fmt.Errorf("ownership change at height %d precedes last change at height %d", height, last.BlockHeight)
		}
	}

	b.OwnerHistory = append(b.OwnerHistory, Change{BlockHeight: height, NewOwner: newOwner})
	return nil
}

// Clone returns a copy of the list that shares no backing storage with the
// original, so a split can extend each portion's record independently.
func (b BlockIndexList) Clone() BlockIndexList {
	c := b
	c.IndexLst = append([]uint64(nil), b.IndexLst...)
	c.OwnerHistory = append([]Change(nil), b.OwnerHistory...)
	return c
}

// CurrentOwner returns the owner of the last history entry, or the original
// owner when the history is empty.
func (b *BlockIndexList) CurrentOwner() transaction.AccountID {
	if len(b.OwnerHistory) == 0 {
		return b.Owner
	}

	return b.OwnerHistory[len(b.OwnerHistory)-1].NewOwner
}

// LatestHeight returns the highest recorded block height, or zero when no
// height has been recorded.
func (b *BlockIndexList) LatestHeight() uint64 {
	if len(b.IndexLst) == 0 {
		return 0
	}

	return b.IndexLst[len(b.IndexLst)-1]
}
