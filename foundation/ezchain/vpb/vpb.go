// Package vpb implements the Value-Proof-Block pair, the aggregate root
// binding a value to its provenance chain and block-anchoring history.
package vpb

import (
	"github.com/ezchain/ezchain/foundation/ezchain/digest"
	"github.com/ezchain/ezchain/foundation/ezchain/ownership"
	"github.com/ezchain/ezchain/foundation/ezchain/proof"
	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
	"github.com/ezchain/ezchain/foundation/ezchain/value"
)

// VPBPair binds one value to its proofs and its block index list. A pair is
// owned exclusively by one account at a time, as recorded by the block index
// list. A changed value range is a new pair, never an in-place edit.
type VPBPair struct {
	VPBID         string                   `json:"vpb_id"`
	Value         value.Value              `json:"value"`
	Proofs        proof.Proofs             `json:"proofs"`
	BlockIndexLst ownership.BlockIndexList `json:"block_index_lst"`

	// Spent marks the pair as consumed. Nullifier records the identity of
	// the spend so the double-spend guard can be rebuilt from the store.
	Spent     bool   `json:"spent"`
	Nullifier string `json:"nullifier,omitempty"`
}

// New constructs a pair for a value confirmed to the specified owner and
// derives the pair id from the value's identity.
func New(val value.Value, owner transaction.AccountID) VPBPair {
	return VPBPair{
		VPBID:         ID(val),
		Value:         val,
		BlockIndexLst: ownership.New(owner),
	}
}

// ID derives the pair id from the value's begin index and unit count.
func ID(val value.Value) string {
	return digest.HashBytes(val.Bytes())
}

// CurrentOwner returns the account that currently owns the pair.
func (v *VPBPair) CurrentOwner() transaction.AccountID {
	return v.BlockIndexLst.CurrentOwner()
}

// MarkSpent tombstones the pair with the nullifier of the consuming spend.
func (v *VPBPair) MarkSpent(nullifier string) {
	v.Spent = true
	v.Nullifier = nullifier
}
