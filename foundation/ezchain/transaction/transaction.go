// Package transaction defines the confirmed transaction batches the core
// consumes from the block-processing collaborator, and the account addresses
// that own value.
package transaction

import (
	"errors"
	"fmt"

	"github.com/ezchain/ezchain/foundation/ezchain/digest"
	"github.com/ezchain/ezchain/foundation/ezchain/value"
)

// AccountID represents an account address that owns value on the chain.
type AccountID string

// ToAccountID converts a hex-encoded string to an account id and validates
// the hex-encoded string is formatted correctly.
func ToAccountID(hex string) (AccountID, error) {
	a := AccountID(hex)
	if !a.IsAccountID() {
		return "", errors.New("invalid account format")
	}

	return a, nil
}

// IsAccountID verifies whether the underlying data represents a valid
// hex-encoded account.
func (a AccountID) IsAccountID() bool {
	const addressLength = 20

	if has0xPrefix(a) {
		a = a[2:]
	}

	return len(a) == 2*addressLength && isHex(a)
}

// =============================================================================

// Transfer moves a contiguous range of value units from one account to
// another inside a confirmed batch. A transfer with an empty From account
// represents fresh issuance.
type Transfer struct {
	FromID AccountID   `json:"from"`
	ToID   AccountID   `json:"to"`
	Value  value.Value `json:"value"`
}

// NewTransfer constructs a transfer and validates the account formats.
func NewTransfer(fromID AccountID, toID AccountID, val value.Value) (Transfer, error) {
	if fromID != "" && !fromID.IsAccountID() {
		return Transfer{}, fmt.Errorf("from account is not properly formatted")
	}
	if !toID.IsAccountID() {
		return Transfer{}, fmt.Errorf("to account is not properly formatted")
	}

	return Transfer{FromID: fromID, ToID: toID, Value: val}, nil
}

// Hash returns the raw digest of the transfer so a batch of transfers can
// form a merkle tree.
func (tr Transfer) Hash() ([]byte, error) {
	data := append([]byte(tr.FromID), []byte(tr.ToID)...)
	data = append(data, tr.Value.Bytes()...)
	return digest.Sum(data), nil
}

// Equals reports whether two transfers are the same leaf in a batch.
func (tr Transfer) Equals(other Transfer) bool {
	return tr.FromID == other.FromID && tr.ToID == other.ToID && tr.Value.Equals(other.Value)
}

// =============================================================================

// Batch represents the transfers confirmed together inside one block. The
// digest is the identity the provenance chain records for the batch.
type Batch struct {
	Transfers []Transfer `json:"transfers"`
	Digest    string     `json:"digest"`
}

// NewBatch constructs a batch from the specified transfers and computes
// its digest.
func NewBatch(transfers []Transfer) (Batch, error) {
	if len(transfers) == 0 {
		return Batch{}, errors.New("batch must contain at least one transfer")
	}

	return Batch{
		Transfers: transfers,
		Digest:    digest.Hash(transfers),
	}, nil
}

// Hash returns the raw digest of the batch so the batches confirmed in one
// block can form a merkle tree. A proof of batch inclusion rehashes this
// leaf up the sibling path to the block's merkle root.
func (b Batch) Hash() ([]byte, error) {
	return digest.Sum([]byte(b.Digest)), nil
}

// Equals reports whether two batches are the same leaf in a block.
func (b Batch) Equals(other Batch) bool {
	return b.Digest == other.Digest
}

// LeafHash returns the merkle leaf hash for a batch identified only by its
// digest, the way a validator sees it inside a proof unit.
func LeafHash(batchDigest string) []byte {
	return digest.Sum([]byte(batchDigest))
}

// References reports whether any transfer in the batch spends value owned by
// the specified account.
func (b Batch) References(accountID AccountID) bool {
	for _, tr := range b.Transfers {
		if tr.FromID == accountID {
			return true
		}
	}

	return false
}

// TransfersFrom returns the transfers in the batch that spend value owned by
// the specified account, in batch order.
func (b Batch) TransfersFrom(accountID AccountID) []Transfer {
	var transfers []Transfer
	for _, tr := range b.Transfers {
		if tr.FromID == accountID {
			transfers = append(transfers, tr)
		}
	}

	return transfers
}

// TransfersTo returns the transfers in the batch that confirm value to the
// specified account, in batch order.
func (b Batch) TransfersTo(accountID AccountID) []Transfer {
	var transfers []Transfer
	for _, tr := range b.Transfers {
		if tr.ToID == accountID {
			transfers = append(transfers, tr)
		}
	}

	return transfers
}

// =============================================================================

// has0xPrefix validates the account starts with a 0x.
func has0xPrefix(a AccountID) bool {
	return len(a) >= 2 && a[0] == '0' && (a[1] == 'x' || a[1] == 'X')
}

// isHex validates whether each byte is valid hexadecimal string.
func isHex(a AccountID) bool {
	if len(a)%2 != 0 {
		return false
	}

	for _, c := range []byte(a) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
