package public

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ezchain/ezchain/foundation/ezchain/proof"
	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
	"github.com/ezchain/ezchain/foundation/ezchain/updater"
	"github.com/ezchain/ezchain/foundation/ezchain/value"
)

// updateRequest is what clients submit to apply a confirmed transaction to
// an account's VPB set.
type updateRequest struct {
	AccountAddress string            `json:"account_address" validate:"required"`
	Batch          transaction.Batch `json:"transaction_batch"`
	BlockHeight    uint64            `json:"block_height"`
	MerkleProof    proof.MerkleProof `json:"merkle_proof"`
}

// toUpdateRequest validates the account format and converts the model to
// the core's request type.
func toUpdateRequest(req updateRequest) (updater.UpdateRequest, error) {
	accountID, err := transaction.ToAccountID(req.AccountAddress)
	if err != nil {
		return updater.UpdateRequest{}, err
	}

	return updater.UpdateRequest{
		AccountID:   accountID,
		Batch:       req.Batch,
		BlockHeight: req.BlockHeight,
		Proof:       req.MerkleProof,
	}, nil
}

// planSpendRequest asks the node to select the ranges funding a spend.
type planSpendRequest struct {
	FromAddress string `json:"from_address" validate:"required"`
	ToAddress   string `json:"to_address" validate:"required"`
	Amount      uint64 `json:"amount" validate:"required,gte=1"`
}

// verifyInboundRequest carries the provenance chain presented with an
// inbound transfer.
type verifyInboundRequest struct {
	Chain       proof.Proofs `json:"chain"`
	Value       valueModel   `json:"value"`
	BatchDigest string       `json:"batch_digest" validate:"required"`
}

// valueModel mirrors the boundary rendering of a value range.
type valueModel struct {
	BeginIndex string `json:"begin_index" validate:"required"`
	ValueNum   uint64 `json:"value_num" validate:"required,gte=1"`
}

// toValue converts the model to a core value range.
func toValue(vm valueModel) (value.Value, error) {
	begin, err := hexutil.DecodeUint64(vm.BeginIndex)
	if err != nil {
		return value.Value{}, err
	}

	return value.New(begin, vm.ValueNum)
}

// verdict is the accept/reject answer for an inbound transfer.
type verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}
