// Package updater applies confirmed transactions to the VPB pairs of an
// account. It is the transactional core: it selects, splits, creates and
// persists pairs, and an update either applies completely or leaves the
// store untouched.
package updater

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ezchain/ezchain/foundation/ezchain/epoch"
	"github.com/ezchain/ezchain/foundation/ezchain/guard"
	"github.com/ezchain/ezchain/foundation/ezchain/proof"
	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
	"github.com/ezchain/ezchain/foundation/ezchain/updater/exact"
	"github.com/ezchain/ezchain/foundation/ezchain/validator"
	"github.com/ezchain/ezchain/foundation/ezchain/value"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb/store"
)

// Set of failure kinds an update can terminate in. ErrStoreUnavailable is
// the only one eligible for caller-driven retry; every other kind is a
// terminal verdict on that specific request.
var (
	ErrDoubleSpend      = errors.New("double spend rejected")
	ErrAccountMismatch  = errors.New("account mismatch")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// EventHandler defines a function that is called when events occur in the
// processing of updates.
type EventHandler func(v string, args ...any)

// =============================================================================

// UpdateRequest carries a confirmed transaction batch, the block it was
// confirmed in, and the merkle proof of the batch's inclusion in that block.
type UpdateRequest struct {
	AccountID   transaction.AccountID
	Batch       transaction.Batch
	BlockHeight uint64
	Proof       proof.MerkleProof
}

// UpdateResult reports the outcome of applying an update request.
type UpdateResult struct {
	Success       bool     `json:"success"`
	UpdatedVPBIDs []string `json:"updated_vpb_ids"`
	Error         string   `json:"error,omitempty"`
}

// Status is the read-only diagnostic for an account's VPB set.
type Status struct {
	AccountID transaction.AccountID `json:"account_address"`
	TotalVPBs int                   `json:"total_vpbs"`
}

// =============================================================================

// Config represents the dependencies an updater needs.
type Config struct {
	Storage   store.Storage
	Guard     *guard.Guard
	Validator *validator.Validator
	EvHandler EventHandler
}

// Updater applies confirmed transactions to the VPB set of an account.
// Updates for the same account are serialized; updates for different
// accounts proceed in parallel.
type Updater struct {
	strg      store.Storage
	guard     *guard.Guard
	validator *validator.Validator
	evHandler EventHandler

	mu           sync.Mutex
	accountLocks map[transaction.AccountID]*sync.Mutex
}

// New constructs an updater for use.
func New(cfg Config) *Updater {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	return &Updater{
		strg:         cfg.Storage,
		guard:        cfg.Guard,
		validator:    cfg.Validator,
		evHandler:    ev,
		accountLocks: make(map[transaction.AccountID]*sync.Mutex),
	}
}

// =============================================================================

// UpdateVPBForTransaction applies the specified confirmed transaction to the
// VPB pairs of the affected account. The store ends in a state consistent
// with exactly-once application, or is left untouched on failure. Partial
// application is forbidden.
func (u *Updater) UpdateVPBForTransaction(req UpdateRequest) (UpdateResult, error) {
	lock := u.accountLock(req.AccountID)
	lock.Lock()
	defer lock.Unlock()

	u.evHandler("updater: account[%s] batch[%s] height[%d]", req.AccountID, req.Batch.Digest, req.BlockHeight)

	result, err := u.apply(req)
	if err != nil {
		u.evHandler("updater: account[%s] batch[%s] rejected: %s", req.AccountID, req.Batch.Digest, err)
		result.Error = err.Error()
		return result, err
	}

	return result, nil
}

// Status returns the number of VPB pairs currently owned by the account.
// It is side-effect free and not part of the transactional path.
func (u *Updater) Status(accountID transaction.AccountID) (Status, error) {
	pairs, err := store.LoadAll(u.strg)
	if err != nil {
		return Status{}, fmt.Errorf("loading pairs: %v: %w", err, ErrStoreUnavailable)
	}

	status := Status{AccountID: accountID}
	for _, pair := range pairs {
		if !pair.Spent && pair.CurrentOwner() == accountID {
			status.TotalVPBs++
		}
	}

	return status, nil
}

// =============================================================================

// apply runs steps one through six of the update under the account lock.
// All writes are staged in memory and persisted with a single atomic batch.
func (u *Updater) apply(req UpdateRequest) (UpdateResult, error) {

	// Step 1: resolve the pairs currently owned by the account.
	pairs, err := store.LoadAll(u.strg)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("loading pairs: %v: %w", err, ErrStoreUnavailable)
	}

	owned := make([]vpb.VPBPair, 0, len(pairs))
	for _, pair := range pairs {
		if !pair.Spent && pair.CurrentOwner() == req.AccountID {
			owned = append(owned, pair)
		}
	}

	spends := req.Batch.TransfersFrom(req.AccountID)
	receives := req.Batch.TransfersTo(req.AccountID)

	// Step 2: a batch that does not reference this account's value succeeds
	// trivially. This is not an error.
	if len(spends) == 0 && len(receives) == 0 {
		return UpdateResult{Success: true, UpdatedVPBIDs: []string{}}, nil
	}

	staged := newStaging()

	// Steps 3 and 4 for the spending side.
	if err := u.applySpends(req, owned, spends, staged); err != nil {
		return UpdateResult{}, err
	}

	// Step 4 for the receiving side.
	if err := u.applyReceives(req, pairs, receives, staged); err != nil {
		return UpdateResult{}, err
	}

	if len(staged.order) == 0 {
		return UpdateResult{Success: true, UpdatedVPBIDs: []string{}}, nil
	}

	// Step 6: persist every touched and created pair atomically.
	if err := u.strg.WriteBatch(staged.pairs()); err != nil {
		return UpdateResult{}, fmt.Errorf("persisting batch: %v: %w", err, ErrStoreUnavailable)
	}

	return UpdateResult{Success: true, UpdatedVPBIDs: staged.ids()}, nil
}

// applySpends validates and stages the splits for the transfers spending
// the account's value.
func (u *Updater) applySpends(req UpdateRequest, owned []vpb.VPBPair, spends []transaction.Transfer, staged *staging) error {
	if len(spends) == 0 {
		return nil
	}

	// One proof unit records this account's inclusion in this batch. Every
	// pair produced by this update shares it.
	unit := proof.NewUnit(req.AccountID, req.Batch.Digest, req.BlockHeight, req.Proof)

	// Step 3: every referenced range must be novel and currently owned, and
	// the provenance chain of every consumed pair must verify.
	groups := make(map[string][]transaction.Transfer)
	grouped := make(map[string]vpb.VPBPair)

	for _, tr := range spends {
		nullifier := guard.Nullifier(tr.Value, req.Batch.Digest)

		verdict, err := u.guard.CheckAndMark(nullifier, exact.Check(u.strg))
		if err != nil {
			return fmt.Errorf("double spend check: %v: %w", err, ErrStoreUnavailable)
		}
		if verdict == guard.DoubleSpend {
			return fmt.Errorf("range [%d,%d] in batch %s: %w", tr.Value.BeginIndex, tr.Value.EndIndex(), req.Batch.Digest, ErrDoubleSpend)
		}

		pair, found := coveringPair(owned, tr.Value)
		if !found {
			return fmt.Errorf("account %s does not own range [%d,%d]: %w", req.AccountID, tr.Value.BeginIndex, tr.Value.EndIndex(), ErrAccountMismatch)
		}

		if _, exists := grouped[pair.VPBID]; !exists {
			if state, err := u.validator.Validate(pair.Proofs); err != nil {
				return fmt.Errorf("pair %s chain terminated %s: %w", pair.VPBID, state, err)
			}
			if err := u.validator.ValidateExtension(pair.Proofs, req.Batch.Digest, req.BlockHeight, req.Proof); err != nil {
				return fmt.Errorf("pair %s: %w", pair.VPBID, err)
			}
			grouped[pair.VPBID] = pair
		}

		groups[pair.VPBID] = append(groups[pair.VPBID], tr)
	}

	// Step 4: split each consumed pair into its spent portions and change.
	for vpbID, transfers := range groups {
		if err := u.splitPair(req, grouped[vpbID], transfers, unit, staged); err != nil {
			return err
		}
	}

	return nil
}

// splitPair partitions the consumed pair's range into the transferred
// portions and the unspent remainders, all sharing the original chain plus
// the new proof unit, and tombstones the original pair.
func (u *Updater) splitPair(req UpdateRequest, pair vpb.VPBPair, transfers []transaction.Transfer, unit *proof.Unit, staged *staging) error {
	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].Value.BeginIndex < transfers[j].Value.BeginIndex
	})

	// Build the exact partition of the pair's range, tracking the recipient
	// of each spent part. Overlapping spend ranges cannot form a partition.
	type part struct {
		valueNum uint64
		toID     transaction.AccountID
		spent    bool
	}

	// The cursor walks offsets from the pair's begin index so the partition
	// arithmetic stays inside the pair's unit count and cannot wrap.
	var parts []part
	var cursor uint64

	for _, tr := range transfers {
		offset := tr.Value.BeginIndex - pair.Value.BeginIndex
		if offset < cursor {
			return fmt.Errorf("ranges overlap at index %d: %w", tr.Value.BeginIndex, value.ErrInvalidSplit)
		}
		if gap := offset - cursor; gap > 0 {
			parts = append(parts, part{valueNum: gap})
		}

		parts = append(parts, part{valueNum: tr.Value.ValueNum, toID: tr.ToID, spent: true})
		cursor = offset + tr.Value.ValueNum
	}
	if cursor < pair.Value.ValueNum {
		parts = append(parts, part{valueNum: pair.Value.ValueNum - cursor})
	}

	partLens := make([]uint64, len(parts))
	for i, p := range parts {
		partLens[i] = p.valueNum
	}

	values, err := pair.Value.Split(partLens)
	if err != nil {
		return err
	}

	// The original pair is consumed. Its tombstone carries the pair-level
	// nullifier so the guard can be rebuilt from the store.
	tombstone := pair
	tombstone.MarkSpent(guard.Nullifier(pair.Value, req.Batch.Digest))
	tombstone.BlockIndexLst = pair.BlockIndexLst.Clone()
	tombstone.BlockIndexLst.AddBlockHeight(req.BlockHeight)
	staged.add(tombstone)

	for i, val := range values {
		proofs := pair.Proofs.Clone()
		if err := proofs.AddProofUnit(unit); err != nil {
			return err
		}

		// Every portion keeps the consumed pair's recorded heights; the
		// split does not restart the custody record.
		blockLst := pair.BlockIndexLst.Clone()
		blockLst.AddBlockHeight(req.BlockHeight)

		np := vpb.VPBPair{
			VPBID:         vpb.ID(val),
			Value:         val,
			Proofs:        proofs,
			BlockIndexLst: blockLst,
		}

		// Step 5: an ownership change is appended only for the portions
		// whose owner changed.
		if parts[i].spent && parts[i].toID != req.AccountID {
			if err := np.BlockIndexLst.AddOwnershipChange(req.BlockHeight, parts[i].toID); err != nil {
				return err
			}
		}

		staged.add(np)
	}

	return nil
}

// applyReceives stages the pairs created for value confirmed to this
// account. A transfer from another account materializes on the spender's
// update; fresh issuance is only valid at the genesis block.
func (u *Updater) applyReceives(req UpdateRequest, pairs []vpb.VPBPair, receives []transaction.Transfer, staged *staging) error {
	for _, tr := range receives {

		// Self-change was already produced by the spending side.
		if tr.FromID == req.AccountID {
			continue
		}

		// A transfer from another account: the pair is created by the
		// spender's update with its full chain. Nothing to stage here.
		if tr.FromID != "" {
			continue
		}

		if !epoch.IsGenesis(req.BlockHeight) {
			return fmt.Errorf("issuance at non-genesis height %d: %w", req.BlockHeight, validator.ErrProofInvalid)
		}

		vpbID := vpb.ID(tr.Value)
		if alreadyOwned(pairs, vpbID, req.AccountID) || staged.has(vpbID) {
			continue
		}

		unit := proof.NewUnit(req.AccountID, req.Batch.Digest, req.BlockHeight, req.Proof)

		np := vpb.New(tr.Value, req.AccountID)
		if err := np.Proofs.AddProofUnit(unit); err != nil {
			return err
		}
		np.BlockIndexLst.AddBlockHeight(req.BlockHeight)

		staged.add(np)
	}

	return nil
}

// =============================================================================

// accountLock returns the mutex serializing updates for the specified
// account, creating it on first use.
func (u *Updater) accountLock(accountID transaction.AccountID) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()

	lock, exists := u.accountLocks[accountID]
	if !exists {
		lock = &sync.Mutex{}
		u.accountLocks[accountID] = lock
	}

	return lock
}

// coveringPair locates the live owned pair whose range contains the
// specified value. Containment is decided on offsets and unit counts so a
// range whose end index would wrap the index space can never match.
func coveringPair(owned []vpb.VPBPair, val value.Value) (vpb.VPBPair, bool) {
	for _, pair := range owned {
		if val.BeginIndex < pair.Value.BeginIndex {
			continue
		}

		offset := val.BeginIndex - pair.Value.BeginIndex
		if offset < pair.Value.ValueNum && val.ValueNum <= pair.Value.ValueNum-offset {
			return pair, true
		}
	}

	return vpb.VPBPair{}, false
}

// alreadyOwned reports whether the specified pair exists and is live under
// the specified account.
func alreadyOwned(pairs []vpb.VPBPair, vpbID string, accountID transaction.AccountID) bool {
	for _, pair := range pairs {
		if pair.VPBID == vpbID && !pair.Spent && pair.CurrentOwner() == accountID {
			return true
		}
	}

	return false
}

// =============================================================================

// staging collects the pairs touched by one update so they can be persisted
// with a single atomic batch write. Later writes to the same id replace
// earlier ones.
type staging struct {
	byID  map[string]vpb.VPBPair
	order []string
}

func newStaging() *staging {
	return &staging{byID: make(map[string]vpb.VPBPair)}
}

func (s *staging) add(pair vpb.VPBPair) {
	if _, exists := s.byID[pair.VPBID]; !exists {
		s.order = append(s.order, pair.VPBID)
	}
	s.byID[pair.VPBID] = pair
}

func (s *staging) has(vpbID string) bool {
	_, exists := s.byID[vpbID]
	return exists
}

func (s *staging) pairs() []vpb.VPBPair {
	pairs := make([]vpb.VPBPair, 0, len(s.order))
	for _, id := range s.order {
		pairs = append(pairs, s.byID[id])
	}
	return pairs
}

func (s *staging) ids() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}
