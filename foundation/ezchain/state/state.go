// Package state is the core API for the VPB ledger and implements all the
// business rules and processing.
package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ezchain/ezchain/foundation/ezchain/epoch"
	"github.com/ezchain/ezchain/foundation/ezchain/genesis"
	"github.com/ezchain/ezchain/foundation/ezchain/guard"
	"github.com/ezchain/ezchain/foundation/ezchain/proof"
	"github.com/ezchain/ezchain/foundation/ezchain/selector"
	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
	"github.com/ezchain/ezchain/foundation/ezchain/updater"
	"github.com/ezchain/ezchain/foundation/ezchain/updater/exact"
	"github.com/ezchain/ezchain/foundation/ezchain/validator"
	"github.com/ezchain/ezchain/foundation/ezchain/value"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb/store"
)

// Defaults applied when the genesis file leaves guard tuning unset.
const (
	defaultBloomCapacity = 100_000
	defaultBloomFPRate   = 0.001
)

// EventHandler defines a function that is called when events occur in the
// processing of updates.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start the ledger core.
type Config struct {
	Genesis        genesis.Genesis
	Storage        store.Storage
	SelectStrategy string
	EvHandler      EventHandler
}

// State manages the VPB ledger core: the store, the double-spend guard, the
// proof validator and the transactional updater.
type State struct {
	mu           sync.RWMutex
	latestHeight uint64
	shutdown     sync.Once

	genesis   genesis.Genesis
	strg      store.Storage
	epochs    epoch.Epochs
	guard     *guard.Guard
	validator *validator.Validator
	updater   *updater.Updater
	selectFn  selector.Func
	evHandler EventHandler
}

// New constructs the ledger core, seeds the genesis allocations on first
// start, and reconstructs the double-spend guard from the store.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	blocksPerEpoch := cfg.Genesis.BlocksPerEpoch
	if blocksPerEpoch == 0 {
		blocksPerEpoch = epoch.DefaultBlocksPerEpoch
	}
	epochs, err := epoch.New(blocksPerEpoch)
	if err != nil {
		return nil, err
	}

	bloomCapacity := cfg.Genesis.BloomCapacity
	if bloomCapacity == 0 {
		bloomCapacity = defaultBloomCapacity
	}
	bloomFPRate := cfg.Genesis.BloomFPRate
	if bloomFPRate == 0 {
		bloomFPRate = defaultBloomFPRate
	}

	grd, err := guard.New(guard.Config{Capacity: bloomCapacity, FPRate: bloomFPRate})
	if err != nil {
		return nil, err
	}

	selectFn, err := selector.Retrieve(cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	vld := validator.New(epochs)

	s := State{
		genesis:   cfg.Genesis,
		strg:      cfg.Storage,
		epochs:    epochs,
		guard:     grd,
		validator: vld,
		selectFn:  selectFn,
		evHandler: ev,
	}

	s.updater = updater.New(updater.Config{
		Storage:   cfg.Storage,
		Guard:     grd,
		Validator: vld,
		EvHandler: updater.EventHandler(ev),
	})

	// Seed the genesis allocations when the store starts empty, then bring
	// the guard back in line with the store's confirmed history.
	if err := s.seedGenesis(); err != nil {
		return nil, err
	}
	if err := s.rebuildGuard(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Shutdown cleanly brings the core down. It is safe to call more than once.
func (s *State) Shutdown() error {
	var err error
	s.shutdown.Do(func() {
		s.guard.Stop()
		err = s.strg.Close()
	})

	return err
}

// =============================================================================

// ProcessUpdate applies a confirmed transaction to the specified account's
// VPB pairs. It is the write path of the core.
func (s *State) ProcessUpdate(req updater.UpdateRequest) (updater.UpdateResult, error) {
	result, err := s.updater.UpdateVPBForTransaction(req)
	if err != nil {
		return result, err
	}

	s.mu.Lock()
	if req.BlockHeight > s.latestHeight {
		s.latestHeight = req.BlockHeight
	}
	s.mu.Unlock()

	s.evHandler("state: update applied: account[%s] height[%d] vpbs[%d]", req.AccountID, req.BlockHeight, len(result.UpdatedVPBIDs))

	return result, nil
}

// Status returns the update status diagnostic for the specified account.
func (s *State) Status(accountID transaction.AccountID) (updater.Status, error) {
	return s.updater.Status(accountID)
}

// QueryVPBs returns the live pairs currently owned by the specified account,
// ordered by begin index.
func (s *State) QueryVPBs(accountID transaction.AccountID) ([]vpb.VPBPair, error) {
	pairs, err := store.LoadAll(s.strg)
	if err != nil {
		return nil, err
	}

	var owned []vpb.VPBPair
	for _, pair := range pairs {
		if !pair.Spent && pair.CurrentOwner() == accountID {
			owned = append(owned, pair)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].Value.BeginIndex < owned[j].Value.BeginIndex
	})

	return owned, nil
}

// VerifyInbound produces the accept/reject verdict for an inbound transfer:
// the presented chain must validate and the transfer's nullifier must be
// novel.
func (s *State) VerifyInbound(chain proof.Proofs, val value.Value, batchDigest string) error {
	if state, err := s.validator.Validate(chain); err != nil {
		return fmt.Errorf("chain terminated %s: %w", state, err)
	}

	nullifier := guard.Nullifier(val, batchDigest)
	verdict, err := s.guard.CheckAndMark(nullifier, exact.Check(s.strg))
	if err != nil {
		return err
	}
	if verdict == guard.DoubleSpend {
		return fmt.Errorf("range [%d,%d] in batch %s: %w", val.BeginIndex, val.EndIndex(), batchDigest, updater.ErrDoubleSpend)
	}

	return nil
}

// PlanSpend selects, with the configured strategy, the pairs that fund a
// spend of the specified amount and returns the transfers to submit. The
// policy only shapes which ranges move; confirmation never depends on it.
func (s *State) PlanSpend(fromID transaction.AccountID, toID transaction.AccountID, amount uint64) ([]transaction.Transfer, error) {
	owned, err := s.QueryVPBs(fromID)
	if err != nil {
		return nil, err
	}

	selected, err := s.selectFn(owned, amount)
	if err != nil {
		return nil, err
	}

	var transfers []transaction.Transfer
	remaining := amount

	for _, pair := range selected {
		take := pair.Value.ValueNum
		if take > remaining {
			take = remaining
		}

		val, err := value.New(pair.Value.BeginIndex, take)
		if err != nil {
			return nil, err
		}

		tr, err := transaction.NewTransfer(fromID, toID, val)
		if err != nil {
			return nil, err
		}

		transfers = append(transfers, tr)
		remaining -= take
	}

	return transfers, nil
}

// UpdateVPB is the thin manager facade over the store: a single-pair upsert.
// The updater decides when to persist; nothing below it persists implicitly.
func (s *State) UpdateVPB(pair vpb.VPBPair) error {
	return s.strg.Write(pair)
}

// RolloverEpoch resets the double-spend guard for a new epoch window. The
// schedule is owned by the consumer; the action is non-reversible.
func (s *State) RolloverEpoch(epochNumber uint64) {
	s.evHandler("state: epoch rollover: epoch[%d]", epochNumber)
	s.guard.Rollover(epochNumber)
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// GuardStats returns the double-spend guard's counters.
func (s *State) GuardStats() guard.Stats {
	return s.guard.Stats()
}

// LatestHeight returns the highest block height an update has been applied
// at.
func (s *State) LatestHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.latestHeight
}

// =============================================================================

// seedGenesis writes the genesis allocation pairs when the store is empty.
// Provenance starts at the genesis block with no predecessor unit.
func (s *State) seedGenesis() error {
	pairs, err := store.LoadAll(s.strg)
	if err != nil {
		return fmt.Errorf("loading pairs: %w", err)
	}
	if len(pairs) > 0 {
		return nil
	}

	var transfers []transaction.Transfer
	accounts := make([]string, 0, len(s.genesis.Allocations))
	for account := range s.genesis.Allocations {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	for _, account := range accounts {
		accountID, err := transaction.ToAccountID(account)
		if err != nil {
			return fmt.Errorf("genesis account %s: %w", account, err)
		}

		tr, err := transaction.NewTransfer("", accountID, s.genesis.Allocations[account])
		if err != nil {
			return fmt.Errorf("genesis allocation for %s: %w", account, err)
		}
		transfers = append(transfers, tr)
	}

	if len(transfers) == 0 {
		return nil
	}

	batch, err := transaction.NewBatch(transfers)
	if err != nil {
		return err
	}

	var seeded []vpb.VPBPair
	for _, tr := range transfers {
		unit := proof.NewUnit(tr.ToID, batch.Digest, epoch.GenesisHeight, proof.MerkleProof{})

		pair := vpb.New(tr.Value, tr.ToID)
		if err := pair.Proofs.AddProofUnit(unit); err != nil {
			return err
		}
		pair.BlockIndexLst.AddBlockHeight(epoch.GenesisHeight)

		seeded = append(seeded, pair)
	}

	if err := s.strg.WriteBatch(seeded); err != nil {
		return fmt.Errorf("seeding genesis allocations: %w", err)
	}

	s.evHandler("state: genesis seeded: accounts[%d]", len(seeded))

	return nil
}

// rebuildGuard replays the store's confirmed nullifiers into a fresh guard
// so a crash never loses the filter's knowledge.
func (s *State) rebuildGuard() error {
	pairs, err := store.LoadAll(s.strg)
	if err != nil {
		return fmt.Errorf("loading pairs: %w", err)
	}

	var latest uint64
	for _, pair := range pairs {
		if h := pair.BlockIndexLst.LatestHeight(); h > latest {
			latest = h
		}
	}

	s.mu.Lock()
	s.latestHeight = latest
	s.mu.Unlock()

	s.guard.Rebuild(s.epochs.Number(latest), exact.Nullifiers(pairs))

	return nil
}
