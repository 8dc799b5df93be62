package state_test

import (
	"errors"
	"testing"

	"github.com/ezchain/ezchain/foundation/ezchain/epoch"
	"github.com/ezchain/ezchain/foundation/ezchain/genesis"
	"github.com/ezchain/ezchain/foundation/ezchain/merkle"
	"github.com/ezchain/ezchain/foundation/ezchain/proof"
	"github.com/ezchain/ezchain/foundation/ezchain/selector"
	"github.com/ezchain/ezchain/foundation/ezchain/state"
	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
	"github.com/ezchain/ezchain/foundation/ezchain/updater"
	"github.com/ezchain/ezchain/foundation/ezchain/value"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb/store/disk"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// Accounts used across the tests.
const (
	acctKate  = transaction.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	acctAaron = transaction.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	acctFrank = transaction.AccountID("0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76")
)

// =============================================================================

// testGenesis allocates two disjoint ranges at the genesis block.
func testGenesis() genesis.Genesis {
	return genesis.Genesis{
		ChainID:        1,
		BlocksPerEpoch: 100,
		Allocations: map[string]value.Value{
			string(acctKate):  {BeginIndex: 0, ValueNum: 1000},
			string(acctAaron): {BeginIndex: 1000, ValueNum: 500},
		},
	}
}

// newState constructs a core over disk storage rooted in a temp directory.
func newState(t *testing.T, dbPath string) *state.State {
	t.Helper()

	strg, err := disk.New(dbPath)
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}

	s, err := state.New(state.Config{
		Genesis:        testGenesis(),
		Storage:        strg,
		SelectStrategy: selector.StrategyIndex,
	})
	if err != nil {
		t.Fatalf("constructing state: %v", err)
	}
	t.Cleanup(func() { s.Shutdown() })

	return s
}

// confirmBatch confirms the transfers in a block and returns the batch with
// its inclusion proof.
func confirmBatch(t *testing.T, transfers []transaction.Transfer) (transaction.Batch, proof.MerkleProof) {
	t.Helper()

	batch, err := transaction.NewBatch(transfers)
	if err != nil {
		t.Fatalf("constructing batch: %v", err)
	}

	filler, err := transaction.NewBatch([]transaction.Transfer{
		{FromID: acctFrank, ToID: acctFrank, Value: value.Value{BeginIndex: 900000, ValueNum: 1}},
	})
	if err != nil {
		t.Fatalf("constructing filler batch: %v", err)
	}

	tree, err := merkle.NewTree([]transaction.Batch{batch, filler})
	if err != nil {
		t.Fatalf("constructing block tree: %v", err)
	}

	path, order, err := tree.Proof(batch)
	if err != nil {
		t.Fatalf("proving batch inclusion: %v", err)
	}

	return batch, proof.MerkleProof{Root: tree.MerkleRoot, Path: path, Order: order}
}

// =============================================================================

func Test_GenesisSeeding(t *testing.T) {
	t.Log("Given the need to seed genesis allocations on first start.")
	{
		t.Logf("\tTest 0:\tWhen starting over an empty store.")
		{
			s := newState(t, t.TempDir())

			pairs, err := s.QueryVPBs(acctKate)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to query pairs: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to query pairs.", success)

			if len(pairs) != 1 || !pairs[0].Value.Equals(value.Value{BeginIndex: 0, ValueNum: 1000}) {
				t.Errorf("\t%s\tTest 0:\tShould allocate the configured range.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould allocate the configured range.", success)
			}

			if pairs[0].Proofs.Len() != 1 || !epoch.IsGenesis(pairs[0].Proofs.Latest().BlockHeight) {
				t.Errorf("\t%s\tTest 0:\tShould start provenance at the genesis block.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould start provenance at the genesis block.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen restarting over a seeded store.")
		{
			dbPath := t.TempDir()

			s := newState(t, dbPath)
			s.Shutdown()

			s = newState(t, dbPath)

			pairs, err := s.QueryVPBs(acctKate)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to query pairs: %v", failed, err)
			}

			if len(pairs) != 1 {
				t.Errorf("\t%s\tTest 1:\tShould not seed twice, got %d pairs.", failed, len(pairs))
			} else {
				t.Logf("\t%s\tTest 1:\tShould not seed twice.", success)
			}
		}
	}
}

func Test_ProcessUpdate(t *testing.T) {
	t.Log("Given the need to process confirmed transactions through the core.")
	{
		t.Logf("\tTest 0:\tWhen applying a spend end to end.")
		{
			s := newState(t, t.TempDir())

			batch, mp := confirmBatch(t, []transaction.Transfer{
				{FromID: acctKate, ToID: acctFrank, Value: value.Value{BeginIndex: 0, ValueNum: 100}},
			})

			result, err := s.ProcessUpdate(updater.UpdateRequest{
				AccountID:   acctKate,
				Batch:       batch,
				BlockHeight: 7,
				Proof:       mp,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to apply the update: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to apply the update.", success)

			if !result.Success {
				t.Errorf("\t%s\tTest 0:\tShould report success.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould report success.", success)
			}

			if s.LatestHeight() != 7 {
				t.Errorf("\t%s\tTest 0:\tShould track the latest height, got %d.", failed, s.LatestHeight())
			} else {
				t.Logf("\t%s\tTest 0:\tShould track the latest height.", success)
			}

			frankPairs, err := s.QueryVPBs(acctFrank)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to query the recipient: %v", failed, err)
			}
			if len(frankPairs) != 1 {
				t.Errorf("\t%s\tTest 0:\tShould leave the recipient 1 pair, got %d.", failed, len(frankPairs))
			} else {
				t.Logf("\t%s\tTest 0:\tShould leave the recipient 1 pair.", success)
			}

			status, err := s.Status(acctFrank)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read the status: %v", failed, err)
			}
			if status.TotalVPBs != 1 {
				t.Errorf("\t%s\tTest 0:\tShould count 1 live pair, got %d.", failed, status.TotalVPBs)
			} else {
				t.Logf("\t%s\tTest 0:\tShould count 1 live pair.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen replaying the spend after a restart.")
		{
			dbPath := t.TempDir()
			s := newState(t, dbPath)

			batch, mp := confirmBatch(t, []transaction.Transfer{
				{FromID: acctKate, ToID: acctFrank, Value: value.Value{BeginIndex: 0, ValueNum: 100}},
			})

			req := updater.UpdateRequest{
				AccountID:   acctKate,
				Batch:       batch,
				BlockHeight: 7,
				Proof:       mp,
			}

			if _, err := s.ProcessUpdate(req); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to apply the update: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to apply the update.", success)

			s.Shutdown()
			s = newState(t, dbPath)

			// The guard was rebuilt from the store, so the replay is caught.
			if _, err := s.ProcessUpdate(req); !errors.Is(err, updater.ErrDoubleSpend) {
				t.Errorf("\t%s\tTest 1:\tShould reject the replay after a restart: %v", failed, err)
			} else {
				t.Logf("\t%s\tTest 1:\tShould reject the replay after a restart.", success)
			}
		}
	}
}

func Test_PlanSpend(t *testing.T) {
	t.Log("Given the need to plan the transfers that fund a spend.")
	{
		t.Logf("\tTest 0:\tWhen the amount fits inside one pair.")
		{
			s := newState(t, t.TempDir())

			transfers, err := s.PlanSpend(acctKate, acctFrank, 250)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to plan the spend: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to plan the spend.", success)

			if len(transfers) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould plan 1 transfer, got %d.", failed, len(transfers))
			}
			t.Logf("\t%s\tTest 0:\tShould plan 1 transfer.", success)

			var total uint64
			for _, tr := range transfers {
				if tr.FromID != acctKate || tr.ToID != acctFrank {
					t.Errorf("\t%s\tTest 0:\tShould address the transfer correctly.", failed)
				}
				total += tr.Value.ValueNum
			}
			if total != 250 {
				t.Errorf("\t%s\tTest 0:\tShould plan exactly 250 units, got %d.", failed, total)
			} else {
				t.Logf("\t%s\tTest 0:\tShould plan exactly 250 units.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen the account cannot cover the amount.")
		{
			s := newState(t, t.TempDir())

			if _, err := s.PlanSpend(acctAaron, acctFrank, 501); !errors.Is(err, selector.ErrInsufficientValue) {
				t.Errorf("\t%s\tTest 1:\tShould reject an uncoverable amount: %v", failed, err)
			} else {
				t.Logf("\t%s\tTest 1:\tShould reject an uncoverable amount.", success)
			}
		}

		t.Logf("\tTest 2:\tWhen a planned spend is applied.")
		{
			s := newState(t, t.TempDir())

			transfers, err := s.PlanSpend(acctKate, acctFrank, 250)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to plan the spend: %v", failed, err)
			}

			batch, mp := confirmBatch(t, transfers)

			if _, err := s.ProcessUpdate(updater.UpdateRequest{
				AccountID:   acctKate,
				Batch:       batch,
				BlockHeight: 3,
				Proof:       mp,
			}); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to apply the planned spend: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould be able to apply the planned spend.", success)

			frankPairs, err := s.QueryVPBs(acctFrank)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to query the recipient: %v", failed, err)
			}

			var received uint64
			for _, pair := range frankPairs {
				received += pair.Value.ValueNum
			}
			if received != 250 {
				t.Errorf("\t%s\tTest 2:\tShould deliver exactly 250 units, got %d.", failed, received)
			} else {
				t.Logf("\t%s\tTest 2:\tShould deliver exactly 250 units.", success)
			}
		}
	}
}

func Test_VerifyInbound(t *testing.T) {
	t.Log("Given the need to verify an inbound transfer before acceptance.")
	{
		t.Logf("\tTest 0:\tWhen the presented chain is the seeded allocation.")
		{
			s := newState(t, t.TempDir())

			pairs, err := s.QueryVPBs(acctKate)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to query pairs: %v", failed, err)
			}

			val := value.Value{BeginIndex: 0, ValueNum: 10}
			if err := s.VerifyInbound(pairs[0].Proofs, val, "incoming-batch"); err != nil {
				t.Errorf("\t%s\tTest 0:\tShould accept a valid inbound transfer: %v", failed, err)
			} else {
				t.Logf("\t%s\tTest 0:\tShould accept a valid inbound transfer.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen the presented chain is tampered.")
		{
			s := newState(t, t.TempDir())

			pairs, err := s.QueryVPBs(acctKate)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to query pairs: %v", failed, err)
			}

			chain := pairs[0].Proofs
			chain.Units[0].BatchDigest = "forged"

			val := value.Value{BeginIndex: 0, ValueNum: 10}
			if err := s.VerifyInbound(chain, val, "incoming-batch"); err == nil {
				t.Errorf("\t%s\tTest 1:\tShould reject a tampered chain.", failed)
			} else {
				t.Logf("\t%s\tTest 1:\tShould reject a tampered chain.", success)
			}
		}
	}
}

func Test_EpochRollover(t *testing.T) {
	t.Log("Given the need to scope the guard to epoch windows.")
	{
		t.Logf("\tTest 0:\tWhen rolling the guard over.")
		{
			s := newState(t, t.TempDir())

			before := s.GuardStats()

			s.RolloverEpoch(2)

			after := s.GuardStats()
			if after.Queries < before.Queries {
				t.Errorf("\t%s\tTest 0:\tShould keep the counters across a rollover.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould keep the counters across a rollover.", success)
			}
		}
	}
}
