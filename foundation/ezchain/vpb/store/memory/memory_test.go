package memory_test

import (
	"errors"
	"testing"

	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
	"github.com/ezchain/ezchain/foundation/ezchain/value"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb/store"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb/store/memory"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

func Test_CRUD(t *testing.T) {
	acctKate := transaction.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

	t.Log("Given the need to store and read VPB pairs in memory.")
	{
		t.Logf("\tTest 0:\tWhen writing and reading back pairs.")
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to open storage: %v", failed, err)
			}
			defer strg.Close()
			t.Logf("\t%s\tTest 0:\tShould be able to open storage.", success)

			pair := vpb.New(value.Value{BeginIndex: 0, ValueNum: 100}, acctKate)

			if err := strg.Write(pair); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to write a pair: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to write a pair.", success)

			back, err := strg.GetVPB(pair.VPBID)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read the pair back: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to read the pair back.", success)

			if !back.Value.Equals(pair.Value) {
				t.Errorf("\t%s\tTest 0:\tShould get the identical value range back.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould get the identical value range back.", success)
			}

			if _, err := strg.GetVPB("missing"); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("\t%s\tTest 0:\tShould get ErrNotFound for a missing id: %v", failed, err)
			} else {
				t.Logf("\t%s\tTest 0:\tShould get ErrNotFound for a missing id.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen iterating over the stored pairs.")
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to open storage: %v", failed, err)
			}
			defer strg.Close()

			pairs := []vpb.VPBPair{
				vpb.New(value.Value{BeginIndex: 0, ValueNum: 10}, acctKate),
				vpb.New(value.Value{BeginIndex: 10, ValueNum: 10}, acctKate),
				vpb.New(value.Value{BeginIndex: 20, ValueNum: 10}, acctKate),
			}
			if err := strg.WriteBatch(pairs); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to write a batch: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to write a batch.", success)

			loaded, err := store.LoadAll(strg)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to load all pairs: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to load all pairs.", success)

			if len(loaded) != len(pairs) {
				t.Errorf("\t%s\tTest 1:\tShould load %d pairs, got %d.", failed, len(pairs), len(loaded))
			} else {
				t.Logf("\t%s\tTest 1:\tShould load %d pairs.", success, len(pairs))
			}
		}

		t.Logf("\tTest 2:\tWhen resetting the storage.")
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to open storage: %v", failed, err)
			}
			defer strg.Close()

			pair := vpb.New(value.Value{BeginIndex: 0, ValueNum: 10}, acctKate)
			if err := strg.Write(pair); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to write a pair: %v", failed, err)
			}

			if err := strg.Reset(); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to reset storage: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould be able to reset storage.", success)

			if _, err := strg.GetVPB(pair.VPBID); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("\t%s\tTest 2:\tShould not find the pair after a reset: %v", failed, err)
			} else {
				t.Logf("\t%s\tTest 2:\tShould not find the pair after a reset.", success)
			}
		}
	}
}
