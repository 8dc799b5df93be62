package ownership_test

import (
	"testing"

	"github.com/ezchain/ezchain/foundation/ezchain/ownership"
	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

var (
	acctKate  = transaction.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	acctAaron = transaction.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
)

func Test_BlockHeights(t *testing.T) {
	type table struct {
		name    string
		heights []uint64
		exp     []uint64
	}

	tt := []table{
		{
			name:    "ordered",
			heights: []uint64{1, 2, 3},
			exp:     []uint64{1, 2, 3},
		},
		{
			name:    "unordered",
			heights: []uint64{9, 2, 5},
			exp:     []uint64{2, 5, 9},
		},
		{
			name:    "duplicates",
			heights: []uint64{4, 4, 7, 4, 7},
			exp:     []uint64{4, 7},
		},
		{
			name:    "genesis",
			heights: []uint64{0},
			exp:     []uint64{0},
		},
	}

	t.Log("Given the need to track the block heights a value was anchored at.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen recording %d heights.", testID, len(tst.heights))
			{
				f := func(t *testing.T) {
					bil := ownership.New("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
					for _, height := range tst.heights {
						bil.AddBlockHeight(height)
					}

					if len(bil.IndexLst) != len(tst.exp) {
						t.Fatalf("\t%s\tTest %d:\tShould keep %d heights, got %d.", failed, testID, len(tst.exp), len(bil.IndexLst))
					}
					t.Logf("\t%s\tTest %d:\tShould keep %d heights.", success, testID, len(tst.exp))

					for i, height := range tst.exp {
						if bil.IndexLst[i] != height {
							t.Errorf("\t%s\tTest %d:\tShould have height %d at position %d, got %d.", failed, testID, height, i, bil.IndexLst[i])
						} else {
							t.Logf("\t%s\tTest %d:\tShould have height %d at position %d.", success, testID, height, i)
						}
					}

					if bil.LatestHeight() != tst.exp[len(tst.exp)-1] {
						t.Errorf("\t%s\tTest %d:\tShould report latest height %d, got %d.", failed, testID, tst.exp[len(tst.exp)-1], bil.LatestHeight())
					} else {
						t.Logf("\t%s\tTest %d:\tShould report latest height %d.", success, testID, tst.exp[len(tst.exp)-1])
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_OwnershipHistory(t *testing.T) {
	t.Log("Given the need to maintain an append-only ownership log.")
	{
		t.Logf("\tTest 0:\tWhen transferring a value between owners.")
		{
			bil := ownership.New(acctKate)

			if bil.CurrentOwner() != acctKate {
				t.Fatalf("\t%s\tTest 0:\tShould start owned by the original owner.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould start owned by the original owner.", success)

			if err := bil.AddOwnershipChange(10, acctAaron); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to record a transfer: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to record a transfer.", success)

			if bil.CurrentOwner() != acctAaron {
				t.Errorf("\t%s\tTest 0:\tShould report the new owner after a transfer.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould report the new owner after a transfer.", success)
			}

			if err := bil.AddOwnershipChange(12, acctAaron); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept a re-anchor to the same owner: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept a re-anchor to the same owner.", success)

			if len(bil.OwnerHistory) != 2 {
				t.Errorf("\t%s\tTest 0:\tShould keep every history entry, got %d.", failed, len(bil.OwnerHistory))
			} else {
				t.Logf("\t%s\tTest 0:\tShould keep every history entry.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen the history is configured as monotonic.")
		{
			bil := ownership.New(acctKate, ownership.WithMonotonicHistory())

			if err := bil.AddOwnershipChange(10, acctAaron); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the first transfer: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould accept the first transfer.", success)

			if err := bil.AddOwnershipChange(5, acctKate); err == nil {
				t.Errorf("\t%s\tTest 1:\tShould reject a transfer below the last recorded height.", failed)
			} else {
				t.Logf("\t%s\tTest 1:\tShould reject a transfer below the last recorded height.", success)
			}

			if err := bil.AddOwnershipChange(10, acctKate); err != nil {
				t.Errorf("\t%s\tTest 1:\tShould accept a transfer at the same height: %v", failed, err)
			} else {
				t.Logf("\t%s\tTest 1:\tShould accept a transfer at the same height.", success)
			}
		}
	}
}

func Test_Clone(t *testing.T) {
	t.Log("Given the need to copy a record without sharing storage.")
	{
		t.Logf("\tTest 0:\tWhen extending a clone.")
		{
			bil := ownership.New(acctKate)
			bil.AddBlockHeight(3)
			bil.AddBlockHeight(9)
			if err := bil.AddOwnershipChange(9, acctAaron); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould record the transfer: %v", failed, err)
			}

			clone := bil.Clone()
			clone.AddBlockHeight(12)
			if err := clone.AddOwnershipChange(12, acctKate); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould record the transfer on the clone: %v", failed, err)
			}

			if len(bil.IndexLst) != 2 || len(bil.OwnerHistory) != 1 {
				t.Errorf("\t%s\tTest 0:\tShould leave the original record unchanged, got %d heights and %d transfers.", failed, len(bil.IndexLst), len(bil.OwnerHistory))
			} else {
				t.Logf("\t%s\tTest 0:\tShould leave the original record unchanged.", success)
			}

			if len(clone.IndexLst) != 3 || len(clone.OwnerHistory) != 2 {
				t.Errorf("\t%s\tTest 0:\tShould extend only the clone, got %d heights and %d transfers.", failed, len(clone.IndexLst), len(clone.OwnerHistory))
			} else {
				t.Logf("\t%s\tTest 0:\tShould extend only the clone.", success)
			}

			if bil.CurrentOwner() != acctAaron || clone.CurrentOwner() != acctKate {
				t.Errorf("\t%s\tTest 0:\tShould track owners independently.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould track owners independently.", success)
			}
		}
	}
}
