package transaction_test

import (
	"testing"

	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
	"github.com/ezchain/ezchain/foundation/ezchain/value"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_AccountID(t *testing.T) {
	type table struct {
		name  string
		hex   string
		valid bool
	}

	tt := []table{
		{name: "prefixed", hex: "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32", valid: true},
		{name: "bare", hex: "F01813E4B85e178A83e29B8E7bF26BD830a25f32", valid: true},
		{name: "short", hex: "0xF01813E4B85e178A83e29B8E7bF26BD830a25f", valid: false},
		{name: "long", hex: "0xF01813E4B85e178A83e29B8E7bF26BD830a25f3211", valid: false},
		{name: "nonhex", hex: "0xZZ1813E4B85e178A83e29B8E7bF26BD830a25f32", valid: false},
		{name: "empty", hex: "", valid: false},
	}

	t.Log("Given the need to validate account formats.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen checking account %q.", testID, tst.hex)
			{
				f := func(t *testing.T) {
					_, err := transaction.ToAccountID(tst.hex)

					if tst.valid && err != nil {
						t.Errorf("\t%s\tTest %d:\tShould accept the account: %v", failed, testID, err)
					} else if !tst.valid && err == nil {
						t.Errorf("\t%s\tTest %d:\tShould reject the account.", failed, testID)
					} else {
						t.Logf("\t%s\tTest %d:\tShould get valid=%v.", success, testID, tst.valid)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_Batch(t *testing.T) {
	acctKate := transaction.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	acctAaron := transaction.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	acctFrank := transaction.AccountID("0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76")

	t.Log("Given the need to slice a confirmed batch by account.")
	{
		t.Logf("\tTest 0:\tWhen a batch mixes spends, receives and issuance.")
		{
			transfers := []transaction.Transfer{
				{FromID: acctKate, ToID: acctAaron, Value: value.Value{BeginIndex: 0, ValueNum: 10}},
				{FromID: acctKate, ToID: acctFrank, Value: value.Value{BeginIndex: 10, ValueNum: 5}},
				{FromID: acctAaron, ToID: acctKate, Value: value.Value{BeginIndex: 100, ValueNum: 1}},
				{FromID: "", ToID: acctFrank, Value: value.Value{BeginIndex: 200, ValueNum: 50}},
			}

			batch, err := transaction.NewBatch(transfers)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the batch: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to construct the batch.", success)

			if batch.Digest == "" {
				t.Fatalf("\t%s\tTest 0:\tShould stamp the batch with a digest.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould stamp the batch with a digest.", success)

			if !batch.References(acctKate) {
				t.Errorf("\t%s\tTest 0:\tShould reference an account that spends in the batch.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould reference an account that spends in the batch.", success)
			}

			if batch.References(acctFrank) {
				t.Errorf("\t%s\tTest 0:\tShould not reference an account that only receives.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould not reference an account that only receives.", success)
			}

			from := batch.TransfersFrom(acctKate)
			if len(from) != 2 {
				t.Errorf("\t%s\tTest 0:\tShould find 2 spends for the account, got %d.", failed, len(from))
			} else {
				t.Logf("\t%s\tTest 0:\tShould find 2 spends for the account.", success)
			}
			if len(from) == 2 && !from[0].Equals(transfers[0]) {
				t.Errorf("\t%s\tTest 0:\tShould keep spends in batch order.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould keep spends in batch order.", success)
			}

			to := batch.TransfersTo(acctFrank)
			if len(to) != 2 {
				t.Errorf("\t%s\tTest 0:\tShould find 2 receives for the account, got %d.", failed, len(to))
			} else {
				t.Logf("\t%s\tTest 0:\tShould find 2 receives for the account.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen constructing an empty batch.")
		{
			if _, err := transaction.NewBatch(nil); err == nil {
				t.Errorf("\t%s\tTest 1:\tShould reject a batch with no transfers.", failed)
			} else {
				t.Logf("\t%s\tTest 1:\tShould reject a batch with no transfers.", success)
			}
		}

		t.Logf("\tTest 2:\tWhen comparing batch digests.")
		{
			transfers := []transaction.Transfer{
				{FromID: acctKate, ToID: acctAaron, Value: value.Value{BeginIndex: 0, ValueNum: 10}},
			}

			a, err := transaction.NewBatch(transfers)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to construct the batch: %v", failed, err)
			}
			b, err := transaction.NewBatch(transfers)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to construct the batch: %v", failed, err)
			}

			if !a.Equals(b) {
				t.Errorf("\t%s\tTest 2:\tShould derive the same digest for the same transfers.", failed)
			} else {
				t.Logf("\t%s\tTest 2:\tShould derive the same digest for the same transfers.", success)
			}

			transfers[0].Value.ValueNum = 11
			c, err := transaction.NewBatch(transfers)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to construct the batch: %v", failed, err)
			}

			if a.Equals(c) {
				t.Errorf("\t%s\tTest 2:\tShould derive a different digest when a transfer changes.", failed)
			} else {
				t.Logf("\t%s\tTest 2:\tShould derive a different digest when a transfer changes.", success)
			}
		}
	}
}

func Test_NewTransfer(t *testing.T) {
	acctKate := transaction.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

	t.Log("Given the need to validate transfer construction.")
	{
		t.Logf("\tTest 0:\tWhen constructing issuance and malformed transfers.")
		{
			val := value.Value{BeginIndex: 0, ValueNum: 10}

			if _, err := transaction.NewTransfer("", acctKate, val); err != nil {
				t.Errorf("\t%s\tTest 0:\tShould accept an empty from account as issuance: %v", failed, err)
			} else {
				t.Logf("\t%s\tTest 0:\tShould accept an empty from account as issuance.", success)
			}

			if _, err := transaction.NewTransfer("bogus", acctKate, val); err == nil {
				t.Errorf("\t%s\tTest 0:\tShould reject a malformed from account.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould reject a malformed from account.", success)
			}

			if _, err := transaction.NewTransfer(acctKate, "", val); err == nil {
				t.Errorf("\t%s\tTest 0:\tShould reject an empty to account.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould reject an empty to account.", success)
			}
		}
	}
}
