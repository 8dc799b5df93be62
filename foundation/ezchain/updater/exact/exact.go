// Package exact answers double-spend questions from the store's history. It
// backs the guard's escalation path when the bloom filter flags a nullifier,
// and produces the confirmed nullifiers the guard is rebuilt from on startup.
package exact

import (
	"github.com/ezchain/ezchain/foundation/ezchain/guard"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb/store"
)

// Check returns the exact-check function for the specified storage. A
// nullifier is confirmed spent when a tombstoned pair carries it, or when a
// pair's value together with one of its chain's batch digests reproduces it:
// that pair's range was moved by that batch.
func Check(strg store.Storage) guard.ExactCheck {
	return func(nullifier string) (bool, error) {
		pairs, err := store.LoadAll(strg)
		if err != nil {
			return false, err
		}

		return Confirmed(pairs, nullifier), nil
	}
}

// Confirmed reports whether the specified nullifier is recorded in the
// specified pairs.
func Confirmed(pairs []vpb.VPBPair, nullifier string) bool {
	for _, pair := range pairs {
		if pair.Spent && pair.Nullifier == nullifier {
			return true
		}

		for _, u := range pair.Proofs.Units {
			if guard.Nullifier(pair.Value, u.BatchDigest) == nullifier {
				return true
			}
		}
	}

	return false
}

// Nullifiers returns every confirmed nullifier recoverable from the
// specified pairs. The guard replays them after a crash to reconstruct its
// filter for the current epoch window.
func Nullifiers(pairs []vpb.VPBPair) []string {
	seen := make(map[string]struct{})
	var nullifiers []string

	record := func(n string) {
		if _, exists := seen[n]; !exists {
			seen[n] = struct{}{}
			nullifiers = append(nullifiers, n)
		}
	}

	for _, pair := range pairs {
		if pair.Spent && pair.Nullifier != "" {
			record(pair.Nullifier)
		}

		for _, u := range pair.Proofs.Units {
			record(guard.Nullifier(pair.Value, u.BatchDigest))
		}
	}

	return nullifiers
}
