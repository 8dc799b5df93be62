// Package store defines the behavior required of any persistence engine that
// durably maps vpb ids to VPB pairs. The concrete engine is pluggable; the
// core depends only on this contract.
package store

import (
	"errors"

	"github.com/ezchain/ezchain/foundation/ezchain/vpb"
)

// ErrNotFound is returned when the specified vpb id has no entry.
var ErrNotFound = errors.New("vpb does not exist")

// Storage interface represents the behavior required to be implemented by
// any package providing support for storing and reading VPB pairs. Write
// and WriteBatch are upserts by vpb id. WriteBatch must apply every pair or
// none; the updater's crash consistency depends on it.
type Storage interface {
	Write(pair vpb.VPBPair) error
	WriteBatch(pairs []vpb.VPBPair) error
	GetVPB(vpbID string) (vpb.VPBPair, error)
	ForEach() Iterator
	Reset() error
	Close() error
}

// Iterator interface represents the behavior required to be implemented by
// any package providing support to iterate over the stored pairs.
type Iterator interface {
	Next() (vpb.VPBPair, error)
	Done() bool
}

// LoadAll walks the specified storage and returns every stored pair. It is
// used for reconciliation and status queries, not for hot-path decisions.
func LoadAll(strg Storage) ([]vpb.VPBPair, error) {
	var pairs []vpb.VPBPair

	iter := strg.ForEach()
	for pair, err := iter.Next(); !iter.Done(); pair, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}

	return pairs, nil
}
