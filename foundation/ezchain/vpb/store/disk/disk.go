// Package disk implements the ability to read and write VPB pairs in their
// own separate files on disk, with a journaled batch commit so a crash never
// leaves a partially applied batch behind.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ezchain/ezchain/foundation/ezchain/vpb"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb/store"
)

const (
	pairExtension = ".json"
	stageDir      = "stage"
	journalFile   = "commit.journal"
)

// Disk represents the storage implementation for reading and storing VPB
// pairs in their own separate files on disk. This implements the
// store.Storage interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use and rolls forward any batch commit
// that was interrupted by a crash.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	d := Disk{dbPath: dbPath}

	if err := d.recover(); err != nil {
		return nil, fmt.Errorf("recovering interrupted commit: %w", err)
	}

	return &d, nil
}

// Close in this implementation has nothing to do since a file is written to
// disk for each pair and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Write takes the specified pair and stores it on disk in a file labeled
// with the vpb id.
func (d *Disk) Write(pair vpb.VPBPair) error {
	return writePair(d.getPath(pair.VPBID), pair)
}

// WriteBatch stores every specified pair, applying all of them or none. The
// pairs are staged in a side directory behind a journal first and only then
// renamed into place, so an interrupted commit is completed on restart.
func (d *Disk) WriteBatch(pairs []vpb.VPBPair) error {
	if len(pairs) == 0 {
		return nil
	}

	stagePath := filepath.Join(d.dbPath, stageDir)
	if err := os.MkdirAll(stagePath, 0755); err != nil {
		return err
	}

	// Stage every pair before anything becomes visible.
	ids := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if err := writePair(filepath.Join(stagePath, pair.VPBID+pairExtension), pair); err != nil {
			return err
		}
		ids = append(ids, pair.VPBID)
	}

	// The journal is the commit point. Once it exists, the batch will be
	// applied even across a crash.
	journal, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(d.dbPath, journalFile), journal, 0600); err != nil {
		return err
	}

	return d.applyStaged(ids)
}

// GetVPB searches the data directory to locate and return the contents of
// the pair stored under the specified id.
func (d *Disk) GetVPB(vpbID string) (vpb.VPBPair, error) {
	f, err := os.OpenFile(d.getPath(vpbID), os.O_RDONLY, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return vpb.VPBPair{}, fmt.Errorf("vpb %s: %w", vpbID, store.ErrNotFound)
		}
		return vpb.VPBPair{}, err
	}
	defer f.Close()

	var pair vpb.VPBPair
	if err := json.NewDecoder(f).Decode(&pair); err != nil {
		return vpb.VPBPair{}, err
	}

	return pair, nil
}

// ForEach returns an iterator to walk through all the stored pairs.
func (d *Disk) ForEach() store.Iterator {
	ids, err := d.listIDs()
	return &diskIterator{disk: d, ids: ids, err: err}
}

// Reset clears out all the stored pairs on disk.
func (d *Disk) Reset() error {
	if err := os.RemoveAll(d.dbPath); err != nil {
		return err
	}

	return os.MkdirAll(d.dbPath, 0755)
}

// =============================================================================

// recover completes a batch commit that crashed between journal write and
// the final rename. Staged files named in the journal are renamed into
// place; without a journal any staged leftovers are discarded.
func (d *Disk) recover() error {
	journal, err := os.ReadFile(filepath.Join(d.dbPath, journalFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.RemoveAll(filepath.Join(d.dbPath, stageDir))
		}
		return err
	}

	var ids []string
	if err := json.Unmarshal(journal, &ids); err != nil {
		return err
	}

	return d.applyStaged(ids)
}

// applyStaged renames the staged files for the specified ids into place and
// removes the journal and staging directory.
func (d *Disk) applyStaged(ids []string) error {
	stagePath := filepath.Join(d.dbPath, stageDir)

	for _, id := range ids {
		staged := filepath.Join(stagePath, id+pairExtension)

		if _, err := os.Stat(staged); errors.Is(err, fs.ErrNotExist) {

			// Already renamed before the crash.
			continue
		}

		if err := os.Rename(staged, d.getPath(id)); err != nil {
			return err
		}
	}

	if err := os.Remove(filepath.Join(d.dbPath, journalFile)); err != nil {
		return err
	}

	return os.RemoveAll(stagePath)
}

// writePair marshals the specified pair and writes it to the specified path
// in a more human readable format.
func writePair(path string, pair vpb.VPBPair) error {
	data, err := json.MarshalIndent(pair, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}

	return nil
}

// listIDs returns the ids of every stored pair in a deterministic order.
func (d *Disk) listIDs() ([]string, error) {
	entries, err := os.ReadDir(d.dbPath)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), pairExtension) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), pairExtension))
	}
	sort.Strings(ids)

	return ids, nil
}

// getPath forms the path to the file for the specified vpb id.
func (d *Disk) getPath(vpbID string) string {
	return filepath.Join(d.dbPath, fmt.Sprintf("%s%s", vpbID, pairExtension))
}

// =============================================================================

// diskIterator represents the iteration implementation for walking through
// and reading pairs on disk. This implements the store.Iterator interface.
type diskIterator struct {
	disk    *Disk    // Access to the storage API.
	ids     []string // Snapshot of ids being iterated over.
	current int      // Position of the id being iterated over.
	eol     bool     // Represents the iterator is at the end of the list.
	err     error    // Listing error surfaced on the first call to Next.
}

// Next retrieves the next pair from disk.
func (di *diskIterator) Next() (vpb.VPBPair, error) {
	if di.err != nil {
		return vpb.VPBPair{}, di.err
	}

	if di.eol {
		return vpb.VPBPair{}, fmt.Errorf("end of list: %w", store.ErrNotFound)
	}

	if di.current >= len(di.ids) {
		di.eol = true
		return vpb.VPBPair{}, fmt.Errorf("end of list: %w", store.ErrNotFound)
	}

	pair, err := di.disk.GetVPB(di.ids[di.current])
	if errors.Is(err, store.ErrNotFound) {
		di.eol = true
	}
	di.current++

	return pair, err
}

// Done returns the end of list value.
func (di *diskIterator) Done() bool {
	return di.eol
}
