// Package guard implements the bloom-filter double-spend guard. The filter
// holds the nullifiers of spends seen in the current epoch window; a filter
// hit escalates to an exact check against the store so a false positive never
// causes an incorrect rejection.
package guard

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/greatroar/blobloom"
	"github.com/jellydator/ttlcache/v3"

	"github.com/ezchain/ezchain/foundation/ezchain/digest"
	"github.com/ezchain/ezchain/foundation/ezchain/value"
)

// Verdict represents the guard's decision for a nullifier.
type Verdict int

// Set of verdicts a call to CheckAndMark can produce.
const (
	Novel Verdict = iota
	DoubleSpend
)

// String implements the fmt.Stringer interface.
func (v Verdict) String() string {
	switch v {
	case Novel:
		return "novel"
	case DoubleSpend:
		return "double-spend"
	}

	return "unknown"
}

// ExactCheck is the callback the guard uses to escalate a filter hit to an
// exact answer from the store's history. It reports whether the nullifier
// was confirmed spent.
type ExactCheck func(nullifier string) (bool, error)

// =============================================================================

// Nullifier derives the deterministic identifier for "this value, spent by
// this transaction batch".
func Nullifier(val value.Value, batchDigest string) string {
	return digest.HashBytes(val.Bytes(), []byte(batchDigest))
}

// =============================================================================

// Config represents the tuning of the guard. Capacity and FPRate trade
// memory for exact-check frequency.
type Config struct {
	Capacity     uint64
	FPRate       float64
	ConfirmedTTL time.Duration
}

// Stats maintains counters describing the guard's behavior.
type Stats struct {
	Queries        uint64
	Positives      uint64
	FalsePositives uint64
}

// Guard maintains the probabilistic set of spent nullifiers for one epoch
// window. The zero value is not usable; construct with New.
type Guard struct {
	mu        sync.Mutex
	filter    *blobloom.Filter
	confirmed *ttlcache.Cache[string, struct{}]
	cfg       Config
	epoch     uint64
	stats     Stats
}

// New constructs a guard for use. The caller owns the rollover schedule; the
// guard itself never resets.
func New(cfg Config) (*Guard, error) {
	if cfg.Capacity == 0 {
		return nil, fmt.Errorf("capacity must be set")
	}
	if cfg.FPRate <= 0 || cfg.FPRate >= 1 {
		return nil, fmt.Errorf("false positive rate must be in (0,1), got %g", cfg.FPRate)
	}
	if cfg.ConfirmedTTL == 0 {
		cfg.ConfirmedTTL = time.Hour
	}

	confirmed := ttlcache.New(
		ttlcache.WithTTL[string, struct{}](cfg.ConfirmedTTL),
	)
	go confirmed.Start()

	g := Guard{
		filter: blobloom.NewOptimized(blobloom.Config{
			Capacity: cfg.Capacity,
			FPRate:   cfg.FPRate,
		}),
		confirmed: confirmed,
		cfg:       cfg,
	}

	return &g, nil
}

// Stop releases the guard's background resources.
func (g *Guard) Stop() {
	g.confirmed.Stop()
}

// CheckAndMark tests the specified nullifier against the filter. An absent
// nullifier is inserted and allowed in one atomic step, so the guard never
// produces a false negative. A present nullifier is escalated to the exact
// check; only a confirmed prior consumption is rejected.
func (g *Guard) CheckAndMark(nullifier string, exact ExactCheck) (Verdict, error) {
	key := xxhash.Sum64String(nullifier)

	g.mu.Lock()
	g.stats.Queries++

	if !g.filter.Has(key) {
		g.filter.Add(key)
		g.mu.Unlock()
		return Novel, nil
	}

	g.stats.Positives++
	g.mu.Unlock()

	// The filter flagged the nullifier. Consult the confirmed cache before
	// paying for a store scan.
	if item := g.confirmed.Get(nullifier); item != nil {
		return DoubleSpend, nil
	}

	spent, err := exact(nullifier)
	if err != nil {
		return DoubleSpend, fmt.Errorf("exact check for %s: %w", nullifier, err)
	}

	if spent {
		g.confirmed.Set(nullifier, struct{}{}, ttlcache.DefaultTTL)
		return DoubleSpend, nil
	}

	// A false positive. The nullifier stays marked and the spend is allowed.
	g.mu.Lock()
	g.stats.FalsePositives++
	g.mu.Unlock()

	return Novel, nil
}

// Rollover resets the filter for a new epoch window. This is a
// non-reversible configuration action driven by the consumer's schedule.
func (g *Guard) Rollover(epoch uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.filter = blobloom.NewOptimized(blobloom.Config{
		Capacity: g.cfg.Capacity,
		FPRate:   g.cfg.FPRate,
	})
	g.epoch = epoch
	g.confirmed.DeleteAll()
}

// Rebuild reseeds the filter from the specified confirmed nullifiers. It is
// used on startup to reconstruct the guard's state for the current epoch
// window from the store.
func (g *Guard) Rebuild(epoch uint64, nullifiers []string) {
	g.Rollover(epoch)

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, nullifier := range nullifiers {
		g.filter.Add(xxhash.Sum64String(nullifier))
		g.confirmed.Set(nullifier, struct{}{}, ttlcache.DefaultTTL)
	}
}

// Epoch returns the epoch window the guard is currently scoped to.
func (g *Guard) Epoch() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.epoch
}

// Stats returns a copy of the guard's counters.
func (g *Guard) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.stats
}
