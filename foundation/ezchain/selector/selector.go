// Package selector provides different coin-selection algorithms for picking
// which VPB pairs fund a spend. The policy is pluggable; confirmation never
// depends on which strategy produced a spend.
package selector

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ezchain/ezchain/foundation/ezchain/vpb"
)

// List of different select strategies.
const (
	StrategyIndex   = "index"
	StrategyLargest = "largest"
)

// ErrInsufficientValue is returned when the owned pairs cannot cover the
// requested amount.
var ErrInsufficientValue = errors.New("insufficient value")

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyIndex:   indexSelect,
	StrategyLargest: largestSelect,
}

// Func defines a function that takes the live pairs owned by an account and
// selects enough of them, in an order based on the function's strategy, to
// cover the specified amount of value units. The last selected pair may
// cover more than the remaining amount; the caller splits it.
type Func func(owned []vpb.VPBPair, amount uint64) ([]vpb.VPBPair, error)

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// byBeginIndex provides sorting support by the value's begin index.
type byBeginIndex []vpb.VPBPair

// Len returns the number of pairs in the list.
func (bb byBeginIndex) Len() int {
	return len(bb)
}

// Less helps to sort the list by begin index in ascending order to spend the
// oldest ranges first.
func (bb byBeginIndex) Less(i, j int) bool {
	return bb[i].Value.BeginIndex < bb[j].Value.BeginIndex
}

// Swap moves pairs in the order of the begin index.
func (bb byBeginIndex) Swap(i, j int) {
	bb[i], bb[j] = bb[j], bb[i]
}

// =============================================================================

// byValueNum provides sorting support by the value's unit count.
type byValueNum []vpb.VPBPair

// Len returns the number of pairs in the list.
func (bv byValueNum) Len() int {
	return len(bv)
}

// Less helps to sort the list by unit count in descending order to cover an
// amount with the fewest splits.
func (bv byValueNum) Less(i, j int) bool {
	return bv[i].Value.ValueNum > bv[j].Value.ValueNum
}

// Swap moves pairs in the order of the unit count.
func (bv byValueNum) Swap(i, j int) {
	bv[i], bv[j] = bv[j], bv[i]
}

// =============================================================================

// indexSelect covers the amount with the lowest begin indexes first.
var indexSelect = func(owned []vpb.VPBPair, amount uint64) ([]vpb.VPBPair, error) {
	pairs := make([]vpb.VPBPair, len(owned))
	copy(pairs, owned)
	sort.Sort(byBeginIndex(pairs))

	return take(pairs, amount)
}

// largestSelect covers the amount with the largest pairs first so the spend
// needs the fewest splits.
var largestSelect = func(owned []vpb.VPBPair, amount uint64) ([]vpb.VPBPair, error) {
	pairs := make([]vpb.VPBPair, len(owned))
	copy(pairs, owned)
	sort.Sort(byValueNum(pairs))

	return take(pairs, amount)
}

// take walks the sorted pairs and keeps selecting until the amount
// is covered.
func take(pairs []vpb.VPBPair, amount uint64) ([]vpb.VPBPair, error) {
	if amount == 0 {
		return nil, errors.New("amount must be at least one unit")
	}

	var selected []vpb.VPBPair
	var total uint64

	for _, pair := range pairs {
		if pair.Spent {
			continue
		}

		selected = append(selected, pair)
		total += pair.Value.ValueNum
		if total >= amount {
			return selected, nil
		}
	}

	return nil, fmt.Errorf("need %d units, own %d: %w", amount, total, ErrInsufficientValue)
}
