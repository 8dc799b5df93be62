// Package value implements the contiguous range of indivisible value units
// that a VPB pair makes spendable.
package value

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrInvalidSplit is returned when a requested partition of a value does not
// sum exactly to the value being split or contains an empty part.
var ErrInvalidSplit = errors.New("invalid split")

// =============================================================================

// Value represents an immutable contiguous range of indivisible value units.
// The range starts at BeginIndex and covers ValueNum units. A Value is never
// edited in place; splitting produces new values.
type Value struct {
	BeginIndex uint64
	ValueNum   uint64
}

// New constructs a value and validates it covers at least one unit and that
// the range fits inside the index space without wrapping.
func New(beginIndex uint64, valueNum uint64) (Value, error) {
	if valueNum < 1 {
		return Value{}, fmt.Errorf("value must cover at least one unit, got %d", valueNum)
	}
	if valueNum-1 > math.MaxUint64-beginIndex {
		return Value{}, fmt.Errorf("range starting at %d with %d units exceeds the index space", beginIndex, valueNum)
	}

	return Value{BeginIndex: beginIndex, ValueNum: valueNum}, nil
}

// EndIndex returns the index of the last unit covered by the value. It is
// computed so it can never drift from the begin index and count.
func (v Value) EndIndex() uint64 {
	return v.BeginIndex + v.ValueNum - 1
}

// Equals reports whether two values cover the identical range.
func (v Value) Equals(other Value) bool {
	return v.BeginIndex == other.BeginIndex && v.ValueNum == other.ValueNum
}

// Overlaps reports whether the ranges of two values intersect.
func (v Value) Overlaps(other Value) bool {
	return v.BeginIndex <= other.EndIndex() && other.BeginIndex <= v.EndIndex()
}

// Bytes returns a fixed-width binary encoding of the value identity for use
// in hashing.
func (v Value) Bytes() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], v.BeginIndex)
	binary.BigEndian.PutUint64(b[8:], v.ValueNum)
	return b
}

// Split partitions the value into len(parts) new values whose unit counts are
// given by parts. The new values are contiguous, preserve the original
// ordering, and their counts sum to the original count. ErrInvalidSplit is
// returned when the partition does not sum exactly or a part is empty.
func (v Value) Split(parts []uint64) ([]Value, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("no parts specified: %w", ErrInvalidSplit)
	}

	// The running sum is bounded by the value's own count at every step so
	// a partition can never balance by wrapping the sum around.
	var total uint64
	for _, part := range parts {
		if part < 1 {
			return nil, fmt.Errorf("part must cover at least one unit: %w", ErrInvalidSplit)
		}
		if part > v.ValueNum-total {
			return nil, fmt.Errorf("parts sum beyond the %d units covered: %w", v.ValueNum, ErrInvalidSplit)
		}
		total += part
	}
	if total != v.ValueNum {
		return nil, fmt.Errorf("parts sum to %d, value covers %d: %w", total, v.ValueNum, ErrInvalidSplit)
	}

	values := make([]Value, 0, len(parts))
	begin := v.BeginIndex
	for _, part := range parts {
		values = append(values, Value{BeginIndex: begin, ValueNum: part})
		begin += part
	}

	return values, nil
}

// =============================================================================

// valueJSON renders the begin index as a hex string at the boundary while the
// unit count stays a plain integer.
type valueJSON struct {
	BeginIndex string `json:"begin_index"`
	ValueNum   uint64 `json:"value_num"`
	EndIndex   string `json:"end_index"`
}

// MarshalJSON implements the json.Marshaler interface.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON{
		BeginIndex: hexutil.EncodeUint64(v.BeginIndex),
		ValueNum:   v.ValueNum,
		EndIndex:   hexutil.EncodeUint64(v.EndIndex()),
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (v *Value) UnmarshalJSON(data []byte) error {
	var vj valueJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return err
	}

	begin, err := hexutil.DecodeUint64(vj.BeginIndex)
	if err != nil {
		return fmt.Errorf("decoding begin index: %w", err)
	}

	nv, err := New(begin, vj.ValueNum)
	if err != nil {
		return err
	}

	*v = nv
	return nil
}
