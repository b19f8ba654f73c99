// Package sizeof provides the deterministic mapping from a sample value to
// a per-slot byte budget, used by the host-facing channel constructor to
// pick a slotSize without the caller having to reason about JSON framing
// overhead directly.
package sizeof

import (
	"encoding/json"
	"fmt"
)

const (
	// MinSlotSize is the smallest slot size Estimate ever returns.
	MinSlotSize = 32

	// MaxSlotSize is the largest slot size Estimate ever returns.
	MaxSlotSize = 1 << 20

	// headroomNumerator/headroomDenominator is the 25% headroom applied
	// on top of a sample's encoded size, to absorb values whose encoded
	// form varies slightly in length from one send to the next (e.g.
	// strings, slices that grow).
	headroomNumerator   = 5
	headroomDenominator = 4

	lengthPrefixSize = 4
	alignment        = 8
)

// Estimate encodes sample the way a Channel will and returns a slot size
// budget: the encoded length, plus a 25% headroom, plus the 4-byte length
// prefix, rounded up to an 8-byte boundary and clamped to
// [MinSlotSize, MaxSlotSize].
func Estimate(sample any) (int, error) {
	encoded, err := json.Marshal(sample)
	if err != nil {
		return 0, fmt.Errorf("sizeof: encode sample: %w", err)
	}

	withHeadroom := len(encoded) * headroomNumerator / headroomDenominator
	size := withHeadroom + lengthPrefixSize
	size = roundUp(size, alignment)

	if size < MinSlotSize {
		size = MinSlotSize
	}
	if size > MaxSlotSize {
		size = MaxSlotSize
	}
	return size, nil
}

func roundUp(n, multiple int) int {
	if n <= 0 {
		return multiple
	}
	if rem := n % multiple; rem != 0 {
		n += multiple - rem
	}
	return n
}
