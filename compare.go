package apportion

import (
	"fmt"
	"maps"
)

// L1Error returns the number of seat moves separating two allocations:
//
//	Σ |a[k] - b[k]|
//
// Equal allocations short-circuit to 0 before any key check. Otherwise both
// must cover the same regions, or ErrKeyMismatch is returned.
func L1Error(a, b Allocation) (int, error) {
	if maps.Equal(a, b) {
		return 0, nil
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d regions vs %d", ErrKeyMismatch, len(a), len(b))
	}

	total := 0
	for _, k := range a.Names() {
		bv, ok := b[k]
		if !ok {
			return 0, fmt.Errorf("%w: region %q missing from second allocation", ErrKeyMismatch, k)
		}
		d := a[k] - bv
		if d < 0 {
			d = -d
		}
		total += d
	}
	return total, nil
}
