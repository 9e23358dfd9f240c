// Package apportion allocates legislative seats by the method of equal
// proportions and measures how Laplace noise on the population inputs moves
// seats between regions.
//
// The method of equal proportions (Huntington–Hill) gives every region one
// seat, then hands out the remaining seats one at a time to the region with
// the highest priority value:
//
//	A = P / √(n(n+1))
//
// Where:
//   - P: region population
//   - n: seats the region holds so far
//
// Properties tested:
//   - Every region holds at least one seat
//   - Seats sum to the house size exactly
//   - Same input, same output (ties go to the earliest region in table order)
//   - Raising one population never costs that region a seat
package apportion

import (
	"fmt"
	"math"
)

// DefaultSeats is the size of the U.S. House of Representatives.
const DefaultSeats = 435

// Round describes one seat handed out by the engine.
type Round struct {
	Seat        int     // House seat number (regions+1 … totalSeats)
	Region      string  // Region that won the seat
	Priority    float64 // Winning priority value
	RegionSeats int     // Seats the region holds after this round
}

// Priority returns the equal-proportions priority of a region holding n seats.
func Priority(population int64, n int) float64 {
	fn := float64(n)
	return float64(population) / math.Sqrt(fn*(fn+1))
}

// Apportion distributes totalSeats among the regions of t.
func Apportion(t Table, totalSeats int) (Allocation, error) {
	return ApportionTrace(t, totalSeats, nil)
}

// ApportionTrace is Apportion with a per-round callback. trace may be nil.
//
// Each round scans every region: O(seats × regions). For house-sized inputs
// (tens of regions, hundreds of seats) a heap buys nothing.
func ApportionTrace(t Table, totalSeats int, trace func(Round)) (Allocation, error) {
	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: empty population table", ErrInvalidInput)
	}
	if totalSeats <= 0 {
		return nil, fmt.Errorf("%w: total seats must be positive, got %d", ErrInvalidInput, totalSeats)
	}
	if totalSeats < t.Len() {
		return nil, fmt.Errorf("%w: %d seats cannot give each of %d regions one seat",
			ErrInvalidInput, totalSeats, t.Len())
	}

	seats := make([]int, t.Len())
	for i := range seats {
		seats[i] = 1
	}

	for seatCount := t.Len(); seatCount < totalSeats; {
		// Start from the first region, not from zero, so negative
		// populations still produce a winner.
		best := 0
		bestPriority := Priority(t.regions[0].Population, seats[0])
		for i := 1; i < len(t.regions); i++ {
			p := Priority(t.regions[i].Population, seats[i])
			if p > bestPriority {
				best, bestPriority = i, p
			}
		}

		seats[best]++
		seatCount++

		if trace != nil {
			trace(Round{
				Seat:        seatCount,
				Region:      t.regions[best].Name,
				Priority:    bestPriority,
				RegionSeats: seats[best],
			})
		}
	}

	alloc := make(Allocation, t.Len())
	for i, r := range t.regions {
		alloc[r.Name] = seats[i]
	}
	return alloc, nil
}
