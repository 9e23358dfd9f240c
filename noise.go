package apportion

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoisyPopulation returns a copy of base with Laplace(0, 1/epsilon) noise
// added to every region, rounded half to even.
//
// One independent draw per region, taken from src in table order, so the
// same seed always yields the same table. Negative results are kept: the
// engine apportions them like any other value. A draw that leaves the int64
// range (scales near 1e18 and beyond) fails with ErrInvalidInput.
func NoisyPopulation(base Table, epsilon float64, src rand.Source) (Table, error) {
	return noisyPopulation(base, epsilon, src, false)
}

// ClampedNoisyPopulation is NoisyPopulation with negative counts raised to zero.
func ClampedNoisyPopulation(base Table, epsilon float64, src rand.Source) (Table, error) {
	return noisyPopulation(base, epsilon, src, true)
}

func noisyPopulation(base Table, epsilon float64, src rand.Source, clamp bool) (Table, error) {
	if err := checkEpsilon(epsilon); err != nil {
		return Table{}, err
	}
	if base.Len() == 0 {
		return Table{}, fmt.Errorf("%w: empty population table", ErrInvalidInput)
	}

	lap := distuv.Laplace{Mu: 0, Scale: 1 / epsilon, Src: src}

	regions := base.Regions()
	for i := range regions {
		noisy := math.RoundToEven(float64(regions[i].Population) + lap.Rand())
		if clamp && noisy < 0 {
			noisy = 0
		}
		if noisy < minPopulation || noisy >= maxPopulation {
			return Table{}, fmt.Errorf("%w: noisy population of %s (%g) overflows int64 at ε=%g",
				ErrInvalidInput, regions[i].Name, noisy, epsilon)
		}
		regions[i].Population = int64(noisy)
	}
	return NewTable(regions)
}

// Bounds of a float64 that converts to int64 without overflow: -2⁶³ is
// exact, 2⁶³ is not representable as int64.
const (
	minPopulation = -(1 << 63)
	maxPopulation = 1 << 63
)

func checkEpsilon(epsilon float64) error {
	if math.IsNaN(epsilon) || math.IsInf(epsilon, 0) || epsilon <= 0 {
		return ErrInvalidEpsilon
	}
	return nil
}

// NoiseScale returns the Laplace scale b = 1/epsilon. The noise has
// standard deviation √2·b.
func NoiseScale(epsilon float64) float64 {
	return 1 / epsilon
}
