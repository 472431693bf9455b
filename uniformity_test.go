package fspt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniformityPValueEdgeCases(t *testing.T) {
	box := Box{0, 1, 0, 1}
	assert.Equal(t, 1.0, UniformityPValue(2, 0, nil, box))
	assert.Equal(t, 0.0, UniformityPValue(2, 1, []float32{0.5, 0.5}, box))
}

// TestUniformityPValueUnderH0 checks spec.md §8's calibration law: under a
// true uniform null, the p-value should reject at roughly the nominal rate
// over many trials. The full 10,000-trial/3-alpha check from spec.md §8 is
// expensive; this is a smaller-scale sanity version of the same law.
func TestUniformityPValueUnderH0(t *testing.T) {
	box := Box{0, 1, 0, 1, 0, 1}
	rng := rand.New(rand.NewSource(2222222))
	const trials = 500
	const n = 200
	alpha := 0.05
	rejected := 0
	for trial := 0; trial < trials; trial++ {
		pts := make([]float32, n*3)
		for i := range pts {
			pts[i] = rng.Float32()
		}
		p := UniformityPValue(3, n, pts, box)
		if p <= alpha {
			rejected++
		}
	}
	frac := float64(rejected) / trials
	assert.InDelta(t, alpha, frac, 0.06)
}

func TestDistToBoundary(t *testing.T) {
	box := Box{0, 1, 0, 1}
	center := []float32{0.5, 0.5}
	assert.InDelta(t, 0.5, distToBoundary(2, center, box), 1e-6)

	corner := []float32{0.1, 0.1}
	assert.InDelta(t, 0.1, distToBoundary(2, corner, box), 1e-6)
}

func TestMinMaxHalfLength(t *testing.T) {
	box := Box{0, 2, 0, 4}
	assert.InDelta(t, 1, minHalfLength(2, box), 1e-6)
	assert.InDelta(t, 2, maxHalfLength(2, box), 1e-6)
}
