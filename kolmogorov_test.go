package fspt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestKolmogorovPValueEdgeCases covers spec.md §8's algebraic laws:
// kolmogorov(n,0) = 0 and kolmogorov(n,1) = 1 for any n >= 1.
func TestKolmogorovPValueEdgeCases(t *testing.T) {
	for _, n := range []int{1, 10, 100, 1000} {
		assert.Equal(t, 0.0, KolmogorovPValue(n, 0), "n=%d", n)
		assert.Equal(t, 1.0, KolmogorovPValue(n, 1), "n=%d", n)
	}
}

// TestKolmogorovPValueReference checks the two fixed reference values of
// spec.md §8 scenario 5.
func TestKolmogorovPValueReference(t *testing.T) {
	assert.InDelta(t, 0.9375, KolmogorovPValue(10, 0.4), 1e-3)
	assert.InDelta(t, 0.9993, KolmogorovPValue(100, 0.2), 1e-5)
}

// TestKolmogorovPValueMonotone checks monotone non-decrease in D for a
// fixed n, per spec.md §8's algorithmic laws.
func TestKolmogorovPValueMonotone(t *testing.T) {
	n := 50
	prev := 0.0
	for d := 0.05; d < 1.0; d += 0.05 {
		cur := KolmogorovPValue(n, d)
		assert.GreaterOrEqual(t, cur, prev, "d=%f", d)
		prev = cur
	}
}

// TestKolmogorovPValueAsymptoticBranch exercises the large-s asymptotic
// path (s = n*d^2 > 7.24) directly.
func TestKolmogorovPValueAsymptoticBranch(t *testing.T) {
	p := KolmogorovPValue(1000, 0.2)
	assert.Greater(t, p, 0.99)
}
