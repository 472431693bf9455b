package fspt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSortByColumn verifies spec.md §8's qsort_by_column invariant: rows are
// sorted ascending by the given column while row integrity (the full
// feature vector) is preserved.
func TestSortByColumn(t *testing.T) {
	// 9x2 matrix matching the shape of the source's uni-test fixtures.
	x := []float32{
		8, 1,
		3, 2,
		5, 3,
		1, 4,
		9, 5,
		2, 6,
		7, 7,
		4, 8,
		6, 9,
	}
	sortByColumn(x, 9, 2, 0)
	for i := 0; i < 9; i++ {
		assert.EqualValues(t, i+1, x[i*2])
	}
	// Row integrity: column 1 (originally the row's rank) must travel with
	// its column-0 value, e.g. the row holding 1 keeps rank 4.
	wantCol1 := []float32{4, 6, 2, 8, 3, 9, 7, 1, 5}
	for i := 0; i < 9; i++ {
		assert.EqualValues(t, wantCol1[i], x[i*2+1])
	}
}

func TestSortByColumnSecondFeature(t *testing.T) {
	x := []float32{
		8, 1,
		3, 2,
		5, 3,
		1, 4,
		9, 5,
		2, 6,
		7, 7,
		4, 8,
		6, 9,
	}
	sortByColumn(x, 9, 2, 1)
	for i := 0; i < 9; i++ {
		assert.EqualValues(t, i+1, x[i*2+1])
	}
}

func TestQuantiles(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.InDelta(t, 5, median(sorted), 1e-9)
	assert.InDelta(t, 3, firstQuartile(sorted), 1e-9)
	assert.InDelta(t, 7, thirdQuartile(sorted), 1e-9)
}

func TestBinomialMatchesPascalTriangle(t *testing.T) {
	assert.Equal(t, 1.0, binomial(5, 0))
	assert.Equal(t, 5.0, binomial(5, 1))
	assert.Equal(t, 10.0, binomial(5, 2))
	assert.Equal(t, 252.0, binomial(10, 5))
	assert.Equal(t, 0.0, binomial(5, 6))
	assert.Equal(t, 0.0, binomial(5, -1))
}

func TestSolvePolynomial(t *testing.T) {
	// x^2 - 3x + 2 = 0 -> roots 1, 2
	p := polynomial{a: 1, b: -3, c: 2}
	solvePolynomial(&p)
	assert.InDelta(t, 1, p.x1, 1e-9)
	assert.InDelta(t, 2, p.x2, 1e-9)

	// x^2 + 1 = 0 -> no real roots
	p2 := polynomial{a: 1, b: 0, c: 1}
	solvePolynomial(&p2)
	assert.Less(t, p2.delta, 0.0)
}

func TestRandomIndexOrderIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	order := randomIndexOrder(rng, 20)
	seen := make(map[int]bool, 20)
	for _, v := range order {
		assert.False(t, seen[v], "index %d repeated", v)
		seen[v] = true
	}
	assert.Len(t, order, 20)
}

func TestClampFloat64(t *testing.T) {
	assert.Equal(t, 0.0, clampFloat64(-1, 0, 1))
	assert.Equal(t, 1.0, clampFloat64(2, 0, 1))
	assert.Equal(t, 0.5, clampFloat64(0.5, 0, 1))
}
