package fspt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGiniCriterionRefusesSingletonLeaf mirrors spec.md §8 scenario 1: a
// single point with min_samples=2 must refuse on MIN_SAMPLES.
func TestGiniCriterionRefusesSingletonLeaf(t *testing.T) {
	tree, err := New(2, Box{0, 1, 0, 1}, nil, GiniCriterion{}, DensityScore{})
	assert.NoError(t, err)

	cfg := DefaultFitConfig()
	cfg.MinSamples = 2
	cfg.Rand = rand.New(rand.NewSource(2222222))

	x := []float32{0.5, 0.5}
	assert.NoError(t, tree.Fit(x, 1, cfg))

	stats := tree.Stats()
	assert.Equal(t, 1, stats.NNodes)
	assert.Equal(t, 1, stats.Counters.MinSamples)
	assert.Equal(t, CauseMinSamples, tree.Node(0).Cause())
}

// TestGiniCriterionSplitsSeparableData checks that two well-separated
// clusters produce at least one split.
func TestGiniCriterionSplitsSeparableData(t *testing.T) {
	tree, err := New(1, Box{0, 10}, nil, GiniCriterion{}, DensityScore{})
	assert.NoError(t, err)

	var x []float32
	for i := 0; i < 100; i++ {
		x = append(x, float32(i)*0.01)
	}
	for i := 0; i < 100; i++ {
		x = append(x, 9+float32(i)*0.01)
	}

	cfg := DefaultFitConfig()
	cfg.MinSamples = 1
	cfg.MaxDepth = 10
	cfg.Rand = rand.New(rand.NewSource(2222222))

	assert.NoError(t, tree.Fit(x, len(x), cfg))
	stats := tree.Stats()
	assert.Greater(t, stats.NNodes, 1)
	assert.GreaterOrEqual(t, stats.LeafDepths.Max, stats.LeafDepths.Min)
	assert.GreaterOrEqual(t, stats.SplitValues.Max, stats.SplitValues.Min)
}

func TestComputeSpreadOrderStatistics(t *testing.T) {
	s := computeSpread([]float64{1, 2, 3, 4})
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 2.5, s.Mean)
	assert.InDelta(t, 2.5, s.Median, 1e-9)

	assert.Equal(t, Spread{}, computeSpread(nil))
}

func TestRespectMinLengthP(t *testing.T) {
	root := Box{0, 10, 0, 10}
	node := Box{0, 1, 0, 10}
	assert.False(t, respectMinLengthP(2, root, node, 0.5))
	assert.True(t, respectMinLengthP(2, root, node, 0.05))
	assert.True(t, respectMinLengthP(2, root, node, 0))
}

func TestMiddleOfLongestFeature(t *testing.T) {
	root := Box{0, 10, 0, 10}
	node := Box{0, 8, 2, 4}
	feature, split := middleOfLongestFeature(2, root, node)
	assert.Equal(t, 0, feature)
	assert.InDelta(t, 4, split, 1e-6)
}
