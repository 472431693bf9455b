package fspt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(0, Box{}, nil, nil, nil)
	assert.Error(t, err)

	_, err = New(2, Box{0, 1}, nil, nil, nil)
	assert.Error(t, err)

	_, err = New(2, Box{0, 1, 0, 1}, []float32{1}, nil, nil)
	assert.Error(t, err)

	tree, err := New(2, Box{0, 1, 0, 1}, nil, nil, nil)
	assert.NoError(t, err)
	assert.NotEqual(t, tree.ID().String(), "")
}

func TestFitRejectsDimensionMismatch(t *testing.T) {
	tree, err := New(2, Box{0, 1, 0, 1}, nil, nil, nil)
	assert.NoError(t, err)
	err = tree.Fit([]float32{1, 2, 3}, 1, DefaultFitConfig())
	assert.Error(t, err)
}

func TestFitTwiceRejected(t *testing.T) {
	tree, err := New(1, Box{0, 1}, nil, nil, nil)
	assert.NoError(t, err)
	cfg := DefaultFitConfig()
	cfg.Rand = rand.New(rand.NewSource(1))
	assert.NoError(t, tree.Fit([]float32{0.5}, 1, cfg))
	assert.Error(t, tree.Fit([]float32{0.5}, 1, cfg))
}

func TestDecisionOutsideBox(t *testing.T) {
	tree, err := New(1, Box{0, 1}, nil, nil, nil)
	assert.NoError(t, err)
	cfg := DefaultFitConfig()
	cfg.Rand = rand.New(rand.NewSource(1))
	assert.NoError(t, tree.Fit([]float32{0.5}, 1, cfg))

	assert.Equal(t, int32(-1), tree.Decision([]float32{5}))
	assert.Equal(t, int32(-1), tree.Decision([]float32{-5}))
}

func TestPredictOutsideIsZero(t *testing.T) {
	tree, err := New(1, Box{0, 1}, nil, nil, nil)
	assert.NoError(t, err)
	cfg := DefaultFitConfig()
	cfg.MinSamples = 2
	cfg.Rand = rand.New(rand.NewSource(1))
	assert.NoError(t, tree.Fit([]float32{0.5}, 1, cfg))
	tree.AssignScores(DefaultScoreConfig())

	out, err := tree.Predict([]float32{5}, 1)
	assert.NoError(t, err)
	assert.Equal(t, float32(0), out[0])
}

// TestPredictIsDeterministic checks spec.md §8's "predict(X) = predict(X)"
// invariant for multi_threads=false.
func TestPredictIsDeterministic(t *testing.T) {
	tree, err := New(1, Box{0, 10}, nil, GiniCriterion{}, DensityScore{})
	assert.NoError(t, err)

	var x []float32
	for i := 0; i < 100; i++ {
		x = append(x, float32(i)*0.05)
	}
	for i := 0; i < 100; i++ {
		x = append(x, 7+float32(i)*0.03)
	}

	cfg := DefaultFitConfig()
	cfg.MinSamples = 1
	cfg.MaxDepth = 6
	cfg.Rand = rand.New(rand.NewSource(2222222))
	assert.NoError(t, tree.Fit(x, len(x), cfg))
	tree.AssignScores(DefaultScoreConfig())

	queries := []float32{1, 2, 8, 9, 5}
	out1, err := tree.Predict(queries, 5)
	assert.NoError(t, err)
	out2, err := tree.Predict(queries, 5)
	assert.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestMergeLeavesCollapsesEqualScoreSiblings(t *testing.T) {
	tree, err := New(1, Box{0, 2}, nil, GiniCriterion{}, DensityScore{})
	assert.NoError(t, err)
	tree.nodes = []Node{
		{kind: KindInner, left: 1, right: 2, parent: -1, rowStart: 0, rowEnd: 2, nSamples: 2, volume: 2},
		{kind: KindLeaf, parent: 0, cause: CauseMinSamples, score: 0.5, nSamples: 1, volume: 1},
		{kind: KindLeaf, parent: 0, cause: CauseMinSamples, score: 0.5, nSamples: 1, volume: 1},
	}
	tree.MergeLeaves()
	assert.Equal(t, KindLeaf, tree.nodes[0].kind)
	assert.Equal(t, 2, tree.nodes[0].nSamples)
	assert.InDelta(t, 2, tree.nodes[0].volume, 1e-9)
}

func TestNodeBoxReconstruction(t *testing.T) {
	tree, err := New(1, Box{0, 10}, nil, nil, nil)
	assert.NoError(t, err)
	tree.nodes = []Node{
		{kind: KindInner, left: 1, right: 2, parent: -1, splitFeature: 0, splitValue: 4},
		{kind: KindLeaf, parent: 0},
		{kind: KindLeaf, parent: 0},
	}
	left := tree.NodeBox(1)
	right := tree.NodeBox(2)
	assert.Equal(t, Box{0, 4}, left)
	assert.Equal(t, Box{4, 10}, right)
}
