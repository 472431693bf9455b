package fspt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fittedTwoLeafTree(t *testing.T) *Tree {
	tree, err := New(1, Box{0, 10}, nil, GiniCriterion{}, DensityScore{})
	assert.NoError(t, err)

	var x []float32
	for i := 0; i < 80; i++ {
		x = append(x, float32(i)*0.01)
	}
	for i := 0; i < 20; i++ {
		x = append(x, 9+float32(i)*0.01)
	}

	cfg := DefaultFitConfig()
	cfg.MinSamples = 1
	cfg.MaxDepth = 1
	cfg.Rand = rand.New(rand.NewSource(2222222))
	assert.NoError(t, tree.Fit(x, len(x), cfg))
	return tree
}

func TestDensityScoreInRange(t *testing.T) {
	tree := fittedTwoLeafTree(t)
	tree.AssignScores(DefaultScoreConfig())
	for _, idx := range tree.Leaves() {
		n := tree.Node(idx)
		assert.GreaterOrEqual(t, n.Score(), float32(0))
		assert.LessOrEqual(t, n.Score(), float32(1))
	}
}

func TestHeuristicScoreSingletonRootIsTwoThirds(t *testing.T) {
	tree, err := New(2, Box{0, 1, 0, 1}, nil, GiniCriterion{}, HeuristicScore{})
	assert.NoError(t, err)

	cfg := DefaultFitConfig()
	cfg.MinSamples = 2
	cfg.Rand = rand.New(rand.NewSource(2222222))
	assert.NoError(t, tree.Fit([]float32{0.5, 0.5}, 1, cfg))
	tree.AssignScores(DefaultScoreConfig())

	root := tree.Node(0)
	// Root-as-only-leaf: local extent equals global extent on every
	// feature, so every term reduces to importance_i / (1 + E/n_leaf)
	// with E = n_tree_samples/d = 0.5 and n_leaf = 1.
	assert.InDelta(t, 1.0/1.5, root.Score(), 1e-6)
}

func TestAutoDensityScoreVerification(t *testing.T) {
	tree := fittedTwoLeafTree(t)
	tree.AssignScores(DefaultScoreConfig())

	auto := AutoDensityScore{}
	auto.Assign(tree, DefaultScoreConfig())
	assert.NotNil(t, tree.verification)
}
