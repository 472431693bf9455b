package fspt

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSaveLoadRoundTrip is spec.md §8's round-trip property: nodes,
// splits and scores survive Save/Load exactly; Predict matches.
func TestSaveLoadRoundTrip(t *testing.T) {
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

	var buf bytes.Buffer
	ok, err := tree.Save(&buf, true)
	assert.NoError(t, err)
	assert.True(t, ok)

	loaded, err := Load(&buf, GiniCriterion{}, DensityScore{})
	assert.NoError(t, err)

	assert.Equal(t, tree.Stats().NNodes, loaded.Stats().NNodes)
	assert.Equal(t, tree.Stats().NLeaves, loaded.Stats().NLeaves)

	queries := []float32{1, 2, 8, 9, 5, 0.1, 9.9}
	want, err := tree.Predict(queries, len(queries))
	assert.NoError(t, err)
	got, err := loaded.Predict(queries, len(queries))
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveLoadWithoutSamples(t *testing.T) {
	tree, err := New(1, Box{0, 1}, nil, GiniCriterion{}, DensityScore{})
	assert.NoError(t, err)
	cfg := DefaultFitConfig()
	cfg.Rand = rand.New(rand.NewSource(1))
	assert.NoError(t, tree.Fit([]float32{0.1, 0.2, 0.9}, 3, cfg))
	tree.AssignScores(DefaultScoreConfig())

	var buf bytes.Buffer
	ok, err := tree.Save(&buf, false)
	assert.NoError(t, err)
	assert.True(t, ok)

	loaded, err := Load(&buf, GiniCriterion{}, DensityScore{})
	assert.NoError(t, err)
	assert.Equal(t, tree.Stats().NNodes, loaded.Stats().NNodes)
	assert.Nil(t, loaded.points)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("not a valid fspt file at all-------")
	_, err := Load(buf, nil, nil)
	assert.Error(t, err)
}
