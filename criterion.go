package fspt

import (
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Decision is a criterion's verdict for one leaf: either a refusal with a
// cause, or a split to perform (Design Notes §9 of spec.md: the teacher's
// single mutable criterion_args in/out record is split into this return
// value, the immutable FitConfig, and the tree-level Counters).
type Decision struct {
	Refuse         bool
	Cause          RefusalCause
	Feature        int
	Split          float32
	IncrementCount bool
}

// Criterion decides, for a leaf, whether to split it and on which feature
// and value. Grounded on the strategy-by-interface pattern in the
// teacher's objective.go (TransformFunc/ObjectiveType), replacing the
// teacher's function-pointer shape with a Go interface (Design Notes §9:
// "criterion as strategy").
type Criterion interface {
	Evaluate(t *Tree, leafIdx int32, cfg FitConfig, counters *Counters) Decision
	Name() string
}

// GiniCriterion is the Gini-gain split criterion of spec.md §4.5, grounded
// on original_source/src/gini_utils.c's gini_criterion.
type GiniCriterion struct{}

func (GiniCriterion) Name() string { return "gini" }

func (GiniCriterion) Evaluate(t *Tree, leafIdx int32, cfg FitConfig, counters *Counters) Decision {
	n := &t.nodes[leafIdx]

	if n.nSamples == 0 {
		counters.record(CauseNoSample)
		return Decision{Refuse: true, Cause: CauseNoSample}
	}
	if float64(n.nSamples)+float64(n.nEmpty) < 2*float64(cfg.MinSamples) {
		counters.record(CauseMinSamples)
		return Decision{Refuse: true, Cause: CauseMinSamples}
	}
	if n.depth >= cfg.MaxDepth {
		counters.record(CauseMaxDepth)
		return Decision{Refuse: true, Cause: CauseMaxDepth}
	}
	if n.volume < 2*cfg.MinVolumeP*t.rootVolume {
		counters.record(CauseMinVolume)
		return Decision{Refuse: true, Cause: CauseMinVolume}
	}

	box := t.nodeBox(leafIdx)

	if cfg.UniformityTestLevel == UniformityAlways {
		if p := UniformityPValue(t.d, n.nSamples, t.leafRows(leafIdx), box); p > cfg.UnfAlpha {
			counters.record(CauseUniformity)
			return Decision{Refuse: true, Cause: CauseUniformity}
		}
	}
	if !respectMinLengthP(t.d, t.box, box, cfg.MinLengthP) {
		counters.record(CauseMinLength)
		return Decision{Refuse: true, Cause: CauseMinLength}
	}

	maxFeatures := int(float32(t.d) * cfg.MaxFeaturesP)
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	rng := cfg.rng()
	randomFeatures := randomIndexOrder(rng, t.d)[:maxFeatures]

	gains := make([]float64, maxFeatures)
	splits := make([]float32, maxFeatures)
	forbidden := make([]bool, maxFeatures)
	tallies := make([]splitCauseTally, maxFeatures)

	evalFeature := func(i int) {
		feat := randomFeatures[i]
		gain, split, ok, tally := bestSplitOnFeature(t, leafIdx, box, feat, cfg, rng)
		gains[i], splits[i], forbidden[i], tallies[i] = gain, split, !ok, tally
	}

	if cfg.MultiThreads {
		var g errgroup.Group
		for i := range randomFeatures {
			i := i
			g.Go(func() error { evalFeature(i); return nil })
		}
		_ = g.Wait() // evalFeature never errors; Wait only joins.
	} else {
		for i := range randomFeatures {
			evalFeature(i)
		}
	}

	allForbidden := true
	for _, f := range forbidden {
		if !f {
			allForbidden = false
			break
		}
	}
	if allForbidden {
		var total splitCauseTally
		for _, t := range tallies {
			total.add(t)
		}
		cause := total.dominant()
		counters.record(cause)
		n.cause = cause
		return Decision{Refuse: true, Cause: cause}
	}

	// Forbidden features carry a gain of -1 (bestSplitOnFeature's sentinel),
	// so the plain argmax picks the best among the surviving features
	// without needing to re-check `forbidden`, per
	// original_source/src/gini_utils.c's fill_best_splits/max_index_double
	// pairing.
	best := maxIndexFloat64(gains)
	bestGain := gains[best]
	bestFeature := randomFeatures[best]
	bestSplit := splits[best]

	if cfg.UniformityTestLevel != UniformityAlways && bestGain < cfg.GiniGainThresh {
		doUniformity := cfg.UniformityTestLevel == UniformityMixed && cfg.UnfAlpha < 1
		uniform := true
		if doUniformity {
			p := UniformityPValue(t.d, n.nSamples, t.leafRows(leafIdx), box)
			uniform = p <= cfg.UnfAlpha
		}
		if !uniform {
			counters.record(CauseUniformity)
			return Decision{Refuse: true, Cause: CauseUniformity}
		}

		if cfg.MiddleSplit {
			bestFeature, bestSplit = middleOfLongestFeature(t.d, t.box, box)
		}
		if n.lowGainStreak >= cfg.MaxConsecutiveGainViolations {
			counters.record(CauseMaxCount)
			return Decision{Refuse: true, Cause: CauseMaxCount}
		}
		return Decision{Feature: bestFeature, Split: bestSplit, IncrementCount: true}
	}

	return Decision{Feature: bestFeature, Split: bestSplit}
}

// respectMinLengthP reports whether every feature's relative extent in box
// (vs the tree's root box) is at least minLengthP, grounded on
// original_source/src/fspt_criterion.c's respect_min_lenght_p.
func respectMinLengthP(d int, rootBox, nodeBox Box, minLengthP float64) bool {
	if minLengthP == 0 {
		return true
	}
	for i := 0; i < d; i++ {
		relative := float64(nodeBox[2*i+1]-nodeBox[2*i]) / float64(rootBox[2*i+1]-rootBox[2*i])
		if relative < minLengthP {
			return false
		}
	}
	return true
}

// middleOfLongestFeature returns the feature with the largest relative
// extent and the midpoint of its node-local range, grounded on
// original_source/src/gini_utils.c's inline "split in the middle of the
// largest feature" block in gini_criterion.
func middleOfLongestFeature(d int, rootBox, nodeBox Box) (feature int, split float32) {
	maxRel := -1.0
	for i := 0; i < d; i++ {
		relative := float64(nodeBox[2*i+1]-nodeBox[2*i]) / float64(rootBox[2*i+1]-rootBox[2*i])
		if relative > maxRel {
			maxRel = relative
			feature = i
			split = (nodeBox[2*i+1] + nodeBox[2*i]) / 2
		}
	}
	return feature, split
}

// bestSplitOnFeature implements spec.md §4.5's per-feature search: sort,
// histogram, sub-sample candidate bins, score each by Gini gain, and weight
// the winner by feature importance and relative extent.
//
// Grounded on original_source/src/gini_utils.c's fill_best_splits /
// best_split_on_feature.
func bestSplitOnFeature(t *Tree, leafIdx int32, box Box, feat int, cfg FitConfig, rng *rand.Rand) (
	gain float64, split float32, ok bool, tally splitCauseTally) {

	n := &t.nodes[leafIdx]
	rows := t.leafRows(leafIdx)
	nSamples := n.nSamples

	var sortedCol []float32
	if cfg.MultiThreads {
		sortedCol = columnOf(rows, nSamples, t.d, feat)
		sortFloat32(sortedCol)
	} else {
		sortByColumn(rows, nSamples, t.d, feat)
		sortedCol = columnOf(rows, nSamples, t.d, feat)
	}

	nodeMin := box[2*feat]
	nodeMax := box[2*feat+1]
	bins, cdf := buildHistogram(sortedCol, nodeMin)
	if len(bins) < 1 {
		return -1, 0, false, tally
	}

	maxBins := int(float32(len(bins)) * cfg.MaxTriesP)
	if maxBins < 1 {
		maxBins = 1
	}
	order := randomIndexOrder(rng, len(bins))[:maxBins]

	bestGain := 0.0
	bestIdx := -1
	for _, idx := range order {
		s := bins[idx]
		nLeft := cdf[idx]
		nRight := nSamples - nLeft
		g, forbidden, t2 := giniAfterSplit(nodeMin, nodeMax, s, nLeft, nRight,
			n.nEmpty, n.volume, t.rootVolume, cfg.MinVolumeP, cfg.MinLengthP, cfg.MinSamples)
		tally.add(t2)
		if forbidden {
			continue
		}
		if g2 := 0.5 - g; g2 > bestGain {
			bestGain = g2
			bestIdx = idx
		}
	}
	if bestIdx == -1 {
		return -1, 0, false, tally
	}

	fspMin := t.box[2*feat]
	fspMax := t.box[2*feat+1]
	relativeLength := float64(nodeMax-nodeMin) / float64(fspMax-fspMin)
	weighted := bestGain * float64(t.importance[feat]) * relativeLength
	return weighted, bins[bestIdx], true, tally
}

// sortFloat32 sorts a ascending. The standard library only provides
// sort.Float64s; sort.Slice is the idiomatic substitute for float32.
func sortFloat32(a []float32) {
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
}
