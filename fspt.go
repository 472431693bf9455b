package fspt

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/zhongdai/go-fspt/executor"
)

// Tree is a feature-space partitioning tree: an axis-aligned binary tree
// over a d-dimensional box, fitted from a point matrix and then queried for
// density/out-of-distribution scores. Nodes live in a single arena slice
// addressed by int32 index rather than by pointer (Design Notes §9 of
// spec.md), which is what lets Save/Load walk the tree as a flat
// pre-order sequence and lets Fit build children without fighting Go's
// garbage collector over a cyclic pointer graph.
//
// Grounded on the teacher's tree.go (struct-of-arrays Tree holding all
// nodes, split thresholds and leaf values in parallel slices) and
// original_source/src/fspt.h's fspt_t.
type Tree struct {
	id uuid.UUID

	d          int
	box        Box
	importance []float32

	criterion Criterion
	score     Score

	// points is the n x d row-major training matrix. Fit partitions it in
	// place; every Node's rowStart/rowEnd is a view into this slice. It is
	// released (set nil) once persistence drops samples, or kept if the
	// caller asked to retain them.
	points     []float32
	nPoints    int
	rootVolume float64

	nodes []Node

	lastFitConfig FitConfig
	scoreConfig   ScoreConfig
	lastCounters  Counters
	verification  *verificationResult

	fitted bool
}

// New validates its arguments and returns an empty, unfitted Tree over the
// given box with the given per-feature importance (nil defaults to all
// ones) and the given criterion/score strategies (spec.md §4.1's `make`).
func New(d int, box Box, importance []float32, criterion Criterion, score Score) (*Tree, error) {
	if d <= 0 {
		return nil, &ArgumentError{Detail: "d must be positive"}
	}
	if !box.valid(d) {
		return nil, &ArgumentError{Detail: "box must have 2*d entries with min < max per feature"}
	}
	if importance == nil {
		importance = make([]float32, d)
		for i := range importance {
			importance[i] = 1
		}
	} else if len(importance) != d {
		return nil, &ArgumentError{Detail: "importance length must equal d"}
	}
	if criterion == nil {
		criterion = GiniCriterion{}
	}
	if score == nil {
		score = DensityScore{}
	}
	return &Tree{
		id:         uuid.New(),
		d:          d,
		box:        box.clone(),
		importance: append([]float32(nil), importance...),
		criterion:  criterion,
		score:      score,
	}, nil
}

// ID returns the tree's identity, assigned at New. Save does not write it,
// so a Tree returned by Load has the zero UUID.
func (t *Tree) ID() uuid.UUID { return t.id }

// D returns the feature dimension.
func (t *Tree) D() int { return t.d }

// leafRows returns the row-major point slice view owned by a node.
func (t *Tree) leafRows(idx int32) []float32 {
	n := &t.nodes[idx]
	return t.points[n.rowStart*t.d : n.rowEnd*t.d]
}

// Node returns a pointer to the arena node at idx, for callers that need
// read access to per-node fields beyond what TreeStats summarises.
func (t *Tree) Node(idx int32) *Node { return &t.nodes[idx] }

// NNodes returns the number of nodes in the arena (leaves and inner nodes).
func (t *Tree) NNodes() int { return len(t.nodes) }

// NodeBox reconstructs the box of node idx by walking its ancestor chain.
func (t *Tree) NodeBox(idx int32) Box { return t.nodeBox(idx) }

// Leaves returns the arena indices of every leaf node, in arena order.
func (t *Tree) Leaves() []int32 {
	var out []int32
	for i := range t.nodes {
		if t.nodes[i].kind == KindLeaf {
			out = append(out, int32(i))
		}
	}
	return out
}

// Fit builds the tree from an n x d row-major point matrix, following the
// LIFO pending-leaf loop of spec.md §4.1. Fit may only be called once per
// Tree; call New again to refit.
func (t *Tree) Fit(x []float32, n int, cfg FitConfig) error {
	if t.fitted {
		return &ArgumentError{Detail: "tree already fitted"}
	}
	if n < 0 || len(x) != n*t.d {
		return &ArgumentError{Detail: "matrix dimensions mismatched"}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(1))
	}

	t.points = x
	t.nPoints = n
	t.rootVolume = t.box.volume()

	root := Node{
		kind:     KindLeaf,
		depth:    0,
		nSamples: n,
		nEmpty:   float32(n),
		volume:   t.rootVolume,
		parent:   -1,
		left:     -1,
		right:    -1,
		rowStart: 0,
		rowEnd:   n,
	}
	t.nodes = []Node{root}

	var counters Counters
	stack := []int32{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		decision := t.criterion.Evaluate(t, idx, cfg, &counters)
		if decision.Refuse {
			t.nodes[idx].cause = decision.Cause
			continue
		}
		left, right := t.splitLeaf(idx, decision)
		stack = append(stack, left, right)
		if decision.IncrementCount {
			t.nodes[left].lowGainStreak = t.nodes[idx].lowGainStreak + 1
			t.nodes[right].lowGainStreak = t.nodes[idx].lowGainStreak + 1
		}
	}

	t.lastFitConfig = cfg
	t.lastCounters = counters
	t.fitted = true
	return nil
}

// splitLeaf converts leaf idx into an inner node on decision.Feature /
// decision.Split, partitions its row range in place, and materialises two
// child leaves. Returns the new children's indices.
func (t *Tree) splitLeaf(idx int32, decision Decision) (left, right int32) {
	n := &t.nodes[idx]
	mid := partitionRows(t.points, t.d, n.rowStart, n.rowEnd, decision.Feature, decision.Split)

	box := t.nodeBox(idx)
	min, max := box[2*decision.Feature], box[2*decision.Feature+1]
	length := float64(max - min)
	var propLeft, propRight float64
	if length > 0 {
		propLeft = float64(decision.Split-min) / length
		propRight = 1 - propLeft
	}

	leftNode := Node{
		kind:     KindLeaf,
		depth:    n.depth + 1,
		nSamples: mid - n.rowStart,
		nEmpty:   float32(float64(n.nEmpty) * propLeft),
		volume:   n.volume * propLeft,
		parent:   idx,
		left:     -1,
		right:    -1,
		rowStart: n.rowStart,
		rowEnd:   mid,
	}
	rightNode := Node{
		kind:     KindLeaf,
		depth:    n.depth + 1,
		nSamples: n.rowEnd - mid,
		nEmpty:   float32(float64(n.nEmpty) * propRight),
		volume:   n.volume * propRight,
		parent:   idx,
		left:     -1,
		right:    -1,
		rowStart: mid,
		rowEnd:   n.rowEnd,
	}

	t.nodes = append(t.nodes, leftNode, rightNode)
	leftIdx := int32(len(t.nodes) - 2)
	rightIdx := int32(len(t.nodes) - 1)

	n = &t.nodes[idx]
	n.kind = KindInner
	n.splitFeature = decision.Feature
	n.splitValue = decision.Split
	n.left = leftIdx
	n.right = rightIdx
	return leftIdx, rightIdx
}

// partitionRows rearranges rows [rowStart, rowEnd) of the n x d row-major
// matrix so that rows with x[feature] <= split come first, and returns the
// index of the first row in the right partition. Grounded on the
// in-place Lomuto/Hoare partition idiom used throughout
// original_source/src/utils.c for in-place array reshuffling.
func partitionRows(x []float32, d, rowStart, rowEnd, feature int, split float32) int {
	i, j := rowStart, rowEnd-1
	for i <= j {
		for i <= j && x[i*d+feature] <= split {
			i++
		}
		for i <= j && x[j*d+feature] > split {
			j--
		}
		if i < j {
			swapRows(x, d, i, j)
			i++
			j--
		}
	}
	return i
}

func swapRows(x []float32, d, i, j int) {
	if i == j {
		return
	}
	ri, rj := x[i*d:i*d+d], x[j*d:j*d+d]
	for k := 0; k < d; k++ {
		ri[k], rj[k] = rj[k], ri[k]
	}
}

// Decision walks from the root to the leaf reached by point x, following
// spec.md §4.1: go left if x[split_feature] <= split_value, else right.
// Returns -1 if x falls outside the root box (the "outside" case of §7).
func (t *Tree) Decision(x []float32) int32 {
	if len(x) != t.d {
		return -1
	}
	for i := 0; i < t.d; i++ {
		if x[i] < t.box[2*i] || x[i] > t.box[2*i+1] {
			return -1
		}
	}
	cur := int32(0)
	for t.nodes[cur].kind == KindInner {
		n := &t.nodes[cur]
		if x[n.splitFeature] <= n.splitValue {
			cur = n.left
		} else {
			cur = n.right
		}
	}
	return cur
}

// DecisionBatch runs Decision over an m x d row-major query matrix.
func (t *Tree) DecisionBatch(x []float32, m int) ([]int32, error) {
	if len(x) != m*t.d {
		return nil, &ArgumentError{Detail: "matrix dimensions mismatched"}
	}
	out := make([]int32, m)
	for i := 0; i < m; i++ {
		out[i] = t.Decision(x[i*t.d : i*t.d+t.d])
	}
	return out, nil
}

// Predict dispatches each row to Decision and reads the reached leaf's
// score; "outside" maps to 0, per spec.md §4.1.
func (t *Tree) Predict(x []float32, m int) ([]float32, error) {
	leaves, err := t.DecisionBatch(x, m)
	if err != nil {
		return nil, err
	}
	out := make([]float32, m)
	for i, leaf := range leaves {
		if leaf < 0 {
			out[i] = 0
			continue
		}
		out[i] = t.nodes[leaf].score
	}
	return out, nil
}

// AssignScores runs the tree's configured Score over every leaf. Fit does
// not call this automatically: scoring is a distinct post-fit pass so a
// caller may re-score with a different ScoreConfig without refitting.
func (t *Tree) AssignScores(cfg ScoreConfig) {
	t.scoreConfig = cfg
	t.score.Assign(t, cfg)
}

// MergeLeaves runs spec.md §4.1's bottom-up merge pass: repeatedly collapse
// any inner node whose two children are both leaves with equal refusal
// cause and scores within epsilon, until a full pass changes nothing.
func (t *Tree) MergeLeaves() {
	const epsilon = 1e-6
	for {
		changed := false
		for i := range t.nodes {
			n := &t.nodes[i]
			if n.kind != KindInner {
				continue
			}
			left := &t.nodes[n.left]
			right := &t.nodes[n.right]
			if left.kind != KindLeaf || right.kind != KindLeaf {
				continue
			}
			if left.cause != right.cause {
				continue
			}
			if abs32(left.score-right.score) > epsilon {
				continue
			}
			n.kind = KindLeaf
			n.cause = left.cause
			n.nSamples = left.nSamples + right.nSamples
			n.nEmpty = left.nEmpty + right.nEmpty
			n.volume = left.volume + right.volume
			n.score = left.score
			n.rowStart = left.rowStart
			n.rowEnd = right.rowEnd
			n.left, n.right = -1, -1
			changed = true
		}
		if !changed {
			return
		}
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Spread summarises a distribution of samples by the order statistics
// original_source/src/fspt.h's fspt_infos spells out one field at a time
// (min_samples_leaves/median_samples_leaves/...); collected here into one
// struct per distribution instead of one field per statistic.
type Spread struct {
	Min, Max, Mean, Median, FirstQuartile, ThirdQuartile float64
}

// computeSpread reports a Spread over values, using the median/quantile
// order-statistic formulas of numeric.go.
func computeSpread(values []float64) Spread {
	if len(values) == 0 {
		return Spread{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return Spread{
		Min:           sorted[0],
		Max:           sorted[len(sorted)-1],
		Mean:          sum / float64(len(sorted)),
		Median:        median(sorted),
		FirstQuartile: firstQuartile(sorted),
		ThirdQuartile: thirdQuartile(sorted),
	}
}

// TreeStats summarises a fitted tree, ported from
// original_source/src/fspt.c's fspt_infos (SPEC_FULL.md §12).
type TreeStats struct {
	ID          uuid.UUID
	NNodes      int
	NLeaves     int
	MaxDepth    int
	RootVolume  float64
	RootSamples int
	Counters    Counters

	LeafDepths  Spread
	LeafSamples Spread
	SplitValues Spread
}

// Stats reports structural statistics and the last Fit call's refusal-cause
// counters.
func (t *Tree) Stats() TreeStats {
	stats := TreeStats{
		ID:         t.id,
		NNodes:     len(t.nodes),
		RootVolume: t.rootVolume,
		Counters:   t.lastCounters,
	}
	if len(t.nodes) > 0 {
		stats.RootSamples = t.nodes[0].nSamples
	}

	var leafDepths, leafSamples, splitValues []float64
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.kind == KindLeaf {
			stats.NLeaves++
			leafDepths = append(leafDepths, float64(n.depth))
			leafSamples = append(leafSamples, float64(n.nSamples))
		} else {
			splitValues = append(splitValues, float64(n.splitValue))
		}
		if n.depth > stats.MaxDepth {
			stats.MaxDepth = n.depth
		}
	}
	stats.LeafDepths = computeSpread(leafDepths)
	stats.LeafSamples = computeSpread(leafSamples)
	stats.SplitValues = computeSpread(splitValues)
	return stats
}

// VolumeAboveScore sums the volume of every leaf whose score is at least
// thresh, ported from original_source/src/fspt.c's
// get_fspt_volume_score_above (SPEC_FULL.md §12).
func (t *Tree) VolumeAboveScore(thresh float32) float64 {
	var total float64
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.kind == KindLeaf && n.score >= thresh {
			total += n.volume
		}
	}
	return total
}

// WatchStats submits a periodic callable to pool that recomputes Stats()
// every interval and hands the result to report, until pool.Shutdown is
// called. This is the §4.6 executor's only consumer in this package (the
// criterion's per-feature search uses errgroup instead): a long-lived
// periodic task rather than a one-shot fan-out.
func (t *Tree) WatchStats(pool *executor.Pool, interval time.Duration, report func(TreeStats)) *executor.Future {
	return pool.SubmitPeriodic(func() (any, error) {
		stats := t.Stats()
		if report != nil {
			report(stats)
		}
		return stats, nil
	}, interval)
}
