// Command validation runs the concrete end-to-end scenarios of spec.md §8
// against a seeded RNG and reports pass/fail for each, tagging the run with
// a uuid so repeated runs can be correlated in CI logs.
//
// This replaces the teacher's go-lgbm-vs-leaves comparison tool: there is
// no FSPT-equivalent Go library in the ecosystem to diff predictions
// against, so scenarios are checked against the closed-form properties
// spec.md §8 states directly (refusal causes, depth bounds, density
// ratios, save/load round-trips, kolmogorov reference values) rather than
// against a second implementation.
package main

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"

	"github.com/google/uuid"

	fspt "github.com/zhongdai/go-fspt"
)

const scenarioSeed = 2222222

type scenarioResult struct {
	Name string
	Pass bool
	Info string
}

func main() {
	runID := uuid.New()
	fmt.Printf("fspt validation run %s\n", runID)

	results := []scenarioResult{
		scenarioSinglePoint(),
		scenarioUniformRefusal(),
		scenarioMixtureDensity(),
		scenarioKolmogorovReference(),
	}

	allPass := true
	for _, r := range results {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
			allPass = false
		}
		fmt.Printf("  [%s] %-28s %s\n", status, r.Name, r.Info)
	}
	if !allPass {
		os.Exit(1)
	}
}

// scenarioSinglePoint is spec.md §8 scenario 1: a single point in a unit
// box must refuse on MIN_SAMPLES. The sole leaf's DensityScore is printed
// but not checked; it is 1, since that leaf's density equals the root's.
func scenarioSinglePoint() scenarioResult {
	box := fspt.Box{0, 1, 0, 1}
	tree, err := fspt.New(2, box, nil, fspt.GiniCriterion{}, fspt.DensityScore{})
	if err != nil {
		return scenarioResult{"single_point_min_samples", false, err.Error()}
	}

	cfg := fspt.DefaultFitConfig()
	cfg.MinSamples = 2
	cfg.Rand = rand.New(rand.NewSource(scenarioSeed))

	x := []float32{0.5, 0.5}
	if err := tree.Fit(x, 1, cfg); err != nil {
		return scenarioResult{"single_point_min_samples", false, err.Error()}
	}
	tree.AssignScores(fspt.DefaultScoreConfig())

	stats := tree.Stats()
	scores, err := tree.Predict(x, 1)
	if err != nil {
		return scenarioResult{"single_point_min_samples", false, err.Error()}
	}
	pass := stats.NNodes == 1 && stats.Counters.MinSamples == 1
	return scenarioResult{"single_point_min_samples", pass,
		fmt.Sprintf("nodes=%d min_samples_refusals=%d score=%v", stats.NNodes, stats.Counters.MinSamples, scores[0])}
}

// scenarioUniformRefusal is spec.md §8 scenario 2: 10,000 uniform points
// with the uniformity test always-on should mostly refuse at the root.
func scenarioUniformRefusal() scenarioResult {
	box := fspt.Box{0, 1, 0, 1}
	tree, err := fspt.New(2, box, nil, fspt.GiniCriterion{}, fspt.DensityScore{})
	if err != nil {
		return scenarioResult{"uniform_root_refusal", false, err.Error()}
	}

	rng := rand.New(rand.NewSource(scenarioSeed))
	n := 10000
	x := make([]float32, n*2)
	for i := 0; i < n; i++ {
		x[2*i] = rng.Float32()
		x[2*i+1] = rng.Float32()
	}

	cfg := fspt.DefaultFitConfig()
	cfg.MinSamples = 50
	cfg.MaxDepth = 20
	cfg.GiniGainThresh = 0.01
	cfg.UniformityTestLevel = fspt.UniformityAlways
	cfg.UnfAlpha = 0.05
	cfg.Rand = rng

	if err := tree.Fit(x, n, cfg); err != nil {
		return scenarioResult{"uniform_root_refusal", false, err.Error()}
	}
	stats := tree.Stats()
	pass := stats.MaxDepth <= 3
	return scenarioResult{"uniform_root_refusal", pass,
		fmt.Sprintf("depth=%d nodes=%d uniformity_refusals=%d", stats.MaxDepth, stats.NNodes, stats.Counters.Uniformity)}
}

// scenarioMixtureDensity is spec.md §8 scenario 3+4: a density hotspot in
// [0,0.25]^2 should surface a leaf with elevated density, and a save/load
// round-trip must reproduce predictions exactly.
func scenarioMixtureDensity() scenarioResult {
	box := fspt.Box{0, 1, 0, 1}
	tree, err := fspt.New(2, box, nil, fspt.GiniCriterion{}, fspt.DensityScore{})
	if err != nil {
		return scenarioResult{"mixture_density_roundtrip", false, err.Error()}
	}

	rng := rand.New(rand.NewSource(scenarioSeed))
	n := 10000
	x := make([]float32, n*2)
	for i := 0; i < 5000; i++ {
		x[2*i] = rng.Float32()
		x[2*i+1] = rng.Float32()
	}
	for i := 5000; i < n; i++ {
		x[2*i] = rng.Float32() * 0.25
		x[2*i+1] = rng.Float32() * 0.25
	}

	cfg := fspt.DefaultFitConfig()
	cfg.MinSamples = 50
	cfg.MaxDepth = 20
	cfg.GiniGainThresh = 0.01
	cfg.UniformityTestLevel = fspt.UniformityAlways
	cfg.UnfAlpha = 0.05
	cfg.Rand = rng

	if err := tree.Fit(x, n, cfg); err != nil {
		return scenarioResult{"mixture_density_roundtrip", false, err.Error()}
	}
	tree.AssignScores(fspt.DefaultScoreConfig())
	stats := tree.Stats()
	rootDensity := float64(stats.RootSamples) / stats.RootVolume
	hotspotFound := hasHotspotLeaf(tree, 2*rootDensity)

	var buf bytes.Buffer
	if ok, err := tree.Save(&buf, true); err != nil || !ok {
		return scenarioResult{"mixture_density_roundtrip", false, fmt.Sprintf("save failed: %v", err)}
	}
	loaded, err := fspt.Load(&buf, fspt.GiniCriterion{}, fspt.DensityScore{})
	if err != nil {
		return scenarioResult{"mixture_density_roundtrip", false, fmt.Sprintf("load failed: %v", err)}
	}

	queries := make([]float32, 1000*2)
	qrng := rand.New(rand.NewSource(scenarioSeed + 1))
	for i := range queries {
		queries[i] = qrng.Float32()
	}
	want, err := tree.Predict(queries, 1000)
	if err != nil {
		return scenarioResult{"mixture_density_roundtrip", false, err.Error()}
	}
	got, err := loaded.Predict(queries, 1000)
	if err != nil {
		return scenarioResult{"mixture_density_roundtrip", false, err.Error()}
	}
	roundTripOK := true
	for i := range want {
		if want[i] != got[i] {
			roundTripOK = false
			break
		}
	}

	pass := roundTripOK && hotspotFound
	return scenarioResult{"mixture_density_roundtrip", pass,
		fmt.Sprintf("nodes=%d hotspot_found=%v round_trip_match=%v root_density=%.3f",
			stats.NNodes, hotspotFound, roundTripOK, rootDensity)}
}

// scenarioKolmogorovReference is spec.md §8 scenario 5: fixed reference
// values for the matrix-power Kolmogorov p-value.
func scenarioKolmogorovReference() scenarioResult {
	a := fspt.KolmogorovPValue(10, 0.4)
	b := fspt.KolmogorovPValue(100, 0.2)
	pass := withinAbs(a, 0.9375, 1e-3) && withinAbs(b, 0.9993, 1e-5)
	return scenarioResult{"kolmogorov_reference", pass, fmt.Sprintf("k(10,0.4)=%.6f k(100,0.2)=%.6f", a, b)}
}

func withinAbs(got, want, tol float64) bool {
	d := got - want
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// hasHotspotLeaf reports whether some leaf's box lies inside [0,0.25]^2 and
// its density (n_samples/volume) is at least minDensity, per spec.md §8
// scenario 3.
func hasHotspotLeaf(tree *fspt.Tree, minDensity float64) bool {
	for _, idx := range tree.Leaves() {
		n := tree.Node(idx)
		if n.NSamples() == 0 || n.Volume() == 0 {
			continue
		}
		box := tree.NodeBox(idx)
		if box[1] > 0.25 || box[3] > 0.25 {
			continue
		}
		if float64(n.NSamples())/n.Volume() >= minDensity {
			return true
		}
	}
	return false
}
