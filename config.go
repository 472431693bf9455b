package fspt

import (
	"math/rand"

	"gopkg.in/yaml.v3"
)

// UniformityTestLevel controls when the Gini criterion runs the
// distance-to-boundary uniformity pre-test (§4.3/§4.5 of SPEC_FULL.md).
type UniformityTestLevel int

const (
	// UniformityNone never runs the uniformity test.
	UniformityNone UniformityTestLevel = iota
	// UniformityMixed runs it only when the best weighted gain falls below
	// GiniGainThresh.
	UniformityMixed
	// UniformityAlways runs it as a pre-check before every split search.
	UniformityAlways
)

// FitConfig is the immutable set of thresholds threaded through the fit
// loop and the criterion (Design Notes §9 of spec.md splits the teacher's
// single mutable criterion_args record into this config, the per-call
// Decision, and the tree-level Counters).
type FitConfig struct {
	MaxDepth                     int
	MinSamples                   int
	MinVolumeP                   float64
	MinLengthP                   float64
	MaxTriesP                    float32
	MaxFeaturesP                 float32
	GiniGainThresh               float64
	MaxConsecutiveGainViolations int
	MiddleSplit                  bool
	MultiThreads                 bool
	UniformityTestLevel          UniformityTestLevel
	UnfAlpha                     float64

	// Rand is the seedable RNG driving feature subsampling, bin
	// subsampling and tie-breaks. Fit is deterministic given the same Rand
	// state, the same X and MultiThreads=false (spec.md §5 "Ordering").
	// A nil Rand is replaced in Fit by one seeded with 1.
	Rand *rand.Rand
}

// DefaultFitConfig returns reasonable defaults matching the scenarios of
// spec.md §8: every feature and every bin considered, uniformity test off.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		MaxDepth:                     32,
		MinSamples:                   1,
		MinVolumeP:                   0,
		MinLengthP:                   0,
		MaxTriesP:                    1,
		MaxFeaturesP:                 1,
		GiniGainThresh:               0,
		MaxConsecutiveGainViolations: 1 << 30,
		MiddleSplit:                  false,
		MultiThreads:                 false,
		UniformityTestLevel:          UniformityNone,
		UnfAlpha:                     0.05,
	}
}

func (c FitConfig) rng() *rand.Rand {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.New(rand.NewSource(1))
}

// Counters accumulates per-cause tallies during a single Fit call. The
// fitting driver is its single writer (spec.md §5), so plain ints suffice
// even when the criterion fans work out to the executor/errgroup, as long
// as Counters is only touched back on the driver goroutine.
type Counters struct {
	NoSample    int
	MinSamples  int
	MaxDepth    int
	MinVolume   int
	MinLength   int
	MaxCount    int
	Uniformity  int
}

func (c *Counters) record(cause RefusalCause) {
	switch cause {
	case CauseNoSample:
		c.NoSample++
	case CauseMinSamples:
		c.MinSamples++
	case CauseMaxDepth:
		c.MaxDepth++
	case CauseMinVolume:
		c.MinVolume++
	case CauseMinLength:
		c.MinLength++
	case CauseMaxCount:
		c.MaxCount++
	case CauseUniformity:
		c.Uniformity++
	}
}

// ScoreConfig parameterizes the Density and AutoDensity score functions
// (original_source/src/fspt_score.h's score_args calibration/verification
// fields, dropped by the distillation down to prose in spec.md §4.7).
type ScoreConfig struct {
	// ExponentialNormalization applies an exponential squash to the raw
	// density ratio before clipping.
	ExponentialNormalization bool

	// CalibrationScore, CalibrationNSamplesP and CalibrationVolumeP form
	// the calibration triple of spec.md §4.7's Density score: a leaf holding
	// at least CalibrationNSamplesP of the samples and CalibrationVolumeP of
	// the volume has its score raised to at least CalibrationScore. A
	// CalibrationScore of 0 turns this clipping off.
	CalibrationScore     float64
	CalibrationNSamplesP float64
	CalibrationVolumeP   float64

	// VerifyNNodesPThresh and VerifyDensityThresh are the AutoDensity
	// verification targets: the fraction of leaves scoring >= tau must
	// match VerifyNNodesPThresh, and the cumulative volume fraction of
	// those leaves must match VerifyDensityThresh.
	VerifyNNodesPThresh float64
	VerifyDensityThresh float64
}

// DefaultScoreConfig returns a config with calibration disabled (raw
// density, no exponential squash) and permissive verification targets.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		CalibrationScore:     1,
		CalibrationNSamplesP: 1,
		CalibrationVolumeP:   1,
		VerifyNNodesPThresh:  0.5,
		VerifyDensityThresh:  0.5,
	}
}

// configDump is the structure rendered by Tree.DumpConfig.
type configDump struct {
	Fit          FitConfig           `yaml:"fit"`
	Score        ScoreConfig         `yaml:"score"`
	Verification *verificationResult `yaml:"verification,omitempty"`
}

// DumpConfig renders the tree's active fit and score configuration as YAML
// for human inspection, the structured-dump analogue of the teacher's
// absent equivalent and of original_source's fixed-width
// print_fspt_criterion_args/print_fspt_score_args box-drawing tables
// (SPEC_FULL.md §11).
func (t *Tree) DumpConfig() ([]byte, error) {
	return yaml.Marshal(configDump{Fit: t.lastFitConfig, Score: t.scoreConfig, Verification: t.verification})
}
