package fspt

import "math"

const histEpsilon = 1e-5

// giniIndex computes the two-class Gini index 2xy/(x+y)^2, grounded on
// original_source/src/gini_utils.c's static gini().
func giniIndex(x, y float64) float64 {
	if x == 0 && y == 0 {
		return 0
	}
	return 2 * x * y / ((x + y) * (x + y))
}

// splitCauseTally accumulates why candidate splits on one feature were
// refused, grounded on original_source/src/fspt_criterion.h's
// forbidden_split_cause.
type splitCauseTally struct {
	minSamples int
	minVolume  int
	minLength  int
}

func (t *splitCauseTally) add(o splitCauseTally) {
	t.minSamples += o.minSamples
	t.minVolume += o.minVolume
	t.minLength += o.minLength
}

// dominant returns the tally's most frequent cause, ties won by the first
// checked (min_volume, then max_depth is handled by the caller, then
// min_samples, then min_length), mirroring
// original_source/src/fspt_criterion.c's determine_cause ordering.
func (t splitCauseTally) dominant() RefusalCause {
	counts := [3]int{t.minVolume, t.minSamples, t.minLength}
	causes := [3]RefusalCause{CauseMinVolume, CauseMinSamples, CauseMinLength}
	best := 0
	for i := 1; i < 3; i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	if counts[best] == 0 {
		return CauseUnknown
	}
	return causes[best]
}

// giniAfterSplit computes Ĝ(R,I,s) = n+/n * G(R+) + n-/n * G(R-) for a
// candidate split at value s of a feature ranging [min,max] in a node with
// nLeft/nRight samples, nEmpty effective uniform points and the given
// volume, and reports whether the split is forbidden under the min-samples
// / min-volume / min-length predicates.
//
// Grounded on original_source/src/gini_utils.c's static gini_after_split.
func giniAfterSplit(min, max, s float32, nLeft, nRight int, nEmpty float32,
	nodeVolume, rootVolume, minVolumeP, minLengthP float64, minSamples int) (
	gini float64, forbidden bool, tally splitCauseTally) {

	length := float64(max - min)
	if length == 0 {
		return 1, true, tally
	}
	propLeft := float64(s-min) / length
	propRight := float64(max-s) / length

	eLeft := float64(nEmpty) * propLeft
	eRight := float64(nEmpty) * propRight
	volLeft := nodeVolume * propLeft
	volRight := nodeVolume * propRight

	if eLeft+float64(nLeft) < float64(minSamples) || eRight+float64(nRight) < float64(minSamples) {
		tally.minSamples++
		forbidden = true
	}
	if volLeft < minVolumeP*rootVolume || volRight < minVolumeP*rootVolume {
		tally.minVolume++
		forbidden = true
	}
	if propLeft < minLengthP || propRight < minLengthP {
		tally.minLength++
		forbidden = true
	}
	if forbidden {
		return 1, true, tally
	}

	totalLeft := float64(nLeft) + eLeft
	totalRight := float64(nRight) + eRight
	total := totalLeft + totalRight
	g := giniIndex(eLeft, float64(nLeft))*totalLeft/total +
		giniIndex(eRight, float64(nRight))*totalRight/total
	return g, false, tally
}

// buildHistogram builds the candidate-split histogram over an
// already-sorted column: for each strictly increasing value it emits a
// (value-eps, cdf) bin immediately followed by a (value, cdf+1) bin;
// duplicate values just extend the previous bin's cdf.
//
// Grounded on original_source/src/gini_utils.c's unit_static void hist().
func buildHistogram(sorted []float32, lowerBound float32) (bins []float32, cdf []int) {
	n := len(sorted)
	bins = make([]float32, 0, 2*n)
	cdf = make([]int, 0, 2*n)
	last := 0

	appendBin := func(v float32, increment bool) {
		if increment {
			last++
		}
		bins = append(bins, v)
		cdf = append(cdf, last)
	}

	addValue := func(v, base float32) {
		if v > base {
			eps := float32(histEpsilon)
			for v-eps < base {
				eps /= 2
				if eps == 0 {
					break
				}
			}
			if eps > 0 {
				appendBin(v-eps, false)
				appendBin(v, true)
			} else {
				appendBin(v, true)
			}
		} else {
			appendBin(v, true)
		}
	}

	addValue(sorted[0], lowerBound)
	lastX := sorted[0]
	for i := 1; i < n; i++ {
		x := sorted[i]
		if x > lastX {
			addValue(x, lastX)
		} else {
			// Duplicate value: extend the previous bin's cdf in place.
			last++
			cdf[len(cdf)-1] = last
		}
		lastX = x
	}
	return bins, cdf
}

// ProbaGainInferiorTo computes the probability that n uniform [0,1] samples
// yield a Gini-gain inferior to t when split at s — a diagnostic kept from
// original_source/src/gini_utils.c's proba_gain_inferior_to /
// proba_uninform_count, exposed here (SPEC_FULL.md §4.5) though it is not
// on the hot fitting path: the fit loop only compares the observed gain to
// GiniGainThresh.
func ProbaGainInferiorTo(t, s float64, n int) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 0.5 {
		return 1
	}
	p := polynomial{
		a: t + 0.5,
		b: 2*t*s - s - 2*t,
		c: 0.5 * s * (2*(s-2)*t + s),
	}
	solvePolynomial(&p)
	if p.delta < 0 {
		return 0
	}
	return probaUniformCount(p.x1, p.x2, n, s)
}

// probaUniformCount computes P(A <= (1/n) sum 1_{Xi<=s} <= B) for n
// independent uniform [0,1] variables Xi, grounded on
// original_source/src/gini_utils.c's static proba_uninform_count.
func probaUniformCount(a, b float64, n int, s float64) float64 {
	if s <= 0 {
		return 0
	}
	if s >= 1 {
		return 1
	}
	a = clampFloat64(a, 0, 1)
	b = clampFloat64(b, 0, 1)
	to := int(math.Floor(float64(n) * b))
	var from int
	na := float64(n) * a
	if na-math.Floor(na) <= 1e-12 {
		from = int(math.Floor(na))
	} else {
		from = int(math.Ceil(na))
	}
	p := 0.0
	for i := from; i <= to; i++ {
		p += binomial(n, i) * math.Pow(s, float64(i)) * math.Pow(1-s, float64(n-i))
	}
	return p
}
