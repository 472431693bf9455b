package fspt

import "sort"

// UniformityPValue is the p-value of the "distance-to-boundary"
// Kolmogorov-Smirnov test: it transforms each of the n points (d features,
// row-major in x) into its L-infinity distance to the nearest face of box,
// normalized by the box's largest half-length, and compares the empirical
// CDF of that transform against its known analytic null under the
// hypothesis that the points are uniform over box.
//
// Grounded on original_source/src/distance_to_boundary.c
// (dist_to_bound_test / KS_stat_cpu / relative_depth_cpu /
// null_hypothesis_dist).
func UniformityPValue(d, n int, x []float32, box Box) float64 {
	if n == 0 {
		return 1
	}
	if n == 1 {
		return 0
	}
	depths := relativeDepths(d, n, x, box)
	sort.Float64s(depths)
	stat := ksStatistic(d, depths, box)
	return 1 - KolmogorovPValue(n, stat)
}

// distToBoundary returns the L-infinity distance from point x (length d) to
// the nearest face of box.
func distToBoundary(d int, x []float32, box Box) float32 {
	min := x[0] - box[0]
	if v := box[1] - x[0]; v < min {
		min = v
	}
	for i := 1; i < d; i++ {
		var v float32
		if x[i] < (box[2*i]+box[2*i+1])/2 {
			v = x[i] - box[2*i]
		} else {
			v = box[2*i+1] - x[i]
		}
		if v < min {
			min = v
		}
	}
	return min
}

// minHalfLength returns the smallest per-feature half-length of box.
func minHalfLength(d int, box Box) float32 {
	min := (box[1] - box[0]) / 2
	for i := 1; i < d; i++ {
		if v := (box[2*i+1] - box[2*i]) / 2; v < min {
			min = v
		}
	}
	return min
}

// maxHalfLength returns the largest per-feature half-length of box.
func maxHalfLength(d int, box Box) float32 {
	max := float32(0)
	for i := 0; i < d; i++ {
		if v := (box[2*i+1] - box[2*i]) / 2; v > max {
			max = v
		}
	}
	return max
}

// relativeDepths computes, for every point, its distance-to-boundary
// normalized by the box's largest half-length.
func relativeDepths(d, n int, x []float32, box Box) []float64 {
	r := maxHalfLength(d, box)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		point := x[i*d : i*d+d]
		out[i] = float64(distToBoundary(d, point, box) / r)
	}
	return out
}

// nullHypothesisDist is F(y) = 1 - prod_i (1 - k_i*y) for k_i =
// maxHalf/feature-half-length, the analytic CDF a uniform sample over box
// would have under the distance-to-boundary transform (distances divided by
// the largest half-length maxHalf, as in relativeDepths).
func nullHypothesisDist(d int, box Box, maxHalf float32, y float64) float64 {
	cum := 1.0
	for i := 0; i < d; i++ {
		ki := float64(2*maxHalf) / float64(box[2*i+1]-box[2*i])
		cum *= 1 - ki*y
	}
	return 1 - cum
}

// ksStatistic computes sup|Fhat(y) - F(y)| over the sorted, already
// ascending depths slice.
func ksStatistic(d int, sortedDepths []float64, box Box) float64 {
	n := len(sortedDepths)
	maxHalf := maxHalfLength(d, box)
	sup := 0.0
	for i, y := range sortedDepths {
		theoretical := nullHypothesisDist(d, box, maxHalf, y)
		if diff := abs64(float64(i)/float64(n) - theoretical); diff > sup {
			sup = diff
		}
		if diff := abs64(float64(i+1)/float64(n) - theoretical); diff > sup {
			sup = diff
		}
	}
	return sup
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
