package fspt

import "math"

// KolmogorovPValue computes P(D_n < d), the significance level of a
// two-sided Kolmogorov-Smirnov test of n samples with statistic d, using
// the Marsaglia-Tsang-Wang matrix-power method for the exact distribution
// and the classical asymptotic approximation when n*d^2 is large enough to
// make the exact computation unnecessary (and numerically risky).
//
// Grounded on original_source/src/kolmogorov.c, ported from long
// double/pow to float64/math.Pow; the "multiply mantissa by 1e-140, add 140
// to exponent" overflow guard from the C source is kept verbatim since it
// is the load-bearing trick that lets matrix powers as large as n=10000
// stay in float64 range.
func KolmogorovPValue(n int, d float64) float64 {
	if d <= 0 {
		return 0
	}
	if d >= 1 {
		return 1
	}
	s := d * d * float64(n)
	if s > 7.24 || (s > 3.76 && n > 99) {
		return 1 - 2*math.Exp(-(2.000071+0.331/math.Sqrt(float64(n))+1.409/float64(n))*s)
	}

	k := int(float64(n)*d) + 1
	m := 2*k - 1
	h := float64(k) - float64(n)*d

	hMat := make([]float64, m*m)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			if i-j+1 < 0 {
				hMat[i*m+j] = 0
			} else {
				hMat[i*m+j] = 1
			}
		}
	}
	for i := 0; i < m; i++ {
		hMat[i*m] -= math.Pow(h, float64(i+1))
		hMat[(m-1)*m+i] -= math.Pow(h, float64(m-i))
	}
	if 2*h-1 > 0 {
		hMat[(m-1)*m] += math.Pow(2*h-1, float64(m))
	}
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			if i-j+1 > 0 {
				for g := 1; g <= i-j+1; g++ {
					hMat[i*m+j] /= float64(g)
				}
			}
		}
	}

	q, eQ := matrixPower(hMat, 0, m, n)
	center := k - 1
	s = q[center*m+center]
	for i := 1; i <= n; i++ {
		s = s * float64(i) / float64(n)
		if s < 1e-140 {
			s *= 1e140
			eQ -= 140
		}
	}
	s *= math.Pow(10, float64(eQ))
	return s
}

// matrixPower raises the m x m matrix a (exponent eA in base-10 scientific
// notation: actual value is a * 10^eA entrywise) to the n-th power by
// repeated squaring, renormalizing whenever the center entry threatens to
// overflow float64.
func matrixPower(a []float64, eA, m, n int) (v []float64, eV int) {
	if n == 1 {
		out := make([]float64, len(a))
		copy(out, a)
		return out, eA
	}
	v, eV = matrixPower(a, eA, m, n/2)
	b := matrixMultiply(v, v, m)
	eB := 2 * eV
	if n%2 == 0 {
		v = b
		eV = eB
	} else {
		v = matrixMultiply(a, b, m)
		eV = eA + eB
	}
	center := (m / 2) * m + (m / 2)
	if v[center] > 1e140 {
		for i := range v {
			v[i] *= 1e-140
		}
		eV += 140
	}
	return v, eV
}

func matrixMultiply(a, b []float64, m int) []float64 {
	c := make([]float64, m*m)
	for i := 0; i < m; i++ {
		for k := 0; k < m; k++ {
			aik := a[i*m+k]
			if aik == 0 {
				continue
			}
			for j := 0; j < m; j++ {
				c[i*m+j] += aik * b[k*m+j]
			}
		}
	}
	return c
}
