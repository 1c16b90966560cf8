package postprocess

import (
	"fmt"
	"math"
	"sort"
)

// Dynamic initial margin: at each grid date the distribution of the value
// move over the margin period of risk is estimated from the cross-sample
// value moves to the next grid date, rescaled to the horizon. Three
// estimators are available:
//
//   - regression order N > 0: polynomial regression of the squared move
//     against the current value, quantile from the fitted local variance
//   - order 0 with evaluation points: kernel (Nadaraya-Watson) regression
//     of the squared move, same quantile treatment
//   - order 0 and 0 evaluation points: flat sample quantile of the move,
//     no regression at all
//
// The last date has no forward move and reports zero DIM.

// dimProfile returns the expected DIM per grid date for one netting set's
// collateralised exposure paths.
func (p *PostProcessor) dimProfile(exposure *pathValues, times []float64) ([]float64, error) {
	params := p.cfg.DIM
	out := make([]float64, exposure.dates)
	if exposure.dates < 2 {
		return out, nil
	}

	horizon := float64(params.HorizonDays) / 365.0
	samples := exposure.samples

	deltas := make([]float64, samples)
	regressors := make([]float64, samples)

	for d := 0; d+1 < exposure.dates; d++ {
		dt := times[d+1] - times[d]
		if dt <= 0 {
			return nil, fmt.Errorf("dim: non-increasing grid times at date %d", d)
		}
		scale := math.Sqrt(horizon/dt) * params.Scaling

		for s := 0; s < samples; s++ {
			deltas[s] = exposure.at(d+1, s) - exposure.at(d, s)
			regressors[s] = exposure.at(d, s)
		}

		var expected float64
		var err error
		switch {
		case params.RegressionOrder > 0:
			expected, err = dimPolynomial(deltas, regressors, params.RegressionOrder, params.Quantile)
		case params.LocalEvaluations > 0:
			expected, err = dimLocal(deltas, regressors, params.LocalEvaluations, params.Bandwidth, params.Quantile)
		default:
			expected = dimFlatQuantile(deltas, params.Quantile)
		}
		if err != nil {
			return nil, fmt.Errorf("dim at date %d: %w", d, err)
		}
		out[d] = expected * scale
	}
	return out, nil
}

// dimFlatQuantile is the no-regression proxy: the empirical quantile of
// the value move, floored at zero.
func dimFlatQuantile(deltas []float64, quantile float64) float64 {
	sorted := append([]float64(nil), deltas...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(quantile*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	return math.Max(sorted[idx], 0)
}

// dimPolynomial regresses the squared move on the current value and reads
// the quantile off the fitted local variance, averaged over samples.
func dimPolynomial(deltas, regressors []float64, order int, quantile float64) (float64, error) {
	n := len(deltas)
	if n <= order {
		return 0, fmt.Errorf("degenerate regression: %d samples for order %d", n, order)
	}

	squared := make([]float64, n)
	for i, d := range deltas {
		squared[i] = d * d
	}
	coeffs, err := polyFit(regressors, squared, order)
	if err != nil {
		return 0, err
	}

	z := inverseNormalCDF(quantile)
	sum := 0.0
	for _, x := range regressors {
		variance := math.Max(polyEval(coeffs, x), 0)
		sum += z * math.Sqrt(variance)
	}
	return sum / float64(n), nil
}

// dimLocal runs a Nadaraya-Watson regression of the squared move on an
// evenly spaced evaluation grid over the regressor range and averages the
// interpolated per-sample quantile.
func dimLocal(deltas, regressors []float64, evaluations int, bandwidth, quantile float64) (float64, error) {
	n := len(deltas)
	lo, hi := regressors[0], regressors[0]
	for _, x := range regressors {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if hi == lo {
		// all paths identical, the kernel collapses to the flat estimator
		return dimFlatQuantile(deltas, quantile), nil
	}

	h := bandwidth * (hi - lo)
	xs := make([]float64, evaluations)
	fitted := make([]float64, evaluations)
	for e := 0; e < evaluations; e++ {
		x := lo
		if evaluations > 1 {
			x = lo + (hi-lo)*float64(e)/float64(evaluations-1)
		}
		xs[e] = x

		num, den := 0.0, 0.0
		for i := 0; i < n; i++ {
			w := gaussKernel((x - regressors[i]) / h)
			num += w * deltas[i] * deltas[i]
			den += w
		}
		if den == 0 {
			return 0, fmt.Errorf("degenerate regression: empty kernel window at x=%g", x)
		}
		fitted[e] = num / den
	}

	z := inverseNormalCDF(quantile)
	sum := 0.0
	for _, x := range regressors {
		variance := math.Max(linearAt(xs, fitted, x), 0)
		sum += z * math.Sqrt(variance)
	}
	return sum / float64(n), nil
}

func gaussKernel(u float64) float64 {
	return math.Exp(-0.5*u*u) / math.Sqrt(2*math.Pi)
}

// linearAt interpolates (xs, ys) linearly with flat extrapolation; xs is
// increasing.
func linearAt(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 1 || x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	i := 0
	for xs[i+1] < x {
		i++
	}
	w := (x - xs[i]) / (xs[i+1] - xs[i])
	return (1-w)*ys[i] + w*ys[i+1]
}

// polyFit solves the least squares polynomial fit via the normal
// equations. Returns coefficients lowest order first.
func polyFit(xs, ys []float64, order int) ([]float64, error) {
	m := order + 1
	a := make([][]float64, m)
	b := make([]float64, m)
	for i := range a {
		a[i] = make([]float64, m)
	}
	for k := range xs {
		pow := 1.0
		powers := make([]float64, 2*m-1)
		for p := range powers {
			powers[p] = pow
			pow *= xs[k]
		}
		for i := 0; i < m; i++ {
			for j := 0; j < m; j++ {
				a[i][j] += powers[i+j]
			}
			b[i] += powers[i] * ys[k]
		}
	}
	return solveLinear(a, b)
}

func polyEval(coeffs []float64, x float64) float64 {
	v := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		v = v*x + coeffs[i]
	}
	return v
}

// solveLinear is Gaussian elimination with partial pivoting.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-14 {
			return nil, fmt.Errorf("degenerate regression: singular normal equations")
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		x[r] = b[r]
		for c := r + 1; c < n; c++ {
			x[r] -= a[r][c] * x[c]
		}
		x[r] /= a[r][r]
	}
	return x, nil
}

// inverseNormalCDF is the Acklam approximation of the standard normal
// quantile function, accurate to ~1e-9 over (0,1).
func inverseNormalCDF(p float64) float64 {
	a := [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const plow = 0.02425
	switch {
	case p < plow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p > 1-plow:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	default:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}
}
