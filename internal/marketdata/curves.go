package marketdata

import "math"

// FlatCurve is a constant-zero-rate yield curve: df(t) = exp(-r*t).
type FlatCurve struct {
	Rate float64
}

func (c FlatCurve) Discount(t float64) float64 {
	if t <= 0 {
		return 1.0
	}
	return math.Exp(-c.Rate * t)
}

// InterpolatedCurve interpolates discount factors log-linearly between
// pillars and extrapolates flat in the zero rate beyond the last pillar.
// Pillar times must be strictly increasing and positive.
type InterpolatedCurve struct {
	Times []float64
	DFs   []float64
}

func (c *InterpolatedCurve) Discount(t float64) float64 {
	return LogLinearDF(c.Times, c.DFs, t)
}

// LogLinearDF is the shared discount factor interpolation: log-linear
// between pillars, df(0)=1, and constant-forward extrapolation past the
// last pillar.
func LogLinearDF(times, dfs []float64, t float64) float64 {
	n := len(times)
	if n == 0 || t <= 0 {
		return 1.0
	}
	if t <= times[0] {
		// log-linear between (0, 1) and the first pillar
		w := t / times[0]
		return math.Exp(w * math.Log(dfs[0]))
	}
	if t >= times[n-1] {
		// flat zero rate beyond the last pillar
		zr := -math.Log(dfs[n-1]) / times[n-1]
		return math.Exp(-zr * t)
	}
	// find bracketing pillars
	i := 0
	for times[i+1] < t {
		i++
	}
	w := (t - times[i]) / (times[i+1] - times[i])
	logDF := (1-w)*math.Log(dfs[i]) + w*math.Log(dfs[i+1])
	return math.Exp(logDF)
}

// FlatVolCurve is a constant volatility curve.
type FlatVolCurve struct {
	Value float64
}

func (c FlatVolCurve) Vol(expiry float64) float64 { return c.Value }

// InterpolatedVolCurve interpolates vols linearly in expiry with flat
// extrapolation on both ends.
type InterpolatedVolCurve struct {
	Expiries []float64
	Vols     []float64
}

func (c *InterpolatedVolCurve) Vol(expiry float64) float64 {
	return LinearInterp(c.Expiries, c.Vols, expiry)
}

// LinearInterp interpolates linearly with flat extrapolation.
func LinearInterp(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if x <= xs[0] {
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

// FlatHazardCurve is a constant-hazard-rate survival curve:
// S(t) = exp(-h*t).
type FlatHazardCurve struct {
	Hazard float64
}

func (c FlatHazardCurve) SurvivalProbability(t float64) float64 {
	if t <= 0 {
		return 1.0
	}
	return math.Exp(-c.Hazard * t)
}
