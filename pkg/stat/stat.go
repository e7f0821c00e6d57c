// Package stat summarises latency samples.
package stat

import (
	"math"
	"slices"
)

// Summary describes a sample distribution. Var is the population variance.
// Quantiles use linear interpolation between closest ranks.
type Summary struct {
	Count int     `json:"count" yaml:"count"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Var   float64 `json:"var" yaml:"var"`
	Min   float64 `json:"min" yaml:"min"`
	Q1    float64 `json:"q1" yaml:"q1"`
	Q2    float64 `json:"q2" yaml:"q2"`
	Q3    float64 `json:"q3" yaml:"q3"`
	P95   float64 `json:"p95" yaml:"p95"`
	P99   float64 `json:"p99" yaml:"p99"`
	Max   float64 `json:"max" yaml:"max"`
}

// Columns is the column order of Summary in result tables.
var Columns = []string{"count", "mean", "var", "min", "q1", "q2", "q3", "p95", "p99", "max"}

// Values returns the fields in Columns order.
func (s Summary) Values() []float64 {
	return []float64{float64(s.Count), s.Mean, s.Var, s.Min, s.Q1, s.Q2, s.Q3, s.P95, s.P99, s.Max}
}

// Describe summarises samples. An empty input yields the zero Summary.
func Describe[T ~int64 | ~float64](samples []T) Summary {
	n := len(samples)
	if n == 0 {
		return Summary{}
	}
	sorted := make([]float64, n)
	sum := 0.0
	for i, v := range samples {
		sorted[i] = float64(v)
		sum += sorted[i]
	}
	slices.Sort(sorted)

	mean := sum / float64(n)
	ss := 0.0
	for _, v := range sorted {
		d := v - mean
		ss += d * d
	}

	return Summary{
		Count: n,
		Mean:  mean,
		Var:   ss / float64(n),
		Min:   sorted[0],
		Q1:    Quantile(sorted, 0.25),
		Q2:    Quantile(sorted, 0.5),
		Q3:    Quantile(sorted, 0.75),
		P95:   Quantile(sorted, 0.95),
		P99:   Quantile(sorted, 0.99),
		Max:   sorted[n-1],
	}
}

// Quantile returns the q-quantile of an ascending slice.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
