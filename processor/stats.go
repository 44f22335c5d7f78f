package processor

import (
	"math"

	"sleepcompare/models"
)

// Stats describes a set of values. Std is the sample standard deviation and
// is 0 for fewer than two values.
type Stats struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Max   float64
}

// Describe computes Stats over values using a two-pass mean and variance.
func Describe(values []float64) Stats {
	var s Stats
	if len(values) == 0 {
		return s
	}
	s.Count = len(values)
	s.Min, s.Max = values[0], values[0]

	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(s.Count)

	if s.Count > 1 {
		var sq float64
		for _, v := range values {
			d := v - s.Mean
			sq += d * d
		}
		s.Std = math.Sqrt(sq / float64(s.Count-1))
	}
	return s
}

// SeriesStats describes the reduced values of a series in minute order.
func SeriesStats(s *models.NormalizedSeries) Stats {
	points := s.Sorted()
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return Describe(values)
}

// TableStats describes every column of a merged table, ignoring nulls.
func TableStats(t *models.MergedTable) map[models.Column]Stats {
	out := make(map[models.Column]Stats, models.NumColumns)
	for _, c := range models.Columns() {
		out[c] = Describe(t.Values(c))
	}
	return out
}
