package processor

import (
	"math"
	"time"

	"sleepcompare/config"
	"sleepcompare/logger"
	"sleepcompare/models"
)

// Normalizer reduces raw readings to at most one value per series and minute.
type Normalizer struct {
	reduction     string
	minConfidence int
	interpolateHR bool
	log           *logger.Log
}

func NewNormalizer(cfg config.NormalizerConfig) *Normalizer {
	reduction := cfg.Reduction
	if reduction == "" {
		reduction = config.ReductionMean
	}
	return &Normalizer{
		reduction:     reduction,
		minConfidence: cfg.MinConfidence,
		interpolateHR: cfg.InterpolateHeartRate,
		log:           logger.GetLogger(),
	}
}

type groupKey struct {
	series models.SeriesKey
	minute int64
}

// group accumulates the samples of one (series, minute) bucket.
type group struct {
	minute        time.Time
	samples       int
	sum           float64
	min           float64
	max           float64
	last          float64
	lastAt        time.Time
	confidence    int
	hasConfidence bool
}

func (g *group) add(r models.RawReading) {
	if g.samples == 0 || r.Value < g.min {
		g.min = r.Value
	}
	if g.samples == 0 || r.Value > g.max {
		g.max = r.Value
	}
	// equal timestamps keep the later reading in input order
	if g.samples == 0 || !r.Timestamp.Before(g.lastAt) {
		g.last = r.Value
		g.lastAt = r.Timestamp
	}
	g.sum += r.Value
	g.samples++

	if r.HasConfidence && (!g.hasConfidence || r.Confidence < g.confidence) {
		g.confidence = r.Confidence
		g.hasConfidence = true
	}
}

func (n *Normalizer) reduce(metric models.Metric, g *group) float64 {
	var v float64
	switch {
	case metric == models.MetricMotion:
		v = g.max
	case n.reduction == config.ReductionLast:
		v = g.last
	default:
		v = g.sum / float64(g.samples)
	}
	// keep rounding error in the mean from leaving the sample range
	return math.Min(math.Max(v, g.min), g.max)
}

// Normalize groups readings by device, metric and minute floor and reduces
// each group. Motion takes the maximum and confidence the minimum regardless
// of the configured reduction. Minutes are labelled in the UTC offset of the
// earliest reading for the whole session.
func (n *Normalizer) Normalize(readings []models.RawReading) map[models.SeriesKey]*models.NormalizedSeries {
	log := n.log.WithComponent("normalizer")
	start := time.Now()

	groups := make(map[groupKey]*group)
	var order []groupKey
	var nonFinite, lowConfidence int

	kept := make([]models.RawReading, 0, len(readings))
	for _, r := range readings {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			nonFinite++
			continue
		}
		if n.belowConfidence(r) {
			lowConfidence++
			continue
		}
		kept = append(kept, r)
	}

	var zone *time.Location
	var earliest time.Time
	for _, r := range kept {
		if zone == nil || r.Timestamp.Before(earliest) {
			earliest = r.Timestamp
			zone = models.SessionZone(r.Timestamp)
		}
	}

	for _, r := range kept {
		minute := models.Minute(r.Timestamp.In(zone))
		k := groupKey{series: models.SeriesKey{Device: r.Device, Metric: r.Metric}, minute: minute.Unix() / 60}
		g, ok := groups[k]
		if !ok {
			g = &group{minute: minute}
			groups[k] = g
			order = append(order, k)
		}
		g.add(r)
	}

	out := make(map[models.SeriesKey]*models.NormalizedSeries)
	for _, k := range order {
		g := groups[k]
		s, ok := out[k.series]
		if !ok {
			s = models.NewNormalizedSeries(k.series)
			out[k.series] = s
		}
		s.Put(models.NormalizedPoint{
			Minute:        g.minute,
			Value:         n.reduce(k.series.Metric, g),
			Confidence:    g.confidence,
			HasConfidence: g.hasConfidence,
			Samples:       g.samples,
			Min:           g.min,
			Max:           g.max,
		})
	}

	if n.interpolateHR {
		if filled := interpolate(out[models.SeriesKey{Device: models.DeviceGarmin, Metric: models.MetricHeartRate}]); filled > 0 {
			log.WithFields(logger.Fields{"filled": filled}).Info("interpolated garmin heart rate gaps")
		}
	}

	if lowConfidence > 0 {
		log.WithFields(logger.Fields{
			"dropped":        lowConfidence,
			"min_confidence": n.minConfidence,
		}).Info("dropped low confidence spo2 readings")
	}
	if nonFinite > 0 {
		log.WithFields(logger.Fields{"dropped": nonFinite}).Warn("dropped non-finite readings")
	}
	logger.LogPerformanceEntry(log, "normalizer", "normalize", time.Since(start), logger.Fields{
		"readings": len(readings),
		"points":   len(groups),
	})

	return out
}

// belowConfidence applies min_confidence to Garmin SpO2. Readings without a
// confidence are kept.
func (n *Normalizer) belowConfidence(r models.RawReading) bool {
	if n.minConfidence <= 0 || r.Device != models.DeviceGarmin || r.Metric != models.MetricSpO2 {
		return false
	}
	return r.HasConfidence && r.Confidence < n.minConfidence
}

// interpolate fills the interior minute gaps of s linearly between the
// neighbouring points and returns the number of minutes added. Filled points
// have no samples. Gaps longer than maxSpan are left alone; the merger
// rejects such sessions.
func interpolate(s *models.NormalizedSeries) int {
	points := s.Sorted()
	filled := 0
	for i := 1; i < len(points); i++ {
		prev, next := points[i-1], points[i]
		gap := next.Minute.Sub(prev.Minute)
		if gap > maxSpan {
			continue
		}
		steps := int(gap / time.Minute)
		for k := 1; k < steps; k++ {
			v := prev.Value + (next.Value-prev.Value)*float64(k)/float64(steps)
			s.Put(models.NormalizedPoint{
				Minute: prev.Minute.Add(time.Duration(k) * time.Minute),
				Value:  v,
				Min:    v,
				Max:    v,
			})
			filled++
		}
	}
	return filled
}
