package processor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepcompare/config"
	"sleepcompare/models"
)

var (
	garminSpO2  = models.SeriesKey{Device: models.DeviceGarmin, Metric: models.MetricSpO2}
	garminPulse = models.SeriesKey{Device: models.DeviceGarmin, Metric: models.MetricHeartRate}
	ringSpO2    = models.SeriesKey{Device: models.DeviceO2Ring, Metric: models.MetricSpO2}
	ringPulse   = models.SeriesKey{Device: models.DeviceO2Ring, Metric: models.MetricHeartRate}
	ringMotion  = models.SeriesKey{Device: models.DeviceO2Ring, Metric: models.MetricMotion}
)

func at(hour, min, sec int) time.Time {
	return time.Date(2024, 1, 1, hour, min, sec, 0, time.UTC)
}

func reading(key models.SeriesKey, ts time.Time, v float64) models.RawReading {
	return models.RawReading{Device: key.Device, Metric: key.Metric, Timestamp: ts, Value: v}
}

func spo2(ts time.Time, v float64, confidence int) models.RawReading {
	r := reading(garminSpO2, ts, v)
	r.Confidence = confidence
	r.HasConfidence = true
	return r
}

func TestNormalizeMeanAndLowestConfidence(t *testing.T) {
	n := NewNormalizer(config.NormalizerConfig{})
	out := n.Normalize([]models.RawReading{
		spo2(at(23, 0, 10), 96, 3),
		spo2(at(23, 0, 40), 94, 1),
	})

	p, ok := out[garminSpO2].Get(at(23, 0, 0))
	require.True(t, ok)
	assert.Equal(t, 95.0, p.Value)
	assert.Equal(t, 1, p.Confidence)
	assert.True(t, p.HasConfidence)
	assert.Equal(t, 2, p.Samples)
	assert.Equal(t, 94.0, p.Min)
	assert.Equal(t, 96.0, p.Max)
	assert.True(t, p.Minute.Equal(at(23, 0, 0)))
}

func TestNormalizeLastPolicy(t *testing.T) {
	n := NewNormalizer(config.NormalizerConfig{Reduction: config.ReductionLast})
	out := n.Normalize([]models.RawReading{
		reading(ringPulse, at(22, 0, 40), 60),
		reading(ringPulse, at(22, 0, 8), 55),
		reading(ringPulse, at(22, 0, 40), 61),
	})

	p, ok := out[ringPulse].Get(at(22, 0, 0))
	require.True(t, ok)
	assert.Equal(t, 61.0, p.Value)
}

func TestNormalizeMotionIsMax(t *testing.T) {
	for _, policy := range []string{config.ReductionMean, config.ReductionLast} {
		n := NewNormalizer(config.NormalizerConfig{Reduction: policy})
		out := n.Normalize([]models.RawReading{
			reading(ringMotion, at(22, 0, 0), 0),
			reading(ringMotion, at(22, 0, 4), 7),
			reading(ringMotion, at(22, 0, 8), 2),
		})
		p, _ := out[ringMotion].Get(at(22, 0, 30))
		assert.Equal(t, 7.0, p.Value, policy)
	}
}

func TestNormalizeMinConfidence(t *testing.T) {
	n := NewNormalizer(config.NormalizerConfig{MinConfidence: 2})
	noConfidence := reading(garminSpO2, at(23, 1, 0), 90)
	out := n.Normalize([]models.RawReading{
		spo2(at(23, 0, 10), 96, 3),
		spo2(at(23, 0, 40), 80, 1),
		noConfidence,
	})

	p, ok := out[garminSpO2].Get(at(23, 0, 0))
	require.True(t, ok)
	assert.Equal(t, 96.0, p.Value)
	assert.Equal(t, 3, p.Confidence)

	p, ok = out[garminSpO2].Get(at(23, 1, 0))
	require.True(t, ok)
	assert.False(t, p.HasConfidence)
}

func TestNormalizeDropsNonFinite(t *testing.T) {
	n := NewNormalizer(config.NormalizerConfig{})
	out := n.Normalize([]models.RawReading{
		reading(garminPulse, at(1, 0, 0), math.NaN()),
		reading(garminPulse, at(1, 0, 5), math.Inf(1)),
		reading(garminPulse, at(1, 0, 9), 50),
	})
	p, _ := out[garminPulse].Get(at(1, 0, 0))
	assert.Equal(t, 50.0, p.Value)
	assert.Equal(t, 1, p.Samples)
}

func TestNormalizeEmpty(t *testing.T) {
	out := NewNormalizer(config.NormalizerConfig{}).Normalize(nil)
	assert.Empty(t, out)
}

func TestNormalizedValueWithinGroupRange(t *testing.T) {
	values := []float64{0.1, 0.1, 0.1, 97.3, 96.9, 0.7, 88, 88.25, 1e-9, 3}
	var readings []models.RawReading
	for i, v := range values {
		// three samples per minute, spread over the minute
		readings = append(readings, reading(ringSpO2, at(2, i/3, (i%3)*20), v))
	}

	for _, policy := range []string{config.ReductionMean, config.ReductionLast} {
		out := NewNormalizer(config.NormalizerConfig{Reduction: policy}).Normalize(readings)
		for _, p := range out[ringSpO2].Sorted() {
			assert.GreaterOrEqual(t, p.Value, p.Min, "%s at %s", policy, p.Minute)
			assert.LessOrEqual(t, p.Value, p.Max, "%s at %s", policy, p.Minute)
		}
	}
}

func TestNormalizeInterpolatesGarminHeartRate(t *testing.T) {
	readings := []models.RawReading{
		reading(garminPulse, at(22, 0, 5), 50),
		reading(garminPulse, at(22, 4, 5), 58),
		reading(ringPulse, at(22, 0, 5), 50),
		reading(ringPulse, at(22, 4, 5), 58),
	}

	out := NewNormalizer(config.NormalizerConfig{InterpolateHeartRate: true}).Normalize(readings)
	require.Equal(t, 5, out[garminPulse].Len())
	for i, want := range []float64{50, 52, 54, 56, 58} {
		p, ok := out[garminPulse].Get(at(22, i, 0))
		require.True(t, ok, "minute %d", i)
		assert.InDelta(t, want, p.Value, 1e-9)
		assert.GreaterOrEqual(t, p.Value, p.Min)
		assert.LessOrEqual(t, p.Value, p.Max)
	}
	p, _ := out[garminPulse].Get(at(22, 2, 0))
	assert.Equal(t, 0, p.Samples)

	// other series keep their gaps
	assert.Equal(t, 2, out[ringPulse].Len())

	plain := NewNormalizer(config.NormalizerConfig{}).Normalize(readings)
	assert.Equal(t, 2, plain[garminPulse].Len())
}
