package processor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"sleepcompare/config"
	"sleepcompare/models"
)

func TestDescribe(t *testing.T) {
	s := Describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.Count)
	assert.Equal(t, 5.0, s.Mean)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.InDelta(t, math.Sqrt(32.0/7.0), s.Std, 1e-12)
}

func TestDescribeSmall(t *testing.T) {
	assert.Equal(t, Stats{}, Describe(nil))

	s := Describe([]float64{93})
	assert.Equal(t, Stats{Count: 1, Mean: 93, Min: 93, Max: 93}, s)
}

func TestTableStatsMatchSeriesStats(t *testing.T) {
	series := normalize(
		minutes(ringSpO2, at(22, 0, 0), at(22, 5, 0), 96),
		[]models.RawReading{reading(ringSpO2, at(22, 2, 30), 90)},
		minutes(garminPulse, at(22, 0, 0), at(22, 10, 0), 55),
	)
	table, _, err := NewMerger(config.MergerConfig{}).Merge(series)
	assert.NoError(t, err)

	stats := TableStats(table)
	assert.Equal(t, SeriesStats(series[ringSpO2]), stats[models.ColO2RingSpO2])
	assert.Equal(t, SeriesStats(series[garminPulse]), stats[models.ColGarminHeartRate])
	assert.Equal(t, 0, stats[models.ColGarminSpO2].Count)
}
