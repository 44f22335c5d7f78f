package garmin

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepcompare/models"
)

func TestPulseParserEpochAndStringTimestamps(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 22, 0, 30, 0, time.UTC).UnixMilli()
	doc := `[
		{"startGMT": ` + itoa(epoch) + `, "value": 58},
		{"startGMT": "2024-01-01T22:01:00.0", "value": 61},
		{"startGMT": "2024-01-01T22:02:00.0", "value": null}
	]`

	readings, err := NewPulseParser(time.UTC).Parse(strings.NewReader(doc), "garmin-pulse.json")
	require.NoError(t, err)
	require.Len(t, readings, 2)

	assert.Equal(t, models.DeviceGarmin, readings[0].Device)
	assert.Equal(t, models.MetricHeartRate, readings[0].Metric)
	assert.True(t, readings[0].Timestamp.Equal(time.Date(2024, 1, 1, 22, 0, 30, 0, time.UTC)))
	assert.Equal(t, 58.0, readings[0].Value)
	assert.False(t, readings[0].HasConfidence)

	assert.True(t, readings[1].Timestamp.Equal(time.Date(2024, 1, 1, 22, 1, 0, 0, time.UTC)))
	assert.Equal(t, 2, readings[1].Line)
}

func TestPulseParserEpochRenderedInLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	epoch := time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC).UnixMilli()

	readings, err := NewPulseParser(loc).Parse(strings.NewReader(`[{"startGMT": `+itoa(epoch)+`, "value": 60}]`), "p.json")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 22, readings[0].Timestamp.Hour())
}

func TestPulseParserEmptyInputs(t *testing.T) {
	for _, doc := range []string{"", "  \n", "[]"} {
		readings, err := NewPulseParser(time.UTC).Parse(strings.NewReader(doc), "garmin-pulse.json")
		require.NoError(t, err, "doc %q", doc)
		assert.Empty(t, readings)
	}
}

func TestPulseParserMalformed(t *testing.T) {
	cases := map[string]string{
		"missing timestamp": `[{"value": 60}]`,
		"bad timestamp":     `[{"startGMT": "yesterday", "value": 60}]`,
		"missing value":     `[{"startGMT": 1704146400000}]`,
		"text value":        `[{"startGMT": 1704146400000, "value": "sixty"}]`,
		"not an array":      `{"startGMT": 1704146400000, "value": 60}`,
		"truncated":         `[{"startGMT": 1704146400000, "value": 60}`,
		"huge epoch":        `[{"startGMT": 1e300, "value": 60}]`,
		"negative epoch":    `[{"startGMT": -1e18, "value": 60}]`,
		"fractional epoch":  `[{"startGMT": 1704146400000.5, "value": 60}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPulseParser(time.UTC).Parse(strings.NewReader(doc), "garmin-pulse.json")
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrMalformedInput), "got %v", err)
			assert.Contains(t, err.Error(), "garmin-pulse.json")
		})
	}
}

func TestPulseParserReportsRecordLocation(t *testing.T) {
	doc := `[{"startGMT": 1704146400000, "value": 60}, {"startGMT": "bogus", "value": 61}]`
	_, err := NewPulseParser(time.UTC).Parse(strings.NewReader(doc), "garmin-pulse.json")

	var ie *models.InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "record 2", ie.Location)
}

func TestSpO2ParserKeepsConfidence(t *testing.T) {
	doc := `[
		{"epochTimestamp": "2024-01-01T23:00:10.0", "spo2Reading": 96, "readingConfidence": 3},
		{"epochTimestamp": "2024-01-01T23:00:40.0", "spo2Reading": 94, "readingConfidence": 1},
		{"epochTimestamp": "2024-01-01T23:01:40.0", "spo2Reading": 95},
		{"epochTimestamp": "2024-01-01T23:02:40.0", "spo2Reading": null, "readingConfidence": 2}
	]`

	readings, err := NewSpO2Parser(time.UTC).Parse(strings.NewReader(doc), "garmin-spo2.json")
	require.NoError(t, err)
	require.Len(t, readings, 3)

	assert.Equal(t, models.MetricSpO2, readings[0].Metric)
	assert.True(t, readings[0].HasConfidence)
	assert.Equal(t, 3, readings[0].Confidence)
	assert.Equal(t, 1, readings[1].Confidence)
	assert.True(t, readings[1].Timestamp.Equal(time.Date(2024, 1, 1, 23, 0, 40, 0, time.UTC)))
	assert.False(t, readings[2].HasConfidence)
}

func TestSpO2ParserMalformed(t *testing.T) {
	cases := map[string]string{
		"missing timestamp":  `[{"spo2Reading": 96}]`,
		"missing reading":    `[{"epochTimestamp": "2024-01-01T23:00:10.0"}]`,
		"bad confidence":     `[{"epochTimestamp": "2024-01-01T23:00:10.0", "spo2Reading": 96, "readingConfidence": "high"}]`,
		"unparsable minutes": `[{"epochTimestamp": "2024-01-01T23:xx:10.0", "spo2Reading": 96}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewSpO2Parser(time.UTC).Parse(strings.NewReader(doc), "garmin-spo2.json")
			assert.True(t, errors.Is(err, models.ErrMalformedInput), "got %v", err)
		})
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
