// Package garmin decodes Garmin Connect wellness exports.
package garmin

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"sleepcompare/models"
)

// pulseRecord is one element of a garmin*-pulse.json export:
//
//	[{"startGMT": 1704146400000, "value": 58}, ...]
//
// startGMT may also be a wall-clock string such as "2024-01-01T22:00:00.0".
type pulseRecord struct {
	StartGMT json.RawMessage `json:"startGMT"`
	Value    json.RawMessage `json:"value"`
}

// PulseParser decodes heart-rate exports.
type PulseParser struct {
	Location *time.Location
}

func NewPulseParser(loc *time.Location) *PulseParser {
	if loc == nil {
		loc = time.Local
	}
	return &PulseParser{Location: loc}
}

func (p *PulseParser) Parse(r io.Reader, source string) ([]models.RawReading, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	records, err := decodeArray[pulseRecord](data)
	if err != nil {
		return nil, models.Malformed(source, "document", err)
	}

	readings := make([]models.RawReading, 0, len(records))
	for i, rec := range records {
		loc := fmt.Sprintf("record %d", i+1)

		ts, err := parseTimestamp(rec.StartGMT, p.Location)
		if err != nil {
			return nil, models.Malformed(source, loc, fmt.Errorf("startGMT: %w", err))
		}

		value, present, ok, err := parseNumber(rec.Value)
		if err != nil {
			return nil, models.Malformed(source, loc, err)
		}
		if !present {
			return nil, models.Malformed(source, loc, fmt.Errorf("value is missing"))
		}
		if !ok {
			continue
		}

		readings = append(readings, models.RawReading{
			Device:    models.DeviceGarmin,
			Metric:    models.MetricHeartRate,
			Timestamp: ts,
			Value:     value,
			Source:    source,
			Line:      i + 1,
		})
	}

	return readings, nil
}
