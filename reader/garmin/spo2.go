package garmin

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"sleepcompare/models"
)

// spo2Record is one element of a garmin*-spo2.json export:
//
//	[{"epochTimestamp": "2024-01-01T23:00:10.0", "spo2Reading": 96, "readingConfidence": 3}, ...]
type spo2Record struct {
	EpochTimestamp    json.RawMessage `json:"epochTimestamp"`
	SpO2Reading       json.RawMessage `json:"spo2Reading"`
	ReadingConfidence json.RawMessage `json:"readingConfidence"`
}

// SpO2Parser decodes pulse-oximetry exports, keeping the per-reading confidence.
type SpO2Parser struct {
	Location *time.Location
}

func NewSpO2Parser(loc *time.Location) *SpO2Parser {
	if loc == nil {
		loc = time.Local
	}
	return &SpO2Parser{Location: loc}
}

func (p *SpO2Parser) Parse(r io.Reader, source string) ([]models.RawReading, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	records, err := decodeArray[spo2Record](data)
	if err != nil {
		return nil, models.Malformed(source, "document", err)
	}

	readings := make([]models.RawReading, 0, len(records))
	for i, rec := range records {
		loc := fmt.Sprintf("record %d", i+1)

		ts, err := parseTimestamp(rec.EpochTimestamp, p.Location)
		if err != nil {
			return nil, models.Malformed(source, loc, fmt.Errorf("epochTimestamp: %w", err))
		}

		value, present, ok, err := parseNumber(rec.SpO2Reading)
		if err != nil {
			return nil, models.Malformed(source, loc, fmt.Errorf("spo2Reading: %w", err))
		}
		if !present {
			return nil, models.Malformed(source, loc, fmt.Errorf("spo2Reading is missing"))
		}
		if !ok {
			continue
		}

		reading := models.RawReading{
			Device:    models.DeviceGarmin,
			Metric:    models.MetricSpO2,
			Timestamp: ts,
			Value:     value,
			Source:    source,
			Line:      i + 1,
		}

		confidence, _, hasConfidence, err := parseNumber(rec.ReadingConfidence)
		if err != nil {
			return nil, models.Malformed(source, loc, fmt.Errorf("readingConfidence: %w", err))
		}
		if hasConfidence {
			reading.Confidence = int(math.Round(confidence))
			reading.HasConfidence = true
		}

		readings = append(readings, reading)
	}

	return readings, nil
}
