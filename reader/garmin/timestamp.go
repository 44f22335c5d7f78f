package garmin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// wallClockLayouts are tried in order for string timestamps. Fractional
// seconds are accepted by every layout when parsing.
var wallClockLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Epoch milliseconds outside [1970-01-01, 2200-01-01) are not device clocks.
var (
	minEpochMillis = float64(0)
	maxEpochMillis = float64(time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
)

// parseTimestamp accepts either epoch milliseconds (a JSON number) or a
// wall-clock string. Epoch values are rendered in loc; wall-clock strings are
// taken as already being in loc.
func parseTimestamp(raw json.RawMessage, loc *time.Location) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("timestamp is missing")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		return parseWallClock(s, loc)
	}

	ms, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %s is neither a string nor epoch milliseconds", raw)
	}
	if ms != math.Trunc(ms) || ms < minEpochMillis || ms >= maxEpochMillis {
		return time.Time{}, fmt.Errorf("epoch milliseconds %s out of range", raw)
	}
	return time.UnixMilli(int64(ms)).In(loc), nil
}

func parseWallClock(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

// parseNumber reports present=false for an absent field and ok=false for an
// explicit null, which Garmin uses for gaps.
func parseNumber(raw json.RawMessage) (v float64, present bool, ok bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false, false, nil
	}
	if bytes.Equal(raw, []byte("null")) {
		return 0, true, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, true, false, fmt.Errorf("value %s is not a number", raw)
	}
	return v, true, true, nil
}

// decodeArray unmarshals a top-level JSON array. An empty document yields no records.
func decodeArray[T any](data []byte) ([]T, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("byte %d: %w", syntaxErr.Offset, err)
		}
		return nil, err
	}
	return records, nil
}
