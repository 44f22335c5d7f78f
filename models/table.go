package models

import (
	"fmt"
	"time"
)

// Column indexes a value column of the merged table. The names returned by
// Name form the external schema read by the visualizer and must stay stable.
type Column int

const (
	ColGarminHeartRate Column = iota
	ColGarminSpO2
	ColGarminConfidence
	ColO2RingSpO2
	ColO2RingPulse
	ColO2RingMotion

	NumColumns = int(ColO2RingMotion) + 1
)

// TimestampColumn is the name of the leading time column.
const TimestampColumn = "timestamp"

// TimestampLayout formats minute timestamps in the output file.
const TimestampLayout = "2006-01-02 15:04:05"

var columnNames = [NumColumns]string{
	ColGarminHeartRate:  "heart_rate",
	ColGarminSpO2:       "garmin_spo2",
	ColGarminConfidence: "garmin_confidence",
	ColO2RingSpO2:       "o2ring_spo2",
	ColO2RingPulse:      "o2ring_pulse",
	ColO2RingMotion:     "o2ring_motion",
}

var columnDevices = [NumColumns]Device{
	ColGarminHeartRate:  DeviceGarmin,
	ColGarminSpO2:       DeviceGarmin,
	ColGarminConfidence: DeviceGarmin,
	ColO2RingSpO2:       DeviceO2Ring,
	ColO2RingPulse:      DeviceO2Ring,
	ColO2RingMotion:     DeviceO2Ring,
}

func (c Column) Name() string   { return columnNames[c] }
func (c Column) Device() Device { return columnDevices[c] }

// Columns returns all value columns in output order.
func Columns() []Column {
	cols := make([]Column, NumColumns)
	for i := range cols {
		cols[i] = Column(i)
	}
	return cols
}

// Header returns the full output header, timestamp first.
func Header() []string {
	h := make([]string, 0, NumColumns+1)
	h = append(h, TimestampColumn)
	for _, c := range Columns() {
		h = append(h, c.Name())
	}
	return h
}

// ColumnByName resolves an output column name.
func ColumnByName(name string) (Column, bool) {
	for i, n := range columnNames {
		if n == name {
			return Column(i), true
		}
	}
	return 0, false
}

// Nullable is a value that may be absent.
type Nullable struct {
	Value float64
	Valid bool
}

func Some(v float64) Nullable { return Nullable{Value: v, Valid: true} }

// MergedRow is one minute of the merged table.
type MergedRow struct {
	Timestamp time.Time
	Values    [NumColumns]Nullable
}

func (r MergedRow) Get(c Column) Nullable { return r.Values[c] }

// MergedTable is the gapless per-minute join of both devices.
type MergedTable struct {
	Rows     []MergedRow
	Coverage map[Device]bool
}

func (t *MergedTable) Len() int { return len(t.Rows) }

// Range returns the first and last row timestamps.
func (t *MergedTable) Range() (time.Time, time.Time) {
	if len(t.Rows) == 0 {
		return time.Time{}, time.Time{}
	}
	return t.Rows[0].Timestamp, t.Rows[len(t.Rows)-1].Timestamp
}

// Values returns the non-null values of a column in row order.
func (t *MergedTable) Values(c Column) []float64 {
	out := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		if v := r.Values[c]; v.Valid {
			out = append(out, v.Value)
		}
	}
	return out
}

// Validate checks that timestamps are minute-aligned and strictly increasing
// with exactly one minute between consecutive rows.
func (t *MergedTable) Validate() error {
	for i, r := range t.Rows {
		if !r.Timestamp.Equal(Minute(r.Timestamp)) {
			return fmt.Errorf("row %d: timestamp %s is not minute aligned", i, r.Timestamp.Format(TimestampLayout))
		}
		if i == 0 {
			continue
		}
		if d := r.Timestamp.Sub(t.Rows[i-1].Timestamp); d != time.Minute {
			return fmt.Errorf("row %d: spacing %s after %s, want 1m", i, d, t.Rows[i-1].Timestamp.Format(TimestampLayout))
		}
	}
	return nil
}
