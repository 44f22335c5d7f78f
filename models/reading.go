package models

import (
	"fmt"
	"time"
)

// Device identifies the wearable that produced a reading.
type Device string

const (
	DeviceGarmin Device = "garmin"
	DeviceO2Ring Device = "o2ring"
)

// Devices lists every supported device in output order.
var Devices = []Device{DeviceGarmin, DeviceO2Ring}

// Metric identifies the physiological quantity of a reading.
type Metric string

const (
	MetricSpO2      Metric = "spo2"
	MetricHeartRate Metric = "heart_rate"
	MetricMotion    Metric = "motion"
)

// RawReading is a single timestamped measurement decoded from one source file.
type RawReading struct {
	Device        Device
	Metric        Metric
	Timestamp     time.Time
	Value         float64
	Confidence    int
	HasConfidence bool

	// Source and Line locate the reading in its input file.
	Source string
	Line   int
}

// SeriesKey groups readings of one metric from one device.
type SeriesKey struct {
	Device Device
	Metric Metric
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%s/%s", k.Device, k.Metric)
}

// Minute truncates t to the start of its calendar minute, keeping t's location.
func Minute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// SessionZone returns a fixed zone carrying the UTC offset in effect at t.
// A session rendered in it keeps one wall clock across a DST change, so its
// minute labels stay unique and increasing.
func SessionZone(t time.Time) *time.Location {
	name, offset := t.Zone()
	return time.FixedZone(name, offset)
}
