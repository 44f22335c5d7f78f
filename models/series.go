package models

import (
	"sort"
	"time"
)

// NormalizedPoint is the single representative value of one series for one minute.
type NormalizedPoint struct {
	Minute        time.Time
	Value         float64
	Confidence    int
	HasConfidence bool

	// Samples, Min and Max describe the raw group the value was reduced from.
	Samples int
	Min     float64
	Max     float64
}

// NormalizedSeries holds at most one point per minute for a (device, metric) pair.
type NormalizedSeries struct {
	Key    SeriesKey
	Points map[int64]NormalizedPoint
}

func NewNormalizedSeries(key SeriesKey) *NormalizedSeries {
	return &NormalizedSeries{Key: key, Points: make(map[int64]NormalizedPoint)}
}

func minuteKey(t time.Time) int64 {
	return Minute(t).Unix() / 60
}

// Put stores p under its minute, replacing any previous point.
func (s *NormalizedSeries) Put(p NormalizedPoint) {
	p.Minute = Minute(p.Minute)
	s.Points[minuteKey(p.Minute)] = p
}

// Get returns the point for the minute containing t.
func (s *NormalizedSeries) Get(t time.Time) (NormalizedPoint, bool) {
	if s == nil {
		return NormalizedPoint{}, false
	}
	p, ok := s.Points[minuteKey(t)]
	return p, ok
}

func (s *NormalizedSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Sorted returns the points ordered by minute.
func (s *NormalizedSeries) Sorted() []NormalizedPoint {
	if s == nil {
		return nil
	}
	keys := make([]int64, 0, len(s.Points))
	for k := range s.Points {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]NormalizedPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.Points[k])
	}
	return out
}

// Bounds returns the first and last minute of the series; ok is false when empty.
func (s *NormalizedSeries) Bounds() (first, last time.Time, ok bool) {
	for _, p := range s.pointsOrNil() {
		if !ok || p.Minute.Before(first) {
			first = p.Minute
		}
		if !ok || p.Minute.After(last) {
			last = p.Minute
		}
		ok = true
	}
	return first, last, ok
}

func (s *NormalizedSeries) pointsOrNil() map[int64]NormalizedPoint {
	if s == nil {
		return nil
	}
	return s.Points
}
