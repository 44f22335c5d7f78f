package processor

import (
	"fmt"
	"time"

	"sleepcompare/config"
	"sleepcompare/logger"
	"sleepcompare/models"
)

// WarningKind classifies a non-fatal merge outcome.
type WarningKind string

const WarningPartialCoverage WarningKind = "partial_coverage"

// Warning is a non-fatal condition reported alongside a merged table.
type Warning struct {
	Kind    WarningKind
	Device  models.Device
	Message string
}

func (w Warning) String() string { return w.Message }

type columnSource struct {
	key        models.SeriesKey
	confidence bool
}

// columnSources maps every output column to the series that fills it.
var columnSources = [models.NumColumns]columnSource{
	models.ColGarminHeartRate:  {key: models.SeriesKey{Device: models.DeviceGarmin, Metric: models.MetricHeartRate}},
	models.ColGarminSpO2:       {key: models.SeriesKey{Device: models.DeviceGarmin, Metric: models.MetricSpO2}},
	models.ColGarminConfidence: {key: models.SeriesKey{Device: models.DeviceGarmin, Metric: models.MetricSpO2}, confidence: true},
	models.ColO2RingSpO2:       {key: models.SeriesKey{Device: models.DeviceO2Ring, Metric: models.MetricSpO2}},
	models.ColO2RingPulse:      {key: models.SeriesKey{Device: models.DeviceO2Ring, Metric: models.MetricHeartRate}},
	models.ColO2RingMotion:     {key: models.SeriesKey{Device: models.DeviceO2Ring, Metric: models.MetricMotion}},
}

// maxSpan bounds the merged range. A longer session points at a corrupt
// timestamp rather than a night of sleep.
const maxSpan = 7 * 24 * time.Hour

// inputOf names the export a series comes from. Garmin writes one file per
// metric; the O2Ring writes all of its metrics to one file.
func inputOf(k models.SeriesKey) string {
	if k.Device == models.DeviceO2Ring {
		return string(k.Device)
	}
	return k.String()
}

// SourceOf returns the series key feeding column c.
func SourceOf(c models.Column) models.SeriesKey { return columnSources[c].key }

// Merger joins normalized series onto a gapless per-minute time base.
type Merger struct {
	join string
	log  *logger.Log
}

func NewMerger(cfg config.MergerConfig) *Merger {
	join := cfg.Join
	if join == "" {
		join = config.JoinUnion
	}
	return &Merger{join: join, log: logger.GetLogger()}
}

type span struct {
	first, last time.Time
	ok          bool
}

func (s *span) extend(first, last time.Time) {
	if !s.ok || first.Before(s.first) {
		s.first = first
	}
	if !s.ok || last.After(s.last) {
		s.last = last
	}
	s.ok = true
}

// Merge builds the merged table. It fails with ErrEmptyInput when no series
// has data, or when intersection is requested and the inputs never overlap,
// and with ErrMalformedInput when the range exceeds maxSpan. A single covered
// device is reported as a WarningPartialCoverage.
func (m *Merger) Merge(series map[models.SeriesKey]*models.NormalizedSeries) (*models.MergedTable, []Warning, error) {
	log := m.log.WithComponent("merger")

	devices := make(map[models.Device]bool)
	inputs := make(map[string]*span)
	var all span
	for _, c := range columnSources {
		first, last, ok := series[c.key].Bounds()
		if !ok {
			continue
		}
		devices[c.key.Device] = true
		in, found := inputs[inputOf(c.key)]
		if !found {
			in = &span{}
			inputs[inputOf(c.key)] = in
		}
		in.extend(first, last)
		all.extend(first, last)
	}
	if !all.ok {
		return nil, nil, fmt.Errorf("%w: no readings from any device", models.ErrEmptyInput)
	}

	start, end := all.first, all.last
	if m.join == config.JoinIntersection {
		for _, in := range inputs {
			if in.first.After(start) {
				start = in.first
			}
			if in.last.Before(end) {
				end = in.last
			}
		}
		if start.After(end) {
			return nil, nil, fmt.Errorf("%w: input time ranges do not overlap", models.ErrEmptyInput)
		}
	}
	if end.Sub(start) > maxSpan {
		return nil, nil, fmt.Errorf("%w: merged range %s to %s is longer than %s",
			models.ErrMalformedInput, start.Format(models.TimestampLayout), end.Format(models.TimestampLayout), maxSpan)
	}

	table := &models.MergedTable{Coverage: make(map[models.Device]bool)}
	for _, dev := range models.Devices {
		table.Coverage[dev] = devices[dev]
	}

	for t := start; !t.After(end); t = t.Add(time.Minute) {
		row := models.MergedRow{Timestamp: t}
		for i, c := range columnSources {
			p, ok := series[c.key].Get(t)
			if !ok {
				continue
			}
			switch {
			case c.confidence && p.HasConfidence:
				row.Values[i] = models.Some(float64(p.Confidence))
			case !c.confidence:
				row.Values[i] = models.Some(p.Value)
			}
		}
		table.Rows = append(table.Rows, row)
	}

	var warnings []Warning
	for _, dev := range models.Devices {
		if table.Coverage[dev] {
			continue
		}
		w := Warning{
			Kind:    WarningPartialCoverage,
			Device:  dev,
			Message: fmt.Sprintf("no %s data; its columns are empty", dev),
		}
		warnings = append(warnings, w)
		log.WithFields(logger.Fields{"device": string(dev)}).Warn(w.Message)
	}

	first, last := table.Range()
	log.WithFields(logger.Fields{
		"rows":  table.Len(),
		"join":  m.join,
		"first": first.Format(models.TimestampLayout),
		"last":  last.Format(models.TimestampLayout),
	}).Info("merged series")

	return table, warnings, nil
}
