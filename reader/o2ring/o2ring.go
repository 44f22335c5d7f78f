// Package o2ring decodes CSV exports of the Wellue O2Ring oximeter.
package o2ring

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sleepcompare/models"
)

// DefaultInterval is the O2Ring sampling period.
const DefaultInterval = 4 * time.Second

const (
	colTime   = "time"
	colOxygen = "oxygen level"
	colPulse  = "pulse rate"
	colMotion = "motion"
)

// rowLayouts are the accepted forms of the Time column, the first being the
// one written by the O2 app ("22:00:04 Jan 01 2024").
var rowLayouts = []string{
	"15:04:05 Jan 02 2006",
	"15:04:05 Jan 2 2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// fileStamp finds the recording start in names like "O2Ring 1501_20240101220000.csv".
var fileStamp = regexp.MustCompile(`(\d{14})`)

// TimingMode tells how row timestamps are obtained.
type TimingMode int

const (
	// TimingExplicit reads a timestamp from every row's Time column.
	TimingExplicit TimingMode = iota
	// TimingInterval derives row i's timestamp as start + i*interval.
	TimingInterval
)

func (m TimingMode) String() string {
	if m == TimingInterval {
		return "interval"
	}
	return "explicit"
}

// Parser decodes one export into spo2, heart_rate and motion readings.
type Parser struct {
	Location *time.Location
	Interval time.Duration
}

func NewParser(loc *time.Location, interval time.Duration) *Parser {
	if loc == nil {
		loc = time.Local
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Parser{Location: loc, Interval: interval}
}

type layout struct {
	mode    TimingMode
	start   time.Time
	timeCol int
	oxygen  int
	pulse   int
	motion  int
	width   int
}

func (p *Parser) Parse(r io.Reader, source string) ([]models.RawReading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, models.Malformed(source, "line 1", err)
	}

	lay, err := p.detectLayout(header, source)
	if err != nil {
		return nil, models.Malformed(source, "header", err)
	}

	var readings []models.RawReading
	for row := 0; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			loc := "data"
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				loc = fmt.Sprintf("line %d", pe.Line)
			}
			return nil, models.Malformed(source, loc, err)
		}
		line, _ := cr.FieldPos(0)
		loc := fmt.Sprintf("line %d", line)
		if len(record) < lay.width {
			return nil, models.Malformed(source, loc, fmt.Errorf("expected %d fields, got %d", lay.width, len(record)))
		}

		ts, err := p.rowTime(lay, record, row)
		if err != nil {
			return nil, models.Malformed(source, loc, err)
		}

		for _, cell := range []struct {
			idx    int
			metric models.Metric
		}{
			{lay.oxygen, models.MetricSpO2},
			{lay.pulse, models.MetricHeartRate},
			{lay.motion, models.MetricMotion},
		} {
			v, ok := parseCell(record[cell.idx])
			if !ok {
				continue
			}
			readings = append(readings, models.RawReading{
				Device:    models.DeviceO2Ring,
				Metric:    cell.metric,
				Timestamp: ts,
				Value:     v,
				Source:    source,
				Line:      line,
			})
		}
	}

	return readings, nil
}

func (p *Parser) detectLayout(header []string, source string) (layout, error) {
	idx := map[string]int{}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	lay := layout{timeCol: -1}
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{colOxygen, &lay.oxygen},
		{colPulse, &lay.pulse},
		{colMotion, &lay.motion},
	} {
		i, ok := idx[c.name]
		if !ok {
			return lay, fmt.Errorf("missing column %q", c.name)
		}
		*c.dst = i
	}

	if i, ok := idx[colTime]; ok {
		lay.mode = TimingExplicit
		lay.timeCol = i
	} else {
		start, err := p.startFromName(source)
		if err != nil {
			return lay, err
		}
		lay.mode = TimingInterval
		lay.start = start
	}

	for _, i := range []int{lay.timeCol, lay.oxygen, lay.pulse, lay.motion} {
		if i+1 > lay.width {
			lay.width = i + 1
		}
	}
	return lay, nil
}

// DetectTiming reports which timing mode a header selects for the given file.
func (p *Parser) DetectTiming(header []string, source string) (TimingMode, error) {
	lay, err := p.detectLayout(header, source)
	return lay.mode, err
}

func (p *Parser) startFromName(source string) (time.Time, error) {
	m := fileStamp.FindString(filepath.Base(source))
	if m == "" {
		return time.Time{}, fmt.Errorf("no Time column and no start timestamp in file name")
	}
	start, err := time.ParseInLocation("20060102150405", m, p.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("start timestamp %q in file name: %w", m, err)
	}
	return start, nil
}

func (p *Parser) rowTime(lay layout, record []string, row int) (time.Time, error) {
	if lay.mode == TimingInterval {
		return lay.start.Add(time.Duration(row) * p.Interval), nil
	}
	s := strings.TrimSpace(record[lay.timeCol])
	for _, l := range rowLayouts {
		if t, err := time.ParseInLocation(l, s, p.Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable Time %q", s)
}

// parseCell returns ok=false for the device's placeholders ("--", blanks) and
// any other non-numeric content.
func parseCell(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "--" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
