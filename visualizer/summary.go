package visualizer

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"sleepcompare/models"
	"sleepcompare/processor"
)

// ConfidenceStats describes Garmin SpO2 values sharing one confidence level.
type ConfidenceStats struct {
	Level int
	processor.Stats
}

// Summary is the console report printed next to the chart.
type Summary struct {
	First      time.Time
	Last       time.Time
	Rows       int
	Columns    map[models.Column]processor.Stats
	Confidence []ConfidenceStats
	Motion     processor.Stats
}

// Summarize computes per-column statistics of table. Nulls are ignored.
func Summarize(table *models.MergedTable) Summary {
	s := Summary{
		Rows:    table.Len(),
		Columns: processor.TableStats(table),
	}
	s.First, s.Last = table.Range()
	s.Motion = s.Columns[models.ColO2RingMotion]

	byLevel := map[int][]float64{}
	for _, row := range table.Rows {
		c, v := row.Get(models.ColGarminConfidence), row.Get(models.ColGarminSpO2)
		if c.Valid && v.Valid {
			byLevel[int(c.Value)] = append(byLevel[int(c.Value)], v.Value)
		}
	}
	for _, level := range sortedLevels(byLevel) {
		s.Confidence = append(s.Confidence, ConfidenceStats{Level: level, Stats: processor.Describe(byLevel[level])})
	}
	return s
}

func sortedLevels(m map[int][]float64) []int {
	levels := make([]int, 0, len(m))
	for l := range m {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	return levels
}

var meanLines = []struct {
	label string
	col   models.Column
	unit  string
}{
	{"Garmin SpO2", models.ColGarminSpO2, "%"},
	{"O2Ring SpO2", models.ColO2RingSpO2, "%"},
	{"Garmin HR", models.ColGarminHeartRate, " bpm"},
	{"O2Ring HR", models.ColO2RingPulse, " bpm"},
}

// WriteSummary prints s in a fixed layout.
func WriteSummary(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Data Summary:")
	if s.Rows > 0 {
		fmt.Fprintf(tw, "Time range: %s to %s\n", s.First.Format(models.TimestampLayout), s.Last.Format(models.TimestampLayout))
	}
	fmt.Fprintf(tw, "Total records: %d\n\n", s.Rows)

	fmt.Fprintln(tw, "column\tcount\tmean\tstd\tmin\tmax")
	for _, c := range models.Columns() {
		st := s.Columns[c]
		if st.Count == 0 {
			fmt.Fprintf(tw, "%s\t0\t-\t-\t-\t-\n", c.Name())
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n", c.Name(), st.Count, st.Mean, st.Std, st.Min, st.Max)
	}

	fmt.Fprintln(tw, "\nMean values:")
	for _, m := range meanLines {
		if st := s.Columns[m.col]; st.Count > 0 {
			fmt.Fprintf(tw, "%s:\t%.1f%s\n", m.label, st.Mean, m.unit)
		} else {
			fmt.Fprintf(tw, "%s:\tn/a\n", m.label)
		}
	}

	if len(s.Confidence) > 0 {
		fmt.Fprintln(tw, "\nGarmin SpO2 Confidence Level Statistics:")
		fmt.Fprintln(tw, "confidence\tcount\tmean\tstd")
		for _, c := range s.Confidence {
			fmt.Fprintf(tw, "%d\t%d\t%.2f\t%.2f\n", c.Level, c.Count, c.Mean, c.Std)
		}
	}

	if s.Motion.Count > 0 {
		fmt.Fprintln(tw, "\nMotion Level Statistics:")
		fmt.Fprintf(tw, "Total measurements:\t%d\n", s.Motion.Count)
		fmt.Fprintf(tw, "Mean motion level:\t%.2f\n", s.Motion.Mean)
		fmt.Fprintf(tw, "Max motion level:\t%.2f\n", s.Motion.Max)
		fmt.Fprintf(tw, "Motion std dev:\t%.2f\n", s.Motion.Std)
	}

	return tw.Flush()
}
