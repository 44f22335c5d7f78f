package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"sleepcompare/models"
)

// ReadMergedCSV decodes a merged table written by the writer package.
// Columns are located by header name, so extra columns and reordering are
// tolerated; a missing schema column is ErrMalformedInput. The first
// timestamp is read in loc and the rest in its UTC offset, matching how the
// merger labels a session.
func ReadMergedCSV(r io.Reader, source string, loc *time.Location) (*models.MergedTable, error) {
	if loc == nil {
		loc = time.Local
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, models.Malformed(source, "header", errors.New("file is empty"))
	}
	if err != nil {
		return nil, models.Malformed(source, "header", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	tsCol, ok := idx[models.TimestampColumn]
	if !ok {
		return nil, models.Malformed(source, "header", fmt.Errorf("missing column %q", models.TimestampColumn))
	}
	var cols [models.NumColumns]int
	for _, c := range models.Columns() {
		i, ok := idx[c.Name()]
		if !ok {
			return nil, models.Malformed(source, "header", fmt.Errorf("missing column %q", c.Name()))
		}
		cols[c] = i
	}

	table := &models.MergedTable{Coverage: make(map[models.Device]bool)}
	zone := loc
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		where := fmt.Sprintf("line %d", line)
		if err != nil {
			return nil, models.Malformed(source, where, err)
		}
		if len(record) < len(header) {
			return nil, models.Malformed(source, where, fmt.Errorf("expected %d fields, got %d", len(header), len(record)))
		}

		ts, err := time.ParseInLocation(models.TimestampLayout, record[tsCol], zone)
		if err != nil {
			return nil, models.Malformed(source, where, err)
		}
		if line == 2 {
			zone = models.SessionZone(ts)
		}
		row := models.MergedRow{Timestamp: ts}
		for _, c := range models.Columns() {
			s := strings.TrimSpace(record[cols[c]])
			if s == "" {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, models.Malformed(source, where, fmt.Errorf("column %s: %w", c.Name(), err))
			}
			row.Values[c] = models.Some(v)
			table.Coverage[c.Device()] = true
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ReadMergedFile opens path and decodes it with ReadMergedCSV.
func ReadMergedFile(path string, loc *time.Location) (*models.MergedTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadMergedCSV(f, path, loc)
}
