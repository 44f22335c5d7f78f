// Package writer encodes a merged table to flat files.
package writer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"sleepcompare/logger"
	"sleepcompare/models"
)

// FormatValue renders a cell; nulls become the empty string.
func FormatValue(v models.Nullable) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Value, 'g', -1, 64)
}

// WriteCSV writes the header and every row of table. Output depends only on
// the table contents.
func WriteCSV(w io.Writer, table *models.MergedTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, models.NumColumns+1)
	for _, row := range table.Rows {
		record[0] = row.Timestamp.Format(models.TimestampLayout)
		for i, v := range row.Values {
			record[i+1] = FormatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", record[0], err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes table to path through a temporary file in the same
// directory, so readers never observe a partial file.
func WriteCSVFile(path string, table *models.MergedTable) error {
	log := logger.GetLogger().WithComponent("csv_writer").WithFields(logger.Fields{"path": path})
	start := time.Now()

	err := writeAtomic(path, func(f *os.File) error {
		bw := bufio.NewWriter(f)
		if err := WriteCSV(bw, table); err != nil {
			return err
		}
		return bw.Flush()
	})
	if err != nil {
		return err
	}

	logger.LogPerformanceEntry(log, "csv_writer", "write_csv", time.Since(start), nil)
	logger.LogDataFlowEntry(log, "merger", "csv_writer", table.Len(), "merged_table")
	return nil
}

// writeAtomic runs fill against a temp file next to path and renames it into
// place once fill and close have succeeded.
func writeAtomic(path string, fill func(f *os.File) error) error {
	tmp, err := tempFile(path)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	return commit(tmp.Name(), path)
}

func tempFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	return tmp, nil
}

func commit(tmpPath, path string) error {
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpPath, err)
	}
	return nil
}

// WriteFile replaces path with data using the same temp-and-rename scheme.
func WriteFile(path string, data []byte) error {
	return writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}
