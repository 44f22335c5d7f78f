package writer

import (
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"sleepcompare/logger"
	"sleepcompare/models"
)

// ParquetRow mirrors the CSV schema. Null cells are nil pointers stored as
// OPTIONAL columns.
type ParquetRow struct {
	Timestamp        string   `parquet:"name=timestamp, type=BYTE_ARRAY, convertedtype=UTF8"`
	HeartRate        *float64 `parquet:"name=heart_rate, type=DOUBLE, repetitiontype=OPTIONAL"`
	GarminSpO2       *float64 `parquet:"name=garmin_spo2, type=DOUBLE, repetitiontype=OPTIONAL"`
	GarminConfidence *int32   `parquet:"name=garmin_confidence, type=INT32, repetitiontype=OPTIONAL"`
	O2RingSpO2       *float64 `parquet:"name=o2ring_spo2, type=DOUBLE, repetitiontype=OPTIONAL"`
	O2RingPulse      *float64 `parquet:"name=o2ring_pulse, type=DOUBLE, repetitiontype=OPTIONAL"`
	O2RingMotion     *float64 `parquet:"name=o2ring_motion, type=DOUBLE, repetitiontype=OPTIONAL"`
}

func optional(v models.Nullable) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Value
	return &f
}

func toParquetRow(row models.MergedRow) ParquetRow {
	out := ParquetRow{
		Timestamp:    row.Timestamp.Format(models.TimestampLayout),
		HeartRate:    optional(row.Get(models.ColGarminHeartRate)),
		GarminSpO2:   optional(row.Get(models.ColGarminSpO2)),
		O2RingSpO2:   optional(row.Get(models.ColO2RingSpO2)),
		O2RingPulse:  optional(row.Get(models.ColO2RingPulse)),
		O2RingMotion: optional(row.Get(models.ColO2RingMotion)),
	}
	if c := row.Get(models.ColGarminConfidence); c.Valid {
		v := int32(c.Value)
		out.GarminConfidence = &v
	}
	return out
}

func compressionCodec(name string) parquet.CompressionCodec {
	switch name {
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "uncompressed", "none":
		return parquet.CompressionCodec_UNCOMPRESSED
	default:
		return parquet.CompressionCodec_SNAPPY
	}
}

// WriteParquetFile writes table as a single-row-group Parquet file.
func WriteParquetFile(path string, table *models.MergedTable, compression string) error {
	log := logger.GetLogger().WithComponent("parquet_writer").WithFields(logger.Fields{
		"path":        path,
		"compression": compression,
	})
	start := time.Now()

	tmp, err := tempFile(path)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	fw, err := local.NewLocalFileWriter(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to open parquet file: %w", err)
	}

	pw, err := pqwriter.NewParquetWriter(fw, new(ParquetRow), 1)
	if err != nil {
		fw.Close()
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)

	for _, row := range table.Rows {
		if err := pw.Write(toParquetRow(row)); err != nil {
			pw.WriteStop()
			fw.Close()
			return fmt.Errorf("failed to write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet file: %w", err)
	}
	if err := commit(tmpPath, path); err != nil {
		return err
	}

	logger.LogPerformanceEntry(log, "parquet_writer", "write_parquet", time.Since(start), nil)
	logger.LogDataFlowEntry(log, "merger", "parquet_writer", table.Len(), "merged_table")
	return nil
}
