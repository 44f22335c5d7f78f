// Package pipeline runs the parse, normalize, merge and write stages for one
// session.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"sleepcompare/config"
	"sleepcompare/internal/metadata"
	"sleepcompare/logger"
	"sleepcompare/models"
	"sleepcompare/processor"
	"sleepcompare/reader"
	"sleepcompare/writer"
)

// Inputs names the files of one session and the directory outputs go to.
type Inputs struct {
	Dir   string
	Paths []string
	// Notes are warnings raised while collecting inputs, carried into the result.
	Notes []string
}

// errNoDirectory rejects runs that would fall back to the working directory.
var errNoDirectory = errors.New("no session directory given")

// FromDirectory discovers the export files in dir.
func FromDirectory(dir string) (Inputs, error) {
	if dir == "" {
		return Inputs{}, errNoDirectory
	}
	d, err := reader.Discover(dir)
	if err != nil {
		return Inputs{}, err
	}
	in := Inputs{Dir: dir, Paths: d.Files()}
	for _, f := range d.Missing() {
		in.Notes = append(in.Notes, fmt.Sprintf("no %s file matching %s", f, f.Pattern()))
	}
	for _, p := range d.Ignored {
		in.Notes = append(in.Notes, fmt.Sprintf("ignored additional file %s", filepath.Base(p)))
	}
	return in, nil
}

// FromPaths uses explicit files; outputs go to dir.
func FromPaths(dir string, paths []string) Inputs {
	return Inputs{Dir: dir, Paths: append([]string(nil), paths...)}
}

// FileSummary reports how one input was handled.
type FileSummary struct {
	Path     string
	Format   reader.Format
	Readings int
	Skipped  bool
	Err      error
}

// Outputs lists the files written by a run; empty paths were not written.
type Outputs struct {
	CSV      string
	Parquet  string
	Manifest string
}

// Result is the outcome of a successful run.
type Result struct {
	Table    *models.MergedTable
	Files    []FileSummary
	Warnings []string
	Outputs  Outputs
}

// OutputPaths resolves the output file names for cfg against dir.
func OutputPaths(cfg *config.Config, dir string) Outputs {
	out := cfg.Writer.Output
	if !filepath.IsAbs(out) {
		out = filepath.Join(dir, out)
	}
	stem := strings.TrimSuffix(out, filepath.Ext(out))

	o := Outputs{CSV: out}
	if cfg.Writer.Parquet.Enabled {
		o.Parquet = stem + ".parquet"
	}
	if cfg.Writer.Manifest {
		o.Manifest = stem + ".manifest.json"
	}
	return o
}

// skippable reports whether a failed input may be left out of the run.
// Unsupported files are always skipped when other inputs exist; malformed
// ones only with merger.skip_invalid.
func skippable(cfg *config.Config, err error, inputs int) bool {
	if errors.Is(err, models.ErrUnsupportedFormat) {
		return cfg.Merger.SkipInvalid || inputs > 1
	}
	return cfg.Merger.SkipInvalid && errors.Is(err, models.ErrMalformedInput)
}

// Run parses every input, merges the readings and writes the outputs. An
// unsupported file is skipped with a warning unless it is the only input, or
// no other input could be parsed. Unless merger.skip_invalid is set, the
// first malformed file fails the run.
func Run(cfg *config.Config, in Inputs) (*Result, error) {
	log := logger.GetLogger().WithComponent("pipeline")
	start := time.Now()

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	dir := in.Dir
	if dir == "" {
		dir = cfg.Input.Directory
	}
	if dir == "" {
		return nil, errNoDirectory
	}
	opts := reader.Options{Location: loc, O2RingInterval: cfg.Input.O2RingInterval}

	res := &Result{Warnings: append([]string(nil), in.Notes...)}
	for _, note := range in.Notes {
		log.Warn(note)
	}

	var readings []models.RawReading
	var parsed int
	var unsupported error
	for _, path := range in.Paths {
		fr, err := reader.ParseFile(path, opts)
		if err != nil {
			if skippable(cfg, err, len(in.Paths)) {
				if unsupported == nil && errors.Is(err, models.ErrUnsupportedFormat) {
					unsupported = err
				}
				log.WithError(err).WithFields(logger.Fields{"path": path}).Warn("skipping invalid input")
				res.Files = append(res.Files, FileSummary{Path: path, Skipped: true, Err: err})
				res.Warnings = append(res.Warnings, fmt.Sprintf("skipped %s: %v", filepath.Base(path), err))
				continue
			}
			return nil, err
		}
		parsed++
		res.Files = append(res.Files, FileSummary{Path: path, Format: fr.Format, Readings: len(fr.Readings)})
		readings = append(readings, fr.Readings...)
	}

	if parsed == 0 && unsupported != nil {
		return nil, unsupported
	}

	if len(readings) == 0 {
		return nil, fmt.Errorf("%w: no readings in %d input file(s)", models.ErrEmptyInput, len(in.Paths))
	}

	series := processor.NewNormalizer(cfg.Normalizer).Normalize(readings)
	table, warnings, err := processor.NewMerger(cfg.Merger).Merge(series)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		res.Warnings = append(res.Warnings, w.String())
	}
	res.Table = table

	if err := res.write(cfg, dir); err != nil {
		return nil, err
	}

	logger.LogPerformanceEntry(log, "pipeline", "run", time.Since(start), logger.Fields{
		"files": len(in.Paths),
		"rows":  table.Len(),
	})
	return res, nil
}

func (r *Result) write(cfg *config.Config, dir string) error {
	out := OutputPaths(cfg, dir)
	gen := metadata.NewGenerator()
	for _, f := range r.Files {
		if !f.Skipped {
			gen.AddInput(f.Path, f.Format.String(), f.Readings)
		}
	}

	if err := writer.WriteCSVFile(out.CSV, r.Table); err != nil {
		return err
	}
	r.Outputs.CSV = out.CSV
	if err := gen.AddFile(out.CSV, "csv", r.Table.Len()); err != nil {
		return err
	}

	if out.Parquet != "" {
		if err := writer.WriteParquetFile(out.Parquet, r.Table, cfg.Writer.Parquet.Compression); err != nil {
			return err
		}
		r.Outputs.Parquet = out.Parquet
		if err := gen.AddFile(out.Parquet, "parquet", r.Table.Len()); err != nil {
			return err
		}
	}

	if out.Manifest != "" {
		if err := gen.WriteManifest(out.Manifest, r.Table, r.Warnings); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
		r.Outputs.Manifest = out.Manifest
	}
	return nil
}
