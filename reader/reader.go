// Package reader turns device export files into raw readings.
package reader

import (
	"fmt"
	"io"
	"os"
	"time"

	"sleepcompare/logger"
	"sleepcompare/models"
	"sleepcompare/reader/garmin"
	"sleepcompare/reader/o2ring"
)

// Parser decodes one export stream. source names the stream in errors and,
// for O2Ring interval mode, carries the recording start in its file name.
type Parser interface {
	Parse(r io.Reader, source string) ([]models.RawReading, error)
}

// Options carries the parser settings taken from configuration.
type Options struct {
	Location       *time.Location
	O2RingInterval time.Duration
}

// ParserFor returns the parser for a detected format.
func ParserFor(f Format, opts Options) (Parser, error) {
	switch f {
	case FormatGarminPulse:
		return garmin.NewPulseParser(opts.Location), nil
	case FormatGarminSpO2:
		return garmin.NewSpO2Parser(opts.Location), nil
	case FormatO2Ring:
		return o2ring.NewParser(opts.Location, opts.O2RingInterval), nil
	}
	return nil, models.Unsupported("", fmt.Errorf("no parser for format %s", f))
}

// FileResult is the outcome of parsing one input file.
type FileResult struct {
	Path     string
	Format   Format
	Readings []models.RawReading
}

// ParseFile detects the format of path, then opens, decodes and closes it.
func ParseFile(path string, opts Options) (*FileResult, error) {
	log := logger.GetLogger().WithComponent("reader").WithFields(logger.Fields{"path": path})

	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	parser, err := ParserFor(format, opts)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	start := time.Now()
	readings, err := parser.Parse(f, path)
	if err != nil {
		return nil, err
	}

	logger.LogPerformanceEntry(log, "reader", "parse_file", time.Since(start), logger.Fields{
		"format": format.String(),
	})
	logger.LogDataFlowEntry(log, path, "reader", len(readings), format.String())

	return &FileResult{Path: path, Format: format, Readings: readings}, nil
}
