package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sleepcompare/config"
	"sleepcompare/logger"
	"sleepcompare/models"
	"sleepcompare/reader"
	"sleepcompare/visualizer"
	"sleepcompare/writer"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyInput):
		return 2
	case errors.Is(err, models.ErrMalformedInput), errors.Is(err, models.ErrUnsupportedFormat):
		return 3
	default:
		return 1
	}
}

func run(args []string, stdout io.Writer) int {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("sleep-plot", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	output := fs.String("output", "", "Output PNG file (default: <input>.png)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: sleep-plot [flags] <merged.csv>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	input := fs.Arg(0)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return 1
	}
	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		return 1
	}
	loc, err := cfg.Location()
	if err != nil {
		log.WithError(err).Error("Invalid timezone")
		return 1
	}

	entry := log.WithComponent("visualizer").WithFields(logger.Fields{"input": input})
	entry.Info("loading merged data")

	table, err := reader.ReadMergedFile(input, loc)
	if err != nil {
		entry.WithError(err).Error("Failed to read merged data")
		return exitCode(err)
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ".png"
	}
	opts := visualizer.Options{Title: cfg.Plot.Title, Width: cfg.Plot.Width, PanelHeight: cfg.Plot.PanelHeight}

	var buf bytes.Buffer
	if err := visualizer.Render(&buf, table, opts); err != nil {
		entry.WithError(err).Error("Failed to render chart")
		return exitCode(err)
	}
	if err := writer.WriteFile(out, buf.Bytes()); err != nil {
		entry.WithError(err).Error("Failed to write chart")
		return 1
	}
	fmt.Fprintf(stdout, "Plot saved to: %s\n\n", out)

	if err := visualizer.WriteSummary(stdout, visualizer.Summarize(table)); err != nil {
		entry.WithError(err).Error("Failed to print summary")
		return 1
	}
	return 0
}
