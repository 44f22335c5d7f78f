package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"sleepcompare/config"
	"sleepcompare/internal/pipeline"
	"sleepcompare/logger"
	"sleepcompare/models"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// exitCode maps the error taxonomy onto process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, models.ErrEmptyInput):
		return 2
	case errors.Is(err, models.ErrUnsupportedFormat), errors.Is(err, models.ErrMalformedInput):
		return 3
	default:
		return 1
	}
}

func run(args []string, stdout io.Writer) int {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("sleep-merge", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	output := fs.String("output", "", "Output CSV file name, relative to the session directory")
	parquet := fs.Bool("parquet", false, "Also write a Parquet copy of the merged table")
	skipInvalid := fs.Bool("skip-invalid", false, "Skip unsupported or malformed files instead of failing")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: sleep-merge [flags] <session-dir> [file ...]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return 1
	}
	if fs.NArg() > 0 {
		cfg.Input.Directory = fs.Arg(0)
	}
	if *output != "" {
		cfg.Writer.Output = *output
	}
	if *parquet {
		cfg.Writer.Parquet.Enabled = true
	}
	if *skipInvalid {
		cfg.Merger.SkipInvalid = true
	}
	if err := config.Validate(cfg); err != nil {
		log.WithError(err).Error("Invalid configuration")
		return 1
	}
	if cfg.Input.Directory == "" {
		log.Error("A session directory is required")
		fs.Usage()
		return 1
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		return 1
	}
	logger.ResetReport()

	log.WithFields(logger.Fields{
		"service":   cfg.App.Name,
		"version":   cfg.App.Version,
		"directory": cfg.Input.Directory,
	}).Info("starting sleep-merge")

	var in pipeline.Inputs
	if fs.NArg() > 1 {
		in = pipeline.FromPaths(cfg.Input.Directory, fs.Args()[1:])
	} else {
		in, err = pipeline.FromDirectory(cfg.Input.Directory)
		if err != nil {
			log.WithError(err).Error("Failed to scan session directory")
			return 1
		}
	}

	res, err := pipeline.Run(cfg, in)
	if err != nil {
		log.WithError(err).Error("Merge failed")
		return exitCode(err)
	}

	printResult(stdout, res)
	logger.Report(log)
	return 0
}

func printResult(w io.Writer, res *pipeline.Result) {
	for _, f := range res.Files {
		if f.Skipped {
			fmt.Fprintf(w, "Skipped: %s\n", f.Path)
			continue
		}
		fmt.Fprintf(w, "Parsed %s file: %s (%d readings)\n", f.Format, f.Path, f.Readings)
	}
	fmt.Fprintf(w, "Saved merged data to: %s\n", res.Outputs.CSV)
	if res.Outputs.Parquet != "" {
		fmt.Fprintf(w, "Saved Parquet copy to: %s\n", res.Outputs.Parquet)
	}

	first, last := res.Table.Range()
	fmt.Fprintln(w, "\nData Summary:")
	fmt.Fprintf(w, "Time range: %s to %s\n", first.Format(models.TimestampLayout), last.Format(models.TimestampLayout))
	fmt.Fprintf(w, "Total records: %d\n", res.Table.Len())
	fmt.Fprintln(w, "\nColumns in merged data:")
	for _, name := range models.Header()[1:] {
		fmt.Fprintf(w, "- %s\n", name)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}
}
