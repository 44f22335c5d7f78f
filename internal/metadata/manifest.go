// Package metadata describes a finished merge run in a JSON manifest kept
// next to the merged table.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"sleepcompare/models"
	"sleepcompare/writer"
)

// FormatVersion is bumped whenever the manifest layout changes.
const FormatVersion = 1

// tableNamespace seeds the content-derived table ids.
var tableNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://sleepcompare/merged-table"))

// InputFile describes one parsed export.
type InputFile struct {
	Path     string `json:"path"`
	Format   string `json:"format"`
	Readings int    `json:"readings"`
}

// DataFile describes one file written by the run.
type DataFile struct {
	Path        string `json:"path"`
	Format      string `json:"format"`
	FileSize    int64  `json:"file_size_in_bytes"`
	RecordCount int    `json:"record_count"`
}

// Manifest is the document written to <stem>.manifest.json. It holds no
// wall-clock data, so identical runs produce identical manifests.
type Manifest struct {
	FormatVersion int             `json:"format-version"`
	TableUUID     string          `json:"table-uuid"`
	Schema        []string        `json:"schema"`
	Inputs        []InputFile     `json:"inputs"`
	Outputs       []DataFile      `json:"outputs"`
	FirstMinute   string          `json:"first-minute,omitempty"`
	LastMinute    string          `json:"last-minute,omitempty"`
	Rows          int             `json:"rows"`
	Coverage      map[string]bool `json:"coverage"`
	Warnings      []string        `json:"warnings"`
}

// Generator collects the inputs and outputs of a run.
type Generator struct {
	tableUUID string
	inputs    []InputFile
	outputs   []DataFile
}

func NewGenerator() *Generator {
	return &Generator{}
}

// AddInput records a parsed file. Paths are stored by base name.
func (g *Generator) AddInput(path, format string, readings int) {
	g.inputs = append(g.inputs, InputFile{
		Path:     filepath.Base(path),
		Format:   format,
		Readings: readings,
	})
}

// AddFile records a written output. The first csv file added determines the
// table id.
func (g *Generator) AddFile(path, format string, records int) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if format == "csv" && g.tableUUID == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		g.tableUUID = uuid.NewSHA1(tableNamespace, data).String()
	}
	g.outputs = append(g.outputs, DataFile{
		Path:        filepath.Base(path),
		Format:      format,
		FileSize:    info.Size(),
		RecordCount: records,
	})
	return nil
}

// Build assembles the manifest for table.
func (g *Generator) Build(table *models.MergedTable, warnings []string) Manifest {
	m := Manifest{
		FormatVersion: FormatVersion,
		TableUUID:     g.tableUUID,
		Schema:        models.Header(),
		Inputs:        append([]InputFile{}, g.inputs...),
		Outputs:       append([]DataFile{}, g.outputs...),
		Rows:          table.Len(),
		Coverage:      make(map[string]bool, len(models.Devices)),
		Warnings:      append([]string{}, warnings...),
	}
	if table.Len() > 0 {
		first, last := table.Range()
		m.FirstMinute = first.Format(models.TimestampLayout)
		m.LastMinute = last.Format(models.TimestampLayout)
	}
	for _, d := range models.Devices {
		m.Coverage[string(d)] = table.Coverage[d]
	}
	return m
}

// WriteManifest encodes the manifest as indented JSON and replaces path with it.
func (g *Generator) WriteManifest(path string, table *models.MergedTable, warnings []string) error {
	b, err := json.MarshalIndent(g.Build(table, warnings), "", "  ")
	if err != nil {
		return err
	}
	return writer.WriteFile(path, append(b, '\n'))
}
