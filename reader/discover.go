package reader

import (
	"fmt"
	"os"
	"path/filepath"
)

// Discovery is the result of scanning a session directory.
type Discovery struct {
	Dir string
	// Paths holds the first matching file per format, in lexical order.
	Paths map[Format]string
	// Ignored lists further matches that were not selected.
	Ignored []string
}

// Files returns the selected paths in format order.
func (d *Discovery) Files() []string {
	var out []string
	for _, f := range Formats {
		if p, ok := d.Paths[f]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Missing lists the formats for which no file was found.
func (d *Discovery) Missing() []Format {
	var out []Format
	for _, f := range Formats {
		if _, ok := d.Paths[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// Discover scans dir (not recursively) for export files. Only names matching
// a known pattern are considered; everything else in the directory is left alone.
func Discover(dir string) (*Discovery, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	d := &Discovery{Dir: dir, Paths: make(map[Format]string)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, err := DetectFormat(e.Name())
		if err != nil {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, taken := d.Paths[f]; taken {
			d.Ignored = append(d.Ignored, path)
			continue
		}
		d.Paths[f] = path
	}
	return d, nil
}
