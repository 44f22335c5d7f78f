package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const merged = `timestamp,heart_rate,garmin_spo2,garmin_confidence,o2ring_spo2,o2ring_pulse,o2ring_motion
2024-01-01 22:00:00,58,95,3,96,57,0
2024-01-01 22:01:00,59,94,1,95,58,2
2024-01-01 22:02:00,60,,,95,59,1
`

func writeMerged(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "merged_data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestRunPlotsMergedFile(t *testing.T) {
	path := writeMerged(t, merged)

	var out bytes.Buffer
	if code := run([]string{path}, &out); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	png := strings.TrimSuffix(path, ".csv") + ".png"
	if _, err := os.Stat(png); err != nil {
		t.Fatalf("chart not written: %v", err)
	}
	for _, want := range []string{"Plot saved to:", "Total records: 3", "Confidence Level Statistics"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunExitCodes(t *testing.T) {
	headerOnly := writeMerged(t, strings.SplitN(merged, "\n", 2)[0]+"\n")
	broken := writeMerged(t, "timestamp,heart_rate\n2024-01-01 22:00:00,58\n")

	cases := []struct {
		name string
		args []string
		want int
	}{
		{"no rows", []string{headerOnly}, 2},
		{"missing columns", []string{broken}, 3},
		{"missing file", []string{filepath.Join(t.TempDir(), "x.csv")}, 1},
		{"no argument", nil, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := run(tc.args, &bytes.Buffer{}); got != tc.want {
				t.Fatalf("exit code = %d, want %d", got, tc.want)
			}
		})
	}
}
