package reader

import (
	"fmt"
	"path/filepath"
	"strings"

	"sleepcompare/models"
)

// Format is the closed set of supported export formats.
type Format int

const (
	FormatUnknown Format = iota
	FormatGarminPulse
	FormatGarminSpO2
	FormatO2Ring
)

// Formats lists every supported format in discovery order.
var Formats = []Format{FormatGarminPulse, FormatGarminSpO2, FormatO2Ring}

// formatPatterns are matched against the lower-cased file name.
var formatPatterns = map[Format]string{
	FormatGarminPulse: "garmin*-pulse.json",
	FormatGarminSpO2:  "garmin*-spo2.json",
	FormatO2Ring:      "o2ring*.csv",
}

func (f Format) String() string {
	switch f {
	case FormatGarminPulse:
		return "garmin_pulse"
	case FormatGarminSpO2:
		return "garmin_spo2"
	case FormatO2Ring:
		return "o2ring"
	}
	return "unknown"
}

// Pattern returns the file-name glob that selects f.
func (f Format) Pattern() string {
	return formatPatterns[f]
}

// Device returns the wearable that writes files of format f.
func (f Format) Device() models.Device {
	if f == FormatO2Ring {
		return models.DeviceO2Ring
	}
	return models.DeviceGarmin
}

// DetectFormat selects the format from the file name alone. Names that match
// no pattern fail with models.ErrUnsupportedFormat.
func DetectFormat(path string) (Format, error) {
	base := strings.ToLower(filepath.Base(path))
	for _, f := range Formats {
		if ok, _ := filepath.Match(formatPatterns[f], base); ok {
			return f, nil
		}
	}
	return FormatUnknown, models.Unsupported(path, fmt.Errorf("name matches none of %s", strings.Join(patternList(), ", ")))
}

func patternList() []string {
	out := make([]string, 0, len(Formats))
	for _, f := range Formats {
		out = append(out, formatPatterns[f])
	}
	return out
}
