// Package loader reads and validates the delimited input files. Schema
// problems (missing required columns) and, for the device file, any invalid
// row are fatal before network access; the location file skips bad rows
// with a warning instead.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	errs "github.com/forwardops/fwdsync/pkg/errors"
	"github.com/forwardops/fwdsync/pkg/logging"
)

// tagPattern restricts tags to letters, numbers, underscores, and hyphens.
var tagPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// DeviceRow is one validated device-to-location mapping.
type DeviceRow struct {
	Device   string
	Location string
	Tag      string
}

// Devices loads device rows from a CSV file with required columns `device`
// and `location` and an optional `tag` column. Row-level problems are
// collected and reported as one aggregate error: a partially valid device
// file is never pushed.
func Devices(path string) ([]DeviceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.WrapIO("open", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, errs.WrapParse("csv", path, err)
	}

	cols, err := requireColumns(header, "device", "location")
	if err != nil {
		return nil, err
	}
	tagCol, hasTag := cols["tag"]

	var rows []DeviceRow
	var rowErrs []string

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		device := field(record, cols["device"])
		location := field(record, cols["location"])
		tag := ""
		if hasTag {
			tag = field(record, tagCol)
		}

		if device == "" || location == "" {
			rowErrs = append(rowErrs, fmt.Sprintf("row %d: missing device/location", line))
			continue
		}
		if tag != "" && !tagPattern.MatchString(tag) {
			rowErrs = append(rowErrs, fmt.Sprintf(
				"row %d: invalid tag %q (must be letters/numbers/_/-)", line, tag))
			continue
		}

		rows = append(rows, DeviceRow{Device: device, Location: location, Tag: tag})
	}

	if len(rowErrs) > 0 {
		return nil, fmt.Errorf("%w: CSV validation errors:\n%s",
			errs.ErrInvalidInput, strings.Join(rowErrs, "\n"))
	}

	logging.Default().Info().Int("count", len(rows)).Str("path", path).
		Msg("Loaded device mappings from CSV")
	return rows, nil
}

// requireColumns maps header names to indexes and fails when a required
// column is absent.
func requireColumns(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}

	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errs.NewValidationError("header", header,
			fmt.Sprintf("CSV missing required columns: %s", strings.Join(missing, ", ")))
	}
	return cols, nil
}

// field returns the trimmed value at index i, or "" when the row is short.
func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
