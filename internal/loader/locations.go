package loader

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"

	errs "github.com/forwardops/fwdsync/pkg/errors"
	"github.com/forwardops/fwdsync/pkg/logging"
)

// LocationRow is one location record from the input file. Lat and Lng are
// nil when the file did not supply a usable value; such rows are geocoded.
type LocationRow struct {
	ID      string
	Name    string
	Address string
	Lat     *float64
	Lng     *float64
}

// HasCoordinates reports whether both coordinates were supplied in the file.
func (r LocationRow) HasCoordinates() bool {
	return r.Lat != nil && r.Lng != nil
}

// Locations loads location rows from a CSV file with required columns `id`,
// `name`, and `address` and optional `lat`/`lng` columns. Incomplete rows
// are skipped with a warning; unparsable coordinates are warned about and
// treated as absent so the address gets geocoded instead.
func Locations(path string) ([]LocationRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.WrapIO("open", path, err)
	}
	defer f.Close()

	log := logging.Default()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, errs.WrapParse("csv", path, err)
	}

	cols, err := requireColumns(header, "id", "name", "address")
	if err != nil {
		return nil, err
	}
	latCol, hasLat := cols["lat"]
	lngCol, hasLng := cols["lng"]

	var rows []LocationRow

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn().Int("row", line).Err(err).Msg("Skipping malformed row")
			continue
		}

		id := field(record, cols["id"])
		name := field(record, cols["name"])
		address := field(record, cols["address"])

		if id == "" || name == "" || address == "" {
			log.Warn().Int("row", line).
				Msg("Skipping incomplete row (missing id/name/address)")
			continue
		}

		row := LocationRow{ID: id, Name: name, Address: address}
		if hasLat {
			row.Lat = parseCoordinate(field(record, latCol), "lat", id)
		}
		if hasLng {
			row.Lng = parseCoordinate(field(record, lngCol), "lng", id)
		}
		rows = append(rows, row)
	}

	log.Info().Int("count", len(rows)).Str("path", path).
		Msg("Loaded locations from CSV")
	return rows, nil
}

// parseCoordinate parses an optional coordinate value, warning on garbage.
func parseCoordinate(value, column, id string) *float64 {
	if value == "" {
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Default().Warn().
			Str("column", column).
			Str("value", value).
			Str("id", id).
			Msg("Invalid coordinate value, ignoring")
		return nil
	}
	return &v
}
