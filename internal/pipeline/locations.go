package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/forwardops/fwdsync/internal/forward"
	"github.com/forwardops/fwdsync/internal/geocode"
	"github.com/forwardops/fwdsync/internal/loader"
	"github.com/forwardops/fwdsync/pkg/constants"
	errs "github.com/forwardops/fwdsync/pkg/errors"
)

// Locations drives the location pipeline: resolve coordinates for every
// row, then create the locations remotely (or write the prepared payload
// to a file in dry-run mode).
type Locations struct {
	Forward  *forward.Client
	Geocoder *geocode.Client
	Log      zerolog.Logger

	DryRun     bool
	OutputPath string

	// Delay is the fixed pause after each geocoding call. Rows with
	// coordinates already supplied never incur it.
	Delay time.Duration

	// Sleep is replaceable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// Run processes the location rows in order and returns the number of rows
// that failed. It errors out only when no row at all could be prepared,
// since a run with nothing to push is a setup failure.
func (p *Locations) Run(ctx context.Context, rows []loader.LocationRow) (int, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	failures := 0
	prepared := make([]forward.LocationPayload, 0, len(rows))

	for i, row := range rows {
		if row.HasCoordinates() {
			p.Log.Info().
				Int("row", i+1).
				Int("total", len(rows)).
				Str("name", row.Name).
				Str("id", row.ID).
				Float64("lat", *row.Lat).
				Float64("lng", *row.Lng).
				Msg("Using existing coordinates")
			prepared = append(prepared, forward.LocationPayload{
				ID: row.ID, Name: row.Name, Lat: *row.Lat, Lng: *row.Lng,
			})
			// No delay for rows that needed no geocoding.
			continue
		}

		p.Log.Info().
			Int("row", i+1).
			Int("total", len(rows)).
			Str("name", row.Name).
			Str("id", row.ID).
			Str("address", row.Address).
			Msg("Geocoding address")

		lat, lng, err := p.Geocoder.Geocode(ctx, row.Address)
		if err != nil {
			p.Log.Error().
				Err(err).
				Str("name", row.Name).
				Str("address", row.Address).
				Msg("Geocoding failed")
			failures++
		} else {
			prepared = append(prepared, forward.LocationPayload{
				ID: row.ID, Name: row.Name, Lat: lat, Lng: lng,
			})
		}

		sleep(p.Delay)
	}

	p.Log.Info().
		Int("prepared", len(prepared)).
		Int("total", len(rows)).
		Msg("Prepared coordinates for locations")

	if len(prepared) == 0 {
		return failures, errs.New("no locations successfully prepared with coordinates")
	}

	payload, err := json.MarshalIndent(prepared, "", "  ")
	if err != nil {
		return failures, errs.WrapParse("json", "location payload", err)
	}
	p.Log.Info().RawJSON("payload", payload).Msg("Final location payload")

	if p.DryRun {
		if err := os.WriteFile(p.OutputPath, payload, constants.FilePermissions); err != nil {
			return failures, errs.WrapIO("write", p.OutputPath, err)
		}
		p.Log.Info().Str("path", p.OutputPath).
			Msg("Dry run: payload written, skipping POST")
		return failures, nil
	}

	for _, loc := range prepared {
		if err := p.Forward.CreateLocation(ctx, loc); err != nil {
			p.Log.Error().Err(err).Str("id", loc.ID).
				Msg("Failed to create location")
			failures++
		}
	}

	return failures, nil
}
