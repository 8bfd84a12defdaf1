// Package pipeline contains the sequential per-record drivers. Each driver
// walks its records in file order, resolves references, pushes mutations
// through the Forward client, and accumulates failures; one record's
// failure never stops the run.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/forwardops/fwdsync/internal/forward"
	"github.com/forwardops/fwdsync/internal/loader"
)

// Devices drives the device pipeline.
type Devices struct {
	Forward *forward.Client
	Index   *forward.LocationIndex
	Tags    forward.TagSet
	Log     zerolog.Logger
}

// Run processes the device rows in order and returns the number of rows
// that failed. A row with an unknown tag is skipped entirely: neither the
// location update nor the tag attach is attempted for it.
func (p *Devices) Run(ctx context.Context, rows []loader.DeviceRow) int {
	failures := 0

	for _, row := range rows {
		if row.Tag != "" && !p.Tags.Contains(row.Tag) {
			p.Log.Error().
				Str("device", row.Device).
				Str("tag", row.Tag).
				Msg("Tag not found in Forward")
			failures++
			continue
		}

		locationID, ok := p.Index.Resolve(row.Location)
		if !ok {
			p.Log.Error().
				Str("device", row.Device).
				Str("location", row.Location).
				Msg("No location found matching name")
			failures++
			continue
		}

		p.Log.Info().
			Str("device", row.Device).
			Str("location", row.Location).
			Str("location_id", locationID).
			Str("tag", row.Tag).
			Msg("Processing device")

		if err := p.Forward.SetDeviceLocation(ctx, row.Device, locationID); err != nil {
			p.Log.Error().
				Err(err).
				Str("device", row.Device).
				Msg("Failed to update device location")
			failures++
			continue
		}

		if row.Tag != "" {
			// The location update above is not rolled back if this fails.
			if err := p.Forward.AddTag(ctx, row.Device, row.Tag); err != nil {
				p.Log.Error().
					Err(err).
					Str("device", row.Device).
					Str("tag", row.Tag).
					Msg("Failed to add tag to device")
				failures++
			}
		}
	}

	return failures
}
