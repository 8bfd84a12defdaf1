package forward

import (
	"context"
	"net/http"

	errs "github.com/forwardops/fwdsync/pkg/errors"
	"github.com/forwardops/fwdsync/pkg/logging"

	"github.com/forwardops/fwdsync/internal/transport"
)

// Location is a location entry as returned by the Forward API.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LocationPayload is the body for creating a location.
type LocationPayload struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// LocationIndex maps case-folded location names to their IDs. It is built
// once per run and read-only afterwards.
type LocationIndex struct {
	byName map[string]string
}

// Resolve returns the location ID registered for the given name,
// case-insensitively.
func (idx *LocationIndex) Resolve(name string) (string, bool) {
	id, ok := idx.byName[foldKey(name)]
	return id, ok
}

// Len returns the number of distinct names in the index.
func (idx *LocationIndex) Len() int {
	return len(idx.byName)
}

// Locations fetches the full location collection and builds the name
// lookup. Duplicate names mapping to different IDs are reported as warnings
// and the later entry wins. An empty or structurally unexpected response is
// an error: without locations no reference can be resolved.
func (c *Client) Locations(ctx context.Context) (*LocationIndex, error) {
	log := logging.Default()
	url := c.networkURL("/locations")
	log.Info().Str("url", url).Msg("Fetching locations")

	resp, err := c.transport.Do(ctx, transport.Request{
		Method: http.MethodGet,
		URL:    url,
	})
	if err != nil {
		return nil, err
	}

	var locations []Location
	if err := transport.DecodeJSON(resp, &locations); err != nil {
		return nil, err
	}

	byName := make(map[string]string, len(locations))
	for _, loc := range locations {
		if loc.ID == "" || loc.Name == "" {
			continue
		}
		key := foldKey(loc.Name)
		if existing, ok := byName[key]; ok && existing != loc.ID {
			log.Warn().
				Str("name", loc.Name).
				Str("previous_id", existing).
				Str("id", loc.ID).
				Msg("Duplicate location name detected")
		}
		byName[key] = loc.ID
	}

	if len(byName) == 0 {
		return nil, errs.New("no locations returned from API; cannot continue")
	}

	log.Info().Int("count", len(byName)).Msg("Discovered locations from API")
	return &LocationIndex{byName: byName}, nil
}

// CreateLocation creates a single location with resolved coordinates.
func (c *Client) CreateLocation(ctx context.Context, loc LocationPayload) error {
	_, err := c.transport.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		URL:     c.networkURL("/locations"),
		Payload: loc,
		Subject: "location=" + loc.ID,
	})
	return err
}
