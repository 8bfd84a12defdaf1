// Package geocode resolves street addresses to coordinates using the
// OpenStreetMap Nominatim API. Calls go through the shared transport client
// with a shorter timeout; retry behavior is the transport's bounded policy.
package geocode

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	errs "github.com/forwardops/fwdsync/pkg/errors"
	"github.com/forwardops/fwdsync/pkg/logging"

	"github.com/forwardops/fwdsync/internal/transport"
)

// DefaultEndpoint is the public Nominatim search endpoint.
const DefaultEndpoint = "https://nominatim.openstreetmap.org/search"

// userAgent identifies fwdsync to Nominatim, which rejects anonymous clients.
const userAgent = "fwdsync/1.0"

// Client is a Nominatim geocoding client.
type Client struct {
	transport *transport.Client
	endpoint  string
}

// New creates a geocoding client. An empty endpoint selects the public
// Nominatim service.
func New(t *transport.Client, endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{transport: t, endpoint: endpoint}
}

// result is a single Nominatim match. Coordinates come back as strings.
type result struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves an address to a (lat, lng) pair, taking the first
// candidate match. An empty candidate list is a permanent failure for the
// address; transient HTTP failures are retried by the transport.
func (c *Client) Geocode(ctx context.Context, address string) (float64, float64, error) {
	log := logging.Default()
	log.Debug().Str("address", address).Msg("Geocoding address")

	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("addressdetails", "1")
	query.Set("limit", "1")

	header := http.Header{}
	header.Set("User-Agent", userAgent)

	resp, err := c.transport.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     c.endpoint,
		Query:   query,
		Header:  header,
		Subject: "address=" + address,
	})
	if err != nil {
		return 0, 0, errs.NewGeocodeError(address, "request failed", err)
	}

	var results []result
	if err := transport.DecodeJSON(resp, &results); err != nil {
		return 0, 0, errs.NewGeocodeError(address, "unexpected response", err)
	}
	if len(results) == 0 {
		return 0, 0, errs.NewGeocodeError(address, "no geocoding result found", nil)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, errs.NewGeocodeError(address, "invalid latitude in response", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, errs.NewGeocodeError(address, "invalid longitude in response", err)
	}

	log.Debug().Str("address", address).Float64("lat", lat).Float64("lng", lng).
		Msg("Geocoding successful")
	return lat, lng, nil
}
