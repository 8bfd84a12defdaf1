// Package forward implements the Forward Networks inventory API operations
// fwdsync depends on: listing locations and device tags, updating device
// locations on the atlas endpoint, attaching tags, and creating locations.
// Every call goes through the shared transport client and inherits its
// retry policy and dry-run handling.
package forward

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/forwardops/fwdsync/internal/transport"
)

// Client exposes the Forward API operations for a single network.
type Client struct {
	transport *transport.Client
	baseURL   string
	networkID string
}

// New creates a Forward API client for the given network.
func New(t *transport.Client, baseURL, networkID string) *Client {
	return &Client{
		transport: t,
		baseURL:   strings.TrimRight(baseURL, "/"),
		networkID: networkID,
	}
}

// networkURL builds an endpoint URL under the client's network.
func (c *Client) networkURL(suffix string) string {
	return c.baseURL + "/networks/" + c.networkID + suffix
}

// foldKey normalizes a name for case-insensitive lookup.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
