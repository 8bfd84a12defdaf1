package forward

import (
	"context"
	"net/http"

	"github.com/forwardops/fwdsync/internal/transport"
)

// SetDeviceLocation assigns a device to a location on the atlas endpoint.
// The API takes a device-to-location-ID map and applies it as a partial
// update.
func (c *Client) SetDeviceLocation(ctx context.Context, device, locationID string) error {
	_, err := c.transport.Do(ctx, transport.Request{
		Method:  http.MethodPatch,
		URL:     c.networkURL("/atlas"),
		Payload: map[string]string{device: locationID},
		Subject: "device=" + device,
	})
	return err
}
