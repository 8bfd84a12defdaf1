package forward

import (
	"context"
	"net/http"
	"net/url"

	errs "github.com/forwardops/fwdsync/pkg/errors"
	"github.com/forwardops/fwdsync/pkg/logging"

	"github.com/forwardops/fwdsync/internal/transport"
)

// TagSet holds the case-folded names of tags known to the remote network.
// Built once per run, read-only afterwards.
type TagSet map[string]struct{}

// Contains reports whether the tag exists, case-insensitively.
func (s TagSet) Contains(tag string) bool {
	_, ok := s[foldKey(tag)]
	return ok
}

// tagList is the response shape of the device-tags endpoint.
type tagList struct {
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
}

// Tags fetches the existing device tags and returns their names as a set.
func (c *Client) Tags(ctx context.Context) (TagSet, error) {
	log := logging.Default()
	url := c.networkURL("/device-tags")
	log.Info().Str("url", url).Msg("Fetching existing device tags")

	resp, err := c.transport.Do(ctx, transport.Request{
		Method: http.MethodGet,
		URL:    url,
	})
	if err != nil {
		return nil, err
	}

	var list tagList
	if err := transport.DecodeJSON(resp, &list); err != nil {
		return nil, err
	}
	if list.Tags == nil {
		return nil, errs.New("unexpected response shape from device-tags endpoint")
	}

	set := make(TagSet, len(list.Tags))
	for _, tag := range list.Tags {
		if tag.Name == "" {
			continue
		}
		set[foldKey(tag.Name)] = struct{}{}
	}

	log.Info().Int("count", len(set)).Msg("Discovered tags from API")
	return set, nil
}

// tagBatch is the body for the addBatchTo action of the device-tags endpoint.
type tagBatch struct {
	Devices []string `json:"devices"`
	Tags    []string `json:"tags"`
}

// AddTag attaches a single tag to a device.
func (c *Client) AddTag(ctx context.Context, device, tag string) error {
	_, err := c.transport.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		URL:     c.networkURL("/device-tags"),
		Query:   url.Values{"action": {"addBatchTo"}},
		Payload: tagBatch{Devices: []string{device}, Tags: []string{tag}},
		Subject: "device=" + device,
	})
	return err
}
