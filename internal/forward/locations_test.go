package forward

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forwardops/fwdsync/internal/transport"
	"github.com/forwardops/fwdsync/pkg/logging"
)

// newTestClient wires a forward client to a fake API with no real backoff.
func newTestClient(baseURL string) *Client {
	t := transport.New(&transport.NoAuth{},
		transport.WithLogger(logging.Nop),
		transport.WithSleep(func(time.Duration) {}),
	)
	return New(t, baseURL, "net1")
}

func TestLocationsBuildsIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/networks/net1/locations", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]Location{
			{ID: "L1", Name: "Building A"},
			{ID: "L2", Name: "Warehouse"},
		})
	}))
	defer server.Close()

	index, err := newTestClient(server.URL).Locations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, index.Len())

	id, ok := index.Resolve("Building A")
	require.True(t, ok)
	assert.Equal(t, "L1", id)

	// Case-insensitive: "building a" resolves the same as "Building A".
	id, ok = index.Resolve("building a")
	require.True(t, ok)
	assert.Equal(t, "L1", id)

	id, ok = index.Resolve("WAREHOUSE")
	require.True(t, ok)
	assert.Equal(t, "L2", id)

	_, ok = index.Resolve("missing")
	assert.False(t, ok)
}

func TestLocationsDuplicateNameLastWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]Location{
			{ID: "L1", Name: "HQ"},
			{ID: "L2", Name: "hq"},
		})
	}))
	defer server.Close()

	index, err := newTestClient(server.URL).Locations(context.Background())
	require.NoError(t, err)

	id, ok := index.Resolve("hq")
	require.True(t, ok)
	assert.Equal(t, "L2", id)
}

func TestLocationsEmptyCollectionFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Locations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no locations")
}

func TestLocationsMalformedCollectionFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Locations(context.Background())
	require.Error(t, err)
}

func TestLocationsSkipsEntriesWithoutIDOrName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]Location{
			{ID: "", Name: "nameless"},
			{ID: "L9", Name: ""},
			{ID: "L1", Name: "Real"},
		})
	}))
	defer server.Close()

	index, err := newTestClient(server.URL).Locations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, index.Len())
}

func TestCreateLocation(t *testing.T) {
	var got LocationPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/networks/net1/locations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	err := newTestClient(server.URL).CreateLocation(context.Background(), LocationPayload{
		ID: "loc-1", Name: "HQ", Lat: 52.52, Lng: 13.405,
	})
	require.NoError(t, err)
	assert.Equal(t, "loc-1", got.ID)
	assert.Equal(t, 52.52, got.Lat)
	assert.Equal(t, 13.405, got.Lng)
}

func TestSetDeviceLocation(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/networks/net1/atlas", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := newTestClient(server.URL).SetDeviceLocation(context.Background(), "sw-lab-01", "L7")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sw-lab-01": "L7"}, got)
}
