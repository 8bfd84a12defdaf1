package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/forwardops/fwdsync/pkg/errors"
	"github.com/forwardops/fwdsync/pkg/logging"
)

// testClient builds a client that records backoff sleeps instead of waiting.
func testClient(auth Authenticator, sleeps *[]time.Duration, opts ...Option) *Client {
	base := []Option{
		WithLogger(logging.Nop),
		WithSleep(func(d time.Duration) { *sleeps = append(*sleeps, d) }),
	}
	return New(auth, append(base, opts...)...)
}

func TestServerErrorRetriedThreeTimes(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := testClient(&NoAuth{}, &sleeps)

	_, err := client.Do(context.Background(), Request{
		Method:  http.MethodPatch,
		URL:     server.URL,
		Payload: map[string]string{"sw1": "L1"},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrRetriesExhausted))
	assert.True(t, errors.Is(err, errs.ErrUnavailable))
	assert.Equal(t, int32(3), calls.Load())
	// Delays of 1s then 2s, never after the final attempt.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, sleeps)
}

func TestClientErrorFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "no such device", http.StatusNotFound)
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := testClient(&NoAuth{}, &sleeps)

	_, err := client.Do(context.Background(), Request{
		Method: http.MethodPatch,
		URL:    server.URL,
	})

	require.Error(t, err)
	var apiErr *errs.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, sleeps)
}

func TestRateLimitRetriedUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := testClient(&NoAuth{}, &sleeps)

	resp, err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{1 * time.Second}, sleeps)
}

func TestNetworkErrorRetried(t *testing.T) {
	// A closed server refuses every connection.
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	var sleeps []time.Duration
	client := testClient(&NoAuth{}, &sleeps)

	_, err := client.Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    url,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrRetriesExhausted))
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, sleeps)
}

func TestDryRunSkipsMutations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected %s request in dry-run mode", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := testClient(&NoAuth{}, &sleeps, WithDryRun(true))

	// Mutations are skipped and report success.
	resp, err := client.Do(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     server.URL,
		Payload: map[string]string{"id": "L1"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Reads still go out.
	resp, err = client.Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    server.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBasicAuthAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key-id", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := testClient(&BasicAuth{Username: "key-id", Password: "secret"}, &sleeps)

	_, err := client.Do(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     server.URL,
		Payload: map[string]string{"id": "L1"},
	})
	require.NoError(t, err)
}

func TestDecodeJSON(t *testing.T) {
	resp := &Response{StatusCode: 200, Body: []byte(`{"name":"hq"}`)}

	var target struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeJSON(resp, &target))
	assert.Equal(t, "hq", target.Name)

	resp.Body = []byte(`not json`)
	assert.Error(t, DecodeJSON(resp, &target))
}
