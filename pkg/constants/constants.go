// Package constants provides shared constants used throughout the fwdsync codebase.
// This includes timeouts, retry tuning, file permissions, and other configuration
// values that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the per-attempt timeout for requests to the Forward API
	DefaultHTTPTimeout = 30 * time.Second

	// GeocodeHTTPTimeout is the per-attempt timeout for geocoding requests
	GeocodeHTTPTimeout = 10 * time.Second
)

// Retry constants define the bounded-retry policy for remote calls
const (
	// MaxRetries is the maximum number of attempts for a single remote call
	MaxRetries = 3

	// RetryBackoff is the delay before the first retry
	RetryBackoff = 1 * time.Second

	// RetryBackoffMultiplier scales the delay after each retryable failure
	RetryBackoffMultiplier = 2.0
)

// Geocoding constants
const (
	// GeocodeDelay is the fixed pause between geocoding calls, applied whether
	// or not the call succeeded, to avoid hammering the shared Nominatim service
	GeocodeDelay = 1 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Output constants
const (
	// DefaultDryRunOutput is the default filename for the dry-run location payload
	DefaultDryRunOutput = "locations_payload.json"
)
