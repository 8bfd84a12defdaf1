package transport

import (
	"net/http"
	"time"

	"github.com/forwardops/fwdsync/pkg/constants"
)

// Outcome classifies a single HTTP attempt.
type Outcome int

const (
	// OutcomeSuccess means the call succeeded and the response can be used.
	OutcomeSuccess Outcome = iota

	// OutcomeRetry means the failure is transient (server error, rate limit,
	// network error) and the call may be attempted again.
	OutcomeRetry

	// OutcomeFatal means the failure is permanent for this call (client
	// error) and retrying cannot help.
	OutcomeFatal
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Policy defines retry behavior for remote calls.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultPolicy is the bounded-retry policy used for all remote calls:
// 3 attempts with delays of 1s then 2s between them.
var DefaultPolicy = Policy{
	MaxAttempts:  constants.MaxRetries,
	InitialDelay: constants.RetryBackoff,
	Multiplier:   constants.RetryBackoffMultiplier,
}

// Classify maps an HTTP status code to an outcome. Rate limiting (429) and
// server errors (5xx) are transient; any other 4xx is permanent for the call.
func Classify(status int) Outcome {
	switch {
	case status == http.StatusTooManyRequests:
		return OutcomeRetry
	case status >= 500:
		return OutcomeRetry
	case status >= 400:
		return OutcomeFatal
	default:
		return OutcomeSuccess
	}
}

// NextDelay returns the backoff delay following the given one.
func (p Policy) NextDelay(current time.Duration) time.Duration {
	return time.Duration(float64(current) * p.Multiplier)
}
