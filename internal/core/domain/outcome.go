package domain

import (
	"maps"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxRetryAfterSeconds is the largest Retry-After that fits in a time.Duration.
const MaxRetryAfterSeconds = math.MaxInt64 / int64(time.Second)

// Request is a single protocol request: a verb plus its arguments.
// Requests are built fresh per call and never mutated afterwards.
type Request struct {
	Verb Verb
	Args map[string]string
}

// NewRequest copies args so later changes by the caller are not observed.
func NewRequest(verb Verb, args map[string]string) Request {
	copied := make(map[string]string, len(args))
	maps.Copy(copied, args)
	return Request{Verb: verb, Args: copied}
}

// Params returns the wire parameters with the verb injected.
func (r Request) Params() map[string]string {
	params := make(map[string]string, len(r.Args)+1)
	maps.Copy(params, r.Args)
	params["verb"] = string(r.Verb)
	return params
}

// RawResponse is what a transport hands back for one request.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RetryAfter parses the Retry-After header as a non-negative number of seconds.
// ok is false when the header is absent, is not a plain integer (HTTP dates
// included) or exceeds MaxRetryAfterSeconds.
func (r *RawResponse) RetryAfter() (seconds int, ok bool) {
	if r == nil || r.Header == nil {
		return 0, false
	}
	raw := strings.TrimSpace(r.Header.Get("Retry-After"))
	if raw == "" {
		return 0, false
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n > MaxRetryAfterSeconds || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

// ProtocolError is an <error> element extracted from a payload.
type ProtocolError struct {
	Code string
	Text string
}

// Outcome is the classified result of one request. It is one of Success,
// TransportError or ApplicationError; the set is closed by the unexported method.
type Outcome interface {
	outcome()
}

// Success carries the raw payload of a well-formed, error-free response.
type Success struct {
	Payload []byte
}

// TransportError is a non-200 HTTP response.
type TransportError struct {
	StatusCode int
	Response   *RawResponse
}

// ApplicationError is a protocol error embedded in a 200 response.
type ApplicationError struct {
	Code    ErrorCode
	Text    string
	Payload []byte
}

func (Success) outcome()          {}
func (TransportError) outcome()   {}
func (ApplicationError) outcome() {}
