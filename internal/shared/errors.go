package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authorization errors
	ErrAuthFailed        = fmt.Errorf("authentication failed")
	ErrBindFailed        = fmt.Errorf("redirect listener bind failed")
	ErrConnection        = fmt.Errorf("redirect connection failed")
	ErrMalformedRedirect = fmt.Errorf("malformed redirect")
	ErrUserAbandoned     = fmt.Errorf("input closed without data")
	ErrUserInput         = fmt.Errorf("unparsable input")
	ErrTimeout           = fmt.Errorf("operation timed out")
	ErrNoRefreshToken    = fmt.Errorf("no refresh token available")

	// API and service errors
	ErrAPIRequest             = fmt.Errorf("API request failed")
	ErrTransport              = fmt.Errorf("transport error")
	ErrHTTPStatus             = fmt.Errorf("unexpected HTTP status")
	ErrMalformedTokenResponse = fmt.Errorf("malformed token response")
	ErrMalformedPageResponse  = fmt.Errorf("malformed page response")
	ErrPlaylistNotFound       = fmt.Errorf("playlist not found")

	// Storage errors
	ErrRecordNotFound = fmt.Errorf("record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// Stages name the part of the flow an error came from.
const (
	StageAuthorize = "authorization"
	StageCapture   = "capture"
	StageToken     = "token exchange"
	StageFetch     = "fetch"
	StageWrite     = "write"
)

const maxErrorBody = 256

// HTTPStatusError reports a non-2xx response from a remote endpoint.
//
// It matches [ErrHTTPStatus] with [errors.Is].
type HTTPStatusError struct {
	Stage  string
	Status int
	Body   string
}

// NewHTTPStatusError builds an [HTTPStatusError], keeping at most the first few hundred bytes of body.
func NewHTTPStatusError(stage string, status int, body []byte) *HTTPStatusError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &HTTPStatusError{Stage: stage, Status: status, Body: string(body)}
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf("%s: status %d %s", e.Stage, e.Status, http.StatusText(e.Status))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// StatusCode returns the status carried by the first [HTTPStatusError] in err's chain, or 0.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return 0
}

// IsSuccess reports whether status is in the 2xx range.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
