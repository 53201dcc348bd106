package tgtg

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailRequired indicates authentication was attempted with no email
	// configured and no previously stored access token to fall back on.
	ErrEmailRequired = errors.New("email required to authenticate")
	// ErrLoginTimeout indicates the login confirmation window expired before
	// the account holder clicked the confirmation link.
	ErrLoginTimeout = errors.New("login confirmation window expired")
)

// APIError is returned when the API answers a refresh or data request with an
// unexpected status code. Body holds the raw response body.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, trimBody(e.Body))
}

// LoginError is returned when the login-initiation or polling step answers
// with an unexpected status code. The login flow is terminal on this error;
// the caller may retry the whole flow.
type LoginError struct {
	StatusCode int
	Body       []byte
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login error: status %d: %s", e.StatusCode, trimBody(e.Body))
}

const maxErrBodyLen = 512

func trimBody(b []byte) string {
	if len(b) > maxErrBodyLen {
		return string(b[:maxErrBodyLen]) + "..."
	}
	return string(b)
}
