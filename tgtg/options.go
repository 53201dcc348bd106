package tgtg

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/text/language"

	"github.com/jmcleod/goodtogo/store"
)

// options collects raw values that New validates after all options ran.
type options struct {
	baseURL  string
	language string
	proxy    *url.URL
}

// Option configures a Client.
type Option func(*Client, *options)

// WithBaseURL overrides the production API base URL.
func WithBaseURL(u string) Option {
	return func(_ *Client, cfg *options) {
		cfg.baseURL = u
	}
}

// WithEmail sets the account email used by the polling login flow.
func WithEmail(email string) Option {
	return func(c *Client, _ *options) {
		c.email = email
	}
}

// WithUserAgent pins the device identity instead of picking a random one
// from the emulated pool.
func WithUserAgent(ua string) Option {
	return func(c *Client, _ *options) {
		c.userAgent = ua
	}
}

// WithLanguage sets the accept-language tag. The tag is validated and
// canonicalized, so "en-gb" becomes "en-GB". Default: "en-GB".
func WithLanguage(lang string) Option {
	return func(_ *Client, cfg *options) {
		cfg.language = lang
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely. Use this for
// custom transports; for just a timeout or proxy see WithTimeout and
// WithProxy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client, _ *options) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client, _ *options) {
		c.httpClient.Timeout = d
	}
}

// WithProxy routes all requests through the given proxy URL.
func WithProxy(proxy *url.URL) Option {
	return func(_ *Client, cfg *options) {
		cfg.proxy = proxy
	}
}

// WithCredentials seeds the client with credentials from a previous session,
// skipping the polling login as long as the refresh token is accepted.
func WithCredentials(creds Credentials) Option {
	return func(c *Client, _ *options) {
		c.creds = creds
	}
}

// WithAccessTokenLifetime overrides how long an access token is assumed
// valid after a successful login or refresh. Default: 4 hours.
func WithAccessTokenLifetime(d time.Duration) Option {
	return func(c *Client, _ *options) {
		c.lifetime = d
	}
}

// WithStore sets the snapshot store invoked on every successful credential
// acquisition, letting a caller durably keep the session and restore it
// later without repeating the login handshake.
func WithStore(s store.Store) Option {
	return func(c *Client, _ *options) {
		c.store = s
	}
}

// WithLogger sets the structured logger. If not set, a default JSON logger
// writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client, _ *options) {
		c.logger = logger
	}
}

// WithClock sets the time source (primarily for testing).
func WithClock(clock Clock) Option {
	return func(c *Client, _ *options) {
		c.clock = clock
	}
}

// WithPollConfig overrides the login polling budget. Default: 60 attempts,
// 10 seconds apart.
func WithPollConfig(attempts int, interval time.Duration) Option {
	return func(c *Client, _ *options) {
		c.pollAttempts = attempts
		c.pollInterval = interval
	}
}

func parseLanguage(lang string) (string, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return "", fmt.Errorf("parsing language tag %q: %w", lang, err)
	}
	return tag.String(), nil
}
