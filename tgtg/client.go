// Package tgtg is a client for the Too Good To Go mobile-app REST API. It
// manages the asynchronous email-confirmation login handshake, transparent
// token refresh, and the item query endpoints.
package tgtg

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/jmcleod/goodtogo/store"
)

const (
	defaultBaseURL = "https://apptoogoodtogo.com/api/"

	loginEndpoint   = "auth/v3/authByEmail"
	pollingEndpoint = "auth/v3/authByRequestPollingId"
	refreshEndpoint = "auth/v1/token/refresh"
	signUpEndpoint  = "auth/v2/signUpByEmail"
	itemEndpoint    = "item/v7/"

	deviceType = "ANDROID"

	defaultLanguage = "en-GB"
	defaultTimeout  = 30 * time.Second

	// Access tokens are assumed valid for four hours after a successful
	// login or refresh; within that window no refresh request is made.
	defaultAccessTokenLifetime = 4 * time.Hour

	// The account holder has 60 polling attempts of 10 seconds each
	// (10 minutes) to click the confirmation link.
	defaultPollAttempts = 60
	defaultPollInterval = 10 * time.Second
)

// Client talks to the Too Good To Go API on behalf of a single account.
//
// A Client is safe for concurrent use: the authentication sequence
// (check, refresh or login) is serialized so overlapping calls cannot race
// and produce inconsistent token state.
type Client struct {
	baseURL      *url.URL
	email        string
	userAgent    string
	language     string
	httpClient   *http.Client
	lifetime     time.Duration
	pollAttempts int
	pollInterval time.Duration
	store        store.Store
	logger       *slog.Logger
	clock        Clock

	mu    sync.Mutex
	creds Credentials
}

// New creates a Client. With no options it targets the production API with a
// random emulated device identity; an email must be configured (WithEmail)
// before the first authenticated call unless credentials are restored with
// WithCredentials.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		userAgent:    randomUserAgent(),
		language:     defaultLanguage,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		lifetime:     defaultAccessTokenLifetime,
		pollAttempts: defaultPollAttempts,
		pollInterval: defaultPollInterval,
		clock:        realClock{},
	}

	cfg := options{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(c, &cfg)
	}

	base, err := url.Parse(cfg.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	c.baseURL = base

	if cfg.language != "" {
		tag, err := parseLanguage(cfg.language)
		if err != nil {
			return nil, err
		}
		c.language = tag
	}

	if cfg.proxy != nil {
		transport := &http.Transport{Proxy: http.ProxyURL(cfg.proxy)}
		c.httpClient.Transport = transport
	}

	if c.pollAttempts <= 0 {
		return nil, fmt.Errorf("poll attempts must be positive, got %d", c.pollAttempts)
	}
	if c.lifetime <= 0 {
		return nil, fmt.Errorf("access token lifetime must be positive, got %s", c.lifetime)
	}

	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	return c, nil
}

// Credentials returns a copy of the client's current credential state.
func (c *Client) Credentials() Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

// post sends a JSON POST to the given endpoint path and returns the response
// status and raw body. Every request carries the emulated device headers;
// the bearer token is attached when non-empty. Transport-level failures are
// returned as-is, not converted into the API error taxonomy.
func (c *Client) post(ctx context.Context, path string, payload any, bearer string) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encoding request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(path).String(), bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("user-agent", c.userAgent)
	req.Header.Set("accept-language", c.language)
	req.Header.Set("Accept-Encoding", "gzip")
	if bearer != "" {
		req.Header.Set("authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("posting to %s: %w", path, err)
	}
	defer resp.Body.Close()

	// Accept-Encoding is set explicitly, so the transport does not
	// transparently decompress for us.
	reader := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("decompressing response from %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response from %s: %w", path, err)
	}
	return resp.StatusCode, data, nil
}
