package tgtg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jmcleod/goodtogo/store"
)

// Credentials is the client's mutable session state. AccessToken and UserID
// are either both set (authenticated) or the client is unauthenticated.
// LastRefreshedAt is stamped exactly when the token pair is set.
type Credentials struct {
	AccessToken     string
	RefreshToken    string
	UserID          string
	LastRefreshedAt time.Time
}

func (cr Credentials) authenticated() bool {
	return cr.AccessToken != "" && cr.UserID != ""
}

// Snapshot converts the credentials to their persisted form.
func (cr Credentials) Snapshot() store.Snapshot {
	return store.Snapshot{
		AccessToken:     cr.AccessToken,
		RefreshToken:    cr.RefreshToken,
		UserID:          cr.UserID,
		LastRefreshedAt: cr.LastRefreshedAt,
	}
}

// CredentialsFromSnapshot restores credentials from their persisted form,
// for use with WithCredentials.
func CredentialsFromSnapshot(snap store.Snapshot) Credentials {
	return Credentials{
		AccessToken:     snap.AccessToken,
		RefreshToken:    snap.RefreshToken,
		UserID:          snap.UserID,
		LastRefreshedAt: snap.LastRefreshedAt,
	}
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// authResponse is the body shape shared by the polling and signup endpoints.
type authResponse struct {
	tokenPair
	StartupData struct {
		User struct {
			UserID string `json:"user_id"`
		} `json:"user"`
	} `json:"startup_data"`
}

type loginRequest struct {
	DeviceType string `json:"device_type"`
	Email      string `json:"email"`
}

type pollingRequest struct {
	DeviceType       string `json:"device_type"`
	Email            string `json:"email"`
	RequestPollingID string `json:"request_polling_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Authenticate guarantees the client holds a non-expired bearer token,
// minimizing redundant network calls. Authenticated clients delegate to the
// refresh flow, which is a no-op while the current token is inside its
// assumed lifetime; unauthenticated clients run the polling login flow,
// which requires an email and blocks (cancellable through ctx) until the
// account holder clicks the confirmation link sent to it.
//
// Every data operation calls Authenticate first; calling it directly is only
// needed to front-load the login handshake.
func (c *Client) Authenticate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.creds.authenticated() {
		return c.refreshLocked(ctx)
	}
	if c.email == "" {
		return ErrEmailRequired
	}
	return c.loginLocked(ctx)
}

// refreshLocked renews the token pair through the refresh endpoint. The
// validity check is optimistic and clock-based only: a token revoked early
// by the server is still assumed valid until its local lifetime elapses.
// Callers must hold c.mu.
func (c *Client) refreshLocked(ctx context.Context) error {
	if !c.creds.LastRefreshedAt.IsZero() && c.clock.Now().Sub(c.creds.LastRefreshedAt) <= c.lifetime {
		return nil
	}

	status, body, err := c.post(ctx, refreshEndpoint, refreshRequest{RefreshToken: c.creds.RefreshToken}, c.creds.AccessToken)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{StatusCode: status, Body: body}
	}

	var pair tokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return fmt.Errorf("decoding refresh response: %w", err)
	}

	c.creds.AccessToken = pair.AccessToken
	c.creds.RefreshToken = pair.RefreshToken
	c.creds.LastRefreshedAt = c.clock.Now()
	c.logger.Debug("access token refreshed", "user_id", c.creds.UserID)
	c.persistLocked(ctx)
	return nil
}

// loginLocked runs the polling login handshake: one request to trigger the
// confirmation email, then up to pollAttempts polls while the account holder
// clicks the link out-of-band. Callers must hold c.mu.
func (c *Client) loginLocked(ctx context.Context) error {
	status, body, err := c.post(ctx, loginEndpoint, loginRequest{DeviceType: deviceType, Email: c.email}, c.creds.AccessToken)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &LoginError{StatusCode: status, Body: body}
	}

	var initiated struct {
		PollingID string `json:"polling_id"`
	}
	if err := json.Unmarshal(body, &initiated); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}
	c.logger.Info("login initiated, waiting for email confirmation", "email", c.email)

	poll := pollingRequest{DeviceType: deviceType, Email: c.email, RequestPollingID: initiated.PollingID}
	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		status, body, err := c.post(ctx, pollingEndpoint, poll, c.creds.AccessToken)
		if err != nil {
			return err
		}
		switch status {
		case http.StatusOK:
			var auth authResponse
			if err := json.Unmarshal(body, &auth); err != nil {
				return fmt.Errorf("decoding polling response: %w", err)
			}
			c.creds.AccessToken = auth.AccessToken
			c.creds.RefreshToken = auth.RefreshToken
			c.creds.UserID = auth.StartupData.User.UserID
			c.creds.LastRefreshedAt = c.clock.Now()
			c.logger.Info("login confirmed", "user_id", c.creds.UserID)
			c.persistLocked(ctx)
			return nil
		case http.StatusAccepted:
			c.logger.Debug("confirmation pending", "attempt", attempt, "of", c.pollAttempts)
			if err := c.clock.Sleep(ctx, c.pollInterval); err != nil {
				return err
			}
		default:
			return &LoginError{StatusCode: status, Body: body}
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrLoginTimeout, c.pollAttempts)
}

// persistLocked saves a snapshot of the current credentials. Persistence is
// best-effort: the in-memory session stays usable even when the store fails,
// so errors are logged rather than returned. Callers must hold c.mu.
func (c *Client) persistLocked(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, c.creds.Snapshot()); err != nil {
		c.logger.Warn("saving credential snapshot failed", "error", err)
	}
}
