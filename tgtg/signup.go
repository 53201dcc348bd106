package tgtg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// SignUpOption configures account creation.
type SignUpOption func(*signUpOptions)

type signUpOptions struct {
	countryID             string
	newsletterOptIn       bool
	pushNotificationOptIn bool
}

// WithCountry sets the ISO country code for the new account. Default: "GB".
func WithCountry(countryID string) SignUpOption {
	return func(o *signUpOptions) {
		o.countryID = countryID
	}
}

// WithNewsletterOptIn opts the new account into the newsletter.
func WithNewsletterOptIn() SignUpOption {
	return func(o *signUpOptions) {
		o.newsletterOptIn = true
	}
}

// WithPushNotificationOptIn controls the push notification opt-in.
// Default: true, matching the mobile app.
func WithPushNotificationOptIn(optIn bool) SignUpOption {
	return func(o *signUpOptions) {
		o.pushNotificationOptIn = optIn
	}
}

type signUpRequest struct {
	CountryID             string `json:"country_id"`
	DeviceType            string `json:"device_type"`
	Email                 string `json:"email"`
	Name                  string `json:"name"`
	NewsletterOptIn       bool   `json:"newsletter_opt_in"`
	Password              string `json:"password"`
	PushNotificationOptIn bool   `json:"push_notification_opt_in"`
}

// SignUpByEmail creates a new account and leaves the client authenticated as
// it. Unlike the data operations this is a one-shot call with no prior
// session, so it does not run Authenticate first.
func (c *Client) SignUpByEmail(ctx context.Context, email, password, name string, opts ...SignUpOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if email == "" || password == "" || name == "" {
		return fmt.Errorf("email, password and name are required")
	}

	o := signUpOptions{countryID: "GB", pushNotificationOptIn: true}
	for _, opt := range opts {
		opt(&o)
	}

	req := signUpRequest{
		CountryID:             o.countryID,
		DeviceType:            deviceType,
		Email:                 email,
		Name:                  name,
		NewsletterOptIn:       o.newsletterOptIn,
		Password:              password,
		PushNotificationOptIn: o.pushNotificationOptIn,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	status, body, err := c.post(ctx, signUpEndpoint, req, c.creds.AccessToken)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{StatusCode: status, Body: body}
	}

	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return fmt.Errorf("decoding signup response: %w", err)
	}
	c.creds.AccessToken = auth.AccessToken
	c.creds.RefreshToken = auth.RefreshToken
	c.creds.UserID = auth.StartupData.User.UserID
	c.creds.LastRefreshedAt = c.clock.Now()
	c.logger.Info("account created", "user_id", c.creds.UserID)
	c.persistLocked(ctx)
	return nil
}
