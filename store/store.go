// Package store provides durable persistence for TGTG session credentials,
// letting a caller keep a session across process restarts without repeating
// the email-confirmation login handshake.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no credential snapshot stored")

// Snapshot is the persisted form of a session's credentials. The JSON field
// names match the state the mobile app itself externalizes.
type Snapshot struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	UserID          string    `json:"user_id"`
	LastRefreshedAt time.Time `json:"last_time_token_refreshed"`
}

// Store saves and restores credential snapshots. Save is invoked by the
// client once per successful credential acquisition with the full current
// snapshot.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}
