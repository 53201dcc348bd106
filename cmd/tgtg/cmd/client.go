package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/jmcleod/goodtogo/store"
	boltstore "github.com/jmcleod/goodtogo/store/bolt"
	"github.com/jmcleod/goodtogo/tgtg"
)

// openStore opens the session database under --data-dir, prompting for the
// sealing passphrase when --sealed is set.
func openStore() (*boltstore.Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	var opts []boltstore.Option
	if sealed {
		passphrase, err := promptSecret("Session passphrase: ")
		if err != nil {
			return nil, err
		}
		opts = append(opts, boltstore.WithPassphrase(passphrase))
	}

	s, err := boltstore.NewStoreFromFile(dataDir+"/credentials.db", nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return s, nil
}

// newClient builds a client restoring any stored session. The returned store
// must be closed by the caller.
func newClient(ctx context.Context) (*tgtg.Client, *boltstore.Store, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()})).
		With("invocation", uuid.NewString())

	opts := []tgtg.Option{
		tgtg.WithEmail(email),
		tgtg.WithLanguage(language),
		tgtg.WithTimeout(timeout),
		tgtg.WithStore(s),
		tgtg.WithLogger(logger),
	}
	if baseURL != "" {
		opts = append(opts, tgtg.WithBaseURL(baseURL))
	}

	snap, err := s.Load(ctx)
	switch {
	case err == nil:
		opts = append(opts, tgtg.WithCredentials(tgtg.CredentialsFromSnapshot(snap)))
	case errors.Is(err, store.ErrNoSnapshot):
		// First run; the login flow will populate the store.
	default:
		s.Close()
		return nil, nil, fmt.Errorf("restoring session: %w", err)
	}

	c, err := tgtg.New(opts...)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return c, s, nil
}

func logLevel() slog.Level {
	if os.Getenv("TGTG_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(secret), nil
}
