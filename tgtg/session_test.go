package tgtg_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/goodtogo/store"
	"github.com/jmcleod/goodtogo/store/memory"
	"github.com/jmcleod/goodtogo/tgtg"
)

// fakeClock advances instantly on Sleep and records every wait, so the
// polling flow runs without real delays.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slept = append(f.slept, d)
	f.now = f.now.Add(d)
	return nil
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeClock) totalSlept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total time.Duration
	for _, d := range f.slept {
		total += d
	}
	return total
}

// countingStore wraps the in-memory store and counts Save invocations.
type countingStore struct {
	*memory.Store
	mu    sync.Mutex
	saves int
}

func newCountingStore() *countingStore {
	return &countingStore{Store: memory.NewStore()}
}

func (s *countingStore) Save(ctx context.Context, snap store.Snapshot) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.Store.Save(ctx, snap)
}

func (s *countingStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// fakeAPI is an httptest server mimicking the upstream endpoints. Handlers
// default to failing the test; each test overrides what it expects to be hit.
type fakeAPI struct {
	srv *httptest.Server

	mu           sync.Mutex
	loginCalls   int
	pollCalls    int
	refreshCalls int
	totalCalls   int

	loginHandler   http.HandlerFunc
	pollHandler    http.HandlerFunc
	refreshHandler http.HandlerFunc
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	unexpected := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected call to %s", name)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
	f.loginHandler = unexpected("login")
	f.pollHandler = unexpected("poll")
	f.refreshHandler = unexpected("refresh")

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.totalCalls++
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/auth/v3/authByEmail", func(w http.ResponseWriter, req *http.Request) {
		f.count(&f.loginCalls)
		f.loginHandler(w, req)
	})
	r.Post("/auth/v3/authByRequestPollingId", func(w http.ResponseWriter, req *http.Request) {
		f.count(&f.pollCalls)
		f.pollHandler(w, req)
	})
	r.Post("/auth/v1/token/refresh", func(w http.ResponseWriter, req *http.Request) {
		f.count(&f.refreshCalls)
		f.refreshHandler(w, req)
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) count(n *int) {
	f.mu.Lock()
	*n++
	f.mu.Unlock()
}

func (f *fakeAPI) calls() (login, poll, refresh, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.pollCalls, f.refreshCalls, f.totalCalls
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func authBody(accessToken, refreshToken, userID string) map[string]any {
	return map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"startup_data":  map[string]any{"user": map[string]any{"user_id": userID}},
	}
}

func seededCredentials(clock *fakeClock) tgtg.Credentials {
	return tgtg.Credentials{
		AccessToken:     "A1",
		RefreshToken:    "R1",
		UserID:          "U1",
		LastRefreshedAt: clock.Now(),
	}
}

func TestAuthenticate_NoEmailNoCredentials(t *testing.T) {
	api := newFakeAPI(t)
	client, err := tgtg.New(tgtg.WithBaseURL(api.srv.URL))
	require.NoError(t, err)

	err = client.Authenticate(t.Context())
	require.ErrorIs(t, err, tgtg.ErrEmailRequired)

	_, _, _, total := api.calls()
	assert.Zero(t, total, "no network call may be made without credentials or email")
}

func TestAuthenticate_FreshTokenIsNoOp(t *testing.T) {
	api := newFakeAPI(t)
	clock := newFakeClock()
	client, err := tgtg.New(
		tgtg.WithBaseURL(api.srv.URL),
		tgtg.WithClock(clock),
		tgtg.WithCredentials(seededCredentials(clock)),
	)
	require.NoError(t, err)

	// Still well inside the four hour lifetime.
	clock.advance(time.Hour)
	require.NoError(t, client.Authenticate(t.Context()))

	_, _, _, total := api.calls()
	assert.Zero(t, total)
}

func TestRefresh(t *testing.T) {
	t.Run("success rotates both tokens", func(t *testing.T) {
		api := newFakeAPI(t)
		clock := newFakeClock()
		saver := newCountingStore()

		api.refreshHandler = func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer A1", r.Header.Get("authorization"))
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "R1", req["refresh_token"])
			writeJSON(t, w, http.StatusOK, map[string]string{
				"access_token":  "A2",
				"refresh_token": "R2",
			})
		}

		client, err := tgtg.New(
			tgtg.WithBaseURL(api.srv.URL),
			tgtg.WithClock(clock),
			tgtg.WithCredentials(seededCredentials(clock)),
			tgtg.WithStore(saver),
		)
		require.NoError(t, err)

		clock.advance(5 * time.Hour)
		require.NoError(t, client.Authenticate(t.Context()))

		creds := client.Credentials()
		assert.Equal(t, "A2", creds.AccessToken)
		assert.Equal(t, "R2", creds.RefreshToken)
		assert.Equal(t, "U1", creds.UserID)
		assert.Equal(t, clock.Now(), creds.LastRefreshedAt)
		assert.Equal(t, 1, saver.saveCount())
	})

	t.Run("forbidden leaves credentials untouched", func(t *testing.T) {
		api := newFakeAPI(t)
		clock := newFakeClock()

		api.refreshHandler = func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusForbidden, map[string]string{"error": "revoked"})
		}

		seeded := seededCredentials(clock)
		client, err := tgtg.New(
			tgtg.WithBaseURL(api.srv.URL),
			tgtg.WithClock(clock),
			tgtg.WithCredentials(seeded),
		)
		require.NoError(t, err)

		clock.advance(5 * time.Hour)
		err = client.Authenticate(t.Context())

		var apiErr *tgtg.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Contains(t, string(apiErr.Body), "revoked")

		creds := client.Credentials()
		assert.Equal(t, seeded.AccessToken, creds.AccessToken)
		assert.Equal(t, seeded.RefreshToken, creds.RefreshToken)
		assert.Equal(t, seeded.LastRefreshedAt, creds.LastRefreshedAt)
	})
}

func TestLogin_PollingConfirms(t *testing.T) {
	api := newFakeAPI(t)
	clock := newFakeClock()
	saver := newCountingStore()

	api.loginHandler = func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ANDROID", req["device_type"])
		assert.Equal(t, "eater@example.com", req["email"])
		writeJSON(t, w, http.StatusOK, map[string]string{"polling_id": "P1"})
	}
	api.pollHandler = func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "P1", req["request_polling_id"])

		_, polls, _, _ := api.calls()
		if polls < 4 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeJSON(t, w, http.StatusOK, authBody("A1", "R1", "U1"))
	}

	client, err := tgtg.New(
		tgtg.WithBaseURL(api.srv.URL),
		tgtg.WithEmail("eater@example.com"),
		tgtg.WithClock(clock),
		tgtg.WithStore(saver),
	)
	require.NoError(t, err)

	require.NoError(t, client.Authenticate(t.Context()))

	creds := client.Credentials()
	assert.Equal(t, "A1", creds.AccessToken)
	assert.Equal(t, "R1", creds.RefreshToken)
	assert.Equal(t, "U1", creds.UserID)
	assert.Equal(t, clock.Now(), creds.LastRefreshedAt)

	_, polls, _, _ := api.calls()
	assert.Equal(t, 4, polls)
	assert.GreaterOrEqual(t, clock.totalSlept(), 30*time.Second)
	assert.Equal(t, 1, saver.saveCount())
}

func TestLogin_PollingExhausts(t *testing.T) {
	api := newFakeAPI(t)
	clock := newFakeClock()

	api.loginHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{"polling_id": "P1"})
	}
	api.pollHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}

	client, err := tgtg.New(
		tgtg.WithBaseURL(api.srv.URL),
		tgtg.WithEmail("eater@example.com"),
		tgtg.WithClock(clock),
	)
	require.NoError(t, err)

	err = client.Authenticate(t.Context())
	require.ErrorIs(t, err, tgtg.ErrLoginTimeout)

	_, polls, _, _ := api.calls()
	assert.Equal(t, 60, polls)
	assert.Equal(t, 10*time.Minute, clock.totalSlept())

	creds := client.Credentials()
	assert.Empty(t, creds.AccessToken)
	assert.Empty(t, creds.UserID)
}

func TestLogin_InitiationRejected(t *testing.T) {
	api := newFakeAPI(t)

	api.loginHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusTooManyRequests, map[string]string{"error": "slow down"})
	}

	client, err := tgtg.New(
		tgtg.WithBaseURL(api.srv.URL),
		tgtg.WithEmail("eater@example.com"),
		tgtg.WithClock(newFakeClock()),
	)
	require.NoError(t, err)

	err = client.Authenticate(t.Context())

	var loginErr *tgtg.LoginError
	require.ErrorAs(t, err, &loginErr)
	assert.Equal(t, http.StatusTooManyRequests, loginErr.StatusCode)

	_, polls, _, _ := api.calls()
	assert.Zero(t, polls)
}

func TestLogin_PollRejected(t *testing.T) {
	api := newFakeAPI(t)

	api.loginHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{"polling_id": "P1"})
	}
	api.pollHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusForbidden, map[string]string{"error": "blocked"})
	}

	client, err := tgtg.New(
		tgtg.WithBaseURL(api.srv.URL),
		tgtg.WithEmail("eater@example.com"),
		tgtg.WithClock(newFakeClock()),
	)
	require.NoError(t, err)

	err = client.Authenticate(t.Context())

	var loginErr *tgtg.LoginError
	require.ErrorAs(t, err, &loginErr)
	assert.Equal(t, http.StatusForbidden, loginErr.StatusCode)

	creds := client.Credentials()
	assert.Empty(t, creds.AccessToken)
}

func TestLogin_CancelledWhilePolling(t *testing.T) {
	api := newFakeAPI(t)
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(t.Context())

	api.loginHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{"polling_id": "P1"})
	}
	api.pollHandler = func(w http.ResponseWriter, r *http.Request) {
		// The user gives up after the first pending response.
		cancel()
		w.WriteHeader(http.StatusAccepted)
	}

	client, err := tgtg.New(
		tgtg.WithBaseURL(api.srv.URL),
		tgtg.WithEmail("eater@example.com"),
		tgtg.WithClock(clock),
	)
	require.NoError(t, err)

	err = client.Authenticate(ctx)
	require.ErrorIs(t, err, context.Canceled)

	_, polls, _, _ := api.calls()
	assert.Equal(t, 1, polls)
}

func TestPersistence_OncePerAcquisition(t *testing.T) {
	api := newFakeAPI(t)
	clock := newFakeClock()
	saver := newCountingStore()

	api.loginHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{"polling_id": "P1"})
	}
	api.pollHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, authBody("A1", "R1", "U1"))
	}
	api.refreshHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{
			"access_token":  "A2",
			"refresh_token": "R2",
		})
	}

	client, err := tgtg.New(
		tgtg.WithBaseURL(api.srv.URL),
		tgtg.WithEmail("eater@example.com"),
		tgtg.WithClock(clock),
		tgtg.WithStore(saver),
	)
	require.NoError(t, err)

	// Initial login: one snapshot.
	require.NoError(t, client.Authenticate(t.Context()))
	assert.Equal(t, 1, saver.saveCount())

	// Token still fresh: skip is silent, no snapshot.
	require.NoError(t, client.Authenticate(t.Context()))
	assert.Equal(t, 1, saver.saveCount())

	// Expired: refresh produces the second snapshot.
	clock.advance(5 * time.Hour)
	require.NoError(t, client.Authenticate(t.Context()))
	assert.Equal(t, 2, saver.saveCount())

	snap, err := saver.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "A2", snap.AccessToken)
	assert.Equal(t, "R2", snap.RefreshToken)
	assert.Equal(t, "U1", snap.UserID)
	assert.Equal(t, clock.Now(), snap.LastRefreshedAt)
}
