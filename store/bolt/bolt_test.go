package bolt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/goodtogo/store"
)

func testSnapshot() store.Snapshot {
	return store.Snapshot{
		AccessToken:     "A1",
		RefreshToken:    "R1",
		UserID:          "U1",
		LastRefreshedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBoltStore_RoundTrip(t *testing.T) {
	path := t.TempDir() + "/credentials.db"
	s, err := NewStoreFromFile(path, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(t.Context())
	require.ErrorIs(t, err, store.ErrNoSnapshot)

	snap := testSnapshot()
	require.NoError(t, s.Save(t.Context(), snap))

	got, err := s.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := t.TempDir() + "/credentials.db"

	s, err := NewStoreFromFile(path, nil)
	require.NoError(t, err)
	snap := testSnapshot()
	require.NoError(t, s.Save(t.Context(), snap))
	require.NoError(t, s.Close())

	s, err = NewStoreFromFile(path, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestBoltStore_Sealed(t *testing.T) {
	path := t.TempDir() + "/credentials.db"

	s, err := NewStoreFromFile(path, nil, WithPassphrase("correct horse"))
	require.NoError(t, err)
	snap := testSnapshot()
	require.NoError(t, s.Save(t.Context(), snap))

	got, err := s.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	require.NoError(t, s.Close())

	// Same passphrase after reopen: salt and params were persisted.
	s, err = NewStoreFromFile(path, nil, WithPassphrase("correct horse"))
	require.NoError(t, err)
	got, err = s.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	require.NoError(t, s.Close())
}

func TestBoltStore_WrongPassphrase(t *testing.T) {
	path := t.TempDir() + "/credentials.db"

	s, err := NewStoreFromFile(path, nil, WithPassphrase("correct horse"))
	require.NoError(t, err)
	require.NoError(t, s.Save(t.Context(), testSnapshot()))
	require.NoError(t, s.Close())

	s, err = NewStoreFromFile(path, nil, WithPassphrase("battery staple"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(t.Context())
	require.ErrorContains(t, err, "unsealing snapshot")
}

func TestBoltStore_SealedRequiresPassphrase(t *testing.T) {
	path := t.TempDir() + "/credentials.db"

	s, err := NewStoreFromFile(path, nil, WithPassphrase("correct horse"))
	require.NoError(t, err)
	require.NoError(t, s.Save(t.Context(), testSnapshot()))
	require.NoError(t, s.Close())

	s, err = NewStoreFromFile(path, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(t.Context())
	require.ErrorContains(t, err, "sealed")
}
