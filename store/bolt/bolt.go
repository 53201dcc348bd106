// Package bolt provides a BBolt-backed credential store. Snapshots can
// optionally be sealed at rest with a passphrase-derived key, so a copied
// database file alone does not leak a usable refresh token.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/awnumar/memguard"
	"go.etcd.io/bbolt"

	"github.com/jmcleod/goodtogo/internal/util"
	"github.com/jmcleod/goodtogo/store"
)

const (
	bucketName  = "credentials"
	snapshotKey = "snapshot"
	saltKey     = "kdf_salt"
	paramsKey   = "kdf_params"

	saltSize   = 16
	sealingAAD = "goodtogo:credentials:v1"
)

// envelope is the record stored in the database. Data holds either the raw
// snapshot JSON or, when Sealed, its AES-256-GCM ciphertext.
type envelope struct {
	Ver    int    `json:"v"`
	Sealed bool   `json:"sealed"`
	Data   []byte `json:"data"`
}

// Store implements store.Store backed by a BBolt database.
//
// The sealing key, when configured, is held in a memguard Enclave and only
// opened for the duration of a Save or Load.
type Store struct {
	db  *bbolt.DB
	key *memguard.Enclave
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*config)

type config struct {
	passphrase string
}

// WithPassphrase seals snapshots at rest with a key derived from the given
// passphrase (argon2id). The derivation salt and parameters live alongside
// the snapshot in the database; the passphrase itself is never stored.
func WithPassphrase(passphrase string) Option {
	return func(c *config) {
		c.passphrase = passphrase
	}
}

// NewStore returns a Store backed by the given BBolt database.
func NewStore(db *bbolt.DB, opts ...Option) (*Store, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store{db: db}
	if cfg.passphrase != "" {
		key, err := s.deriveKey(cfg.passphrase)
		if err != nil {
			return nil, err
		}
		s.key = memguard.NewEnclave(key)
	}
	return s, nil
}

// NewStoreFromFile opens a BBolt database at the given path and returns a
// new Store.
func NewStoreFromFile(path string, options *bbolt.Options, opts ...Option) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := NewStore(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// deriveKey loads (or creates and persists) the KDF salt and parameters,
// then derives the sealing key from the passphrase.
func (s *Store) deriveKey(passphrase string) ([]byte, error) {
	var salt []byte
	params := util.DefaultArgon2idParams()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		if stored := b.Get([]byte(saltKey)); stored != nil {
			salt = util.CopyBytes(stored)
			return json.Unmarshal(b.Get([]byte(paramsKey)), &params)
		}
		salt, err = util.RandomBytes(saltSize)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(saltKey), salt); err != nil {
			return err
		}
		data, err := json.Marshal(params)
		if err != nil {
			return err
		}
		return b.Put([]byte(paramsKey), data)
	})
	if err != nil {
		return nil, fmt.Errorf("preparing sealing key material: %w", err)
	}

	return util.DeriveArgon2idKey(passphrase, salt, params)
}

func (s *Store) Save(ctx context.Context, snap store.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	env := envelope{Ver: 1, Data: data}
	if s.key != nil {
		keyBuf, err := s.key.Open()
		if err != nil {
			return fmt.Errorf("opening sealing key enclave: %w", err)
		}
		sealed, err := util.EncryptAESWithAAD(data, keyBuf.Bytes(), []byte(sealingAAD))
		keyBuf.Destroy()
		util.WipeBytes(data)
		if err != nil {
			return fmt.Errorf("sealing snapshot: %w", err)
		}
		env = envelope{Ver: 1, Sealed: true, Data: sealed}
	}

	record, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding snapshot envelope: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return b.Put([]byte(snapshotKey), record)
	})
}

func (s *Store) Load(ctx context.Context) (store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return store.Snapshot{}, err
	}

	var record []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return store.ErrNoSnapshot
		}
		data := b.Get([]byte(snapshotKey))
		if data == nil {
			return store.ErrNoSnapshot
		}
		record = util.CopyBytes(data)
		return nil
	})
	if err != nil {
		return store.Snapshot{}, err
	}

	var env envelope
	if err := json.Unmarshal(record, &env); err != nil {
		return store.Snapshot{}, fmt.Errorf("decoding snapshot envelope: %w", err)
	}

	data := env.Data
	if env.Sealed {
		if s.key == nil {
			return store.Snapshot{}, fmt.Errorf("snapshot is sealed but no passphrase configured")
		}
		keyBuf, err := s.key.Open()
		if err != nil {
			return store.Snapshot{}, fmt.Errorf("opening sealing key enclave: %w", err)
		}
		data, err = util.DecryptAESWithAAD(env.Data, keyBuf.Bytes(), []byte(sealingAAD))
		keyBuf.Destroy()
		if err != nil {
			return store.Snapshot{}, fmt.Errorf("unsealing snapshot: %w", err)
		}
		defer util.WipeBytes(data)
	}

	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return store.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}
