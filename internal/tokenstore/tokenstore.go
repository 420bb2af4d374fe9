// Package tokenstore persists the access/refresh token pair across client
// restarts. Tokens are encrypted at rest.
package tokenstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/pechorka/chatik/internal/models"
	"github.com/pechorka/chatik/pkg/encryptor"
)

var ErrNotFound = errors.New("not found")

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var bktTokens = []byte("tokens")

// Store is a wrapper around bolt.DB
type Store struct {
	db        *bolt.DB
	enc       *encryptor.Encryptor
	closeFunc func() error
}

// NewStore opens the token database at path.
func NewStore(path, secret string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open token db")
	}
	return &Store{
		db:        db,
		enc:       encryptor.New(secret),
		closeFunc: db.Close,
	}, nil
}

// NewTempStore creates a store in a temporary file that is removed on Close.
func NewTempStore(secret string) (*Store, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("chatik-tokens-%s.db", uuid.New().String()))
	store, err := NewStore(path, secret)
	if err != nil {
		return nil, err
	}
	originalCloseFunc := store.closeFunc
	store.closeFunc = func() error {
		if err := originalCloseFunc(); err != nil {
			return err
		}
		return os.Remove(path)
	}
	return store, nil
}

// Close closes the store
func (s *Store) Close() error {
	return s.closeFunc()
}

// Get returns the persisted token of the given kind or ErrNotFound.
func (s *Store) Get(kind Kind) (string, error) {
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bktTokens)
		if b == nil {
			return ErrNotFound
		}
		encrypted := b.Get([]byte(kind))
		if encrypted == nil {
			return ErrNotFound
		}
		decrypted, err := s.enc.DecryptString(encrypted)
		if err != nil {
			return errors.Wrapf(err, "failed to decrypt %s token", kind)
		}
		token = decrypted
		return nil
	})
	return token, err
}

// Set persists both tokens. Either both are written or neither is.
func (s *Store) Set(pair models.TokenPair) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bktTokens)
		if err != nil {
			return errors.Wrap(err, "failed to create tokens bucket")
		}
		if err := s.put(b, KindAccess, pair.AccessToken); err != nil {
			return err
		}
		return s.put(b, KindRefresh, pair.RefreshToken)
	})
}

// Clear removes both tokens. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bktTokens) == nil {
			return nil
		}
		return tx.DeleteBucket(bktTokens)
	})
}

func (s *Store) put(b *bolt.Bucket, kind Kind, token string) error {
	encrypted, err := s.enc.EncryptString(token)
	if err != nil {
		return errors.Wrapf(err, "failed to encrypt %s token", kind)
	}
	if err := b.Put([]byte(kind), encrypted); err != nil {
		return errors.Wrapf(err, "failed to store %s token", kind)
	}
	return nil
}
