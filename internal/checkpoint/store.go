// Package checkpoint provides the durable key/value store that records which
// walk roots have been fully enumerated.
package checkpoint

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// Filename is the default database filename inside the data directory.
	Filename = "checkpoints.db"

	// WalkKeyPrefix is the namespace of walk markers.
	WalkKeyPrefix = "walk:stat:"

	// WalkedValue is the marker value of a fully walked root.
	WalkedValue = "1"

	// openTimeout bounds how long Open waits for the database file lock.
	openTimeout = 5 * time.Second
)

var bucketName = []byte("checkpoints")

// WalkKey returns the checkpoint key of a walk root.
func WalkKey(root string) string {
	return WalkKeyPrefix + root
}

// Store is a durable string key/value store backed by bbolt.
// Every Put is fsynced before it returns, and the store is safe for concurrent use.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize checkpoint store: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the value stored under key and whether it exists.
func (s *Store) Get(key string) (value string, found bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get([]byte(key)); v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("checkpoint get %q: %w", key, err)
	}
	return value, found, nil
}

// Put stores value under key.
func (s *Store) Put(key, value string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("checkpoint put %q: %w", key, err)
	}
	return nil
}

// Keys returns every key with the given prefix in lexical order.
func (s *Store) Keys(prefix string) ([]string, error) {
	keys := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("checkpoint list %q: %w", prefix, err)
	}
	return keys, nil
}

// DeletePrefix removes every key with the given prefix in one transaction.
// Returns the number of deleted keys.
func (s *Store) DeletePrefix(prefix string) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		p := []byte(prefix)

		// Collect first: deleting while iterating moves the cursor.
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, bytes.Clone(k))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(keys)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("checkpoint delete %q: %w", prefix, err)
	}
	return deleted, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
