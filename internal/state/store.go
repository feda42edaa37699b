package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	ErrNotFound = errors.New("state: not found")
	ErrExpired  = errors.New("state: expired")
)

var (
	bucketMeta     = []byte("meta")
	bucketSettings = []byte("settings")
)

// Store is the on-disk companion to the in-memory response cache. It
// survives restarts and holds two kinds of data: TTL'd JSON snapshots
// of slow-moving tracker metadata (projects, issue types) and small
// plain settings such as the active project. bbolt handles its own
// locking, so Store needs none.
type Store struct {
	db *bolt.DB
}

// Open initializes or opens a Store at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketSettings} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutMeta marshals v to JSON and stores it under key with an absolute
// expiry of now+ttl. A ttl <= 0 stores the snapshot already expired.
// Layout: 8 bytes big endian unix-milli expiry || JSON payload.
func (s *Store) PutMeta(key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(buf[:8], uint64(time.Now().Add(ttl).UnixMilli()))
	copy(buf[8:], payload)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(key), buf)
	})
}

// GetMeta unmarshals the snapshot stored under key into out. It
// returns ErrNotFound for an absent key and ErrExpired for a stale
// one; the stale record is removed on the way out.
func (s *Store) GetMeta(key string, out any) error {
	var payload []byte
	var expired bool
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get([]byte(key))
		if v == nil || len(v) < 8 {
			return nil
		}
		expiresAt := int64(binary.BigEndian.Uint64(v[:8]))
		if time.Now().UnixMilli() > expiresAt {
			expired = true
			return nil
		}
		payload = append([]byte(nil), v[8:]...)
		return nil
	}); err != nil {
		return err
	}
	if expired {
		_ = s.DeleteMeta(key)
		return ErrExpired
	}
	if payload == nil {
		return ErrNotFound
	}
	return json.Unmarshal(payload, out)
}

// DeleteMeta removes the snapshot stored under key, if any.
func (s *Store) DeleteMeta(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Delete([]byte(key))
	})
}

// MetaKeys lists every stored snapshot key, expired ones included.
func (s *Store) MetaKeys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// SetSetting stores a plain string setting.
func (s *Store) SetSetting(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Put([]byte(key), []byte(value))
	})
}

// Setting returns a plain string setting, or ErrNotFound.
func (s *Store) Setting(key string) (string, error) {
	var out []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSettings).Get([]byte(key))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return "", err
	}
	if out == nil {
		return "", ErrNotFound
	}
	return string(out), nil
}
