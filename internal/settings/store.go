package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store persists setting values across restarts.
type Store interface {
	// Load returns every persisted value keyed by setting name.
	Load() (map[string]interface{}, error)
	// Save persists a single value.
	Save(name string, v interface{}) error
	// Close releases the underlying resources.
	Close() error
}

const schemaVersion = "v1"

var (
	bucketKeyVersion  = []byte(schemaVersion)
	bucketKeySettings = []byte("settings")
)

// BoltStore keeps settings in a bbolt database under v1/settings, one
// JSON-encoded value per key.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if needed) the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings store %s: %w", path, err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Load returns all stored values.  Numbers decode as json.Number so the
// registry can coerce them without float rounding.
func (s *BoltStore) Load() (map[string]interface{}, error) {
	out := map[string]interface{}{}
	err := s.db.View(func(tx *bolt.Tx) error {
		bkt := getBucket(tx, bucketKeyVersion, bucketKeySettings)
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, v []byte) error {
			dec := json.NewDecoder(bytes.NewReader(v))
			dec.UseNumber()
			var val interface{}
			if err := dec.Decode(&val); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			out[string(k)] = val
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes v under name, replacing any previous value.
func (s *BoltStore) Save(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt, err := createBucketIfNotExists(tx, bucketKeyVersion, bucketKeySettings)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(name), data)
	})
}

func getBucket(tx *bolt.Tx, keys ...[]byte) *bolt.Bucket {
	bkt := tx.Bucket(keys[0])
	for _, key := range keys[1:] {
		if bkt == nil {
			break
		}
		bkt = bkt.Bucket(key)
	}
	return bkt
}

func createBucketIfNotExists(tx *bolt.Tx, keys ...[]byte) (*bolt.Bucket, error) {
	bkt, err := tx.CreateBucketIfNotExists(keys[0])
	if err != nil {
		return nil, err
	}
	for _, key := range keys[1:] {
		bkt, err = bkt.CreateBucketIfNotExists(key)
		if err != nil {
			return nil, err
		}
	}
	return bkt, nil
}
