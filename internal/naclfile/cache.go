package naclfile

import (
	"bytes"
	"encoding/gob"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Cache is the on-disk parse cache: a single bbolt.DB file, one bucket per
// NaCl source (common, and one per environment), keys "path\x00hash",
// values gob-serialized Records. Grounded on elves-elvish's pkg/store bbolt
// usage (one bucket per logical table, tx.Update/tx.View wrapping every
// access).
type Cache struct {
	db *bolt.DB
}

// OpenCache opens (creating if necessary) the bbolt database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database file.
func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(path, hash string) []byte {
	return []byte(path + "\x00" + hash)
}

// Get looks up the cached Record for path+hash within bucket. A missing
// bucket or key is reported as (nil, false, nil), not an error: a fresh
// workspace has no buckets yet.
func (c *Cache) Get(bucket, path, hash string) (*Record, bool, error) {
	data, ok, err := c.GetBytes(bucket, cacheKey(path, hash))
	if err != nil || !ok {
		return nil, false, err
	}
	rec := &Record{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Put stores rec under path+hash within bucket, creating the bucket on
// first use.
func (c *Cache) Put(bucket, path, hash string, rec *Record) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return err
	}
	return c.PutBytes(bucket, cacheKey(path, hash), buf.Bytes())
}

// Delete removes any cached record for path+hash within bucket. It is not
// an error for the bucket or key to be absent.
func (c *Cache) Delete(bucket, path, hash string) error {
	return c.DeleteBytes(bucket, cacheKey(path, hash))
}

// GetBytes looks up the raw value stored under key within bucket. A
// missing bucket or key is reported as (nil, false, nil). Exported so
// other packages sharing this same bbolt.DB file (e.g. envsource's state
// store) can keep their own bucket namespace without going through the
// Record schema.
func (c *Cache) GetBytes(bucket string, key []byte) ([]byte, bool, error) {
	var value []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		data := b.Get(key)
		if data == nil {
			return nil
		}
		value = append([]byte{}, data...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, value != nil, nil
}

// PutBytes stores value under key within bucket, creating the bucket on
// first use.
func (c *Cache) PutBytes(bucket string, key []byte, value []byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
}

// DeleteBytes removes any value stored under key within bucket. It is not
// an error for the bucket or key to be absent.
func (c *Cache) DeleteBytes(bucket string, key []byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete(key)
	})
}

// ForEach iterates every key/value pair stored within bucket. A missing
// bucket yields no iterations. The value slice is only valid for the
// duration of fn's call, consistent with bbolt's own cursor semantics.
func (c *Cache) ForEach(bucket string, fn func(key, value []byte) error) error {
	return c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(fn)
	})
}

// ClearBucket drops every entry cached under bucket, e.g. when a source is
// cleared entirely.
func (c *Cache) ClearBucket(bucket string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(bucket))
	})
}
