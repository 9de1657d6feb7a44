package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	metadataBucket = "__metadata"
	schemaVersion  = 1
)

// BoltStore keeps one bbolt bucket per collection. Documents are stored as raw JSON.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the bbolt file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &BoltStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) initialize() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}
		if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
			return fmt.Errorf("failed to store schema version: %w", err)
		}
		return nil
	})
}

// Get returns the document stored under key.
func (s *BoltStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := validKey(collection, key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return ErrNotFound
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		// bbolt memory is only valid inside the transaction.
		doc = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Put creates or replaces a document. doc must be valid JSON.
func (s *BoltStore) Put(ctx context.Context, collection, key string, doc []byte) error {
	if err := validKey(collection, key); err != nil {
		return err
	}
	if !json.Valid(doc) {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", collection, err)
		}
		if err := bucket.Put([]byte(key), doc); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
		return nil
	})
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *BoltStore) Delete(ctx context.Context, collection, key string) error {
	if err := validKey(collection, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Keys lists the document keys of a collection in byte order.
func (s *BoltStore) Keys(ctx context.Context, collection string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
