// Package boltstore keeps serialized documents in a single bbolt file.
package boltstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/IvanBrykalov/hashcons/score"
	"github.com/IvanBrykalov/hashcons/store"
)

const bucketDocuments = "documents"

// Store implements store.Backend on top of bbolt.
type Store struct {
	db *bolt.DB
}

var _ store.Backend = (*Store)(nil)

// Open opens the database file at path, creating it and the documents bucket
// if needed.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketDocuments))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: initialize: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, id score.DocumentID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketDocuments)).Get(id[:])
		if v == nil {
			return store.ErrNotFound
		}
		// v is only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: get %s: %w", id, err)
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, id score.DocumentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketDocuments)).Put(id[:], data)
	})
}

func (s *Store) Delete(ctx context.Context, id score.DocumentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketDocuments)).Delete(id[:])
	})
}

func (s *Store) List(ctx context.Context) ([]score.DocumentID, error) {
	var ids []score.DocumentID
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketDocuments)).ForEach(func(k, _ []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := uuid.FromBytes(k)
			if err != nil {
				return fmt.Errorf("malformed key %x: %w", k, err)
			}
			ids = append(ids, id)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: list: %w", err)
	}
	return ids, nil
}

func (s *Store) Close() error { return s.db.Close() }
