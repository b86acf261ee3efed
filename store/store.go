// Package store defines where serialized documents live between sessions.
// Implementations: badgerstore (BadgerDB) and boltstore (bbolt).
package store

import (
	"context"
	"errors"

	"github.com/IvanBrykalov/hashcons/score"
)

// ErrNotFound is returned by Get for an unknown document.
var ErrNotFound = errors.New("store: document not found")

// Backend persists opaque document encodings keyed by document ID.
// Implementations must be safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, id score.DocumentID) ([]byte, error)
	Put(ctx context.Context, id score.DocumentID, data []byte) error
	Delete(ctx context.Context, id score.DocumentID) error
	// List returns every stored ID in key order.
	List(ctx context.Context) ([]score.DocumentID, error)
	Close() error
}
