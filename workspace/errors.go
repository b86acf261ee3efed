package workspace

import (
	"errors"
	"fmt"

	"github.com/IvanBrykalov/hashcons/score"
)

// ErrNoBackend is returned by persistence operations on a workspace created
// without a store.
var ErrNoBackend = errors.New("workspace: no backend configured")

// Revision counts committed updates of one document.
type Revision uint64

// NotFoundError indicates that a document is not resident in the workspace.
type NotFoundError struct {
	ID score.DocumentID
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("workspace: document %s not found", err.ID)
}

// IsNotFound checks if err indicates a missing document.
func IsNotFound(err error) bool {
	return errors.As(err, new(NotFoundError))
}

// StaleUpdateError indicates a failure to commit an update based on revision
// Rev because the document has been modified since.
type StaleUpdateError struct {
	ID   score.DocumentID
	Rev  Revision
	Head Revision
}

func (err StaleUpdateError) Error() string {
	return fmt.Sprintf(
		"workspace: can not update %s@%d, the document has been modified since that revision (now %d)",
		err.ID, err.Rev, err.Head,
	)
}

// ShouldRetry checks whether an update failed only because it raced with
// another and may succeed against a fresh snapshot.
func ShouldRetry(err error) bool {
	return errors.As(err, new(StaleUpdateError))
}
