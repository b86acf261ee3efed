// Package workspace holds the set of open documents and serializes changes to
// them with optimistic revisions.
//
// Readers take snapshots; writers run a function against a private snapshot
// and commit it only if no other commit landed in between. A conflicting
// commit fails with StaleUpdateError and can be retried.
package workspace

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/IvanBrykalov/hashcons/intern"
	"github.com/IvanBrykalov/hashcons/internal/singleflight"
	"github.com/IvanBrykalov/hashcons/score"
	"github.com/IvanBrykalov/hashcons/store"
)

// Options configures a Workspace. The zero value is usable for an in-memory
// workspace without persistence.
type Options struct {
	// Registry rebuilds values when documents are loaded. Nil creates a
	// private registry with default options.
	Registry *intern.Registry

	// Backend persists documents. Nil disables Load and Save.
	Backend store.Backend

	// Parallelism bounds concurrent backend calls in SaveAll and LoadAll.
	// 0 means 4.
	Parallelism int

	// Logger; nil discards.
	Logger *slog.Logger
}

type slot struct {
	doc *score.Document
	rev Revision
}

// Workspace is safe for concurrent use.
type Workspace struct {
	mu   sync.RWMutex
	docs map[score.DocumentID]*slot

	reg     *intern.Registry
	backend store.Backend
	par     int
	logger  *slog.Logger
	loads   singleflight.Group[score.DocumentID, Revision]
}

// New creates an empty workspace.
func New(opt Options) *Workspace {
	if opt.Registry == nil {
		opt.Registry = intern.NewRegistry(intern.Options{})
	}
	if opt.Parallelism <= 0 {
		opt.Parallelism = 4
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.DiscardHandler)
	}
	return &Workspace{
		docs:    make(map[score.DocumentID]*slot),
		reg:     opt.Registry,
		backend: opt.Backend,
		par:     opt.Parallelism,
		logger:  opt.Logger,
	}
}

// Registry returns the registry documents are loaded through.
func (w *Workspace) Registry() *intern.Registry { return w.reg }

// Add makes doc resident, replacing any document with the same ID, and
// returns its revision. The workspace takes ownership of doc.
func (w *Workspace) Add(doc *score.Document) Revision {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.docs[doc.ID]
	if !ok {
		s = &slot{}
		w.docs[doc.ID] = s
	}
	s.doc = doc
	s.rev++
	return s.rev
}

// Remove drops a document. It reports whether the document was resident.
func (w *Workspace) Remove(id score.DocumentID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.docs[id]
	delete(w.docs, id)
	return ok
}

// Documents lists the resident document IDs in byte order.
func (w *Workspace) Documents() []score.DocumentID {
	w.mu.RLock()
	ids := make([]score.DocumentID, 0, len(w.docs))
	for id := range w.docs {
		ids = append(ids, id)
	}
	w.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

// Snapshot returns a private copy of a document together with the revision
// it reflects. Element values are shared, containers are not.
func (w *Workspace) Snapshot(id score.DocumentID) (*score.Document, Revision, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.docs[id]
	if !ok {
		return nil, 0, NotFoundError{ID: id}
	}
	return s.doc.Clone(), s.rev, nil
}

// Head returns the current revision of a document.
func (w *Workspace) Head(id score.DocumentID) (Revision, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.docs[id]
	if !ok {
		return 0, NotFoundError{ID: id}
	}
	return s.rev, nil
}

// TryUpdate runs fn against a snapshot of the document and commits the
// result if fn modified it. It fails with StaleUpdateError if another commit
// landed while fn ran; nothing is committed in that case or when fn returns
// an error.
func (w *Workspace) TryUpdate(ctx context.Context, id score.DocumentID, fn func(*score.Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, rev, err := w.Snapshot(id)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	if !doc.Modified() {
		return nil
	}
	return w.commit(id, rev, doc)
}

// Update is TryUpdate retried until it does not conflict or ctx is done.
func (w *Workspace) Update(ctx context.Context, id score.DocumentID, fn func(*score.Document) error) error {
	for {
		err := w.TryUpdate(ctx, id, fn)
		if !ShouldRetry(err) {
			return err
		}
		w.logger.Debug("workspace: retrying stale update", slog.String("doc", id.String()))
	}
}

func (w *Workspace) commit(id score.DocumentID, rev Revision, doc *score.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.docs[id]
	if !ok {
		return NotFoundError{ID: id}
	}
	if s.rev != rev {
		return StaleUpdateError{ID: id, Rev: rev, Head: s.rev}
	}
	s.doc = doc
	s.rev++
	return nil
}
