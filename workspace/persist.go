package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/hashcons/codec"
	"github.com/IvanBrykalov/hashcons/score"
	"github.com/IvanBrykalov/hashcons/store"
)

var tracer = otel.Tracer("hashcons.workspace")

// Load makes a stored document resident and returns its revision. A document
// that is already resident is left alone. Concurrent loads of the same ID
// share one backend read.
func (w *Workspace) Load(ctx context.Context, id score.DocumentID) (Revision, error) {
	if w.backend == nil {
		return 0, ErrNoBackend
	}
	if rev, err := w.Head(id); err == nil {
		return rev, nil
	}
	rev, _, err := w.loads.Do(ctx, id, func() (Revision, error) {
		return w.load(ctx, id)
	})
	return rev, err
}

func (w *Workspace) load(ctx context.Context, id score.DocumentID) (Revision, error) {
	ctx, span := tracer.Start(ctx, "workspace.Load",
		trace.WithAttributes(attribute.String("doc.id", id.String())))
	defer span.End()

	data, err := w.backend.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		err = NotFoundError{ID: id}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	doc, st, err := codec.DeserializeStats(data, w.reg)
	if err != nil {
		err = fmt.Errorf("workspace: load %s: %w", id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	if doc.ID != id {
		err = fmt.Errorf("workspace: load %s: stream holds document %s", id, doc.ID)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(
		attribute.Int("codec.bytes", st.Bytes),
		attribute.Int("codec.entries", st.Entries),
	)

	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.docs[id]; ok {
		return s.rev, nil
	}
	w.docs[id] = &slot{doc: doc, rev: 1}
	w.logger.Debug("workspace: loaded",
		slog.String("doc", id.String()),
		slog.Int("bytes", st.Bytes),
		slog.Int("entries", st.Entries))
	return 1, nil
}

// Save writes the current revision of a document to the backend and returns
// the revision written.
func (w *Workspace) Save(ctx context.Context, id score.DocumentID) (Revision, error) {
	if w.backend == nil {
		return 0, ErrNoBackend
	}
	ctx, span := tracer.Start(ctx, "workspace.Save",
		trace.WithAttributes(attribute.String("doc.id", id.String())))
	defer span.End()

	doc, rev, err := w.Snapshot(id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	data, err := codec.Serialize(doc)
	if err == nil {
		err = w.backend.Put(ctx, id, data)
	}
	if err != nil {
		err = fmt.Errorf("workspace: save %s: %w", id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int("codec.bytes", len(data)), attribute.Int64("doc.rev", int64(rev)))
	return rev, nil
}

// SaveAll saves every resident document. It stops at the first failure.
func (w *Workspace) SaveAll(ctx context.Context) error {
	if w.backend == nil {
		return ErrNoBackend
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.par)
	for _, id := range w.Documents() {
		g.Go(func() error {
			_, err := w.Save(ctx, id)
			if IsNotFound(err) {
				// removed since Documents was listed
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// LoadAll makes every stored document resident and returns how many there
// were.
func (w *Workspace) LoadAll(ctx context.Context) (int, error) {
	if w.backend == nil {
		return 0, ErrNoBackend
	}
	ids, err := w.backend.List(ctx)
	if err != nil {
		return 0, err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.par)
	for _, id := range ids {
		g.Go(func() error {
			_, err := w.Load(ctx, id)
			return err
		})
	}
	return len(ids), g.Wait()
}

// Delete removes a document from the workspace and from the backend.
func (w *Workspace) Delete(ctx context.Context, id score.DocumentID) error {
	if w.backend == nil {
		return ErrNoBackend
	}
	w.Remove(id)
	return w.backend.Delete(ctx, id)
}
