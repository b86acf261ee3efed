// Package consolidate restores sharing for values that reached documents
// without passing through the registry, for example through bulk copies.
//
// A Daemon cycles Idle → Scanning → Applying → Idle. Each cycle visits every
// document of its Host inside the host's update transaction: it collects the
// elements, canonicalizes every eligible value bottom-up and replaces the
// slots whose instance changed. Ineligible values keep their identity unless
// one of their eligible parts had to be replaced, in which case they are
// rebuilt with the same fields and relationship.
package consolidate

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/IvanBrykalov/hashcons/intern"
	"github.com/IvanBrykalov/hashcons/score"
	"github.com/IvanBrykalov/hashcons/workspace"
)

var tracer = otel.Tracer("hashcons.consolidate")

// State is the daemon's current phase.
type State int32

const (
	Idle State = iota
	Scanning
	Applying
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Applying:
		return "applying"
	default:
		return "unknown"
	}
}

// Host is the document set a daemon works on. *workspace.Workspace
// implements it.
type Host interface {
	Documents() []score.DocumentID
	// TryUpdate runs fn on a read-consistent snapshot and commits it
	// atomically. A conflict with a concurrent commit must be reported with
	// an error for which workspace.ShouldRetry is true.
	TryUpdate(ctx context.Context, id score.DocumentID, fn func(*score.Document) error) error
}

var _ Host = (*workspace.Workspace)(nil)

// Report summarizes one cycle.
type Report struct {
	Documents int // documents enumerated
	Scanned   int // element slots visited in committed passes
	Replaced  int // slots that now hold a different instance
	Conflicts int // retried transactions
	Failed    int // documents skipped after an error
}

// Daemon is a consolidation worker.
type Daemon struct {
	reg  *intern.Registry
	host Host
	opt  Options

	state   atomic.Int32
	cycleMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a daemon for host canonicalizing through reg.
func New(reg *intern.Registry, host Host, opt Options) *Daemon {
	opt.applyDefaults()
	return &Daemon{reg: reg, host: host, opt: opt}
}

func (d *Daemon) State() State { return State(d.state.Load()) }

func (d *Daemon) setState(s State) { d.state.Store(int32(s)) }

// Run cycles until ctx is done and then returns ctx.Err(). It waits one
// Interval before the first cycle. Shutdown is observed while idle and
// between documents; a document being applied is always finished.
func (d *Daemon) Run(ctx context.Context) error {
	if d.opt.Disabled {
		return nil
	}
	for {
		d.setState(Idle)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.opt.Clock.After(d.opt.Interval):
		}
		if _, err := d.RunCycle(ctx); err != nil {
			return err
		}
	}
}

// Start runs the daemon in a goroutine until Stop is called or ctx ends.
// Starting a running daemon does nothing.
func (d *Daemon) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done != nil || d.opt.Disabled {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		_ = d.Run(ctx)
	}(d.done)
}

// Stop signals a started daemon and waits for it to return.
func (d *Daemon) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunCycle performs one scan-and-apply pass over every document. Per-document
// failures are logged and counted, never returned; the error is non-nil only
// when ctx ended before all documents were visited.
func (d *Daemon) RunCycle(ctx context.Context) (Report, error) {
	d.cycleMu.Lock()
	defer d.cycleMu.Unlock()
	defer d.setState(Idle)

	start := d.opt.Clock.Now()
	ctx, span := tracer.Start(ctx, "consolidate.Cycle")
	defer span.End()

	ids := d.host.Documents()
	rep := Report{Documents: len(ids)}
	memo := newMemo(d.reg)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "context canceled")
			return rep, err
		}
		d.document(ctx, id, memo, &rep)
	}

	elapsed := d.opt.Clock.Now().Sub(start)
	d.opt.Metrics.Cycle(elapsed)
	span.SetAttributes(
		attribute.Int("cycle.documents", rep.Documents),
		attribute.Int("cycle.replaced", rep.Replaced),
		attribute.Int("cycle.conflicts", rep.Conflicts),
		attribute.Int("cycle.failed", rep.Failed),
	)
	d.opt.Logger.Debug("consolidate: cycle done",
		slog.Int("documents", rep.Documents),
		slog.Int("scanned", rep.Scanned),
		slog.Int("replaced", rep.Replaced),
		slog.Int("conflicts", rep.Conflicts),
		slog.Int("failed", rep.Failed),
		slog.Duration("elapsed", elapsed))
	return rep, nil
}

// document consolidates one document, retrying on conflict. The apply step
// runs detached from ctx cancellation.
func (d *Daemon) document(ctx context.Context, id score.DocumentID, memo *memo, rep *Report) {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "consolidate.Document",
		trace.WithAttributes(attribute.String("doc.id", id.String())))
	defer span.End()

	for attempt := 0; ; attempt++ {
		var scanned, replaced int
		err := d.host.TryUpdate(ctx, id, func(doc *score.Document) error {
			d.setState(Scanning)
			slots := scan(doc)
			scanned = len(slots)

			d.setState(Applying)
			replaced = 0
			for _, s := range slots {
				nv := memo.canonical(s.v)
				if nv == s.v {
					continue
				}
				if err := doc.Replace(s.loc, nv); err != nil {
					return err
				}
				replaced++
			}
			return nil
		})

		switch {
		case err == nil:
			rep.Scanned += scanned
			rep.Replaced += replaced
			d.opt.Metrics.Replaced(replaced)
			span.SetAttributes(attribute.Int("doc.replaced", replaced), attribute.Int("doc.attempts", attempt+1))
			return
		case workspace.ShouldRetry(err) && attempt < d.opt.MaxRetries:
			rep.Conflicts++
			d.opt.Metrics.Conflict()
			continue
		default:
			rep.Failed++
			d.opt.Metrics.Failed()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			d.opt.Logger.Warn("consolidate: skipping document",
				slog.String("doc", id.String()),
				slog.Int("attempts", attempt+1),
				slog.Any("error", err))
			return
		}
	}
}
