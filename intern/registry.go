package intern

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/IvanBrykalov/hashcons/value"
)

// DefaultCapacity is the per-kind table bound used when Options leaves it unset.
const DefaultCapacity = 4096

// IneligibleMisuseError reports an attempt to force-canonicalize a value that
// is not cacheable. It indicates a bug in the caller.
type IneligibleMisuseError struct {
	Kind value.Kind
	Rel  value.RelID
}

func (err *IneligibleMisuseError) Error() string {
	if err.Rel != value.NoRelation {
		return fmt.Sprintf("intern: %s carries relationship %d and cannot be canonicalized", err.Kind, err.Rel)
	}
	return fmt.Sprintf("intern: %s has an ineligible attachment and cannot be canonicalized", err.Kind)
}

// Options configures a Registry.
type Options struct {
	// DefaultCapacity bounds each table not named in Capacity. 0 means
	// DefaultCapacity; a negative value disables caching for those tables.
	DefaultCapacity int

	// Capacity overrides the bound per kind. An explicit 0 disables that
	// table: its constructors still work but never share.
	Capacity map[value.Kind]int

	// Shards per table; 0 picks automatically.
	Shards int

	// Metrics, if set, is asked once per kind for that table's sink.
	Metrics func(k value.Kind) Metrics

	// Debug turns IneligibleMisuseError into a panic at the call site.
	Debug bool

	// Logger receives eviction traces at debug level. Nil discards.
	Logger *slog.Logger
}

// Registry owns one intern table per value kind. It replaces process-wide
// intern state: construct one per process (or per test) and pass it to
// whatever builds values.
type Registry struct {
	tables [value.NumKinds]*Table[value.Key, value.Value]
	debug  bool
}

// NewRegistry builds the per-kind tables.
func NewRegistry(opt Options) *Registry {
	if opt.DefaultCapacity == 0 {
		opt.DefaultCapacity = DefaultCapacity
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Registry{debug: opt.Debug}
	for _, k := range value.Kinds {
		capacity, ok := opt.Capacity[k]
		if !ok {
			capacity = max(opt.DefaultCapacity, 0)
		}
		to := TableOptions[value.Key, value.Value]{
			Capacity: capacity,
			Shards:   opt.Shards,
		}
		if opt.Metrics != nil {
			to.Metrics = opt.Metrics(k)
		}
		if logger.Enabled(context.Background(), slog.LevelDebug) {
			to.OnEvict = func(key value.Key, _ value.Value) {
				logger.Debug("intern: evicted", slog.String("key", key.String()))
			}
		}
		r.tables[k] = NewTable(to)
	}
	return r
}

// Table exposes the table for kind k, mostly for inspection.
func (r *Registry) Table(k value.Kind) *Table[value.Key, value.Value] {
	if !k.Valid() {
		return nil
	}
	return r.tables[k]
}

// Canonicalize returns the canonical instance structurally equal to v. When
// none is resident, v is admitted with its parts replaced by their canonical
// instances, and the boolean reports true. Ineligible values are refused
// with *IneligibleMisuseError (or a panic in debug mode).
func (r *Registry) Canonicalize(v value.Value) (value.Value, bool, error) {
	if !value.Cacheable(v) {
		err := misuse(v)
		if r.debug {
			panic(err)
		}
		return v, false, err
	}
	got, isNew := r.admit(v)
	return got, isNew, nil
}

// Lookup returns the resident canonical instance for key, if any.
func (r *Registry) Lookup(key value.Key) (value.Value, bool) {
	t := r.Table(key.Kind())
	if t == nil {
		return nil, false
	}
	return t.Get(key)
}

// Make is the sanctioned construction path: eligible values are replaced by
// their canonical instance, ineligible ones are returned as they are.
func (r *Registry) Make(v value.Value) value.Value {
	if !value.Cacheable(v) {
		return v
	}
	got, _ := r.admit(v)
	return got
}

// admit canonicalizes the parts of an eligible v bottom-up and then v, so a
// resident composite never holds a part another table disagrees with.
func (r *Registry) admit(v value.Value) (value.Value, bool) {
	children := value.Children(v)
	var next []value.Value
	for i, c := range children {
		nc, _ := r.admit(c)
		if nc == c {
			continue
		}
		if next == nil {
			next = slices.Clone(children)
		}
		next[i] = nc
	}
	if next != nil {
		if nv, err := value.WithChildren(v, next); err == nil {
			v = nv
		}
	}
	return r.tables[v.Kind()].Canonicalize(value.KeyOf(v), v)
}

// Build constructs a value from its argument tuple and passes it through Make.
func (r *Registry) Build(k value.Kind, f value.Fields, children []value.Value) (value.Value, error) {
	v, err := value.Build(k, f, children)
	if err != nil {
		return nil, err
	}
	return r.Make(v), nil
}

// Stats returns a snapshot per kind.
func (r *Registry) Stats() map[value.Kind]TableStats {
	out := make(map[value.Kind]TableStats, len(value.Kinds))
	for _, k := range value.Kinds {
		out[k] = r.tables[k].Stats()
	}
	return out
}

// Close disables every table.
func (r *Registry) Close() error {
	for _, k := range value.Kinds {
		_ = r.tables[k].Close()
	}
	return nil
}

func misuse(v value.Value) *IneligibleMisuseError {
	if v == nil {
		return &IneligibleMisuseError{}
	}
	return &IneligibleMisuseError{Kind: v.Kind(), Rel: v.Rel()}
}

// canonical passes a freshly constructed v through Make and narrows the result
// back to v's type; equal keys imply equal kinds, so the assertion holds.
func canonical[T value.Value](r *Registry, v T) T {
	return r.Make(v).(T)
}

// Pitch returns the canonical pitch for the arguments.
func (r *Registry) Pitch(step value.Step, alter, octave int8) *value.Pitch {
	return canonical(r, value.NewPitch(step, alter, octave))
}

// Articulation returns a canonical articulation, or a fresh one if rel is set.
func (r *Registry) Articulation(mark value.ArticulationMark, rel value.RelID) *value.Articulation {
	return canonical(r, value.NewArticulation(mark, rel))
}

func (r *Registry) Dynamic(level value.DynamicLevel, rel value.RelID) *value.Dynamic {
	return canonical(r, value.NewDynamic(level, rel))
}

func (r *Registry) Marker(kind value.MarkerKind, rel value.RelID) *value.Marker {
	return canonical(r, value.NewMarker(kind, rel))
}

func (r *Registry) Rest(dur value.Duration, rel value.RelID, attachments ...value.Value) *value.Rest {
	return canonical(r, value.NewRest(dur, rel, attachments...))
}

// Note shares the note when it and all its parts are eligible. Parts built
// outside the registry are swapped for their canonical instances.
func (r *Registry) Note(p *value.Pitch, dur value.Duration, rel value.RelID, attachments ...value.Value) *value.Note {
	return canonical(r, value.NewNote(p, dur, rel, attachments...))
}

func (r *Registry) Chord(notes []*value.Note, dur value.Duration, rel value.RelID, attachments ...value.Value) *value.Chord {
	return canonical(r, value.NewChord(notes, dur, rel, attachments...))
}
