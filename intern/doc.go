// Package intern canonicalizes immutable values: structurally identical
// eligible values come back as one shared instance.
//
// Design
//
//   - Table: a bounded, sharded key→instance map. Each shard owns a mutex, a
//     map[K]*entry and an intrusive MRU↔LRU list. Canonicalize performs the
//     lookup and the insert under one lock, so racing producers never observe
//     two canonical instances for the same key.
//
//   - Eviction: LRU by default (package policy/lru). Evicting an entry only
//     drops the table's claim on it; values already handed out stay valid,
//     and the next construction with that key starts a new canonical
//     instance. A capacity of 0 turns a table into a pass-through.
//
//   - Registry: one Table per value.Kind, owned by an explicit Registry value
//     rather than package-level state, so tests and documents can use
//     isolated registries.
//
//   - Constructors: Registry.Pitch, Note, Chord, … check value.Cacheable and
//     either canonicalize or return a fresh instance. Values built elsewhere
//     (value.New*, value.Clone) are tolerated; the consolidate package merges
//     them later.
//
//   - Metrics: Options.Metrics supplies one Metrics sink per kind; see
//     metrics/prom for a Prometheus adapter.
//
// Basic usage
//
//	reg := intern.NewRegistry(intern.Options{DefaultCapacity: 10_000})
//	c4 := reg.Pitch(value.StepC, 0, 4)
//	q := value.Duration{Value: value.Quarter}
//	a := reg.Note(c4, q, value.NoRelation, reg.Articulation(value.Staccato, 0))
//	b := reg.Note(c4, q, value.NoRelation, reg.Articulation(value.Staccato, 0))
//	// a == b
//
//	tied := reg.Note(c4, q, value.NoRelation, reg.Marker(value.TieStart, 17))
//	// tied carries a relationship and is never shared
package intern
