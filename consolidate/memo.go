package consolidate

import (
	"slices"

	"github.com/IvanBrykalov/hashcons/intern"
	"github.com/IvanBrykalov/hashcons/score"
	"github.com/IvanBrykalov/hashcons/value"
)

type slot struct {
	loc score.Location
	v   value.Value
}

func scan(doc *score.Document) []slot {
	out := make([]slot, 0, doc.Len())
	doc.Walk(func(loc score.Location, v value.Value) bool {
		out = append(out, slot{loc: loc, v: v})
		return true
	})
	return out
}

// memo remembers, for one cycle, the instance each key resolved to. Tables
// may evict between documents; the memo keeps the answer stable so that one
// cycle always converges.
type memo struct {
	reg     *intern.Registry
	byKey   map[value.Key]value.Value
	rebuilt map[value.Value]value.Value // ineligible values rebuilt around new parts
}

func newMemo(reg *intern.Registry) *memo {
	return &memo{
		reg:     reg,
		byKey:   make(map[value.Key]value.Value),
		rebuilt: make(map[value.Value]value.Value),
	}
}

// canonical returns the instance v should be replaced with, which is v itself
// when nothing changes.
func (m *memo) canonical(v value.Value) value.Value {
	if value.Check(v) != nil {
		return v
	}
	if r, ok := m.rebuilt[v]; ok {
		return r
	}

	children := value.Children(v)
	var next []value.Value
	for i, c := range children {
		nc := m.canonical(c)
		if nc == c {
			continue
		}
		if next == nil {
			next = slices.Clone(children)
		}
		next[i] = nc
	}

	if !value.Cacheable(v) || !m.shared(v.Kind()) {
		if next == nil {
			return v
		}
		nv, err := value.WithChildren(v, next)
		if err != nil {
			return v
		}
		m.rebuilt[v] = nv
		return nv
	}

	key := value.KeyOf(v)
	if got, ok := m.byKey[key]; ok {
		return got
	}
	cand := v
	if next != nil {
		nv, err := value.WithChildren(v, next)
		if err != nil {
			return v
		}
		cand = nv
	}
	t := m.reg.Table(v.Kind())
	got, _ := t.Canonicalize(key, cand)
	if got != cand && !sameChildren(got, cand) {
		// The resident instance holds parts this cycle has replaced. Evict
		// it so the table agrees with the documents from now on.
		t.Remove(key)
		if got, _ = t.Canonicalize(key, cand); !sameChildren(got, cand) {
			got = cand
		}
	}
	m.byKey[key] = got
	return got
}

// shared reports whether kind k has an enabled table.
func (m *memo) shared(k value.Kind) bool {
	t := m.reg.Table(k)
	return t != nil && t.Capacity() > 0
}

func sameChildren(a, b value.Value) bool {
	return slices.Equal(value.Children(a), value.Children(b))
}
