// Package score is a minimal host document model: staves of measures of
// value elements. It exposes the traversal and targeted-replacement
// primitives the consolidation daemon and the codec work against.
//
// A Document is not safe for concurrent mutation; package workspace wraps
// documents in revisioned transactions.
package score

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/IvanBrykalov/hashcons/value"
)

// DocumentID identifies a document across saves.
type DocumentID = uuid.UUID

// Document is a tree of staves, measures and elements. The elements are
// immutable values and may be shared between documents; the containers are
// owned by the document.
type Document struct {
	ID     DocumentID
	Title  string
	Staves []*Staff

	modified bool
}

type Staff struct {
	Name     string
	Measures []*Measure
}

type Measure struct {
	Elements []value.Value
}

// Location addresses one top-level element slot.
type Location struct {
	Staff, Measure, Slot int
}

func (l Location) String() string {
	return fmt.Sprintf("staff %d measure %d slot %d", l.Staff, l.Measure, l.Slot)
}

// New returns an empty document with a fresh random ID.
func New(title string) *Document {
	return &Document{ID: uuid.New(), Title: title}
}

// AddStaff appends a staff with n empty measures and returns its index.
func (d *Document) AddStaff(name string, measures int) int {
	s := &Staff{Name: name, Measures: make([]*Measure, measures)}
	for i := range s.Measures {
		s.Measures[i] = &Measure{}
	}
	d.Staves = append(d.Staves, s)
	d.modified = true
	return len(d.Staves) - 1
}

// Append adds elements to the end of a measure.
func (d *Document) Append(staff, measure int, vs ...value.Value) error {
	m, err := d.measure(staff, measure)
	if err != nil {
		return err
	}
	m.Elements = append(m.Elements, vs...)
	d.modified = true
	return nil
}

// Walk visits every element slot in document order until fn returns false.
func (d *Document) Walk(fn func(Location, value.Value) bool) {
	for si, s := range d.Staves {
		for mi, m := range s.Measures {
			for ei, v := range m.Elements {
				if !fn(Location{Staff: si, Measure: mi, Slot: ei}, v) {
					return
				}
			}
		}
	}
}

// At returns the element stored at loc.
func (d *Document) At(loc Location) (value.Value, bool) {
	m, err := d.measure(loc.Staff, loc.Measure)
	if err != nil || loc.Slot < 0 || loc.Slot >= len(m.Elements) {
		return nil, false
	}
	return m.Elements[loc.Slot], true
}

// Replace stores v at loc. Only the slot changes; everything else in the
// document, including other references to the old value, is untouched.
func (d *Document) Replace(loc Location, v value.Value) error {
	m, err := d.measure(loc.Staff, loc.Measure)
	if err != nil {
		return err
	}
	if loc.Slot < 0 || loc.Slot >= len(m.Elements) {
		return fmt.Errorf("score: no element at %s", loc)
	}
	m.Elements[loc.Slot] = v
	d.modified = true
	return nil
}

// Len counts element slots.
func (d *Document) Len() int {
	n := 0
	for _, s := range d.Staves {
		for _, m := range s.Measures {
			n += len(m.Elements)
		}
	}
	return n
}

// Modified reports whether the document changed since it was built or cloned.
func (d *Document) Modified() bool { return d.modified }

// Clone copies the container structure; elements are shared. The clone
// starts unmodified.
func (d *Document) Clone() *Document {
	return d.copyWith(func(v value.Value) value.Value { return v })
}

// DeepCopy copies containers and elements alike, producing fresh value
// instances that bypass any intern table. This is how bulk rewrites
// introduce non-canonical duplicates.
func (d *Document) DeepCopy() *Document {
	return d.copyWith(value.Clone)
}

func (d *Document) copyWith(fn func(value.Value) value.Value) *Document {
	out := &Document{ID: d.ID, Title: d.Title, Staves: make([]*Staff, len(d.Staves))}
	for si, s := range d.Staves {
		ns := &Staff{Name: s.Name, Measures: make([]*Measure, len(s.Measures))}
		for mi, m := range s.Measures {
			nm := &Measure{Elements: make([]value.Value, len(m.Elements))}
			for ei, v := range m.Elements {
				nm.Elements[ei] = fn(v)
			}
			ns.Measures[mi] = nm
		}
		out.Staves[si] = ns
	}
	return out
}

// Equal compares documents by value: same ID, title and shape, and
// structurally equal elements in every slot. Instance identity is ignored.
func Equal(a, b *Document) bool {
	if a.ID != b.ID || a.Title != b.Title || len(a.Staves) != len(b.Staves) {
		return false
	}
	for si, s := range a.Staves {
		t := b.Staves[si]
		if s.Name != t.Name || len(s.Measures) != len(t.Measures) {
			return false
		}
		for mi, m := range s.Measures {
			n := t.Measures[mi]
			if len(m.Elements) != len(n.Elements) {
				return false
			}
			for ei, v := range m.Elements {
				if !value.Equal(v, n.Elements[ei]) {
					return false
				}
			}
		}
	}
	return true
}

func (d *Document) measure(staff, measure int) (*Measure, error) {
	if staff < 0 || staff >= len(d.Staves) {
		return nil, fmt.Errorf("score: no staff %d", staff)
	}
	s := d.Staves[staff]
	if measure < 0 || measure >= len(s.Measures) {
		return nil, fmt.Errorf("score: staff %d has no measure %d", staff, measure)
	}
	return s.Measures[measure], nil
}
