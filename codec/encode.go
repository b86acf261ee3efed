// Package codec serializes score documents so that every shared eligible
// value is written once.
//
// A stream is a header, a registry of eligible values and a body. Registry
// entries are numbered in first-seen post-order, so an entry only refers to
// entries before it. In the body an element slot is either a reference token
// into the registry or an inline value; ineligible values are always inline,
// and their eligible parts are tokens. Identity within the stream follows
// reference identity in the source document.
//
// Decoding rebuilds registry entries through an intern.Registry, so loaded
// values share with whatever the process has already canonicalized.
package codec

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/IvanBrykalov/hashcons/score"
	"github.com/IvanBrykalov/hashcons/value"
)

// Version is the stream format version written by Serialize.
const Version = 1

var magic = []byte("HCNS")

// Stats describes one encoded stream.
type Stats struct {
	Bytes   int // total stream size
	Entries int // registry entries
	Tokens  int // reference tokens, nested ones included
	Inline  int // inline values, nested ones included
}

type encoder struct {
	buf       []byte
	index     map[value.Value]int
	cacheable map[value.Value]bool
	order     []value.Value
	stats     Stats
}

// Serialize encodes doc.
func Serialize(doc *score.Document) ([]byte, error) {
	b, _, err := serialize(doc)
	return b, err
}

// SerializeStats is Serialize that also reports what the stream contains.
func SerializeStats(doc *score.Document) ([]byte, Stats, error) {
	return serialize(doc)
}

// Encode writes the encoding of doc to w.
func Encode(w io.Writer, doc *score.Document) error {
	b, err := Serialize(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func serialize(doc *score.Document) ([]byte, Stats, error) {
	e := &encoder{
		index:     make(map[value.Value]int),
		cacheable: make(map[value.Value]bool),
	}

	var bad error
	doc.Walk(func(loc score.Location, v value.Value) bool {
		if err := e.collect(v); err != nil {
			bad = fmt.Errorf("codec: element at %s: %w", loc, err)
			return false
		}
		return true
	})
	if bad != nil {
		return nil, Stats{}, bad
	}

	e.buf = append(e.buf, magic...)
	e.buf = protowire.AppendVarint(e.buf, Version)
	e.buf = append(e.buf, doc.ID[:]...)
	e.buf = protowire.AppendString(e.buf, doc.Title)

	e.buf = protowire.AppendVarint(e.buf, uint64(len(e.order)))
	for _, v := range e.order {
		e.entry(v)
	}
	e.stats.Entries = len(e.order)

	e.buf = protowire.AppendVarint(e.buf, uint64(len(doc.Staves)))
	for _, s := range doc.Staves {
		e.buf = protowire.AppendString(e.buf, s.Name)
		e.buf = protowire.AppendVarint(e.buf, uint64(len(s.Measures)))
		for _, m := range s.Measures {
			e.buf = protowire.AppendVarint(e.buf, uint64(len(m.Elements)))
			for _, v := range m.Elements {
				e.slot(v)
			}
		}
	}
	e.stats.Bytes = len(e.buf)
	return e.buf, e.stats, nil
}

func (e *encoder) isCacheable(v value.Value) bool {
	ok, seen := e.cacheable[v]
	if !seen {
		ok = value.Cacheable(v)
		e.cacheable[v] = ok
	}
	return ok
}

// collect numbers the eligible values reachable from v, children first.
func (e *encoder) collect(v value.Value) error {
	if _, done := e.index[v]; done {
		return nil
	}
	if err := value.Check(v); err != nil {
		return err
	}
	for _, c := range value.Children(v) {
		if err := e.collect(c); err != nil {
			return err
		}
	}
	if e.isCacheable(v) {
		e.index[v] = len(e.order)
		e.order = append(e.order, v)
	}
	return nil
}

func (e *encoder) entry(v value.Value) {
	k := v.Kind()
	e.buf = protowire.AppendVarint(e.buf, uint64(k))
	e.buf = value.AppendFields(e.buf, k, value.FieldsOf(v))
	if !k.Composite() {
		return
	}
	children := value.Children(v)
	e.buf = protowire.AppendVarint(e.buf, uint64(len(children)))
	for _, c := range children {
		e.buf = protowire.AppendVarint(e.buf, uint64(e.index[c]))
	}
}

func (e *encoder) slot(v value.Value) {
	if i, ok := e.index[v]; ok {
		e.buf = protowire.AppendVarint(e.buf, uint64(i)<<1)
		e.stats.Tokens++
		return
	}
	k := v.Kind()
	e.buf = protowire.AppendVarint(e.buf, uint64(k)<<1|1)
	e.buf = value.AppendFields(e.buf, k, value.FieldsOf(v))
	e.stats.Inline++
	if !k.Composite() {
		return
	}
	children := value.Children(v)
	e.buf = protowire.AppendVarint(e.buf, uint64(len(children)))
	for _, c := range children {
		e.slot(c)
	}
}
