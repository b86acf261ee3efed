package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/IvanBrykalov/hashcons/intern"
	"github.com/IvanBrykalov/hashcons/score"
	"github.com/IvanBrykalov/hashcons/value"
)

// maxDepth bounds inline nesting. Well-formed values nest at most three
// deep (chord, note, attachment).
const maxDepth = 8

type decoder struct {
	buf     []byte
	off     int
	reg     *intern.Registry
	entries []value.Value // nil marks an entry that may not be referenced
	stats   Stats
}

// Deserialize decodes a stream produced by Serialize. Registry entries are
// rebuilt through reg and therefore share with its tables.
func Deserialize(data []byte, reg *intern.Registry) (*score.Document, error) {
	doc, _, err := deserialize(data, reg)
	return doc, err
}

// DeserializeStats is Deserialize that also reports what the stream contained.
func DeserializeStats(data []byte, reg *intern.Registry) (*score.Document, Stats, error) {
	return deserialize(data, reg)
}

// Decode reads r to the end and decodes it.
func Decode(r io.Reader, reg *intern.Registry) (*score.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: read: %w", err)
	}
	return Deserialize(data, reg)
}

func deserialize(data []byte, reg *intern.Registry) (*score.Document, Stats, error) {
	d := &decoder{buf: data, reg: reg}
	doc, err := d.document()
	if err != nil {
		return nil, Stats{}, err
	}
	d.stats.Bytes = len(data)
	d.stats.Entries = len(d.entries)
	return doc, d.stats, nil
}

func (d *decoder) document() (*score.Document, error) {
	if !bytes.HasPrefix(d.buf, magic) {
		return nil, d.fail(errors.New("bad magic"))
	}
	d.off = len(magic)
	v, err := d.uvarint()
	if err != nil {
		return nil, err
	}
	if v != Version {
		return nil, d.fail(fmt.Errorf("unsupported version %d", v))
	}
	if len(d.buf)-d.off < 16 {
		return nil, d.fail(io.ErrUnexpectedEOF)
	}
	doc := &score.Document{}
	copy(doc.ID[:], d.buf[d.off:])
	d.off += 16
	if doc.Title, err = d.string(); err != nil {
		return nil, err
	}

	if err := d.registry(); err != nil {
		return nil, err
	}

	staves, err := d.count()
	if err != nil {
		return nil, err
	}
	doc.Staves = make([]*score.Staff, staves)
	for si := range doc.Staves {
		s := &score.Staff{}
		if s.Name, err = d.string(); err != nil {
			return nil, err
		}
		measures, err := d.count()
		if err != nil {
			return nil, err
		}
		s.Measures = make([]*score.Measure, measures)
		for mi := range s.Measures {
			n, err := d.count()
			if err != nil {
				return nil, err
			}
			m := &score.Measure{Elements: make([]value.Value, n)}
			for ei := range m.Elements {
				if m.Elements[ei], err = d.slot(0); err != nil {
					return nil, err
				}
			}
			s.Measures[mi] = m
		}
		doc.Staves[si] = s
	}
	if d.off != len(d.buf) {
		return nil, d.fail(fmt.Errorf("%d trailing bytes", len(d.buf)-d.off))
	}
	return doc, nil
}

func (d *decoder) registry() error {
	n, err := d.count()
	if err != nil {
		return err
	}
	d.entries = make([]value.Value, 0, n)
	for i := 0; i < n; i++ {
		start := d.off
		tag, err := d.uvarint()
		if err != nil {
			return err
		}
		k, err := kindOf(start, tag)
		if err != nil {
			return err
		}
		f, err := d.fields(k)
		if err != nil {
			return err
		}
		var children []value.Value
		if k.Composite() {
			c, err := d.count()
			if err != nil {
				return err
			}
			children = make([]value.Value, c)
			for j := range children {
				at := d.off
				idx, err := d.uvarint()
				if err != nil {
					return err
				}
				if children[j], err = d.resolve(at, idx, i, n); err != nil {
					return err
				}
			}
		}
		v, err := d.reg.Build(k, f, children)
		if err != nil {
			return &FormatError{Offset: start, Err: err}
		}
		if !value.Cacheable(v) {
			v = nil
		}
		d.entries = append(d.entries, v)
	}
	return nil
}

func (d *decoder) slot(depth int) (value.Value, error) {
	at := d.off
	tag, err := d.uvarint()
	if err != nil {
		return nil, err
	}
	if tag&1 == 0 {
		d.stats.Tokens++
		return d.resolve(at, tag>>1, len(d.entries), len(d.entries))
	}
	if depth >= maxDepth {
		return nil, &FormatError{Offset: at, Err: errors.New("inline values nested too deep")}
	}
	k, err := kindOf(at, tag>>1)
	if err != nil {
		return nil, err
	}
	f, err := d.fields(k)
	if err != nil {
		return nil, err
	}
	var children []value.Value
	if k.Composite() {
		c, err := d.count()
		if err != nil {
			return nil, err
		}
		children = make([]value.Value, c)
		for j := range children {
			if children[j], err = d.slot(depth + 1); err != nil {
				return nil, err
			}
		}
	}
	v, err := d.reg.Build(k, f, children)
	if err != nil {
		return nil, &FormatError{Offset: at, Err: err}
	}
	d.stats.Inline++
	return v, nil
}

func kindOf(at int, tag uint64) (value.Kind, error) {
	if tag == 0 || tag >= uint64(value.NumKinds) {
		return 0, &FormatError{Offset: at, Err: fmt.Errorf("unknown kind %d", tag)}
	}
	return value.Kind(tag), nil
}

func (d *decoder) fields(k value.Kind) (value.Fields, error) {
	f, n, err := value.ConsumeFields(k, d.buf[d.off:])
	if err != nil {
		return value.Fields{}, d.fail(err)
	}
	d.off += n
	return f, nil
}

// resolve maps a registry index to its entry. Only the first avail entries
// are defined at this point of the stream.
func (d *decoder) resolve(at int, idx uint64, avail, total int) (value.Value, error) {
	switch {
	case idx >= uint64(total):
		return nil, &CorruptReferenceError{Offset: at, Index: idx, Count: total, Reason: reasonOutOfRange}
	case idx >= uint64(avail):
		return nil, &CorruptReferenceError{Offset: at, Index: idx, Count: total, Reason: reasonForward}
	}
	v := d.entries[idx]
	if v == nil {
		return nil, &CorruptReferenceError{Offset: at, Index: idx, Count: total, Reason: reasonIneligible}
	}
	return v, nil
}

func (d *decoder) uvarint() (uint64, error) {
	v, n := protowire.ConsumeVarint(d.buf[d.off:])
	if n < 0 {
		return 0, d.fail(protowire.ParseError(n))
	}
	d.off += n
	return v, nil
}

// count reads a length prefix. Every counted item takes at least one byte,
// so a count larger than the rest of the stream is rejected before anything
// is allocated for it.
func (d *decoder) count() (int, error) {
	at := d.off
	v, err := d.uvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(len(d.buf)-d.off) {
		return 0, &FormatError{Offset: at, Err: fmt.Errorf("count %d exceeds remaining %d bytes", v, len(d.buf)-d.off)}
	}
	return int(v), nil
}

func (d *decoder) string() (string, error) {
	b, n := protowire.ConsumeBytes(d.buf[d.off:])
	if n < 0 {
		return "", d.fail(protowire.ParseError(n))
	}
	d.off += n
	return string(b), nil
}

func (d *decoder) fail(err error) error {
	return &FormatError{Offset: d.off, Err: err}
}
