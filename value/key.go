package value

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrInvalid is wrapped by every error describing malformed constructor
// arguments or field encodings.
var ErrInvalid = errors.New("value: invalid")

// Fields is the scalar part of a constructor argument tuple. Each kind uses a
// subset: pitches use Step/Alter/Octave, leaf markers use Mark/Rel and
// composites use Duration/Rel. Children are carried separately.
type Fields struct {
	Step     Step
	Alter    int8
	Octave   int8
	Mark     uint8 // ArticulationMark, DynamicLevel or MarkerKind
	Duration Duration
	Rel      RelID
}

// FieldsOf extracts the scalar arguments v was constructed with.
func FieldsOf(v Value) Fields {
	switch v := v.(type) {
	case *Pitch:
		return Fields{Step: v.step, Alter: v.alter, Octave: v.octave}
	case *Articulation:
		return Fields{Mark: uint8(v.mark), Rel: v.rel}
	case *Dynamic:
		return Fields{Mark: uint8(v.level), Rel: v.rel}
	case *Marker:
		return Fields{Mark: uint8(v.marker), Rel: v.rel}
	case *Rest:
		return Fields{Duration: v.dur, Rel: v.rel}
	case *Note:
		return Fields{Duration: v.dur, Rel: v.rel}
	case *Chord:
		return Fields{Duration: v.dur, Rel: v.rel}
	default:
		return Fields{}
	}
}

// AppendFields appends the varint encoding of the fields kind k uses.
func AppendFields(b []byte, k Kind, f Fields) []byte {
	switch {
	case k == KindPitch:
		b = protowire.AppendVarint(b, uint64(f.Step))
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(f.Alter)))
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(f.Octave)))
	case k.Composite():
		b = protowire.AppendVarint(b, uint64(f.Duration.Value))
		b = protowire.AppendVarint(b, uint64(f.Duration.Dots))
		b = protowire.AppendVarint(b, uint64(f.Rel))
	default:
		b = protowire.AppendVarint(b, uint64(f.Mark))
		b = protowire.AppendVarint(b, uint64(f.Rel))
	}
	return b
}

// ConsumeFields parses the fields of kind k from the front of b and returns
// them with the number of bytes consumed.
func ConsumeFields(k Kind, b []byte) (Fields, int, error) {
	var (
		f   Fields
		off int
	)
	next := func(max uint64) (uint64, error) {
		v, n := protowire.ConsumeVarint(b[off:])
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if v > max {
			return 0, fmt.Errorf("%w: %s field %d out of range", ErrInvalid, k, v)
		}
		off += n
		return v, nil
	}
	zigzag := func() (int8, error) {
		v, err := next(^uint64(0))
		if err != nil {
			return 0, err
		}
		s := protowire.DecodeZigZag(v)
		if s < -128 || s > 127 {
			return 0, fmt.Errorf("%w: %s field %d out of range", ErrInvalid, k, s)
		}
		return int8(s), nil
	}

	var err error
	switch {
	case k == KindPitch:
		var step uint64
		if step, err = next(uint64(StepB)); err != nil {
			return f, off, err
		}
		f.Step = Step(step)
		if f.Alter, err = zigzag(); err != nil {
			return f, off, err
		}
		if f.Octave, err = zigzag(); err != nil {
			return f, off, err
		}
	case k.Composite():
		var nv, dots, rel uint64
		if nv, err = next(uint64(SixtyFourth)); err != nil {
			return f, off, err
		}
		if dots, err = next(3); err != nil {
			return f, off, err
		}
		if rel, err = next(uint64(^uint32(0))); err != nil {
			return f, off, err
		}
		f.Duration = Duration{Value: NoteValue(nv), Dots: uint8(dots)}
		f.Rel = RelID(rel)
	case k.Valid():
		var mark, rel uint64
		if mark, err = next(uint64(maxMark(k))); err != nil {
			return f, off, err
		}
		if rel, err = next(uint64(^uint32(0))); err != nil {
			return f, off, err
		}
		f.Mark = uint8(mark)
		f.Rel = RelID(rel)
	default:
		return f, off, fmt.Errorf("%w: %s", ErrInvalid, k)
	}
	return f, off, nil
}

func maxMark(k Kind) uint8 {
	switch k {
	case KindArticulation:
		return uint8(Fermata)
	case KindDynamic:
		return uint8(SFZ)
	default:
		return uint8(BeamStop)
	}
}

// Key is the intern key of a value: its kind and full constructor arguments,
// children included, in a prefix-free byte encoding. Two values have equal
// keys iff they are structurally equal. Keys are comparable and can be used
// as map keys directly.
type Key struct {
	enc string
}

// KeyOf computes the intern key of v. It is defined for ineligible values as
// well, although only eligible keys are ever looked up in a table.
func KeyOf(v Value) Key {
	return Key{enc: string(appendKey(nil, v))}
}

func appendKey(b []byte, v Value) []byte {
	k := v.Kind()
	b = protowire.AppendVarint(b, uint64(k))
	b = AppendFields(b, k, FieldsOf(v))
	if k.Composite() {
		kids := Children(v)
		b = protowire.AppendVarint(b, uint64(len(kids)))
		for _, c := range kids {
			b = appendKey(b, c)
		}
	}
	return b
}

// Kind returns the tag the key was computed for.
func (k Key) Kind() Kind {
	if k.enc == "" {
		return kindInvalid
	}
	// Tags are below 0x80, so the varint is a single byte.
	return Kind(k.enc[0])
}

// Hash returns a 64-bit xxhash of the key, used to pick a table shard.
func (k Key) Hash() uint64 { return xxhash.Sum64String(k.enc) }

// Len is the size of the key encoding in bytes.
func (k Key) Len() int { return len(k.enc) }

func (k Key) String() string {
	return k.Kind().String() + ":" + hex.EncodeToString([]byte(k.enc))
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b Value) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return KeyOf(a) == KeyOf(b)
}
