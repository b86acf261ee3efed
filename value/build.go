package value

import "fmt"

// Build constructs a fresh value of kind k from its fields and children,
// validating that the children fit the variant. It is the inverse of
// FieldsOf plus Children.
func Build(k Kind, f Fields, children []Value) (Value, error) {
	switch k {
	case KindPitch:
		if err := noChildren(k, children); err != nil {
			return nil, err
		}
		if f.Step > StepB {
			return nil, fmt.Errorf("%w: pitch step %d", ErrInvalid, f.Step)
		}
		return NewPitch(f.Step, f.Alter, f.Octave), nil

	case KindArticulation, KindDynamic, KindMarker:
		if err := noChildren(k, children); err != nil {
			return nil, err
		}
		if f.Mark > maxMark(k) {
			return nil, fmt.Errorf("%w: %s mark %d", ErrInvalid, k, f.Mark)
		}
		switch k {
		case KindArticulation:
			return NewArticulation(ArticulationMark(f.Mark), f.Rel), nil
		case KindDynamic:
			return NewDynamic(DynamicLevel(f.Mark), f.Rel), nil
		default:
			return NewMarker(MarkerKind(f.Mark), f.Rel), nil
		}

	case KindRest:
		if err := attachmentsOnly(k, children); err != nil {
			return nil, err
		}
		return NewRest(f.Duration, f.Rel, children...), nil

	case KindNote:
		if len(children) == 0 {
			return nil, fmt.Errorf("%w: note without pitch", ErrInvalid)
		}
		p, ok := children[0].(*Pitch)
		if !ok || p == nil {
			return nil, fmt.Errorf("%w: note child 0 is %T, want *Pitch", ErrInvalid, children[0])
		}
		if err := attachmentsOnly(k, children[1:]); err != nil {
			return nil, err
		}
		return NewNote(p, f.Duration, f.Rel, children[1:]...), nil

	case KindChord:
		var notes []*Note
		i := 0
		for ; i < len(children); i++ {
			n, ok := children[i].(*Note)
			if !ok {
				break
			}
			if n == nil {
				return nil, fmt.Errorf("%w: nil chord note", ErrInvalid)
			}
			notes = append(notes, n)
		}
		if err := attachmentsOnly(k, children[i:]); err != nil {
			return nil, err
		}
		return NewChord(notes, f.Duration, f.Rel, children[i:]...), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalid, k)
	}
}

// WithChildren returns a fresh copy of v with the same fields and the given
// children. The relationship identifier is carried over unchanged.
func WithChildren(v Value, children []Value) (Value, error) {
	return Build(v.Kind(), FieldsOf(v), children)
}

// Clone deep-copies v into fresh instances. The copy is structurally equal to
// v but shares no pointers with it.
func Clone(v Value) Value {
	switch v := v.(type) {
	case *Pitch:
		return clonePitch(v)
	case *Articulation:
		return NewArticulation(v.mark, v.rel)
	case *Dynamic:
		return NewDynamic(v.level, v.rel)
	case *Marker:
		return NewMarker(v.marker, v.rel)
	case *Rest:
		return NewRest(v.dur, v.rel, cloneAll(v.attachments)...)
	case *Note:
		return cloneNote(v)
	case *Chord:
		notes := make([]*Note, len(v.notes))
		for i, n := range v.notes {
			notes[i] = cloneNote(n)
		}
		return NewChord(notes, v.dur, v.rel, cloneAll(v.attachments)...)
	default:
		return v
	}
}

func clonePitch(p *Pitch) *Pitch {
	if p == nil {
		return nil
	}
	return NewPitch(p.step, p.alter, p.octave)
}

func cloneNote(n *Note) *Note {
	if n == nil {
		return nil
	}
	return NewNote(clonePitch(n.pitch), n.dur, n.rel, cloneAll(n.attachments)...)
}

func cloneAll(vs []Value) []Value {
	out := make([]Value, len(vs))
	for i, c := range vs {
		out[i] = Clone(c)
	}
	return out
}

func noChildren(k Kind, children []Value) error {
	if len(children) != 0 {
		return fmt.Errorf("%w: %s takes no children, got %d", ErrInvalid, k, len(children))
	}
	return nil
}

func attachmentsOnly(k Kind, children []Value) error {
	for i, c := range children {
		switch a := c.(type) {
		case *Articulation:
			if a != nil {
				continue
			}
		case *Dynamic:
			if a != nil {
				continue
			}
		case *Marker:
			if a != nil {
				continue
			}
		}
		return fmt.Errorf("%w: %s attachment %d is %T", ErrInvalid, k, i, c)
	}
	return nil
}

// Check reports whether v itself can be rebuilt from FieldsOf and Children:
// it must be non-nil, and a note must have a pitch. Children are not visited.
func Check(v Value) error {
	switch v := v.(type) {
	case nil:
		return fmt.Errorf("%w: nil value", ErrInvalid)
	case *Pitch:
		if v == nil {
			return fmt.Errorf("%w: nil pitch", ErrInvalid)
		}
	case *Articulation:
		if v == nil {
			return fmt.Errorf("%w: nil articulation", ErrInvalid)
		}
	case *Dynamic:
		if v == nil {
			return fmt.Errorf("%w: nil dynamic", ErrInvalid)
		}
	case *Marker:
		if v == nil {
			return fmt.Errorf("%w: nil marker", ErrInvalid)
		}
	case *Rest:
		if v == nil {
			return fmt.Errorf("%w: nil rest", ErrInvalid)
		}
	case *Note:
		if v == nil || v.pitch == nil {
			return fmt.Errorf("%w: note without pitch", ErrInvalid)
		}
	case *Chord:
		if v == nil {
			return fmt.Errorf("%w: nil chord", ErrInvalid)
		}
	}
	return nil
}
