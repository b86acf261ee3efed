package value

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quarter = Duration{Value: Quarter}

func TestCacheable(t *testing.T) {
	t.Parallel()

	c4 := NewPitch(StepC, 0, 4)
	stacc := NewArticulation(Staccato, NoRelation)
	slur := NewMarker(SlurStart, 7)

	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"pitch", c4, true},
		{"articulation", stacc, true},
		{"articulation with rel", NewArticulation(Accent, 3), false},
		{"dynamic", NewDynamic(MF, NoRelation), true},
		{"marker without rel", NewMarker(BeamStart, NoRelation), true},
		{"marker with rel", slur, false},
		{"bare rest", NewRest(quarter, NoRelation), true},
		{"rest with rel", NewRest(quarter, 9), false},
		{"note with cacheable attachments", NewNote(c4, quarter, NoRelation, stacc), true},
		{"note with rel attachment", NewNote(c4, quarter, NoRelation, stacc, slur), false},
		{"note with rel and cacheable attachments", NewNote(c4, quarter, 2, stacc), false},
		{"note without pitch", NewNote(nil, quarter, NoRelation), false},
		{"chord of cacheable notes", NewChord([]*Note{NewNote(c4, quarter, NoRelation)}, quarter, NoRelation), true},
		{"chord with tied note", NewChord([]*Note{
			NewNote(c4, quarter, NoRelation),
			NewNote(c4, quarter, NoRelation, NewMarker(TieStart, 1)),
		}, quarter, NoRelation), false},
		{"nil pitch", (*Pitch)(nil), false},
		{"nil interface", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cacheable(tt.v))
		})
	}
}

// Eligibility depends on fields, not identity: two independently built values
// with the same predicate inputs agree.
func TestCacheable_IdentityIndependent(t *testing.T) {
	t.Parallel()

	build := func(rel RelID) Value {
		return NewNote(NewPitch(StepG, 1, 3), quarter, NoRelation, NewArticulation(Tenuto, rel))
	}
	for _, rel := range []RelID{NoRelation, 1, 42} {
		a, b := build(rel), build(rel)
		require.NotSame(t, a, b)
		assert.Equal(t, Cacheable(a), Cacheable(b), "rel=%d", rel)
	}
}

func TestKeyOf_StructuralEquality(t *testing.T) {
	t.Parallel()

	mk := func(alter int8) Value {
		return NewChord([]*Note{
			NewNote(NewPitch(StepC, 0, 4), quarter, NoRelation),
			NewNote(NewPitch(StepE, alter, 4), quarter, NoRelation),
		}, quarter, NoRelation, NewDynamic(P, NoRelation))
	}

	a, b, c := mk(0), mk(0), mk(-1)
	assert.Equal(t, KeyOf(a), KeyOf(b))
	assert.Equal(t, KeyOf(a).Hash(), KeyOf(b).Hash())
	assert.NotEqual(t, KeyOf(a), KeyOf(c))
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.Equal(t, KindChord, KeyOf(a).Kind())

	// Same scalar encoding, different kind.
	assert.NotEqual(t, KeyOf(NewArticulation(Staccato, 0)), KeyOf(NewDynamic(PPP, 0)))
	// Attachment order is part of the key.
	s, d := NewArticulation(Staccato, 0), NewDynamic(F, 0)
	assert.NotEqual(t,
		KeyOf(NewRest(quarter, 0, s, d)),
		KeyOf(NewRest(quarter, 0, d, s)))
}

func TestFields_RoundTrip(t *testing.T) {
	t.Parallel()

	vals := []Value{
		NewPitch(StepB, -2, -1),
		NewArticulation(Fermata, 12345),
		NewDynamic(SFZ, NoRelation),
		NewMarker(TieStop, 1<<31),
		NewRest(Duration{Value: SixtyFourth, Dots: 2}, 5),
	}
	for _, v := range vals {
		enc := AppendFields(nil, v.Kind(), FieldsOf(v))
		f, n, err := ConsumeFields(v.Kind(), enc)
		require.NoError(t, err, v.Kind())
		assert.Equal(t, len(enc), n)
		assert.Equal(t, FieldsOf(v), f)
	}
}

func TestConsumeFields_Rejects(t *testing.T) {
	t.Parallel()

	// step 9 is not a diatonic letter
	_, _, err := ConsumeFields(KindPitch, []byte{9, 0, 0})
	assert.True(t, errors.Is(err, ErrInvalid))

	// truncated
	_, _, err = ConsumeFields(KindRest, []byte{2})
	assert.Error(t, err)

	_, _, err = ConsumeFields(Kind(99), []byte{0})
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestBuild(t *testing.T) {
	t.Parallel()

	c4 := NewPitch(StepC, 0, 4)
	note := NewNote(c4, quarter, NoRelation, NewArticulation(Accent, 0))
	chord := NewChord([]*Note{note, note}, quarter, 3, NewDynamic(FF, 0))

	for _, v := range []Value{c4, note, chord, NewRest(quarter, 0, NewMarker(SlurStop, 4))} {
		got, err := Build(v.Kind(), FieldsOf(v), Children(v))
		require.NoError(t, err)
		assert.NotSame(t, v, got)
		assert.True(t, Equal(v, got))
		assert.Equal(t, v.Rel(), got.Rel())
	}

	_, err := Build(KindNote, Fields{}, nil)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = Build(KindNote, Fields{}, []Value{NewArticulation(Accent, 0)})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = Build(KindRest, Fields{}, []Value{c4})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = Build(KindPitch, Fields{}, []Value{c4})
	assert.ErrorIs(t, err, ErrInvalid)
	// notes may not follow attachments in a chord
	_, err = Build(KindChord, Fields{}, []Value{note, NewDynamic(P, 0), note})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestClone(t *testing.T) {
	t.Parallel()

	orig := NewChord([]*Note{
		NewNote(NewPitch(StepA, 0, 3), quarter, 0, NewMarker(TieStart, 8)),
	}, quarter, 0)
	cp := Clone(orig).(*Chord)

	assert.True(t, Equal(orig, cp))
	assert.NotSame(t, orig, cp)
	assert.NotSame(t, orig.Notes()[0], cp.Notes()[0])
	assert.NotSame(t, orig.Notes()[0].Pitch(), cp.Notes()[0].Pitch())
	assert.Equal(t, RelID(8), cp.Notes()[0].Attachments()[0].Rel())
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("tuplet")
	assert.Error(t, err)
	assert.Equal(t, "kind(42)", Kind(42).String())
}
