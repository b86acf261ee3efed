package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/IvanBrykalov/hashcons/intern"
	"github.com/IvanBrykalov/hashcons/score"
	"github.com/IvanBrykalov/hashcons/value"
)

var quarter = value.Duration{Value: value.Quarter}

// fixture builds a document in which one canonical note appears three times
// and two tied notes carry relationships.
func fixture(reg *intern.Registry) *score.Document {
	d := score.New("chorale")
	d.AddStaff("soprano", 2)
	d.AddStaff("bass", 1)

	c5 := reg.Note(reg.Pitch(value.StepC, 0, 5), quarter, 0, reg.Articulation(value.Tenuto, 0))
	tieA := reg.Note(reg.Pitch(value.StepG, 0, 4), quarter, 9, reg.Marker(value.TieStart, 9))
	tieB := reg.Note(reg.Pitch(value.StepG, 0, 4), quarter, 9, reg.Marker(value.TieStop, 9))
	chord := reg.Chord([]*value.Note{c5, reg.Note(reg.Pitch(value.StepE, 0, 5), quarter, 0)},
		value.Duration{Value: value.Half}, 0, reg.Dynamic(value.MF, 0))

	_ = d.Append(0, 0, c5, tieA, c5)
	_ = d.Append(0, 1, tieB, chord)
	_ = d.Append(1, 0, c5, reg.Rest(quarter, 0))
	return d
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	src := fixture(intern.NewRegistry(intern.Options{}))
	data, st, err := SerializeStats(src)
	require.NoError(t, err)
	assert.Equal(t, len(data), st.Bytes)

	reg := intern.NewRegistry(intern.Options{})
	got, err := Deserialize(data, reg)
	require.NoError(t, err)
	require.True(t, score.Equal(src, got), "decoded document differs")
	assert.False(t, got.Modified())

	// Elements that shared one instance before still do.
	a, _ := got.At(score.Location{Staff: 0, Measure: 0, Slot: 0})
	b, _ := got.At(score.Location{Staff: 0, Measure: 0, Slot: 2})
	c, _ := got.At(score.Location{Staff: 1, Measure: 0, Slot: 0})
	assert.Same(t, a, b)
	assert.Same(t, a, c)

	// Decoded values are the registry's canonical instances.
	assert.Same(t, reg.Pitch(value.StepC, 0, 5), a.(*value.Note).Pitch())

	// Tied notes stay distinct instances but share their canonical pitch.
	ta, _ := got.At(score.Location{Staff: 0, Measure: 0, Slot: 1})
	tb, _ := got.At(score.Location{Staff: 0, Measure: 1, Slot: 0})
	assert.NotSame(t, ta, tb)
	assert.Equal(t, value.RelID(9), ta.Rel())
	assert.Same(t, ta.(*value.Note).Pitch(), tb.(*value.Note).Pitch())

	_, st2, err := DeserializeStats(data, reg)
	require.NoError(t, err)
	if diff := cmp.Diff(st, st2); diff != "" {
		t.Fatalf("stats (-encode +decode):\n%s", diff)
	}
}

func TestRoundTrip_EncodeDecode(t *testing.T) {
	t.Parallel()

	src := fixture(intern.NewRegistry(intern.Options{}))
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src))
	got, err := Decode(&buf, intern.NewRegistry(intern.Options{}))
	require.NoError(t, err)
	assert.True(t, score.Equal(src, got))
}

// Structurally equal values that were distinct instances in the source are
// merged on load because the registry canonicalizes them.
func TestDecodeMergesDuplicates(t *testing.T) {
	t.Parallel()

	d := score.New("dupes")
	d.AddStaff("", 1)
	_ = d.Append(0, 0, value.NewDynamic(value.F, 0), value.NewDynamic(value.F, 0))

	data, st, err := SerializeStats(d)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Entries, "encoder numbers by identity")

	got, err := Deserialize(data, intern.NewRegistry(intern.Options{}))
	require.NoError(t, err)
	a, _ := got.At(score.Location{})
	b, _ := got.At(score.Location{Slot: 1})
	assert.Same(t, a, b)
}

func TestSharedValuesEncodeOnce(t *testing.T) {
	t.Parallel()

	const n = 50000
	pitches := make([]*value.Pitch, 10)
	for i := range pitches {
		pitches[i] = value.NewPitch(value.Step(i%7), 0, int8(3+i/7))
	}
	d := score.New("")
	d.AddStaff("", 1)
	for i := 0; i < n; i++ {
		_ = d.Append(0, 0, pitches[i%len(pitches)])
	}

	data, st, err := SerializeStats(d)
	require.NoError(t, err)
	assert.Equal(t, 10, st.Entries)
	assert.Equal(t, n, st.Tokens)
	assert.Zero(t, st.Inline)

	inline := 1 + len(value.AppendFields(nil, value.KindPitch, value.FieldsOf(pitches[0])))
	assert.Less(t, len(data)*3, n*inline, "shared stream should be far smaller than writing every value")
}

func TestSerializeRejectsMalformed(t *testing.T) {
	t.Parallel()

	d := score.New("")
	d.AddStaff("", 1)
	_ = d.Append(0, 0, value.NewNote(nil, quarter, 0))
	_, err := Serialize(d)
	assert.ErrorIs(t, err, value.ErrInvalid)
}

// stream assembles a raw stream around a hand-written registry and body.
func stream(registry, body []byte) []byte {
	b := append([]byte(nil), magic...)
	b = protowire.AppendVarint(b, Version)
	b = append(b, make([]byte, 16)...)
	b = protowire.AppendString(b, "")
	b = append(b, registry...)
	return append(b, body...)
}

// oneSlot is a body of one staff, one measure, one element.
func oneSlot(slot ...uint64) []byte {
	b := protowire.AppendVarint(nil, 1)
	b = protowire.AppendString(b, "")
	b = protowire.AppendVarint(b, 1)
	b = protowire.AppendVarint(b, uint64(len(slot)))
	for _, s := range slot {
		b = protowire.AppendVarint(b, s)
	}
	return b
}

func pitchEntry() []byte {
	b := protowire.AppendVarint(nil, uint64(value.KindPitch))
	return value.AppendFields(b, value.KindPitch, value.Fields{Step: value.StepA, Octave: 4})
}

func TestCorruptReferences(t *testing.T) {
	t.Parallel()

	onePitch := append(protowire.AppendVarint(nil, 1), pitchEntry()...)

	// A note entry pointing at entry 1 while only entry 0 exists so far.
	forward := protowire.AppendVarint(nil, 2)
	forward = protowire.AppendVarint(forward, uint64(value.KindNote))
	forward = value.AppendFields(forward, value.KindNote, value.Fields{Duration: quarter})
	forward = protowire.AppendVarint(forward, 1)
	forward = protowire.AppendVarint(forward, 1)
	forward = append(forward, pitchEntry()...)

	// A tied marker written into the registry.
	tied := protowire.AppendVarint(nil, 1)
	tied = protowire.AppendVarint(tied, uint64(value.KindMarker))
	tied = value.AppendFields(tied, value.KindMarker, value.Fields{Mark: uint8(value.TieStart), Rel: 3})

	tests := []struct {
		name   string
		data   []byte
		reason string
	}{
		{"out of range", stream(onePitch, oneSlot(5<<1)), reasonOutOfRange},
		{"forward", stream(forward, oneSlot(0)), reasonForward},
		{"ineligible entry", stream(tied, oneSlot(0)), reasonIneligible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.data, intern.NewRegistry(intern.Options{}))
			var cre *CorruptReferenceError
			require.True(t, errors.As(err, &cre), "got %v", err)
			assert.Equal(t, tt.reason, cre.Reason)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}

	// The same streams are fine when every reference resolves.
	_, err := Deserialize(stream(onePitch, oneSlot(0)), intern.NewRegistry(intern.Options{}))
	assert.NoError(t, err)
}

func TestMalformedStreams(t *testing.T) {
	t.Parallel()

	good, err := Serialize(fixture(intern.NewRegistry(intern.Options{})))
	require.NoError(t, err)

	// Every proper prefix is truncated somewhere.
	for i := 0; i < len(good); i++ {
		_, err := Deserialize(good[:i], intern.NewRegistry(intern.Options{}))
		require.Error(t, err, "prefix of %d bytes", i)
		assert.ErrorIs(t, err, ErrCorrupt)
	}

	var fe *FormatError
	_, err = Deserialize(append(append([]byte(nil), good...), 0), intern.NewRegistry(intern.Options{}))
	require.True(t, errors.As(err, &fe))
	assert.ErrorContains(t, err, "trailing")

	bad := append([]byte(nil), good...)
	bad[0] = 'X'
	_, err = Deserialize(bad, intern.NewRegistry(intern.Options{}))
	assert.ErrorContains(t, err, "bad magic")

	huge := stream(protowire.AppendVarint(nil, 1<<40), nil)
	_, err = Deserialize(huge, intern.NewRegistry(intern.Options{}))
	assert.ErrorContains(t, err, "exceeds remaining")

	unknown := stream(protowire.AppendVarint(nil, 0), oneSlot(uint64(value.NumKinds)<<1|1))
	_, err = Deserialize(unknown, intern.NewRegistry(intern.Options{}))
	assert.ErrorContains(t, err, "unknown kind")
}
