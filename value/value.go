// Package value defines the immutable musical values the engine canonicalizes
// and the eligibility rule that decides which of them may be shared.
//
// Every variant is a pointer type with unexported fields; once constructed a
// value never changes, so two values with equal keys are interchangeable.
// The New* functions build fresh instances and never consult a cache; callers
// that want sharing go through intern.Registry instead.
package value

// RelID marks a value as one endpoint of a cross-tree relationship
// (a tie, a slur, a beam). NoRelation means the value carries none.
type RelID uint32

// NoRelation is the zero RelID.
const NoRelation RelID = 0

// Value is the closed set of cacheable variants:
// *Pitch, *Articulation, *Dynamic, *Marker, *Rest, *Note and *Chord.
type Value interface {
	Kind() Kind
	// Rel returns the relationship identifier, or NoRelation.
	Rel() RelID

	sealed()
}

// Step is the diatonic letter of a pitch.
type Step uint8

const (
	StepC Step = iota
	StepD
	StepE
	StepF
	StepG
	StepA
	StepB
)

func (s Step) String() string {
	if s > StepB {
		return "?"
	}
	return string("CDEFGAB"[s])
}

// NoteValue is the undotted length of a duration, expressed as log2 of its
// denominator: Whole=0, Half=1, Quarter=2 and so on.
type NoteValue uint8

const (
	Whole NoteValue = iota
	Half
	Quarter
	Eighth
	Sixteenth
	ThirtySecond
	SixtyFourth
)

// Duration is a plain comparable struct, not a cacheable value.
type Duration struct {
	Value NoteValue
	Dots  uint8
}

// ArticulationMark enumerates articulation symbols.
type ArticulationMark uint8

const (
	Staccato ArticulationMark = iota
	Staccatissimo
	Accent
	Marcato
	Tenuto
	Fermata
)

// DynamicLevel enumerates dynamic markings.
type DynamicLevel uint8

const (
	PPP DynamicLevel = iota
	PP
	P
	MP
	MF
	F
	FF
	FFF
	SFZ
)

// MarkerKind enumerates relationship endpoint markers.
type MarkerKind uint8

const (
	TieStart MarkerKind = iota
	TieStop
	SlurStart
	SlurStop
	BeamStart
	BeamStop
)

// Pitch is a leaf value and never carries a relationship.
type Pitch struct {
	step   Step
	alter  int8
	octave int8
}

// NewPitch builds a fresh pitch.
func NewPitch(step Step, alter, octave int8) *Pitch {
	return &Pitch{step: step, alter: alter, octave: octave}
}

func (*Pitch) Kind() Kind     { return KindPitch }
func (*Pitch) Rel() RelID     { return NoRelation }
func (p *Pitch) Step() Step   { return p.step }
func (p *Pitch) Alter() int8  { return p.alter }
func (p *Pitch) Octave() int8 { return p.octave }
func (*Pitch) sealed()        {}

// Articulation is a leaf marker attached to rests, notes and chords.
type Articulation struct {
	mark ArticulationMark
	rel  RelID
}

func NewArticulation(mark ArticulationMark, rel RelID) *Articulation {
	return &Articulation{mark: mark, rel: rel}
}

func (*Articulation) Kind() Kind               { return KindArticulation }
func (a *Articulation) Rel() RelID             { return a.rel }
func (a *Articulation) Mark() ArticulationMark { return a.mark }
func (*Articulation) sealed()                  {}

// Dynamic is a leaf dynamic marking.
type Dynamic struct {
	level DynamicLevel
	rel   RelID
}

func NewDynamic(level DynamicLevel, rel RelID) *Dynamic {
	return &Dynamic{level: level, rel: rel}
}

func (*Dynamic) Kind() Kind            { return KindDynamic }
func (d *Dynamic) Rel() RelID          { return d.rel }
func (d *Dynamic) Level() DynamicLevel { return d.level }
func (*Dynamic) sealed()               {}

// Marker is a relationship endpoint such as the start of a slur. In practice
// markers almost always carry a RelID and are therefore rarely shared.
type Marker struct {
	marker MarkerKind
	rel    RelID
}

func NewMarker(kind MarkerKind, rel RelID) *Marker {
	return &Marker{marker: kind, rel: rel}
}

func (*Marker) Kind() Kind           { return KindMarker }
func (m *Marker) Rel() RelID         { return m.rel }
func (m *Marker) Marker() MarkerKind { return m.marker }
func (*Marker) sealed()              {}

// Rest is a composite: a duration plus attachments.
type Rest struct {
	dur         Duration
	rel         RelID
	attachments []Value
}

// NewRest builds a fresh rest. The attachment slice is copied.
func NewRest(dur Duration, rel RelID, attachments ...Value) *Rest {
	return &Rest{dur: dur, rel: rel, attachments: clip(attachments)}
}

func (*Rest) Kind() Kind             { return KindRest }
func (r *Rest) Rel() RelID           { return r.rel }
func (r *Rest) Duration() Duration   { return r.dur }
func (r *Rest) Attachments() []Value { return clip(r.attachments) }
func (*Rest) sealed()                {}

// Note is a composite: a pitch, a duration and attachments.
type Note struct {
	pitch       *Pitch
	dur         Duration
	rel         RelID
	attachments []Value
}

// NewNote builds a fresh note. The attachment slice is copied.
func NewNote(pitch *Pitch, dur Duration, rel RelID, attachments ...Value) *Note {
	return &Note{pitch: pitch, dur: dur, rel: rel, attachments: clip(attachments)}
}

func (*Note) Kind() Kind             { return KindNote }
func (n *Note) Rel() RelID           { return n.rel }
func (n *Note) Pitch() *Pitch        { return n.pitch }
func (n *Note) Duration() Duration   { return n.dur }
func (n *Note) Attachments() []Value { return clip(n.attachments) }
func (*Note) sealed()                {}

// Chord is a composite: notes sounding together, plus attachments.
type Chord struct {
	notes       []*Note
	dur         Duration
	rel         RelID
	attachments []Value
}

// NewChord builds a fresh chord. Both slices are copied.
func NewChord(notes []*Note, dur Duration, rel RelID, attachments ...Value) *Chord {
	return &Chord{
		notes:       append([]*Note(nil), notes...),
		dur:         dur,
		rel:         rel,
		attachments: clip(attachments),
	}
}

func (*Chord) Kind() Kind             { return KindChord }
func (c *Chord) Rel() RelID           { return c.rel }
func (c *Chord) Notes() []*Note       { return append([]*Note(nil), c.notes...) }
func (c *Chord) Duration() Duration   { return c.dur }
func (c *Chord) Attachments() []Value { return clip(c.attachments) }
func (*Chord) sealed()                {}

func clip(vs []Value) []Value {
	if len(vs) == 0 {
		return nil
	}
	return append([]Value(nil), vs...)
}

// Children returns the values v composes, in encoding order: the pitch of a
// note, the notes of a chord, then attachments. Leaves have none.
func Children(v Value) []Value {
	switch v := v.(type) {
	case *Rest:
		return clip(v.attachments)
	case *Note:
		out := make([]Value, 0, 1+len(v.attachments))
		if v.pitch != nil {
			out = append(out, v.pitch)
		}
		return append(out, v.attachments...)
	case *Chord:
		out := make([]Value, 0, len(v.notes)+len(v.attachments))
		for _, n := range v.notes {
			out = append(out, n)
		}
		return append(out, v.attachments...)
	default:
		return nil
	}
}
