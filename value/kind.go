package value

import "fmt"

// Kind is the type tag of a cacheable value.
type Kind uint8

const (
	kindInvalid Kind = iota
	KindPitch
	KindArticulation
	KindDynamic
	KindMarker
	KindRest
	KindNote
	KindChord

	numKinds
)

// Kinds lists every valid kind in tag order.
var Kinds = []Kind{
	KindPitch,
	KindArticulation,
	KindDynamic,
	KindMarker,
	KindRest,
	KindNote,
	KindChord,
}

// NumKinds is one past the largest valid tag; use it to size per-kind arrays.
const NumKinds = int(numKinds)

var kindNames = [...]string{
	kindInvalid:      "invalid",
	KindPitch:        "pitch",
	KindArticulation: "articulation",
	KindDynamic:      "dynamic",
	KindMarker:       "marker",
	KindRest:         "rest",
	KindNote:         "note",
	KindChord:        "chord",
}

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k names one of the value variants.
func (k Kind) Valid() bool { return k > kindInvalid && k < numKinds }

// Composite reports whether values of kind k may have children.
func (k Kind) Composite() bool {
	return k == KindRest || k == KindNote || k == KindChord
}

// ParseKind maps a kind name (as printed by String) back to its tag.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return kindInvalid, fmt.Errorf("value: unknown kind %q", s)
}
