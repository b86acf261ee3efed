package intern

import (
	"testing"

	"github.com/IvanBrykalov/hashcons/value"
)

// benchmarkNotes builds notes from a small alphabet of pitches so most calls
// hit; distinct controls the working set relative to capacity.
func benchmarkNotes(b *testing.B, capacity, distinct int) {
	reg := NewRegistry(Options{DefaultCapacity: capacity})
	b.Cleanup(func() { _ = reg.Close() })

	dur := value.Duration{Value: value.Eighth}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			n := i % distinct
			p := reg.Pitch(value.Step(n%7), 0, int8(n/7))
			reg.Note(p, dur, value.NoRelation)
			i++
		}
	})
}

func BenchmarkRegistry_Note_Hot(b *testing.B)       { benchmarkNotes(b, 4096, 64) }
func BenchmarkRegistry_Note_Thrashing(b *testing.B) { benchmarkNotes(b, 64, 4096) }
func BenchmarkRegistry_Note_Disabled(b *testing.B)  { benchmarkNotes(b, -1, 64) }
