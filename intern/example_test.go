package intern_test

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/IvanBrykalov/hashcons/intern"
	"github.com/IvanBrykalov/hashcons/value"
)

func ExampleRegistry() {
	reg := intern.NewRegistry(intern.Options{DefaultCapacity: 5})
	q := value.Duration{Value: value.Quarter}

	a := reg.Note(reg.Pitch(value.StepC, 0, 4), q, value.NoRelation)
	b := reg.Note(reg.Pitch(value.StepC, 0, 4), q, value.NoRelation)
	fmt.Println("shared:", a == b)

	// A relationship identifier makes a value ineligible.
	t1 := reg.Note(reg.Pitch(value.StepC, 0, 4), q, 3, reg.Marker(value.TieStart, 3))
	t2 := reg.Note(reg.Pitch(value.StepC, 0, 4), q, 3, reg.Marker(value.TieStart, 3))
	fmt.Println("tied shared:", t1 == t2, "pitch shared:", t1.Pitch() == t2.Pitch())

	// Forcing an ineligible value is a caller bug.
	_, _, err := reg.Canonicalize(t1)
	fmt.Println(err)

	fmt.Println("notes resident:", reg.Table(value.KindNote).Len())
	// Output:
	// shared: true
	// tied shared: false pitch shared: true
	// intern: note carries relationship 3 and cannot be canonicalized
	// notes resident: 1
}

func ExampleNewTable() {
	const (
		capacity = 1024
		workers  = 8
		keys     = 4096
	)
	t := intern.NewTable(intern.TableOptions[string, *string]{
		Capacity: capacity,
		Shards:   16,
	})

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := id; i < keys; i += workers {
				k := "k:" + strconv.Itoa(i)
				v := k
				t.Canonicalize(k, &v)
			}
		}(w)
	}
	wg.Wait()

	fmt.Println(t.Len() <= capacity)
	// Output: true
}
