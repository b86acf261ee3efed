package singleflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoCoalesces(t *testing.T) {
	var g Group[string, int]
	var calls atomic.Int32
	release := make(chan struct{})

	const n = 8
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := g.Do(context.Background(), "k", func() (int, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
			results[i] = v
		}(i)
	}

	for !g.InFlight("k") {
		time.Sleep(time.Millisecond)
	}
	// Let the followers pile up behind the leader.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
	for i, v := range results {
		if v != 42 {
			t.Fatalf("caller %d got %d", i, v)
		}
	}
	if g.InFlight("k") {
		t.Fatal("key still in flight after completion")
	}
}

func TestDoFollowerCancel(t *testing.T) {
	var g Group[int, string]
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _, _ = g.Do(context.Background(), 1, func() (string, error) {
			close(started)
			<-release
			return "done", nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, shared, err := g.Do(ctx, 1, func() (string, error) { return "", nil })
	if !errors.Is(err, context.Canceled) || !shared {
		t.Fatalf("follower: shared=%v err=%v", shared, err)
	}
	close(release)
}

func TestDoPanic(t *testing.T) {
	var g Group[int, int]
	_, _, err := g.Do(context.Background(), 1, func() (int, error) { panic("boom") })
	var pe *PanicError
	if !errors.As(err, &pe) || pe.Value != "boom" {
		t.Fatalf("err = %v", err)
	}
	// The key is released after a panic.
	v, shared, err := g.Do(context.Background(), 1, func() (int, error) { return 7, nil })
	if err != nil || v != 7 || shared {
		t.Fatalf("after panic: v=%d shared=%v err=%v", v, shared, err)
	}
}
