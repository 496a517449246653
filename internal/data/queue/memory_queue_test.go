package queue

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue[string]()
	t.Cleanup(func() { _ = q.Close() })

	for _, item := range []string{"a.go", "b.go", "c.go"} {
		if !q.Enqueue(item) {
			t.Fatalf("expected enqueue of %s to be accepted", item)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 queued items, got %d", q.Len())
	}

	for _, want := range []string{"a.go", "b.go", "c.go"} {
		got, err := q.Dequeue(context.Background())
		if err != nil {
			t.Fatalf("dequeue failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestMemoryQueue_NeverDropsWhenLarge(t *testing.T) {
	q := NewMemoryQueue[int]()
	const n = 10000
	for i := 0; i < n; i++ {
		if !q.Enqueue(i) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	if q.Len() != n {
		t.Fatalf("expected %d items, got %d", n, q.Len())
	}
}

func TestMemoryQueue_CloseReturnsEOFWhenDrained(t *testing.T) {
	q := NewMemoryQueue[string]()
	q.Enqueue("a.go")
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if q.Enqueue("b.go") {
		t.Fatal("expected enqueue after close to be rejected")
	}

	got, err := q.Dequeue(context.Background())
	if err != nil || got != "a.go" {
		t.Fatalf("expected queued item after close, got %q err=%v", got, err)
	}
	if _, err := q.Dequeue(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestMemoryQueue_DequeueHonorsContext(t *testing.T) {
	q := NewMemoryQueue[int]()
	t.Cleanup(func() { _ = q.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Dequeue(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMemoryQueue_ConcurrentProducersConsumers(t *testing.T) {
	q := NewMemoryQueue[int]()
	const producers, perProducer = 4, 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(base*perProducer + i)
			}
		}(p)
	}

	var (
		mu  sync.Mutex
		got []int
	)
	var consumers sync.WaitGroup
	for c := 0; c < 3; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				v, err := q.Dequeue(context.Background())
				if err != nil {
					return
				}
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	_ = q.Close()
	consumers.Wait()

	if len(got) != producers*perProducer {
		t.Fatalf("expected %d items, got %d", producers*perProducer, len(got))
	}
	sort.Ints(got)
	for i, v := range got {
		if v != i {
			t.Fatalf("item %d missing or duplicated (got %d)", i, v)
		}
	}
}
