// # internal/engine/parser/pool_test.go
package parser

import (
	"runtime"
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

func pythonPool() *Pool {
	return NewPool("python", sitter.NewLanguage(tree_sitter_python.Language()), 0)
}

func TestPool_GetPut(t *testing.T) {
	pool := pythonPool()

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if got := pool.Stats().Active; got != 1 {
		t.Fatalf("expected 1 active lease, got %d", got)
	}

	pool.Put(sp)
	if got := pool.Stats().Active; got != 0 {
		t.Fatalf("expected 0 active leases after Put, got %d", got)
	}
}

func TestPool_PutNil(t *testing.T) {
	pythonPool().Put(nil)
}

func TestPool_ParsesSource(t *testing.T) {
	pool := pythonPool()

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse([]byte("def main():\n    return 1\n"), nil)
	if tree == nil {
		t.Fatal("expected non-nil parse tree")
	}
	defer tree.Close()

	if root := tree.RootNode(); root.HasError() {
		t.Fatalf("expected error-free tree, got %s", root.ToSexp())
	}
}

func TestPool_ConcurrentLeasesAreExclusive(t *testing.T) {
	pool := pythonPool()

	const goroutines = 16
	const iters = 40
	src := []byte("x = [1, 2, 3]\n")

	var (
		mu     sync.Mutex
		inUse  = make(map[*sitter.Parser]bool)
		shared bool
		wg     sync.WaitGroup
	)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				sp := pool.Get()
				mu.Lock()
				if inUse[sp] {
					shared = true
				}
				inUse[sp] = true
				mu.Unlock()

				if tree := sp.Parse(src, nil); tree == nil {
					t.Errorf("expected non-nil parse tree")
				} else {
					tree.Close()
				}

				mu.Lock()
				delete(inUse, sp)
				mu.Unlock()
				pool.Put(sp)
			}
		}()
	}
	wg.Wait()

	if shared {
		t.Fatal("a parser was leased to two goroutines at once")
	}
	stats := pool.Stats()
	if stats.Active != 0 {
		t.Fatalf("expected all leases returned, got %d active", stats.Active)
	}
	if stats.Created < 1 || stats.Created > goroutines*iters {
		t.Fatalf("unexpected created count %d", stats.Created)
	}
}

func TestPool_UsableAfterExternalReset(t *testing.T) {
	pool := pythonPool()

	sp := pool.Get()
	sp.Reset()
	pool.Put(sp)

	sp2 := pool.Get()
	defer pool.Put(sp2)
	tree := sp2.Parse([]byte("pass\n"), nil)
	if tree == nil {
		t.Fatal("expected parse to succeed after reset")
	}
	tree.Close()
}

func TestPool_ReusesParsersAcrossGC(t *testing.T) {
	pool := pythonPool()
	for i := 0; i < 5; i++ {
		sp := pool.Get()
		pool.Put(sp)
		runtime.GC()
	}
	if stats := pool.Stats(); stats.Created != 1 || stats.Idle != 1 {
		t.Fatalf("expected one parser created and kept idle, got %+v", stats)
	}
}

func TestPool_IdleIsBounded(t *testing.T) {
	pool := NewPool("python", sitter.NewLanguage(tree_sitter_python.Language()), 2)

	leased := []*sitter.Parser{pool.Get(), pool.Get(), pool.Get(), pool.Get()}
	for _, sp := range leased {
		pool.Put(sp)
	}
	if stats := pool.Stats(); stats.Created != 4 || stats.Idle != 2 || stats.Active != 0 {
		t.Fatalf("expected two idle parsers out of four, got %+v", stats)
	}
}

func TestPool_Close(t *testing.T) {
	pool := pythonPool()

	held := pool.Get()
	pool.Put(pool.Get())
	pool.Close()
	if got := pool.Stats().Idle; got != 0 {
		t.Fatalf("expected no idle parsers after Close, got %d", got)
	}

	pool.Put(held)
	if stats := pool.Stats(); stats.Idle != 0 || stats.Active != 0 {
		t.Fatalf("parsers returned after Close must not be kept, got %+v", stats)
	}
}
