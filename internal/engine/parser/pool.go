// # internal/engine/parser/pool.go
package parser

import (
	"runtime"
	"sync"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Pool recycles tree-sitter parsers for one grammar. A leased parser is used
// by exactly one goroutine until it is returned with Put. At most maxIdle
// parsers are kept between leases; the rest are closed on return.
//
//	sp := pool.Get()
//	defer pool.Put(sp)
//	tree := sp.Parse(source, nil)
//
// Safe for use by multiple goroutines simultaneously.
type Pool struct {
	language string
	lang     *sitter.Language
	maxIdle  int

	mu      sync.Mutex
	idle    []*sitter.Parser
	leases  map[*sitter.Parser]time.Time
	created int64
	closed  bool
}

// Stats is a point-in-time view of a pool.
type Stats struct {
	Language string
	Active   int
	Idle     int
	Created  int64
	Oldest   time.Duration
}

// NewPool creates a pool for the named grammar. lang must stay valid for the
// lifetime of the pool. maxIdle <= 0 keeps up to GOMAXPROCS idle parsers.
func NewPool(language string, lang *sitter.Language, maxIdle int) *Pool {
	if maxIdle <= 0 {
		maxIdle = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		language: language,
		lang:     lang,
		maxIdle:  maxIdle,
		leases:   make(map[*sitter.Parser]time.Time),
	}
}

func (p *Pool) Language() string {
	return p.language
}

// Get leases a parser configured for the pool's grammar, reusing an idle one
// when available.
func (p *Pool) Get() *sitter.Parser {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sp *sitter.Parser
	if n := len(p.idle); n > 0 {
		sp = p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
	} else {
		sp = sitter.NewParser()
		p.created++
	}
	// Reset drops the language on some bindings; set it again on every lease.
	_ = sp.SetLanguage(p.lang)
	p.leases[sp] = time.Now()
	return sp
}

// Put returns sp to the pool. The caller must not use sp afterwards. sp is
// closed when the idle list is full or the pool has been closed.
func (p *Pool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.leases, sp)
	if p.closed || len(p.idle) >= p.maxIdle {
		sp.Close()
		return
	}
	sp.Reset()
	p.idle = append(p.idle, sp)
}

// Close closes every idle parser. Parsers still leased are closed when they
// are returned.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sp := range p.idle {
		sp.Close()
	}
	p.idle = nil
	p.closed = true
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{Language: p.language, Active: len(p.leases), Idle: len(p.idle), Created: p.created}
	now := time.Now()
	for _, leased := range p.leases {
		if age := now.Sub(leased); age > stats.Oldest {
			stats.Oldest = age
		}
	}
	return stats
}
