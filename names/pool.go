// Package names provides collision-free name generation for synthesised
// functions and temporaries.
package names

import (
	"fmt"
	"sync"
)

// Generator produces names that are unique within a compilation unit.
type Generator interface {
	Generate(prefix string) string
}

// NameClashError is the error returned if a reserved name was already
// reserved or generated.
type NameClashError struct {
	Name string
}

func (e NameClashError) Error() string {
	return fmt.Sprintf("name already in use (name: %s)", e.Name)
}

// Pool is a Generator keeping one counter per prefix.
//
// Generated names have the form prefix_N with N counting from 0 for each
// prefix. Names already present in the program should be registered with
// Reserve so a generated name never shadows them.
type Pool struct {
	count map[string]int
	used  map[string]bool

	mu sync.Mutex
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{
		count: make(map[string]int),
		used:  make(map[string]bool),
	}
}

// Generate returns the next unused name for prefix.
func (p *Pool) Generate(prefix string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		name := fmt.Sprintf("%s_%d", prefix, p.count[prefix])
		p.count[prefix]++
		if !p.used[name] {
			p.used[name] = true
			return name
		}
	}
}

// Reserve marks name as taken.
func (p *Pool) Reserve(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.used[name] {
		return NameClashError{Name: name}
	}
	p.used[name] = true
	return nil
}

// Used returns true if name was reserved or generated.
func (p *Pool) Used(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used[name]
}
