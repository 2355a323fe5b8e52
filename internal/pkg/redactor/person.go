package redactor

import "sync"

// PersonIndex numbers person names so the same person always gets the
// same replacement within one job
type PersonIndex struct {
	m       sync.Mutex
	persons map[string]int
}

// NewPersonIndex creates PersonIndex instance
func NewPersonIndex() *PersonIndex {
	return &PersonIndex{persons: make(map[string]int)}
}

// Ordinal returns the number assigned to the name, assigning the next
// free one on first use
func (p *PersonIndex) Ordinal(name string) int {
	p.m.Lock()
	defer p.m.Unlock()
	if n, ok := p.persons[name]; ok {
		return n
	}
	n := len(p.persons) + 1
	p.persons[name] = n
	return n
}

// Count returns how many unique persons were seen
func (p *PersonIndex) Count() int {
	p.m.Lock()
	defer p.m.Unlock()
	return len(p.persons)
}
