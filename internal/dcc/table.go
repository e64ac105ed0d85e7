package dcc

import "sync"

// Table is the process-wide registry of in-flight transfer pipes, keyed
// by token.
type Table struct {
	mu    sync.Mutex
	pipes map[Token]*Pipe
}

// NewTable builds an empty Table.
func NewTable() *Table {
	return &Table{pipes: map[Token]*Pipe{}}
}

// GetOrCreate returns the existing pipe for token, or creates one sized
// for size if none exists yet. The second return value is true if this
// call created the pipe.
func (t *Table) GetOrCreate(token Token, size uint64) (*Pipe, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.pipes[token]; ok {
		return p, false
	}
	p := NewPipe(token, size)
	t.pipes[token] = p
	return p, true
}

// Remove tears down and deletes a pipe, but only if the table still maps
// token to this exact pipe -- a compare-and-remove that keeps a stale
// teardown from one goroutine from deleting a fresh pipe a new attempt
// already created under the same (reused) token.
func (t *Table) Remove(token Token, p *Pipe) {
	t.mu.Lock()
	current, ok := t.pipes[token]
	if ok && current == p {
		delete(t.pipes, token)
	}
	t.mu.Unlock()
	p.Close()
}

// Len reports the number of live pipes, for diagnostics and tests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pipes)
}
