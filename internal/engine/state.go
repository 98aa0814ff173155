// Package engine holds the process-wide state that every request against
// the current database must coordinate through: the open store handle, a
// generation counter that invalidates stale references across a database
// swap, and an in-flight operation guard that blocks swaps and clears while
// work is outstanding.
package engine

import (
	"fmt"
	"sync"

	"github.com/ocrprov/engine/internal/errtax"
	"github.com/ocrprov/engine/internal/store"
)

// State is the process-wide "current database" handle. There is one State
// per running process; callers obtain operation tokens from it before
// touching the store, and release them when done.
type State struct {
	mu         sync.Mutex
	current    *store.Store
	name       string
	generation uint64
	inFlight   int
}

// New returns an empty State with no database selected.
func New() *State {
	return &State{}
}

// Token is the capability returned by BeginOperation: it pins the
// generation the operation observed and must be re-validated at each
// resumption point of a long-running operation.
type Token struct {
	generation uint64
}

// BeginOperation atomically increments the in-flight counter and captures
// the current generation. Every operation that touches the current
// database must begin and later End exactly once.
func (s *State) BeginOperation() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	return Token{generation: s.generation}
}

// EndOperation decrements the in-flight counter. The counter never goes
// below zero, so an unmatched End is a no-op rather than a corruption.
func (s *State) EndOperation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight > 0 {
		s.inFlight--
	}
}

// InFlight returns the current in-flight operation count.
func (s *State) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Validate re-checks tok's captured generation against the current one.
// Long-running operations must call this at each resumption point; a
// mismatch means the database was swapped underneath them.
func (s *State) Validate(tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.generation != s.generation {
		return errtax.New(errtax.CategoryDatabaseNotSelected,
			"current database changed since this operation began", nil)
	}
	return nil
}

// Current returns the currently selected store, or a DATABASE_NOT_SELECTED
// error if none is selected.
func (s *State) Current() (*store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, errtax.New(errtax.CategoryDatabaseNotSelected, "no database is currently selected", nil)
	}
	return s.current, nil
}

// Name returns the name of the currently selected database, or "" if none.
func (s *State) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Select opens the store at path under name and atomically swaps it in as
// the current database, incrementing the generation. Refuses while any
// operation is in flight. The new handle is opened before the old one is
// closed, so there is no window where Current returns nil between a
// non-empty state and the swap.
func (s *State) Select(name, path string) error {
	s.mu.Lock()
	inFlight := s.inFlight
	s.mu.Unlock()
	if inFlight > 0 {
		return errtax.New(errtax.CategoryValidation,
			fmt.Sprintf("cannot select database: %d operation(s) are in-flight", inFlight), nil)
	}

	opened, err := store.Open(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the lock: an operation may have started between the
	// unlocked check above and acquiring the store handle.
	if s.inFlight > 0 {
		_ = opened.Close()
		return errtax.New(errtax.CategoryValidation,
			fmt.Sprintf("cannot select database: %d operation(s) are in-flight", s.inFlight), nil)
	}

	old := s.current
	s.current = opened
	s.name = name
	s.generation++
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Clear closes the current database and unsets it. Refuses while any
// operation is in flight, for the same reason Select does.
func (s *State) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight > 0 {
		return errtax.New(errtax.CategoryValidation,
			fmt.Sprintf("cannot clear database: %d operation(s) are in-flight", s.inFlight), nil)
	}
	if s.current != nil {
		_ = s.current.Close()
	}
	s.current = nil
	s.name = ""
	s.generation++
	return nil
}
