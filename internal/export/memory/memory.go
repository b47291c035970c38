package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/on3oleg/utihome/internal/core"
)

// Store is an in-memory bill writer for tests and local development.
type Store struct {
	mu    sync.Mutex
	items []Entry

	// FailWith, when set, makes every AppendBill return this error.
	FailWith error
}

type Entry struct {
	Property string
	Bill     core.BillRecord
}

func New() *Store {
	return &Store{}
}

// AppendBill stores the bill and returns a synthetic row reference.
func (s *Store) AppendBill(_ context.Context, propertyName string, b core.BillRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return "", s.FailWith
	}
	if err := b.Validate(); err != nil {
		return "", err
	}
	s.items = append(s.items, Entry{Property: propertyName, Bill: b})
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.items...)
}
