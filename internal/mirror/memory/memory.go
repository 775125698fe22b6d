// Package memory is an in-memory mirror used by tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"kas/internal/core"
	"kas/internal/mirror"
)

type Store struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var (
	_ mirror.Appender = (*Store)(nil)
	_ mirror.Remover  = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, t)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Remove drops the first stored row matching the request.
func (s *Store) Remove(_ context.Context, req mirror.RemoveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.rows {
		if t.Date.String() != req.Date {
			continue
		}
		if !strings.EqualFold(string(t.Type), req.Type) {
			continue
		}
		if t.Description != req.Description || t.Amount.Cents != req.AmountCents {
			continue
		}
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
		return nil
	}
	return mirror.ErrRowNotFound
}

// Rows returns a copy of the mirrored transactions.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.rows))
	copy(out, s.rows)
	return out
}
