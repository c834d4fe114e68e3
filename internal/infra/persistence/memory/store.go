// Package memory is an in-process run ledger for tests and one-shot runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cornucopia/pkg/domain"
)

// Store keeps records in insertion order.
type Store struct {
	mu      sync.RWMutex
	records []domain.RunRecord
	index   map[string]int
}

var _ domain.RunLedger = (*Store)(nil)

// NewStore returns an empty ledger.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Append records r; ids are unique.
func (s *Store) Append(_ context.Context, r domain.RunRecord) error {
	if r.ID == "" {
		return fmt.Errorf("append run: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[r.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRun, r.ID)
	}
	s.index[r.ID] = len(s.records)
	s.records = append(s.records, clone(r))
	return nil
}

// Get returns the record with id.
func (s *Store) Get(_ context.Context, id string) (domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	return clone(s.records[i]), nil
}

// List returns matching records ordered by creation time then id.
func (s *Store) List(_ context.Context, f domain.RunFilter) ([]domain.RunRecord, error) {
	s.mu.RLock()
	var out []domain.RunRecord
	for _, r := range s.records {
		if f.Match(r) {
			out = append(out, clone(r))
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func clone(r domain.RunRecord) domain.RunRecord {
	r.Findings = append([]domain.FindingKind(nil), r.Findings...)
	r.Categories = append([]domain.DiagnosticCategory(nil), r.Categories...)
	return r
}
