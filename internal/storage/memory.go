package storage

import (
	"context"
	"sync"

	"spikesim/internal/model"
)

type MemoryStore struct {
	mu        sync.RWMutex
	summaries map[string]model.RunSummary
	records   map[string]map[string]model.Record
	order     []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries = make(map[string]model.RunSummary)
	s.records = make(map[string]map[string]model.Record)
	s.order = nil
	return nil
}

func (s *MemoryStore) SaveRunSummary(_ context.Context, summary model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.summaries[summary.RunID]; !ok {
		s.order = append(s.order, summary.RunID)
	}
	s.summaries[summary.RunID] = summary
	return nil
}

func (s *MemoryStore) GetRunSummary(_ context.Context, runID string) (model.RunSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.summaries[runID]
	return summary, ok, nil
}

func (s *MemoryStore) ListRunSummaries(_ context.Context) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.RunSummary, 0, len(s.order))
	for _, runID := range s.order {
		summaries = append(summaries, s.summaries[runID])
	}
	return summaries, nil
}

func (s *MemoryStore) SaveRecords(_ context.Context, runID string, records map[string]model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]model.Record, len(records))
	for key, record := range records {
		copied[key] = record
	}
	s.records[runID] = copied
	return nil
}

func (s *MemoryStore) GetRecords(_ context.Context, runID string) (map[string]model.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.records[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make(map[string]model.Record, len(records))
	for key, record := range records {
		copied[key] = record
	}
	return copied, true, nil
}
