package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryStore keeps genomes in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	genomes     map[string]GenomeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.genomes = make(map[string]GenomeRecord)
	return nil
}

func (s *MemoryStore) SaveGenome(_ context.Context, rec GenomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("memory store is not initialized")
	}
	rec.Structure = append([]int(nil), rec.Structure...)
	s.genomes[rec.ID] = rec
	return nil
}

func (s *MemoryStore) GetGenome(_ context.Context, id string) (GenomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.genomes[id]
	if !ok {
		return GenomeRecord{}, ErrNotFound
	}
	return rec, nil
}

// ListGenomes returns a run's genomes oldest first.
func (s *MemoryStore) ListGenomes(_ context.Context, runID string) ([]GenomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []GenomeRecord
	for _, rec := range s.genomes {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
