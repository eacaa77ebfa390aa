// Package store persists exported controller weights so a run's best
// organisms can be inspected or reloaded later.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// Export reasons recorded with each genome.
const (
	ReasonOldest     = "oldest"
	ReasonInterval   = "interval"
	ReasonHallOfFame = "hall_of_fame"
)

// GenomeRecord is one exported controller.
type GenomeRecord struct {
	ID         string
	RunID      string
	AgentID    uint64
	Generation int
	TimeAlive  float64
	Reason     string
	Structure  []int
	Weights    string // Controller.Serialize output
	CreatedAt  time.Time
}

// Store defines persistence operations for exported genomes.
type Store interface {
	Init(ctx context.Context) error
	SaveGenome(ctx context.Context, rec GenomeRecord) error
	GetGenome(ctx context.Context, id string) (GenomeRecord, error)
	ListGenomes(ctx context.Context, runID string) ([]GenomeRecord, error)
	Close() error
}

// NewStore returns an uninitialized store for the given backend.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}
