package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/forage/agent"
)

// Export saves an agent's controller weights under runID and returns the
// stored record.
func Export(ctx context.Context, s Store, runID string, a *agent.Agent, reason string) (GenomeRecord, error) {
	if a.Brain == nil {
		return GenomeRecord{}, fmt.Errorf("export agent %d: no controller", a.ID)
	}
	rec := GenomeRecord{
		ID:         uuid.NewString(),
		RunID:      runID,
		AgentID:    a.ID,
		Generation: a.Generation,
		TimeAlive:  a.TimeAlive,
		Reason:     reason,
		Structure:  a.Brain.Structure(),
		Weights:    a.Brain.Serialize(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.SaveGenome(ctx, rec); err != nil {
		return GenomeRecord{}, fmt.Errorf("export agent %d: %w", a.ID, err)
	}
	return rec, nil
}
