package heat

import (
	"context"
	"sync"

	"github.com/udisondev/hotzone/internal/model"
)

// MemoryStore is a process-local Store for tests and dry runs.
type MemoryStore struct {
	mu    sync.Mutex
	reps  map[repKey]ReputationRow
	zones map[string]ZoneHeatRow
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reps:  make(map[repKey]ReputationRow),
		zones: make(map[string]ZoneHeatRow),
	}
}

func (s *MemoryStore) LoadReputation(_ context.Context, citizen model.CitizenID) ([]ReputationRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ReputationRow
	for k, r := range s.reps {
		if k.citizen == citizen {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertReputation(_ context.Context, rows []ReputationRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.reps[repKey{r.CitizenID, r.ZoneID}] = r
	}
	return nil
}

func (s *MemoryStore) LoadZoneHeat(context.Context) ([]ZoneHeatRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ZoneHeatRow, 0, len(s.zones))
	for _, r := range s.zones {
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryStore) UpsertZoneHeat(_ context.Context, rows []ZoneHeatRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.zones[r.ZoneID] = r
	}
	return nil
}
