package progress

import "sync"

// MemoryStore keeps progress in a map for the lifetime of the process
type MemoryStore struct {
	mu     sync.RWMutex
	levels map[string]int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		levels: make(map[string]int),
	}
}

// GetLevel returns the stored level, or FirstLevel for unknown players
func (s *MemoryStore) GetLevel(playerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if level, ok := s.levels[playerID]; ok {
		return level, nil
	}
	return FirstLevel, nil
}

// SetLevel stores level for playerID
func (s *MemoryStore) SetLevel(playerID string, level int) error {
	if err := validate(playerID, level); err != nil {
		return err
	}

	s.mu.Lock()
	s.levels[playerID] = level
	s.mu.Unlock()
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of players with saved progress
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.levels)
}
