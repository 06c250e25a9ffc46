package sources

import (
	"context"
	"sync"
)

// ConnectionFlagStore persists whether a wallet was connected so a later
// session can restore it without prompting.
type ConnectionFlagStore interface {
	Connected(ctx context.Context) (bool, error)
	SetConnected(ctx context.Context, connected bool) error
}

type MemoryConnectionFlagStore struct {
	mu        sync.Mutex
	connected bool
}

func NewMemoryConnectionFlagStore() *MemoryConnectionFlagStore {
	return &MemoryConnectionFlagStore{}
}

func (s *MemoryConnectionFlagStore) Connected(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected, nil
}

func (s *MemoryConnectionFlagStore) SetConnected(_ context.Context, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
	return nil
}

var _ ConnectionFlagStore = (*MemoryConnectionFlagStore)(nil)
