package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/homecast/cast-notifier/internal/domain"
)

// MemorySessionRepository is a map-backed SessionRepository. It is the
// default store when no database is configured and the fake used in unit
// tests. No mock-generation library needed.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session

	// Optional error overrides for tests.
	CreateErr  error
	GetByIDErr error
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*domain.Session),
	}
}

func (m *MemorySessionRepository) Create(_ context.Context, s *domain.Session) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.sessions[s.ID] = &clone
	return nil
}

func (m *MemorySessionRepository) GetByID(_ context.Context, id string) (*domain.Session, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MemorySessionRepository) List(_ context.Context, f domain.ListFilter) ([]*domain.Session, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.Session
	for _, s := range m.sessions {
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		if f.Target != nil && s.Target != *f.Target {
			continue
		}
		clone := *s
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (f.Page - 1) * f.Limit
	if start >= total {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MemorySessionRepository) UpdateStatus(_ context.Context, id string, status domain.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Status = status
	}
	return nil
}

func (m *MemorySessionRepository) MarkFinished(_ context.Context, id string, status domain.SessionStatus, errMsg string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Status = status
		s.FinishedAt = &finishedAt
		if errMsg != "" {
			s.ErrorMessage = &errMsg
		}
	}
	return nil
}

var _ SessionRepository = (*MemorySessionRepository)(nil)
