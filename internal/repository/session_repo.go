// Package repository persists notification session history.
package repository

import (
	"context"
	"time"

	"github.com/homecast/cast-notifier/internal/domain"
)

// SessionRepository defines all persistence operations for notification
// sessions. The pgx implementation is in pg_session_repo.go; the in-memory
// one (memory_session_repo.go) is the default when no database is
// configured, and doubles as the test fake.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Session, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.SessionStatus) error
	MarkFinished(ctx context.Context, id string, status domain.SessionStatus, errMsg string, finishedAt time.Time) error
}
