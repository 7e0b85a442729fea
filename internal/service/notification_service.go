// Package service holds the submission-side business rules: validation,
// per-target throttling, session bookkeeping, and enqueueing.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homecast/cast-notifier/internal/domain"
	"github.com/homecast/cast-notifier/internal/queue"
	"github.com/homecast/cast-notifier/internal/ratelimiter"
	"github.com/homecast/cast-notifier/internal/repository"
)

// NotificationService coordinates the repository, limiter, and queue.
// HTTP handlers and the worker depend on this service, not on each other.
type NotificationService struct {
	repo    repository.SessionRepository
	q       *queue.Queue
	limiter *ratelimiter.TargetLimiter
	logger  *zap.Logger
}

func NewNotificationService(
	repo repository.SessionRepository,
	q *queue.Queue,
	limiter *ratelimiter.TargetLimiter,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{repo: repo, q: q, limiter: limiter, logger: logger}
}

// Submit validates and enqueues a notification request, recording a queued
// session for it. Acceptance means queued, not played: playback happens
// later on the single worker, and its outcome lands on the session record.
func (s *NotificationService) Submit(ctx context.Context, req domain.NotificationRequest) (*domain.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.limiter.Allow(req.Target) {
		return nil, fmt.Errorf("%w: target %s", domain.ErrRateLimited, req.Target)
	}

	session := &domain.Session{
		ID:        uuid.New().String(),
		Target:    req.Target,
		Text:      req.Text,
		Status:    domain.SessionQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	req.SessionID = session.ID
	s.q.Enqueue(req)
	s.logger.Info("notification queued",
		zap.String("session_id", session.ID),
		zap.String("target", req.Target),
		zap.Int("queue_depth", s.q.Len()))

	return session, nil
}

// GetSession returns one session by ID.
func (s *NotificationService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return s.repo.GetByID(ctx, id)
}

// ListSessions returns a page of session history plus the total match count.
func (s *NotificationService) ListSessions(ctx context.Context, f domain.ListFilter) ([]*domain.Session, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	return s.repo.List(ctx, f)
}
