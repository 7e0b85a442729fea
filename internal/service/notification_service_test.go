package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/homecast/cast-notifier/internal/domain"
	"github.com/homecast/cast-notifier/internal/queue"
	"github.com/homecast/cast-notifier/internal/ratelimiter"
	"github.com/homecast/cast-notifier/internal/repository"
	"github.com/homecast/cast-notifier/internal/service"
)

func newService(repo repository.SessionRepository, perMinute int) (*service.NotificationService, *queue.Queue) {
	q := queue.New()
	return service.NewNotificationService(repo, q, ratelimiter.New(perMinute), zap.NewNop()), q
}

func TestSubmit_QueuesAndRecordsSession(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	svc, q := newService(repo, 10)

	session, err := svc.Submit(context.Background(), domain.NotificationRequest{
		Target: "kitchen",
		Text:   "dinner is ready",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if session.Status != domain.SessionQueued {
		t.Fatalf("Status = %s, want queued", session.Status)
	}

	req, ok := q.Dequeue(100 * time.Millisecond)
	if !ok {
		t.Fatal("nothing was enqueued")
	}
	if req.SessionID != session.ID {
		t.Fatalf("SessionID = %q, want %q", req.SessionID, session.ID)
	}
	if req.Target != "kitchen" || req.Text != "dinner is ready" {
		t.Fatalf("request = %+v", req)
	}

	stored, err := repo.GetByID(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.SessionQueued {
		t.Fatalf("stored Status = %s", stored.Status)
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, q := newService(repository.NewMemorySessionRepository(), 10)

	tests := []struct {
		name string
		req  domain.NotificationRequest
		want error
	}{
		{"missing target", domain.NotificationRequest{Text: "hello"}, domain.ErrInvalidTarget},
		{"missing text", domain.NotificationRequest{Target: "kitchen"}, domain.ErrInvalidText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Submit(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if q.Len() != 0 {
		t.Fatal("invalid requests must not be enqueued")
	}
}

func TestSubmit_RateLimited(t *testing.T) {
	svc, q := newService(repository.NewMemorySessionRepository(), 1)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, domain.NotificationRequest{Target: "kitchen", Text: "one"}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	_, err := svc.Submit(ctx, domain.NotificationRequest{Target: "kitchen", Text: "two"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if q.Len() != 1 {
		t.Fatalf("queue depth = %d, want 1", q.Len())
	}

	// Another target has its own bucket.
	if _, err := svc.Submit(ctx, domain.NotificationRequest{Target: "bedroom", Text: "three"}); err != nil {
		t.Fatalf("bedroom Submit: %v", err)
	}
}

func TestSubmit_RepoFailure(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	repo.CreateErr = errors.New("db down")
	svc, q := newService(repo, 10)

	if _, err := svc.Submit(context.Background(), domain.NotificationRequest{Target: "kitchen", Text: "x"}); err == nil {
		t.Fatal("expected error when session persist fails")
	}
	if q.Len() != 0 {
		t.Fatal("failed submissions must not be enqueued")
	}
}

func TestListSessions_ClampsPagination(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	svc, _ := newService(repo, 10)

	_ = repo.Create(context.Background(), &domain.Session{
		ID: "s1", Target: "kitchen", Status: domain.SessionQueued, CreatedAt: time.Now(),
	})

	sessions, total, err := svc.ListSessions(context.Background(), domain.ListFilter{Page: 0, Limit: -5})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if total != 1 || len(sessions) != 1 {
		t.Fatalf("total = %d, len = %d", total, len(sessions))
	}
}
