package domain

import "time"

// NotificationRequest is the unit of work placed on the queue:
// speak Text on the endpoint named Target. SessionID links the request to
// its history record. Immutable once enqueued.
type NotificationRequest struct {
	SessionID string `json:"session_id"`
	Target    string `json:"target"`
	Text      string `json:"text"`
}

// Sentinel is the reserved request value pushed at shutdown to wake a
// consumer blocked on an empty queue. It is never processed as real work.
var Sentinel = NotificationRequest{}

// IsSentinel reports whether the request is the shutdown sentinel.
func (r NotificationRequest) IsSentinel() bool {
	return r.Target == "" && r.Text == ""
}

func (r NotificationRequest) Validate() error {
	if r.Target == "" {
		return ErrInvalidTarget
	}
	if r.Text == "" || len(r.Text) > 4096 {
		return ErrInvalidText
	}
	return nil
}

// SessionStatus tracks the lifecycle of one notification session.
type SessionStatus string

const (
	SessionQueued    SessionStatus = "queued"
	SessionPlaying   SessionStatus = "playing"
	SessionCompleted SessionStatus = "completed"
	SessionSkipped   SessionStatus = "skipped"
	SessionFailed    SessionStatus = "failed"
)

// Session is the recorded history of one notification request, from
// enqueue through completion or failure. Delivery is at-most-once; a
// failed session is never retried.
type Session struct {
	ID           string        `json:"id"`
	Target       string        `json:"target"`
	Text         string        `json:"text"`
	Status       SessionStatus `json:"status"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// ListFilter holds query parameters for paginated session listing.
type ListFilter struct {
	Status *SessionStatus
	Target *string
	Page   int
	Limit  int
}
