// Package middleware holds the HTTP middleware shared by the control-plane
// router: correlation IDs and structured request logging.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const correlationHeader = "X-Correlation-ID"

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// CorrelationID tags every request with an identifier that follows the
// notification from submission through the worker's playback logs. A
// caller-supplied header wins so upstream systems can stitch in their own
// traces; otherwise a fresh UUID is minted. The id is echoed back on the
// response either way.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(correlationHeader, id)
		ctx := context.WithValue(r.Context(), correlationIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID returns the id stored by CorrelationID, or "" when the
// middleware did not run.
func GetCorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}
