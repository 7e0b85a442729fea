package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/homecast/cast-notifier/internal/api/middleware"
	"github.com/homecast/cast-notifier/internal/domain"
	"github.com/homecast/cast-notifier/internal/service"
)

// NotificationHandler handles notification submission and session lookup.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/notifications
//
// Returns 202: accepted means queued, not played. Poll the session for the
// playback outcome.
//
// @Summary     Queue a spoken notification
// @Tags        notifications
// @Accept      json
// @Produce     json
// @Param       body  body      domain.NotificationRequest  true  "Target device and text"
// @Success     202   {object}  domain.Session
// @Failure     422   {object}  map[string]string
// @Failure     429   {object}  map[string]string
// @Router      /api/v1/notifications [post]
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		h.logger.Warn("notification submit failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, session)
}

// GetByID handles GET /api/v1/notifications/{id}
//
// @Summary  Get a notification session by ID
// @Tags     notifications
// @Produce  json
// @Param    id   path      string  true  "Session UUID"
// @Success  200  {object}  domain.Session
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/notifications/{id} [get]
func (h *NotificationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// List handles GET /api/v1/notifications
//
// @Summary  List notification sessions with filtering and pagination
// @Tags     notifications
// @Produce  json
// @Param    status  query     string  false  "Filter by status"
// @Param    target  query     string  false  "Filter by target device"
// @Param    page    query     int     false  "Page number (default 1)"
// @Param    limit   query     int     false  "Items per page (default 20, max 100)"
// @Success  200     {object}  map[string]any
// @Router   /api/v1/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	sessions, total, err := h.svc.ListSessions(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  sessions,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func parseListFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()
	filter := domain.ListFilter{Page: 1, Limit: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if s := q.Get("status"); s != "" {
		st := domain.SessionStatus(s)
		filter.Status = &st
	}
	if tgt := q.Get("target"); tgt != "" {
		filter.Target = &tgt
	}
	return filter
}
