// Package httphandler serves the local REST API and the review event stream.
package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ericfisherdev/gitnotify/internal/application"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// PollController is the subset of the poll service the API drives.
type PollController interface {
	Status() application.Status
	Refresh(ctx context.Context) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	poller  PollController
	notices driven.NoticeStore
	reviews driven.ReviewEventStore
	events  *EventHub
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	poller PollController,
	notices driven.NoticeStore,
	reviews driven.ReviewEventStore,
	events *EventHub,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		poller:  poller,
		notices: notices,
		reviews: reviews,
		events:  events,
		logger:  logger,
	}
}

// NewRouter creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/v1/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/status", h.Status).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/refresh", h.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/notices", h.ListNotices).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/notices/{id}/dismiss", h.DismissNotice).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/reviews", h.ListReviews).Methods(http.MethodGet)
	r.Handle("/api/v1/events", h.events).Methods(http.MethodGet)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, r)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Status returns the poll loop snapshot.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toStatusResponse(h.poller.Status()))
}

// Refresh runs a poll cycle immediately and returns the resulting status.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	err := h.poller.Refresh(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, application.ErrNotRunning):
		writeError(w, http.StatusConflict, "poll loop is not running")
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "refresh did not complete")
		return
	default:
		h.logger.Error("refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(h.poller.Status()))
}

// ListNotices returns recent notices, newest first. Dismissed notices are
// included only when all=true.
func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	all := false
	if raw := r.URL.Query().Get("all"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "all must be a boolean")
			return
		}
		all = v
	}

	notices, err := h.notices.ListRecent(r.Context(), limit, all)
	if err != nil {
		h.logger.Error("failed to list notices", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]NoticeResponse, 0, len(notices))
	for _, n := range notices {
		resp = append(resp, toNoticeResponse(n))
	}

	writeJSON(w, http.StatusOK, resp)
}

// DismissNotice marks a notice as dismissed.
func (h *Handler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.notices.Dismiss(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrNoticeNotFound) {
			writeError(w, http.StatusNotFound, "notice not found")
			return
		}
		h.logger.Error("failed to dismiss notice", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListReviews returns recent review requests, newest first.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	events, err := h.reviews.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list review events", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ReviewEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, toReviewEventResponse(e))
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseLimit reads the limit query parameter, writing a 400 on failure.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}

	return min(limit, maxListLimit), true
}
