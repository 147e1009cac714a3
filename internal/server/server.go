package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/listing-alerts/pkg/alerting"
	"github.com/ogulcanaydogan/listing-alerts/pkg/dispatch"
	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
)

// OwnerHeader carries the authenticated owner id set by the upstream gateway.
const OwnerHeader = "X-Owner-ID"

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20
)

// ListingDispatcher notifies the alerts matching a listing.
type ListingDispatcher interface {
	Dispatch(ctx context.Context, listing model.Listing) (*dispatch.Response, error)
}

// Server provides the alert management and dispatch API.
type Server struct {
	alerts     *alerting.Service
	dispatcher ListingDispatcher
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates an API server.
func NewServer(alerts *alerting.Service, dispatcher ListingDispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		alerts:     alerts,
		dispatcher: dispatcher,
		mux:        http.NewServeMux(),
		logger:     logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/dispatch", s.handleDispatch)
	s.mux.HandleFunc("POST /api/v1/alerts", s.handleCreateAlert)
	s.mux.HandleFunc("GET /api/v1/alerts", s.handleListAlerts)
	s.mux.HandleFunc("GET /api/v1/alerts/{id}", s.handleGetAlert)
	s.mux.HandleFunc("PATCH /api/v1/alerts/{id}", s.handleUpdateAlert)
	s.mux.HandleFunc("DELETE /api/v1/alerts/{id}", s.handleDeleteAlert)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var listing model.Listing
	if !s.decode(w, r, &listing) {
		return
	}

	resp, err := s.dispatcher.Dispatch(r.Context(), listing)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	alert, err := s.alerts.Create(ctx, req.createInput(r.Header.Get(OwnerHeader)))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"alert": alert})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	alerts, err := s.alerts.List(ctx, r.Header.Get(OwnerHeader))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	alert, err := s.alerts.Get(ctx, r.PathValue("id"), owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alert": alert})
}

func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	var req alertRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	alert, err := s.alerts.Update(ctx, r.PathValue("id"), owner, req.patch())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alert": alert})
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.alerts.Delete(ctx, r.PathValue("id"), owner); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get(OwnerHeader)
	if owner == "" {
		s.writeError(w, &alerting.ValidationError{Field: "ownerId", Message: "You must be signed in to manage alerts."})
		return "", false
	}
	return owner, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, &alerting.ValidationError{Message: "Request body must be valid JSON."})
		return false
	}
	return true
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		verr *alerting.ValidationError
		qerr *alerting.QuotaExceededError
		nerr *alerting.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: verr.Message})
	case errors.As(err, &qerr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "quota_exceeded", Message: qerr.Message})
	case errors.As(err, &nerr):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: nerr.Message})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "Something went wrong. Please try again later."})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
