// Package api exposes the candidate pipeline over HTTP. Submission and
// resource reads are public; review actions and queue control sit behind the
// admin bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reentry-map/resource-verifier/internal/config"
	"github.com/reentry-map/resource-verifier/internal/lifecycle"
	"github.com/reentry-map/resource-verifier/internal/model"
	"github.com/reentry-map/resource-verifier/internal/service"
	"github.com/reentry-map/resource-verifier/internal/store"
)

// Server serves the HTTP API.
type Server struct {
	svc *service.Service
	cfg config.ServerConfig
}

// NewServer creates a Server.
func NewServer(svc *service.Service, cfg config.ServerConfig) *Server {
	return &Server{svc: svc, cfg: cfg}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Actor"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/candidates", s.handleSubmit)
		r.Get("/resources", s.handleListResources)
		r.Get("/resources/{id}", s.handleGetResource)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/candidates", s.handleListCandidates)
			r.Get("/candidates/{id}", s.handleGetCandidate)
			r.Post("/candidates/{id}/approve", s.handleApprove)
			r.Post("/candidates/{id}/reject", s.handleReject)
			r.Post("/candidates/{id}/flag", s.handleFlag)
			r.Post("/queue/process", s.handleProcessQueue)
		})
	})

	return r
}

// ListenAndServe runs the server until the context is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("api: listening", zap.Int("port", s.cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "api: shutdown")
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "api: serve")
	}
}

// requireAdmin gates review endpoints behind the configured bearer token.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			writeError(w, http.StatusServiceUnavailable, "admin API disabled: no admin token configured")
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.AdminToken {
			writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actor extracts the reviewer identity for audit records.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "admin"
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var cand model.ResourceCandidate
	if err := json.NewDecoder(r.Body).Decode(&cand); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.svc.SubmitCandidate(r.Context(), &cand)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	filter := store.ResourceFilter{
		Status:   model.ResourceStatus(r.URL.Query().Get("status")),
		Category: r.URL.Query().Get("category"),
		Limit:    queryInt(r, "limit", 100),
		Offset:   queryInt(r, "offset", 0),
	}

	resources, err := s.svc.ListResources(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": resources, "count": len(resources)})
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	resource, err := s.svc.GetResource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	filter := store.CandidateFilter{
		Status: model.CandidateStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 100),
		Offset: queryInt(r, "offset", 0),
	}

	candidates, err := s.svc.ListCandidates(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates, "count": len(candidates)})
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	cand, err := s.svc.GetCandidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cand)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var corr lifecycle.Corrections
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&corr); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	resource, err := s.svc.Approve(r.Context(), chi.URLParam(r, "id"), corr, actor(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason model.RejectionReason `json:"reason"`
		Notes  string                `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.svc.Reject(r.Context(), chi.URLParam(r, "id"), body.Reason, body.Notes, actor(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.CandidateRejected)})
}

func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason model.AttentionReason `json:"reason"`
		Notes  string                `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.svc.Flag(r.Context(), chi.URLParam(r, "id"), body.Reason, body.Notes, actor(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.CandidateNeedsAttention)})
}

func (s *Server) handleProcessQueue(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.ProcessQueue(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// writeServiceError maps application errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidation(err) || eris.Is(err, model.ErrInvalidReason):
		writeError(w, http.StatusBadRequest, err.Error())
	case eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case eris.Is(err, model.ErrInvalidTransition) || eris.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case eris.Is(err, model.ErrUngeocodable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zap.L().Error("api: request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
