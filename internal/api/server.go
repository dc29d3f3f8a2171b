// Package api exposes the honeypot over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/baitline/baitline/internal/engine"
	"github.com/baitline/baitline/internal/rategate"
	"github.com/baitline/baitline/internal/session"
	"github.com/baitline/baitline/internal/store"
)

type Server struct {
	router   *chi.Mux
	http     *http.Server
	engine   *engine.Engine
	sessions *session.Store
	archive  *store.Archive
	gate     *rategate.Gate
	log      *slog.Logger
}

// NewServer wires the routes. archive and gate may be nil; the stats and
// session endpoints degrade accordingly.
func NewServer(port int, apiToken string, eng *engine.Engine, sessions *session.Store, archive *store.Archive, gate *rategate.Gate, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		http:     &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: router},
		engine:   eng,
		sessions: sessions,
		archive:  archive,
		gate:     gate,
		log:      logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(bearerAuth(apiToken))
		r.Post("/message", s.message)
		r.Get("/sessions/{id}", s.sessionByID)
		r.Get("/stats", s.stats)
	})

	return s
}

func (s *Server) Start() error {
	s.log.Info("api server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// bearerAuth rejects /api/v1 traffic without the configured token. An
// empty token leaves the API open, which is the local-dev mode.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
				if got != token {
					writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

type messageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

func (s *Server) message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	reply := s.engine.HandleMessage(r.Context(), req.SessionID, req.Message)
	writeJSON(w, http.StatusOK, reply)
}

// SessionView is the live-session snapshot returned by the sessions
// endpoint.
type SessionView struct {
	SessionID    string   `json:"sessionId"`
	Status       string   `json:"status"`
	ScamDetected bool     `json:"scamDetected"`
	ScamType     string   `json:"scamType"`
	Persona      string   `json:"persona,omitempty"`
	Stage        string   `json:"stage"`
	MessageCount int      `json:"messageCount"`
	IntelScore   float64  `json:"intelScore"`
	IntelItems   int      `json:"intelItems"`
	AgentNotes   []string `json:"agentNotes"`
}

func (s *Server) sessionByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if sess, ok := s.sessions.Get(id); ok {
		writeJSON(w, http.StatusOK, snapshot(sess))
		return
	}

	// Finished sessions live on in the archive.
	if s.archive != nil {
		p, err := s.archive.Get(r.Context(), id)
		if err != nil {
			s.log.Error("archive lookup failed", "session", id, "err", err)
			writeError(w, http.StatusInternalServerError, "archive lookup failed")
			return
		}
		if p != nil {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}

	writeError(w, http.StatusNotFound, "session not found")
}

func snapshot(sess *session.Session) SessionView {
	sess.Lock()
	defer sess.Unlock()

	status := engine.StatusActive
	if sess.Terminated {
		status = engine.StatusTerminated
	}
	v := SessionView{
		SessionID:    sess.ID,
		Status:       status,
		ScamDetected: sess.Detected,
		ScamType:     string(sess.ScamType()),
		Stage:        sess.Stage.String(),
		MessageCount: len(sess.Messages),
		IntelScore:   sess.Intel.Score(),
		IntelItems:   sess.Intel.Total(),
		AgentNotes:   append([]string{}, sess.AgentNotes...),
	}
	if p, ok := sess.Persona(); ok {
		v.Persona = string(p)
	}
	return v
}

type statsResponse struct {
	ActiveSessions int             `json:"activeSessions"`
	Archive        *store.Stats    `json:"archive,omitempty"`
	Rate           *rategate.Usage `json:"rate,omitempty"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{ActiveSessions: s.sessions.Len()}

	if s.archive != nil {
		st, err := s.archive.Stats(r.Context())
		if err != nil {
			s.log.Error("archive stats failed", "err", err)
			writeError(w, http.StatusInternalServerError, "archive stats failed")
			return
		}
		resp.Archive = &st
	}
	if s.gate != nil {
		u := s.gate.Usage()
		resp.Rate = &u
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
