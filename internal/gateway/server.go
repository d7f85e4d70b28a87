package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"sshConsole/internal/models"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const maxRequestBody = 64 << 10

type ServerConfig struct {
	Manager *Manager
	// Token is the bearer credential clients must present. Empty disables auth.
	Token string
	// Servers is the inventory served on /api/v1/servers.
	Servers []models.Server
	Logger  *slog.Logger
}

// Server exposes a Manager over HTTP.
type Server struct {
	manager *Manager
	token   string
	servers []models.Server
	logger  *slog.Logger
}

type openSessionResponse struct {
	SessionID string `json:"session_id"`
}

type commandRequest struct {
	Command string `json:"command"`
}

func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	servers := cfg.Servers
	if servers == nil {
		servers = []models.Server{}
	}
	return &Server{
		manager: cfg.Manager,
		token:   cfg.Token,
		servers: servers,
		logger:  logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	// Health (no auth)
	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireToken)

		r.Get("/servers", s.listServers)

		r.Route("/ssh/sessions", func(r chi.Router) {
			r.Post("/", s.openSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", s.closeSession)
				r.Get("/output", s.pollOutput)
				r.Post("/command", s.sendCommand)
				r.Get("/files", s.listFiles)
				r.Get("/files/content", s.downloadFile)
			})
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		// Output polls arrive twice a second per session.
		level := slog.LevelInfo
		if strings.HasSuffix(r.URL.Path, "/output") && ww.Status() < 400 {
			level = slog.LevelDebug
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
			"remote", r.RemoteAddr,
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.manager.Count(),
	})
}

func (s *Server) listServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.servers)
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	var target models.Target
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&target); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := target.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.manager.Open(r.Context(), target)
	if err != nil {
		s.logger.Warn("open session failed", "host", target.Host, "user", target.Username, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, openSessionResponse{SessionID: id})
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	s.manager.Close(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pollOutput(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Poll(chi.URLParam(r, "id")))
}

func (s *Server) sendCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.manager.Send(chi.URLParam(r, "id"), req.Command); err != nil {
		s.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	_, files, err := s.manager.ListFiles(chi.URLParam(r, "id"), r.URL.Query().Get("path"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	if files == nil {
		files = []models.RemoteFile{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	remotePath := r.URL.Query().Get("path")
	if remotePath == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	// Headers are only committed once the first byte arrives, so an early
	// failure can still be reported as JSON.
	out := &lazyWriter{w: w, name: path.Base(remotePath)}
	n, err := s.manager.Download(r.Context(), chi.URLParam(r, "id"), remotePath, out)
	if err != nil {
		if !out.started {
			s.writeSessionError(w, err)
			return
		}
		s.logger.Warn("download interrupted", "path", remotePath, "bytes", n, "error", err)
		return
	}
	if !out.started {
		out.start()
	}
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}

type lazyWriter struct {
	w       http.ResponseWriter
	name    string
	started bool
}

func (l *lazyWriter) start() {
	l.started = true
	l.w.Header().Set("Content-Type", "application/octet-stream")
	l.w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(l.name, `"`, "")+`"`)
	l.w.WriteHeader(http.StatusOK)
}

func (l *lazyWriter) Write(p []byte) (int, error) {
	if !l.started {
		l.start()
	}
	return l.w.Write(p)
}
