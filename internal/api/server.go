// Package api is the admin HTTP surface: ban management and runtime status.
// It carries no chat logic, only HTTP handling and JSON serialization.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/VenB304/fabric-simple-webchat/internal/auth"
	"github.com/VenB304/fabric-simple-webchat/internal/history"
	"github.com/VenB304/fabric-simple-webchat/internal/moderation"
)

// Registry is the slice of the connection registry the admin API needs.
type Registry interface {
	WebUsers() []string
	Count() int
}

// Server exposes /api/bans and /api/status behind a bearer token.
type Server struct {
	token    string
	bans     *moderation.BanSet
	sessions *auth.SessionStore
	hist     *history.Log
	registry Registry
	router   *http.ServeMux
}

// NewServer creates the admin API. token must be non-empty; the caller
// decides whether to mount the API at all.
func NewServer(token string, bans *moderation.BanSet, sessions *auth.SessionStore, hist *history.Log, registry Registry) *Server {
	s := &Server{
		token:    token,
		bans:     bans,
		sessions: sessions,
		hist:     hist,
		registry: registry,
		router:   http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/bans", s.authMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleBans))))
	s.router.Handle("/api/bans/", s.authMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleBanByIP))))
	s.router.Handle("/api/status", s.authMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleStatus))))
}

// ServeHTTP implements http.Handler so the server mounts on any mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type banRequest struct {
	IP string `json:"ip"`
}

type banListResponse struct {
	Bans []string `json:"bans"`
}

type statusResponse struct {
	Timestamp   time.Time `json:"timestamp"`
	Connections int       `json:"connections"`
	WebUsers    []string  `json:"webUsers"`
	Sessions    int       `json:"sessions"`
	History     int       `json:"history"`
	Bans        int       `json:"bans"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// handleBans serves GET /api/bans (list) and POST /api/bans (add).
func (s *Server) handleBans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(banListResponse{Bans: s.bans.List()})
	case http.MethodPost:
		var req banRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		ip := strings.TrimSpace(req.IP)
		if ip == "" {
			s.sendError(w, "IP is required", http.StatusBadRequest)
			return
		}
		s.bans.Ban(ip)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"message": "Banned " + ip})
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleBanByIP serves DELETE /api/bans/{ip}.
func (s *Server) handleBanByIP(w http.ResponseWriter, r *http.Request) {
	ip := strings.TrimPrefix(r.URL.Path, "/api/bans/")
	if ip == "" {
		s.sendError(w, "IP required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodDelete:
		s.bans.Unban(ip)
		json.NewEncoder(w).Encode(map[string]string{"message": "Unbanned " + ip})
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleStatus serves GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	webUsers := s.registry.WebUsers()
	if webUsers == nil {
		webUsers = []string{}
	}
	json.NewEncoder(w).Encode(statusResponse{
		Timestamp:   time.Now(),
		Connections: s.registry.Count(),
		WebUsers:    webUsers,
		Sessions:    s.sessions.Count(),
		History:     s.hist.Len(),
		Bans:        len(s.bans.List()),
	})
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

// authMiddleware requires "Authorization: Bearer <token>" on every request.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		got, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			s.sendError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
