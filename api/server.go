package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wricardo/naval-duel/game/config"
	"github.com/wricardo/naval-duel/game/service"
	"github.com/wricardo/naval-duel/game/session"
)

// DefaultStaticDir is where the browser client is served from
const DefaultStaticDir = "./static/"

// Server represents the REST API server
type Server struct {
	service   service.LobbyService
	ws        http.Handler
	staticDir string
	router    *mux.Router
}

// Option configures a Server
type Option func(*Server)

// WithWebSocket mounts the realtime endpoint at /ws
func WithWebSocket(h http.Handler) Option {
	return func(s *Server) {
		s.ws = h
	}
}

// WithStaticDir serves the browser client from dir
func WithStaticDir(dir string) Option {
	return func(s *Server) {
		s.staticDir = dir
	}
}

// NewServer creates a new API server
func NewServer(lobby service.LobbyService, opts ...Option) *Server {
	s := &Server{
		service:   lobby,
		staticDir: DefaultStaticDir,
		router:    mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Rooms (all must be registered before {id})
	api.HandleFunc("/rooms", s.handleListJoinable).Methods("GET")
	api.HandleFunc("/rooms/all", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")

	// Archived matches
	api.HandleFunc("/matches", s.handleListMatches).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleGetMatch).Methods("GET")

	// Configuration
	api.HandleFunc("/rules", s.handleActiveRules).Methods("GET")
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	if s.ws != nil {
		s.router.Handle("/ws", s.ws)
	}

	// Static files (if needed)
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Room Handlers

func (s *Server) handleListJoinable(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListJoinable(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	room, err := s.service.GetRoom(r.Context(), roomID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, room)
}

// Match Handlers

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.service.ListMatches(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	total := len(matches)
	query := r.URL.Query()
	if winner := query.Get("winner"); winner != "" {
		filtered := matches[:0]
		for _, m := range matches {
			if m.Winner == winner {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(matches) {
			matches = matches[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(matches),
		"total":   total,
		"matches": matches,
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	match, err := s.service.GetMatch(r.Context(), matchID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, match)
}

// Configuration Handlers

func (s *Server) handleActiveRules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.ActiveRules(r.Context()))
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := mux.Vars(r)["name"]

	// Accept file names as well as ids
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		configName = strings.TrimSuffix(configName, ext)
	}

	rules, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrRoomNotFound),
		errors.Is(err, session.ErrMatchNotFound),
		errors.Is(err, config.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, config.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
