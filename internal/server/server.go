// Package server wires the HTTP routes and middleware.
package server

import (
	"net/http"

	"github.com/commons-systems/cleanslate/internal/handlers"
	"github.com/commons-systems/cleanslate/internal/middleware"
)

// Server owns the route table.
type Server struct {
	api *handlers.API
	mux *http.ServeMux
}

// New builds the route table around the given handler set.
func New(api *handlers.API) *Server {
	s := &Server{api: api, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.api.Health)
	s.mux.HandleFunc("GET /status", s.api.Status)
	s.mux.HandleFunc("POST /api/sanitize", s.api.Sanitize)
	s.mux.HandleFunc("POST /api/backup", s.api.Backup)
	s.mux.HandleFunc("GET /api/events", s.api.Events)
	s.mux.HandleFunc("GET /api/events/stream", s.api.EventsStream)
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return middleware.CORS(s.mux)
}
