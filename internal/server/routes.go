package server

import (
	"github.com/go-chi/chi/v5"
)

func (s *Server) setupRoutes() {
	s.mux.Route("/.well-known/webnis/{domain}", func(r chi.Router) {
		r.Use(s.domainContext)
		r.Use(s.requireToken)
		r.Get("/map/{mapname}", s.handleMapLookup)
		r.Post("/auth", s.handleAuth)
	})
}
