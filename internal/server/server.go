// Package server implements the HTTPS request pipeline described by
// spec.md §4.D: domain admission, map lookup dispatch, adjunct-record
// authentication, and the embedded script host's re-entry point.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"

	"github.com/webnis/webnis/internal/config"
	"github.com/webnis/webnis/internal/crypt"
	"github.com/webnis/webnis/internal/logger"
	"github.com/webnis/webnis/internal/mapstore"
	"github.com/webnis/webnis/internal/script"
)

// Server is the Map/Auth Engine's HTTP pipeline: chi router, validated
// config, opened map backends, and an optional shared script host.
type Server struct {
	cfg    *config.Config
	store  *mapstore.Store
	scriptHost *script.Host
	log    logger.Logger
	mux    *chi.Mux
}

// New builds a Server ready to be handed to http.Server.Handler. scriptHost
// may be nil: the handlers do not call it directly (lua maps reach the
// script host through the store), and the auth endpoint always verifies
// against the domain's adjunct map without calling into a script.
func New(cfg *config.Config, store *mapstore.Store, scriptHost *script.Host, log logger.Logger) *Server {
	s := &Server{cfg: cfg, store: store, scriptHost: scriptHost, log: log}
	s.mux = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// SetScriptHost attaches a script host built after the Server itself, for
// callers that must construct the Server first so it can serve as the
// script host's re-entrant ScriptHost delegate. Not safe to call once the
// Server is already handling requests.
func (s *Server) SetScriptHost(h *script.Host) {
	s.scriptHost = h
}

// SetStore attaches a map store built after the Server itself, for the
// same two-phase construction SetScriptHost documents: a store backing a
// "type: lua" map needs the script host, which needs the Server as its
// delegate.
func (s *Server) SetStore(store *mapstore.Store) {
	s.store = store
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	httpLogger := httplog.NewLogger("webnis", httplog.Options{
		LogLevel: slog.LevelInfo,
		Concise:  true,
	})
	s.mux.Use(httplog.RequestLogger(httpLogger))
	s.mux.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	s.mux.Use(requestIDMiddleware)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(requestIDContext(r.Context(), id)))
	})
}

type ctxRequestID struct{}

func requestIDContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID{}, id)
}

// MapLookup implements script.ScriptHost: it resolves (mapName, keyName)
// within req.Domain exactly as an ordinary HTTP request would, bypassing
// only the authorization step (the script is already running on behalf of
// an authorized request).
func (s *Server) MapLookup(req *script.Request, mapName, keyName, keyValue string) (any, bool, error) {
	domain, ok := s.cfg.Domain(req.Domain)
	if !ok {
		return nil, false, nil
	}
	rec, found, _, err := s.store.Lookup(context.Background(), domain, mapName, keyName, keyValue)
	if err != nil || !found {
		return nil, false, err
	}
	return recordToValue(rec), true, nil
}

// MapAuth implements script.ScriptHost, re-entering the same adjunct-record
// verification an HTTP /auth request performs.
func (s *Server) MapAuth(req *script.Request, mapName, keyName, keyValue, password string) (bool, error) {
	domain, ok := s.cfg.Domain(req.Domain)
	if !ok {
		return false, nil
	}
	rec, found, _, err := s.store.Lookup(context.Background(), domain, mapName, keyName, keyValue)
	if err != nil || !found {
		return false, err
	}
	passwdField, ok := rec.Get("passwd")
	if !ok {
		return false, nil
	}
	hash, ok := passwdField.(string)
	if !ok {
		return false, nil
	}
	return crypt.Verify(hash, password)
}

// Debugf implements script.ScriptHost.
func (s *Server) Debugf(format string, args ...any) {
	s.log.Debugf(format, args...)
}
