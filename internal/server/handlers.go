package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/webnis/webnis/internal/crypt"
)

// handleMapLookup implements GET /.well-known/webnis/{domain}/map/{mapname}
// per spec.md §4.D: the single query parameter present names the lookup
// key; its value is the key value.
func (s *Server) handleMapLookup(w http.ResponseWriter, r *http.Request) {
	domain := domainFromContext(r.Context())
	mapName := chi.URLParam(r, "mapname")

	keyName, keyValue, ok := firstQueryParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "missing lookup key")
		return
	}

	rec, found, status, err := s.store.Lookup(r.Context(), domain, mapName, keyName, keyValue)
	if err != nil {
		s.log.Errorf("map lookup %s/%s: %v", domain.Name, mapName, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no matching record")
		return
	}
	writeResult(w, status, rec)
}

// handleAuth implements POST /.well-known/webnis/{domain}/auth per
// spec.md §4.D: resolve the adjunct record via the domain's auth config,
// then verify the supplied password against its "passwd" field.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	domain := domainFromContext(r.Context())

	username, password, err := parseAuthBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	authCfg, ok := s.cfg.AuthFor(domain)
	if !ok {
		writeError(w, http.StatusNotFound, "auth not configured for domain")
		return
	}

	rec, found, _, err := s.store.LookupAuth(r.Context(), domain, authCfg, username)
	if err != nil {
		s.log.Errorf("auth lookup %s: %v", domain.Name, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !found {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	hash, ok := stringField(rec.Get("passwd"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	match, err := crypt.Verify(hash, password)
	if err != nil {
		s.log.Errorf("crypt verify for domain %s: %v", domain.Name, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !match {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeResult(w, http.StatusOK, map[string]any{"username": username})
}

func stringField(v any, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func firstQueryParam(r *http.Request) (name, value string, ok bool) {
	for k, vs := range r.URL.Query() {
		if len(vs) == 0 {
			continue
		}
		return k, vs[0], true
	}
	return "", "", false
}

type authBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func parseAuthBody(r *http.Request) (username, password string, err error) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body authBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", "", err
		}
		return body.Username, body.Password, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", "", err
	}
	return r.FormValue("username"), r.FormValue("password"), nil
}
