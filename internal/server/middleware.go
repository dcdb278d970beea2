package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/webnis/webnis/internal/auth"
	"github.com/webnis/webnis/internal/config"
)

type ctxDomain struct{}

// domainContext resolves the {domain} URL parameter against the config
// tree. Unknown domain -> 404, per spec.md §4.D step 1.
func (s *Server) domainContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "domain")
		domain, ok := s.cfg.Domain(name)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown domain")
			return
		}
		ctx := context.WithValue(r.Context(), ctxDomain{}, domain)
		ctx = auth.WithDomain(ctx, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func domainFromContext(ctx context.Context) *config.Domain {
	d, _ := ctx.Value(ctxDomain{}).(*config.Domain)
	return d
}

// requireToken enforces step 2 of spec.md §4.D: the configured header must
// decode to a value matching the domain's token, in constant time.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		domain := domainFromContext(r.Context())
		candidate, err := auth.ExtractToken(r, domain.HeaderPolicy())
		if err != nil || !domain.Token.Equal(candidate) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
