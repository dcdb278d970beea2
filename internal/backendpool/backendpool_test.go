package backendpool_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webnis/webnis/internal/backendpool"
	"github.com/webnis/webnis/internal/config"
)

func daemonConfig(t *testing.T, urls ...string) *config.DaemonConfig {
	t.Helper()
	backends := make([]config.BackendDefinition, len(urls))
	for i, u := range urls {
		backends[i] = config.BackendDefinition{BaseURL: u}
	}
	cfg, err := config.NewDaemonConfig(&config.DaemonDefinition{
		Socket:   "/tmp/bindd.sock",
		Domain:   "business",
		Backends: backends,
	})
	require.NoError(t, err)
	return cfg
}

func TestPool_Do_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":{"name":"mikevs"}}`))
	}))
	defer srv.Close()

	pool := backendpool.New(daemonConfig(t, srv.URL), "/probe", nil)
	defer pool.Close()

	resp, err := pool.Do(context.Background(), http.MethodGet, "/map/passwd?name=mikevs", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestPool_Do_Failover(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer good.Close()

	pool := backendpool.New(daemonConfig(t, bad.URL, good.URL), "/probe", nil)
	defer pool.Close()

	resp, err := pool.Do(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestPool_Do_AllDown(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	pool := backendpool.New(daemonConfig(t, bad.URL), "/probe", nil)
	defer pool.Close()

	_, err := pool.Do(context.Background(), http.MethodGet, "/x", nil)
	assert.Error(t, err)
}

func TestPool_Do_404IsNotAFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	pool := backendpool.New(daemonConfig(t, srv.URL), "/probe", nil)
	defer pool.Close()

	resp, err := pool.Do(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}
