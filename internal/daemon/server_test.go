package daemon_test

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webnis/webnis/internal/backendpool"
	"github.com/webnis/webnis/internal/config"
	"github.com/webnis/webnis/internal/daemon"
)

func testDaemonConfig(t *testing.T, backends ...string) *config.DaemonConfig {
	t.Helper()
	defs := make([]config.BackendDefinition, len(backends))
	for i, b := range backends {
		defs[i] = config.BackendDefinition{BaseURL: b}
	}
	cfg, err := config.NewDaemonConfig(&config.DaemonDefinition{
		Socket:   "unused",
		Domain:   "business",
		Token:    "tok",
		Backends: defs,
	})
	require.NoError(t, err)
	return cfg
}

func dialAndRoundTrip(t *testing.T, sockPath, line string) string {
	t.Helper()
	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(line + "\n"))
	require.NoError(t, err)

	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return reply
}

func sockFile(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "webnis-bindd-*.sock")
	require.NoError(t, err)
	path := f.Name()
	f.Close()
	os.Remove(path)
	t.Cleanup(func() { os.Remove(path) })
	return path
}

func startDaemonServer(t *testing.T, translator *daemon.Translator, policy daemon.PeerPolicy) (sockPath string) {
	t.Helper()
	sockPath = sockFile(t)
	srv, err := daemon.NewServer(sockPath, policy, translator, nil)
	require.NoError(t, err)

	listening := make(chan error, 1)
	go func() { _ = srv.Serve(listening) }()
	require.NoError(t, <-listening)
	t.Cleanup(func() { _ = srv.Shutdown() })
	time.Sleep(20 * time.Millisecond)
	return sockPath
}

func TestServer_GetPwNam_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":{"name":"mikevs","passwd":"x","uid":1000,"gid":100,"gecos":"Mike V S","dir":"/home/mikevs","shell":"/bin/sh"}}`))
	}))
	defer upstream.Close()

	pool := backendpool.New(testDaemonConfig(t, upstream.URL), "/.well-known/webnis/business/map/passwd?name=probe", nil)
	defer pool.Close()
	translator := daemon.NewTranslator(pool, "business")

	sockPath := startDaemonServer(t, translator, daemon.PeerPolicy{})

	reply := dialAndRoundTrip(t, sockPath, "GETPWNAM mikevs")
	require.Contains(t, reply, "200 ")
	require.Contains(t, reply, "mikevs")
}

func TestServer_Auth_Unauthorized(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"bad credentials"}}`))
	}))
	defer upstream.Close()

	pool := backendpool.New(testDaemonConfig(t, upstream.URL), "/probe", nil)
	defer pool.Close()
	translator := daemon.NewTranslator(pool, "business")

	sockPath := startDaemonServer(t, translator, daemon.PeerPolicy{})

	reply := dialAndRoundTrip(t, sockPath, "AUTH mikevs s3cret%20x")
	require.Contains(t, reply, "401")
}

func TestServer_SetAndPam_ReplyOK(t *testing.T) {
	pool := backendpool.New(testDaemonConfig(t, "https://unused.example.com"), "/probe", nil)
	defer pool.Close()
	translator := daemon.NewTranslator(pool, "business")

	sockPath := startDaemonServer(t, translator, daemon.PeerPolicy{})

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	reader := bufio.NewReader(conn)

	_, err = conn.Write([]byte("PAM 1\n"))
	require.NoError(t, err)
	reply, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, reply, "200")

	_, err = conn.Write([]byte("SET remotehost=10.0.0.5\n"))
	require.NoError(t, err)
	reply, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, reply, "200")
}

func TestServer_MalformedCommand_Returns400(t *testing.T) {
	pool := backendpool.New(testDaemonConfig(t, "https://unused.example.com"), "/probe", nil)
	defer pool.Close()
	translator := daemon.NewTranslator(pool, "business")

	sockPath := startDaemonServer(t, translator, daemon.PeerPolicy{})

	reply := dialAndRoundTrip(t, sockPath, "BOGUS foo")
	require.Contains(t, reply, "400")
}

func TestServer_Shutdown_StopsAccepting(t *testing.T) {
	pool := backendpool.New(testDaemonConfig(t, "https://unused.example.com"), "/probe", nil)
	defer pool.Close()
	translator := daemon.NewTranslator(pool, "business")

	sockPath := sockFile(t)
	srv, err := daemon.NewServer(sockPath, daemon.PeerPolicy{}, translator, nil)
	require.NoError(t, err)

	listening := make(chan error, 1)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(listening) }()
	require.NoError(t, <-listening)

	require.NoError(t, srv.Shutdown())
	err = <-done
	require.True(t, errors.Is(err, daemon.ErrServerRequestedShutdown))

	_, dialErr := net.Dial("unix", sockPath)
	require.Error(t, dialErr)
}
