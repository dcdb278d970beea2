// Command webnis-bindd runs the binding daemon (spec.md §4.E): a
// Unix-domain line-protocol front end translating GETPWNAM/GETPWUID/
// GETGRNAM/GETGRGID/GETGIDLIST/AUTH/PAM/SET requests into HTTPS calls
// against a webnis-server backend pool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/webnis/webnis/internal/backendpool"
	"github.com/webnis/webnis/internal/config/fixture"
	"github.com/webnis/webnis/internal/daemon"
	"github.com/webnis/webnis/internal/logger"
)

func main() {
	cfgFile := flag.String("config", "", "path to the binding daemon configuration file")
	flag.Parse()

	if *cfgFile == "" {
		log.Fatal("webnis-bindd: -config is required")
	}

	cfg, err := fixture.LoadDaemon(*cfgFile)
	if err != nil {
		log.Fatalf("webnis-bindd: %v", err)
	}

	logg := logger.NewLogger()

	probePath := fmt.Sprintf("/.well-known/webnis/%s/map/passwd?name=%s", cfg.Domain, probeKey)
	pool := backendpool.New(cfg, probePath, logg)
	defer pool.Close()

	translator := daemon.NewTranslator(pool, cfg.Domain)
	policy := daemon.PeerPolicy{
		RestrictGetPwUid: cfg.RestrictGetPwUid,
		RestrictGetGrGid: cfg.RestrictGetGrGid,
	}

	srv, err := daemon.NewServer(cfg.Socket, policy, translator, logg)
	if err != nil {
		logg.Errorf("webnis-bindd: %v", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listening := make(chan error, 1)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(listening) }()

	if err := <-listening; err != nil {
		logg.Errorf("webnis-bindd: listen on %s: %v", cfg.Socket, err)
		return
	}
	logg.Infof("webnis-bindd: listening on %s", cfg.Socket)

	select {
	case <-ctx.Done():
		logg.Infof("webnis-bindd: shutting down")
		_ = srv.Shutdown()
		<-serveErr
	case err := <-serveErr:
		if err != nil && !errors.Is(err, daemon.ErrServerRequestedShutdown) {
			logg.Errorf("webnis-bindd: %v", err)
		}
	}
}

// probeKey is an arbitrary, unlikely-to-exist key used only to confirm a
// dead backend has come back up: the probe just needs a non-5xx response,
// a 404 counts as alive.
const probeKey = "webnis-bindd-probe"
