// Command webnis-server runs the Map/Auth Engine's HTTPS pipeline
// (spec.md §4.A-D): one process per configuration tree, one *http.Server
// per configured listen address, all sharing one request handler.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/webnis/webnis/internal/config/fixture"
	"github.com/webnis/webnis/internal/logger"
	"github.com/webnis/webnis/internal/mapstore"
	"github.com/webnis/webnis/internal/mapstore/luamap"
	"github.com/webnis/webnis/internal/script"
	"github.com/webnis/webnis/internal/server"
)

func main() {
	cfgFile := flag.String("config", "", "path to the server configuration file")
	flag.Parse()

	if *cfgFile == "" {
		log.Fatal("webnis-server: -config is required")
	}

	cfg, err := fixture.Load(*cfgFile)
	if err != nil {
		log.Fatalf("webnis-server: %v", err)
	}

	log := logger.NewLogger()

	// The script host re-enters the running server through script.ScriptHost,
	// and the store may need the host to back "type: lua" maps — so the
	// server is built first (store and script host attached empty/nil) and
	// wired up in two more steps once each dependency exists.
	handler := server.New(cfg, nil, nil, log)

	var scriptHost *script.Host
	var luaBackend *luamap.Backend
	if cfg.Server.ScriptPath != "" {
		scriptHost, err = script.New(cfg.Server.ScriptPath, runtime.GOMAXPROCS(0), handler)
		if err != nil {
			log.Errorf("webnis-server: script host: %v", err)
			os.Exit(1)
		}
		defer scriptHost.Close()
		luaBackend = luamap.New(scriptHost)
		handler.SetScriptHost(scriptHost)
	}

	store, err := mapstore.Open(cfg, luaBackend)
	if err != nil {
		log.Errorf("webnis-server: open maps: %v", err)
		os.Exit(1)
	}
	defer store.Close()
	handler.SetStore(store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	var servers []*http.Server

	for _, addr := range cfg.Server.Listen {
		srv := &http.Server{Addr: addr, Handler: handler}
		servers = append(servers, srv)

		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			var err error
			if cfg.Server.TLSCert != "" {
				err = srv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("webnis-server: %s: %v", srv.Addr, err)
			}
		}(srv)
	}

	<-ctx.Done()
	log.Infof("webnis-server: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}

	wg.Wait()
}
