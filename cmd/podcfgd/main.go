// Command podcfgd owns the Prosody configuration of a pod. It renders the
// server configuration from the stored pod settings, keeps the installed
// file in sync, and serves the settings API on a Unix socket.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lc/podcfg/internal/config"
	"github.com/lc/podcfg/internal/engine"
	"github.com/lc/podcfg/internal/filesys"
	"github.com/lc/podcfg/internal/log"
	"github.com/lc/podcfg/internal/proc"
	"github.com/lc/podcfg/internal/prosody"
	"github.com/lc/podcfg/internal/store"
	"github.com/lc/podcfg/pkg/api"
)

func main() {
	defer log.Sync()

	provider := config.New()
	if path := os.Getenv("PODCFG_CONFIG"); path != "" {
		provider = config.NewWithPath(filesys.OS(), path)
	}
	cfg, err := provider.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// build deps
	st := store.NewFileStore(filesys.OS(), cfg.Settings.Path)
	mgr := prosody.NewManager(prosody.Config{
		Path:          cfg.Prosody.ConfigPath,
		ProcessName:   cfg.Prosody.ProcessName,
		ReloadCommand: cfg.Prosody.ReloadCommand,
	}, filesys.OS(), prosody.Exec{}, proc.Table{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(st, mgr, cfg.Pod.StaticSections)
	if err := eng.Run(ctx); err != nil {
		log.Fatalf("engine: %v", err)
	}

	apiSrv := api.New(eng)
	go func() {
		if err := apiSrv.ListenAndServe(cfg.Socket.Path); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api listen: %v", err)
		}
	}()
	log.Info("podcfgd: serving", "socket", cfg.Socket.Path, "prosody_config", cfg.Prosody.ConfigPath)

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("podcfgd: shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("api shutdown error: %v", err)
	}
	cancel()
	eng.Close()
	cfg.Pod.Wipe()
}
