package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mstepanek/gallery-voice/backend/internal/config"
	"github.com/mstepanek/gallery-voice/backend/internal/handler"
	sessionHandler "github.com/mstepanek/gallery-voice/backend/internal/handler/session"
	"github.com/mstepanek/gallery-voice/backend/internal/model/gallery"
	"github.com/mstepanek/gallery-voice/backend/internal/service/lookup"
	"github.com/mstepanek/gallery-voice/backend/internal/service/realtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// One dataset store for the whole process: HTTP handlers and every
	// session read the same loaded document.
	store := gallery.NewFileStore(cfg.Dataset.Path)
	if err := store.Load(); err != nil {
		log.Printf("warning: dataset unavailable: %v", err)
		log.Println("continuing without sculpture data - lookups will answer not found")
	} else {
		log.Printf("dataset loaded from %s (%d sculptures)", cfg.Dataset.Path, len(store.Names()))
	}

	var sessions *sessionHandler.Handler
	if cfg.Realtime.Enabled() {
		dialOpts := cfg.Realtime.DialOptions()
		connect := func(ctx context.Context) (realtime.Conversation, error) {
			return realtime.Dial(ctx, dialOpts)
		}
		sessions = sessionHandler.New(connect, lookup.NewEnricher(store), sessionHandler.DefaultPromptSet(), cfg.Realtime.SessionOptions())
		log.Printf("realtime backend configured: %s", cfg.Realtime.Backend)
	} else {
		log.Println("realtime credentials not configured, /realtime endpoint disabled")
	}

	router := handler.NewRouter(store, sessions)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Gallery Voice backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
