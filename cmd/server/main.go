package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/inamate/whiteboard/internal/auth"
	"github.com/inamate/whiteboard/internal/board"
	"github.com/inamate/whiteboard/internal/config"
	"github.com/inamate/whiteboard/internal/interaction"
	mw "github.com/inamate/whiteboard/internal/middleware"
	"github.com/inamate/whiteboard/internal/session"
	"github.com/inamate/whiteboard/internal/store"
	"github.com/inamate/whiteboard/internal/store/memory"
	"github.com/inamate/whiteboard/internal/store/postgres"
	s3store "github.com/inamate/whiteboard/internal/store/s3"
	"github.com/inamate/whiteboard/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "type", cfg.StorageType, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	authService := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(authService)

	hub := session.NewHub()
	sessionHandler := session.NewHandler(hub, authService, st, session.Options{
		Engine:       cfg.EngineOptions(),
		Interaction:  interaction.Options{DragThreshold: cfg.DragThreshold},
		SaveDebounce: cfg.SaveDebounce,
	}, cfg.Origins())

	boardService := board.NewService(st, hub, cfg.MaxLayers)
	boardHandler := board.NewHandler(boardService)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/auth/token", authHandler.Token).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	boardHandler.Routes(api)

	// WebSocket endpoint, authenticated by ?token=
	r.HandleFunc("/ws/boards/{boardId}", sessionHandler.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		// Save open boards before connections go away.
		slog.Info("saving open boards", "sessions", hub.Len())
		if err := hub.Stop(shutdownCtx); err != nil {
			slog.Error("save open boards", "error", err)
		}
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "storage", cfg.StorageType)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.Open(ctx, cfg.DatabaseURL)
	case "sqlite":
		return sqlite.Open(ctx, cfg.SQLitePath)
	case "s3":
		return s3store.Open(ctx, cfg.S3Bucket)
	case "memory":
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
}
