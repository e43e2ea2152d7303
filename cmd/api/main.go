package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"checkmark/api/internal/app"
	"checkmark/api/internal/config"
	"checkmark/api/internal/gitrepo"
	"checkmark/api/internal/search"
	"checkmark/api/internal/session"
	"checkmark/api/internal/store"
	"checkmark/api/internal/uploads"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	files := store.New(cfg.DataDir)
	if err := files.Init(); err != nil {
		log.Fatalf("data dir %s: %v", cfg.DataDir, err)
	}

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for session storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Printf("Using %s for session storage", filepath.Join(cfg.DataDir, "users", "sessions.json"))
	}

	var history app.NoteHistory
	if cfg.NoteHistory {
		history = gitrepo.New(filepath.Join(cfg.DataDir, ".history"))
	}

	var blobs uploads.Store
	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		s3Store, err := uploads.NewS3Store(ctx, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			log.Fatalf("object storage failed: %v", err)
		}
		blobs = s3Store
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}

	service := app.New(cfg, files, sessions, history, blobs, meiliClient)
	defer service.Close()
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Checkmark API listening on %s (data dir %s)", cfg.Addr, cfg.DataDir)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
