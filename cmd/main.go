/*
Package main is the entry point for the Chatyni server.

It is responsible for loading configuration, initializing the global logging system and
error reporting, seeding the bootstrap administrator, wiring the identity store, session
registry, and moderation services into the HTTP router, and gracefully handling operating
system interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatyni/internal/app/auth"
	"chatyni/internal/app/avatar"
	"chatyni/internal/app/chat"
	"chatyni/internal/app/moderation"
	"chatyni/internal/app/storage"
	"chatyni/internal/app/user"
	"chatyni/internal/configs"
	"chatyni/internal/handler"
	"chatyni/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("avatar_storage", cfg.StorageEnabled()).
		Msg("Configuration loaded successfully")

	if err := logx.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logx.Error(err, "Failed to initialize Sentry; continuing without error reporting")
	}
	defer logx.FlushSentry()

	if cfg.UsesInsecureSecret() && !cfg.IsDevelopment() {
		logx.Error(
			fmt.Errorf("JWT_SECRET is not set"),
			"SECURITY: tokens are signed with the built-in development secret. Set JWT_SECRET before exposing this server.",
			"environment", cfg.Environment,
		)
	}

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := user.NewMemoryRepository()
	authService := auth.NewService(users, cfg.JWTSecret)

	adminPassword, err := bootstrapPassword(cfg, os.Stderr)
	if err != nil {
		logx.Fatal(err, "Failed to prepare bootstrap administrator password")
	}

	if err := authService.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminEmail, adminPassword); err != nil {
		logx.Fatal(err, "Failed to seed bootstrap administrator")
	}

	// Initialize the session registry
	hub := chat.NewHub(users)

	var store storage.StorageService
	if cfg.StorageEnabled() {
		store, err = storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			PublicURL:         cfg.S3PublicURL,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize avatar storage")
		}
	}

	roblox := avatar.NewRobloxClient(cfg.RobloxUsersURL, cfg.RobloxThumbnailsURL)

	deps := &handler.AppDeps{
		Config:     cfg,
		Hub:        hub,
		Auth:       authService,
		Moderation: moderation.NewEngine(users, hub),
		Avatars:    avatar.NewService(users, store, roblox, roblox),
	}

	// Setup HTTP server and routes
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Chatyni Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Hijacked WebSocket connections are not tracked by Shutdown; close them first.
	hub.Shutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
