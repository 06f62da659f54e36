package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"prezence/api/internal/analysis"
	"prezence/api/internal/app"
	"prezence/api/internal/config"
	"prezence/api/internal/export"
	"prezence/api/internal/logging"
	"prezence/api/internal/search"
	"prezence/api/internal/state"
	"prezence/api/internal/webhook"
)

func main() {
	cfg := config.Load()
	logging.Init("prezence-api", cfg.LogLevel)
	log := logging.Logger
	ctx := context.Background()

	kv, err := state.Open(ctx, state.Config{
		Backend:       cfg.StateBackend,
		SQLitePath:    cfg.SQLitePath,
		RedisURL:      cfg.RedisURL,
		DatabaseURL:   cfg.DatabaseURL,
		MigrationsDir: cfg.MigrationsDir,
	})
	if err != nil {
		log.Fatalf("state backend %q failed: %v", cfg.StateBackend, err)
	}
	defer kv.Close()
	log.WithField("backend", cfg.StateBackend).Info("state backend ready")

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}

	var archiver export.Archiver
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		minioArchiver, err := export.NewMinioArchiver(ctx, export.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.WithError(err).Warn("export archive disabled")
		} else {
			archiver = minioArchiver
		}
	}

	analyzer := analysis.New(cfg.OpenAIKey, cfg.OpenAIModel)
	if !analyzer.Enabled() {
		log.Info("document analysis disabled: OPENAI_API_KEY is not set")
	}

	service := app.New(cfg, app.Deps{
		Repository: state.NewRepository(kv),
		Webhook:    webhook.New(cfg.WebhookTimeout),
		Exporter:   export.NewService(export.Options{ChromePath: cfg.ChromePath, Archiver: archiver}),
		Search:     search.NewService(meiliClient),
		Analyzer:   analyzer,
	})
	if err := service.Bootstrap(ctx); err != nil {
		log.WithError(err).Warn("bootstrap fell back to the seed roll")
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infof("Prezence API listening on %s", cfg.Addr)
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
		log.WithError(err).Error("shutdown error")
	}
}
