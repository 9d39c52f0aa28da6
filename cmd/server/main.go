package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bravetux/greetcard/internal/api"
	"github.com/bravetux/greetcard/internal/compose"
	"github.com/bravetux/greetcard/internal/config"
	"github.com/bravetux/greetcard/internal/draft"
	"github.com/bravetux/greetcard/internal/export"
	"github.com/bravetux/greetcard/internal/fonts"
	"github.com/bravetux/greetcard/internal/listing"
	"github.com/bravetux/greetcard/internal/preview"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := fonts.NewRegistry(logger)
	if err != nil {
		logger.Fatal("init font registry", zap.Error(err))
	}
	if cfg.FontsDir != "" {
		if err := registry.LoadDir(cfg.FontsDir); err != nil {
			logger.Warn("loading fonts dir failed", zap.Error(err))
		} else if err := registry.Watch(ctx, cfg.FontsDir); err != nil {
			logger.Warn("watching fonts dir failed", zap.Error(err))
		}
	}

	var source listing.Source
	switch cfg.ListingStrategy {
	case config.StrategyFTP:
		source = listing.NewFTPSource(cfg.FTP.Host, cfg.FTP.User, cfg.FTP.Password, cfg.ImageBaseURL, logger)
	case config.StrategyHTTPIndex:
		source = listing.NewHTTPIndexSource(cfg.HTTPIndexURL, logger)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	renderer := compose.NewRenderer(registry, client, logger, cfg.Watermark)

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = "http://localhost:" + cfg.Port
	}

	var store *export.ShareStore
	if cfg.ShareDir != "" {
		store, err = export.NewShareStore(cfg.ShareDir, logger)
		if err != nil {
			logger.Fatal("init share store", zap.Error(err))
		}
	}
	exporter := export.New(store, publicURL, logger)

	var drafts *draft.Store
	if cfg.DraftDB != "" {
		drafts, err = draft.Open(cfg.DraftDB, logger)
		if err != nil {
			logger.Fatal("open draft store", zap.Error(err))
		}
		defer drafts.Close()
	}

	hub := preview.NewHub(renderer, logger)
	go hub.Run(ctx)

	srv := &api.Server{
		Source:   source,
		Client:   client,
		Renderer: renderer,
		Exporter: exporter,
		Drafts:   drafts,
		Hub:      hub,
		Logger:   logger,
	}

	r := gin.Default()
	api.RegisterRoutes(r, srv)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.Port),
		zap.String("listing_strategy", cfg.ListingStrategy))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
