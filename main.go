package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tracto-cpk/internal/api"
	"tracto-cpk/internal/config"
	"tracto-cpk/internal/geo"
	"tracto-cpk/internal/jobs"
	"tracto-cpk/internal/loader"
	"tracto-cpk/internal/logger"
	"tracto-cpk/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting tracto-cpk",
		zap.String("port", cfg.Port),
		zap.String("dataset", cfg.DatasetPath),
	)

	records, err := loader.New(cfg.DatasetSheet, log).Load(cfg.DatasetPath)
	if err != nil {
		log.Fatal("failed to load dataset", zap.Error(err))
	}

	p := pipeline.New(pipeline.Options{
		MaxRows:    cfg.MaxRows,
		TopN:       cfg.TopN,
		CostPolicy: cfg.CostPolicy,
		Bounds:     geo.Mexico,
	}, log)

	ds, err := p.Prepare(records)
	if err != nil {
		log.Fatal("failed to compute metrics", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(p, ds, jobs.NewStore(), api.Dirs{Output: cfg.OutputDir, Upload: cfg.UploadDir}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down tracto-cpk...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}
}
