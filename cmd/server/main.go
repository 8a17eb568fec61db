package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pratik2542/expenso/backend/internal/config"
	"github.com/pratik2542/expenso/backend/internal/fx"
	"github.com/pratik2542/expenso/backend/internal/ingest"
	"github.com/pratik2542/expenso/backend/internal/logger"
	"github.com/pratik2542/expenso/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	var llm *ingest.LLMClient
	if cfg.GeminiAPIKey != "" {
		llm = ingest.NewLLMClient(cfg.GeminiAPIKey, log,
			ingest.WithBaseURL(cfg.GeminiBaseURL),
			ingest.WithModel(cfg.GeminiModel),
			ingest.WithCallTimeout(cfg.ExtractCallTimeout),
		)
	} else {
		log.Warn("GEMINI_API_KEY not set; statement extraction runs in local-only mode")
	}

	svc := ingest.NewService(
		ingest.NewPDFTextExtractor(),
		llm,
		ingest.NewSanitizer(cfg.MaskExtraTerms),
		ingest.NewJobStore(cfg.JobTTL),
		log,
	)
	handler := service.NewStatementHandler(svc, fx.NewClient(cfg.FXBaseURL), cfg.MaxUploadSizeBytes, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handler.Register(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
