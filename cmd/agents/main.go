package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/config"
	logpkg "github.com/kailas-cloud/eshoplite/internal/logger"
	"github.com/kailas-cloud/eshoplite/internal/transport/agents"
	"github.com/kailas-cloud/eshoplite/internal/version"
)

const defaultPort = 5101

func main() {
	env := config.GetEnv()

	logger, err := logpkg.NewLogger(env, os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	port := defaultPort
	if v := os.Getenv("AGENTS_PORT"); v != "" {
		if port, err = strconv.Atoi(v); err != nil {
			logger.Fatal("Invalid AGENTS_PORT", zap.String("value", v), zap.Error(err))
		}
	}

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      agents.NewStub(nil, logger).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting enrichment agent stubs",
			zap.String("addr", addr), zap.String("version", version.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("Agent stubs stopped")
}
