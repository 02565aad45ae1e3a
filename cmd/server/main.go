package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/gridsearch/internal/config"
	"github.com/copyleftdev/gridsearch/internal/errors"
	"github.com/copyleftdev/gridsearch/internal/logging"
	"github.com/copyleftdev/gridsearch/internal/optimization/gridsearch"
	"github.com/copyleftdev/gridsearch/internal/problem"
	"github.com/copyleftdev/gridsearch/internal/registry"
	"github.com/copyleftdev/gridsearch/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use standard logger as fallback if config loading fails
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize base logger
	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": "gridsearch-server",
		"version": "1.0.0",
	})

	// The search components share one error log. Without LOG_ERROR_FILE it
	// falls back to the service log output.
	sink := logging.NewSink(logging.WithFallback(os.Stderr))
	if cfg.Logging.ErrorFile != "" {
		if err := sink.SetLogFile(cfg.Logging.ErrorFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open error log: %v\n", err)
			os.Exit(1)
		}
	}
	searchLogger := logging.NewZapLogger(sink.Acquire("server"))

	reg := registry.New(registry.WithLogger(searchLogger))
	if err := reg.Install(
		problem.Module{Options: []problem.Option{problem.WithLogger(searchLogger)}},
		gridsearch.Module{Options: []gridsearch.Option{gridsearch.WithLogger(searchLogger)}},
	); err != nil {
		serviceLogger.Fatal("Failed to register modules", map[string]interface{}{"error": err.Error()})
	}

	// Create router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(errors.RecoveryMiddleware(serviceLogger))
	r.Use(errors.ErrorHandler(serviceLogger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Debug("Health check")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	srv := server.NewServer(cfg, serviceLogger, reg,
		server.WithSearchLogger(searchLogger),
		server.WithRegisterer(prometheus.DefaultRegisterer),
		server.WithSink(sink),
	)
	srv.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		serviceLogger.Info("Starting server", map[string]interface{}{
			"address": httpServer.Addr,
			"workers": cfg.Optimization.WorkerCount,
		})

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serviceLogger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	serviceLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	if err := srv.Close(); err != nil {
		serviceLogger.Error("error closing server resources", map[string]interface{}{"error": err.Error()})
	}

	_ = searchLogger.Sync()
	if err := sink.Release("server"); err != nil {
		serviceLogger.Error("error closing error log", map[string]interface{}{"error": err.Error()})
	}

	serviceLogger.Info("server exited properly")
}
