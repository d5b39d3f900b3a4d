package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/pesio-ai/be-vendor-onboarding/internal/analyzer"
	"github.com/pesio-ai/be-vendor-onboarding/internal/client"
	"github.com/pesio-ai/be-vendor-onboarding/internal/config"
	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
	"github.com/pesio-ai/be-vendor-onboarding/internal/handler"
	"github.com/pesio-ai/be-vendor-onboarding/internal/logger"
	"github.com/pesio-ai/be-vendor-onboarding/internal/middleware"
	"github.com/pesio-ai/be-vendor-onboarding/internal/natsclient"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
	"github.com/pesio-ai/be-vendor-onboarding/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Vendor Onboarding Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize NATS. Publishing is optional: the workflow runs without it.
	var events service.EventPublisher
	if cfg.NATS.URL != "" {
		nc, err := natsclient.Connect(cfg.NATS.URL, cfg.Service.Name)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, events disabled")
		} else {
			defer nc.Close()
			events = client.NewNotificationPublisher(nc, log)
			log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
		}
	}

	// Initialize the stage analyzer client
	gateway := analyzer.NewClient(cfg.Analyzer.BaseURL, cfg.Analyzer.Timeout, log)

	// Initialize repositories and the workflow engine
	engine := service.NewWorkflowEngine(
		db,
		repository.NewVendorRepository(),
		repository.NewReviewRepository(),
		repository.NewDecisionRepository(),
		repository.NewAuditRepository(),
		repository.NewDocumentRepository(),
		gateway,
		events,
		log,
	)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(engine, log)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(&log))
	r.Use(middleware.Recovery(&log))
	r.Use(middleware.CORS([]string{"*"}))
	// Must exceed the analyzer timeout, trigger requests wait on it.
	r.Use(middleware.Timeout(cfg.Analyzer.Timeout + 30*time.Second))

	r.Get("/health", httpHandler.Health)
	r.Route("/api/v1", httpHandler.Routes)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Start gRPC server
	grpcHandler := handler.NewGRPCHandler(engine, log)

	grpcServer := grpc.NewServer()
	handler.RegisterVendorOnboardingServiceServer(grpcServer, grpcHandler)
	reflection.Register(grpcServer) // Enable reflection for debugging

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create gRPC listener")
	}

	go func() {
		log.Info().Int("port", cfg.Server.GRPCPort).Msg("Starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Error().Err(err).Msg("gRPC server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stop gRPC server gracefully
	grpcServer.GracefulStop()

	log.Info().Msg("Server stopped")
}
