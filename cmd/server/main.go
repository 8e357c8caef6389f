package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/bychung/snusv-angel-club-sub002/internal/auth"
	"github.com/bychung/snusv-angel-club-sub002/internal/config"
	"github.com/bychung/snusv-angel-club-sub002/internal/db"
	"github.com/bychung/snusv-angel-club-sub002/internal/docgen"
	"github.com/bychung/snusv-angel-club-sub002/internal/export"
	"github.com/bychung/snusv-angel-club-sub002/internal/ingestion"
	"github.com/bychung/snusv-angel-club-sub002/internal/logging"
	"github.com/bychung/snusv-angel-club-sub002/internal/middleware"
	"github.com/bychung/snusv-angel-club-sub002/internal/notify"
	"github.com/bychung/snusv-angel-club-sub002/internal/portal"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

func main() {
	// .env is optional, real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.DB); err != nil {
		logger.Fatal("failed to run migrations", "error", err)
	}

	// Create repositories
	profileRepo := repository.NewProfileRepository(conn.Pool)
	fundRepo := repository.NewFundRepository(conn.Pool)
	portfolioRepo := repository.NewPortfolioRepository(conn.Pool)
	assemblyRepo := repository.NewAssemblyRepository(conn.Pool)
	templateRepo := repository.NewTemplateRepository(conn)
	documentRepo := repository.NewDocumentRepository(conn.Pool)
	ingestionLogRepo := repository.NewIngestionLogRepository(conn.Pool)

	// Create services
	docgenService := docgen.NewService(templateRepo, documentRepo, fundRepo, profileRepo,
		docgen.WithLogger(logger))
	ingestionService := ingestion.NewService(fundRepo, profileRepo, ingestionLogRepo)
	exportService := export.NewService(fundRepo, profileRepo,
		export.WithSignSecret(cfg.Export.SignSecret),
		export.WithDownloadTokenTTL(cfg.Export.LinkTTL),
		export.WithLogger(logger))

	mailer, err := notify.NewSendGridMailer(logger, notify.MailerConfig{
		APIKey:    cfg.Mail.APIKey,
		FromEmail: cfg.Mail.FromEmail,
		FromName:  cfg.Mail.FromName,
	})
	if err != nil {
		logger.Warn("mailer disabled", "error", err)
	}
	var notifyService *notify.Service
	if mailer != nil {
		notifyService = notify.NewService(assemblyRepo, fundRepo, profileRepo, mailer,
			notify.WithNoticeWindow(cfg.Notify.WindowDays),
			notify.WithLogger(logger))
	}

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Mount per-feature handlers
	mux := http.NewServeMux()
	mux.Handle("/api/v1/auth/", portal.NewAuthHandler(profileRepo, issuer))
	mux.Handle("/api/v1/profiles", portal.NewProfileHandler(profileRepo))
	mux.Handle("/api/v1/profiles/", portal.NewProfileHandler(profileRepo))
	mux.Handle("/api/v1/funds", portal.NewFundHandler(fundRepo))
	mux.Handle("/api/v1/funds/", portal.NewFundHandler(fundRepo))
	mux.Handle("/api/v1/companies", portal.NewPortfolioHandler(portfolioRepo))
	mux.Handle("/api/v1/companies/", portal.NewPortfolioHandler(portfolioRepo))
	mux.Handle("/api/v1/investments", portal.NewPortfolioHandler(portfolioRepo))
	mux.Handle("/api/v1/investments/", portal.NewPortfolioHandler(portfolioRepo))
	mux.Handle("/api/v1/assemblies", portal.NewAssemblyHandler(assemblyRepo, notifyService))
	mux.Handle("/api/v1/assemblies/", portal.NewAssemblyHandler(assemblyRepo, notifyService))
	mux.Handle("/api/v1/documents/", docgen.NewHTTPHandler(docgenService))
	mux.Handle("/api/v1/ingestion", ingestion.NewHTTPHandler(ingestionService))
	mux.Handle("/api/v1/ingestion/", ingestion.NewHTTPHandler(ingestionService))
	mux.Handle("/api/v1/exports/", export.NewHTTPHandler(exportService))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := corsHandler.Handler(
		middleware.LoggingMiddleware(logger)(
			auth.Middleware(issuer)(mux),
		),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the assembly notice sweep
	var scheduler *notify.Scheduler
	if notifyService != nil {
		scheduler, err = notify.NewScheduler(notifyService, cfg.Notify.CronSpec, logger)
		if err != nil {
			logger.Fatal("failed to schedule notice sweep", "error", err)
		}
		scheduler.Start()
	}

	// Start server in a goroutine
	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
