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
	"github.com/sirupsen/logrus"

	"sparkshare-api/config"
	"sparkshare-api/database"
	"sparkshare-api/jobs"
	"sparkshare-api/metrics"
	"sparkshare-api/middleware"
	"sparkshare-api/repositories"
	"sparkshare-api/repositories/memory"
	"sparkshare-api/routes"
	"sparkshare-api/services"
	"sparkshare-api/sparks/shortsaver"
	"sparkshare-api/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

	store, err := openStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open store")
	}

	// Services
	identity := services.ContextIdentity{}
	notifier := services.NewInvitationNotifier(cfg, log)
	users := services.NewUserService(store.Users, identity, log)
	friends := services.NewFriendService(store, identity, notifier, log)
	shares := services.NewShareService(store, friends, identity, services.ShareServiceOptions{
		RequireFriendship: cfg.ShareRequireFriendship,
	}, log)
	registry := services.NewSparkRegistry(shares, log)
	shortSaver := shortsaver.New(registry, identity, log)

	statsJob, err := jobs.NewMailboxStatsJob(store, cfg.StatsSchedule, cfg.RequestTimeout, nil, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to schedule mailbox stats job")
	}
	statsJob.Start()
	defer statsJob.Stop()

	gin.SetMode(cfg.GinMode)

	// Create router
	router := gin.New()
	router.Use(
		gin.Recovery(),
		routes.SetupCORS(),
		middleware.SecurityHeaders(),
		middleware.RequestLogger(log),
		metrics.Middleware(),
		middleware.ErrorHandler(log),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	routes.SetupRoutes(ctx, router, routes.Dependencies{
		Config:     cfg,
		Log:        log,
		Users:      users,
		Friends:    friends,
		Shares:     shares,
		Registry:   registry,
		ShortSaver: shortSaver,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Starting SparkShare API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}

func openStore(cfg *config.Config, log *logrus.Logger) (repositories.Store, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("Using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	}

	db, err := database.Initialize(cfg.DatabaseURL, log)
	if err != nil {
		return repositories.Store{}, err
	}
	if err := database.Migrate(db, log); err != nil {
		return repositories.Store{}, err
	}
	return repositories.NewGormStore(db), nil
}
