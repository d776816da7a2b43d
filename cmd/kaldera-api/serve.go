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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kaldera-app/backend/internal/config"
	"github.com/kaldera-app/backend/internal/handlers"
	"github.com/kaldera-app/backend/internal/logger"
	"github.com/kaldera-app/backend/internal/metrics"
	"github.com/kaldera-app/backend/internal/middleware"
	"github.com/kaldera-app/backend/internal/recompute"
	"github.com/kaldera-app/backend/internal/repository"
	"github.com/kaldera-app/backend/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API server and listen for requests.`,
	RunE:  runServe,
}

var (
	port string
)

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override port from flag if provided
	if port != "" {
		cfg.Server.Port = port
	}

	log := logger.NewSlogLogger(logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})
	logger.SetDefault(log)

	log.Info("starting kaldera API server",
		logger.String("env", cfg.Server.Env),
		logger.String("driver", cfg.Database.Driver),
		logger.String("aggregation_mode", cfg.Aggregation.Mode),
	)

	metrics.MustRegister()

	// Storage
	db, err := repository.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	eventRepo := repository.NewEventRepository(db)
	balanceRepo := repository.NewDailyBalanceRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	loc := cfg.Location()
	windows := service.WeightWindows{
		MorningStartHour: cfg.Aggregation.MorningWindowStart,
		MorningEndHour:   cfg.Aggregation.MorningWindowEnd,
		EveningStartHour: cfg.Aggregation.EveningWindowStart,
		EveningEndHour:   cfg.Aggregation.EveningWindowEnd,
	}

	// Services
	goalService := service.NewGoalService(goalRepo)
	balanceService := service.NewBalanceService(eventRepo, balanceRepo, goalService, loc, windows)
	rollupService := service.NewRollupService(eventRepo, goalService, loc, windows)
	profileService := service.NewProfileService(profileRepo,
		time.Duration(cfg.Aggregation.ProfileValidityDays)*24*time.Hour)

	coordinator := recompute.New(
		func(ctx context.Context, userID, date string) error {
			_, err := balanceService.RecomputeDay(ctx, userID, date)
			return err
		},
		recompute.Options{
			Mode:        cfg.Aggregation.Mode,
			Workers:     cfg.Aggregation.Workers,
			MaxAttempts: cfg.Aggregation.MaxAttempts,
		},
	)
	coordinator.Start()

	eventService := service.NewEventService(eventRepo, balanceService, coordinator, loc, cfg.Backfill.Concurrency)

	// Handlers
	eventHandler := handlers.NewEventHandler(eventService, cfg.Backfill.MaxBatchSize)
	balanceHandler := handlers.NewBalanceHandler(balanceService)
	rollupHandler := handlers.NewRollupHandler(rollupService)
	goalHandler := handlers.NewGoalHandler(goalService)
	profileHandler := handlers.NewProfileHandler(profileService)

	// Set Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"env":    cfg.Server.Env,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit())
	v1.Use(middleware.Idempotency(idempotencyRepo))
	{
		v1.POST("/events", eventHandler.CreateEvent)
		v1.POST("/events/batch", middleware.RateLimitBackfill(cfg.Backfill.RatePerMinute), eventHandler.CreateEventsBatch)

		v1.POST("/goals", goalHandler.CreateGoal)
		v1.PUT("/goals/:id", goalHandler.UpdateGoal)
		v1.POST("/goals/:id/deactivate", goalHandler.DeactivateGoal)

		v1.POST("/metabolic-profiles", profileHandler.CalculateProfile)

		users := v1.Group("/users/:user_id")
		{
			users.GET("/events", eventHandler.ListEvents)
			users.GET("/balance/:date", balanceHandler.GetBalance)
			users.POST("/balance/:date/recompute", balanceHandler.RecomputeBalance)
			users.POST("/recompute", balanceHandler.RecomputeRange)
			users.GET("/rollups", rollupHandler.GetRollups)
			users.GET("/goals/active", goalHandler.GetActiveGoal)
			users.GET("/goals", goalHandler.ListGoals)
			users.GET("/metabolic-profile", profileHandler.GetActiveProfile)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", logger.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info("shutting down", logger.String("signal", sig.String()))
	}

	// Stop accepting requests, then drain pending recomputes so no
	// accepted event is left without its balance rebuild.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Err(err))
	}
	if err := coordinator.Drain(shutdownCtx); err != nil {
		log.Error("recompute drain incomplete", logger.Err(err))
		return err
	}

	log.Info("shutdown complete")
	return nil
}
