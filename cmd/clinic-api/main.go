package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/clinic-records-api/api/swagger"
	"github.com/noah-isme/clinic-records-api/internal/handler"
	internalmiddleware "github.com/noah-isme/clinic-records-api/internal/middleware"
	"github.com/noah-isme/clinic-records-api/internal/repository"
	"github.com/noah-isme/clinic-records-api/internal/service"
	"github.com/noah-isme/clinic-records-api/pkg/broker"
	"github.com/noah-isme/clinic-records-api/pkg/cache"
	"github.com/noah-isme/clinic-records-api/pkg/config"
	"github.com/noah-isme/clinic-records-api/pkg/database"
	"github.com/noah-isme/clinic-records-api/pkg/jobs"
	"github.com/noah-isme/clinic-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/clinic-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/clinic-records-api/pkg/middleware/requestid"
)

// @title Clinic Records API
// @version 1.0.0
// @description School clinic records, approval workflow and alerting
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Detectors.LockEnabled {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		redisClient, err = cache.NewRedis(pingCtx, cfg.Redis)
		cancel()
		if err != nil {
			// Detectors still de-duplicate through the alert store without the lock.
			logr.Warn("redis unavailable, detector lock disabled", zap.Error(err))
			redisClient = nil
		}
	}
	detectorLock := repository.NewDetectorLockRepository(redisClient, cfg.Detectors.LockTTL, logr)
	defer detectorLock.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	alertOpts := []service.AlertServiceOption{service.WithAlertMetrics(metricsSvc)}
	var alertQueue *jobs.Queue
	if cfg.Publisher.Enabled {
		publisher, err := broker.NewRabbitMQPublisher(cfg.Publisher.RabbitMQURL, cfg.Publisher.QueueName, logr)
		if err != nil {
			logr.Warn("rabbitmq unavailable, alert publication disabled", zap.Error(err))
		} else {
			defer publisher.Close() //nolint:errcheck
			alertQueue = jobs.NewQueue("alerts", service.AlertDeliveryHandler(publisher), jobs.QueueConfig{
				Workers:    cfg.Publisher.Workers,
				MaxRetries: cfg.Publisher.MaxRetries,
				RetryDelay: cfg.Publisher.RetryDelay,
				Logger:     logr,
			})
			alertQueue.Start(context.Background())
			alertOpts = append(alertOpts, service.WithAlertSink(service.NewAlertPublisher(alertQueue, logr)))
		}
	}

	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	visitRepo := repository.NewMedicalVisitRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	thresholdRepo := repository.NewDiseaseThresholdRepository(db)
	detectionRepo := repository.NewDuplicateDetectionRepository(db)
	pendingRepo := repository.NewPendingActionRepository(db)

	detectorCfg := service.DetectorConfig{
		DedupWindow: cfg.Alerts.DedupWindow,
		WindowDays:  cfg.Detectors.OutbreakWindowDays,
		Location:    cfg.Detectors.Location,
	}

	alertSvc := service.NewAlertService(alertRepo, logr, alertOpts...)
	thresholdSvc := service.NewDiseaseThresholdService(thresholdRepo, validate, logr, cfg.Alerts.DefaultWeeklyThreshold)
	duplicateDetector := service.NewDuplicateDetector(studentRepo, detectionRepo, alertSvc, logr)
	outbreakDetector := service.NewOutbreakDetector(thresholdSvc, visitRepo, alertSvc, detectorLock, logr, detectorCfg)
	trendDetector := service.NewTrendDetector(visitRepo, alertSvc, detectorLock, logr, detectorCfg)
	registrationSvc := service.NewRegistrationService(userRepo, studentRepo, tx, duplicateDetector, userRepo, validate, logr,
		service.WithRegistrationMetrics(metricsSvc))
	userAdminSvc := service.NewUserAdminService(userRepo, userRepo, logr)
	executor := service.NewActionExecutor(registrationSvc, userAdminSvc)
	pendingSvc := service.NewPendingActionService(pendingRepo, tx, executor, registrationSvc, alertSvc, userRepo, validate, logr,
		service.WithTransitionMetrics(metricsSvc))
	visitSvc := service.NewMedicalVisitService(visitRepo, studentRepo, thresholdSvc, outbreakDetector, trendDetector, validate, metricsSvc, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	registerRoutes(r, routeDeps{
		apiPrefix:       cfg.APIPrefix,
		workflowEnabled: cfg.Workflow.Enabled,
		metricsEnabled:  cfg.Metrics.Enabled,
		docsEnabled:     cfg.Env != config.EnvProduction,
		tokens:          tokenSvc,
		audit:           userRepo,
		logger:          logr,
		pendingActions:  handler.NewPendingActionHandler(pendingSvc),
		alerts:          handler.NewAlertHandler(alertSvc),
		thresholds:      handler.NewDiseaseThresholdHandler(thresholdSvc),
		registration:    handler.NewRegistrationHandler(registrationSvc),
		duplicates:      handler.NewDuplicateHandler(duplicateDetector),
		users:           handler.NewUserHandler(userAdminSvc),
		visits:          handler.NewMedicalVisitHandler(visitSvc),
		metrics:         handler.NewMetricsHandler(metricsSvc, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if alertQueue != nil {
		if err := alertQueue.Shutdown(shutdownCtx); err != nil {
			logr.Warn("alert queue drain incomplete", zap.Error(err))
		}
	}
}
