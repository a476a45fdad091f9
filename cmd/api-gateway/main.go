package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/curso-asistencia-api/api/swagger"
	"github.com/noah-isme/curso-asistencia-api/internal/catalog"
	"github.com/noah-isme/curso-asistencia-api/internal/repository"
	"github.com/noah-isme/curso-asistencia-api/internal/service"
	"github.com/noah-isme/curso-asistencia-api/pkg/cache"
	"github.com/noah-isme/curso-asistencia-api/pkg/config"
	"github.com/noah-isme/curso-asistencia-api/pkg/jobs"
	"github.com/noah-isme/curso-asistencia-api/pkg/logger"
	"github.com/noah-isme/curso-asistencia-api/pkg/storage"
)

// @title Curso Asistencia API
// @version 1.0.0
// @description Course enrollment, attendance and reporting service
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	defer app.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
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
}

type application struct {
	router  *gin.Engine
	backend *backend
	queue   *jobs.Queue
}

func (a *application) close() {
	a.queue.Stop()
	a.backend.Close()
}

func build(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*application, error) {
	loc, err := time.LoadLocation(cfg.Courses.Timezone)
	if err != nil {
		logr.Warn("unknown TIMEZONE, falling back to UTC", zap.String("timezone", cfg.Courses.Timezone), zap.Error(err))
		loc = time.UTC
	}
	clock := service.Clock{Location: loc}

	metricsSvc := service.NewMetricsService()
	validate := service.NewValidator()

	be, err := openBackend(ctx, cfg, logr)
	if err != nil {
		return nil, err
	}
	store := service.NewInstrumentedStore(be.store, metricsSvc)

	cacheSvc := service.NewCacheService(nil, metricsSvc, cfg.Reports.CacheTTL, logr, false)
	if cfg.Reports.CacheEnabled {
		client := be.redis
		if client == nil {
			client, err = cache.NewRedis(cfg.Redis)
			if err != nil {
				be.Close()
				return nil, err
			}
			be.redis = client
		}
		be.checks["cache"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		cacheRepo := repository.NewCacheRepository(client, "curso:", logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, true)
	}

	cat, err := catalog.Load()
	if err != nil {
		be.Close()
		return nil, err
	}

	authSvc, err := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		PasswordHash:      cfg.Admin.PasswordHash,
		Password:          cfg.Admin.Password,
	})
	if err != nil {
		be.Close()
		return nil, err
	}

	courseSvc := service.NewCourseService(store, validate, logr, cfg.Courses.DefaultMaxSeats)
	enrollmentSvc := service.NewEnrollmentService(store, courseSvc, cacheSvc, metricsSvc, validate, logr, service.EnrollmentConfig{
		EnforceRegistrationWindow: cfg.Courses.EnforceRegistrationWindow,
		Clock:                     clock,
	})
	if be.changes != nil {
		enrollmentSvc.UseChangeLog(be.changes)
	}
	attendanceSvc := service.NewAttendanceService(store, courseSvc, cacheSvc, metricsSvc, validate, logr, clock)
	reportSvc := service.NewReportService(store, courseSvc, cacheSvc, logr, service.ReportConfig{
		ApprovalThreshold: cfg.Courses.ApprovalThreshold,
		CacheTTL:          cfg.Reports.CacheTTL,
		Clock:             clock,
	})

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		be.Close()
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(reportSvc, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, nil)

	jobRepo := exportJobStore(be)
	worker := service.NewExportWorker(jobRepo, exportSvc, metricsSvc, logr)

	// The queue and the job service reference each other through OnExhausted.
	var exportJobs *service.ExportJobService
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
		OnExhausted: func(job jobs.Job, cause error) {
			exportJobs.Fail(job, cause)
		},
	})
	exportJobs = service.NewExportJobService(jobRepo, courseSvc, queue, exportSvc, metricsSvc, validate, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	queue.Start(ctx)
	exportJobs.StartCleanup(ctx)

	router := newRouter(cfg, logr, routerDeps{
		auth:       authSvc,
		metrics:    metricsSvc,
		checks:     be.checks,
		courses:    courseSvc,
		enrollment: enrollmentSvc,
		attendance: attendanceSvc,
		reports:    reportSvc,
		exports:    exportJobs,
		catalog:    service.NewCatalogService(cat),
	})

	return &application{router: router, backend: be, queue: queue}, nil
}
