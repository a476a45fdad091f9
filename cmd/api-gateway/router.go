package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/curso-asistencia-api/internal/handler"
	"github.com/noah-isme/curso-asistencia-api/internal/middleware"
	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/internal/service"
	"github.com/noah-isme/curso-asistencia-api/pkg/config"
	"github.com/noah-isme/curso-asistencia-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/curso-asistencia-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/curso-asistencia-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth       *service.AuthService
	metrics    *service.MetricsService
	checks     map[string]handler.ReadinessCheck
	courses    *service.CourseService
	enrollment *service.EnrollmentService
	attendance *service.AttendanceService
	reports    *service.ReportService
	exports    *service.ExportJobService
	catalog    *service.CatalogService
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics, "/metrics"))

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(deps.auth)
	courseHandler := handler.NewCourseHandler(deps.courses, deps.enrollment)
	catalogHandler := handler.NewCatalogHandler(deps.catalog)
	enrollmentHandler := handler.NewEnrollmentHandler(deps.enrollment)
	attendanceHandler := handler.NewAttendanceHandler(deps.attendance)
	reportHandler := handler.NewReportHandler(deps.reports, deps.exports)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	api.POST("/auth/admin", authHandler.Login)
	api.GET("/courses/active", courseHandler.Active)
	api.GET("/courses/:id/seats", courseHandler.Seats)
	api.GET("/regions", catalogHandler.Regions)
	api.GET("/regions/:region/communes", catalogHandler.Communes)
	api.POST("/enrollments", enrollmentHandler.Register)
	api.GET("/participants/:rut/sessions-today", attendanceHandler.SessionsToday)
	api.POST("/attendance", middleware.OptionalJWT(deps.auth), attendanceHandler.Mark)
	api.GET("/export/:token", reportHandler.Download)

	admin := api.Group("")
	admin.Use(middleware.JWT(deps.auth), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/courses", courseHandler.List)
	admin.POST("/courses", middleware.Audit(logr, "course.create"), courseHandler.Create)
	admin.PUT("/courses/:id/activate", middleware.Audit(logr, "course.activate"), courseHandler.Activate)
	admin.GET("/enrollments", enrollmentHandler.List)
	admin.GET("/enrollments/history", enrollmentHandler.History)
	admin.GET("/attendance", attendanceHandler.List)
	admin.DELETE("/attendance/:id", middleware.Audit(logr, "attendance.delete"), attendanceHandler.Delete)
	admin.GET("/reports/courses/:id", reportHandler.CourseReport)
	admin.POST("/reports/courses/:id/exports", middleware.Audit(logr, "export.create"), reportHandler.CreateExport)
	admin.GET("/reports/exports/:jobId", reportHandler.ExportStatus)

	return r
}
