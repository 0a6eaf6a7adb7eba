package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/handler"
	"github.com/noah-isme/clinic-records-api/internal/middleware"
	"github.com/noah-isme/clinic-records-api/internal/models"
)

type routeDeps struct {
	apiPrefix       string
	workflowEnabled bool
	metricsEnabled  bool
	docsEnabled     bool

	tokens middleware.TokenValidator
	audit  middleware.AuditWriter
	logger *zap.Logger

	pendingActions *handler.PendingActionHandler
	alerts         *handler.AlertHandler
	thresholds     *handler.DiseaseThresholdHandler
	registration   *handler.RegistrationHandler
	duplicates     *handler.DuplicateHandler
	users          *handler.UserHandler
	visits         *handler.MedicalVisitHandler
	metrics        *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/health", d.metrics.Health)
	r.GET("/ready", d.metrics.Ready)
	if d.metricsEnabled {
		r.GET("/metrics", d.metrics.Prometheus)
	}
	if d.docsEnabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.apiPrefix)
	api.Use(middleware.WithResponseMeta(), middleware.JWT(d.tokens), middleware.RequireRoles(middleware.StaffRoles...))

	reviewers := middleware.RequireRoles(middleware.ReviewerRoles...)

	pending := api.Group("/pending-actions", middleware.FeatureGate("workflow", d.workflowEnabled))
	pending.POST("", d.pendingActions.Submit)
	pending.GET("", d.pendingActions.List)
	pending.GET("/:id", d.pendingActions.Get)
	pending.POST("/:id/approve", reviewers, d.pendingActions.Approve)
	pending.POST("/:id/reject", reviewers, d.pendingActions.Reject)
	pending.DELETE("/:id", d.pendingActions.Cancel)

	alerts := api.Group("/alerts")
	alerts.GET("", d.alerts.List)
	alerts.GET("/unread-count", d.alerts.UnreadCount)
	alerts.POST("/read-all", d.alerts.MarkAllRead)
	alerts.POST("/:id/read", d.alerts.MarkRead)
	alerts.POST("/:id/resolve", d.alerts.Resolve)
	alerts.DELETE("/:id",
		middleware.RequireRoles(models.RoleSuperAdmin),
		middleware.Audit(d.audit, d.logger, "ALERT_DELETE", "alert"),
		d.alerts.Delete)

	thresholds := api.Group("/disease-thresholds", reviewers)
	thresholds.GET("", d.thresholds.List)
	thresholds.PUT("", middleware.Audit(d.audit, d.logger, "DISEASE_THRESHOLD_UPSERT", "disease_threshold"), d.thresholds.Upsert)
	thresholds.PATCH("/:id/active", middleware.Audit(d.audit, d.logger, "DISEASE_THRESHOLD_TOGGLE", "disease_threshold"), d.thresholds.SetActive)
	thresholds.DELETE("/:id", middleware.Audit(d.audit, d.logger, "DISEASE_THRESHOLD_DELETE", "disease_threshold"), d.thresholds.Delete)

	api.POST("/students/register", reviewers, d.registration.Register)
	api.GET("/students/:id/duplicates", reviewers, d.duplicates.ListByStudent)
	api.GET("/students/:id/medical-visits", d.visits.ListByStudent)
	api.POST("/medical-visits", d.visits.Record)

	users := api.Group("/users", reviewers)
	users.POST("/:id/deactivate", d.users.Deactivate)
	users.DELETE("/:id", d.users.Delete)
}
