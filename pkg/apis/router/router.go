package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sukryu/gqpanel/pkg/apis/handlers"
	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/controllers"
	"github.com/sukryu/gqpanel/pkg/middleware"
	"github.com/sukryu/gqpanel/pkg/store/schema"
	"github.com/sukryu/gqpanel/pkg/utils/jwt"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether the database is reachable.
type HealthCheck func(ctx context.Context) error

type Router struct {
	authHandler   *handlers.AuthHandler
	panelHandler  *handlers.PanelHandler
	airlineREST   *handlers.RESTHandler
	storeREST     *handlers.RESTHandler
	reportHandler *handlers.ReportHandler
	auditHandler  *handlers.AuditHandler
	backupHandler *handlers.BackupHandler

	jwtManager     *jwt.JWTManager
	rbacController controllers.RBACController
	health         HealthCheck
	logger         *zap.Logger
}

// Deps bundles what the router wires into handlers.
type Deps struct {
	Auth    controllers.AuthController
	Airline controllers.CRUDController
	Store   controllers.CRUDController
	Reports controllers.ReportController
	Audit   handlers.AuditReader
	Backups controllers.BackupController
	RBAC    controllers.RBACController
	JWT     *jwt.JWTManager
	Health  HealthCheck
	Logger  *zap.Logger
}

func NewRouter(d Deps) *Router {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		authHandler:    handlers.NewAuthHandler(d.Auth, d.JWT),
		panelHandler:   handlers.NewPanelHandler(d.Airline, logger),
		airlineREST:    handlers.NewRESTHandler(d.Airline, schema.Airline(), ""),
		storeREST:      handlers.NewRESTHandler(d.Store, schema.Coral(), schema.CoralTablePrefix),
		reportHandler:  handlers.NewReportHandler(d.Reports),
		auditHandler:   handlers.NewAuditHandler(d.Audit, schema.Airline()),
		backupHandler:  handlers.NewBackupHandler(d.Backups, logger),
		jwtManager:     d.JWT,
		rbacController: d.RBAC,
		health:         d.Health,
		logger:         logger,
	}
}

func (r *Router) healthz(c *gin.Context) {
	if r.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := r.health(ctx); err != nil {
			r.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) Setup() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(r.logger))
	router.Use(middleware.ErrorMiddleware(r.logger))

	router.GET("/healthz", r.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes
	router.POST("/api/v1/auth/login", r.authHandler.Login)

	authenticated := router.Group("/")
	authenticated.Use(middleware.JWTAuth(r.jwtManager, r.rbacController))

	auth := authenticated.Group("/api/v1/auth")
	{
		auth.GET("/me", r.authHandler.Me)
		auth.PUT("/password", r.authHandler.ChangePassword)
	}

	for _, role := range []string{v1alpha1.RoleAdmin, v1alpha1.RoleManager} {
		panel := authenticated.Group(handlers.PanelPath(&v1alpha1.Principal{Role: role}))
		panel.Use(middleware.RequireRole(role))
		{
			panel.GET("", r.panelHandler.Home)
			panel.POST("/crud", r.panelHandler.Crud)
			panel.GET("/list", r.panelHandler.List)
			panel.GET("/record", r.panelHandler.Record)
			panel.GET("/options", r.panelHandler.Options)
		}
	}

	audit := authenticated.Group("/api/v1/audit")
	audit.Use(middleware.RequireAccess(r.rbacController, v1alpha1.VerbList, string(schema.KindAuditLog), v1alpha1.GroupAirline))
	{
		audit.GET("", r.auditHandler.List)
		audit.GET("/:table/:key", r.auditHandler.History)
	}

	r.storeREST.Register(authenticated.Group("/api/v1/store"))
	r.airlineREST.Register(authenticated.Group("/api/v1"))

	reports := authenticated.Group("/reports")
	reports.Use(middleware.RequireAccess(r.rbacController, v1alpha1.VerbList, "*", v1alpha1.GroupReports))
	{
		reports.GET("/flights", r.reportHandler.Flights)
		reports.GET("/flights/figures", r.reportHandler.FlightFigures)
		reports.GET("/flights/:id", r.reportHandler.Flight)
		reports.GET("/airports", r.reportHandler.Airports)
		reports.GET("/audit", r.reportHandler.AuditOperations)
		reports.GET("/users/:id/payments", r.reportHandler.UserPayments)
		reports.GET("/statistics", r.reportHandler.Statistics)
	}

	authenticated.GET("/manager/export/csv",
		middleware.RequireAccess(r.rbacController, v1alpha1.VerbExport, "statistics", v1alpha1.GroupReports),
		r.reportHandler.ExportCSV)

	admin := authenticated.Group("/admin")
	{
		admin.GET("/backup",
			middleware.RequireAccess(r.rbacController, v1alpha1.VerbBackup, controllers.ResourceDatabase, v1alpha1.GroupSystem),
			r.backupHandler.Backup)
		admin.POST("/restore",
			middleware.RequireAccess(r.rbacController, v1alpha1.VerbRestore, controllers.ResourceDatabase, v1alpha1.GroupSystem),
			r.backupHandler.Restore)
	}

	return router
}
