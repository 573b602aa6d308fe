package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollsys-api/internal/middleware"
	"github.com/noah-isme/enrollsys-api/internal/models"
	"github.com/noah-isme/enrollsys-api/internal/service"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Auth       *AuthHandler
	Enlistment *EnlistmentHandler
	Payment    *PaymentHandler
	Catalog    *CatalogHandler
	History    *HistoryHandler
	Window     *WindowHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts the API surface under the given prefix. Role
// gates here are the coarse first line; services enforce ownership and
// per-operation rules again.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authService *service.AuthService, metricsService *service.MetricsService) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.Use(middleware.Metrics(metricsService))

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)

		protected := auth.Group("")
		protected.Use(middleware.JWT(authService))
		protected.POST("/logout", h.Auth.Logout)
		protected.POST("/change-password", h.Auth.ChangePassword)
		protected.GET("/me", h.Auth.Me)
	}

	private := api.Group("")
	private.Use(middleware.JWT(authService))

	catalog := private.Group("/catalog")
	{
		catalog.GET("/subjects", h.Catalog.Subjects)
		catalog.GET("/categories", h.Catalog.Categories)
		catalog.GET("/programs", h.Catalog.Programs)
		catalog.GET("/school-years", h.Catalog.SchoolYears)
		catalog.GET("/semesters", h.Catalog.Semesters)
	}

	private.GET("/window", h.Window.Get)
	private.PUT("/window", middleware.RequireRoles(models.RoleFinance), h.Window.Update)

	enlistments := private.Group("/enlistments")
	{
		enlistments.POST("", middleware.RequireRoles(models.RoleStudent), h.Enlistment.Submit)
		enlistments.GET("", h.Enlistment.List)
		enlistments.GET("/:id", h.Enlistment.Detail)
		enlistments.POST("/:id/preapprove", middleware.RequireRoles(models.RoleAdviser), h.Enlistment.Preapprove)
		enlistments.POST("/:id/return", middleware.RequireRoles(models.RoleAdviser), h.Enlistment.Return)
		enlistments.POST("/:id/review", middleware.RequireRoles(models.RoleFinance), h.Enlistment.Review)
		enlistments.POST("/:id/final-approve", middleware.RequireRoles(models.RoleAdviser), h.Enlistment.FinalApprove)

		enlistments.PUT("/:id/payment/amounts", middleware.RequireRoles(models.RoleFinance), h.Payment.SetAmounts)
		enlistments.POST("/:id/payment/submit", middleware.RequireRoles(models.RoleStudent), h.Payment.Submit)
		enlistments.POST("/:id/payment/record", middleware.RequireRoles(models.RoleFinance), h.Payment.Record)
		enlistments.GET("/:id/payment/receipt", h.Payment.Receipt)

		enlistments.GET("/:id/history", h.History.ByEnlistment)
	}

	history := private.Group("/history")
	history.Use(middleware.RequireRoles(models.RoleAdviser, models.RoleFinance))
	{
		history.GET("", h.History.Recent)
		history.GET("/export", h.History.ExportCSV)
	}
}
