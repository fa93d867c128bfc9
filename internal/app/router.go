// internal/app/router.go
package app

import (
	agencyHandler "qg-chatting-service/internal/handlers/agency"
	billingHandler "qg-chatting-service/internal/handlers/billing"
	cronHandler "qg-chatting-service/internal/handlers/cron"
	invitationHandler "qg-chatting-service/internal/handlers/invitation"
	notificationHandler "qg-chatting-service/internal/handlers/notification"
	onboardingHandler "qg-chatting-service/internal/handlers/onboarding"
	planHandler "qg-chatting-service/internal/handlers/plans"
	sessionHandler "qg-chatting-service/internal/handlers/session"
	tenantdomainHandler "qg-chatting-service/internal/handlers/tenantdomain"
	wsHandler "qg-chatting-service/internal/handlers/ws"
	"qg-chatting-service/internal/middleware"
	"qg-chatting-service/internal/service/access"
	healthUsecase "qg-chatting-service/internal/service/health"

	"qg-chatting-service/internal/domain/tenant"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	OnboardingHandler   *onboardingHandler.OnboardingHandler
	DomainHandler       *tenantdomainHandler.DomainHandler
	AgencyHandler       *agencyHandler.AgencyHandler
	InvitationHandler   *invitationHandler.InvitationHandler
	BillingHandler      *billingHandler.BillingHandler
	PlanHandler         *planHandler.PlanHandler
	SessionHandler      *sessionHandler.SessionHandler
	CronHandler         *cronHandler.CronHandler
	NotificationHandler *notificationHandler.NotificationHandler
	WSHandler           *wsHandler.WSHandler
	HealthService       *healthUsecase.Service
	AuthMiddleware      *middleware.AuthMiddleware
	AccessGate          *middleware.AccessGate
	RoleMiddleware      *middleware.RoleMiddleware
	CronSecret          string
	ProvisioningSecret  string
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		if err := h.HealthService.Ping(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.AuthMiddleware.Auth(), h.WSHandler.Connect)

	// ==================== Onboarding ====================
	onboarding := api.Group("/onboarding")
	onboarding.Use(h.AuthMiddleware.Auth())
	{
		onboarding.POST("/owner", h.OnboardingHandler.OnboardOwner)
		onboarding.GET("/status", h.OnboardingHandler.Status)
	}

	// ==================== Agency ====================
	// The status poll also serves unauthenticated onboarding pages, so the
	// bearer token is optional; the handler degrades to a limited view.
	agency := api.Group("/agency")
	agency.Use(h.AuthMiddleware.OptionalAuth())
	{
		agency.GET("/status", h.AgencyHandler.Status)
	}

	// ==================== Internal: domain repair ====================
	tenants := api.Group("/tenants")
	tenants.Use(middleware.SharedSecret("X-Provisioning-Secret", h.ProvisioningSecret))
	{
		tenants.POST("/domains", h.DomainHandler.ProvisionDomain)
	}

	// ==================== Invitations ====================
	invitations := api.Group("/invitations")
	invitations.Use(h.AuthMiddleware.Auth())
	{
		// Accept is tenant-agnostic: the token itself names the tenant.
		invitations.POST("/accept", h.InvitationHandler.Accept)

		manage := invitations.Group("")
		manage.Use(
			h.AccessGate.Gate(access.Options{}),
			h.RoleMiddleware.RequireRole(tenant.RoleOwner, tenant.RoleAdmin),
		)
		{
			manage.POST("", h.InvitationHandler.Create)
			manage.DELETE("/:id", h.InvitationHandler.Revoke)
			manage.POST("/:id/resend", h.InvitationHandler.Resend)
		}
	}

	// ==================== Plans ====================
	plans := api.Group("/plans")
	{
		plans.GET("/public", h.PlanHandler.ListPublic)
	}

	// ==================== Billing ====================
	billing := api.Group("/billing")
	{
		// Gateway callback authenticates by signature, not bearer token.
		billing.POST("/webhook", h.BillingHandler.Webhook)

		checkout := billing.Group("")
		checkout.Use(
			h.AuthMiddleware.Auth(),
			h.AccessGate.Gate(access.Options{RequireOwner: true}),
		)
		{
			checkout.POST("/checkout", h.BillingHandler.Checkout)
		}
	}

	// ==================== Session bridge ====================
	sessions := api.Group("/session")
	{
		sessions.GET("/restore", h.SessionHandler.Restore)

		authed := sessions.Group("")
		authed.Use(h.AuthMiddleware.Auth())
		{
			authed.POST("/sync", h.SessionHandler.Sync)
			authed.POST("/clear", h.SessionHandler.Clear)
		}
	}

	// ==================== Notifications ====================
	notifications := api.Group("/notifications")
	notifications.Use(h.AuthMiddleware.Auth())
	{
		notifications.GET("", h.NotificationHandler.List)
		notifications.PUT("/:id/read", h.NotificationHandler.MarkRead)
	}

	// ==================== Cron ====================
	cron := api.Group("/cron")
	cron.Use(middleware.SharedSecret("X-Cron-Secret", h.CronSecret))
	{
		cron.POST("/subscriptions/notify-expiring", h.CronHandler.NotifyExpiring)
		cron.POST("/subscriptions/check-expired", h.CronHandler.CheckExpired)
		cron.POST("/agencies/cleanup-unpaid", h.CronHandler.CleanupUnpaid)
	}
}
