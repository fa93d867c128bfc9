// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"

	"qg-chatting-service/internal/adapter/edgehost"
	"qg-chatting-service/internal/adapter/identity"
	"qg-chatting-service/internal/adapter/payment"
	"qg-chatting-service/internal/adapter/registrar"
	"qg-chatting-service/internal/config"
	"qg-chatting-service/internal/db"
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
	"qg-chatting-service/internal/pkg/jwt"
	"qg-chatting-service/internal/pkg/session"
	"qg-chatting-service/internal/repository/postgres"
	accessUsecase "qg-chatting-service/internal/service/access"
	billingUsecase "qg-chatting-service/internal/service/billing"
	healthUsecase "qg-chatting-service/internal/service/health"
	invitationUsecase "qg-chatting-service/internal/service/invitation"
	lifecycleUsecase "qg-chatting-service/internal/service/lifecycle"
	provisioningUsecase "qg-chatting-service/internal/service/provisioning"
	"qg-chatting-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New()}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	var logger *zap.Logger
	var err error
	if s.cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.RunMigrations(s.cfg.DatabaseURL, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// ----- Identity verifier -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load identity public key: %w", err)
	}

	// ----- Adapters -----
	identityClient := identity.NewClient(identity.Config{
		AdminURL: s.cfg.IdentityAdminURL,
		AdminKey: s.cfg.IdentityAdminKey,
		Timeout:  s.cfg.AdapterTimeout,
	}, verifier, logger)
	registrarClient := registrar.NewClient(registrar.Config{
		BaseURL: s.cfg.RegistrarBaseURL,
		KeyID:   s.cfg.RegistrarKeyID,
		Secret:  s.cfg.RegistrarSecret,
		Timeout: s.cfg.AdapterTimeout,
	}, logger)
	edgeHostClient := edgehost.NewClient(edgehost.Config{
		BaseURL:   s.cfg.EdgeHostBaseURL,
		ProjectID: s.cfg.EdgeHostProjectID,
		Token:     s.cfg.EdgeHostToken,
		Timeout:   s.cfg.AdapterTimeout,
	}, logger)
	paymentClient := payment.NewClient(payment.Config{
		BaseURL:       s.cfg.PaymentBaseURL,
		StoreID:       s.cfg.PaymentStoreID,
		APIKey:        s.cfg.PaymentAPIKey,
		WebhookSecret: s.cfg.PaymentWebhookSecret,
		Timeout:       s.cfg.AdapterTimeout,
	}, logger)

	// ----- Session bridge & rate limiter -----
	bridge := session.NewBridge(redisClient, s.cfg.SessionTTL)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	tenantRepo := postgres.NewTenantRepository(pool)
	membershipRepo := postgres.NewMembershipRepository(pool)
	roleRepo := postgres.NewRoleRepository(pool)
	invitationRepo := postgres.NewInvitationRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	planRepo := postgres.NewPlanRepository(pool)
	billingRepo := postgres.NewBillingRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)

	// ----- WebSocket hub -----
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// ----- Services -----
	provisioningService := provisioningUsecase.NewService(
		tenantRepo,
		membershipRepo,
		roleRepo,
		edgeHostClient,
		registrarClient,
		identityClient,
		s.cfg.RootDomain,
		s.cfg.RegistrarZone,
		s.cfg.AppBaseURL,
		logger,
	)
	statusTracker := provisioningUsecase.NewRedisStatusTracker(redisClient)
	provisioningService.
		WithStatusTracker(statusTracker).
		WithNotifier(notificationRepo, hub)
	accessService := accessUsecase.NewService(tenantRepo, membershipRepo, subscriptionRepo, logger)
	invitationService := invitationUsecase.NewService(
		invitationRepo,
		membershipRepo,
		roleRepo,
		tenantRepo,
		dbWrapper,
		logger,
	)
	billingService := billingUsecase.NewService(
		billingRepo,
		subscriptionRepo,
		planRepo,
		paymentClient,
		dbWrapper,
		logger,
	)
	lifecycleService := lifecycleUsecase.NewService(
		subscriptionRepo,
		tenantRepo,
		membershipRepo,
		notificationRepo,
		hub,
		logger,
	)
	healthService := healthUsecase.NewService(pool, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(identityClient)
	accessGate := middleware.NewAccessGate(accessService, s.cfg.RootDomain, logger)
	roleMiddleware := middleware.NewRoleMiddleware(roleRepo)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.RootDomain),
	)

	// ----- Router -----
	handlers := &Handlers{
		OnboardingHandler:   onboardingHandler.NewOnboardingHandler(provisioningService, statusTracker),
		DomainHandler:       tenantdomainHandler.NewDomainHandler(provisioningService),
		AgencyHandler:       agencyHandler.NewAgencyHandler(accessService, healthService, s.cfg.RootDomain),
		InvitationHandler:   invitationHandler.NewInvitationHandler(invitationService, rateLimiter),
		BillingHandler:      billingHandler.NewBillingHandler(billingService, logger),
		PlanHandler:         planHandler.NewPlanHandler(planRepo),
		SessionHandler:      sessionHandler.NewSessionHandler(bridge, rateLimiter, s.cfg.RootDomain, s.cfg.SecureCookies),
		CronHandler:         cronHandler.NewCronHandler(lifecycleService),
		NotificationHandler: notificationHandler.NewNotificationHandler(notificationRepo),
		WSHandler:           wsHandler.NewWSHandler(hub, logger),
		HealthService:       healthService,
		AuthMiddleware:      authMiddleware,
		AccessGate:          accessGate,
		RoleMiddleware:      roleMiddleware,
		CronSecret:          s.cfg.CronSecret,
		ProvisioningSecret:  s.cfg.ProvisioningSecret,
	}
	SetupRouter(s.engine, logger, handlers)

	log.Printf("🚀 Server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}
