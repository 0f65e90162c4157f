package http

import (
	"context"
	"fmt"
	"net/http"

	handlers "github.com/fetanpay/paylink/internal/adapter/handler/http"
	"github.com/fetanpay/paylink/internal/config"
	"github.com/fetanpay/paylink/internal/infrastructure/crypto"
	"github.com/fetanpay/paylink/internal/infrastructure/database"
	"github.com/fetanpay/paylink/internal/middleware/auth"
	"github.com/fetanpay/paylink/internal/usecase"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// requestValidator adapts go-playground/validator to echo's Validator
// interface.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

type Server struct {
	config     *config.Config
	logger     *zap.Logger
	echo       *echo.Echo
	repos      *database.Repositories
	cipher     crypto.CredentialCipher
	ledger     *usecase.Ledger
	ingest     *usecase.WebhookIngest
	reconciler *usecase.Reconciler
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	repos *database.Repositories,
	cipher crypto.CredentialCipher,
	ledger *usecase.Ledger,
	ingest *usecase.WebhookIngest,
	reconciler *usecase.Reconciler,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:     cfg,
		logger:     logger,
		echo:       e,
		repos:      repos,
		cipher:     cipher,
		ledger:     ledger,
		ingest:     ingest,
		reconciler: reconciler,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Initialize handlers
	checkoutHandler := handlers.NewCheckoutHandler(s.ledger, s.logger)
	webhookHandler := handlers.NewWebhookHandler(s.ingest, s.logger)
	transactionHandler := handlers.NewTransactionHandler(s.ledger, s.reconciler, s.repos.WebhookReceipt, s.logger)
	providerHandler := handlers.NewProviderHandler(s.repos.Merchant, s.cipher, s.ledger, s.logger)
	linkHandler := handlers.NewLinkHandler(s.repos.PaymentLink, s.logger)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.Service.JWTSecret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhooks",
		},
	}

	// Provider callbacks (outside API versioning, no authentication)
	s.echo.POST("/webhooks/:provider", webhookHandler.Receive)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Public routes (no authentication required)
	// Hosted checkout entry point for anonymous payers
	v1.POST("/links/:id/checkout", checkoutHandler.OpenCheckout)

	// Protected routes (require JWT authentication)
	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	// Merchant-initiated checkout against own link
	protected.POST("/checkout", checkoutHandler.OpenTransaction)

	// Payment link creation
	protected.POST("/links", linkHandler.CreateLink)

	// Transaction routes
	protected.GET("/transactions/:reference", transactionHandler.GetTransaction)
	protected.GET("/links/:id/transactions", transactionHandler.ListLinkTransactions)
	protected.POST("/transactions/:reference/reconcile", transactionHandler.ReconcileTransaction)

	// Operator audit surface
	protected.GET("/webhooks/unprocessed", transactionHandler.ListUnprocessedReceipts)

	// Provider onboarding and payouts
	protected.POST("/providers/:provider/connect", providerHandler.ConnectProvider)
	protected.DELETE("/providers/:provider", providerHandler.DisconnectProvider)
	protected.POST("/payouts", providerHandler.Payout)
}
