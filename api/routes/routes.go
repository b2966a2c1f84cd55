package routes

import (
	"net/http"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/config"
	"github.com/ArowuTest/raffle-backend/internal/handlers"
	"github.com/ArowuTest/raffle-backend/internal/middleware"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HandlerDependencies holds every handler the router mounts
type HandlerDependencies struct {
	AuthHandler           *handlers.AuthHandler
	RaffleHandler         *handlers.RaffleHandler
	TicketHandler         *handlers.TicketHandler
	WinnerHandler         *handlers.WinnerHandler
	SystemSettingsHandler *handlers.SystemSettingsHandler
	ProofHandler          *handlers.ProofHandler
}

// RouterDependencies holds the cross-cutting collaborators of the router
type RouterDependencies struct {
	Tokens      middleware.TokenParser
	RateLimiter *middleware.RateLimiter
	Gatherer    prometheus.Gatherer
	Logger      *zap.Logger
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, h HandlerDependencies, deps RouterDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(deps.Logger.Named("http")))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		public.POST("/auth/login", h.AuthHandler.Login)

		public.GET("/raffles", h.RaffleHandler.ListRaffles)
		public.GET("/raffles/:id", h.RaffleHandler.GetRaffle)
		public.GET("/raffles/:id/available", h.RaffleHandler.GetAvailableTickets)
		public.GET("/raffles/:id/quote", h.RaffleHandler.QuotePurchase)
		public.GET("/winners", h.WinnerHandler.ListWinners)
		public.GET("/exchange-rate", h.SystemSettingsHandler.GetExchangeRate)
	}

	// Buyer routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(deps.Tokens, deps.Logger))
	{
		purchase := []gin.HandlerFunc{h.TicketHandler.PurchaseTickets}
		if deps.RateLimiter != nil {
			purchase = append([]gin.HandlerFunc{deps.RateLimiter.Handler()}, purchase...)
		}
		protected.POST("/raffles/:id/purchase", purchase...)
		protected.GET("/me/tickets", h.TicketHandler.GetMyTickets)
		if h.ProofHandler != nil {
			protected.POST("/payment-proofs", h.ProofHandler.UploadProof)
		}
	}

	// Admin routes
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware(deps.Tokens, deps.Logger), middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/raffles", h.RaffleHandler.CreateRaffle)
		admin.PUT("/raffles/:id/status", h.RaffleHandler.SetRaffleStatus)
		admin.POST("/raffles/:id/winner", h.WinnerHandler.RecordWinner)
		admin.GET("/payments/pending", h.TicketHandler.ListPendingPayments)
		admin.POST("/tickets/:id/confirm", h.TicketHandler.ConfirmTicket)
		admin.POST("/tickets/:id/fail", h.TicketHandler.FailTicket)
		admin.POST("/winners/:id/claim", h.WinnerHandler.ClaimWinner)
		admin.PUT("/exchange-rate", h.SystemSettingsHandler.UpdateExchangeRate)
	}

	return router
}
