// Package api wires the HTTP surface: the gin engine, the middleware chain,
// and the JSON handlers in front of the services. Handlers translate between
// wire format and service inputs; everything else lives below.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/centsible-app/centsible/internal/auth"
	"github.com/centsible-app/centsible/internal/config"
	"github.com/centsible-app/centsible/internal/middleware"
	"github.com/centsible-app/centsible/internal/service"
)

// version reported by the health endpoint.
const version = "1.0.0"

// Dependencies collects what the router needs. The caller builds the store,
// authenticator, and services; the router owns the handlers and middleware.
type Dependencies struct {
	Config        *config.Config
	JWTManager    *auth.JWTManager
	Authenticator auth.Authenticator
	Users         auth.UserStorage
	Groups        *service.GroupService
	Settlements   *service.SettlementService
}

// NewRouter assembles the gin engine with the full route table.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// gin.New instead of gin.Default: the request logger below replaces
	// gin's own.
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(deps.Config.Server.AllowedOrigins))

	authHandler := NewAuthHandler(deps.Authenticator, deps.JWTManager, deps.Users)
	groupHandler := NewGroupHandler(deps.Groups)
	settlementHandler := NewSettlementHandler(deps.Settlements)

	r.GET("/ping", ping)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", middleware.RequireAuth(deps.JWTManager), authHandler.Me)
	}

	apiRoutes := r.Group("/api")
	apiRoutes.Use(middleware.RequireAuth(deps.JWTManager))
	{
		apiRoutes.POST("/groups", groupHandler.Create)
		apiRoutes.GET("/groups", groupHandler.List)
		apiRoutes.GET("/groups/:id", groupHandler.Get)
		apiRoutes.POST("/groups/join", groupHandler.Join)
		apiRoutes.GET("/groups/:id/balances", settlementHandler.GroupBalances)
		apiRoutes.GET("/groups/:id/expenses", settlementHandler.GroupExpenses)
		apiRoutes.GET("/groups/:id/payments", settlementHandler.GroupPayments)

		apiRoutes.POST("/expenses", settlementHandler.CreateExpense)
		apiRoutes.POST("/payments", settlementHandler.CreatePayment)

		apiRoutes.GET("/balance", settlementHandler.UserBalance)
		apiRoutes.GET("/activity", settlementHandler.Activity)

		apiRoutes.POST("/receipts/parse", ParseReceipt)
	}

	return r
}

// ping is the liveness probe.
func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Centsible API is running",
		"version": version,
	})
}
