// Package server assembles the gin engine: middleware stack and routes.
package server

import (
	"time"

	"github.com/Baaaki/gameshelf/internal/dto"
	"github.com/Baaaki/gameshelf/internal/handler"
	"github.com/Baaaki/gameshelf/internal/metrics"
	"github.com/Baaaki/gameshelf/internal/middleware"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the collaborators the routes are served by. Redis and
// RateLimiter are optional.
type Deps struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Tokens      *service.TokenService
	Auth        *service.AuthService
	Users       *service.UserService
	Roles       *service.RoleService
	Games       *service.GameService
	Loans       *service.LoanService
	Documents   *service.DocumentService
	LoanFeed    *handler.LoanFeedHandler
	RateLimiter *middleware.RateLimiter
}

type Options struct {
	CORSAllowedOrigins []string
	IsProduction       bool
	MaxUploadSize      int64
}

// publicAuthRoutes never look at the Authorization header.
var publicAuthRoutes = []string{
	"/api/auth/register",
	"/api/auth/login",
	"/api/auth/refresh",
}

func NewRouter(d Deps, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		metrics.Middleware(),
		cors.New(cors.Config{
			AllowOrigins:     opts.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Retry-After", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.SecurityHeaders(dto.DownloadPath),
		middleware.HSTSMiddleware(opts.IsProduction),
		middleware.Authenticate(d.Tokens, publicAuthRoutes...),
	)

	health := handler.NewHealthHandler(d.DB, d.Redis)
	router.GET("/health", health.Check)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Users)
	roleHandler := handler.NewRoleHandler(d.Roles)
	gameHandler := handler.NewGameHandler(d.Games)
	loanHandler := handler.NewLoanHandler(d.Loans)
	documentHandler := handler.NewDocumentHandler(d.Documents, opts.MaxUploadSize)

	admin := middleware.RequireRole(models.RoleAdmin)
	api := router.Group("/api")

	authRoutes := api.Group("/auth")
	if d.RateLimiter != nil {
		authRoutes.Use(d.RateLimiter.Middleware())
	}
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh", authHandler.Refresh)
		authRoutes.POST("/logout", middleware.RequireAuth(), authHandler.Logout)
	}

	// catalog and shelves are browsable anonymously
	api.GET("/games", gameHandler.List)
	api.GET("/games/:id", gameHandler.Get)
	api.GET("/documents/download/:fileName", documentHandler.Download)

	// authenticates through the query string when no header is present
	if d.LoanFeed != nil {
		api.GET("/ws/loans", d.LoanFeed.Serve)
	}

	protected := api.Group("", middleware.RequireAuth())
	{
		protected.GET("/users", admin, userHandler.List)
		protected.GET("/users/me", userHandler.Me)
		protected.GET("/users/:id", userHandler.Get)
		protected.PUT("/users/:id", userHandler.Update)
		protected.PUT("/users/:id/password", userHandler.ChangePassword)
		protected.DELETE("/users/:id", userHandler.Delete)
		protected.POST("/users/:id/roles", admin, userHandler.AssignRole)
		protected.DELETE("/users/:id/roles/:roleId", admin, userHandler.RemoveRole)

		protected.GET("/roles", roleHandler.List)
		protected.GET("/roles/:id", roleHandler.Get)
		protected.POST("/roles", admin, roleHandler.Create)
		protected.PUT("/roles/:id", admin, roleHandler.Update)
		protected.DELETE("/roles/:id", admin, roleHandler.Delete)

		protected.POST("/games", gameHandler.Create)
		protected.PUT("/games/:id", gameHandler.Update)
		protected.DELETE("/games/:id", gameHandler.Delete)
		protected.POST("/games/catalog/:id/copy", gameHandler.CopyFromCatalog)

		protected.GET("/loans", loanHandler.List)
		protected.GET("/loans/:id", loanHandler.Get)
		protected.POST("/loans", loanHandler.Create)
		protected.PUT("/loans/:id", loanHandler.Update)
		protected.POST("/loans/:id/return", loanHandler.Return)
		protected.DELETE("/loans/:id", admin, loanHandler.Delete)

		protected.POST("/documents/upload", documentHandler.Upload)
		protected.GET("/documents", documentHandler.List)
		protected.GET("/documents/:id", documentHandler.Get)
		protected.DELETE("/documents/:id", documentHandler.Delete)
	}

	if d.RateLimiter != nil {
		adminHandler := handler.NewAdminHandler(d.RateLimiter)
		adminRoutes := api.Group("/admin", middleware.RequireAuth(), admin)
		adminRoutes.GET("/ip-bans", adminHandler.ListBans)
		adminRoutes.POST("/ip-bans", adminHandler.BanIP)
		adminRoutes.DELETE("/ip-bans/:ip", adminHandler.UnbanIP)
	}

	return router
}
