package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Baaaki/gameshelf/internal/broker"
	"github.com/Baaaki/gameshelf/internal/config"
	"github.com/Baaaki/gameshelf/internal/database"
	"github.com/Baaaki/gameshelf/internal/handler"
	"github.com/Baaaki/gameshelf/internal/jobs"
	"github.com/Baaaki/gameshelf/internal/journal"
	"github.com/Baaaki/gameshelf/internal/middleware"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/internal/server"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/Baaaki/gameshelf/internal/storage"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	if err := logger.Init(!cfg.IsProduction()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	var (
		redisClient *redis.Client
		eventBroker broker.EventBroker
		rateLimiter *middleware.RateLimiter
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		eventBroker = broker.NewRedisBroker(redisClient)
		rateLimiter = middleware.NewRateLimiter(redisClient, middleware.RateLimiterConfig{
			MaxRequests: cfg.RateLimitMaxRequests,
			Window:      cfg.RateLimitWindow,
			BlockTime:   cfg.RateLimitBlockTime,
		})
		logger.Log.Info("Redis connected, using Redis broker and auth rate limiting")
	} else {
		eventBroker = broker.NewLocalBroker()
		logger.Log.Warn("REDIS_URL not set: loan events stay in-process and auth rate limiting is off")
	}
	defer eventBroker.Close()

	loanJournal, err := journal.Open(cfg.LoanJournalPath)
	if err != nil {
		logger.Log.Fatal("Failed to open loan journal", zap.Error(err))
	}
	defer loanJournal.Close()

	store, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadMaxSize, cfg.UploadAllowedExtensions)
	if err != nil {
		logger.Log.Fatal("Failed to prepare upload directory", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	tokenService := service.NewTokenService(tokenRepo, userRepo, cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	authService := service.NewAuthService(userRepo, roleRepo, tokenService)
	userService := service.NewUserService(db, tokenService)
	roleService := service.NewRoleService(roleRepo)
	gameService := service.NewGameService(db)
	loanService := service.NewLoanService(db, loanJournal, eventBroker)
	documentService := service.NewDocumentService(db, store)

	loanFeed := handler.NewLoanFeedHandler(eventBroker, tokenService, cfg.CORSAllowedOrigins)
	if err := loanFeed.Start(ctx); err != nil {
		logger.Log.Fatal("Failed to subscribe to loan events", zap.Error(err))
	}

	scheduler, err := jobs.New(jobs.Config{
		TokenPurgeSchedule:     cfg.TokenPurgeSchedule,
		JournalCompactSchedule: cfg.JournalCompactSchedule,
		JournalRetention:       cfg.JournalRetention,
	}, tokenService, loanJournal)
	if err != nil {
		logger.Log.Fatal("Failed to schedule maintenance jobs", zap.Error(err))
	}
	scheduler.Start()

	router := server.NewRouter(server.Deps{
		DB:          db,
		Redis:       redisClient,
		Tokens:      tokenService,
		Auth:        authService,
		Users:       userService,
		Roles:       roleService,
		Games:       gameService,
		Loans:       loanService,
		Documents:   documentService,
		LoanFeed:    loanFeed,
		RateLimiter: rateLimiter,
	}, server.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		IsProduction:       cfg.IsProduction(),
		MaxUploadSize:      cfg.UploadMaxSize,
	})

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("addr", cfg.ServerPort), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	logger.Log.Info("Server stopped")
}
