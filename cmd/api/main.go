package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"market-chat/internal/admission"
	"market-chat/internal/auth"
	"market-chat/internal/config"
	"market-chat/internal/db"
	"market-chat/internal/domain"
	apihttp "market-chat/internal/http"
	"market-chat/internal/realtime"
	"market-chat/internal/repository"
	"market-chat/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	ctxDB, cancelDB := context.WithTimeout(ctx, 5*time.Second)
	if err := db.Ping(ctxDB, pool); err != nil {
		cancelDB()
		logger.Fatal("db ping", zap.Error(err))
	}
	cancelDB()

	messageRepo := repository.NewPgMessageRepository(pool)
	moderationRepo := repository.NewPgModerationRepository(pool)
	rateLimitRepo := repository.NewPgRateLimitRepository(pool)

	// Sin Redis el servicio funciona igual, solo que sin fan-out en vivo.
	var distributor realtime.Distributor = realtime.NopDistributor{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, realtime disabled", zap.Error(err))
		} else {
			distributor = realtime.NewRedisDistributor(redisClient, logger)
		}
		cancel()
	}

	verifier := auth.NewVerifier(time.Duration(cfg.AssertionSkewSecs) * time.Second)

	var eligibility service.EligibilityChecker = service.AllowAllEligibility{}
	if cfg.HolderServiceURL != "" {
		eligibility = service.NewHTTPEligibility(cfg.HolderServiceURL)
	} else {
		logger.Warn("holder service not configured, eligibility checks disabled")
	}

	pipeline := admission.NewPipeline(
		admission.NewLinkMatcher(),
		admission.NewBlocklistMatcher(cfg.BlockedWords),
	)
	limiter := service.NewRateLimiter(
		rateLimitRepo,
		time.Duration(cfg.ChatCooldownSeconds)*time.Second,
	)
	admins := domain.NewAllowlist(cfg.AdminWallets)
	if len(admins) == 0 {
		logger.Warn("no admin wallets configured")
	}

	chatSvc := service.NewChatService(
		logger, verifier, eligibility,
		pipeline, limiter, messageRepo, admins, distributor,
	)
	moderationSvc := service.NewModerationService(logger, verifier, admins, moderationRepo)

	chatHandler := apihttp.NewChatHandler(logger, chatSvc)
	moderationHandler := apihttp.NewModerationHandler(logger, moderationSvc)
	router := apihttp.NewRouter(logger, chatHandler, moderationHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
