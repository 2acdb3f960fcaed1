package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"euroassist/internal/config"
	"euroassist/internal/db"
	apihttp "euroassist/internal/http"
	"euroassist/internal/llm"
	"euroassist/internal/metrics"
	"euroassist/internal/repository"
	"euroassist/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := db.Ping(pingCtx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	cancelPing()

	if cfg.AutoMigrate {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
	}

	userRepo := repository.NewPgUserRepository(pool)
	chatRepo := repository.NewPgChatRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	sessionRepo := repository.NewPgSessionRepository(pool)

	llmClient, llmCloser, err := llm.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("llm provider", zap.Error(err))
	}
	defer llmCloser.Close()
	logger.Info("llm provider ready", zap.String("provider", cfg.LLMProvider))

	sessionStore := service.NewPgSessionStore(sessionRepo)
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, sessions stay in postgres", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			sessionStore = service.NewRedisSessionStore(redisClient)
		}
		cancel()
	}
	if redisClient == nil {
		go service.RunSessionSweeper(ctx, logger, sessionRepo, time.Hour)
	} else {
		defer redisClient.Close()
	}

	userSvc := service.NewUserService(logger, userRepo)
	sessionSvc := service.NewSessionService(cfg.SessionSecret, cfg.SessionTTL, sessionStore)
	assistantSvc := service.NewAssistantService(logger, llmClient, cfg.LLMTimeout)
	chatSvc := service.NewChatService(logger, chatRepo, messageRepo, assistantSvc, metrics.Recorder{})

	var oauthSvc *service.OAuthService
	if cfg.GoogleOAuthEnabled() {
		oauthSvc = service.NewGoogleOAuthService(logger, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, userSvc)
	}

	cookie := apihttp.CookieConfig{Name: cfg.SessionCookieName, Secure: cfg.CookieSecure}
	router := apihttp.NewRouter(logger, apihttp.RouterDeps{
		Sessions:    sessionSvc,
		Cookie:      cookie,
		CORSOrigins: cfg.CORSOrigins,
		Auth:        apihttp.NewAuthHandler(logger, userSvc, sessionSvc, oauthSvc, cookie),
		Chats:       apihttp.NewChatHandler(logger, chatSvc),
		Health:      apihttp.NewHealthHandler(pool, redisClient),
		GoogleOAuth: oauthSvc != nil,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Los streams SSE en curso pueden durar hasta LLM_TIMEOUT.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.LLMTimeout+5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
