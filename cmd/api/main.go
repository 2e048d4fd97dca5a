package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"admin-sys/internal/config"
	"admin-sys/internal/db"
	apihttp "admin-sys/internal/http"
	"admin-sys/internal/repository"
	"admin-sys/internal/service"

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

	if err := db.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	roleRepo := repository.NewPgRoleRepository(pool)

	localTTL := time.Duration(cfg.LocalCacheTTLSecs) * time.Second
	caches := []service.UserCache{service.NewLocalUserCache(localTTL)}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else if remote := service.NewRedisUserCache(redisClient, 0); remote != nil {
			caches = append(caches, remote)
		}
		cancel()
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	userSvc := service.NewUserService(logger, userRepo, roleRepo, caches, cfg.BcryptCost)
	authHandler := apihttp.NewAuthHandler(logger, userSvc, jwtSvc)
	userHandler := apihttp.NewUserHandler(logger, userSvc)
	router := apihttp.NewRouter(logger, jwtSvc, authHandler, userHandler)

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
