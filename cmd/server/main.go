package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"bookvault/internal/app"
	"bookvault/internal/config"
	"bookvault/internal/ratelimit"
	"bookvault/internal/server"
	"bookvault/internal/util"
	"bookvault/pkg/storage"
	"bookvault/pkg/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session ttl: %v", err)
	}

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}

	objects, err := storage.NewMinioStore(
		cfg.MinioEndpoint,
		cfg.MinioAccessKey,
		cfg.MinioSecretKey,
		cfg.MinioBucket,
		cfg.MinioPublicBaseURL,
		cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	sessions, err := store.NewJWTSessionStore(cfg.SessionSecret, sessionTTL)
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:          db,
		Sessions:       sessions,
		Objects:        objects,
		AdminEmail:     cfg.AdminEmail,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxPageSize:    cfg.MaxPageSize,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	if err := appCore.EnsureAdminUser(cfg.AdminEmail, cfg.AdminName, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to seed admin user: %v", err)
	}

	signupLimiter, err := newLimiter(cfg, "signup", cfg.SignupRateLimitPerMinute, 5)
	if err != nil {
		log.Fatalf("failed to init signup limiter: %v", err)
	}
	loginLimiter, err := newLimiter(cfg, "login", cfg.LoginRateLimitPerMinute, 10)
	if err != nil {
		log.Fatalf("failed to init login limiter: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:           appCore,
		SignupLimiter: signupLimiter,
		LoginLimiter:  loginLimiter,
		SessionTTL:    sessionTTL,
		SecureCookies: cfg.SecureCookies,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("bookvault server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newLimiter(cfg config.FileConfig, name string, perMinute, fallback int) (server.Limiter, error) {
	if perMinute == 0 {
		perMinute = fallback
	}
	if perMinute < 0 {
		// Negative config disables throttling for the endpoint.
		return nil, nil
	}
	return ratelimit.NewRedisFixedWindowLimiter(
		cfg.RedisAddr,
		cfg.RedisPassword,
		"bookvault:ratelimit:"+name,
		perMinute,
		time.Minute,
	)
}
