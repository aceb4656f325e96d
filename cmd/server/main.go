package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"bookcatalog/internal/app"
	"bookcatalog/internal/config"
	"bookcatalog/internal/server"
	"bookcatalog/internal/store"
	"bookcatalog/internal/util"
)

func main() {
	path := config.ConfigPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	tokenTTL, err := config.ParseDuration(cfg.TokenTTL, time.Hour)
	if err != nil {
		log.Fatalf("failed to parse token TTL: %v", err)
	}
	sessionTTL, err := config.ParseDuration(cfg.SessionTTL, time.Hour)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	lookupDelayMax, err := config.ParseDuration(cfg.LookupDelayMax, 0)
	if err != nil {
		log.Fatalf("failed to parse lookup delay: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	appCore, err := app.New(app.Config{
		DatabaseURL:    cfg.DatabaseURL,
		TokenSecret:    cfg.JWTSecret,
		TokenTTL:       tokenTTL,
		LookupDelayMax: lookupDelayMax,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var sessions store.SessionStore
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		sessions = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, sessionTTL)
	} else {
		sessions = store.NewMemorySessionStore(sessionTTL)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		Sessions:                   sessions,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		TrustedProxyCIDRs:          cfg.TrustedProxyCIDRs,
		LoginRateLimitPerMinute:    cfg.LoginRateLimitPerMinute,
		RegisterRateLimitPerMinute: cfg.RegisterRateLimitPerMinute,
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

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
