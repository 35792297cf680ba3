package main

import (
	"log/slog"
	"os"

	"github.com/centsible-app/centsible/internal/api"
	"github.com/centsible-app/centsible/internal/auth"
	"github.com/centsible-app/centsible/internal/config"
	"github.com/centsible-app/centsible/internal/service"
	"github.com/centsible-app/centsible/internal/storage/sqlite"
	"github.com/centsible-app/centsible/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	router := api.NewRouter(api.Dependencies{
		Config:        cfg,
		JWTManager:    auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Authenticator: auth.NewPasswordAuthenticator(store),
		Users:         store,
		Groups:        service.NewGroupService(store),
		Settlements:   service.NewSettlementService(store),
	})

	addr := ":" + cfg.Server.Port
	slog.Info("Server starting", "address", addr, "environment", cfg.Server.Environment)
	if err := router.Run(addr); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
