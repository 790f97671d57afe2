package main

import (
	"context"
	"fmt"
	"net/http"

	"mower-backend/internal/api"
	"mower-backend/internal/api/handlers"
	"mower-backend/internal/dispatch"
	"mower-backend/internal/seed"
	"mower-backend/internal/service"
	"mower-backend/internal/store/factory"
	"mower-backend/internal/store/types"
	"mower-backend/pkg/config"
	"mower-backend/pkg/logger"
)

type App struct {
	server *http.Server
	store  types.Store
	logger *logger.Logger
}

// NewApp wires the store, services, handlers and router together.
func NewApp(cfg *config.ServerConfig) (*App, error) {
	log := logger.NewLogger(cfg.Log.Debug)
	if cfg.Log.File != "" {
		log.SetLogOutput(cfg.Log.File)
	}

	store, err := factory.NewStore(storeConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	dispatcher := dispatch.NewHTTPDispatcher(cfg.Dispatcher.Endpoint, cfg.Dispatcher.Timeout, log)

	machineService := service.NewMachineService(store, log)
	queueService := service.NewQueueService(store, dispatcher, log)
	statusService := service.NewStatusService(store, log)
	authService := service.NewAuthService(cfg, store, log)

	router := api.NewRouter(
		cfg,
		handlers.NewMachineHandler(machineService, log),
		handlers.NewQueueHandler(queueService, log),
		handlers.NewTelemetryHandler(queueService, log),
		handlers.NewStatusHandler(statusService, log),
		handlers.NewAuthHandler(authService, log),
		authService,
		log,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	return &App{
		server: server,
		store:  store,
		logger: log,
	}, nil
}

// Seed fills the store with random demo machines and queues.
func (a *App) Seed() error {
	return seed.Run(context.Background(), a.store, a.logger)
}

func (a *App) Run() error {
	log := a.logger.GetLogger("app")
	log.Info().
		Str("address", a.server.Addr).
		Msg("Starting server")

	return a.server.ListenAndServe()
}

func storeConfig(cfg *config.ServerConfig) *types.Config {
	return &types.Config{
		Type: cfg.Storage.Type,
		SQLite: types.SQLiteConfig{
			Path: cfg.Storage.SQLite.Path,
		},
		Postgres: types.PostgresConfig{
			Host:     cfg.Storage.Postgres.Host,
			Port:     cfg.Storage.Postgres.Port,
			User:     cfg.Storage.Postgres.User,
			Password: cfg.Storage.Postgres.Password,
			DBName:   cfg.Storage.Postgres.DBName,
			SSLMode:  cfg.Storage.Postgres.SSLMode,
		},
	}
}
