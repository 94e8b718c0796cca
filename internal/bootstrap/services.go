package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fleetglass/fleetglass/config"
	"github.com/fleetglass/fleetglass/internal/data"
	"github.com/fleetglass/fleetglass/internal/devices"
	"github.com/fleetglass/fleetglass/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Broker    *service.Broker
	Tokens    *service.TokenResolver
	Devices   *devices.Client
	Operators *data.OperatorRepo
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires the application services from shared infrastructure.
func NewServices(ctx context.Context, deps *ServiceDeps) *ServiceContainer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	operators := data.NewOperatorRepo(deps.DB)

	auth := BuildBroker(ctx, AuthDeps{
		Auth:        deps.Config.Auth,
		RedisClient: deps.RedisClient,
		Operators:   operators,
		Logger:      logger,
	})

	deviceClient, err := devices.NewClient(devices.Options{
		BaseURL:         deps.Config.Devices.BaseURL,
		Tokens:          auth.Tokens,
		Sessions:        auth.Broker,
		ListCacheTTL:    deps.Config.Devices.ListCacheTTL,
		TrendPointsExpr: deps.Config.Devices.TrendPointsExpr,
		Logger:          logger,
	})
	if err != nil {
		logger.Warn("device backend client disabled", "error", err)
	}

	return &ServiceContainer{
		Broker:    auth.Broker,
		Tokens:    auth.Tokens,
		Devices:   deviceClient,
		Operators: operators,
	}
}
