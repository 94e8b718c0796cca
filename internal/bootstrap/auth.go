package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetglass/fleetglass/config"
	"github.com/fleetglass/fleetglass/internal/adapters/dirauth"
	"github.com/fleetglass/fleetglass/internal/adapters/googleid"
	"github.com/fleetglass/fleetglass/internal/adapters/oidc"
	redisadapter "github.com/fleetglass/fleetglass/internal/adapters/redis"
	"github.com/fleetglass/fleetglass/internal/ports"
	"github.com/fleetglass/fleetglass/internal/service"
)

// AuthDeps contains dependencies for building the session broker.
type AuthDeps struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	Operators   ports.OperatorRecorder
	Logger      *slog.Logger
}

// AuthContainer holds the constructed auth subsystem.
type AuthContainer struct {
	Broker *service.Broker
	Tokens *service.TokenResolver
}

// BuildBroker constructs the provider adapters and the session broker.
// A provider whose configuration is incomplete is disabled with a warning;
// the remaining providers keep working. Startup recovery is kicked off in
// the background so construction never blocks on the directory.
func BuildBroker(ctx context.Context, deps AuthDeps) *AuthContainer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enterprise := buildEnterpriseProvider(ctx, deps, logger)
	consumer := buildConsumerProvider(deps, logger)
	local := buildLocalProvider(deps, logger)

	broker := service.NewBroker(ctx, service.BrokerOptions{
		Enterprise: enterprise,
		Consumer:   consumer,
		Local:      local,
		Sessions:   redisadapter.NewSessionStore(deps.RedisClient),
		Operators:  deps.Operators,
		Logger:     logger,
	})
	go broker.Start(context.WithoutCancel(ctx))

	return &AuthContainer{
		Broker: broker,
		Tokens: service.NewTokenResolver(enterprise),
	}
}

//nolint:ireturn // nil interface means "adapter disabled" to the broker.
func buildEnterpriseProvider(ctx context.Context, deps AuthDeps, logger *slog.Logger) ports.EnterpriseProvider {
	ent := deps.Auth.Enterprise

	// Discovery is a network call; bound it so a slow authority cannot
	// stall startup indefinitely.
	discoverCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	prov, err := oidc.NewProvider(discoverCtx, oidc.ProviderConfig{
		ClientID:     ent.ClientID,
		ClientSecret: ent.ClientSecret,
		Authority:    ent.Authority,
		RedirectURL:  ent.RedirectURL,
		LogoutURL:    ent.LogoutURL,
	}, redisadapter.NewEnterpriseAccountCache(deps.RedisClient))
	if err != nil {
		logger.Warn("enterprise provider disabled", "error", err)
		return nil
	}
	return prov
}

//nolint:ireturn // nil interface means "adapter disabled" to the broker.
func buildConsumerProvider(deps AuthDeps, logger *slog.Logger) ports.ConsumerProvider {
	prov, err := googleid.NewProvider(googleid.Config{
		ClientID:      deps.Auth.Consumer.ClientID,
		PromptTimeout: deps.Auth.Consumer.PromptTimeout,
	})
	if err != nil {
		logger.Warn("consumer provider disabled", "error", err)
		return nil
	}
	return prov
}

//nolint:ireturn // nil interface means "adapter disabled" to the broker.
func buildLocalProvider(deps AuthDeps, logger *slog.Logger) ports.LocalProvider {
	dir := deps.Auth.Directory
	prov, err := dirauth.NewProvider(dirauth.Config{
		BaseURL:  dir.BaseURL,
		PoolID:   dir.PoolID,
		ClientID: dir.ClientID,
	}, redisadapter.NewDirectoryTokenCache(deps.RedisClient))
	if err != nil {
		logger.Warn("local directory provider disabled", "error", err)
		return nil
	}
	return prov
}
