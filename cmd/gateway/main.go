package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/atpstore/storefront-gateway/internal/adapter/cache"
	"github.com/atpstore/storefront-gateway/internal/bootstrap"
	"github.com/atpstore/storefront-gateway/internal/config"
	"github.com/atpstore/storefront-gateway/internal/customer"
	httptransport "github.com/atpstore/storefront-gateway/internal/http"
	"github.com/atpstore/storefront-gateway/internal/http/handler"
	"github.com/atpstore/storefront-gateway/internal/membership"
	apimiddleware "github.com/atpstore/storefront-gateway/internal/middleware"
	"github.com/atpstore/storefront-gateway/internal/oauth"
	"github.com/atpstore/storefront-gateway/internal/repository"
	"github.com/atpstore/storefront-gateway/internal/server"
	"github.com/atpstore/storefront-gateway/internal/session"
	"github.com/atpstore/storefront-gateway/internal/telemetry"
	"github.com/atpstore/storefront-gateway/internal/webhook"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newRedisClient,
			newMembershipRepository,
			newEventDedupe,
			newSessionStore,
			newProviderClient,
			newOAuthService,
			newCustomerGateway,
			newWebhookVerifier,
			membership.NewService,
			newRateLimiter,
			newAuthHandler,
			newMembershipHandler,
			newWebhookHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, runMigrations, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newMembershipRepository(pool *pgxpool.Pool) repository.MembershipRepository {
	return repository.NewPostgresMembershipRepo(pool)
}

func newEventDedupe(client redis.UniversalClient) repository.EventDedupe {
	return cacheadapter.NewRedisEventDedupe(client)
}

func newSessionStore(cfg config.Config) session.Store {
	secure := cfg.Environment != "development"
	return session.NewCookieStore(cfg.CookieSecret, cfg.StateTTL, secure)
}

func newProviderClient(cfg config.Config) oauth.ProviderClient {
	return oauth.NewHTTPProviderClient(nil, cfg)
}

func newOAuthService(client oauth.ProviderClient, cfg config.Config, logger *zap.Logger) oauth.Service {
	return oauth.NewService(client, cfg, logger)
}

func newCustomerGateway(cfg config.Config, logger *zap.Logger) customer.Gateway {
	return customer.NewGraphQLGateway(nil, cfg, logger)
}

func newWebhookVerifier(cfg config.Config) *webhook.Verifier {
	return webhook.NewVerifier(cfg.WebhookSecret)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newAuthHandler(oauthSvc oauth.Service, sessions session.Store, customers customer.Gateway, logger *zap.Logger) *handler.AuthHandler {
	return handler.NewAuthHandler(oauthSvc, sessions, customers, logger)
}

func newMembershipHandler(memberships membership.Service, logger *zap.Logger) *handler.MembershipHandler {
	return handler.NewMembershipHandler(memberships, logger)
}

func newWebhookHandler(verifier *webhook.Verifier, memberships membership.Service, cfg config.Config, logger *zap.Logger) *handler.WebhookHandler {
	return handler.NewWebhookHandler(verifier, memberships, cfg.MembershipMarker, logger)
}

func runMigrations(cfg config.Config, logger *zap.Logger) error {
	if err := bootstrap.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied")
	return nil
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
