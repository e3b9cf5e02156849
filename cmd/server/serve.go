package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"courier/internal/audit"
	auditkafka "courier/internal/audit/store/kafka"
	auditpostgres "courier/internal/audit/store/postgres"
	authhandler "courier/internal/auth/handler"
	"courier/internal/auth/secrets"
	authservice "courier/internal/auth/service"
	"courier/internal/auth/store/user"
	httpapi "courier/internal/http"
	jwttoken "courier/internal/jwt_token"
	"courier/internal/notify"
	"courier/internal/notify/dispatcher"
	"courier/internal/notify/enricher"
	notifyhandler "courier/internal/notify/handler"
	"courier/internal/notify/ports"
	"courier/internal/notify/resolver"
	"courier/internal/platform/config"
	"courier/internal/platform/httpserver"
	"courier/internal/platform/logger"
	"courier/internal/platform/metrics"
	"courier/internal/platform/postgres"
	"courier/internal/platform/redis"
	"courier/internal/providers/avatar"
	"courier/internal/providers/github"
	"courier/internal/providers/mail"
	"courier/internal/providers/weather"
)

const (
	tokenIssuer     = "courier"
	shutdownTimeout = 10 * time.Second
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// infra holds the optional shared connections so they can be closed on exit.
type infra struct {
	db        *sql.DB
	redis     *redis.Client
	auditPool *pgxpool.Pool
	kafka     *auditkafka.Store
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.auditPool != nil {
		i.auditPool.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func (i *infra) healthChecks() map[string]httpapi.HealthCheck {
	checks := map[string]httpapi.HealthCheck{}
	if i.db != nil {
		checks["postgres"] = i.db.PingContext
	}
	if i.redis != nil {
		checks["redis"] = i.redis.Health
	}
	if i.auditPool != nil {
		checks["audit_postgres"] = i.auditPool.Ping
	}
	return checks
}

func serve(ctx context.Context, cfg config.Server) error {
	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	deps := &infra{}
	defer deps.close()

	var err error
	if deps.db, err = postgres.Open(ctx, cfg.Database); err != nil {
		return err
	}
	if deps.redis, err = redis.New(ctx, cfg.Redis); err != nil {
		return err
	}

	publisher, err := buildAuditPublisher(ctx, cfg.Audit, deps, log)
	if err != nil {
		return err
	}

	authSvc, avatarDir, err := buildAuthService(cfg, deps, publisher, log, m)
	if err != nil {
		return err
	}
	notifySvc, err := buildNotifyService(cfg, deps, log, m)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:        log,
		Metrics:       m,
		Auth:          authhandler.New(authSvc, log, cfg.Avatar.MaxUploadBytes),
		Authenticator: authSvc,
		TokenHeader:   cfg.Auth.TokenHeader,
		Notify:        notifyhandler.New(notifySvc, log),
		AvatarDir:     avatarDir,
		HealthChecks:  deps.healthChecks(),
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := audit.NewWorker(publisher, time.Second, log).Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.InfoContext(gctx, "starting courier", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		log.InfoContext(shutdownCtx, "shutting down courier")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildAuditPublisher attaches the configured sinks. With none configured the
// publisher only logs.
func buildAuditPublisher(ctx context.Context, cfg config.AuditConfig, deps *infra, log *slog.Logger) (*audit.Publisher, error) {
	opts := []audit.Option{audit.WithLogger(log), audit.WithBufferSize(cfg.BufferSize)}

	if len(cfg.KafkaBrokers) > 0 {
		store, err := auditkafka.New(cfg.KafkaBrokers, cfg.Topic)
		if err != nil {
			return nil, err
		}
		deps.kafka = store
		if err := store.EnsureTopic(ctx, 1, 1); err != nil {
			log.WarnContext(ctx, "could not ensure audit topic", "topic", cfg.Topic, "error", err)
		}
		opts = append(opts, audit.WithSink(store))
	}
	if cfg.DatabaseURL != "" {
		pool, err := auditpostgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		deps.auditPool = pool
		opts = append(opts, audit.WithSink(auditpostgres.New(pool)))
	}
	return audit.NewPublisher(opts...), nil
}

// buildAuthService returns the directory of the local avatar store when one is
// used so the router can serve it.
func buildAuthService(cfg config.Server, deps *infra, publisher *audit.Publisher, log *slog.Logger, m *metrics.Metrics) (*authservice.Service, string, error) {
	var users authservice.UserStore = user.New()
	if deps.db != nil {
		users = user.NewPostgres(deps.db)
	}

	var (
		avatars   authservice.AvatarStore
		avatarDir string
	)
	if cfg.Avatar.CloudinaryURL != "" {
		store, err := avatar.NewCloudinaryStore(cfg.Avatar)
		if err != nil {
			return nil, "", err
		}
		avatars = store
	} else {
		store, err := avatar.NewLocalStore(cfg.Avatar)
		if err != nil {
			return nil, "", err
		}
		avatars, avatarDir = store, store.Dir()
	}

	svc := authservice.New(
		users,
		secrets.NewHasher(cfg.Auth.BcryptCost),
		jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, tokenIssuer),
		avatars,
		cfg.Auth,
		authservice.WithLogger(log),
		authservice.WithMetrics(m),
		authservice.WithAuditPublisher(publisher),
		authservice.WithAllowedAvatarTypes(cfg.Avatar.AllowedTypes),
	)
	return svc, avatarDir, nil
}

func buildNotifyService(cfg config.Server, deps *infra, log *slog.Logger, m *metrics.Metrics) (*notify.Service, error) {
	directory, err := github.New(cfg.GitHub)
	if err != nil {
		return nil, err
	}

	weatherClient, err := weather.New(cfg.Weather)
	if err != nil {
		return nil, err
	}
	var source ports.ContextSource = weatherClient
	if deps.redis != nil {
		source = weather.NewCachedSource(weatherClient, deps.redis.Client, cfg.Weather.CacheTTL,
			weather.WithCacheLogger(log), weather.WithCacheMetrics(m))
	}

	transport, err := mail.NewTransport(cfg.Mail, log)
	if err != nil {
		return nil, err
	}

	n := cfg.Notify.MaxConcurrency
	return notify.New(
		resolver.New(directory, resolver.WithLogger(log), resolver.WithMetrics(m), resolver.WithMaxConcurrency(n)),
		enricher.New(source, enricher.WithLogger(log), enricher.WithMetrics(m), enricher.WithMaxConcurrency(n)),
		dispatcher.New(transport, dispatcher.WithLogger(log), dispatcher.WithMetrics(m), dispatcher.WithMaxConcurrency(n)),
		cfg.Notify,
		notify.WithLogger(log),
		notify.WithMetrics(m),
	), nil
}
