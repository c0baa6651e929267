package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/aegis/internal/alert"
	"github.com/gosuda/aegis/internal/audit"
	"github.com/gosuda/aegis/internal/auth"
	"github.com/gosuda/aegis/internal/config"
	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/guard"
	"github.com/gosuda/aegis/internal/lockout"
	"github.com/gosuda/aegis/internal/metrics"
	"github.com/gosuda/aegis/internal/permission"
	"github.com/gosuda/aegis/internal/ratelimit"
	"github.com/gosuda/aegis/internal/server"
	"github.com/gosuda/aegis/internal/store/memory"
	"github.com/gosuda/aegis/internal/store/postgres"
	redisstore "github.com/gosuda/aegis/internal/store/redis"
	"github.com/gosuda/aegis/internal/threshold"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("AEGIS_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("AEGIS_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	clock := domain.SystemClock{}

	// Storage backends: postgres + redis, or fully in-process.
	var (
		store    domain.PersistentStore
		users    domain.UserRepository
		sink     domain.AuditSink
		counters domain.CounterStore
	)

	if cfg.Store == "postgres" {
		if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
			return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}

		pg, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if err != nil {
			return err
		}
		defer pg.Close()

		rd, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rd.Close()

		store, users, sink, counters = pg, pg.Users(), pg.Audit(), rd
	} else {
		log.Warn().Msg("running with in-memory stores; state is lost on restart")
		store = memory.NewStore()
		users = memory.NewUserRepo()
		sink = audit.NewMemorySink()
		counters = memory.NewCounters(clock)
	}

	trail := audit.NewTrail(sink, clock, cfg.Guard.SensitiveFields...)

	// Alerting: Slack when configured, process log otherwise.
	var alertSink threshold.AlertSink = alert.NewLogSink()
	if cfg.Slack.BotToken != "" && cfg.Slack.AlertChannel != "" {
		alertSink = alert.NewSlackSink(slacklib.New(cfg.Slack.BotToken), cfg.Slack.AlertChannel)
		log.Info().Str("channel", cfg.Slack.AlertChannel).Msg("Slack alerting enabled")
	}

	monitor := threshold.New(alertSink, clock, cfg.Guard.AlertCooldown)
	if err := monitor.Register(threshold.Rule{
		MetricKey:  guard.FailureMetricKey,
		Comparison: threshold.CompareMax,
		Limit:      100,
		Severity:   domain.SeverityCritical,
	}); err != nil {
		return err
	}
	if err := monitor.Register(threshold.Rule{
		MetricKey:  "auth.lockouts",
		Comparison: threshold.CompareMax,
		Limit:      10,
		Severity:   domain.SeverityCritical,
	}); err != nil {
		return err
	}

	lockouts := lockout.New(counters, clock, cfg.Guard.MaxLoginAttempts, cfg.Guard.LockoutDuration)

	var lockoutCount atomic.Int64
	lockouts.OnLockout(func(string, lockout.State) {
		monitor.Observe(ctx, "auth.lockouts", float64(lockoutCount.Add(1)))
	})

	limiter := ratelimit.New(counters, cfg.Guard.RateLimitMax, cfg.Guard.RateLimitWindow)
	limiter.SetRule("auth.login", cfg.Guard.LoginRateLimitMax, cfg.Guard.LoginRateLimitWindow)
	limiter.SetRule("auth.password.change", cfg.Guard.LoginRateLimitMax, cfg.Guard.LoginRateLimitWindow)

	checker := permission.NewChecker(permission.NewRoleGrants(
		func(ctx context.Context, actorID string) (string, error) {
			user, err := users.GetByUsername(ctx, actorID)
			if err != nil {
				return "", err
			}
			return user.Role, nil
		},
		permission.DefaultRolePermissions(),
	))

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)

	executor := guard.New(store, checker, limiter, trail, guard.Options{
		Lockouts:         lockouts,
		Monitor:          monitor,
		Metrics:          recorder,
		Clock:            clock,
		OperationTimeout: cfg.Guard.OperationTimeout,
	})

	authSvc := auth.NewService(users, lockouts, limiter, trail, executor, cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Memory mode bootstraps an admin account so the API is usable.
	if cfg.Store == "memory" {
		if pw := os.Getenv("AEGIS_ADMIN_PASSWORD"); pw != "" {
			if _, err := authSvc.Register(ctx, "admin", pw, "admin"); err != nil {
				return fmt.Errorf("bootstrap admin: %w", err)
			}
			log.Info().Msg("bootstrapped admin account")
		}
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(ctx, cfg, authSvc, trail)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
