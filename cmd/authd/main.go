// Command authd runs the account-security engine as an HTTP service.
// Accounts live in PostgreSQL; the refresh-token slots and mail throttle
// live in Redis. Configuration comes from AUTHD_* environment variables.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/helixmarkets/authcore"
	"github.com/helixmarkets/authcore/httpapi"
	"github.com/helixmarkets/authcore/pgstore"
	"github.com/helixmarkets/authcore/redistore"
)

type envConfig struct {
	ListenAddr  string `env:"AUTHD_LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"AUTHD_DATABASE_URL,required"`
	RedisAddr   string `env:"AUTHD_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int    `env:"AUTHD_REDIS_DB" envDefault:"0"`

	// Base64-encoded raw ed25519 keys.
	JWTPrivateKey string        `env:"AUTHD_JWT_PRIVATE_KEY,required"`
	JWTPublicKey  string        `env:"AUTHD_JWT_PUBLIC_KEY,required"`
	JWTIssuer     string        `env:"AUTHD_JWT_ISSUER" envDefault:"authcore"`
	AccessTTL     time.Duration `env:"AUTHD_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"AUTHD_REFRESH_TTL" envDefault:"168h"`

	LockoutAttempts int           `env:"AUTHD_LOCKOUT_ATTEMPTS" envDefault:"5"`
	LockoutDuration time.Duration `env:"AUTHD_LOCKOUT_DURATION" envDefault:"2h"`

	MailMaxPerWindow int           `env:"AUTHD_MAIL_MAX_PER_WINDOW" envDefault:"3"`
	MailWindow       time.Duration `env:"AUTHD_MAIL_WINDOW" envDefault:"1h"`

	AuditEnabled   bool `env:"AUTHD_AUDIT_ENABLED" envDefault:"true"`
	MetricsEnabled bool `env:"AUTHD_METRICS_ENABLED" envDefault:"true"`

	EnsureSchema bool `env:"AUTHD_ENSURE_SCHEMA" envDefault:"false"`
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("authd exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	privKey, err := base64.StdEncoding.DecodeString(cfg.JWTPrivateKey)
	if err != nil {
		return fmt.Errorf("decode AUTHD_JWT_PRIVATE_KEY: %w", err)
	}
	pubKey, err := base64.StdEncoding.DecodeString(cfg.JWTPublicKey)
	if err != nil {
		return fmt.Errorf("decode AUTHD_JWT_PUBLIC_KEY: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("pgxpool.New: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}

	store := pgstore.New(pool)
	if cfg.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		log.Info("schema ensured")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	throttle, err := redistore.NewThrottle(rdb, "mail", cfg.MailMaxPerWindow, cfg.MailWindow)
	if err != nil {
		return err
	}

	coreCfg := authcore.DefaultConfig()
	coreCfg.JWT.PrivateKey = privKey
	coreCfg.JWT.PublicKey = pubKey
	coreCfg.JWT.Issuer = cfg.JWTIssuer
	coreCfg.JWT.AccessTTL = cfg.AccessTTL
	coreCfg.JWT.RefreshTTL = cfg.RefreshTTL
	coreCfg.Lockout.MaxAttempts = cfg.LockoutAttempts
	coreCfg.Lockout.LockDuration = cfg.LockoutDuration
	coreCfg.MailThrottle.MaxPerWindow = cfg.MailMaxPerWindow
	coreCfg.MailThrottle.Window = cfg.MailWindow
	coreCfg.Audit.Enabled = cfg.AuditEnabled
	coreCfg.Metrics.Enabled = cfg.MetricsEnabled

	builder := authcore.New().
		WithConfig(coreCfg).
		WithStore(store).
		WithRefreshStore(redistore.NewRefreshStore(rdb, "rt")).
		WithMailThrottle(throttle).
		WithMetricsEnabled(cfg.MetricsEnabled)
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(authcore.NewSlogSink(log))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	app := fiber.New()
	httpapi.New(engine, log).RegisterRoutes(app)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", cfg.ListenAddr))
		errCh <- app.Listen(cfg.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
