package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	sdhttp "github.com/Strob0t/secretsdir/internal/adapter/http"
	"github.com/Strob0t/secretsdir/internal/adapter/natskv"
	cfotel "github.com/Strob0t/secretsdir/internal/adapter/otel"
	"github.com/Strob0t/secretsdir/internal/adapter/postgres"
	"github.com/Strob0t/secretsdir/internal/config"
	"github.com/Strob0t/secretsdir/internal/logger"
	"github.com/Strob0t/secretsdir/internal/resilience"
	"github.com/Strob0t/secretsdir/internal/secrets"
	"github.com/Strob0t/secretsdir/internal/service"
)

// Remote backends stop being called after this many consecutive failures
// and are tried again once breakerTimeout has passed.
const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

func main() {
	configPath := flag.String("config", config.DefaultConfigFile, "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"backend", cfg.Secrets.Backend,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(flushCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	fsys, location, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	ignore, err := ignorePredicate(cfg.Secrets)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	provider, err := secrets.New(secrets.Source{
		Dir:           dirFor(cfg),
		Optional:      cfg.Secrets.Optional,
		WordSeparator: cfg.Secrets.WordSeparator,
		Delimiter:     cfg.Secrets.Delimiter,
		Ignore:        ignore,
		FS:            fsys,
	})
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	slog.Info("secrets provider ready",
		"location", location,
		"dir", provider.Dir(),
		"optional", provider.Optional(),
	)

	svc, err := service.NewSecretsService(ctx, provider, cfg.Secrets.Backend, location, metrics)
	if err != nil {
		return err
	}

	if cfg.Server.Port == "" {
		for _, k := range svc.Keys() {
			fmt.Println(k)
		}
		return nil
	}
	return serve(ctx, cfg, svc)
}

// openBackend returns the directory provider for the configured backend.
// The dir backend returns a nil FS so the Provider resolves the physical
// directory itself.
func openBackend(ctx context.Context, cfg *config.Config) (fs.FS, string, func(), error) {
	switch cfg.Secrets.Backend {
	case config.BackendNATS:
		fsys, closeConn, err := natskv.Dial(ctx, cfg.NATS.URL, cfg.NATS.Bucket)
		if err != nil {
			return nil, "", nil, fmt.Errorf("nats: %w", err)
		}
		slog.Info("nats connected", "url", cfg.NATS.URL, "bucket", cfg.NATS.Bucket)
		return fsys.WithBreaker(newBreaker()), fsys.Name(), closeConn, nil

	case config.BackendPostgres:
		if cfg.Postgres.Migrate {
			version, err := postgres.RunMigrations(ctx, cfg.Postgres.DSN)
			if err != nil {
				return nil, "", nil, fmt.Errorf("postgres migrations: %w", err)
			}
			slog.Info("postgres migrations applied", "version", version)
		}
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, "", nil, fmt.Errorf("postgres: %w", err)
		}
		slog.Info("postgres connected", "table", cfg.Postgres.Table)
		fsys := postgres.NewFS(ctx, pool, cfg.Postgres.Table).WithBreaker(newBreaker())
		return fsys, fsys.Name(), pool.Close, nil

	default:
		return nil, cfg.Secrets.Dir, func() {}, nil
	}
}

func newBreaker() *resilience.Breaker {
	return resilience.NewBreaker(breakerFailures, breakerTimeout, fs.ErrNotExist)
}

func dirFor(cfg *config.Config) string {
	if cfg.Secrets.Backend == config.BackendDir {
		return cfg.Secrets.Dir
	}
	return ""
}

func ignorePredicate(cfg config.Secrets) (secrets.IgnoreFunc, error) {
	var preds []secrets.IgnoreFunc
	if len(cfg.Ignore) > 0 {
		p, err := secrets.IgnorePatterns(cfg.Ignore...)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if cfg.IgnoreHidden {
		preds = append(preds, secrets.IgnoreHidden)
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return secrets.AnyIgnore(preds...), nil
}

func serve(ctx context.Context, cfg *config.Config, svc *service.SecretsService) error {
	r := sdhttp.NewRouter(&sdhttp.Handlers{Secrets: svc}, cfg.Logging.Service)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
