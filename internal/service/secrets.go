package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/secretsdir/internal/adapter/otel"
	"github.com/Strob0t/secretsdir/internal/secrets"
)

// SecretsService keeps the loaded secrets of one provider and reloads them
// on demand. Loads are traced and counted; values are never logged.
type SecretsService struct {
	vault    *secrets.Vault
	metrics  *cfotel.Metrics
	backend  string
	location string
}

// NewSecretsService performs the initial load from p. A failed initial load
// returns no service.
func NewSecretsService(ctx context.Context, p *secrets.Provider, backend, location string, metrics *cfotel.Metrics) (*SecretsService, error) {
	s := &SecretsService{
		metrics:  metrics,
		backend:  backend,
		location: location,
	}

	err := s.observe(ctx, func() error {
		v, err := secrets.NewVault(ctx, p.Loader())
		if err != nil {
			return err
		}
		s.vault = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the loaded secrets. On error the previous secrets stay.
func (s *SecretsService) Reload(ctx context.Context) error {
	return s.observe(ctx, func() error { return s.vault.Reload(ctx) })
}

// Lookup returns the secret for key. Keys match case-insensitively.
func (s *SecretsService) Lookup(key string) (string, bool) { return s.vault.Lookup(key) }

// Keys returns the loaded keys in sorted order.
func (s *SecretsService) Keys() []string { return s.vault.Keys() }

// Len returns the number of loaded secrets.
func (s *SecretsService) Len() int { return s.vault.Len() }

// Redacted returns the masked form of the secret for key.
func (s *SecretsService) Redacted(key string) string { return s.vault.Redacted(key) }

// RedactString masks every loaded secret value that occurs in msg.
func (s *SecretsService) RedactString(msg string) string { return s.vault.RedactString(msg) }

// Backend returns the backend name, e.g. "dir".
func (s *SecretsService) Backend() string { return s.backend }

func (s *SecretsService) observe(ctx context.Context, load func() error) error {
	ctx, span := cfotel.StartLoadSpan(ctx, s.backend, s.location)
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("backend", s.backend))
	start := time.Now()
	s.metrics.Loads.Add(ctx, 1, attrs)

	err := load()
	elapsed := time.Since(start)
	s.metrics.LoadDuration.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil {
		s.metrics.LoadFailures.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	n := s.vault.Len()
	s.metrics.Entries.Record(ctx, int64(n), attrs)
	span.SetAttributes(attribute.Int("secrets.count", n))
	slog.Info("secrets loaded",
		"backend", s.backend,
		"location", s.location,
		"count", n,
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}
