package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "secretsdir"

// Metrics holds all secretsdir metric instruments.
type Metrics struct {
	Loads        metric.Int64Counter
	LoadFailures metric.Int64Counter
	Entries      metric.Int64Histogram
	LoadDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Loads, err = meter.Int64Counter("secretsdir.loads",
		metric.WithDescription("Number of secrets loads attempted"))
	if err != nil {
		return nil, err
	}

	m.LoadFailures, err = meter.Int64Counter("secretsdir.load_failures",
		metric.WithDescription("Number of secrets loads that failed"))
	if err != nil {
		return nil, err
	}

	m.Entries, err = meter.Int64Histogram("secretsdir.entries",
		metric.WithDescription("Number of entries produced by a successful load"))
	if err != nil {
		return nil, err
	}

	m.LoadDuration, err = meter.Float64Histogram("secretsdir.load.duration_seconds",
		metric.WithDescription("Secrets load duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
