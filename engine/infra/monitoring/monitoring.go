package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/compozy/sqlagent/engine/infra/monitoring/middleware"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "sqlagent"

// Service encapsulates all monitoring and observability logic
type Service struct {
	meter             metric.Meter
	exporter          *prometheus.Exporter
	provider          *sdkmetric.MeterProvider
	registry          *prom.Registry
	config            *Config
	system            *systemMetrics
	agent             *AgentMetrics
	streaming         *StreamingMetrics
	initialized       bool
	initializationErr error
}

// newDisabledService creates a service instance with no-op implementations
func newDisabledService(cfg *Config, initErr error) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		config:            cfg,
		meter:             noop.NewMeterProvider().Meter(meterName),
		agent:             &AgentMetrics{},
		streaming:         &StreamingMetrics{},
		initialized:       false,
		initializationErr: initErr,
	}
}

// NewMonitoringService creates a new monitoring service with Prometheus exporter
func NewMonitoringService(ctx context.Context, cfg *Config) (*Service, error) {
	log := logger.FromContext(ctx)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		log.Debug("Monitoring disabled, using no-op meter")
		return newDisabledService(cfg, nil), nil
	}
	registry := prom.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)
	service := &Service{
		meter:       meter,
		exporter:    exporter,
		provider:    provider,
		registry:    registry,
		config:      cfg,
		initialized: true,
	}
	if service.system, err = newSystemMetrics(ctx, meter); err != nil {
		return nil, errors.Join(err, provider.Shutdown(ctx))
	}
	if service.agent, err = newAgentMetrics(meter); err != nil {
		return nil, errors.Join(err, provider.Shutdown(ctx))
	}
	if service.streaming, err = newStreamingMetrics(meter); err != nil {
		return nil, errors.Join(err, provider.Shutdown(ctx))
	}
	log.Info("Monitoring service initialized", "path", cfg.Path)
	return service, nil
}

// Meter returns the OpenTelemetry meter for custom instrumentation
func (s *Service) Meter() metric.Meter {
	return s.meter
}

// Path is where the exporter is mounted.
func (s *Service) Path() string {
	return s.config.Path
}

// GinMiddleware returns Gin middleware for HTTP metrics.
func (s *Service) GinMiddleware() gin.HandlerFunc {
	if !s.initialized {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return middleware.HTTPMetrics(s.meter)
}

// AgentRecorder returns the recorder handed to the agent loop.
func (s *Service) AgentRecorder() *AgentMetrics {
	return s.agent
}

// Streaming returns the SSE stream instruments.
func (s *Service) Streaming() *StreamingMetrics {
	return s.streaming
}

// ExporterHandler returns an HTTP handler for the metrics endpoint
func (s *Service) ExporterHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.initialized {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("Monitoring service not initialized")); err != nil {
				logger.FromContext(r.Context()).Error("Failed to write response", "error", err)
			}
			return
		}
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the monitoring service
func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	return errors.Join(s.system.close(), s.provider.Shutdown(ctx))
}

// IsInitialized returns whether the monitoring service was successfully initialized
func (s *Service) IsInitialized() bool {
	return s.initialized
}

// InitializationError returns any error that occurred during initialization
func (s *Service) InitializationError() error {
	return s.initializationErr
}

// SetAsGlobal sets this monitoring service's provider as the global OpenTelemetry meter provider
func (s *Service) SetAsGlobal() {
	if s.provider != nil {
		otel.SetMeterProvider(s.provider)
	}
}

// NewMonitoringServiceWithFallback creates a monitoring service that degrades
// to no-op instruments when initialization fails.
func NewMonitoringServiceWithFallback(ctx context.Context, cfg *Config) *Service {
	service, err := NewMonitoringService(ctx, cfg)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to initialize monitoring, using no-op implementation", "error", err)
		return newDisabledService(cfg, err)
	}
	return service
}
