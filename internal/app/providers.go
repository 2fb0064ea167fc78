package app

import (
	"context"

	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	generationhttp "github.com/modeyang/M-TraeSoloProduct/internal/adapter/inbound/http/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/adapter/outbound/gemini"
	redisadapter "github.com/modeyang/M-TraeSoloProduct/internal/adapter/outbound/redis"
	"github.com/modeyang/M-TraeSoloProduct/internal/adapter/outbound/resilience"
	s3adapter "github.com/modeyang/M-TraeSoloProduct/internal/adapter/outbound/s3"
	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/config"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/events"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/session"
	"github.com/modeyang/M-TraeSoloProduct/internal/port/outbound"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/cache"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/logger"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/metrics"
)

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideEventBus,
	ProvideRedisClient,
)

// ProvideLogger creates the zap logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, nil, err
	}
	return log, func() { _ = log.Sync() }, nil
}

// ProvideMetrics creates a metrics instance.
func ProvideMetrics(cfg *config.Config) *metrics.Metrics {
	return metrics.New(cfg.Metrics.Namespace)
}

// ProvideEventBus creates the in-process event bus.
func ProvideEventBus(log *zap.Logger) *events.Bus {
	return events.NewBus(log)
}

// ProvideRedisClient creates a Redis client. Redis is optional: nil is
// returned when it is not configured or unreachable.
func ProvideRedisClient(cfg *config.Config, log *zap.Logger) (goredis.UniversalClient, func()) {
	if !cfg.Redis.Enabled() {
		return nil, func() {}
	}
	client, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Warn("Redis connection failed, continuing without status publishing", zap.Error(err))
		return nil, func() {}
	}
	return client, func() { _ = client.Close() }
}

// ===== Outbound Adapter Providers =====

// OutboundSet provides outbound adapters.
var OutboundSet = wire.NewSet(
	ProvideStatusPublisher,
	ProvideUploadStore,
	ProvideDescriber,
	ProvideGenerator,
)

// ProvideStatusPublisher creates the Redis status publisher, or nil without Redis.
func ProvideStatusPublisher(cfg *config.Config, client goredis.UniversalClient) outbound.StatusPublisherPort {
	if client == nil {
		return nil
	}
	return redisadapter.NewStatusPublisherAdapter(client, cfg.Redis.Channel, cfg.Redis.KeyPrefix, cfg.Redis.StatusTTL)
}

// ProvideUploadStore creates the S3 upload archive, or nil when storage is
// not configured.
func ProvideUploadStore(cfg *config.Config, log *zap.Logger) (outbound.UploadStorePort, error) {
	if !cfg.Storage.Enabled() {
		return nil, nil
	}
	client, err := s3adapter.NewClient(context.Background(), cfg.Storage)
	if err != nil {
		return nil, err
	}
	return s3adapter.NewUploadStore(client, cfg.Storage.Bucket, cfg.Storage.Prefix, cfg.Storage.PresignExpiry, log), nil
}

// ProvideDescriber creates the Gemini describer when an API key is set and
// the canned describer otherwise.
func ProvideDescriber(cfg *config.Config, log *zap.Logger) (generation.Describer, error) {
	if !cfg.Gemini.Enabled() {
		log.Info("using canned image descriptions")
		return generation.NewCannedDescriber(cfg.Generation.DescriptionDelay), nil
	}
	client, err := gemini.NewClient(context.Background(), cfg.Gemini.APIKey)
	if err != nil {
		return nil, err
	}
	return gemini.NewDescriber(client, gemini.Config{
		Model:        cfg.Gemini.Model,
		Timeout:      cfg.Gemini.Timeout,
		MaxDimension: cfg.Gemini.MaxDimension,
	}, log), nil
}

// ProvideGenerator creates the simulated backend behind a circuit breaker.
func ProvideGenerator(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) generation.Generator {
	sim := generation.NewSimulator(
		generation.WithFailureRate(cfg.Generation.FailureRate),
		generation.WithSimulatorLogger(log),
	)
	return resilience.NewBreakerGenerator(sim, resilience.Settings{
		Name:             "simulator",
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         cfg.Breaker.Interval,
		Timeout:          cfg.Breaker.Timeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OnStateChange:    m.SetBreakerOpen,
	}, log)
}

// ===== Session Providers =====

// SessionSet provides the session manager.
var SessionSet = wire.NewSet(
	session.NewMemoryRepository,
	ProvideSessionConfig,
	ProvideSessionManager,
)

// ProvideSessionConfig maps generation settings to the session manager.
func ProvideSessionConfig(cfg *config.Config) *session.Config {
	return &session.Config{
		TimeoutGrace:  cfg.Generation.TimeoutGrace,
		SessionTTL:    cfg.Generation.SessionTTL,
		SweepInterval: cfg.Generation.SweepInterval,
		MaxSessions:   cfg.Generation.MaxSessions,
	}
}

// ProvideSessionManager creates the session manager. The cleanup closes
// every open session.
func ProvideSessionManager(
	repo session.Repository,
	gen generation.Generator,
	describer generation.Describer,
	bus *events.Bus,
	log *zap.Logger,
	scfg *session.Config,
) (*session.Manager, func()) {
	m := session.NewManager(repo, gen, describer, bus, log, scfg)
	return m, m.Stop
}

// ===== Inbound Adapter Providers =====

// HandlerSet provides HTTP handlers.
var HandlerSet = wire.NewSet(
	ProvideGenerationHandler,
)

// ProvideGenerationHandler creates the generation HTTP handler.
func ProvideGenerationHandler(
	cfg *config.Config,
	manager *session.Manager,
	uploads outbound.UploadStorePort,
	statuses outbound.StatusPublisherPort,
	m *metrics.Metrics,
	log *zap.Logger,
) *generationhttp.Handler {
	opts := []generationhttp.Option{
		generationhttp.WithMetrics(m),
		generationhttp.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
	}
	if uploads != nil {
		opts = append(opts, generationhttp.WithUploadStore(uploads))
	}
	if statuses != nil {
		opts = append(opts, generationhttp.WithStatusArchive(statuses))
	}
	return generationhttp.NewHandler(manager, log, opts...)
}

// AppSet is the complete provider set.
var AppSet = wire.NewSet(
	InfraSet,
	OutboundSet,
	SessionSet,
	HandlerSet,
)
