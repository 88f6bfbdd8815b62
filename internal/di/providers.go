package di

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"PersonalQT/internal/domain/repository"
	"PersonalQT/internal/handler/web"
	"PersonalQT/internal/router"
	"PersonalQT/internal/service/backend"
	"PersonalQT/internal/service/notify"
	"PersonalQT/internal/service/ratelimit"
	"PersonalQT/internal/store"
	"PersonalQT/internal/usecase"
	"PersonalQT/pkg/cache"
	"PersonalQT/pkg/config"
	xhttp "PersonalQT/pkg/http"
	pkgkafka "PersonalQT/pkg/kafka"
	applogger "PersonalQT/pkg/logger"
	"PersonalQT/pkg/metrics"
	"PersonalQT/pkg/scheduler"
	"PersonalQT/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers
// are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithAutoCreateTopic(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the root logger. Error logs are aggregated and
// shipped to Kafka when the log collector is enabled.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.LogCollector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.LogCollector.Interval,
			CountThreshold: cfg.LogCollector.CountThreshold,
			Topic:          cfg.LogCollector.Topic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus recorder on the default registry.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New(nil)
}

// ProvideDomainMetrics exposes the recorder to the store and loader.
func ProvideDomainMetrics(r *metrics.Recorder) repository.Metrics {
	return r
}

// ProvideCache builds the configured cache backend; nil when disabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case "none":
		return nil, nil
	case "memory":
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MaxSize),
			cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
		), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc := cfg.Cache.Redis
	remote, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(net.JoinHostPort(rc.Host, strconv.Itoa(rc.Port))),
		cache.WithRedisPassword(rc.Password),
		cache.WithRedisDB(rc.DB),
		cache.WithRedisPrefix(rc.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if cfg.Cache.Backend == "layered" {
		return cache.NewLayeredCache(remote,
			cache.WithLayeredMemorySize(cfg.Cache.MaxSize),
			cache.WithLayeredMemoryTTL(cfg.Cache.TTL),
		), nil
	}
	return remote, nil
}

// ProvideHTTPClient creates the backend API client with logging and
// metrics interceptors.
func ProvideHTTPClient(cfg *config.Config, l *applogger.Logger, rec *metrics.Recorder) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithBaseURL(cfg.API.BaseURL),
		xhttp.WithTimeout(cfg.API.Timeout),
		xhttp.WithInterceptors(
			xhttp.NewMetricsInterceptor(rec),
			xhttp.NewLoggingInterceptor(l.Named("api")),
		),
	)
}

// ProvideBackend creates typed access to the journal API.
func ProvideBackend(client *xhttp.Client) *backend.Backend {
	return backend.New(client)
}

// ProvideStore creates the state container.
func ProvideStore(l *applogger.Logger, m repository.Metrics) *store.Store {
	return store.New(store.WithLogger(l), store.WithMetrics(m))
}

// ProvideLoader connects the backend lists to the store.
func ProvideLoader(
	cfg *config.Config,
	b *backend.Backend,
	st *store.Store,
	c cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Loader {
	src := usecase.Sources{
		Categories:   b.Categories,
		StockTrades:  b.StockTrades,
		FailureCases: b.FailureCases,
		DailyReviews: b.DailyReviews,
		DailyFunds:   b.DailyFunds,
	}
	opts := []usecase.LoaderOption{
		usecase.WithPageSize(cfg.Sync.Limit),
		usecase.WithLoaderMetrics(m),
		usecase.WithLoaderLogger(l),
	}
	if c != nil {
		opts = append(opts, usecase.WithCache(c, cfg.Cache.TTL))
	}
	return usecase.NewLoader(src, st, opts...)
}

// ProvideKafkaConsumer subscribes the loader to collection-changed
// notices; nil when no changes topic is configured.
func ProvideKafkaConsumer(
	cfg *config.Config,
	loader *usecase.Loader,
	m repository.Metrics,
	l *applogger.Logger,
) (*pkgkafka.Consumer, error) {
	if cfg.Kafka.ChangesTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Workers),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	if err := consumer.RegisterHandler(usecase.NewChangeHandler(cfg.Kafka.ChangesTopic, loader, m, l)); err != nil {
		return nil, err
	}
	l.Info("change consumer configured",
		applogger.Strings("brokers", cfg.Kafka.Brokers),
		applogger.String("topic", cfg.Kafka.ChangesTopic),
		applogger.String("group", cfg.Kafka.GroupID),
	)
	return consumer, nil
}

// ProvideScheduler creates the job scheduler.
func ProvideScheduler(cfg *config.Config, l *applogger.Logger) *scheduler.Scheduler {
	return scheduler.New(l, scheduler.WithJobTimeout(cfg.API.Timeout*6))
}

// ProvideRouter creates the page router served under the base path.
func ProvideRouter(cfg *config.Config) *router.Router {
	return router.New(router.WithBase(cfg.Server.BasePath))
}

// ProvideStreamer creates the websocket change streamer.
func ProvideStreamer(st *store.Store, l *applogger.Logger) *notify.Streamer {
	return notify.New(st, notify.WithLogger(l))
}

// ProvideWebHandler creates the page, state and proxy handler.
func ProvideWebHandler(
	cfg *config.Config,
	st *store.Store,
	rt *router.Router,
	loader *usecase.Loader,
	stream *notify.Streamer,
	b *backend.Backend,
	l *applogger.Logger,
) (*web.Handler, error) {
	opts := []web.Option{
		web.WithLogger(l),
		web.WithHealth(b.Health),
	}
	if cfg.Sync.RefreshRate > 0 {
		opts = append(opts, web.WithRefreshLimit(ratelimit.New(cfg.Sync.RefreshRate, cfg.Sync.RefreshBurst)))
	}
	if cfg.Proxy.Enabled {
		target, err := url.Parse(cfg.Proxy.Target)
		if err != nil {
			return nil, fmt.Errorf("proxy target: %w", err)
		}
		opts = append(opts, web.WithProxy(cfg.Proxy.Prefix, target))
	}
	return web.NewHandler(st, rt, loader, stream, opts...), nil
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, h *web.Handler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server. Shutdown closes the cache,
// then flushes the log collector, then closes the producer it flushes to.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	st *store.Store,
	loader *usecase.Loader,
	sched *scheduler.Scheduler,
	srv *xhttp.Server,
	c cache.Service,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
) *server.App {
	var opts []server.Option
	if consumer != nil {
		opts = append(opts, server.WithWorker("kafka consumer", consumer))
	}
	if c != nil {
		opts = append(opts, server.WithCloser("cache", c))
	}
	opts = append(opts, server.WithCloser("log collector", server.CloserFunc(func() error {
		l.RemoveCollector()
		return nil
	})))
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka producer", producer))
	}
	return server.New(cfg, l, st, loader, sched, srv, opts...)
}
