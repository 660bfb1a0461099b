package di

import (
	"context"
	"fmt"
	"time"

	"FinBrief/internal/domain/repository"
	domsvc "FinBrief/internal/domain/service"
	"FinBrief/internal/handler/api"
	internalrepo "FinBrief/internal/repository"
	"FinBrief/internal/services/collab"
	"FinBrief/internal/services/gemini"
	gspeech "FinBrief/internal/services/speech"
	"FinBrief/internal/usecase"
	"FinBrief/pkg/cache"
	pkgch "FinBrief/pkg/clickhouse"
	"FinBrief/pkg/config"
	xhttp "FinBrief/pkg/http"
	"FinBrief/pkg/http/middleware"
	pkgkafka "FinBrief/pkg/kafka"
	applogger "FinBrief/pkg/logger"
	"FinBrief/pkg/metrics"
	"FinBrief/pkg/server"
)

const serviceName = "finbrief"

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", serviceName), applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes brief events to Kafka when a producer exists.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
}

// ProvideClickHouseClient creates a ClickHouse client and the corpus schema,
// or nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.CorpusSchema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCorpusStore returns nil when no ClickHouse client is configured.
func ProvideCorpusStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.CorpusStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHCorpusStore(ch.DB(), cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table, l)
}

// ProvideCache builds the market cache backend named by cache.type.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	redisCache := func() (*cache.RedisCache, error) {
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Redis.Host),
			cache.WithRedisPort(cfg.Redis.Port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	}

	switch cfg.Cache.Type {
	case "memory":
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
	case "redis":
		rc, err := redisCache()
		if err != nil {
			return nil, err
		}
		return rc, nil
	case "layered":
		rc, err := redisCache()
		if err != nil {
			return nil, err
		}
		return cache.NewLayeredCache(rc, cfg.Cache.MarketTTL/2, cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
	default:
		return nil, nil
	}
}

// ProvideGenerator creates the Gemini client when a collaborator uses it.
func ProvideGenerator(cfg *config.Config) (gemini.Generator, error) {
	if !cfg.UsesGemini() {
		return nil, nil
	}
	c, err := gemini.NewClient(context.Background(), cfg.Gemini.APIKey,
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithTemperature(cfg.Gemini.Temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return c, nil
}

// ProvideTranscriber selects the speech-to-text backend.
func ProvideTranscriber(cfg *config.Config) (domsvc.Transcriber, error) {
	if cfg.Services.Transcriber.Backend == "google" {
		t, err := gspeech.NewTranscriber(context.Background(), cfg.Speech.LanguageCode, cfg.Speech.SampleRateHertz)
		if err != nil {
			return nil, fmt.Errorf("speech: %w", err)
		}
		return t, nil
	}
	return collab.NewHTTPTranscriber(cfg.Services.Transcriber.URL, cfg.Pipeline.Timeouts.Transcribe, cfg.Services.RetryAttempts), nil
}

// ProvideIntentExtractor selects the intent backend.
func ProvideIntentExtractor(cfg *config.Config, gen gemini.Generator) domsvc.IntentExtractor {
	if cfg.Services.Intent.Backend == "gemini" {
		return gemini.NewIntentExtractor(gen)
	}
	return collab.NewHTTPIntentExtractor(cfg.Services.Intent.URL, cfg.Pipeline.Timeouts.Intent, cfg.Services.RetryAttempts)
}

// ProvideMarketFetcher wraps the finance service with the market cache.
func ProvideMarketFetcher(cfg *config.Config, c cache.Service, l *applogger.Logger) domsvc.MarketDataFetcher {
	fetcher := collab.NewHTTPMarketFetcher(cfg.Services.Market.URL, cfg.Pipeline.Timeouts.Market, cfg.Services.RetryAttempts)
	if c == nil {
		return fetcher
	}
	return collab.NewCachedMarketFetcher(fetcher, c, cfg.Cache.MarketTTL, l)
}

// ProvideBriefGenerator selects the narrative backend.
func ProvideBriefGenerator(cfg *config.Config, gen gemini.Generator) domsvc.BriefGenerator {
	if cfg.Services.Brief.Backend == "gemini" {
		return gemini.NewBriefGenerator(gen)
	}
	return collab.NewHTTPBriefGenerator(cfg.Services.Brief.URL, cfg.Pipeline.Timeouts.Brief, cfg.Services.RetryAttempts)
}

// ProvideSynthesizer creates the text-to-speech client.
func ProvideSynthesizer(cfg *config.Config) domsvc.Synthesizer {
	return collab.NewHTTPSynthesizer(cfg.Services.Synthesizer.URL, cfg.Services.Synthesizer.Voice, cfg.Pipeline.Timeouts.Synthesize, cfg.Services.RetryAttempts)
}

// ProvideCollaborators groups the pipeline collaborators.
func ProvideCollaborators(
	t domsvc.Transcriber,
	i domsvc.IntentExtractor,
	m domsvc.MarketDataFetcher,
	b domsvc.BriefGenerator,
	s domsvc.Synthesizer,
) usecase.Collaborators {
	return usecase.Collaborators{Transcriber: t, Intent: i, Market: m, Brief: b, Synthesizer: s}
}

// ProvidePipelineConfig copies the pipeline section into the usecase config.
func ProvidePipelineConfig(cfg *config.Config) usecase.PipelineConfig {
	p := cfg.Pipeline
	return usecase.PipelineConfig{
		AudioEnabled:      p.AudioEnabled,
		TopK:              p.TopK,
		MarketConcurrency: p.MarketConcurrency,
		CorpusLimit:       p.CorpusLimit,
		Timeouts: usecase.StageTimeouts{
			Transcribe: p.Timeouts.Transcribe,
			Intent:     p.Timeouts.Intent,
			Market:     p.Timeouts.Market,
			Corpus:     p.Timeouts.Corpus,
			Brief:      p.Timeouts.Brief,
			Synthesize: p.Timeouts.Synthesize,
		},
		Retrieval: usecase.RetrievalConfig{
			SimilarityWeight: p.Retrieval.SimilarityWeight,
			CompanyWeight:    p.Retrieval.CompanyWeight,
			RecencyWeight:    p.Retrieval.RecencyWeight,
			HalfLife:         p.Retrieval.HalfLife,
		},
	}
}

// ProvideOrchestrator creates the pipeline use case.
func ProvideOrchestrator(
	collabs usecase.Collaborators,
	pcfg usecase.PipelineConfig,
	corpus repository.CorpusStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Orchestrator {
	opts := []usecase.Option{usecase.WithLogger(l), usecase.WithMetrics(m)}
	if corpus != nil {
		opts = append(opts, usecase.WithCorpus(corpus))
	}
	return usecase.NewOrchestrator(collabs, pcfg, opts...)
}

// ProvideRateLimiter creates the per-client limiter of the process endpoint.
func ProvideRateLimiter(cfg *config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
}

// ProvideBriefHandler creates the HTTP handler of the process endpoint.
func ProvideBriefHandler(
	l *applogger.Logger,
	orch *usecase.Orchestrator,
	events repository.EventPublisher,
	rl *middleware.RateLimiter,
	cfg *config.Config,
) *api.BriefEchoHandler {
	return api.NewBriefEchoHandler(l, orch, events, rl, cfg.Server.MaxUploadBytes)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.BriefEchoHandler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithBodyLimit(cfg.Server.MaxUploadBytes+1<<20),
		xhttp.WithLogger(l),
	)
}

// ProvideKafkaConsumer creates the corpus ingest consumer. It is nil unless
// both Kafka and the corpus store are enabled.
func ProvideKafkaConsumer(cfg *config.Config, corpus repository.CorpusStore, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || corpus == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewCorpusIngestHandler(cfg.Kafka.CorpusTopic, corpus, cfg.Kafka.ChunkWords, l))
	return consumer, nil
}

// ProvideApp assembles the application and attaches the error-digest
// collector when Kafka is available.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	events repository.EventPublisher,
	ch *pkgch.Client,
	c cache.Service,
	t domsvc.Transcriber,
) *server.App {
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			Service:        serviceName,
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}

	var closers []server.Closer
	if closer, ok := t.(server.Closer); ok {
		closers = append(closers, closer)
	}
	if c != nil {
		closers = append(closers, c)
	}
	if ch != nil {
		closers = append(closers, ch)
	}
	// events owns the producer; closing it flushes pending messages.
	closers = append(closers, events)

	var worker server.Worker
	if consumer != nil {
		worker = consumer
	}
	return server.New(cfg, l, srv, worker, closers...)
}
