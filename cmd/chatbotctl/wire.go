package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/aptrag/chatbot/ai/memory"
	"github.com/aptrag/chatbot/config"
	"github.com/aptrag/chatbot/contextbuilder"
	"github.com/aptrag/chatbot/docstore"
	"github.com/aptrag/chatbot/embedding"
	"github.com/aptrag/chatbot/jobstore"
	"github.com/aptrag/chatbot/legacyquery"
	"github.com/aptrag/chatbot/llm"
	"github.com/aptrag/chatbot/metrics"
	"github.com/aptrag/chatbot/orchestrator"
	"github.com/aptrag/chatbot/question"
	"github.com/aptrag/chatbot/response"
	"github.com/aptrag/chatbot/transform"
	"github.com/aptrag/chatbot/vectorsearch"
)

// app wires every component package together the way a long-running
// process (or, here, a CLI invocation) would, following this repo's
// accept-interfaces-at-the-boundary idiom rather than a DI framework —
// none of the example repos reach for one for a service this size.
type app struct {
	cfg *config.Config

	pool          *pgxpool.Pool
	registry      *metrics.Registry
	meterProvider *sdkmetric.MeterProvider

	jobs         *jobstore.Store
	queries      *legacyquery.Executor
	transformer  *transform.Transformer
	embedder     *embedding.Client
	docs         *docstore.Repository
	orchestrator *orchestrator.Orchestrator

	questions *question.Processor
	context   *contextbuilder.Builder
	responses *response.Generator
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	meterProvider, err := newMeterProvider(cfg.MetricsExportInterval)
	if err != nil {
		return nil, fmt.Errorf("init metrics exporter: %w", err)
	}
	otel.SetMeterProvider(meterProvider)

	registry := metrics.New()

	jobs := jobstore.New(pool)
	queries := legacyquery.New(pool, registry)
	transformer := transform.New()
	docs := docstore.New(pool)

	embedder := embedding.New(newGeminiEmbeddingProvider(cfg.GoogleAPIKey), embedding.Config{
		RateLimitPerMinute: cfg.EmbeddingRateLimitPerMinute,
		CacheEnabled:       cfg.EmbeddingEnableCache,
		CacheTTL:           time.Duration(cfg.EmbeddingCacheTTLHours) * time.Hour,
		CacheCapacity:      1000,
		Dimension:          cfg.EmbeddingDimension,
	})

	orchCfg := orchestrator.FromAppConfig(cfg)
	orch := orchestrator.New(jobs, queries, transformer, embedder, docs, registry, orchCfg)

	alertLog := metrics.NewAlertLog(500)
	orch = orch.WithAlerting(metrics.NewAlertEvaluator(alertLog, registry), 20)

	searchCache := vectorsearch.NewCache(1000, cfg.VectorSearchCacheTTL)
	search := vectorsearch.New(pool, searchCache, registry)

	builder := contextbuilder.New(search, contextbuilder.WithMaxContextTokens(cfg.ContextTokenBudget))

	processor := question.New(embedder)

	convMemory, err := memory.NewTopicTrackingStore(memory.NewInMemoryMemory(50))
	if err != nil {
		return nil, fmt.Errorf("init conversation memory: %w", err)
	}

	llmClient := llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	responder := response.New(llmClient, convMemory, registry)

	return &app{
		cfg:           cfg,
		pool:          pool,
		registry:      registry,
		meterProvider: meterProvider,
		jobs:          jobs,
		queries:       queries,
		transformer:   transformer,
		embedder:      embedder,
		docs:          docs,
		orchestrator:  orch,
		questions:     processor,
		context:       builder,
		responses:     responder,
	}, nil
}

// newMeterProvider builds the process's OTel MeterProvider, exporting to
// stdout on a periodic reader (§4.B's metrics are primarily consumed via
// Registry.Snapshot/RecentSamples for the in-process ring; this export
// path is what carries the same counters/histograms to an external
// collector once one is configured in front of the process's stdout).
func newMeterProvider(interval time.Duration) (*sdkmetric.MeterProvider, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), nil
}

func (a *app) close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.meterProvider.Shutdown(shutdownCtx)
	a.pool.Close()
}
