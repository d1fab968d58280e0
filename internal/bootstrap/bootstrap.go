package bootstrap

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/riahunter/firmsearch/internal/config"
	"github.com/riahunter/firmsearch/internal/core/ports"
	"github.com/riahunter/firmsearch/internal/core/usecase"
	"github.com/riahunter/firmsearch/internal/infrastructure/gazetteer"
	"github.com/riahunter/firmsearch/internal/infrastructure/llm/ollama"
	"github.com/riahunter/firmsearch/internal/infrastructure/queue/nats"
	"github.com/riahunter/firmsearch/internal/infrastructure/repository/postgres"
	"github.com/riahunter/firmsearch/internal/infrastructure/resilience"
	"github.com/riahunter/firmsearch/internal/infrastructure/vector/qdrant"
	"github.com/riahunter/firmsearch/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Searcher    ports.FirmSearcher
	HTTPMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewFirmRepository(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var locations *gazetteer.Gazetteer
	if cfg.GazetteerPath != "" {
		locations, err = gazetteer.NewFromFile(cfg.GazetteerPath)
	} else {
		locations, err = gazetteer.New()
	}
	if err != nil {
		return nil, fmt.Errorf("load gazetteer: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	generator := ollama.NewPlanGenerator(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)

	vectors := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	httpMetrics := metrics.NewHTTPServerMetrics("firmsearch-api")
	searchMetrics := metrics.NewSearchMetrics(httpMetrics.Registry())

	planner := usecase.NewPlanner(generator, locations, usecase.PlannerConfig{
		CacheSize:    cfg.PlanCacheSize,
		CacheTTL:     cfg.PlanCacheTTL,
		LLMRateLimit: rate.Limit(cfg.PlannerRateLimit),
		LLMRateBurst: cfg.PlannerRateBurst,
	}, searchMetrics)

	searcher := usecase.NewSearchUseCase(
		planner,
		embedder,
		vectors,
		store,
		queue,
		usecase.SearchConfig{
			DefaultLimit:    cfg.SearchTopK,
			MaxLimit:        cfg.SearchMaxLimit,
			CandidateFactor: cfg.SearchCandidateFactor,
			MinSimilarity:   cfg.SearchMinSimilarity,
			Fusion: usecase.FusionConfig{
				K:              cfg.RRFK,
				SemanticWeight: cfg.SemanticWeight,
				LexicalWeight:  cfg.LexicalWeight,
			},
		},
		searchMetrics,
	)

	return &App{
		Config:      cfg,
		Searcher:    searcher,
		HTTPMetrics: httpMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
