package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/riahunter/firmsearch/internal/core/domain"
	"github.com/riahunter/firmsearch/internal/core/ports"
)

// fallbackPenalty discounts reported confidence for every strategy hop the
// router had to take.
const fallbackPenalty = 0.75

type SearchConfig struct {
	DefaultLimit    int
	MaxLimit        int
	CandidateFactor int
	MinSimilarity   float64
	Fusion          FusionConfig
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		DefaultLimit:    10,
		MaxLimit:        50,
		CandidateFactor: 3,
		MinSimilarity:   0.35,
		Fusion:          DefaultFusionConfig(),
	}
}

// SearchUseCase runs the full pipeline: plan, route, retrieve with
// fallback, fuse, dedup, supplement coverage, enrich.
type SearchUseCase struct {
	planner  *Planner
	embedder ports.Embedder
	vectors  ports.VectorIndex
	store    ports.FirmStore
	gaps     ports.GapPublisher
	observer Observer
	cfg      SearchConfig
}

func NewSearchUseCase(
	planner *Planner,
	embedder ports.Embedder,
	vectors ports.VectorIndex,
	store ports.FirmStore,
	gaps ports.GapPublisher,
	cfg SearchConfig,
	observer Observer,
) *SearchUseCase {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultSearchConfig().DefaultLimit
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = DefaultSearchConfig().MaxLimit
	}
	if cfg.CandidateFactor <= 0 {
		cfg.CandidateFactor = DefaultSearchConfig().CandidateFactor
	}
	if cfg.Fusion.K <= 0 {
		cfg.Fusion = DefaultFusionConfig()
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &SearchUseCase{
		planner:  planner,
		embedder: embedder,
		vectors:  vectors,
		store:    store,
		gaps:     gaps,
		observer: observer,
		cfg:      cfg,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.ResultSet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("empty query"))
	}
	start := time.Now()

	limit := opts.Limit
	if limit <= 0 {
		limit = uc.cfg.DefaultLimit
	}
	if limit > uc.cfg.MaxLimit {
		limit = uc.cfg.MaxLimit
	}

	plan := uc.planner.Plan(ctx, query)
	applyOptionOverrides(&plan, opts)
	if n := plan.Constraints.TopN; n > 0 && n < limit {
		limit = n
	}

	strategies := routeStrategies(plan)
	confidence := plan.Confidence

	var (
		candidates []domain.Candidate
		used       domain.Strategy
	)
	for i, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		used = strategy

		list, err := uc.runStrategy(ctx, strategy, plan, limit)
		if err == nil && len(list) > 0 {
			candidates = list
			break
		}

		last := i == len(strategies)-1
		if err != nil {
			if last {
				// Every strategy exhausted and the final one failed hard.
				return nil, err
			}
			slog.Warn("strategy_failed", "strategy", strategy, "error", err)
		}
		if !last {
			uc.observer.StrategyFallback(strategy, strategies[i+1])
			confidence *= fallbackPenalty
		}
	}

	groups := dedupCandidates(candidates)
	if plan.Location != nil && len(groups) < limit {
		groups = uc.supplementCoverage(ctx, plan.Location, groups, limit)
	}
	total := len(groups)
	if len(groups) > limit {
		groups = groups[:limit]
	}

	results, err := uc.enrich(ctx, groups)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// Never hand back a partially assembled result set.
		return nil, err
	}

	set := &domain.ResultSet{
		Results:         results,
		StrategyUsed:    used,
		Confidence:      clamp01(confidence),
		TotalCandidates: total,
	}
	uc.observer.SearchCompleted(used, time.Since(start), len(results))
	return set, nil
}

func (uc *SearchUseCase) runStrategy(ctx context.Context, strategy domain.Strategy, plan domain.QueryPlan, limit int) ([]domain.Candidate, error) {
	switch strategy {
	case domain.StrategyHybrid:
		return uc.runHybrid(ctx, plan, limit)
	case domain.StrategyStructured:
		return uc.runStructured(ctx, plan, limit)
	case domain.StrategyLexical:
		return uc.runLexical(ctx, plan, limit)
	case domain.StrategyPeople:
		return uc.runPeople(ctx, plan, limit)
	}
	return nil, fmt.Errorf("unknown strategy %q", strategy)
}

// runHybrid retrieves semantic and lexical lists and fuses them. A
// semantic outage or zero semantic rows hands control to the next
// strategy; a lexical failure only degrades the fusion input.
func (uc *SearchUseCase) runHybrid(ctx context.Context, plan domain.QueryPlan, limit int) ([]domain.Candidate, error) {
	semantic, err := uc.runSemantic(ctx, plan, limit)
	if err != nil {
		return nil, err
	}
	if len(semantic) == 0 {
		return nil, nil
	}

	lexical, err := uc.store.SearchLexical(ctx, plan.SemanticQuery, plan.Location, plan.Constraints, limit*uc.cfg.CandidateFactor)
	if err != nil {
		slog.Warn("lexical_leg_failed", "error", err)
		lexical = nil
	}
	return fuseRRF(semantic, lexical, uc.cfg.Fusion), nil
}

func (uc *SearchUseCase) runSemantic(ctx context.Context, plan domain.QueryPlan, limit int) ([]domain.Candidate, error) {
	vector, err := uc.embedder.EmbedQuery(ctx, plan.SemanticQuery)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "embed query", err)
	}

	filter := ports.VectorFilter{
		MinAUM:   plan.Constraints.MinAUM,
		FundType: plan.Constraints.FundType,
	}
	if plan.Location != nil {
		filter.City = plan.Location.City
		filter.CityVariants = plan.Location.Variants
		filter.State = plan.Location.State
	}

	// The over-fetch factor leaves headroom for branch dedup loss.
	candidates, err := uc.vectors.Search(ctx, vector, filter, uc.cfg.MinSimilarity, limit*uc.cfg.CandidateFactor)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "vector search", err)
	}
	return candidates, nil
}

func (uc *SearchUseCase) runStructured(ctx context.Context, plan domain.QueryPlan, limit int) ([]domain.Candidate, error) {
	constraints := sortPolicyFor(plan)
	candidates, err := uc.store.SearchStructured(ctx, plan.Location, constraints, limit*uc.cfg.CandidateFactor)
	if err != nil {
		return nil, fmt.Errorf("structured search: %w", err)
	}
	for i := range candidates {
		candidates[i].Source = domain.SourceStructured
	}
	return candidates, nil
}

func (uc *SearchUseCase) runLexical(ctx context.Context, plan domain.QueryPlan, limit int) ([]domain.Candidate, error) {
	candidates, err := uc.store.SearchLexical(ctx, plan.SemanticQuery, plan.Location, plan.Constraints, limit*uc.cfg.CandidateFactor)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return fuseRRF(nil, candidates, uc.cfg.Fusion), nil
}

func (uc *SearchUseCase) runPeople(ctx context.Context, plan domain.QueryPlan, limit int) ([]domain.Candidate, error) {
	// The extracted name is the lookup key; the full query would never
	// match a person-name ILIKE.
	name := plan.PersonName
	if name == "" {
		name = plan.SemanticQuery
	}
	candidates, err := uc.store.SearchByPerson(ctx, name, limit*uc.cfg.CandidateFactor)
	if err != nil {
		return nil, fmt.Errorf("people search: %w", err)
	}
	for i := range candidates {
		candidates[i].Source = domain.SourceStructured
	}
	return candidates, nil
}

// supplementCoverage appends high-AUM firms for the location that semantic
// retrieval cannot see because they have no narrative embedding yet. The
// injected ids are reported to the embedding backfill queue, best effort.
func (uc *SearchUseCase) supplementCoverage(ctx context.Context, loc *domain.NormalizedLocation, groups []domain.DedupGroup, limit int) []domain.DedupGroup {
	exclude := make([]int64, 0, len(groups))
	for _, g := range groups {
		exclude = append(exclude, g.MemberIDs...)
	}

	extra, err := uc.store.TopByAUM(ctx, loc, exclude, limit-len(groups))
	if err != nil {
		slog.Warn("coverage_supplement_failed", "error", err)
		return groups
	}
	if len(extra) == 0 {
		return groups
	}

	gapIDs := make([]int64, 0, len(extra))
	for _, c := range extra {
		c.Source = domain.SourceSupplement
		c.SemanticScore = 0
		group := domain.DedupGroup{
			NameKey:     nameKey(c.Name),
			MemberCount: 1,
			MemberIDs:   []int64{c.FirmID},
		}
		if c.AUM != nil {
			group.AggregatedAUM = *c.AUM
		}
		group.Representative = c
		groups = append(groups, group)
		gapIDs = append(gapIDs, c.FirmID)
	}

	uc.observer.SupplementInjected(len(gapIDs))
	if uc.gaps != nil {
		if err := uc.gaps.PublishEmbeddingGap(ctx, gapIDs); err != nil {
			slog.Warn("embedding_gap_publish_failed", "error", err, "firms", len(gapIDs))
		}
	}
	return groups
}

func applyOptionOverrides(plan *domain.QueryPlan, opts domain.SearchOptions) {
	if opts.FundType != "" {
		plan.Constraints.FundType = opts.FundType
	}
	if opts.MinAUM != nil {
		plan.Constraints.MinAUM = opts.MinAUM
	}
}
