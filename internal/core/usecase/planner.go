package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/riahunter/firmsearch/internal/core/domain"
	"github.com/riahunter/firmsearch/internal/core/ports"
)

const maxQueryChars = 500

// PlannerConfig bounds the plan cache and the language-model call budget.
type PlannerConfig struct {
	CacheSize     int
	CacheTTL      time.Duration
	LLMRateLimit  rate.Limit
	LLMRateBurst  int
	MinConfidence float64
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		CacheSize:    1000,
		CacheTTL:     time.Hour,
		LLMRateLimit: rate.Limit(5),
		LLMRateBurst: 10,
	}
}

// Planner turns raw query text into a QueryPlan. The language-model path is
// best-effort: on any failure (transport, malformed JSON, missing keys, or
// an exhausted rate budget) the deterministic heuristic parser takes over,
// so Plan never fails.
type Planner struct {
	generator ports.PlanGenerator
	locations ports.LocationResolver
	cache     *expirable.LRU[string, domain.QueryPlan]
	limiter   *rate.Limiter
	observer  Observer
}

func NewPlanner(generator ports.PlanGenerator, locations ports.LocationResolver, cfg PlannerConfig, observer Observer) *Planner {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultPlannerConfig().CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultPlannerConfig().CacheTTL
	}
	if cfg.LLMRateLimit <= 0 {
		cfg.LLMRateLimit = DefaultPlannerConfig().LLMRateLimit
	}
	if cfg.LLMRateBurst <= 0 {
		cfg.LLMRateBurst = DefaultPlannerConfig().LLMRateBurst
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Planner{
		generator: generator,
		locations: locations,
		cache:     expirable.NewLRU[string, domain.QueryPlan](cfg.CacheSize, nil, cfg.CacheTTL),
		limiter:   rate.NewLimiter(cfg.LLMRateLimit, cfg.LLMRateBurst),
		observer:  observer,
	}
}

// Plan builds a QueryPlan for the given raw query. Oversized input is
// truncated, never rejected.
func (p *Planner) Plan(ctx context.Context, rawQuery string) domain.QueryPlan {
	query := strings.TrimSpace(rawQuery)
	if runes := []rune(query); len(runes) > maxQueryChars {
		query = string(runes[:maxQueryChars])
	}

	key := planCacheKey(query)
	if cached, ok := p.cache.Get(key); ok {
		p.observer.PlanCacheHit()
		return cached
	}
	p.observer.PlanCacheMiss()

	plan, err := p.planWithModel(ctx, query)
	if err != nil {
		if !domain.IsKind(err, errRateBudget) {
			slog.Warn("planner_model_fallback", "error", err)
		}
		p.observer.PlannerFallback()
		plan = p.parseHeuristic(query)
	}

	if plan.Location == nil {
		// Secondary pass: the primary path proposed no location, but the
		// raw text may still contain a canonical variant.
		plan.Location = p.locations.Resolve("", query)
	}
	plan.Strategy = strategyForPlan(plan)

	p.cache.Add(key, plan)
	return plan
}

var errRateBudget = fmt.Errorf("llm rate budget exhausted")

func (p *Planner) planWithModel(ctx context.Context, query string) (domain.QueryPlan, error) {
	if p.generator == nil {
		return domain.QueryPlan{}, domain.WrapError(domain.ErrPlanning, "plan query", fmt.Errorf("no generator configured"))
	}
	if !p.limiter.Allow() {
		return domain.QueryPlan{}, domain.WrapError(domain.ErrPlanning, "plan query", errRateBudget)
	}

	raw, err := p.generator.GeneratePlanJSON(ctx, buildPlanPrompt(query))
	if err != nil {
		return domain.QueryPlan{}, domain.WrapError(domain.ErrPlanning, "plan query", err)
	}

	var doc planDocument
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &doc); err != nil {
		return domain.QueryPlan{}, domain.WrapError(domain.ErrPlanning, "parse plan json", err)
	}
	return p.planFromDocument(doc, query)
}

// planDocument is the JSON schema the model is instructed to return.
type planDocument struct {
	SemanticQuery string   `json:"semantic_query"`
	PersonName    string   `json:"person_name"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	SortBy        string   `json:"sort_by"`
	SortOrder     string   `json:"sort_order"`
	MinAUM        *int64   `json:"min_aum"`
	MaxAUM        *int64   `json:"max_aum"`
	FundType      string   `json:"fund_type"`
	Services      []string `json:"services"`
	Intent        string   `json:"intent"`
	TopN          int      `json:"top_n"`
	Confidence    float64  `json:"confidence"`
}

func (p *Planner) planFromDocument(doc planDocument, query string) (domain.QueryPlan, error) {
	doc.SemanticQuery = strings.TrimSpace(doc.SemanticQuery)
	if doc.SemanticQuery == "" {
		return domain.QueryPlan{}, domain.WrapError(domain.ErrPlanning, "validate plan", fmt.Errorf("missing semantic_query"))
	}
	intent, ok := parseIntent(doc.Intent)
	if !ok {
		return domain.QueryPlan{}, domain.WrapError(domain.ErrPlanning, "validate plan", fmt.Errorf("unknown intent %q", doc.Intent))
	}

	plan := domain.QueryPlan{
		SemanticQuery: doc.SemanticQuery,
		PersonName:    strings.TrimSpace(doc.PersonName),
		Intent:        intent,
		Confidence:    clamp01(doc.Confidence),
		Constraints: domain.SearchConstraints{
			SortBy:           parseSortField(doc.SortBy),
			SortOrder:        parseSortOrder(doc.SortOrder),
			MinAUM:           doc.MinAUM,
			MaxAUM:           doc.MaxAUM,
			FundType:         strings.TrimSpace(doc.FundType),
			RequiredServices: doc.Services,
			TopN:             doc.TopN,
		},
	}
	plan.Location = p.resolvePlannerLocation(doc.City, doc.State, query, plan.Confidence)
	return plan, nil
}

// resolvePlannerLocation prefers canonicalizing the model's proposed city
// over re-scanning the raw query. A proposal with no canonical match is
// kept as-is with the model's own confidence, clamped.
func (p *Planner) resolvePlannerLocation(city, state, query string, llmConfidence float64) *domain.NormalizedLocation {
	city = strings.TrimSpace(city)
	if loc := p.locations.Resolve(city, query); loc != nil {
		return loc
	}
	if city == "" {
		return nil
	}
	loc := &domain.NormalizedLocation{
		City:       city,
		Variants:   []string{city},
		Confidence: clamp01(llmConfidence),
	}
	if code, ok := p.locations.CanonicalState(state); ok {
		loc.State = code
	}
	return loc
}

func strategyForPlan(plan domain.QueryPlan) domain.Strategy {
	switch {
	case plan.Intent == domain.IntentPeopleLookup:
		return domain.StrategyPeople
	case plan.Intent == domain.IntentSuperlative && plan.Location != nil:
		return domain.StrategyStructured
	default:
		return domain.StrategyHybrid
	}
}

func parseIntent(s string) (domain.Intent, bool) {
	switch domain.Intent(strings.ToLower(strings.TrimSpace(s))) {
	case domain.IntentSuperlative:
		return domain.IntentSuperlative, true
	case domain.IntentLocation:
		return domain.IntentLocation, true
	case domain.IntentPeopleLookup:
		return domain.IntentPeopleLookup, true
	case domain.IntentMixed:
		return domain.IntentMixed, true
	}
	return "", false
}

func parseSortField(s string) domain.SortField {
	switch domain.SortField(strings.ToLower(strings.TrimSpace(s))) {
	case domain.SortByAUM:
		return domain.SortByAUM
	case domain.SortByFundCount:
		return domain.SortByFundCount
	case domain.SortByRelevance:
		return domain.SortByRelevance
	}
	return ""
}

func parseSortOrder(s string) domain.SortOrder {
	switch domain.SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case domain.SortAsc:
		return domain.SortAsc
	case domain.SortDesc:
		return domain.SortDesc
	}
	return ""
}

func planCacheKey(query string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(query)))
	return fmt.Sprintf("%x", h.Sum64())
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
