package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/riahunter/firmsearch/internal/core/domain"
	"github.com/riahunter/firmsearch/internal/core/ports"
)

func int64Ptr(v int64) *int64 { return &v }

// fakeLocations is a two-city stand-in for the gazetteer.
type fakeLocations struct{}

var fakeCities = map[string]domain.NormalizedLocation{
	"saint louis": {City: "Saint Louis", State: "MO", Variants: []string{"saint louis", "st louis", "st. louis", "stl"}, Confidence: 0.95},
	"st louis":    {City: "Saint Louis", State: "MO", Variants: []string{"saint louis", "st louis", "st. louis", "stl"}, Confidence: 0.95},
	"st. louis":   {City: "Saint Louis", State: "MO", Variants: []string{"saint louis", "st louis", "st. louis", "stl"}, Confidence: 0.95},
	"stl":         {City: "Saint Louis", State: "MO", Variants: []string{"saint louis", "st louis", "st. louis", "stl"}, Confidence: 0.95},
	"chicago":     {City: "Chicago", State: "IL", Variants: []string{"chicago"}, Confidence: 0.95},
}

func (fakeLocations) Resolve(proposed, rawQuery string) *domain.NormalizedLocation {
	if proposed != "" {
		if loc, ok := fakeCities[strings.ToLower(strings.TrimSpace(proposed))]; ok {
			out := loc
			return &out
		}
		return nil
	}
	lower := strings.ToLower(rawQuery)
	for variant, loc := range fakeCities {
		if strings.Contains(lower, variant) {
			out := loc
			out.Confidence = 0.9
			return &out
		}
	}
	return nil
}

func (fakeLocations) CanonicalState(token string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "MO", "MISSOURI":
		return "MO", true
	case "IL", "ILLINOIS":
		return "IL", true
	}
	return "", false
}

func (fakeLocations) DetectState(rawQuery string) (string, bool) {
	lower := strings.ToLower(rawQuery)
	if strings.Contains(lower, "missouri") {
		return "MO", true
	}
	return "", false
}

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) GeneratePlanJSON(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vector == nil {
		return []float32{0.1, 0.2}, nil
	}
	return f.vector, nil
}

type fakeVectorIndex struct {
	candidates []domain.Candidate
	err        error
	lastFilter ports.VectorFilter
	lastMin    float64
	lastLimit  int
	calls      int
}

func (f *fakeVectorIndex) Search(_ context.Context, _ []float32, filter ports.VectorFilter, minScore float64, limit int) ([]domain.Candidate, error) {
	f.calls++
	f.lastFilter = filter
	f.lastMin = minScore
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type fakeStore struct {
	lexical        []domain.Candidate
	lexicalErr     error
	structured     []domain.Candidate
	structuredErr  error
	people         []domain.Candidate
	peopleErr      error
	topByAUM       []domain.Candidate
	topByAUMErr    error
	peopleByFirm   map[int64][]domain.Person
	peopleByErr    error
	fundsByFirm    map[int64][]domain.PrivateFund
	fundsByErr     error
	lastExclude    []int64
	lastStructured domain.SearchConstraints
	lastPersonName string
	lexicalCalls   int
	topCalls       int
}

func (f *fakeStore) SearchLexical(_ context.Context, _ string, _ *domain.NormalizedLocation, _ domain.SearchConstraints, _ int) ([]domain.Candidate, error) {
	f.lexicalCalls++
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	return f.lexical, nil
}

func (f *fakeStore) SearchStructured(_ context.Context, _ *domain.NormalizedLocation, c domain.SearchConstraints, _ int) ([]domain.Candidate, error) {
	f.lastStructured = c
	if f.structuredErr != nil {
		return nil, f.structuredErr
	}
	return f.structured, nil
}

func (f *fakeStore) SearchByPerson(_ context.Context, name string, _ int) ([]domain.Candidate, error) {
	f.lastPersonName = name
	if f.peopleErr != nil {
		return nil, f.peopleErr
	}
	return f.people, nil
}

func (f *fakeStore) TopByAUM(_ context.Context, _ *domain.NormalizedLocation, excludeIDs []int64, _ int) ([]domain.Candidate, error) {
	f.topCalls++
	f.lastExclude = excludeIDs
	if f.topByAUMErr != nil {
		return nil, f.topByAUMErr
	}
	return f.topByAUM, nil
}

func (f *fakeStore) PeopleByFirmIDs(_ context.Context, _ []int64) (map[int64][]domain.Person, error) {
	if f.peopleByErr != nil {
		return nil, f.peopleByErr
	}
	return f.peopleByFirm, nil
}

func (f *fakeStore) FundsByFirmIDs(_ context.Context, _ []int64) (map[int64][]domain.PrivateFund, error) {
	if f.fundsByErr != nil {
		return nil, f.fundsByErr
	}
	return f.fundsByFirm, nil
}

type fakeGapPublisher struct {
	mu        sync.Mutex
	published [][]int64
	err       error
}

func (f *fakeGapPublisher) PublishEmbeddingGap(_ context.Context, firmIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, firmIDs)
	return f.err
}

type countingObserver struct {
	cacheHits        int
	cacheMisses      int
	plannerFallbacks int
	strategyHops     []string
	completed        int
	supplemented     int
}

func (o *countingObserver) PlanCacheHit()    { o.cacheHits++ }
func (o *countingObserver) PlanCacheMiss()   { o.cacheMisses++ }
func (o *countingObserver) PlannerFallback() { o.plannerFallbacks++ }

func (o *countingObserver) StrategyFallback(from, to domain.Strategy) {
	o.strategyHops = append(o.strategyHops, string(from)+"->"+string(to))
}

func (o *countingObserver) SearchCompleted(domain.Strategy, time.Duration, int) { o.completed++ }

func (o *countingObserver) SupplementInjected(count int) { o.supplemented += count }
