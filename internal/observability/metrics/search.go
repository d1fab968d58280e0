package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

// SearchMetrics implements the pipeline observer over a prometheus registry.
type SearchMetrics struct {
	searchesTotal     *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	searchResults     *prometheus.HistogramVec
	strategyFallbacks *prometheus.CounterVec
	planCacheHits     prometheus.Counter
	planCacheMisses   prometheus.Counter
	plannerFallbacks  prometheus.Counter
	supplementsTotal  prometheus.Counter
	supplementedFirms prometheus.Counter
}

func NewSearchMetrics(registry *prometheus.Registry) *SearchMetrics {
	searchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firmsearch",
			Subsystem: "pipeline",
			Name:      "searches_total",
			Help:      "Total completed searches by final strategy.",
		},
		[]string{"strategy"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "firmsearch",
			Subsystem: "pipeline",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "firmsearch",
			Subsystem: "pipeline",
			Name:      "search_results",
			Help:      "Distribution of result counts per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
		[]string{"strategy"},
	)
	strategyFallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firmsearch",
			Subsystem: "pipeline",
			Name:      "strategy_fallbacks_total",
			Help:      "Total fallbacks from one retrieval strategy to the next.",
		},
		[]string{"from", "to"},
	)
	planCacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "firmsearch",
			Subsystem: "planner",
			Name:      "cache_hits_total",
			Help:      "Total query plans served from cache.",
		},
	)
	planCacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "firmsearch",
			Subsystem: "planner",
			Name:      "cache_misses_total",
			Help:      "Total query plans computed fresh.",
		},
	)
	plannerFallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "firmsearch",
			Subsystem: "planner",
			Name:      "fallbacks_total",
			Help:      "Total plans produced by the heuristic parser instead of the model.",
		},
	)
	supplementsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "firmsearch",
			Subsystem: "pipeline",
			Name:      "supplement_injections_total",
			Help:      "Total searches that received coverage supplements.",
		},
	)
	supplementedFirms := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "firmsearch",
			Subsystem: "pipeline",
			Name:      "supplemented_firms_total",
			Help:      "Total firms injected by the coverage supplementer.",
		},
	)

	registry.MustRegister(
		searchesTotal,
		searchDuration,
		searchResults,
		strategyFallbacks,
		planCacheHits,
		planCacheMisses,
		plannerFallbacks,
		supplementsTotal,
		supplementedFirms,
	)

	return &SearchMetrics{
		searchesTotal:     searchesTotal,
		searchDuration:    searchDuration,
		searchResults:     searchResults,
		strategyFallbacks: strategyFallbacks,
		planCacheHits:     planCacheHits,
		planCacheMisses:   planCacheMisses,
		plannerFallbacks:  plannerFallbacks,
		supplementsTotal:  supplementsTotal,
		supplementedFirms: supplementedFirms,
	}
}

func (m *SearchMetrics) PlanCacheHit() {
	m.planCacheHits.Inc()
}

func (m *SearchMetrics) PlanCacheMiss() {
	m.planCacheMisses.Inc()
}

func (m *SearchMetrics) PlannerFallback() {
	m.plannerFallbacks.Inc()
}

func (m *SearchMetrics) StrategyFallback(from, to domain.Strategy) {
	m.strategyFallbacks.WithLabelValues(string(from), string(to)).Inc()
}

func (m *SearchMetrics) SearchCompleted(strategy domain.Strategy, duration time.Duration, results int) {
	label := string(strategy)
	m.searchesTotal.WithLabelValues(label).Inc()
	m.searchDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.searchResults.WithLabelValues(label).Observe(float64(results))
}

func (m *SearchMetrics) SupplementInjected(count int) {
	m.supplementsTotal.Inc()
	m.supplementedFirms.Add(float64(count))
}
