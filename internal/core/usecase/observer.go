package usecase

import (
	"time"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

// Observer receives pipeline telemetry. The prometheus implementation
// lives in internal/observability/metrics; tests use NoopObserver.
type Observer interface {
	PlanCacheHit()
	PlanCacheMiss()
	PlannerFallback()
	StrategyFallback(from, to domain.Strategy)
	SearchCompleted(strategy domain.Strategy, duration time.Duration, results int)
	SupplementInjected(count int)
}

type NoopObserver struct{}

func (NoopObserver) PlanCacheHit()    {}
func (NoopObserver) PlanCacheMiss()   {}
func (NoopObserver) PlannerFallback() {}

func (NoopObserver) StrategyFallback(_, _ domain.Strategy) {}

func (NoopObserver) SearchCompleted(domain.Strategy, time.Duration, int) {}

func (NoopObserver) SupplementInjected(int) {}
