package usecase

import "github.com/riahunter/firmsearch/internal/core/domain"

// routeStrategies expands the plan's entry strategy into the ordered
// fallback chain. The entry point is what the planner recorded in
// plan.Strategy; plans built without one are re-derived here.
//
//  1. people lookup runs the people strategy alone;
//  2. structured entry is precision-sensitive and must not depend on a
//     similarity threshold hiding the true largest firm, so the exact
//     sort goes first with hybrid recall as the fallback;
//  3. everything else gets semantic recall first, then structured, then
//     a plain lexical match as the last resort.
func routeStrategies(plan domain.QueryPlan) []domain.Strategy {
	entry := plan.Strategy
	if entry == "" {
		entry = strategyForPlan(plan)
	}
	switch entry {
	case domain.StrategyPeople:
		return []domain.Strategy{domain.StrategyPeople}
	case domain.StrategyStructured:
		return []domain.Strategy{domain.StrategyStructured, domain.StrategyHybrid}
	default:
		return []domain.Strategy{domain.StrategyHybrid, domain.StrategyStructured, domain.StrategyLexical}
	}
}

// sortPolicyFor fills the explicit sort the structured retriever must use
// when the plan left it open.
func sortPolicyFor(plan domain.QueryPlan) domain.SearchConstraints {
	c := plan.Constraints
	if c.SortBy == "" || c.SortBy == domain.SortByRelevance {
		c.SortBy = domain.SortByAUM
	}
	if c.SortOrder == "" {
		c.SortOrder = domain.SortDesc
	}
	return c
}
