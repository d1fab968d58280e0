package domain

// Intent is the planner's classification of what the user is asking for.
type Intent string

const (
	IntentSuperlative  Intent = "superlative"
	IntentLocation     Intent = "location"
	IntentPeopleLookup Intent = "people_lookup"
	IntentMixed        Intent = "mixed"
)

// Strategy names a retrieval path through the pipeline.
type Strategy string

const (
	StrategyHybrid     Strategy = "hybrid"
	StrategyStructured Strategy = "structured"
	StrategyLexical    Strategy = "lexical"
	StrategyPeople     Strategy = "people"
)

type SortField string

const (
	SortByRelevance SortField = "relevance"
	SortByAUM       SortField = "aum"
	SortByFundCount SortField = "fund_count"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// NormalizedLocation is a canonical (city, state) pair. Variants always
// includes the canonical city name. State is a 2-letter code when present.
type NormalizedLocation struct {
	City       string   `json:"city"`
	State      string   `json:"state"`
	Variants   []string `json:"variants,omitempty"`
	Confidence float64  `json:"confidence"`
}

// SearchConstraints carries the structured filters extracted from a query.
// Zero values mean unconstrained.
type SearchConstraints struct {
	SortBy           SortField `json:"sort_by,omitempty"`
	SortOrder        SortOrder `json:"sort_order,omitempty"`
	MinAUM           *int64    `json:"min_aum,omitempty"`
	MaxAUM           *int64    `json:"max_aum,omitempty"`
	RequiredServices []string  `json:"required_services,omitempty"`
	FundType         string    `json:"fund_type,omitempty"`
	TopN             int       `json:"top_n,omitempty"`
}

// QueryPlan is the structured interpretation of one raw query. It is built
// once per request by the planner and not mutated afterwards, except for a
// secondary location pass when the primary path found none.
type QueryPlan struct {
	SemanticQuery string `json:"semantic_query"`
	// PersonName is the lookup key for people-lookup intent: the person
	// or firm fragment the query asks about, stripped of the question
	// scaffolding around it.
	PersonName  string              `json:"person_name,omitempty"`
	Location    *NormalizedLocation `json:"location,omitempty"`
	Constraints SearchConstraints   `json:"constraints"`
	Intent      Intent              `json:"intent"`
	Strategy    Strategy            `json:"strategy"`
	Confidence  float64             `json:"confidence"`
}

// SearchOptions is the caller-facing knob set for one search request.
type SearchOptions struct {
	Limit    int
	FundType string
	MinAUM   *int64
}
