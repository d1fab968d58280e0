package ports

import (
	"context"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

// PlanGenerator produces schema-constrained JSON from a planning prompt.
// Implementations must return an error rather than free text when the
// model cannot honor the JSON format.
type PlanGenerator interface {
	GeneratePlanJSON(ctx context.Context, prompt string) (string, error)
}

// Embedder builds the query vector for semantic retrieval.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorFilter holds the structured constraints that must be applied inside
// the similarity scan, before truncation.
type VectorFilter struct {
	City string
	// CityVariants carries the full spelling list for City so payloads
	// indexed under a variant ("St. Louis") still match the constraint.
	CityVariants []string
	State        string
	MinAUM       *int64
	FundType     string
}

// VectorIndex performs constrained similarity search over firm narratives.
// Results are ordered by descending similarity; minScore discards
// low-confidence matches server-side.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, filter VectorFilter, minScore float64, limit int) ([]domain.Candidate, error)
}

// FirmStore is the structured-store surface used by the lexical and
// structured retrievers, the coverage supplementer, and the enricher.
type FirmStore interface {
	// SearchLexical is a ranked text match over firm name and location,
	// with constraints applied inline.
	SearchLexical(ctx context.Context, text string, loc *domain.NormalizedLocation, c domain.SearchConstraints, limit int) ([]domain.Candidate, error)

	// SearchStructured is an exact-filter query with explicit sort; nulls
	// order after all non-null values regardless of direction.
	SearchStructured(ctx context.Context, loc *domain.NormalizedLocation, c domain.SearchConstraints, limit int) ([]domain.Candidate, error)

	// SearchByPerson returns firms affiliated with people matching name,
	// ranked by AUM descending.
	SearchByPerson(ctx context.Context, name string, limit int) ([]domain.Candidate, error)

	// TopByAUM returns the highest-AUM firms for a location, excluding
	// firms already present in the result set.
	TopByAUM(ctx context.Context, loc *domain.NormalizedLocation, excludeIDs []int64, limit int) ([]domain.Candidate, error)

	// PeopleByFirmIDs and FundsByFirmIDs are single batched IN(...) lookups
	// keyed by firm id.
	PeopleByFirmIDs(ctx context.Context, firmIDs []int64) (map[int64][]domain.Person, error)
	FundsByFirmIDs(ctx context.Context, firmIDs []int64) (map[int64][]domain.PrivateFund, error)
}

// LocationResolver canonicalizes city/state tokens. Pure lookup, no I/O.
type LocationResolver interface {
	// Resolve canonicalizes the planner-proposed value when possible and
	// falls back to scanning the raw query text. Returns nil when neither
	// yields a canonical location.
	Resolve(proposed, rawQuery string) *domain.NormalizedLocation

	// CanonicalState reports whether token is a known 2-letter state code.
	CanonicalState(token string) (string, bool)

	// DetectState scans free text for a US state, spelled out or as an
	// upper-case 2-letter code. Lower-case tokens that merely coincide
	// with a code ("in", "or") must not match.
	DetectState(rawQuery string) (string, bool)
}

// GapPublisher notifies the embedding backfill worker about firms that were
// injected by coverage supplementation because they have no narrative
// vector yet.
type GapPublisher interface {
	PublishEmbeddingGap(ctx context.Context, firmIDs []int64) error
}
