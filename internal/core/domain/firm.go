package domain

// CandidateSource records which retriever produced a candidate.
type CandidateSource string

const (
	SourceSemantic   CandidateSource = "semantic"
	SourceLexical    CandidateSource = "lexical"
	SourceStructured CandidateSource = "structured"
	SourceSupplement CandidateSource = "supplement"
)

// Candidate is one retrieved firm record with per-strategy rank metadata.
// Ranks are 1-based; 0 means the firm was absent from that list. AUM is nil
// when the registry has no assets figure for the firm.
type Candidate struct {
	FirmID        int64           `json:"firm_id"`
	CRD           string          `json:"crd,omitempty"`
	Name          string          `json:"name"`
	City          string          `json:"city,omitempty"`
	State         string          `json:"state,omitempty"`
	AUM           *int64          `json:"aum,omitempty"`
	FundCount     int             `json:"fund_count"`
	SemanticScore float64         `json:"semantic_score,omitempty"`
	SemanticRank  int             `json:"semantic_rank,omitempty"`
	LexicalRank   int             `json:"lexical_rank,omitempty"`
	CombinedScore float64         `json:"combined_score"`
	Source        CandidateSource `json:"source"`
}

// DedupGroup is the aggregate of branch records sharing one normalized name.
type DedupGroup struct {
	NameKey        string    `json:"name_key"`
	AggregatedAUM  int64     `json:"aggregated_aum"`
	MemberCount    int       `json:"member_count"`
	MemberIDs      []int64   `json:"member_ids"`
	Representative Candidate `json:"representative"`
}

// Person is an advisory representative affiliated with a firm.
type Person struct {
	ID     int64  `json:"id"`
	FirmID int64  `json:"firm_id"`
	Name   string `json:"name"`
	Title  string `json:"title,omitempty"`
}

// PrivateFund is one fund record filed under a firm.
type PrivateFund struct {
	ID              int64  `json:"id"`
	FirmID          int64  `json:"firm_id"`
	Name            string `json:"name"`
	FundType        string `json:"fund_type,omitempty"`
	GrossAssetValue *int64 `json:"gross_asset_value,omitempty"`
}

// EnrichedFirm is a final result row: the deduplicated candidate plus its
// batched secondary lookups.
type EnrichedFirm struct {
	Candidate
	BranchCount int           `json:"branch_count,omitempty"`
	People      []Person      `json:"people,omitempty"`
	Funds       []PrivateFund `json:"funds,omitempty"`
}

// ResultSet is the terminal artifact of one search request.
type ResultSet struct {
	Results         []EnrichedFirm `json:"results"`
	StrategyUsed    Strategy       `json:"strategy_used"`
	Confidence      float64        `json:"confidence"`
	TotalCandidates int            `json:"total_candidates"`
}
