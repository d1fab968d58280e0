package usecase

import (
	"sort"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

// FusionConfig holds the Reciprocal Rank Fusion constants.
type FusionConfig struct {
	K              int
	SemanticWeight float64
	LexicalWeight  float64
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{K: 60, SemanticWeight: 0.7, LexicalWeight: 0.3}
}

// fuseRRF merges the semantic and lexical candidate lists into one list
// ordered by combined score. Every firm present in either input appears in
// the output (full outer join on firm id); a missing rank contributes
// nothing to the score, it never discards the candidate.
func fuseRRF(semantic, lexical []domain.Candidate, cfg FusionConfig) []domain.Candidate {
	if cfg.K <= 0 {
		cfg = DefaultFusionConfig()
	}

	acc := make(map[int64]*domain.Candidate, len(semantic)+len(lexical))

	for i := range semantic {
		c := semantic[i]
		c.SemanticRank = i + 1
		c.Source = domain.SourceSemantic
		c.CombinedScore = cfg.SemanticWeight / float64(cfg.K+c.SemanticRank)
		acc[c.FirmID] = &c
	}
	for i := range lexical {
		rank := i + 1
		score := cfg.LexicalWeight / float64(cfg.K+rank)
		if existing, ok := acc[lexical[i].FirmID]; ok {
			existing.LexicalRank = rank
			existing.CombinedScore += score
			mergeCandidateFields(existing, lexical[i])
			continue
		}
		c := lexical[i]
		c.LexicalRank = rank
		c.Source = domain.SourceLexical
		c.CombinedScore = score
		acc[c.FirmID] = &c
	}

	out := make([]domain.Candidate, 0, len(acc))
	for _, c := range acc {
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CombinedScore != out[j].CombinedScore {
			return out[i].CombinedScore > out[j].CombinedScore
		}
		return out[i].FirmID < out[j].FirmID
	})
	return out
}

// mergeCandidateFields backfills identity fields missing from the semantic
// payload with the lexical row, which always comes from the primary store.
func mergeCandidateFields(dst *domain.Candidate, src domain.Candidate) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.CRD == "" {
		dst.CRD = src.CRD
	}
	if dst.City == "" {
		dst.City = src.City
	}
	if dst.State == "" {
		dst.State = src.State
	}
	if dst.AUM == nil {
		dst.AUM = src.AUM
	}
	if dst.FundCount == 0 {
		dst.FundCount = src.FundCount
	}
}
