package usecase

import (
	"sort"
	"strings"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

// dedupCandidates collapses branch records of the same legal entity into
// one DedupGroup per normalized name. Group order follows the incoming
// candidate order for equal scores, so structured results keep their
// explicit sort.
func dedupCandidates(candidates []domain.Candidate) []domain.DedupGroup {
	groups := make([]*domain.DedupGroup, 0, len(candidates))
	index := make(map[string]*domain.DedupGroup, len(candidates))

	for _, c := range candidates {
		// Known bad-data guard: registry rows with empty or one-character
		// names are junk and would otherwise merge unrelated firms.
		if len(strings.TrimSpace(c.Name)) <= 1 {
			continue
		}
		key := nameKey(c.Name)

		g, ok := index[key]
		if !ok {
			g = &domain.DedupGroup{NameKey: key, Representative: c}
			index[key] = g
			groups = append(groups, g)
		}
		g.MemberCount++
		g.MemberIDs = append(g.MemberIDs, c.FirmID)
		if c.AUM != nil {
			g.AggregatedAUM += *c.AUM
		}
		if betterRepresentative(c, g.Representative) {
			g.Representative = c
		}
	}

	out := make([]domain.DedupGroup, 0, len(groups))
	for _, g := range groups {
		if g.MemberCount > 1 || g.Representative.AUM != nil {
			// The representative displays the branch-aggregated total.
			total := g.AggregatedAUM
			g.Representative.AUM = &total
		}
		out = append(out, *g)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Representative.CombinedScore > out[j].Representative.CombinedScore
	})
	return out
}

// betterRepresentative prefers the higher combined score; ties go to the
// lowest firm id so the choice is reproducible.
func betterRepresentative(candidate, current domain.Candidate) bool {
	if candidate.CombinedScore != current.CombinedScore {
		return candidate.CombinedScore > current.CombinedScore
	}
	return candidate.FirmID < current.FirmID
}

// nameKey case-folds, trims, and collapses inner whitespace.
func nameKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
