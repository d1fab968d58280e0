package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

// The heuristic decomposition runs whenever the language-model path fails.
// It is regex-based, allocates no external calls, and is guaranteed never
// to fail; its confidence never exceeds heuristicMaxConfidence.
const heuristicMaxConfidence = 0.4

var (
	topNRE        = regexp.MustCompile(`(?i)\btop\s+(\d{1,3})\b`)
	largestRE     = regexp.MustCompile(`(?i)\b(largest|biggest|top)\b`)
	smallestRE    = regexp.MustCompile(`(?i)\bsmallest\b`)
	peopleRE      = regexp.MustCompile(`(?i)\b(who\s+(works|is)|advisors?\s+at|advisers?\s+at|people\s+at|representatives?\s+(at|of))\b`)
	personAfterRE = regexp.MustCompile(`(?i)\b(?:who\s+works\s+at|who\s+is|works?\s+at|advisors?\s+at|advisers?\s+at|people\s+at|representatives?\s+(?:at|of))\s+([A-Za-z][A-Za-z.'\- ]{1,60})`)
	cityAfterRE   = regexp.MustCompile(`(?i)\b(?:located\s+in|in|near|at)\s+([A-Za-z][A-Za-z.'\- ]{1,40})`)
	aumBoundRE    = regexp.MustCompile(`(?i)\b(over|above|at\s+least|more\s+than|under|below|less\s+than)?\s*\$?\s*(\d+(?:\.\d+)?)\s*(k|m|b|thousand|million|billion)\b`)
	maxBoundWords = regexp.MustCompile(`(?i)^(under|below|less\s+than)$`)
)

// fundTypeKeywords is the fixed category vocabulary the source system
// recognizes; first match wins.
var fundTypeKeywords = []struct {
	pattern  *regexp.Regexp
	fundType string
}{
	{regexp.MustCompile(`(?i)\bprivate\s+placements?\b`), "private placement"},
	{regexp.MustCompile(`(?i)\bhedge\s+funds?\b`), "hedge fund"},
	{regexp.MustCompile(`(?i)\bprivate\s+equity\b`), "private equity"},
	{regexp.MustCompile(`(?i)\bventure\s+capital\b`), "venture capital"},
	{regexp.MustCompile(`(?i)\breal\s+estate\s+funds?\b`), "real estate"},
}

var serviceKeywords = []struct {
	pattern *regexp.Regexp
	service string
}{
	{regexp.MustCompile(`(?i)\bfinancial\s+planning\b`), "financial planning"},
	{regexp.MustCompile(`(?i)\bretirement\b`), "retirement planning"},
	{regexp.MustCompile(`(?i)\bwealth\s+management\b`), "wealth management"},
}

func (p *Planner) parseHeuristic(query string) domain.QueryPlan {
	plan := domain.QueryPlan{
		SemanticQuery: query,
		Intent:        domain.IntentMixed,
	}

	structuredSignals := 0

	switch {
	case peopleRE.MatchString(query):
		plan.Intent = domain.IntentPeopleLookup
		plan.PersonName = extractPersonName(query)
		structuredSignals++
	case smallestRE.MatchString(query):
		plan.Intent = domain.IntentSuperlative
		plan.Constraints.SortBy = domain.SortByAUM
		plan.Constraints.SortOrder = domain.SortAsc
		structuredSignals++
	case largestRE.MatchString(query):
		plan.Intent = domain.IntentSuperlative
		plan.Constraints.SortBy = domain.SortByAUM
		plan.Constraints.SortOrder = domain.SortDesc
		structuredSignals++
	}
	if m := topNRE.FindStringSubmatch(query); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			plan.Constraints.TopN = n
		}
	}

	if m := aumBoundRE.FindStringSubmatch(query); m != nil {
		if amount, ok := parseMagnitude(m[2], m[3]); ok {
			if maxBoundWords.MatchString(strings.TrimSpace(m[1])) {
				plan.Constraints.MaxAUM = &amount
			} else {
				plan.Constraints.MinAUM = &amount
			}
			structuredSignals++
		}
	}

	for _, kw := range fundTypeKeywords {
		if kw.pattern.MatchString(query) {
			plan.Constraints.FundType = kw.fundType
			structuredSignals++
			break
		}
	}
	for _, kw := range serviceKeywords {
		if kw.pattern.MatchString(query) {
			plan.Constraints.RequiredServices = append(plan.Constraints.RequiredServices, kw.service)
		}
	}

	plan.Location = p.detectLocation(query)
	if plan.Location != nil && plan.Intent == domain.IntentMixed {
		plan.Intent = domain.IntentLocation
	}

	switch {
	case plan.Location != nil && structuredSignals > 0:
		plan.Confidence = heuristicMaxConfidence
	case plan.Location != nil || structuredSignals > 0:
		plan.Confidence = 0.3
	default:
		plan.Confidence = 0.25
	}
	return plan
}

func (p *Planner) detectLocation(query string) *domain.NormalizedLocation {
	if m := cityAfterRE.FindStringSubmatch(query); m != nil {
		candidate := trimLocationTail(m[1])
		if loc := p.locations.Resolve(candidate, ""); loc != nil {
			return loc
		}
	}
	if loc := p.locations.Resolve("", query); loc != nil {
		return loc
	}
	if code, ok := p.locations.DetectState(query); ok {
		return &domain.NormalizedLocation{State: code, Confidence: 0.35}
	}
	return nil
}

// extractPersonName pulls the lookup name out of a people phrasing. An
// empty return means the query gave no name to look up.
func extractPersonName(query string) string {
	m := personAfterRE.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	stop := map[string]bool{
		"in": true, "near": true, "at": true, "located": true,
		"with": true, "that": true, "for": true, "managing": true,
	}
	words := strings.Fields(m[1])
	out := words[:0]
	for _, w := range words {
		if stop[strings.ToLower(w)] {
			break
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// trimLocationTail cuts a captured city phrase at the first token that is
// clearly not part of a place name.
func trimLocationTail(s string) string {
	stop := map[string]bool{
		"with": true, "that": true, "and": true, "for": true, "managing": true,
		"over": true, "under": true, "offering": true,
	}
	words := strings.Fields(s)
	out := words[:0]
	for _, w := range words {
		if stop[strings.ToLower(w)] {
			break
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func parseMagnitude(number, unit string) (int64, bool) {
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(unit) {
	case "k", "thousand":
		v *= 1e3
	case "m", "million":
		v *= 1e6
	case "b", "billion":
		v *= 1e9
	default:
		return 0, false
	}
	if v < 0 {
		return 0, false
	}
	return int64(v), true
}
