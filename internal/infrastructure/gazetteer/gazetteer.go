// Package gazetteer implements the location canon: a fixed table of
// canonical (city, state) entries plus nickname variants, loaded once at
// startup and safe for unsynchronized concurrent reads.
package gazetteer

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

//go:embed cities.yaml
var embeddedTable []byte

const (
	variantHitConfidence = 0.95
	rawScanHitConfidence = 0.9
)

type entry struct {
	City     string   `yaml:"city"`
	State    string   `yaml:"state"`
	Variants []string `yaml:"variants"`
}

type table struct {
	Entries []entry `yaml:"entries"`
}

// Gazetteer resolves free-text city/state tokens to canonical locations.
type Gazetteer struct {
	byVariant map[string]entry
	// variants sorted longest-first so "salt lake city" wins over "salt".
	scanOrder []string
}

// New loads the embedded canon table.
func New() (*Gazetteer, error) {
	return load(embeddedTable)
}

// NewFromFile loads an external canon table, for deployments that need a
// wider gazetteer than the embedded default.
func NewFromFile(path string) (*Gazetteer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gazetteer file: %w", err)
	}
	return load(raw)
}

func load(raw []byte) (*Gazetteer, error) {
	var t table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse gazetteer yaml: %w", err)
	}
	if len(t.Entries) == 0 {
		return nil, fmt.Errorf("gazetteer table is empty")
	}

	g := &Gazetteer{byVariant: make(map[string]entry, len(t.Entries)*4)}
	for _, e := range t.Entries {
		if e.City == "" || len(e.State) != 2 {
			return nil, fmt.Errorf("gazetteer entry %q/%q: city and 2-letter state required", e.City, e.State)
		}
		e.State = strings.ToUpper(e.State)
		variants := e.Variants
		if !containsFold(variants, e.City) {
			variants = append([]string{e.City}, variants...)
		}
		e.Variants = variants
		for _, v := range variants {
			key := normalizeToken(v)
			if key == "" {
				continue
			}
			g.byVariant[key] = e
			g.scanOrder = append(g.scanOrder, key)
		}
	}
	sort.Slice(g.scanOrder, func(i, j int) bool {
		if len(g.scanOrder[i]) != len(g.scanOrder[j]) {
			return len(g.scanOrder[i]) > len(g.scanOrder[j])
		}
		return g.scanOrder[i] < g.scanOrder[j]
	})
	return g, nil
}

// Resolve canonicalizes the planner-proposed location value; when that
// fails it scans the raw query text for a known variant. Returns nil when
// neither path finds a canonical entry.
func (g *Gazetteer) Resolve(proposed, rawQuery string) *domain.NormalizedLocation {
	if proposed != "" {
		if e, ok := g.byVariant[normalizeToken(proposed)]; ok {
			return locationFromEntry(e, variantHitConfidence)
		}
	}
	if rawQuery == "" {
		return nil
	}

	padded := " " + normalizeToken(rawQuery) + " "
	for _, key := range g.scanOrder {
		// Short variants like STL or LA are too ambiguous to match inside
		// other words; all matches require word boundaries.
		if strings.Contains(padded, " "+key+" ") {
			return locationFromEntry(g.byVariant[key], rawScanHitConfidence)
		}
	}
	return nil
}

// CanonicalState reports whether token is a known 2-letter state code.
// Arbitrary two-letter uppercase tokens are never accepted: only members
// of the fixed state-code set qualify.
func (g *Gazetteer) CanonicalState(token string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(token))
	if _, ok := stateCodes[code]; ok {
		return code, true
	}
	return "", false
}

// StateFromName resolves a full US state name to its code.
func (g *Gazetteer) StateFromName(name string) (string, bool) {
	code, ok := stateNames[normalizeToken(name)]
	return code, ok
}

// DetectState scans free text for a US state. Full names match case
// insensitively; 2-letter codes match only when upper-case in the source
// text, so common words like "in" or "or" never turn into states.
func (g *Gazetteer) DetectState(rawQuery string) (string, bool) {
	padded := " " + normalizeToken(rawQuery) + " "
	for _, name := range stateNameOrder {
		if strings.Contains(padded, " "+name+" ") {
			return stateNames[name], true
		}
	}
	for _, field := range strings.FieldsFunc(rawQuery, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if len(field) != 2 || field != strings.ToUpper(field) {
			continue
		}
		if _, ok := stateCodes[field]; ok {
			return field, true
		}
	}
	return "", false
}

func locationFromEntry(e entry, confidence float64) *domain.NormalizedLocation {
	variants := make([]string, len(e.Variants))
	copy(variants, e.Variants)
	return &domain.NormalizedLocation{
		City:       e.City,
		State:      e.State,
		Variants:   variants,
		Confidence: confidence,
	}
}

// normalizeToken strips punctuation, lower-cases, and collapses whitespace.
func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

var stateCodes = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {},
	"DE": {}, "DC": {}, "FL": {}, "GA": {}, "HI": {}, "ID": {}, "IL": {},
	"IN": {}, "IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {},
	"MA": {}, "MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {},
	"NV": {}, "NH": {}, "NJ": {}, "NM": {}, "NY": {}, "NC": {}, "ND": {},
	"OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {}, "SD": {},
	"TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {},
	"WI": {}, "WY": {},
}

var stateNames = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT",
	"delaware": "DE", "district of columbia": "DC", "florida": "FL",
	"georgia": "GA", "hawaii": "HI", "idaho": "ID", "illinois": "IL",
	"indiana": "IN", "iowa": "IA", "kansas": "KS", "kentucky": "KY",
	"louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT", "nebraska": "NE",
	"nevada": "NV", "new hampshire": "NH", "new jersey": "NJ",
	"new mexico": "NM", "new york": "NY", "north carolina": "NC",
	"north dakota": "ND", "ohio": "OH", "oklahoma": "OK", "oregon": "OR",
	"pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA",
	"west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

// stateNameOrder keeps DetectState deterministic; longer names first so
// "west virginia" is not shadowed by "virginia".
var stateNameOrder = func() []string {
	names := make([]string, 0, len(stateNames))
	for name := range stateNames {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}()
