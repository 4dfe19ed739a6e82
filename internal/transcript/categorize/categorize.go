// Package categorize assigns a category and canonical name to raw transcript
// terms by matching them against the reference registry.
//
// Matching follows a strict precedence order — first match wins:
//
//  1. Deny-list check: known game-mechanic phrases that coincidentally look
//     like entity names are rejected immediately.
//  2. Faction list (exact, then alias).
//  3. Detachment list.
//  4. Stratagem list (exact, then alias).
//  5. Objective list (dynamic with TTL cache, bundled fallback).
//  6. Enhancement list.
//  7. Unit alias lookup, then exact match against the supplied unit names.
//  8. Fuzzy unit match (Jaro-Winkler with optional phonetic candidate
//     filtering) above the configured similarity floor.
//  9. Heuristic unit-name normalization: strip a leading personal name
//     before a known character-type noun, or a trailing weapon-loadout
//     clause, retrying singular/plural variants.
//
// Structural terms (faction, detachment) are the least ambiguous and must
// not be shadowed by a fuzzy unit match; units are the largest, noisiest
// category and are tried last with the most forgiving matching.
package categorize

import (
	"context"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/adrpadua/battlereport-hud/internal/registry"
	"github.com/adrpadua/battlereport-hud/pkg/types"
)

const defaultFuzzyFloor = 0.75

// characterNouns are character-type unit nouns that players habitually
// prefix with a personal or player name ("Dave's Archon charges").
var characterNouns = map[string]struct{}{
	"archon":      {},
	"captain":     {},
	"chaplain":    {},
	"farseer":     {},
	"haemonculus": {},
	"lieutenant":  {},
	"overlord":    {},
	"succubus":    {},
	"warboss":     {},
}

// loadoutMarkers introduce a trailing weapon-loadout clause appended to a
// unit noun ("Wyches with blast pistols").
var loadoutMarkers = []string{" armed with ", " with ", " carrying "}

// Option is a functional option for configuring a [Categorizer].
type Option func(*Categorizer)

// WithFuzzyFloor sets the minimum Jaro-Winkler similarity for a fuzzy unit
// match to be accepted. Default: 0.75.
func WithFuzzyFloor(floor float64) Option {
	return func(c *Categorizer) {
		c.fuzzyFloor = floor
	}
}

// Categorizer resolves raw terms to categorized canonical names. It is
// read-only after construction and safe for concurrent use.
type Categorizer struct {
	reg        *registry.Registry
	fuzzyFloor float64
}

// New returns a [Categorizer] backed by reg.
func New(reg *registry.Registry, opts ...Option) *Categorizer {
	c := &Categorizer{
		reg:        reg,
		fuzzyFloor: defaultFuzzyFloor,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Result is the outcome of categorizing one term.
type Result struct {
	// Type is the resolved category; CategoryUnknown means the term is not
	// a taggable entity and must be discarded.
	Type types.Category

	// Canonical is the official name, empty when Type is CategoryUnknown.
	Canonical string
}

// Categorize resolves term using the precedence order documented on the
// package. unitNames is the report-specific unit list; it may be nil, in
// which case only the registry's bundled unit aliases apply.
func (c *Categorizer) Categorize(ctx context.Context, term string, unitNames []string) Result {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return Result{Type: types.CategoryUnknown}
	}

	// 1. Deny-list always wins, even over exact category matches.
	if c.reg.IsDenied(trimmed) {
		return Result{Type: types.CategoryUnknown}
	}

	// 2–6. Curated category lists, least ambiguous first.
	if canonical, ok := c.reg.Faction(trimmed); ok {
		return Result{Type: types.CategoryFaction, Canonical: canonical}
	}
	if canonical, ok := c.reg.Detachment(trimmed); ok {
		return Result{Type: types.CategoryDetachment, Canonical: canonical}
	}
	if canonical, ok := c.reg.Stratagem(trimmed); ok {
		return Result{Type: types.CategoryStratagem, Canonical: canonical}
	}
	if canonical, ok := c.reg.Objective(ctx, trimmed); ok {
		return Result{Type: types.CategoryObjective, Canonical: canonical}
	}
	if canonical, ok := c.reg.Enhancement(trimmed); ok {
		return Result{Type: types.CategoryEnhancement, Canonical: canonical}
	}

	// 7. Unit alias, then exact unit name.
	if canonical, ok := c.reg.UnitAlias(trimmed); ok {
		return Result{Type: types.CategoryUnit, Canonical: canonical}
	}
	if canonical, ok := exactUnit(trimmed, unitNames); ok {
		return Result{Type: types.CategoryUnit, Canonical: canonical}
	}

	// 8. Fuzzy unit match.
	if canonical, ok := c.fuzzyUnit(trimmed, unitNames); ok {
		return Result{Type: types.CategoryUnit, Canonical: canonical}
	}

	// 9. Heuristic unit-name normalization.
	if canonical, ok := c.heuristicUnit(trimmed, unitNames); ok {
		return Result{Type: types.CategoryUnit, Canonical: canonical}
	}

	return Result{Type: types.CategoryUnknown}
}

// exactUnit matches term case-insensitively against unitNames, trying
// singular/plural variants.
func exactUnit(term string, unitNames []string) (string, bool) {
	lower := strings.ToLower(term)
	for _, variant := range pluralVariants(lower) {
		for _, u := range unitNames {
			if strings.ToLower(u) == variant {
				return u, true
			}
		}
	}
	return "", false
}

// fuzzyUnit ranks unitNames by Jaro-Winkler similarity against term,
// filtering candidates by Double Metaphone overlap first so that spelling
// distance alone cannot promote phonetically unrelated names. A candidate
// with no phonetic overlap must clear the floor with a margin.
func (c *Categorizer) fuzzyUnit(term string, unitNames []string) (string, bool) {
	if len(unitNames) == 0 {
		return "", false
	}

	lower := strings.ToLower(term)
	termPrimary, termSecondary := matchr.DoubleMetaphone(lower)

	best := ""
	bestScore := 0.0
	for _, u := range unitNames {
		uLower := strings.ToLower(u)
		score := matchr.JaroWinkler(lower, uLower, false)
		if score < c.fuzzyFloor {
			continue
		}

		uPrimary, uSecondary := matchr.DoubleMetaphone(uLower)
		phonetic := codesOverlap(termPrimary, termSecondary, uPrimary, uSecondary)
		if !phonetic && score < c.fuzzyFloor+0.1 {
			continue
		}

		if score > bestScore {
			best = u
			bestScore = score
		}
	}

	if best == "" {
		return "", false
	}
	return best, true
}

// heuristicUnit applies the two structural rewrites players use constantly:
// a possessive or bare personal name before a character-type noun, and a
// weapon-loadout clause after a unit noun.
func (c *Categorizer) heuristicUnit(term string, unitNames []string) (string, bool) {
	lower := strings.ToLower(term)

	// "Dave's Archon" / "Dave Archon" → "Archon".
	if fields := strings.Fields(lower); len(fields) == 2 {
		noun := fields[1]
		if _, ok := characterNouns[noun]; ok {
			if canonical, ok := exactUnit(noun, unitNames); ok {
				return canonical, true
			}
			if canonical, ok := c.reg.UnitAlias(noun); ok {
				return canonical, true
			}
		}
	}

	// "Wyches with blast pistols" → "Wyches".
	for _, marker := range loadoutMarkers {
		if idx := strings.Index(lower, marker); idx > 0 {
			head := strings.TrimSpace(term[:idx])
			if canonical, ok := exactUnit(head, unitNames); ok {
				return canonical, true
			}
			if canonical, ok := c.reg.UnitAlias(head); ok {
				return canonical, true
			}
		}
	}

	return "", false
}

// pluralVariants returns lowercased term plus its singular/plural forms.
func pluralVariants(lower string) []string {
	variants := []string{lower}
	if strings.HasSuffix(lower, "es") {
		variants = append(variants, strings.TrimSuffix(lower, "es"))
	}
	if strings.HasSuffix(lower, "s") {
		variants = append(variants, strings.TrimSuffix(lower, "s"))
	} else {
		variants = append(variants, lower+"s", lower+"es")
	}
	return variants
}

// codesOverlap reports whether any Double Metaphone code of the term matches
// any code of the candidate.
func codesOverlap(tp, ts, up, us string) bool {
	for _, a := range []string{tp, ts} {
		if a == "" {
			continue
		}
		if a == up || (us != "" && a == us) {
			return true
		}
	}
	return false
}
