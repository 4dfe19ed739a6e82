package transcript

import (
	"regexp"
	"sort"
	"unicode"
)

// mishearTable maps known speech-to-text mishearings of proper nouns to the
// phrase that was actually said. These errors are deterministic per STT
// engine — the same proper noun is mangled the same way in every report —
// and must be fixed before any detection runs or they corrupt every
// downstream exact and near-exact match.
var mishearTable = map[string]string{
	"witches":         "wyches",
	"which is":        "wyches",
	"are con":         "archon",
	"our con":         "archon",
	"arc on":          "archon",
	"in cubi":         "incubi",
	"in q b":          "incubi",
	"cabal lite":      "kabalite",
	"cobble light":    "kabalite",
	"man drakes":      "mandrakes",
	"succubus queen":  "succubus",
	"drew carey":      "drukhari",
	"dookie":          "drukhari",
	"necro":           "necron",
	"horror gaunts":   "hormagaunts",
	"tieranids":       "tyranids",
	"el dar":          "aeldari",
	"tower shock":     "tank shock",
	"fire over watch": "fire overwatch",
	"rapid english":   "rapid ingress",
}

// mishearRule is one compiled pre-normalization rewrite.
type mishearRule struct {
	re          *regexp.Regexp
	replacement string
}

// mishearRules holds the compiled table, longest variant first so that
// multi-word mishearings win over their single-word prefixes.
var mishearRules = compileMishearRules(mishearTable)

func compileMishearRules(table map[string]string) []mishearRule {
	variants := make([]string, 0, len(table))
	for v := range table {
		variants = append(variants, v)
	}
	sort.Slice(variants, func(i, j int) bool {
		if len(variants[i]) != len(variants[j]) {
			return len(variants[i]) > len(variants[j])
		}
		return variants[i] < variants[j]
	})

	rules := make([]mishearRule, 0, len(variants))
	for _, v := range variants {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(v) + `\b`)
		rules = append(rules, mishearRule{re: re, replacement: table[v]})
	}
	return rules
}

// PreNormalize rewrites known mishearing phrases in text before any
// detection stage runs. Matching is case-insensitive on word boundaries;
// the replacement preserves the case of the first matched character.
func PreNormalize(text string) string {
	for _, rule := range mishearRules {
		text = rule.re.ReplaceAllStringFunc(text, func(matched string) string {
			return matchCase(rule.replacement, matched)
		})
	}
	return text
}

// matchCase upper- or lowercases the first letter of replacement to match
// the first letter of matched.
func matchCase(replacement, matched string) string {
	if replacement == "" || matched == "" {
		return replacement
	}
	r := []rune(replacement)
	m := []rune(matched)
	if unicode.IsUpper(m[0]) {
		r[0] = unicode.ToUpper(r[0])
	} else {
		r[0] = unicode.ToLower(r[0])
	}
	return string(r)
}

// MatchCase is the exported form of matchCase, shared with the text
// transformer so replacements preserve the casing of the span they replace.
func MatchCase(replacement, matched string) string {
	return matchCase(replacement, matched)
}
