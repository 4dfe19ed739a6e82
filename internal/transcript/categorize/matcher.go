package categorize

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Span is one occurrence of a known term within a text, with byte offsets
// into the scanned string.
type Span struct {
	Start int
	End   int
	Term  string
}

// TermMatcher scans text for occurrences of known entity names and aliases.
// It is compiled once per pipeline run from the full term list, sorted
// longest-first so the alternation prefers the longest candidate at each
// position, and is safe for concurrent use.
type TermMatcher struct {
	re *regexp.Regexp
}

// CompileMatcher builds a [TermMatcher] over every canonical name and alias
// the registry knows, plus the report-specific unit names. Returns nil when
// no terms exist (a nil matcher finds nothing).
func (c *Categorizer) CompileMatcher(ctx context.Context, unitNames []string) *TermMatcher {
	terms := c.reg.ScanTerms()
	terms = append(terms, unitNames...)

	seen := make(map[string]struct{}, len(terms))
	unique := terms[:0]
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, t)
	}
	if len(unique) == 0 {
		return nil
	}

	// Longest first: Go's regexp alternation is leftmost-first, so ordering
	// the alternatives by length makes "Kabalite Warriors" win over
	// "Warriors" at the same position.
	sort.Slice(unique, func(i, j int) bool {
		if len(unique[i]) != len(unique[j]) {
			return len(unique[i]) > len(unique[j])
		}
		return unique[i] < unique[j]
	})

	quoted := make([]string, len(unique))
	for i, t := range unique {
		quoted[i] = regexp.QuoteMeta(t)
	}

	re := regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	return &TermMatcher{re: re}
}

// FindAll returns all non-overlapping term occurrences in text, left to
// right. A nil matcher returns nil.
func (m *TermMatcher) FindAll(text string) []Span {
	if m == nil {
		return nil
	}
	idx := m.re.FindAllStringIndex(text, -1)
	spans := make([]Span, 0, len(idx))
	for _, pair := range idx {
		spans = append(spans, Span{
			Start: pair[0],
			End:   pair[1],
			Term:  text[pair[0]:pair[1]],
		})
	}
	return spans
}
