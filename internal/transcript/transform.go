package transcript

import (
	"regexp"
	"sort"
	"strings"

	"github.com/adrpadua/battlereport-hud/pkg/types"
)

// ApplyReplacements produces the normalized and tagged forms of one segment's
// text from its accumulated replacement instructions.
//
// Replacements are deduplicated by original term (case-insensitive, first
// instruction wins) and claim spans of the original text longest-original-
// first, so of two overlapping candidate spans exactly the longer one fires
// and a span is never replaced twice. Each replaced span keeps the casing of
// its first letter. In the tagged form every replacement is additionally
// wrapped as [CATEGORY:CanonicalName]; a bracket-depth guard stops a
// replacement from firing inside text that is already bracketed.
func ApplyReplacements(text string, reps []types.TextReplacement) (normalized, tagged string) {
	claims := claimSpans(text, dedupeLongestFirst(reps))
	if len(claims) == 0 {
		return text, text
	}

	var norm, tag strings.Builder
	norm.Grow(len(text) + 16)
	tag.Grow(len(text) + 32*len(claims))
	prev := 0
	for _, c := range claims {
		norm.WriteString(text[prev:c.start])
		tag.WriteString(text[prev:c.start])

		official := MatchCase(c.official, text[c.start:c.end])
		norm.WriteString(official)

		tag.WriteByte('[')
		tag.WriteString(c.category.Tag())
		tag.WriteByte(':')
		tag.WriteString(official)
		tag.WriteByte(']')

		prev = c.end
	}
	norm.WriteString(text[prev:])
	tag.WriteString(text[prev:])
	return norm.String(), tag.String()
}

// claim is one accepted replacement span within the original text.
type claim struct {
	start, end int
	official   string
	category   types.Category
}

// claimSpans resolves the ordered replacement list against text: each
// instruction claims every occurrence of its original that does not overlap
// an earlier claim and does not start inside an existing bracket pair.
// Returned claims are ordered by start offset.
func claimSpans(text string, ordered []types.TextReplacement) []claim {
	var claims []claim
	overlapsClaim := func(start, end int) bool {
		for _, c := range claims {
			if start < c.end && end > c.start {
				return true
			}
		}
		return false
	}

	for _, r := range ordered {
		re := compileTermPattern(r.Original)
		if re == nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if overlapsClaim(loc[0], loc[1]) {
				continue
			}
			if bracketDepth(text[:loc[0]]) > 0 {
				continue
			}
			claims = append(claims, claim{
				start:    loc[0],
				end:      loc[1],
				official: r.Official,
				category: r.Type,
			})
		}
	}

	sort.Slice(claims, func(i, j int) bool { return claims[i].start < claims[j].start })
	return claims
}

// dedupeLongestFirst removes duplicate originals (case-insensitive, keeping
// the first instruction) and orders the rest longest-original-first. Ties
// break alphabetically for deterministic output.
func dedupeLongestFirst(reps []types.TextReplacement) []types.TextReplacement {
	seen := make(map[string]struct{}, len(reps))
	out := make([]types.TextReplacement, 0, len(reps))
	for _, r := range reps {
		if r.Original == "" || r.Official == "" {
			continue
		}
		key := strings.ToLower(r.Original)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Original) != len(out[j].Original) {
			return len(out[i].Original) > len(out[j].Original)
		}
		return out[i].Original < out[j].Original
	})
	return out
}

// compileTermPattern builds a case-insensitive pattern for the original term
// with word boundaries where the term edges are word characters. Returns nil
// for terms that cannot form a sensible pattern.
func compileTermPattern(original string) *regexp.Regexp {
	original = strings.TrimSpace(original)
	if original == "" {
		return nil
	}
	pattern := regexp.QuoteMeta(original)
	if isWordByte(original[0]) {
		pattern = `\b` + pattern
	}
	if isWordByte(original[len(original)-1]) {
		pattern += `\b`
	}
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return nil
	}
	return re
}

func isWordByte(b byte) bool {
	return b == '_' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// bracketDepth returns the number of unclosed '[' in s.
func bracketDepth(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}
