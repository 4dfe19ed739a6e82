package phonetic

import (
	"sort"
	"strings"
	"unicode"
)

const defaultScanFloor = 0.80

// Candidate is one accepted n-gram window with its matched entity name.
// Offsets are byte positions into the scanned text.
type Candidate struct {
	Start  int
	End    int
	Window string
	Match  string
	Score  float64
}

// ScannerOption is a functional option for configuring a [Scanner].
type ScannerOption func(*Scanner)

// WithScanFloor sets the minimum match score for a window to be accepted.
// Default: 0.80 — stricter than the matcher's own thresholds because
// unconstrained n-gram scanning over free text has far more opportunities
// for coincidental similarity than matching a single flagged word.
func WithScanFloor(floor float64) ScannerOption {
	return func(s *Scanner) {
		s.floor = floor
	}
}

// Scanner slides 1-, 2-, and 3-word windows over segment text and matches
// each against a phonetic [Index], producing non-overlapping candidates.
// It is read-only after construction and safe for concurrent use.
type Scanner struct {
	matcher *Matcher
	index   *Index
	floor   float64
}

// NewScanner returns a [Scanner] over ix using matcher m. When m is nil a
// default [Matcher] is used.
func NewScanner(m *Matcher, ix *Index, opts ...ScannerOption) *Scanner {
	if m == nil {
		m = NewMatcher()
	}
	s := &Scanner{
		matcher: m,
		index:   ix,
		floor:   defaultScanFloor,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// token is one whitespace-delimited word with its byte offsets.
type token struct {
	start int
	end   int
	text  string
}

// Scan finds phonetic matches in text. occupied reports whether a byte range
// is already claimed by an earlier-precedence match source; windows touching
// a claimed range are skipped, as are windows overlapping a window this scan
// already accepted.
//
// Windows are tried longest-first so that a three-word mishearing is not
// shadowed by a partial single-word match inside it. A window that is
// literally identical (case-insensitively) to its matched name is rejected —
// exact text needs no phonetic correction.
func (s *Scanner) Scan(text string, occupied func(start, end int) bool) []Candidate {
	if s.index == nil || s.index.MaxWords() == 0 {
		return nil
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	maxN := 3
	if s.index.MaxWords() < maxN {
		maxN = s.index.MaxWords()
	}

	// Collect every window with its offsets, then sort longest window text
	// first so acceptance order prefers the most specific span.
	type window struct {
		start int
		end   int
		text  string
	}
	var windows []window
	for n := 1; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			first, last := tokens[i], tokens[i+n-1]
			windows = append(windows, window{
				start: first.start,
				end:   last.end,
				text:  text[first.start:last.end],
			})
		}
	}
	sort.Slice(windows, func(i, j int) bool {
		li, lj := windows[i].end-windows[i].start, windows[j].end-windows[j].start
		if li != lj {
			return li > lj
		}
		return windows[i].start < windows[j].start
	})

	var accepted []Candidate
	overlapsAccepted := func(start, end int) bool {
		for _, a := range accepted {
			if start < a.End && end > a.Start {
				return true
			}
		}
		return false
	}

	for _, w := range windows {
		if occupied != nil && occupied(w.start, w.end) {
			continue
		}
		if overlapsAccepted(w.start, w.end) {
			continue
		}

		cleaned := trimPunct(w.text)
		if cleaned == "" {
			continue
		}

		name, score, ok := s.matcher.Match(cleaned, s.index)
		if !ok || score < s.floor {
			continue
		}
		if strings.EqualFold(cleaned, name) {
			continue
		}
		// A window that is literally part of its matched name is exact text,
		// not a mishearing: "shock" must not expand to "Tank Shock".
		if strings.Contains(strings.ToLower(name), strings.ToLower(cleaned)) {
			continue
		}

		accepted = append(accepted, Candidate{
			Start:  w.start,
			End:    w.end,
			Window: cleaned,
			Match:  name,
			Score:  score,
		})
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}

// tokenize splits text into whitespace-delimited tokens with byte offsets.
func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{start: start, end: i, text: text[start:i]})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start: start, end: len(text), text: text[start:]})
	}
	return tokens
}

// trimPunct strips leading and trailing punctuation from a window so that
// "Wyches," matches "Wyches".
func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}
