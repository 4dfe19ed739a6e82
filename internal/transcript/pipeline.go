// Package transcript implements the term-normalization and entity-extraction
// pipeline for battle-report transcripts: segment deduplication, mishear
// pre-normalization, multi-source term matching (external inference, pattern
// categorization, phonetic scanning) merged under a strict precedence order,
// and text transformation into normalized and tagged transcript forms.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/adrpadua/battlereport-hud/internal/observe"
	"github.com/adrpadua/battlereport-hud/internal/registry"
	"github.com/adrpadua/battlereport-hud/internal/transcript/categorize"
	"github.com/adrpadua/battlereport-hud/internal/transcript/llmmap"
	"github.com/adrpadua/battlereport-hud/internal/transcript/phonetic"
	"github.com/adrpadua/battlereport-hud/internal/validate"
	"github.com/adrpadua/battlereport-hud/pkg/types"
)

// ErrMalformedSegment is returned by [Extractor.Extract] when the input
// violates the segment contract. This is the only error class the pipeline
// surfaces: degraded chunks and unavailable optional services never fail a
// run.
var ErrMalformedSegment = errors.New("transcript: malformed segment")

// TermValidator checks candidate mappings against an external canonical-name
// service. Implemented by [validate.Client].
type TermValidator interface {
	ValidateTerms(ctx context.Context, req validate.Request) ([]validate.ValidatedTerm, error)
}

// ExtractorOption is a functional option for configuring an [Extractor].
type ExtractorOption func(*Extractor)

// WithExecutor attaches the external-inference mapping executor. Without it
// the pipeline runs on pattern and phonetic matching alone.
func WithExecutor(e *llmmap.Executor) ExtractorOption {
	return func(x *Extractor) { x.executor = e }
}

// WithValidator attaches the canonical-name validation service. Mappings
// whose validated category is in exclude are dropped; overrides below
// minConfidence are ignored. Validation failure is always non-fatal.
func WithValidator(v TermValidator, exclude []types.Category, minConfidence float64) ExtractorOption {
	return func(x *Extractor) {
		x.validator = v
		x.minConfidence = minConfidence
		x.excluded = make(map[types.Category]struct{}, len(exclude))
		for _, c := range exclude {
			x.excluded[c] = struct{}{}
		}
	}
}

// WithDeclaredFactions sets the faction context passed to the inference
// provider and the validation service.
func WithDeclaredFactions(factions []string) ExtractorOption {
	return func(x *Extractor) { x.factions = factions }
}

// WithUnitNames narrows the unit vocabulary to the armies actually present,
// replacing the bundled list for exact and fuzzy unit matching.
func WithUnitNames(names []string) ExtractorOption {
	return func(x *Extractor) { x.unitNames = names }
}

// WithFuzzyFloor overrides the categorizer's fuzzy unit-matching floor.
func WithFuzzyFloor(floor float64) ExtractorOption {
	return func(x *Extractor) { x.fuzzyFloor = floor }
}

// WithScannerFloor overrides the phonetic scanner's acceptance floor.
func WithScannerFloor(floor float64) ExtractorOption {
	return func(x *Extractor) { x.scanFloor = floor }
}

// WithMetrics records pipeline metrics on m.
func WithMetrics(m *observe.Metrics) ExtractorOption {
	return func(x *Extractor) { x.metrics = m }
}

// Extractor runs the full extraction pipeline. Read-only after construction;
// one Extractor may serve concurrent Extract calls.
type Extractor struct {
	reg       *registry.Registry
	executor  *llmmap.Executor
	validator TermValidator
	metrics   *observe.Metrics

	factions      []string
	unitNames     []string
	excluded      map[types.Category]struct{}
	minConfidence float64
	fuzzyFloor    float64
	scanFloor     float64
}

// NewExtractor returns an [Extractor] over reg.
func NewExtractor(reg *registry.Registry, opts ...ExtractorOption) *Extractor {
	x := &Extractor{
		reg:           reg,
		minConfidence: 0.5,
	}
	for _, o := range opts {
		o(x)
	}
	if x.unitNames == nil {
		x.unitNames = reg.Units()
	}
	return x
}

// Extract runs the pipeline over segments and returns the produced artifact.
//
// Precedence within a segment: external-inference mappings first, then the
// pattern categorizer, then the phonetic scanner. A term converted by an
// earlier source (case-insensitive) is never re-processed by a later one,
// and a later source never claims a text range an earlier one occupied.
func (x *Extractor) Extract(ctx context.Context, segments []types.TranscriptSegment) (*types.ExtractionResult, error) {
	start := time.Now()
	defer func() {
		if x.metrics != nil {
			x.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
		}
	}()

	if err := checkSegments(segments); err != nil {
		return nil, err
	}

	segs := Deduplicate(segments)
	if x.metrics != nil {
		x.metrics.SegmentsProcessed.Add(ctx, int64(len(segs)))
	}

	// Phonetic pre-normalization happens before every matching source so all
	// of them see the same corrected text.
	working := make([]types.TranscriptSegment, len(segs))
	for i, s := range segs {
		s.Text = PreNormalize(s.Text)
		working[i] = s
	}

	inferred := x.inferenceMappings(ctx, working)

	cat := categorize.New(x.reg, catOptions(x.fuzzyFloor)...)
	matcher := cat.CompileMatcher(ctx, x.unitNames)
	scanner := x.buildScanner()

	result := types.NewExtractionResult()
	for _, s := range working {
		reps := x.matchSegment(ctx, cat, matcher, scanner, s.Text, inferred)
		normalized, tagged := ApplyReplacements(s.Text, reps)
		result.Segments = append(result.Segments, types.NormalizedSegment{
			TranscriptSegment: s,
			NormalizedText:    normalized,
			TaggedText:        tagged,
		})
		for _, r := range reps {
			x.record(ctx, result, r, s)
		}
	}
	return result, nil
}

// checkSegments enforces the input contract: finite, non-negative timing.
func checkSegments(segments []types.TranscriptSegment) error {
	for i, s := range segments {
		switch {
		case math.IsNaN(s.StartTime) || math.IsInf(s.StartTime, 0) || s.StartTime < 0:
			return fmt.Errorf("%w: segment %d has invalid start time %v", ErrMalformedSegment, i, s.StartTime)
		case math.IsNaN(s.Duration) || math.IsInf(s.Duration, 0) || s.Duration < 0:
			return fmt.Errorf("%w: segment %d has invalid duration %v", ErrMalformedSegment, i, s.Duration)
		}
	}
	return nil
}

func catOptions(floor float64) []categorize.Option {
	if floor > 0 {
		return []categorize.Option{categorize.WithFuzzyFloor(floor)}
	}
	return nil
}

func (x *Extractor) buildScanner() *phonetic.Scanner {
	var names []string
	for _, c := range []types.Category{
		types.CategoryFaction, types.CategoryDetachment, types.CategoryStratagem,
		types.CategoryObjective, types.CategoryEnhancement,
	} {
		names = append(names, x.reg.AllNamesFor(c)...)
	}
	names = append(names, x.unitNames...)

	var opts []phonetic.ScannerOption
	if x.scanFloor > 0 {
		opts = append(opts, phonetic.WithScanFloor(x.scanFloor))
	}
	return phonetic.NewScanner(phonetic.NewMatcher(), phonetic.NewIndex(names), opts...)
}

// inferenceMappings runs the chunked external-inference pass and the
// optional validation pass over its output. Returns an empty map when no
// executor is configured or everything degraded.
func (x *Extractor) inferenceMappings(ctx context.Context, segs []types.TranscriptSegment) map[string]string {
	if x.executor == nil {
		return map[string]string{}
	}

	mappings, err := x.executor.MapTranscript(ctx, segs, x.reg.ScanTerms(), x.factions)
	if err != nil {
		slog.Warn("inference pass abandoned", "err", err)
		return map[string]string{}
	}
	return x.validateMappings(ctx, mappings)
}

// validateMappings applies the optional canonical-name validation pass:
// higher-confidence alternatives override, excluded categories are dropped,
// any service failure silently keeps the unvalidated mappings.
func (x *Extractor) validateMappings(ctx context.Context, mappings map[string]string) map[string]string {
	if x.validator == nil || len(mappings) == 0 {
		return mappings
	}

	terms := make([]string, 0, len(mappings))
	for _, official := range mappings {
		terms = append(terms, official)
	}
	sort.Strings(terms)

	validated, err := x.validator.ValidateTerms(ctx, validate.Request{
		Terms:         terms,
		Factions:      x.factions,
		MinConfidence: x.minConfidence,
	})
	if err != nil {
		slog.Warn("validation service unavailable, keeping unvalidated mappings", "err", err)
		if x.metrics != nil {
			x.metrics.ValidationFallbacks.Add(ctx, 1)
		}
		return mappings
	}

	byTerm := make(map[string]validate.ValidatedTerm, len(validated))
	for _, v := range validated {
		byTerm[strings.ToLower(v.Term)] = v
	}

	out := make(map[string]string, len(mappings))
	for colloquial, official := range mappings {
		v, ok := byTerm[strings.ToLower(official)]
		if !ok {
			out[colloquial] = official
			continue
		}
		if _, drop := x.excluded[v.Category]; drop {
			slog.Debug("dropping excluded mapping", "term", colloquial, "category", v.Category)
			continue
		}
		if v.Canonical != "" && v.Confidence >= x.minConfidence {
			out[colloquial] = v.Canonical
		} else {
			out[colloquial] = official
		}
	}
	return out
}

// span is an occupied byte range within one segment's text.
type span struct{ start, end int }

func overlaps(occupied []span, start, end int) bool {
	for _, o := range occupied {
		if start < o.end && end > o.start {
			return true
		}
	}
	return false
}

// matchSegment produces one segment's replacement instructions from the
// three sources in precedence order.
func (x *Extractor) matchSegment(ctx context.Context, cat *categorize.Categorizer, matcher *categorize.TermMatcher, scanner *phonetic.Scanner, text string, inferred map[string]string) []types.TextReplacement {
	converted := map[string]struct{}{}
	var occupied []span
	var reps []types.TextReplacement

	add := func(original, official string, c types.Category, start, end int, source string) {
		reps = append(reps, types.TextReplacement{Original: original, Official: official, Type: c})
		converted[strings.ToLower(original)] = struct{}{}
		occupied = append(occupied, span{start, end})
		if x.metrics != nil {
			x.metrics.Matches.Add(ctx, 1, metric.WithAttributes(
				attribute.String("category", string(c)),
				attribute.String("source", source),
			))
		}
	}

	// 1. External-inference mappings. Longest colloquial first so an inferred
	// multi-word phrase is not shadowed by an inferred sub-word.
	for _, colloquial := range sortedKeysLongestFirst(inferred) {
		if _, done := converted[strings.ToLower(colloquial)]; done {
			continue
		}
		re := compileTermPattern(colloquial)
		if re == nil {
			continue
		}
		official := inferred[colloquial]
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if overlaps(occupied, loc[0], loc[1]) {
				continue
			}
			c := x.categoryFor(ctx, cat, official, colloquial)
			if c == types.CategoryUnknown {
				break
			}
			add(colloquial, official, c, loc[0], loc[1], "inference")
			break
		}
	}

	// 2. Pattern categorizer over exact and alias vocabulary spans.
	for _, s := range matcher.FindAll(text) {
		if _, done := converted[strings.ToLower(s.Term)]; done {
			continue
		}
		if overlaps(occupied, s.Start, s.End) {
			continue
		}
		res := cat.Categorize(ctx, s.Term, x.unitNames)
		if res.Type == types.CategoryUnknown {
			continue
		}
		add(s.Term, res.Canonical, res.Type, s.Start, s.End, "pattern")
	}

	// 3. Phonetic n-gram scanner over the remaining text.
	occupiedFn := func(start, end int) bool { return overlaps(occupied, start, end) }
	for _, cand := range scanner.Scan(text, occupiedFn) {
		if _, done := converted[strings.ToLower(cand.Window)]; done {
			continue
		}
		// Deny-list applies to the raw window, not just the matched name:
		// "battle shock" must never be rewritten into a stratagem.
		if x.reg.IsDenied(cand.Window) {
			continue
		}
		res := cat.Categorize(ctx, cand.Match, x.unitNames)
		if res.Type == types.CategoryUnknown {
			continue
		}
		add(cand.Window, res.Canonical, res.Type, cand.Start, cand.End, "phonetic")
	}

	return reps
}

// categoryFor finds the tagging category for an inference mapping: the
// official name is categorized first, then the colloquial form as a hint.
// Unknown means the mapping cannot be tagged and is skipped.
func (x *Extractor) categoryFor(ctx context.Context, cat *categorize.Categorizer, official, colloquial string) types.Category {
	if res := cat.Categorize(ctx, official, x.unitNames); res.Type != types.CategoryUnknown {
		return res.Type
	}
	if res := cat.Categorize(ctx, colloquial, x.unitNames); res.Type != types.CategoryUnknown {
		return res.Type
	}
	return types.CategoryUnknown
}

// record books one accepted replacement into the result: term map, flat
// match list and the per-category mention index (whole-second timestamps,
// first-appearance order, duplicate seconds suppressed).
func (x *Extractor) record(ctx context.Context, result *types.ExtractionResult, r types.TextReplacement, s types.TranscriptSegment) {
	result.TermMap[strings.ToLower(r.Original)] = r.Official
	result.Matches = append(result.Matches, types.TermMatch{
		Term:           r.Original,
		NormalizedTerm: r.Official,
		Type:           r.Type,
		Timestamp:      s.StartTime,
		SegmentText:    s.Text,
	})

	mm := result.CategoryMap(r.Type)
	if mm == nil {
		return
	}
	em := mm[r.Official]
	if em == nil {
		em = &types.EntityMentions{}
		mm[r.Official] = em
	}
	sec := int(math.Floor(s.StartTime))
	for _, t := range em.Timestamps {
		if t == sec {
			return
		}
	}
	em.Timestamps = append(em.Timestamps, sec)
	em.MentionCount = len(em.Timestamps)
}

// sortedKeysLongestFirst orders map keys longest-first, alphabetical on ties,
// for deterministic application order.
func sortedKeysLongestFirst(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
