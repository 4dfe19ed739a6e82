// Package types defines the shared types used across all battlereport-hud
// packages.
//
// These types form the lingua franca between the transcript pipeline, the
// reference registry, the inference providers, and the result store. They are
// intentionally minimal — each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

import "strings"

// TranscriptSegment is a single timestamped caption line as captured from the
// battle-report video. Segments are ordered by StartTime and are immutable
// input units.
type TranscriptSegment struct {
	// Text is the raw caption text.
	Text string `json:"text"`

	// StartTime is the offset of the segment from the start of the report,
	// in seconds. Fractional values are permitted on input; mention
	// timestamps are floored to whole seconds during aggregation.
	StartTime float64 `json:"start"`

	// Duration is the display duration of the segment in seconds.
	Duration float64 `json:"duration"`
}

// NormalizedSegment is a TranscriptSegment after term normalization.
// Created once by the text transformer; never mutated afterward.
type NormalizedSegment struct {
	TranscriptSegment

	// NormalizedText is the segment text with colloquial terms replaced by
	// their canonical names. The casing of the first letter of each matched
	// span is preserved.
	NormalizedText string `json:"normalizedText"`

	// TaggedText is NormalizedText with every replacement additionally
	// wrapped as [CATEGORY:CanonicalName].
	TaggedText string `json:"taggedText"`
}

// Category classifies a recognized game entity. The set is closed;
// CategoryUnknown is a terminal sink — terms categorized as unknown are
// discarded and never surfaced.
type Category string

const (
	CategoryFaction     Category = "faction"
	CategoryDetachment  Category = "detachment"
	CategoryStratagem   Category = "stratagem"
	CategoryObjective   Category = "objective"
	CategoryUnit        Category = "unit"
	CategoryEnhancement Category = "enhancement"
	CategoryUnknown     Category = "unknown"
)

// IsValid reports whether c is a recognised category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryFaction, CategoryDetachment, CategoryStratagem,
		CategoryObjective, CategoryUnit, CategoryEnhancement, CategoryUnknown:
		return true
	}
	return false
}

// Tag returns the uppercase tag label used in tagged text, e.g. "UNIT".
func (c Category) Tag() string {
	return strings.ToUpper(string(c))
}

// TermMatch records a single recognized entity mention within a segment.
// The list of matches is append-only; order of discovery carries no meaning —
// category plus timestamp define usage.
type TermMatch struct {
	// Term is the text exactly as found in the segment.
	Term string `json:"term"`

	// NormalizedTerm is the canonical name the term resolved to.
	NormalizedTerm string `json:"normalizedTerm"`

	// Type is the entity category of the match.
	Type Category `json:"type"`

	// Timestamp is the start time of the containing segment, in seconds.
	Timestamp float64 `json:"timestamp"`

	// SegmentText is the full text of the containing segment.
	SegmentText string `json:"segmentText"`
}

// EntityMentions aggregates every mention of one canonical name.
type EntityMentions struct {
	// Timestamps holds the whole-second offsets of each mention, in order of
	// first appearance, with duplicate seconds suppressed.
	Timestamps []int `json:"timestamps"`

	// MentionCount is len(Timestamps). Stored explicitly so the serialized
	// artifact is self-describing for the HUD.
	MentionCount int `json:"mentionCount"`
}

// MentionMap indexes EntityMentions by canonical name within one category.
type MentionMap map[string]*EntityMentions

// TextReplacement instructs the text transformer to substitute one span.
// Replacements for a segment are deduplicated by Original and applied
// longest-Original-first so overlapping spans resolve to the longer match.
type TextReplacement struct {
	// Original is the span text as it appears in the segment.
	Original string

	// Official is the canonical replacement.
	Official string

	// Type is the entity category, used for the tagged-text bracket label.
	Type Category
}

// ExtractionResult is the produced artifact of one pipeline run: the
// normalized transcript plus the per-category mention indices and the
// accumulated colloquial→official map. It is immutable once the run
// completes.
type ExtractionResult struct {
	// Segments is the deduplicated, normalized transcript.
	Segments []NormalizedSegment `json:"segments"`

	// Factions through Enhancements index mentions per category.
	Factions     MentionMap `json:"factions"`
	Detachments  MentionMap `json:"detachments"`
	Stratagems   MentionMap `json:"stratagems"`
	Objectives   MentionMap `json:"objectives"`
	Units        MentionMap `json:"units"`
	Enhancements MentionMap `json:"enhancements"`

	// TermMap is every colloquial→official normalization applied during the
	// run, keyed by the lowercased colloquial form.
	TermMap map[string]string `json:"termMap"`

	// Matches is the flat append-only list of all accepted matches,
	// retained for diagnostics.
	Matches []TermMatch `json:"matches"`
}

// NewExtractionResult returns an ExtractionResult with all maps initialised.
func NewExtractionResult() *ExtractionResult {
	return &ExtractionResult{
		Factions:     MentionMap{},
		Detachments:  MentionMap{},
		Stratagems:   MentionMap{},
		Objectives:   MentionMap{},
		Units:        MentionMap{},
		Enhancements: MentionMap{},
		TermMap:      map[string]string{},
	}
}

// CategoryMap returns the MentionMap for category c, or nil for
// CategoryUnknown and unrecognised values.
func (r *ExtractionResult) CategoryMap(c Category) MentionMap {
	switch c {
	case CategoryFaction:
		return r.Factions
	case CategoryDetachment:
		return r.Detachments
	case CategoryStratagem:
		return r.Stratagems
	case CategoryObjective:
		return r.Objectives
	case CategoryUnit:
		return r.Units
	case CategoryEnhancement:
		return r.Enhancements
	}
	return nil
}
