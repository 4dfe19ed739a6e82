package transcript_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/adrpadua/battlereport-hud/internal/registry"
	"github.com/adrpadua/battlereport-hud/internal/transcript"
	"github.com/adrpadua/battlereport-hud/internal/transcript/llmmap"
	"github.com/adrpadua/battlereport-hud/internal/validate"
	"github.com/adrpadua/battlereport-hud/pkg/provider/llm"
	"github.com/adrpadua/battlereport-hud/pkg/provider/llm/mock"
	"github.com/adrpadua/battlereport-hud/pkg/types"
)

func TestExtractEndToEnd(t *testing.T) {
	t.Parallel()

	x := transcript.NewExtractor(registry.New())
	segments := []types.TranscriptSegment{
		{Text: "The witches charged forward", StartTime: 0.4, Duration: 1},
		{Text: "The witches charged forward", StartTime: 1.4, Duration: 1},
		{Text: "Fire over watch goes off", StartTime: 2.2, Duration: 1},
		{Text: "My are con moved up", StartTime: 4.9, Duration: 1},
		{Text: "The las preds shoot at the enemy", StartTime: 6.0, Duration: 1},
	}

	result, err := x.Extract(context.Background(), segments)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(result.Segments) != 4 {
		t.Fatalf("segments = %d, want 4 after dedup", len(result.Segments))
	}

	wantMentions := []struct {
		mm   types.MentionMap
		name string
		secs []int
	}{
		{result.Units, "Wyches", []int{0}},
		{result.Stratagems, "Fire Overwatch", []int{2}},
		{result.Units, "Archon", []int{4}},
		{result.Units, "Predator Destructor", []int{6}},
	}
	for _, w := range wantMentions {
		em := w.mm[w.name]
		if em == nil {
			t.Fatalf("%s not mentioned; maps: %+v", w.name, w.mm)
		}
		if len(em.Timestamps) != len(w.secs) || em.Timestamps[0] != w.secs[0] {
			t.Errorf("%s timestamps = %v, want %v", w.name, em.Timestamps, w.secs)
		}
		if em.MentionCount != len(em.Timestamps) {
			t.Errorf("%s count = %d, want %d", w.name, em.MentionCount, len(em.Timestamps))
		}
	}

	if !strings.Contains(result.Segments[1].TaggedText, "[STRATAGEM:Fire Overwatch]") {
		t.Errorf("tagged = %q", result.Segments[1].TaggedText)
	}
	if got := result.TermMap["las preds"]; got != "Predator Destructor" {
		t.Errorf(`TermMap["las preds"] = %q`, got)
	}
}

func TestExtractDenyListWins(t *testing.T) {
	t.Parallel()

	x := transcript.NewExtractor(registry.New())
	result, err := x.Extract(context.Background(), []types.TranscriptSegment{
		{Text: "They take battle shock tests now", StartTime: 1},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(result.Matches) != 0 {
		t.Fatalf("matches = %+v, want none for denied phrase", result.Matches)
	}
	if got := result.Segments[0].TaggedText; strings.Contains(got, "[") {
		t.Fatalf("tagged = %q, want untouched", got)
	}
}

func TestExtractMalformedSegment(t *testing.T) {
	t.Parallel()

	x := transcript.NewExtractor(registry.New())
	_, err := x.Extract(context.Background(), []types.TranscriptSegment{
		{Text: "fine", StartTime: -3},
	})
	if !errors.Is(err, transcript.ErrMalformedSegment) {
		t.Fatalf("got %v, want ErrMalformedSegment", err)
	}
}

func TestExtractInferencePrecedence(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"mappings": {"boys": "Boyz"}}`,
	}}
	x := transcript.NewExtractor(registry.New(),
		transcript.WithExecutor(llmmap.NewExecutor(llmmap.NewMapper(p))),
		transcript.WithDeclaredFactions([]string{"Orks"}),
	)

	result, err := x.Extract(context.Background(), []types.TranscriptSegment{
		{Text: "the boys krumped everything", StartTime: 10},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if got := result.TermMap["boys"]; got != "Boyz" {
		t.Fatalf(`TermMap["boys"] = %q, want "Boyz"`, got)
	}
	em := result.Units["Boyz"]
	if em == nil || em.Timestamps[0] != 10 {
		t.Fatalf("Boyz mentions = %+v", em)
	}
	// Exactly one match: later sources must not re-process the converted term.
	if len(result.Matches) != 1 {
		t.Fatalf("matches = %+v, want exactly one", result.Matches)
	}
	if result.Matches[0].Term != "boys" {
		t.Fatalf("match term = %q", result.Matches[0].Term)
	}
}

// scriptedValidator returns canned verdicts and records the submitted terms.
type scriptedValidator struct {
	verdicts []validate.ValidatedTerm
	err      error
	gotTerms []string
}

func (v *scriptedValidator) ValidateTerms(_ context.Context, req validate.Request) ([]validate.ValidatedTerm, error) {
	v.gotTerms = req.Terms
	return v.verdicts, v.err
}

func TestExtractValidationOverridesAndDrops(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"mappings": {"boys": "Boys", "splinter guns": "Splinter Rifle"}}`,
	}}
	v := &scriptedValidator{verdicts: []validate.ValidatedTerm{
		{Term: "Boys", Canonical: "Boyz", Category: types.CategoryUnit, Confidence: 0.95},
		{Term: "Splinter Rifle", Canonical: "Splinter Rifle", Category: types.CategoryUnknown, Confidence: 0.9},
	}}
	x := transcript.NewExtractor(registry.New(),
		transcript.WithExecutor(llmmap.NewExecutor(llmmap.NewMapper(p))),
		transcript.WithValidator(v, []types.Category{types.CategoryUnknown}, 0.5),
	)

	result, err := x.Extract(context.Background(), []types.TranscriptSegment{
		{Text: "the boys fired their splinter guns", StartTime: 3},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if got := result.TermMap["boys"]; got != "Boyz" {
		t.Fatalf(`TermMap["boys"] = %q, want validated override "Boyz"`, got)
	}
	if _, present := result.TermMap["splinter guns"]; present {
		t.Fatal("excluded-category mapping survived validation")
	}
}

func TestExtractValidationFailureFallsBack(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: `{"mappings": {"boys": "Boyz"}}`,
	}}
	v := &scriptedValidator{err: errors.New("service down")}
	x := transcript.NewExtractor(registry.New(),
		transcript.WithExecutor(llmmap.NewExecutor(llmmap.NewMapper(p))),
		transcript.WithValidator(v, nil, 0.5),
	)

	result, err := x.Extract(context.Background(), []types.TranscriptSegment{
		{Text: "the boys krumped everything", StartTime: 3},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := result.TermMap["boys"]; got != "Boyz" {
		t.Fatalf(`TermMap["boys"] = %q, want unvalidated mapping kept`, got)
	}
}

func TestExtractRepeatedMentionsDedupeSeconds(t *testing.T) {
	t.Parallel()

	x := transcript.NewExtractor(registry.New())
	result, err := x.Extract(context.Background(), []types.TranscriptSegment{
		{Text: "the wyches advance", StartTime: 5.1},
		{Text: "the wyches strike", StartTime: 5.8},
		{Text: "the wyches consolidate", StartTime: 9.0},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	em := result.Units["Wyches"]
	if em == nil {
		t.Fatal("Wyches not mentioned")
	}
	if len(em.Timestamps) != 2 || em.Timestamps[0] != 5 || em.Timestamps[1] != 9 {
		t.Fatalf("timestamps = %v, want [5 9]", em.Timestamps)
	}
}
