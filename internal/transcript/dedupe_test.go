package transcript_test

import (
	"testing"

	"github.com/adrpadua/battlereport-hud/internal/transcript"
	"github.com/adrpadua/battlereport-hud/pkg/types"
)

func TestDeduplicateCollapsesConsecutiveRepeats(t *testing.T) {
	t.Parallel()

	in := []types.TranscriptSegment{
		{Text: "the wyches charge", StartTime: 0},
		{Text: "the wyches charge", StartTime: 1.5},
		{Text: "the wyches charge ", StartTime: 3},
		{Text: "and they wipe the squad", StartTime: 4},
		{Text: "the wyches charge", StartTime: 6},
	}

	got := transcript.Deduplicate(in)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].StartTime != 0 || got[1].StartTime != 4 || got[2].StartTime != 6 {
		t.Fatalf("kept wrong segments: %+v", got)
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	t.Parallel()

	in := []types.TranscriptSegment{
		{Text: "a"}, {Text: "a"}, {Text: "b"}, {Text: "b"}, {Text: "a"},
	}

	once := transcript.Deduplicate(in)
	twice := transcript.Deduplicate(once)
	if len(once) != len(twice) {
		t.Fatalf("not idempotent: %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("segment %d changed on second pass", i)
		}
	}
}

func TestDeduplicateEmpty(t *testing.T) {
	t.Parallel()

	got := transcript.Deduplicate(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty non-nil slice", got)
	}
}
