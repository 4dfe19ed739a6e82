package transcript_test

import (
	"strings"
	"testing"

	"github.com/adrpadua/battlereport-hud/internal/transcript"
	"github.com/adrpadua/battlereport-hud/pkg/types"
)

func rep(original, official string, c types.Category) types.TextReplacement {
	return types.TextReplacement{Original: original, Official: official, Type: c}
}

func TestApplyReplacementsBasic(t *testing.T) {
	t.Parallel()

	normalized, tagged := transcript.ApplyReplacements(
		"the wyches charge the terminators",
		[]types.TextReplacement{
			rep("wyches", "Wyches", types.CategoryUnit),
			rep("terminators", "Terminator Squad", types.CategoryUnit),
		},
	)

	if normalized != "the wyches charge the terminator Squad" {
		t.Errorf("normalized = %q", normalized)
	}
	if tagged != "the [UNIT:wyches] charge the [UNIT:terminator Squad]" {
		t.Errorf("tagged = %q", tagged)
	}
}

func TestApplyReplacementsCasePreservation(t *testing.T) {
	t.Parallel()

	normalized, _ := transcript.ApplyReplacements(
		"Witches charge. I love witches.",
		[]types.TextReplacement{rep("witches", "Wyches", types.CategoryUnit)},
	)
	if normalized != "Wyches charge. I love wyches." {
		t.Errorf("normalized = %q", normalized)
	}
}

func TestApplyReplacementsLongestOriginalWins(t *testing.T) {
	t.Parallel()

	// Overlapping candidates: only the longer original may fire.
	normalized, tagged := transcript.ApplyReplacements(
		"the las preds open fire",
		[]types.TextReplacement{
			rep("las preds", "Predator Destructor", types.CategoryUnit),
			rep("preds", "Predator Annihilator", types.CategoryUnit),
		},
	)
	if !strings.Contains(normalized, "predator Destructor") {
		t.Errorf("normalized = %q, want the longer replacement applied", normalized)
	}
	if strings.Contains(normalized, "Annihilator") || strings.Contains(tagged, "Annihilator") {
		t.Errorf("shorter overlapping replacement fired: %q / %q", normalized, tagged)
	}
	if strings.Count(tagged, "[UNIT:") != 1 {
		t.Errorf("tagged = %q, want exactly one tag", tagged)
	}
}

func TestApplyReplacementsNoNestedTags(t *testing.T) {
	t.Parallel()

	// "fire overwatch" tags first; the bare "fire" replacement must not fire
	// inside the already-tagged span.
	_, tagged := transcript.ApplyReplacements(
		"fire overwatch stops the charge",
		[]types.TextReplacement{
			rep("fire overwatch", "Fire Overwatch", types.CategoryStratagem),
			rep("fire", "Fire Discipline", types.CategoryEnhancement),
		},
	)
	if strings.Contains(tagged, "[ENHANCEMENT:[") || strings.Contains(tagged, "[STRATAGEM:[") {
		t.Fatalf("nested tags produced: %q", tagged)
	}
	if !strings.HasPrefix(tagged, "[STRATAGEM:") {
		t.Fatalf("tagged = %q", tagged)
	}
	if strings.Count(tagged, "[") != strings.Count(tagged, "]") {
		t.Fatalf("unbalanced brackets: %q", tagged)
	}
}

func TestApplyReplacementsDedupeByOriginal(t *testing.T) {
	t.Parallel()

	normalized, _ := transcript.ApplyReplacements(
		"archon leads",
		[]types.TextReplacement{
			rep("archon", "Archon", types.CategoryUnit),
			rep("Archon", "Succubus", types.CategoryUnit), // duplicate original, ignored
		},
	)
	if strings.Contains(normalized, "Succubus") {
		t.Errorf("duplicate original was not ignored: %q", normalized)
	}
}

func TestApplyReplacementsNoMatchesPassthrough(t *testing.T) {
	t.Parallel()

	text := "nothing of note happened this turn"
	normalized, tagged := transcript.ApplyReplacements(text, []types.TextReplacement{
		rep("wyches", "Wyches", types.CategoryUnit),
	})
	if normalized != text || tagged != text {
		t.Errorf("passthrough changed text: %q / %q", normalized, tagged)
	}
}
