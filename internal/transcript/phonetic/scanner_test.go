package phonetic_test

import (
	"testing"

	"github.com/adrpadua/battlereport-hud/internal/transcript/phonetic"
)

func newScanner(names []string) *phonetic.Scanner {
	return phonetic.NewScanner(phonetic.NewMatcher(), phonetic.NewIndex(names))
}

func TestScanFindsNearMiss(t *testing.T) {
	t.Parallel()

	s := newScanner([]string{"Wyches", "Archon"})
	cands := s.Scan("the witches charged", nil)
	if len(cands) != 1 {
		t.Fatalf("candidates = %+v, want 1", cands)
	}
	c := cands[0]
	if c.Match != "Wyches" || c.Window != "witches" {
		t.Fatalf("candidate = %+v", c)
	}
	if got := "the witches charged"[c.Start:c.End]; got != "witches" {
		t.Fatalf("offsets select %q", got)
	}
}

func TestScanSkipsExactText(t *testing.T) {
	t.Parallel()

	s := newScanner([]string{"Wyches"})
	if cands := s.Scan("the wyches charged", nil); len(cands) != 0 {
		t.Fatalf("candidates = %+v, exact text needs no correction", cands)
	}
}

func TestScanSkipsLiteralNameFragment(t *testing.T) {
	t.Parallel()

	s := newScanner([]string{"Tank Shock", "Kabalite Warriors"})
	// "shock" and "kabalite" are literal fragments of indexed names.
	if cands := s.Scan("a shock for the kabalite squad", nil); len(cands) != 0 {
		t.Fatalf("candidates = %+v, want none", cands)
	}
}

func TestScanHonorsOccupiedRanges(t *testing.T) {
	t.Parallel()

	s := newScanner([]string{"Wyches"})
	text := "the witches charged"
	occupied := func(start, end int) bool { return start < 11 && end > 4 } // "witches"
	if cands := s.Scan(text, occupied); len(cands) != 0 {
		t.Fatalf("candidates = %+v, want none in occupied range", cands)
	}
}

func TestScanPrefersLongerWindow(t *testing.T) {
	t.Parallel()

	s := newScanner([]string{"Kabalite Warriors"})
	cands := s.Scan("the cabba light worriers open fire", nil)
	if len(cands) != 1 {
		t.Fatalf("candidates = %+v, want 1 non-overlapping window", cands)
	}
	if cands[0].Match != "Kabalite Warriors" {
		t.Fatalf("candidate = %+v", cands[0])
	}
	if len(cands[0].Window) < len("cabba light") {
		t.Fatalf("window = %q, want a multi-word window", cands[0].Window)
	}
}

func TestScanTrimsPunctuation(t *testing.T) {
	t.Parallel()

	s := newScanner([]string{"Wyches"})
	cands := s.Scan("charge, witches!", nil)
	if len(cands) != 1 || cands[0].Window != "witches" {
		t.Fatalf("candidates = %+v", cands)
	}
}

func TestScanEmptyIndex(t *testing.T) {
	t.Parallel()

	s := newScanner(nil)
	if cands := s.Scan("anything at all", nil); cands != nil {
		t.Fatalf("candidates = %+v, want nil", cands)
	}
}
