package registry_test

import (
	"strings"
	"testing"

	"github.com/adrpadua/battlereport-hud/internal/registry"
)

const listsYAML = `
lists:
  units:
    - Grotesques
    - Talos
  unit_aliases:
    grots: Grotesques
  denied:
    - Power From Pain
`

func TestLoadListsFromReader(t *testing.T) {
	t.Parallel()

	lists, err := registry.LoadListsFromReader(strings.NewReader(listsYAML))
	if err != nil {
		t.Fatalf("LoadListsFromReader: %v", err)
	}
	if len(lists.Units) != 2 || lists.Units[0] != "Grotesques" {
		t.Errorf("Units = %v", lists.Units)
	}
	if lists.UnitAlias["grots"] != "Grotesques" {
		t.Errorf("UnitAlias = %v", lists.UnitAlias)
	}
	if len(lists.Denied) != 1 {
		t.Errorf("Denied = %v", lists.Denied)
	}
}

func TestLoadListsRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := registry.LoadListsFromReader(strings.NewReader("lists:\n  unts:\n    - Typo\n"))
	if err == nil {
		t.Fatal("want error for unknown field")
	}
}
