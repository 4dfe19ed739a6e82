package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/adrpadua/battlereport-hud/internal/registry"
	"github.com/adrpadua/battlereport-hud/pkg/types"
)

func TestLookupsResolveNamesAndAliases(t *testing.T) {
	t.Parallel()

	r := registry.New()

	if got, ok := r.Faction("drukhari"); !ok || got != "Drukhari" {
		t.Errorf("Faction(drukhari) = %q, %v", got, ok)
	}
	if got, ok := r.Faction("dark eldar"); !ok || got != "Drukhari" {
		t.Errorf("Faction(dark eldar) = %q, %v", got, ok)
	}
	if got, ok := r.Stratagem("overwatch"); !ok || got != "Fire Overwatch" {
		t.Errorf("Stratagem(overwatch) = %q, %v", got, ok)
	}
	if got, ok := r.Detachment("skysplinter assault"); !ok || got != "Skysplinter Assault" {
		t.Errorf("Detachment = %q, %v", got, ok)
	}
	if got, ok := r.Enhancement("veil of darkness"); !ok || got != "Veil of Darkness" {
		t.Errorf("Enhancement = %q, %v", got, ok)
	}
	if got, ok := r.UnitAlias("las preds"); !ok || got != "Predator Destructor" {
		t.Errorf("UnitAlias(las preds) = %q, %v", got, ok)
	}
	if _, ok := r.UnitAlias("archon"); ok {
		t.Error("UnitAlias(archon) resolved; exact names are not aliases")
	}
}

func TestIsDenied(t *testing.T) {
	t.Parallel()

	r := registry.New()
	for _, term := range []string{"Battle Shock", "battle shock", " feel no pain "} {
		if !r.IsDenied(term) {
			t.Errorf("IsDenied(%q) = false", term)
		}
	}
	if r.IsDenied("Wyches") {
		t.Error("IsDenied(Wyches) = true")
	}
}

func TestWithExtraListsLayersOverBundled(t *testing.T) {
	t.Parallel()

	r := registry.New(registry.WithExtraLists(&registry.Lists{
		Units:     []string{"Grotesques"},
		UnitAlias: map[string]string{"grots": "Grotesques"},
		Denied:    []string{"Power From Pain"},
	}))

	if got, ok := r.UnitAlias("grots"); !ok || got != "Grotesques" {
		t.Errorf("UnitAlias(grots) = %q, %v", got, ok)
	}
	if !r.IsDenied("power from pain") {
		t.Error("layered deny entry not honored")
	}

	found := false
	for _, u := range r.Units() {
		if u == "Grotesques" {
			found = true
		}
	}
	if !found {
		t.Error("layered unit missing from Units()")
	}
}

// stubFetcher scripts FetchObjectives outcomes.
type stubFetcher struct {
	objectives []string
	err        error
	calls      int
}

func (f *stubFetcher) FetchObjectives(context.Context) ([]string, error) {
	f.calls++
	return f.objectives, f.err
}

func TestObjectiveDynamicFetch(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{objectives: []string{"Display of Might"}}
	r := registry.New(registry.WithObjectiveFetcher(f))
	ctx := context.Background()

	// Bundled objective resolves without a fetch.
	if got, ok := r.Objective(ctx, "area denial"); !ok || got != "Area Denial" {
		t.Fatalf("Objective(area denial) = %q, %v", got, ok)
	}
	if f.calls != 0 {
		t.Fatalf("fetch calls = %d, want 0", f.calls)
	}

	// Miss triggers a fetch; second miss hits the cache.
	if got, ok := r.Objective(ctx, "display of might"); !ok || got != "Display of Might" {
		t.Fatalf("Objective(display of might) = %q, %v", got, ok)
	}
	r.Objective(ctx, "display of might")
	if f.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1 (cached)", f.calls)
	}

	// Invalidate forces a re-fetch.
	r.InvalidateObjectives()
	r.Objective(ctx, "display of might")
	if f.calls != 2 {
		t.Fatalf("fetch calls = %d, want 2 after invalidate", f.calls)
	}
}

func TestObjectiveFetchFailureDegradesToBundled(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{err: errors.New("upstream down")}
	r := registry.New(registry.WithObjectiveFetcher(f))
	ctx := context.Background()

	if _, ok := r.Objective(ctx, "display of might"); ok {
		t.Fatal("unknown objective resolved despite fetch failure")
	}
	if got, ok := r.Objective(ctx, "cleanse"); !ok || got != "Cleanse" {
		t.Fatalf("bundled objective lost: %q, %v", got, ok)
	}
}

func TestScanTermsIncludesAliases(t *testing.T) {
	t.Parallel()

	terms := registry.New().ScanTerms()
	want := map[string]bool{
		"Wyches": false, "las preds": false, "overwatch": false,
		"Fire Overwatch": false, "Drukhari": false, "dark eldar": false,
		"Area Denial": false,
	}
	for _, term := range terms {
		if _, tracked := want[term]; tracked {
			want[term] = true
		}
	}
	for term, seen := range want {
		if !seen {
			t.Errorf("ScanTerms missing %q", term)
		}
	}
}

func TestAllNamesFor(t *testing.T) {
	t.Parallel()

	r := registry.New()
	if names := r.AllNamesFor(types.CategoryFaction); len(names) == 0 {
		t.Error("no faction names")
	}
	if names := r.AllNamesFor(types.CategoryUnknown); names != nil {
		t.Errorf("AllNamesFor(unknown) = %v, want nil", names)
	}
}
