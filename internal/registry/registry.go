// Package registry provides the canonical reference data for battle-report
// term extraction: per-category lists of known entity names, alias maps for
// colloquial and abbreviated forms, and a deny-list of game-mechanic phrases
// that resemble entity names but must never be tagged.
//
// Static lists ship bundled with the binary. Objective names and alias
// expansions can additionally be fetched from a remote source with TTL
// caching ([Registry.Objectives]); any fetch failure degrades silently to the
// bundled data. Extra lists can be layered from YAML campaign files
// ([LoadListsFile]).
//
// All lookups are case-insensitive and safe for concurrent use — a Registry
// is read-only after construction apart from the internal TTL cache, which
// handles its own synchronisation.
package registry

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/adrpadua/battlereport-hud/pkg/types"
)

const (
	// objectivesCacheKey is the single cache key used for the dynamic
	// objective list.
	objectivesCacheKey = "objectives"

	// defaultObjectivesTTL is how long a fetched objective list stays fresh.
	defaultObjectivesTTL = 15 * time.Minute
)

// Option is a functional option for configuring a [Registry].
type Option func(*Registry)

// WithObjectiveFetcher attaches a dynamic objective source. When nil (the
// default), [Registry.Objectives] always returns the bundled static list.
func WithObjectiveFetcher(f ObjectiveFetcher) Option {
	return func(r *Registry) {
		r.fetcher = f
	}
}

// WithObjectivesTTL overrides the staleness window for fetched objective
// lists. Default: 15 minutes.
func WithObjectivesTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.objectivesTTL = ttl
	}
}

// WithExtraLists layers additional names and aliases over the bundled data.
// Later entries win on alias conflicts.
func WithExtraLists(lists *Lists) Option {
	return func(r *Registry) {
		r.extra = append(r.extra, lists)
	}
}

// Lists holds one set of reference data, either bundled or loaded from YAML.
type Lists struct {
	Factions     []string          `yaml:"factions"`
	Detachments  []string          `yaml:"detachments"`
	Stratagems   []string          `yaml:"stratagems"`
	Objectives   []string          `yaml:"objectives"`
	Enhancements []string          `yaml:"enhancements"`
	Units        []string          `yaml:"units"`
	Denied       []string          `yaml:"denied"`
	FactionAlias map[string]string `yaml:"faction_aliases"`
	UnitAlias    map[string]string `yaml:"unit_aliases"`
	StratAlias   map[string]string `yaml:"stratagem_aliases"`
}

// Registry is the canonical reference data store.
type Registry struct {
	factions     *nameIndex
	detachments  *nameIndex
	stratagems   *nameIndex
	objectives   *nameIndex
	enhancements *nameIndex
	units        *nameIndex
	denied       map[string]struct{}

	fetcher       ObjectiveFetcher
	objectivesTTL time.Duration
	objCache      *TTLCache[[]string]
	extra         []*Lists
}

// New constructs a [Registry] from the bundled reference data plus any
// layered extras.
func New(opts ...Option) *Registry {
	r := &Registry{
		objectivesTTL: defaultObjectivesTTL,
	}
	for _, o := range opts {
		o(r)
	}

	all := append([]*Lists{bundledLists()}, r.extra...)

	r.factions = newNameIndex()
	r.detachments = newNameIndex()
	r.stratagems = newNameIndex()
	r.objectives = newNameIndex()
	r.enhancements = newNameIndex()
	r.units = newNameIndex()
	r.denied = map[string]struct{}{}

	for _, l := range all {
		r.factions.addNames(l.Factions)
		r.factions.addAliases(l.FactionAlias)
		r.detachments.addNames(l.Detachments)
		r.stratagems.addNames(l.Stratagems)
		r.stratagems.addAliases(l.StratAlias)
		r.objectives.addNames(l.Objectives)
		r.enhancements.addNames(l.Enhancements)
		r.units.addNames(l.Units)
		r.units.addAliases(l.UnitAlias)
		for _, d := range l.Denied {
			r.denied[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
		}
	}

	r.objCache = NewTTLCache[[]string](r.objectivesTTL)
	return r
}

// IsDenied reports whether term is on the deny-list. Deny-list membership
// always wins over any category list.
func (r *Registry) IsDenied(term string) bool {
	_, ok := r.denied[strings.ToLower(strings.TrimSpace(term))]
	return ok
}

// Faction resolves term to a canonical faction name via exact match, then
// the alias map.
func (r *Registry) Faction(term string) (string, bool) {
	return r.factions.resolve(term)
}

// Detachment resolves term to a canonical detachment name.
func (r *Registry) Detachment(term string) (string, bool) {
	return r.detachments.resolve(term)
}

// Stratagem resolves term to a canonical stratagem name.
func (r *Registry) Stratagem(term string) (string, bool) {
	return r.stratagems.resolve(term)
}

// Enhancement resolves term to a canonical enhancement name.
func (r *Registry) Enhancement(term string) (string, bool) {
	return r.enhancements.resolve(term)
}

// UnitAlias resolves term through the unit alias map only. Exact unit
// matching is performed by the categorizer against the caller-supplied unit
// list, which may be narrower than the bundled one.
func (r *Registry) UnitAlias(term string) (string, bool) {
	return r.units.resolveAlias(term)
}

// Units returns the bundled unit name list.
func (r *Registry) Units() []string {
	return r.units.names
}

// FactionNames returns all canonical faction names.
func (r *Registry) FactionNames() []string { return r.factions.names }

// DetachmentNames returns all canonical detachment names.
func (r *Registry) DetachmentNames() []string { return r.detachments.names }

// StratagemNames returns all canonical stratagem names.
func (r *Registry) StratagemNames() []string { return r.stratagems.names }

// EnhancementNames returns all canonical enhancement names.
func (r *Registry) EnhancementNames() []string { return r.enhancements.names }

// Objective resolves term against the current objective list. When a dynamic
// fetcher is configured, the fetched list is consulted first (with TTL
// caching); the bundled list is always the fallback.
func (r *Registry) Objective(ctx context.Context, term string) (string, bool) {
	if canonical, ok := r.objectives.resolve(term); ok {
		return canonical, true
	}

	if r.fetcher == nil {
		return "", false
	}

	fetched, err := r.objCache.Get(ctx, objectivesCacheKey, r.fetcher.FetchObjectives)
	if err != nil {
		// Degrade to the bundled list — already checked above.
		slog.Warn("objective fetch failed, using bundled list", "err", err)
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(term))
	for _, o := range fetched {
		if strings.ToLower(o) == normalized {
			return o, true
		}
	}
	return "", false
}

// ObjectiveNames returns the objective names currently known: the bundled
// list plus any cached dynamic entries. It never triggers a fetch.
func (r *Registry) ObjectiveNames() []string {
	names := append([]string(nil), r.objectives.names...)
	if cached, ok := r.objCache.Peek(objectivesCacheKey); ok {
		seen := make(map[string]struct{}, len(names))
		for _, n := range names {
			seen[strings.ToLower(n)] = struct{}{}
		}
		for _, n := range cached {
			if _, dup := seen[strings.ToLower(n)]; !dup {
				names = append(names, n)
			}
		}
	}
	return names
}

// InvalidateObjectives drops the cached dynamic objective list, forcing a
// re-fetch on the next [Registry.Objective] miss.
func (r *Registry) InvalidateObjectives() {
	r.objCache.Invalidate(objectivesCacheKey)
}

// ScanTerms returns every canonical name and alias key the registry knows,
// across all categories, for compiling the per-run term matcher. Dynamic
// objectives are included only when already cached — ScanTerms never
// triggers a fetch.
func (r *Registry) ScanTerms() []string {
	var terms []string
	for _, ix := range []*nameIndex{
		r.factions, r.detachments, r.stratagems, r.enhancements, r.units,
	} {
		terms = append(terms, ix.names...)
		terms = append(terms, ix.aliasKeys()...)
	}
	terms = append(terms, r.ObjectiveNames()...)
	return terms
}

// AllNamesFor returns every canonical name in the given category, used to
// seed the phonetic index. CategoryUnit returns the bundled unit list.
func (r *Registry) AllNamesFor(c types.Category) []string {
	switch c {
	case types.CategoryFaction:
		return r.FactionNames()
	case types.CategoryDetachment:
		return r.DetachmentNames()
	case types.CategoryStratagem:
		return r.StratagemNames()
	case types.CategoryObjective:
		return r.ObjectiveNames()
	case types.CategoryEnhancement:
		return r.EnhancementNames()
	case types.CategoryUnit:
		return r.Units()
	}
	return nil
}

// nameIndex is a case-insensitive exact + alias lookup over one category.
type nameIndex struct {
	names   []string
	byLower map[string]string // lowercased canonical → canonical
	byAlias map[string]string // lowercased alias → canonical
}

func newNameIndex() *nameIndex {
	return &nameIndex{
		byLower: map[string]string{},
		byAlias: map[string]string{},
	}
}

func (ix *nameIndex) addNames(names []string) {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, dup := ix.byLower[key]; dup {
			continue
		}
		ix.byLower[key] = n
		ix.names = append(ix.names, n)
	}
}

func (ix *nameIndex) addAliases(aliases map[string]string) {
	for alias, canonical := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" || canonical == "" {
			continue
		}
		ix.byAlias[alias] = canonical
	}
}

// resolve tries exact canonical match first, then the alias map.
func (ix *nameIndex) resolve(term string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(term))
	if canonical, ok := ix.byLower[key]; ok {
		return canonical, true
	}
	if canonical, ok := ix.byAlias[key]; ok {
		return canonical, true
	}
	return "", false
}

func (ix *nameIndex) aliasKeys() []string {
	keys := make([]string, 0, len(ix.byAlias))
	for k := range ix.byAlias {
		keys = append(keys, k)
	}
	return keys
}

func (ix *nameIndex) resolveAlias(term string) (string, bool) {
	canonical, ok := ix.byAlias[strings.ToLower(strings.TrimSpace(term))]
	return canonical, ok
}
