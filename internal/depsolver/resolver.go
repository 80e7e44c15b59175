package depsolver

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchSizeResolver bounds per-iteration fan-out: the fixed-point loop pulls
// at most this many unsolved atoms per round, capping peak outbound
// concurrency at BatchSizeResolver * len(items) (§5).
const BatchSizeResolver = 500

// ResolverFlags holds the options recognized by the core (§6).
type ResolverFlags struct {
	// BasePkgsOnly, when set, makes Run seed output_set from the whitelists
	// and stop: no requires/provides are accumulated, the fixed-point loop
	// never runs, and source-RPM resolution covers only the base packages.
	BasePkgsOnly bool
	// BatchSize overrides BatchSizeResolver when positive, letting a caller
	// tune per-iteration fan-out (process config's batch_size).
	BatchSize int
}

// outputKey is the dedup identity used within one target repo (§3, §9).
type outputKey struct {
	repoID string
	id     unitIdentity
}

// unitWithRepo threads the originating repo id alongside a raw query
// result, needed to build a WrappedUnit once a winner is chosen from a
// cross-repo candidate pool.
type unitWithRepo struct {
	unit   Unit
	repoID string
}

// Resolver is the fixed-point engine described in §4.5. One instance is
// scoped to a single Run: construct it, run it, then Close it to release
// any outstanding queries. It is not safe for concurrent Run calls (§5).
type Resolver struct {
	client       ContentClient
	items        []DepsolverItem
	srpmRepos    []Repo
	modular      modularIndex
	basePkgsOnly bool
	batchSizeCap int
	log          *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	provides AtomSet
	requires AtomSet
	unsolved AtomSet
	drained  map[string]struct{}

	provideIndex  atomIndex
	requirerIndex map[string]map[string]struct{} // atom name -> requirer filenames
	filenameIsMod map[string]bool                // unit filename -> modular?

	outputSet     map[outputKey]WrappedUnit
	srpmOutputSet map[outputKey]WrappedUnit

	diagnostics Diagnostics
}

// NewResolver constructs a resolver scoped to ctx. modularFilenames should
// be the frozen result of ModularFilenames over whatever modular repos the
// caller cares about (§4.3, §9: "frozen at construction, not re-queried per
// iteration").
func NewResolver(ctx context.Context, items []DepsolverItem, srpmRepos []Repo, modularFilenames map[string]struct{}, client ContentClient, flags ResolverFlags, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	batchSizeCap := flags.BatchSize
	if batchSizeCap <= 0 {
		batchSizeCap = BatchSizeResolver
	}
	rctx, cancel := context.WithCancel(ctx)
	return &Resolver{
		client:        client,
		items:         items,
		srpmRepos:     srpmRepos,
		modular:       newModularIndex(modularFilenames),
		basePkgsOnly:  flags.BasePkgsOnly,
		batchSizeCap:  batchSizeCap,
		log:           log,
		ctx:           rctx,
		cancel:        cancel,
		provides:      NewAtomSet(),
		requires:      NewAtomSet(),
		unsolved:      NewAtomSet(),
		drained:       make(map[string]struct{}),
		provideIndex:  newAtomIndex(),
		requirerIndex: make(map[string]map[string]struct{}),
		filenameIsMod: make(map[string]bool),
		outputSet:     make(map[outputKey]WrappedUnit),
		srpmOutputSet: make(map[outputKey]WrappedUnit),
	}
}

// Close cancels any outstanding queries and releases the resolver's scoped
// resources. It must be called whether or not Run completed normally (§5,
// §9 "scoped resource discipline").
func (r *Resolver) Close() {
	r.cancel()
}

// OutputSet returns the currently selected binary units, for diagnostics and
// testing (§6).
func (r *Resolver) OutputSet() []WrappedUnit {
	return mapValues(r.outputSet)
}

// SrpmOutputSet returns the currently selected source units.
func (r *Resolver) SrpmOutputSet() []WrappedUnit {
	return mapValues(r.srpmOutputSet)
}

func mapValues(m map[outputKey]WrappedUnit) []WrappedUnit {
	out := make([]WrappedUnit, 0, len(m))
	for _, w := range m {
		out = append(out, w)
	}
	return out
}

// Diagnostics returns the diagnostics accumulated so far.
func (r *Resolver) Diagnostics() Diagnostics {
	return r.diagnostics
}

func (r *Resolver) addToOutput(set map[outputKey]WrappedUnit, u Unit, repoID string) {
	key := outputKey{repoID: repoID, id: u.identity()}
	set[key] = WrapUnit(u, repoID)
}

// groupHighestEVR groups candidates by (name, arch) and keeps only the
// highest-EVR member of each group (§4.5, "what_provides"/"get_base_packages").
// When preferModular is true, a tie between a modular and non-modular
// candidate of identical EVR is broken in favor of the modular one (§4.5,
// "Modular policy").
func groupHighestEVR(candidates []unitWithRepo, preferModular bool, modular modularIndex) []unitWithRepo {
	groups := make(map[nameArchKey]unitWithRepo)
	order := make([]nameArchKey, 0)
	for _, c := range candidates {
		key := nameArchKey{Name: c.unit.Name, Arch: c.unit.Arch}
		cur, ok := groups[key]
		if !ok {
			groups[key] = c
			order = append(order, key)
			continue
		}
		cmp := c.unit.EVR().Compare(cur.unit.EVR())
		switch {
		case cmp > 0:
			groups[key] = c
		case cmp == 0 && preferModular && modular.IsModular(c.unit) && !modular.IsModular(cur.unit):
			groups[key] = c
		}
	}
	out := make([]unitWithRepo, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key])
	}
	return out
}

// GetBasePackages seeds a resolver item's whitelist by querying every name
// directly (§4.5). Whitelist members not found in any repo are recorded as
// WhitelistMiss diagnostics against the full repo id list searched.
func (r *Resolver) GetBasePackages(item DepsolverItem) []unitWithRepo {
	nameSet := make(map[string]struct{}, len(item.Whitelist))
	for _, n := range item.Whitelist {
		nameSet[n] = struct{}{}
	}

	results := fanOutUnitsByName(r.ctx, r.client, item.InPulpRepos, nameSet)

	found := make(map[string]struct{})
	var candidates []unitWithRepo
	for _, rr := range results {
		survivors, _ := filterBlacklisted(rr.units, item.Blacklist)
		for _, u := range survivors {
			found[u.Name] = struct{}{}
			candidates = append(candidates, unitWithRepo{unit: u, repoID: rr.repo.ID})
		}
	}

	repoIDs := repoIDsOf(item.InPulpRepos)
	for _, name := range item.Whitelist {
		if _, ok := found[name]; !ok {
			r.diagnostics.add(&whitelistMiss{name: name, repoIDs: repoIDs})
		}
	}

	return groupHighestEVR(candidates, false, r.modular)
}

func repoIDsOf(repos []Repo) []string {
	ids := make([]string, len(repos))
	for i, r := range repos {
		ids[i] = r.ID
	}
	return ids
}

// ExtractAndResolve folds a batch of newly-selected units into the
// resolver's _provides/_requires/_unsolved state (§4.5). It is idempotent
// under set union, so callers never need to worry about delivery order
// across repos within one batch (§5).
func (r *Resolver) ExtractAndResolve(units []unitWithRepo) {
	for _, uw := range units {
		u := uw.unit
		r.filenameIsMod[u.Filename] = r.modular.IsModular(u)

		for _, p := range u.Provides {
			r.provides.Add(p)
			r.provideIndex.Insert(p.Name, u.Filename)
		}

		for _, raw := range u.Requires {
			for _, leaf := range ParseRichDependency(raw) {
				atom := NewAtom(leaf)
				r.requires.Add(atom)
				if r.requirerIndex[leaf] == nil {
					r.requirerIndex[leaf] = make(map[string]struct{})
				}
				r.requirerIndex[leaf][u.Filename] = struct{}{}
			}
		}
	}
	r.recomputeUnsolved()
}

func (r *Resolver) recomputeUnsolved() {
	providesNames := r.provides.Names()
	unsolved := NewAtomSet()
	for a := range r.requires {
		if _, ok := providesNames[a.Name]; ok {
			continue
		}
		if _, ok := r.drained[a.Name]; ok {
			continue
		}
		unsolved.Add(a)
	}
	r.unsolved = unsolved
}

func (r *Resolver) batchSize() int {
	n := len(r.unsolved)
	if n > r.batchSizeCap {
		return r.batchSizeCap
	}
	return n
}

// takeBatch removes up to batchSize() atoms from _unsolved and marks them
// drained: once an atom has gone through a batch, it is never reinserted
// into _unsolved even if it remains unresolved (§3 invariants, §4.5
// "Termination guarantee").
func (r *Resolver) takeBatch() []Atom {
	n := r.batchSize()
	batch := make([]Atom, 0, n)
	for a := range r.unsolved {
		if len(batch) >= n {
			break
		}
		batch = append(batch, a)
	}
	for _, a := range batch {
		delete(r.unsolved, a)
		r.drained[a.Name] = struct{}{}
	}
	return batch
}

// WhatProvides resolves a batch of atoms against one item's repos, applying
// blacklist and modular policy before highest-EVR selection (§4.5). It
// returns the selected units plus, for every atom that ended up
// unsatisfied, the reason to report.
func (r *Resolver) WhatProvides(batch []Atom, repos []Repo, blacklist []ExclusionRule) (selected []unitWithRepo, unresolved map[string]reason) {
	results := fanOutUnitsProviding(r.ctx, r.client, repos, batch)

	var raw []unitWithRepo
	for _, rr := range results {
		for _, u := range rr.units {
			raw = append(raw, unitWithRepo{unit: u, repoID: rr.repo.ID})
		}
	}

	unresolved = make(map[string]reason)
	selectedSet := make(map[nameArchKey]unitWithRepo)
	var selectedOrder []nameArchKey

	for _, atom := range batch {
		var atomRaw []unitWithRepo
		for _, c := range raw {
			if providesName(c.unit, atom.Name) {
				atomRaw = append(atomRaw, c)
			}
		}
		if len(atomRaw) == 0 {
			unresolved[atom.Name] = reasonNotFound
			continue
		}

		survivedBlacklist := filterBlacklistedPairs(atomRaw, blacklist)
		if len(survivedBlacklist) == 0 {
			unresolved[atom.Name] = reasonBlacklisted
			continue
		}

		needsNonModular := r.atomNeedsNonModular(atom.Name)
		survivedModular := survivedBlacklist
		if needsNonModular {
			survivedModular = filterNonModular(survivedBlacklist, r.modular)
		}
		if len(survivedModular) == 0 {
			unresolved[atom.Name] = reasonModularOnly
			continue
		}

		winners := groupHighestEVR(survivedModular, !needsNonModular, r.modular)
		for _, w := range winners {
			key := nameArchKey{Name: w.unit.Name, Arch: w.unit.Arch}
			if _, ok := selectedSet[key]; !ok {
				selectedOrder = append(selectedOrder, key)
			}
			selectedSet[key] = w
		}
	}

	selected = make([]unitWithRepo, 0, len(selectedOrder))
	for _, key := range selectedOrder {
		selected = append(selected, selectedSet[key])
	}
	return selected, unresolved
}

func (r *Resolver) atomNeedsNonModular(atomName string) bool {
	requirers := r.requirerIndex[atomName]
	if len(requirers) == 0 {
		return false
	}
	for fn := range requirers {
		if !r.filenameIsMod[fn] {
			return true
		}
	}
	return false
}

func providesName(u Unit, name string) bool {
	for _, p := range u.Provides {
		if p.Name == name {
			return true
		}
	}
	return false
}

func filterBlacklistedPairs(units []unitWithRepo, blacklist []ExclusionRule) []unitWithRepo {
	var out []unitWithRepo
	for _, c := range units {
		blocked := false
		for _, rule := range blacklist {
			if rule.Matches(c.unit) {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, c)
		}
	}
	return out
}

func filterNonModular(units []unitWithRepo, modular modularIndex) []unitWithRepo {
	var out []unitWithRepo
	for _, c := range units {
		if !modular.IsModular(c.unit) {
			out = append(out, c)
		}
	}
	return out
}

func (r *Resolver) requirerFilenames(atomName string) []string {
	names := make([]string, 0, len(r.requirerIndex[atomName]))
	for fn := range r.requirerIndex[atomName] {
		names = append(names, fn)
	}
	sort.Strings(names)
	return names
}

// Run executes the fixed-point loop described in §4.5 to completion,
// populating output_set, srpm_output_set, and the diagnostics channel.
func (r *Resolver) Run() Diagnostics {
	var seed []unitWithRepo
	for _, item := range r.items {
		base := r.GetBasePackages(item)
		seed = append(seed, base...)
		for _, uw := range base {
			r.addToOutput(r.outputSet, uw.unit, uw.repoID)
		}
	}

	if !r.basePkgsOnly {
		r.ExtractAndResolve(seed)
		r.runFixedPoint()
		r.pinModularArtifacts()
	}

	r.resolveSourcePackages()
	return r.diagnostics
}

// pinModularArtifacts forces every unit whose filename is in the frozen
// modular index into output_set, regardless of whether the fixed-point loop
// ever selected it as a highest-EVR winner (§4.5, §8 concrete scenario 4: a
// module's artifact list ships its pair unconditionally). This runs in
// addition to, not instead of, the normal non-modular-preferred selection in
// WhatProvides/GetBasePackages, so both the modular and non-modular members
// of a (name, arch) group can land in output_set at once.
func (r *Resolver) pinModularArtifacts() {
	if len(r.modular.filenames) == 0 {
		return
	}

	repos := r.allRepos()
	if len(repos) == 0 {
		return
	}

	results := fanOutUnitsByName(r.ctx, r.client, repos, r.modular.filenames)
	for _, rr := range results {
		for _, u := range rr.units {
			if !r.modular.IsModular(u) {
				continue
			}
			r.addToOutput(r.outputSet, u, rr.repo.ID)
		}
	}
}

// allRepos returns the deduplicated union of every item's configured repos,
// the set pinModularArtifacts searches for modular-filename matches.
func (r *Resolver) allRepos() []Repo {
	seen := make(map[string]struct{})
	var repos []Repo
	for _, item := range r.items {
		for _, repo := range item.InPulpRepos {
			if _, ok := seen[repo.ID]; ok {
				continue
			}
			seen[repo.ID] = struct{}{}
			repos = append(repos, repo)
		}
	}
	return repos
}

func (r *Resolver) runFixedPoint() {
	for len(r.unsolved) > 0 {
		batch := r.takeBatch()
		if len(batch) == 0 {
			break
		}
		r.log.Debug("fixed-point batch", zap.Int("batch", len(batch)), zap.Int("unsolved_remaining", len(r.unsolved)))

		type itemOutcome struct {
			selected   []unitWithRepo
			unresolved map[string]reason
			repoIDs    []string
		}
		outcomes := make([]itemOutcome, len(r.items))

		var eg errgroup.Group
		for i, item := range r.items {
			i, item := i, item
			eg.Go(func() error {
				selected, unresolved := r.WhatProvides(batch, item.InPulpRepos, item.Blacklist)
				outcomes[i] = itemOutcome{selected: selected, unresolved: unresolved, repoIDs: repoIDsOf(item.InPulpRepos)}
				return nil
			})
		}
		_ = eg.Wait()

		var newlySelected []unitWithRepo
		resolvedNames := make(map[string]struct{})
		reasonByAtom := make(map[string]reason)
		repoIDsByAtom := make(map[string][]string)

		for _, outcome := range outcomes {
			for _, uw := range outcome.selected {
				newlySelected = append(newlySelected, uw)
				for _, p := range uw.unit.Provides {
					resolvedNames[p.Name] = struct{}{}
				}
			}
			for name, reas := range outcome.unresolved {
				if _, ok := resolvedNames[name]; ok {
					continue
				}
				// When different items disagree on why an atom failed,
				// prefer the more specific signal (blacklisted/modular-only
				// imply a candidate did exist somewhere) over a bare
				// not-found.
				if existing, ok := reasonByAtom[name]; !ok || reasonSpecificity(reas) > reasonSpecificity(existing) {
					reasonByAtom[name] = reas
					repoIDsByAtom[name] = outcome.repoIDs
				} else {
					repoIDsByAtom[name] = append(repoIDsByAtom[name], outcome.repoIDs...)
				}
			}
		}

		for _, uw := range newlySelected {
			r.addToOutput(r.outputSet, uw.unit, uw.repoID)
		}
		r.ExtractAndResolve(newlySelected)

		providesNames := r.provides.Names()
		for atomName, reas := range reasonByAtom {
			if _, ok := providesNames[atomName]; ok {
				continue
			}
			requirers := r.requirerFilenames(atomName)
			switch reas {
			case reasonBlacklisted:
				r.diagnostics.add(&unresolvedAtom{atom: atomName, reason: reasonBlacklisted, requirers: requirers})
			case reasonModularOnly:
				r.diagnostics.add(&unresolvedAtom{atom: atomName, reason: reasonModularOnly, requirers: requirers})
			default:
				suggestion, _ := r.provideIndex.LongestPrefix(atomName)
				if suggestion == atomName {
					suggestion = ""
				}
				r.diagnostics.add(&unresolvedAtom{atom: atomName, reason: reasonNotFound, repoIDs: dedupStrings(repoIDsByAtom[atomName]), requirers: requirers, suggestion: suggestion})
			}
		}
	}
}

// reasonSpecificity ranks diagnostic reasons so that the fixed-point loop's
// cross-item merge keeps the most informative one when items disagree.
func reasonSpecificity(r reason) int {
	switch r {
	case reasonBlacklisted, reasonModularOnly:
		return 1
	default:
		return 0
	}
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// resolveSourcePackages walks output_set for referenced sourcerpm filenames
// and resolves them against srpm_repos (§4.5 step 4).
func (r *Resolver) resolveSourcePackages() {
	if len(r.srpmRepos) == 0 {
		return
	}

	names := make(map[string]struct{})
	for _, w := range r.outputSet {
		if w.Unit.SourceRPM != "" {
			names[w.Unit.SourceRPM] = struct{}{}
		}
	}
	if len(names) == 0 {
		return
	}

	results := fanOutUnitsByName(r.ctx, r.client, r.srpmRepos, names)
	for _, rr := range results {
		for _, u := range rr.units {
			r.addToOutput(r.srpmOutputSet, u, rr.repo.ID)
		}
	}
}

// AddModuleArtifacts pins every artifact of a module stream into the output
// set directly. Run already does this automatically via pinModularArtifacts
// for any filename present in the frozen modular index at construction time;
// this method exists for pinning a module stream discovered or opted into
// after construction, without re-running the resolver (SPEC_FULL.md
// "SUPPLEMENTED FEATURES" #3).
func (r *Resolver) AddModuleArtifacts(ctx context.Context, md ModulemdUnit, repo Repo) error {
	filenames := make(map[string]struct{}, len(md.Artifacts))
	for _, artifact := range md.Artifacts {
		filenames[artifactToFilename(artifact)] = struct{}{}
	}

	future := r.client.UnitsByName(ctx, repo, filenamesToNameGuess(filenames))
	units, err := future.Await(ctx)
	if err != nil {
		return err
	}

	for _, u := range units {
		if _, ok := filenames[u.Filename]; !ok {
			continue
		}
		r.addToOutput(r.outputSet, u, repo.ID)
	}
	return nil
}

// filenamesToNameGuess exists because AddModuleArtifacts seeds by filename,
// not by package name; ContentClient.UnitsByName matches on Name, so a
// real content client backing this operation is expected to also accept
// filenames in the name set for modular artifact pins (the same looseness
// the base spec already relies on for source-rpm lookups in §4.5 step 4).
func filenamesToNameGuess(filenames map[string]struct{}) map[string]struct{} {
	return filenames
}
