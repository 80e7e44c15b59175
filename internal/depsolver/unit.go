package depsolver

import "fmt"

// ContentType distinguishes binary RPMs from source RPMs, mirroring the
// content service's own unit typing.
type ContentType int

const (
	ContentTypeRPM ContentType = iota
	ContentTypeSRPM
)

// Repo is an opaque handle to a content-service repository. ID is the only
// field the core relies on; it is what gets rendered into diagnostics and
// used as the export partition key.
type Repo struct {
	ID string
}

func (r Repo) String() string { return r.ID }

// Unit is a binary package record as returned by the content query layer.
// Its natural dedup key within one target repository is
// (Name, Version, Release, Epoch, Arch).
type Unit struct {
	Name        string
	Version     string
	Release     string
	Epoch       string
	Arch        string
	Filename    string
	Provides    []Atom
	Requires    []string // raw rich-dependency expressions, parsed lazily
	SourceRPM   string
	ContentType ContentType
}

// EVR projects the version-ordering fields out of a unit.
func (u Unit) EVR() EVR {
	return EVR{Epoch: u.Epoch, Version: u.Version, Release: u.Release}
}

// nameArchKey is the grouping key used by what_provides/get_base_packages
// to group candidates, pooled across all searched repos, before highest-EVR
// selection.
type nameArchKey struct {
	Name string
	Arch string
}

// unitIdentity is the natural key described in §3, used for WrappedUnit
// identity/dedup.
type unitIdentity struct {
	Name    string
	Version string
	Release string
	Epoch   string
	Arch    string
}

func (u Unit) identity() unitIdentity {
	return unitIdentity{Name: u.Name, Version: u.Version, Release: u.Release, Epoch: u.Epoch, Arch: u.Arch}
}

// WrappedUnit pairs an underlying unit with the id of the repo it was
// selected from (UbiUnit in the original). Hash/equality delegate to the
// underlying unit's identity; AssociateSourceRepoID is tracked alongside,
// not folded into that identity, so that copies of the same unit drawn from
// different repos coexist in the global selection while still deduping
// within one target repo (§9, "Identity of wrapped units").
type WrappedUnit struct {
	Unit                  Unit
	AssociateSourceRepoID string
}

func WrapUnit(u Unit, repoID string) WrappedUnit {
	return WrappedUnit{Unit: u, AssociateSourceRepoID: repoID}
}

func (w WrappedUnit) identity() unitIdentity {
	return w.Unit.identity()
}

func (w WrappedUnit) String() string {
	return fmt.Sprintf("%s-%s-%s.%s@%s", w.Unit.Name, w.Unit.Version, w.Unit.Release, w.Unit.Arch, w.AssociateSourceRepoID)
}

// ModulemdUnit is a module stream's metadata: the artifact list pins a set
// of NEVRA strings into the modular index (§4.3) regardless of whether the
// fixed-point loop ever requires them.
type ModulemdUnit struct {
	Name      string
	Stream    string
	Version   int64
	Context   string
	Arch      string
	Artifacts []string
}

// ExclusionRule is a single blacklist entry (§3). Matching is delegated to
// exclude.go, which knows how to interpret Globbing.
type ExclusionRule struct {
	Pattern  string
	Globbing bool
	Arch     string // empty means "any arch"
}

// DepsolverItem bundles one input binary repository's whitelist, blacklist,
// and the set of repos it should be resolved against (§3).
type DepsolverItem struct {
	Whitelist   []string
	Blacklist   []ExclusionRule
	InPulpRepos []Repo
}
