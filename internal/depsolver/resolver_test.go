package depsolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatProvidesHighestVersionWins(t *testing.T) {
	client := newFakeClient()
	repo := Repo{ID: "repo"}
	client.insert(repo.ID,
		Unit{Name: "test", Version: "10", Release: "200", Epoch: "1", Arch: "x86_64", Provides: []Atom{NewAtom("gcc")}},
		Unit{Name: "test", Version: "100", Release: "200", Epoch: "1", Arch: "x86_64", Provides: []Atom{NewAtom("gcc")}},
	)

	r := NewResolver(context.Background(), nil, nil, nil, client, ResolverFlags{}, nil)
	defer r.Close()

	selected, unresolved := r.WhatProvides([]Atom{NewAtom("gcc")}, []Repo{repo}, nil)
	require.Empty(t, unresolved)
	require.Len(t, selected, 1)
	assert.Equal(t, "100", selected[0].unit.Version)
}

func TestExtractAndResolve(t *testing.T) {
	client := newFakeClient()
	r := NewResolver(context.Background(), nil, nil, nil, client, ResolverFlags{}, nil)
	defer r.Close()

	r.requires = NewAtomSet(NewAtom("pkg_a"), NewAtom("pkg_b"))
	r.provides = NewAtomSet(NewAtom("pkg_c"), NewAtom("pkg_d"))
	r.recomputeUnsolved()

	unit := unitWithRepo{
		unit: Unit{
			Name: "test", Version: "10", Release: "200", Epoch: "1", Arch: "x86_64",
			Filename: "test-10-200.x86_64.rpm",
			Provides: []Atom{NewAtom("pkg_e"), NewAtom("pkg_b")},
			Requires: []string{"pkg_f", "(pkg_g if pkg_h)"},
		},
		repoID: "repo",
	}

	r.ExtractAndResolve([]unitWithRepo{unit})

	assert.Equal(t, NewAtomSet(NewAtom("pkg_a"), NewAtom("pkg_b"), NewAtom("pkg_f"), NewAtom("pkg_g"), NewAtom("pkg_h")), r.requires)
	assert.Equal(t, NewAtomSet(NewAtom("pkg_c"), NewAtom("pkg_d"), NewAtom("pkg_e"), NewAtom("pkg_b")), r.provides)
	assert.Equal(t, NewAtomSet(NewAtom("pkg_a"), NewAtom("pkg_f"), NewAtom("pkg_g"), NewAtom("pkg_h")), r.unsolved)
}

func TestGetBasePackagesHighestVersionAndBlacklist(t *testing.T) {
	client := newFakeClient()
	repo := Repo{ID: "test_repo_id"}
	client.insert(repo.ID,
		Unit{Name: "test", Version: "10", Release: "200", Epoch: "1", Arch: "x86_64"},
		Unit{Name: "test", Version: "100", Release: "200", Epoch: "1", Arch: "x86_64"},
		Unit{Name: "test-exclude", Version: "100", Release: "200", Epoch: "1", Arch: "x86_64"},
	)

	item := DepsolverItem{
		Whitelist: []string{"test", "test-exclude"},
		Blacklist: []ExclusionRule{
			{Pattern: "test-exc", Globbing: true},
			{Pattern: "test", Globbing: false, Arch: "s390x"},
		},
		InPulpRepos: []Repo{repo},
	}

	r := NewResolver(context.Background(), []DepsolverItem{item}, nil, nil, client, ResolverFlags{}, nil)
	defer r.Close()

	result := r.GetBasePackages(item)
	require.Len(t, result, 1)
	assert.Equal(t, "test", result[0].unit.Name)
	assert.Equal(t, "100", result[0].unit.Version)
}

func TestWhitelistMissDiagnostic(t *testing.T) {
	client := newFakeClient()
	repo := Repo{ID: "test_repo_rpm"}

	item := DepsolverItem{Whitelist: []string{"jq", "perl-version"}, InPulpRepos: []Repo{repo}}
	r := NewResolver(context.Background(), []DepsolverItem{item}, nil, nil, client, ResolverFlags{}, nil)
	defer r.Close()

	r.GetBasePackages(item)
	require.Len(t, r.diagnostics, 2)

	messages := []string{r.diagnostics[0].Error(), r.diagnostics[1].Error()}
	assert.Contains(t, messages, "'jq' not found in ['test_repo_rpm'].")
	assert.Contains(t, messages, "'perl-version' not found in ['test_repo_rpm'].")
}

func TestRunUnresolvedDiagnostics(t *testing.T) {
	client := newFakeClient()
	repo1 := Repo{ID: "test_repo_1"}
	repo2 := Repo{ID: "test_repo_2"}

	libX := Unit{
		Name: "lib-x", Version: "100", Release: "200", Arch: "x86_64",
		Filename: "lib-x-100-200.x86_64.rpm",
		Provides: []Atom{NewAtom("lib-x")},
		Requires: []string{"lib.g", "(pkgX(abc) with capY(xyz))", "lib_exclude"},
	}
	libY := Unit{
		Name: "lib-y", Version: "100", Release: "200", Arch: "x86_64",
		Filename: "lib-y-100-200.x86_64.rpm",
		Provides: []Atom{NewAtom("lib-y")},
		Requires: []string{"lib_exclude", "blacklisted-package"},
	}
	libExclude := Unit{Name: "lib_exclude", Version: "1", Release: "1", Arch: "x86_64", Provides: []Atom{NewAtom("lib_exclude")}}
	blacklistedPkg := Unit{Name: "blacklisted-package", Version: "1", Release: "1", Arch: "x86_64", Provides: []Atom{NewAtom("blacklisted-package")}}

	client.insert(repo1.ID, libX, libY, libExclude, blacklistedPkg)
	client.insert(repo2.ID, libExclude, blacklistedPkg)

	item := DepsolverItem{
		Whitelist: []string{"lib-x", "lib-y"},
		Blacklist: []ExclusionRule{
			{Pattern: "lib_exclude", Globbing: false},
			{Pattern: "blacklisted-", Globbing: true},
		},
		InPulpRepos: []Repo{repo1, repo2},
	}

	r := NewResolver(context.Background(), []DepsolverItem{item}, nil, nil, client, ResolverFlags{}, nil)
	defer r.Close()

	diags := r.Run()
	assert.Empty(t, r.unsolved)

	var messages []string
	for _, d := range diags {
		messages = append(messages, d.Error())
	}

	assert.Contains(t, messages, "Failed depsolving: lib.g can not be found in these input repos: ['test_repo_1', 'test_repo_2']. These rpms depend on it [lib-x-100-200.x86_64.rpm]")
	assert.Contains(t, messages, "Failed depsolving: pkgX(abc) can not be found in these input repos: ['test_repo_1', 'test_repo_2']. These rpms depend on it [lib-x-100-200.x86_64.rpm]")
	assert.Contains(t, messages, "Failed depsolving: capY(xyz) can not be found in these input repos: ['test_repo_1', 'test_repo_2']. These rpms depend on it [lib-x-100-200.x86_64.rpm]")
	assert.Contains(t, messages, "Failed depsolving: lib_exclude is blacklisted. These rpms depend on it [lib-x-100-200.x86_64.rpm, lib-y-100-200.x86_64.rpm]")
	assert.Contains(t, messages, "Failed depsolving: blacklisted-package is blacklisted. These rpms depend on it [lib-y-100-200.x86_64.rpm]")
}

func TestRunModularPolicy(t *testing.T) {
	client := newFakeClient()
	repo := Repo{ID: "repo"}

	nginxNonModular := Unit{
		Name: "nginx", Version: "1.20.1", Release: "1", Arch: "x86_64",
		Filename: "nginx-1.20.1-1.x86_64.rpm",
		Provides: []Atom{NewAtom("nginx")},
		Requires: []string{"nginx-core"},
	}
	nginxCoreNonModular := Unit{
		Name: "nginx-core", Version: "1.20.1", Release: "1", Arch: "x86_64",
		Filename: "nginx-core-1.20.1-1.x86_64.rpm",
		Provides:  []Atom{NewAtom("nginx-core")},
	}
	nginxCoreModular := Unit{
		Name: "nginx-core", Version: "1.22.1", Release: "1", Arch: "x86_64",
		Filename: "nginx-core-1.22.1-1.x86_64.rpm",
		Provides: []Atom{NewAtom("nginx-core")},
	}

	client.insert(repo.ID, nginxNonModular, nginxCoreNonModular, nginxCoreModular)

	modular := ModularFilenames([]ModulemdUnit{{
		Name: "nginx", Stream: "1.22", Arch: "x86_64",
		Artifacts: []string{"nginx-core-0:1.22.1-1.x86_64"},
	}})

	item := DepsolverItem{Whitelist: []string{"nginx"}, InPulpRepos: []Repo{repo}}
	r := NewResolver(context.Background(), []DepsolverItem{item}, nil, modular, client, ResolverFlags{}, nil)
	defer r.Close()

	r.Run()

	var names []string
	for _, w := range r.OutputSet() {
		names = append(names, w.Unit.Filename)
	}
	assert.Contains(t, names, "nginx-core-1.20.1-1.x86_64.rpm")
	assert.Contains(t, names, "nginx-core-1.22.1-1.x86_64.rpm")
}

func TestAddModuleArtifactsPinsModularPair(t *testing.T) {
	client := newFakeClient()
	repo := Repo{ID: "repo"}

	nginxModular := Unit{Name: "nginx", Version: "1.22.1", Release: "1", Arch: "x86_64", Filename: "nginx-1.22.1-1.x86_64.rpm"}
	nginxCoreModular := Unit{Name: "nginx-core", Version: "1.22.1", Release: "1", Arch: "x86_64", Filename: "nginx-core-1.22.1-1.x86_64.rpm"}
	client.insert(repo.ID, nginxModular, nginxCoreModular)

	md := ModulemdUnit{
		Name: "nginx", Stream: "1.22", Arch: "x86_64",
		Artifacts: []string{"nginx-0:1.22.1-1.x86_64", "nginx-core-0:1.22.1-1.x86_64"},
	}

	r := NewResolver(context.Background(), nil, nil, nil, client, ResolverFlags{}, nil)
	defer r.Close()

	require.NoError(t, r.AddModuleArtifacts(context.Background(), md, repo))

	var names []string
	for _, w := range r.OutputSet() {
		names = append(names, w.Unit.Filename)
	}
	assert.Contains(t, names, "nginx-1.22.1-1.x86_64.rpm")
	assert.Contains(t, names, "nginx-core-1.22.1-1.x86_64.rpm")
}

func TestRunBasePkgsOnlySkipsExtraction(t *testing.T) {
	client := newFakeClient()
	repo := Repo{ID: "repo"}

	unit := Unit{
		Name: "test", Version: "10", Release: "200", Arch: "x86_64",
		Provides: []Atom{NewAtom("gcc")},
		Requires: []string{"never-extracted"},
	}
	client.insert(repo.ID, unit)

	item := DepsolverItem{Whitelist: []string{"test"}, InPulpRepos: []Repo{repo}}
	r := NewResolver(context.Background(), []DepsolverItem{item}, nil, nil, client, ResolverFlags{BasePkgsOnly: true}, nil)
	defer r.Close()

	r.Run()

	assert.Empty(t, r.provides)
	assert.Empty(t, r.requires)
	assert.Empty(t, r.unsolved)
	require.Len(t, r.OutputSet(), 1)
	assert.Equal(t, "test", r.OutputSet()[0].Unit.Name)
}

func TestExportDeduplication(t *testing.T) {
	client := newFakeClient()
	r := NewResolver(context.Background(), nil, nil, nil, client, ResolverFlags{}, nil)
	defer r.Close()

	u := Unit{Name: "test", Version: "1", Release: "1", Arch: "x86_64"}
	r.addToOutput(r.outputSet, u, "repo_1")
	r.addToOutput(r.outputSet, u, "repo_1") // duplicate within same repo
	r.addToOutput(r.outputSet, u, "repo_2")

	srpm := Unit{Name: "test", Version: "1", Release: "1", Arch: "src", ContentType: ContentTypeSRPM}
	r.addToOutput(r.srpmOutputSet, srpm, "repo_1")

	exported := r.Export()
	assert.Len(t, exported["repo_1"], 2) // one RPM + one SRPM
	assert.Len(t, exported["repo_2"], 1)
}

func TestSourcePackageResolution(t *testing.T) {
	client := newFakeClient()
	repo := Repo{ID: "repo"}
	srpmRepo := Repo{ID: "srpm_repo"}

	bin := Unit{Name: "test", Version: "1", Release: "1", Arch: "x86_64", SourceRPM: "test-1-1.src.rpm"}
	client.insert(repo.ID, bin)
	client.insert(srpmRepo.ID, Unit{Name: "test-1-1.src.rpm", Version: "1", Release: "1", Arch: "src", ContentType: ContentTypeSRPM, Filename: "test-1-1.src.rpm"})

	item := DepsolverItem{Whitelist: []string{"test"}, InPulpRepos: []Repo{repo}}
	r := NewResolver(context.Background(), []DepsolverItem{item}, []Repo{srpmRepo}, nil, client, ResolverFlags{}, nil)
	defer r.Close()

	r.Run()

	require.Len(t, r.SrpmOutputSet(), 1)
	assert.Equal(t, "srpm_repo", r.SrpmOutputSet()[0].AssociateSourceRepoID)
}
