// Package fixtureclient implements depsolver.ContentClient against a YAML
// fixture file instead of a live content service. It exists for the CLI
// demo path and for integration-style tests that want a realistic,
// serialized unit catalog rather than the in-memory fakeClient the core
// package's own tests build by hand.
package fixtureclient

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dichn/ubi-manifest/internal/depsolver"
)

// unitDoc is the YAML shape of one unit entry in a fixture file.
type unitDoc struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Release     string   `yaml:"release"`
	Epoch       string   `yaml:"epoch,omitempty"`
	Arch        string   `yaml:"arch"`
	Filename    string   `yaml:"filename"`
	Provides    []string `yaml:"provides,omitempty"`
	Requires    []string `yaml:"requires,omitempty"`
	SourceRPM   string   `yaml:"sourcerpm,omitempty"`
	ContentType string   `yaml:"content_type,omitempty"` // "rpm" (default) or "srpm"
}

// modulemdDoc is the YAML shape of one modulemd entry.
type modulemdDoc struct {
	Name      string   `yaml:"name"`
	Stream    string   `yaml:"stream"`
	Version   int64    `yaml:"version"`
	Context   string   `yaml:"context"`
	Arch      string   `yaml:"arch"`
	Artifacts []string `yaml:"artifacts"`
}

// repoDoc is one repo's catalog within a fixture file.
type repoDoc struct {
	ID        string        `yaml:"id"`
	Units     []unitDoc     `yaml:"units,omitempty"`
	Modulemds []modulemdDoc `yaml:"modulemds,omitempty"`
}

// fixtureDoc is the top-level fixture file shape.
type fixtureDoc struct {
	Repos []repoDoc `yaml:"repos"`
}

// Client is a deterministic ContentClient backed by a fixture file loaded
// once at construction. Queries are in-memory lookups, run through
// depsolver.NewFuture on their own goroutine like the production client's
// would be, so callers exercise the same async path either way.
type Client struct {
	unitsByRepo     map[string][]depsolver.Unit
	modulemdsByRepo map[string][]depsolver.ModulemdUnit
}

// Load parses a fixture file at path into a Client.
func Load(path string) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	var doc fixtureDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}

	c := &Client{
		unitsByRepo:     make(map[string][]depsolver.Unit),
		modulemdsByRepo: make(map[string][]depsolver.ModulemdUnit),
	}
	for _, repo := range doc.Repos {
		for _, u := range repo.Units {
			c.unitsByRepo[repo.ID] = append(c.unitsByRepo[repo.ID], toUnit(u))
		}
		for _, m := range repo.Modulemds {
			c.modulemdsByRepo[repo.ID] = append(c.modulemdsByRepo[repo.ID], depsolver.ModulemdUnit{
				Name: m.Name, Stream: m.Stream, Version: m.Version, Context: m.Context,
				Arch: m.Arch, Artifacts: m.Artifacts,
			})
		}
	}
	return c, nil
}

func toUnit(u unitDoc) depsolver.Unit {
	provides := make([]depsolver.Atom, 0, len(u.Provides)+1)
	provides = append(provides, depsolver.NewAtom(u.Name))
	for _, p := range u.Provides {
		provides = append(provides, depsolver.NewAtom(p))
	}

	contentType := depsolver.ContentTypeRPM
	if u.ContentType == "srpm" {
		contentType = depsolver.ContentTypeSRPM
	}

	return depsolver.Unit{
		Name: u.Name, Version: u.Version, Release: u.Release, Epoch: u.Epoch,
		Arch: u.Arch, Filename: u.Filename, Provides: provides, Requires: u.Requires,
		SourceRPM: u.SourceRPM, ContentType: contentType,
	}
}

func (c *Client) UnitsByName(ctx context.Context, repo depsolver.Repo, names map[string]struct{}) *depsolver.Future[[]depsolver.Unit] {
	return depsolver.NewFuture(ctx, func(context.Context) ([]depsolver.Unit, error) {
		var out []depsolver.Unit
		for _, u := range c.unitsByRepo[repo.ID] {
			if _, ok := names[u.Name]; ok {
				out = append(out, u)
				continue
			}
			if _, ok := names[u.Filename]; ok {
				out = append(out, u)
			}
		}
		return out, nil
	})
}

func (c *Client) UnitsProviding(ctx context.Context, repo depsolver.Repo, atoms []depsolver.Atom) *depsolver.Future[[]depsolver.Unit] {
	return depsolver.NewFuture(ctx, func(context.Context) ([]depsolver.Unit, error) {
		wanted := make(map[string]struct{}, len(atoms))
		for _, a := range atoms {
			wanted[a.Name] = struct{}{}
		}
		var out []depsolver.Unit
		for _, u := range c.unitsByRepo[repo.ID] {
			for _, p := range u.Provides {
				if _, ok := wanted[p.Name]; ok {
					out = append(out, u)
					break
				}
			}
		}
		return out, nil
	})
}

func (c *Client) Modulemds(ctx context.Context, repo depsolver.Repo) *depsolver.Future[[]depsolver.ModulemdUnit] {
	return depsolver.NewFuture(ctx, func(context.Context) ([]depsolver.ModulemdUnit, error) {
		return c.modulemdsByRepo[repo.ID], nil
	})
}
