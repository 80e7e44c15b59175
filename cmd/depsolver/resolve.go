package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dichn/ubi-manifest/internal/config"
	"github.com/dichn/ubi-manifest/internal/depsolver"
	"github.com/dichn/ubi-manifest/internal/fixtureclient"
)

// newResolveCmd builds the "resolve" subcommand: load a resolver-input
// manifest and a fixture catalog, run the core, and print the export plus
// any diagnostics.
func newResolveCmd() *cobra.Command {
	var manifestPath, fixturePath, outPath string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a manifest input against a content catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), manifestPath, fixturePath, outPath)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to the resolver-input YAML document (required)")
	cmd.Flags().StringVar(&fixturePath, "catalog", "", "path to a fixture content catalog (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the export as YAML to this path instead of stdout")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func runResolve(ctx context.Context, manifestPath, fixturePath, outPath string) error {
	manifest, err := config.LoadManifestInput(manifestPath)
	if err != nil {
		return err
	}

	client, err := fixtureclient.Load(fixturePath)
	if err != nil {
		return err
	}
	tracing := depsolver.NewTracingClient(client, logger)

	modularFilenames, err := indexModularRepos(ctx, tracing, manifest.ModularRepoList())
	if err != nil {
		return fmt.Errorf("indexing modular repos: %w", err)
	}

	r := depsolver.NewResolver(
		ctx,
		manifest.ResolverItems(),
		manifest.SourceRepos(),
		modularFilenames,
		tracing,
		depsolver.ResolverFlags{BasePkgsOnly: manifest.BasePkgsOnly, BatchSize: process.BatchSize},
		logger,
	)
	defer r.Close()

	diags := r.Run()
	for _, d := range diags {
		logger.Warn(d.Error())
	}

	export := r.Export()
	return writeExport(export, outPath)
}

// indexModularRepos fetches every modular repo's modulemd list and folds it
// into the frozen filename index the resolver is constructed with (§4.3).
func indexModularRepos(ctx context.Context, client depsolver.ContentClient, repos []depsolver.Repo) (map[string]struct{}, error) {
	var all []depsolver.ModulemdUnit
	for _, repo := range repos {
		future := client.Modulemds(ctx, repo)
		mds, err := future.Await(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching modulemds for %s: %w", repo.ID, err)
		}
		all = append(all, mds...)
	}
	return depsolver.ModularFilenames(all), nil
}

type exportDoc struct {
	Repos map[string][]exportUnitDoc `yaml:"repos"`
}

type exportUnitDoc struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Release  string `yaml:"release"`
	Arch     string `yaml:"arch"`
	Filename string `yaml:"filename,omitempty"`
}

func writeExport(export map[string][]depsolver.WrappedUnit, outPath string) error {
	doc := exportDoc{Repos: make(map[string][]exportUnitDoc, len(export))}
	for repoID, units := range export {
		for _, w := range units {
			doc.Repos[repoID] = append(doc.Repos[repoID], exportUnitDoc{
				Name: w.Unit.Name, Version: w.Unit.Version, Release: w.Unit.Release,
				Arch: w.Unit.Arch, Filename: w.Unit.Filename,
			})
		}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling export: %w", err)
	}

	if outPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("writing export to %s: %w", outPath, err)
	}
	logger.Info("export written", zap.String("path", outPath))
	return nil
}
