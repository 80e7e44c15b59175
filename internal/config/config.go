// Package config holds the two layers of input the CLI needs: process
// configuration (content-service endpoint, batch size, log level), managed
// through Viper so flags/env/file precedence works the way
// open-platform-model-cli's root command expects, and the per-run resolver
// input document (whitelists, blacklists, repo lists), a plain YAML format
// parsed independently of Viper.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dichn/ubi-manifest/internal/depsolver"
)

// Process holds the Viper-managed settings that apply to every resolver run
// issued by this CLI invocation, regardless of which input document it loads.
type Process struct {
	ContentServiceAddr string `mapstructure:"content_service_addr"`
	BatchSize          int    `mapstructure:"batch_size"`
	LogLevel           string `mapstructure:"log_level"`
}

// Load builds a Process from environment (prefixed UBI_MANIFEST_) and an
// optional config file, environment taking precedence over the file; the
// caller applies flag values on top of the result — the same layering
// open-platform-model-cli's root command sets up for its own persistent
// flags. An empty configFile falls back to UBI_MANIFEST_CONFIG.
func Load(configFile string) (Process, error) {
	if configFile == "" {
		configFile = os.Getenv("UBI_MANIFEST_CONFIG")
	}

	v := viper.New()
	v.SetEnvPrefix("ubi_manifest")
	v.AutomaticEnv()

	v.SetDefault("content_service_addr", "localhost:8080")
	v.SetDefault("batch_size", 500)
	v.SetDefault("log_level", "info")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Process{}, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var p Process
	if err := v.Unmarshal(&p); err != nil {
		return Process{}, fmt.Errorf("decoding process config: %w", err)
	}
	return p, nil
}

// RawRepo is the YAML shape of one entry in a ManifestInput's repo list.
type RawRepo struct {
	ID string `yaml:"id"`
}

// RawExclusionRule is the YAML shape of one blacklist entry.
type RawExclusionRule struct {
	Pattern  string `yaml:"pattern"`
	Globbing bool   `yaml:"globbing"`
	Arch     string `yaml:"arch,omitempty"`
}

// RawItem is the YAML shape of one resolver item: a whitelist, its
// blacklist, and the repos it resolves against.
type RawItem struct {
	Whitelist   []string           `yaml:"whitelist"`
	Blacklist   []RawExclusionRule `yaml:"blacklist,omitempty"`
	InPulpRepos []RawRepo          `yaml:"in_pulp_repos"`
}

// ManifestInput is the on-disk resolver-input document: one or more items
// plus the shared source-RPM repo list and the modular repo ids to index
// (§3, §4.3). This is distinct from Process — it describes what to resolve,
// not how the CLI process itself is configured.
type ManifestInput struct {
	Items        []RawItem `yaml:"items"`
	SrpmRepos    []RawRepo `yaml:"srpm_repos,omitempty"`
	ModularRepos []RawRepo `yaml:"modular_repos,omitempty"`
	BasePkgsOnly bool      `yaml:"base_pkgs_only,omitempty"`
}

// LoadManifestInput parses a resolver-input YAML document from path.
func LoadManifestInput(path string) (ManifestInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ManifestInput{}, fmt.Errorf("reading manifest input %s: %w", path, err)
	}
	var m ManifestInput
	if err := yaml.Unmarshal(data, &m); err != nil {
		return ManifestInput{}, fmt.Errorf("parsing manifest input %s: %w", path, err)
	}
	return m, nil
}

// ResolverItems converts the YAML-decoded resolver input into the
// DepsolverItem slice the core consumes.
func (m ManifestInput) ResolverItems() []depsolver.DepsolverItem {
	out := make([]depsolver.DepsolverItem, 0, len(m.Items))
	for _, raw := range m.Items {
		out = append(out, depsolver.DepsolverItem{
			Whitelist:   raw.Whitelist,
			Blacklist:   convertBlacklist(raw.Blacklist),
			InPulpRepos: convertRepos(raw.InPulpRepos),
		})
	}
	return out
}

// SourceRepos returns the shared source-RPM repo list.
func (m ManifestInput) SourceRepos() []depsolver.Repo {
	return convertRepos(m.SrpmRepos)
}

// ModularRepoList returns the repos whose modulemd artifact lists should be
// indexed before Run (§4.3).
func (m ManifestInput) ModularRepoList() []depsolver.Repo {
	return convertRepos(m.ModularRepos)
}

func convertRepos(raw []RawRepo) []depsolver.Repo {
	out := make([]depsolver.Repo, 0, len(raw))
	for _, r := range raw {
		out = append(out, depsolver.Repo{ID: r.ID})
	}
	return out
}

func convertBlacklist(raw []RawExclusionRule) []depsolver.ExclusionRule {
	out := make([]depsolver.ExclusionRule, 0, len(raw))
	for _, r := range raw {
		out = append(out, depsolver.ExclusionRule{Pattern: r.Pattern, Globbing: r.Globbing, Arch: r.Arch})
	}
	return out
}
