package plugincat

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// The catalog is the only place the core knows anything about plugin types,
// and all it knows is policy: whether repeated submissions are allowed,
// whether the plugin produces a score, and its default live-session weight.
// Plugin payloads stay opaque everywhere.

const catalogEnv = "PLUGIN_CATALOG_YAML"

//go:embed catalog.yaml
var catalogFS embed.FS

type Policy struct {
	AllowsRetry bool    `yaml:"allows_retry"`
	Scored      bool    `yaml:"scored"`
	Weight      float64 `yaml:"weight"`
}

type Catalog struct {
	defaultPolicy Policy
	plugins       map[string]Policy
}

type yamlCatalog struct {
	Version int          `yaml:"version"`
	Default Policy       `yaml:"default"`
	Plugins []yamlPlugin `yaml:"plugins"`
}

type yamlPlugin struct {
	Type        string   `yaml:"type"`
	AllowsRetry *bool    `yaml:"allows_retry"`
	Scored      *bool    `yaml:"scored"`
	Weight      *float64 `yaml:"weight"`
}

var (
	loadOnce sync.Once
	loaded   *Catalog
	loadErr  error
)

// Load parses the embedded registry, or the file named by
// PLUGIN_CATALOG_YAML when set. Parsed once per process.
func Load() (*Catalog, error) {
	loadOnce.Do(func() {
		raw, err := readSpec()
		if err != nil {
			loadErr = err
			return
		}
		loaded, loadErr = parse(raw)
	})
	return loaded, loadErr
}

func readSpec() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(catalogEnv)); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", catalogEnv, err)
		}
		return raw, nil
	}
	return catalogFS.ReadFile("catalog.yaml")
}

func parse(raw []byte) (*Catalog, error) {
	var spec yamlCatalog
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("parse plugin catalog: %w", err)
	}
	if spec.Default.Weight == 0 {
		spec.Default.Weight = 1
	}
	cat := &Catalog{defaultPolicy: spec.Default, plugins: map[string]Policy{}}
	for _, p := range spec.Plugins {
		key := strings.TrimSpace(p.Type)
		if key == "" {
			continue
		}
		policy := spec.Default
		if p.AllowsRetry != nil {
			policy.AllowsRetry = *p.AllowsRetry
		}
		if p.Scored != nil {
			policy.Scored = *p.Scored
		}
		if p.Weight != nil {
			policy.Weight = *p.Weight
		}
		cat.plugins[key] = policy
	}
	return cat, nil
}

// Policy returns the registered policy for a plugin type. Unknown types fall
// back to the default policy so new client-side plugins degrade safely.
func (c *Catalog) Policy(pluginType string) Policy {
	if p, ok := c.plugins[strings.TrimSpace(pluginType)]; ok {
		return p
	}
	return c.defaultPolicy
}

func (c *Catalog) Known(pluginType string) bool {
	_, ok := c.plugins[strings.TrimSpace(pluginType)]
	return ok
}
