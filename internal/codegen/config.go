// Package codegen reads codegen.yaml and refreshes the Storefront API
// schema snapshot the documents are checked against.
package codegen

import (
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"shopify-storefront/internal/config"
)

// Scalar Go representations.
const (
	ScalarString = "string"
	ScalarRaw    = "raw"
)

type Schema struct {
	Endpoint string            `yaml:"endpoint"`
	Headers  map[string]string `yaml:"headers"`
}

// Config mirrors codegen.yaml. ${VAR} references are expanded from the
// environment after parsing.
type Config struct {
	Schema    Schema            `yaml:"schema"`
	Documents []string          `yaml:"documents"`
	Output    string            `yaml:"output"`
	Scalars   map[string]string `yaml:"scalars"`
}

// DefaultScalars maps the Storefront API custom scalars.
func DefaultScalars() map[string]string {
	return map[string]string{
		"DateTime": ScalarString,
		"Decimal":  ScalarString,
		"HTML":     ScalarString,
		"URL":      ScalarString,
		"JSON":     ScalarRaw,
	}
}

// Load reads and expands the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading codegen config")
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse codegen YAML")
	}

	cfg.Schema.Endpoint = os.ExpandEnv(cfg.Schema.Endpoint)
	if cfg.Schema.Endpoint != "" && !strings.HasPrefix(cfg.Schema.Endpoint, "http://") {
		cfg.Schema.Endpoint = config.EnsureStartsWith(cfg.Schema.Endpoint, "https://")
	}
	// a header whose variable is unset is dropped so it cannot override
	// the client's own token with an empty value
	for k, v := range cfg.Schema.Headers {
		if expanded := os.ExpandEnv(v); expanded != "" {
			cfg.Schema.Headers[k] = expanded
		} else {
			delete(cfg.Schema.Headers, k)
		}
	}
	cfg.Output = os.ExpandEnv(cfg.Output)

	scalars := DefaultScalars()
	for k, v := range cfg.Scalars {
		scalars[k] = v
	}
	cfg.Scalars = scalars

	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Output == "" {
		return errors.New("codegen config: output is required")
	}
	for name, kind := range c.Scalars {
		if kind != ScalarString && kind != ScalarRaw {
			return errors.Errorf("codegen config: scalar %s has unknown mapping %q", name, kind)
		}
	}
	return nil
}

// UnmappedScalars returns the names without a scalar mapping.
func (c *Config) UnmappedScalars(names []string) []string {
	var missing []string
	for _, name := range names {
		if _, ok := c.Scalars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// EndpointOr returns the schema endpoint, or fallback when the expanded
// endpoint has no host (an unset domain variable).
func (c *Config) EndpointOr(fallback string) string {
	u, err := url.Parse(c.Schema.Endpoint)
	if err != nil || u.Host == "" {
		return fallback
	}
	return c.Schema.Endpoint
}

// DocumentFiles resolves the document globs relative to dir. Matches are
// deduplicated and sorted.
func (c *Config) DocumentFiles(dir string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range c.Documents {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(dir, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "bad document glob %q", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
