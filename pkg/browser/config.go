package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/germanamz/brim/pkg/address"
	"github.com/germanamz/brim/pkg/contentblock"
	"github.com/germanamz/brim/pkg/engine/chrome"
	"github.com/germanamz/brim/pkg/logging"
)

// EnvPrefix prefixes environment overrides, e.g. BRIM_ENGINE_HEADLESS.
const EnvPrefix = "brim"

// Config is the top-level browser configuration.
type Config struct {
	Engine          chrome.Config         `yaml:"engine" envconfig:"engine"`
	Logging         logging.Config        `yaml:"logging" envconfig:"logging"`
	ContentBlocking ContentBlockingConfig `yaml:"content_blocking" envconfig:"content_blocking"`
	StartURLs       []string              `yaml:"start_urls" envconfig:"start_urls"`
}

// ContentBlockingConfig controls the rule list compiled at startup.
type ContentBlockingConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"enabled"`
	// RulesFile points to a JSON rule list replacing the built-in one.
	RulesFile string `yaml:"rules_file" envconfig:"rules_file"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Engine:          chrome.DefaultConfig(),
		Logging:         logging.DefaultConfig(),
		ContentBlocking: ContentBlockingConfig{Enabled: true},
	}
}

// LoadConfig reads a YAML file over DefaultConfig and then applies BRIM_*
// environment overrides. Environment variables referenced as ${VAR} or $VAR
// in the YAML are expanded before parsing. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("browser: load config: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return Config{}, fmt.Errorf("browser: parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("browser: env config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("browser: config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("browser: config: %w", err)
	}

	for _, raw := range c.StartURLs {
		if err := address.Validate(address.Classify(raw)); err != nil {
			return fmt.Errorf("browser: config: start url %q: %w", raw, err)
		}
	}

	if c.Engine.RemoteURL != "" {
		if _, err := url.Parse(c.Engine.RemoteURL); err != nil {
			return fmt.Errorf("browser: config: remote_url: %w", err)
		}
	}

	return nil
}

// RuleTable returns the rule list to compile: RulesFile when set, the
// built-in table otherwise.
func (c Config) RuleTable() (contentblock.RuleTable, error) {
	if c.ContentBlocking.RulesFile == "" {
		return contentblock.DefaultTable(), nil
	}

	data, err := os.ReadFile(c.ContentBlocking.RulesFile) //nolint:gosec // path is caller-provided configuration
	if err != nil {
		return nil, fmt.Errorf("browser: rules file: %w", err)
	}

	table, err := contentblock.ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("browser: rules file %s: %w", c.ContentBlocking.RulesFile, err)
	}
	return table, nil
}
