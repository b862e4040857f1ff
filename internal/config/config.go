package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"spacewatch/pkg/fileutil"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTimeoutSeconds is the global run budget when none is configured.
	DefaultTimeoutSeconds = 1800

	// ConfigFileName is the optional YAML config searched in the default
	// locations when no explicit path is given.
	ConfigFileName = "spaces.yaml"
)

// Config is the fully resolved run configuration. Values come from the
// environment first; an optional spaces.yaml may supply or override the
// space list, timeout and failure hook.
type Config struct {
	Token       string        // platform API bearer token (required)
	Owner       string        // account namespace owning the spaces (required)
	Spaces      []string      // space names, in check order (required, no duplicates)
	Timeout     time.Duration // shared budget for one whole run
	Repository  string        // owner/repo of the scheduling repository, cosmetic
	GitHubToken string        // optional, for the scheduler status lookup
	FailureHook string        // optional shell-quoted command run after a failed cycle
}

// fileConfig is the optional spaces.yaml shape.
type fileConfig struct {
	Spaces         []string `yaml:"spaces"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	OnFailure      string   `yaml:"on_failure"`
}

// Load resolves the configuration from the environment plus an optional YAML
// file. configPath empty means search the default locations; a missing file
// there is fine, an explicitly given path must exist. All validation errors
// are collected before failing.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Token:       os.Getenv("HF_TOKEN"),
		Owner:       firstEnv("HF_USERNAME", "USERNAME"),
		Spaces:      ParseSpaceList(os.Getenv("SPACE_LIST")),
		Timeout:     time.Duration(envInt("GLOBAL_TIMEOUT_SECONDS", DefaultTimeoutSeconds)) * time.Second,
		Repository:  os.Getenv("GITHUB_REPOSITORY"),
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
		FailureHook: os.Getenv("SPACEWATCH_ON_FAILURE"),
	}

	explicit := configPath != ""
	if !explicit {
		configPath = fileutil.FindConfigOptional(ConfigFileName)
	}

	if configPath != "" {
		if err := cfg.applyFile(configPath, explicit); err != nil {
			return nil, err
		}
	}

	if errs := cfg.validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n%s", strings.Join(errs, "\n"))
	}

	return cfg, nil
}

// applyFile overlays spaces.yaml on top of the environment. The file wins
// for the fields it sets.
func (c *Config) applyFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if len(fc.Spaces) > 0 {
		c.Spaces = normalizeSpaces(fc.Spaces)
	}
	if fc.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	if fc.OnFailure != "" {
		c.FailureHook = fc.OnFailure
	}

	return nil
}

func (c *Config) validate() []string {
	var errs []string

	if c.Token == "" {
		errs = append(errs, "  - missing required HF_TOKEN")
	}
	if c.Owner == "" {
		errs = append(errs, "  - missing required HF_USERNAME (or USERNAME)")
	}
	if len(c.Spaces) == 0 {
		errs = append(errs, "  - no spaces configured (set SPACE_LIST or provide spaces.yaml)")
	}

	seen := make(map[string]bool)
	for _, name := range c.Spaces {
		if seen[name] {
			errs = append(errs, fmt.Sprintf("  - duplicate space name '%s'", name))
		}
		seen[name] = true
	}

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("  - timeout must be positive, got %s", c.Timeout))
	}
	if c.Repository != "" && len(strings.Split(c.Repository, "/")) != 2 {
		errs = append(errs, fmt.Sprintf("  - GITHUB_REPOSITORY must be owner/repo, got '%s'", c.Repository))
	}

	return errs
}

// ParseSpaceList splits a comma-separated space list, trimming whitespace
// and dropping empty items.
func ParseSpaceList(s string) []string {
	return normalizeSpaces(strings.Split(s, ","))
}

func normalizeSpaces(raw []string) []string {
	var spaces []string
	for _, name := range raw {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			spaces = append(spaces, trimmed)
		}
	}
	return spaces
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
