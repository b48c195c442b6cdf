package doclink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all configuration options for the doclink engine.
type Config struct {
	Processing ProcessingConfig `yaml:"processing"`
	Validation ValidationConfig `yaml:"validation"`
	Text       TextConfig       `yaml:"text"`
	Api        ApiConfig        `yaml:"api"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
	// Rules is the ordered list of user text-replacement rules.
	Rules []ReplacementRule `yaml:"rules"`
}

// ProcessingConfig controls the batch pipeline.
type ProcessingConfig struct {
	// MaxConcurrentDocuments is the upper bound on parallel document
	// sessions. The effective bound is additionally capped at twice the
	// available CPU parallelism.
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents"`
	// OptimizeText enables the text optimizer passes.
	OptimizeText bool `yaml:"optimize_text"`
	// TrackChanges records replacements as tracked insertions/deletions
	// instead of rewriting in place.
	TrackChanges bool `yaml:"track_changes"`
	// RevisionAuthor is the author attributed to tracked changes.
	RevisionAuthor string `yaml:"revision_author"`
}

// ValidationConfig controls the integrity validator and title handling.
type ValidationConfig struct {
	// AutoReplaceTitles rewrites a hyperlink's display text to the
	// resolver title when they differ.
	AutoReplaceTitles bool `yaml:"auto_replace_titles"`
	// ReportTitleDifferences emits a PossibleTitleChange entry when the
	// display text and resolver title differ.
	ReportTitleDifferences bool `yaml:"report_title_differences"`
	// IgnorableErrors are validation-error description substrings that
	// are filtered out before a stage is judged.
	IgnorableErrors []string `yaml:"ignorable_errors"`
}

// TextConfig holds the text-optimizer toggles and parameters.
type TextConfig struct {
	RemoveExtraSpaces        bool `yaml:"remove_extra_spaces"`
	RemoveEmptyParagraphs    bool `yaml:"remove_empty_paragraphs"`
	StandardizeLineBreaks    bool `yaml:"standardize_line_breaks"`
	OptimizeTableFormatting  bool `yaml:"optimize_table_formatting"`
	OptimizeListFormatting   bool `yaml:"optimize_list_formatting"`
	StandardizeSpacing       bool `yaml:"standardize_spacing"`
	MaxConsecutiveLineBreaks int  `yaml:"max_consecutive_line_breaks"`
}

// ApiConfig locates the lookup service.
type ApiConfig struct {
	// BaseURL is the resolver endpoint. Empty means simulation mode.
	BaseURL string `yaml:"base_url"`
	// TargetHost is the host written into rewritten document URLs.
	TargetHost string `yaml:"target_host"`
}

// CacheConfig controls the lookup-response cache.
type CacheConfig struct {
	// Expiry is the time-to-live for cached resolver responses.
	Expiry time.Duration `yaml:"expiry"`
}

// UnmarshalYAML accepts the expiry either as a duration string ("10m") or
// as integer nanoseconds, which plain time.Duration decoding can't.
func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Expiry string `yaml:"expiry"`
	}
	if err := value.Decode(&raw); err != nil {
		var intRaw struct {
			Expiry int64 `yaml:"expiry"`
		}
		if err := value.Decode(&intRaw); err != nil {
			return err
		}
		c.Expiry = time.Duration(intRaw.Expiry)
		return nil
	}
	if raw.Expiry == "" {
		return nil
	}
	d, err := time.ParseDuration(raw.Expiry)
	if err != nil {
		if n, perr := strconv.ParseInt(raw.Expiry, 10, 64); perr == nil {
			c.Expiry = time.Duration(n)
			return nil
		}
		return fmt.Errorf("invalid cache expiry %q: %w", raw.Expiry, err)
	}
	c.Expiry = d
	return nil
}

// LoggingConfig controls engine logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error, off.
	Level string `yaml:"level"`
}

// ReplacementRule is one user-configured text replacement. Matching is
// whole-word or whole-phrase, case-insensitive; the replacement text is
// written exactly as given.
type ReplacementRule struct {
	SourceText      string `yaml:"source_text"`
	ReplacementText string `yaml:"replacement_text"`
	Enabled         bool   `yaml:"enabled"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Processing: ProcessingConfig{
			MaxConcurrentDocuments: 4,
			OptimizeText:           true,
			RevisionAuthor:         "doclink",
		},
		Validation: ValidationConfig{
			ReportTitleDifferences: true,
			IgnorableErrors: []string{
				"attribute 'cellSpacing' is not declared",
				"attribute 'tblCellSpacing' is not declared",
				"attribute is not declared",
			},
		},
		Text: TextConfig{
			RemoveExtraSpaces:        true,
			RemoveEmptyParagraphs:    true,
			StandardizeLineBreaks:    true,
			OptimizeTableFormatting:  true,
			OptimizeListFormatting:   true,
			MaxConsecutiveLineBreaks: 2,
		},
		Api: ApiConfig{
			TargetHost: "thesource.example.com",
		},
		Cache: CacheConfig{
			Expiry: DefaultCacheExpiry,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// BaseAddress returns the configured rewrite base address, ending in a
// slash, e.g. "https://host/nuxeo/thesource/".
func (c *Config) BaseAddress() string {
	host := c.Api.TargetHost
	if host == "" {
		host = DefaultConfig().Api.TargetHost
	}
	return "https://" + host + "/nuxeo/thesource/"
}

// EnabledRules returns the rules that are enabled and have usable source
// and replacement text.
func (c *Config) EnabledRules() []ReplacementRule {
	var out []ReplacementRule
	for _, rule := range c.Rules {
		if !rule.Enabled {
			continue
		}
		if strings.TrimSpace(rule.SourceText) == "" || strings.TrimSpace(rule.ReplacementText) == "" {
			continue
		}
		out = append(out, rule)
	}
	return out
}

// EffectiveConcurrency resolves the bound on concurrent document sessions:
// the configured maximum, capped at twice the available parallelism, never
// below one.
func (c *Config) EffectiveConcurrency() int {
	bound := c.Processing.MaxConcurrentDocuments
	limit := 2 * runtime.GOMAXPROCS(0)
	if bound <= 0 || bound > limit {
		bound = limit
	}
	if bound < 1 {
		bound = 1
	}
	return bound
}

// LoadConfig loads configuration using the real environment.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigWithEnv(path, os.Getenv)
}

// LoadConfigWithEnv loads configuration using the provided environment
// lookup function, which lets tests supply isolated environment values.
// Precedence: defaults, then the config file, then environment variables.
// An empty path falls back to the default config location; a missing file
// there is not an error.
func LoadConfigWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if path == "" {
		path = defaultConfigPath(getenv)
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg, getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfigPath(getenv func(string) string) string {
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "doclink", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "doclink", "config.yaml")
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if v := getenv("DOCLINK_API_BASE_URL"); v != "" {
		cfg.Api.BaseURL = v
	}
	if v := getenv("DOCLINK_TARGET_HOST"); v != "" {
		cfg.Api.TargetHost = v
	}
	if v := getenv("DOCLINK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv("DOCLINK_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Processing.MaxConcurrentDocuments = n
		}
	}
	if v := getenv("DOCLINK_CACHE_EXPIRY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.Expiry = d
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Processing.MaxConcurrentDocuments < 0 {
		return errors.New("max concurrent documents cannot be negative")
	}
	if c.Cache.Expiry < 0 {
		return errors.New("cache expiry cannot be negative")
	}
	if c.Text.MaxConsecutiveLineBreaks < 1 {
		return errors.New("max consecutive line breaks must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}
	if !validLogLevels[c.Logging.Level] {
		return errors.New("invalid log level: " + c.Logging.Level)
	}

	for i, rule := range c.Rules {
		if !rule.Enabled {
			continue
		}
		if strings.TrimSpace(rule.SourceText) == "" {
			return fmt.Errorf("rule %d: source text is empty", i)
		}
		if strings.TrimSpace(rule.ReplacementText) == "" {
			return fmt.Errorf("rule %d: replacement text is empty", i)
		}
	}

	return nil
}
