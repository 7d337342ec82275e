// Package config loads pursuit configuration.
// Values are resolved from (highest to lowest priority):
// 1. Environment variables (PURSUIT_*)
// 2. Config file (pursuit.yaml, or PURSUIT_CONFIG)
// 3. Defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config holds all pursuit configuration.
type Config struct {
	// Agent settings
	Agent AgentConfig `yaml:"agent"`

	// Planner settings
	Planner PlannerConfig `yaml:"planner"`

	// Memory settings
	Memory MemoryConfig `yaml:"memory"`

	// Correction settings
	Correction CorrectionConfig `yaml:"correction"`

	// Events settings
	Events EventsConfig `yaml:"events"`
}

// AgentConfig holds pursuit-loop settings.
type AgentConfig struct {
	// MaxIterations bounds the execution loop. Default: 50.
	MaxIterations int `yaml:"max_iterations"`

	// StepDelay is the pause between iterations. Default: none.
	StepDelay Duration `yaml:"step_delay"`

	// Timeout bounds a whole pursuit. Default: none.
	Timeout Duration `yaml:"timeout"`

	// EnableReflection adds a reflection pass after execution.
	EnableReflection bool `yaml:"enable_reflection"`

	// StrictDependencies gates tasks on completed dependencies.
	StrictDependencies bool `yaml:"strict_dependencies"`
}

// PlannerConfig holds decomposition settings.
type PlannerConfig struct {
	// Model is the completion model identifier.
	Model string `yaml:"model"`

	// Temperature for decomposition calls.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens is the response token budget.
	MaxTokens int64 `yaml:"max_tokens"`

	// MaxTasks caps plan size (0 = no cap).
	MaxTasks int `yaml:"max_tasks"`
}

// MemoryConfig holds memory store settings.
type MemoryConfig struct {
	// MaxShortTerm caps the short-term tier.
	MaxShortTerm int `yaml:"max_short_term"`

	// MaxLongTerm caps the long-term tier.
	MaxLongTerm int `yaml:"max_long_term"`

	// MaxWorking bounds working memory.
	MaxWorking int `yaml:"max_working"`

	// SimilarityThreshold is the minimum cosine similarity for search
	// hits and association linking.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// ConsolidationThreshold is the decayed importance at or above
	// which entries promote to long-term.
	ConsolidationThreshold float64 `yaml:"consolidation_threshold"`

	// DecayRate scales importance decay per elapsed hour.
	DecayRate float64 `yaml:"decay_rate"`

	// ConsolidationInterval drives background consolidation
	// ("0" disables the loop).
	ConsolidationInterval Duration `yaml:"consolidation_interval"`

	// ArchivePath persists archived entries on disk. Empty keeps the
	// archive in memory only.
	ArchivePath string `yaml:"archive_path"`
}

// CorrectionConfig holds failure-recovery settings.
type CorrectionConfig struct {
	// MaxAttemptsPerTask caps corrections per task before escalation.
	MaxAttemptsPerTask int `yaml:"max_attempts_per_task"`

	// BreakerThreshold is how many failures open a task's breaker.
	BreakerThreshold int `yaml:"breaker_threshold"`

	// BreakerCooldown is how long an open breaker waits before
	// half-opening.
	BreakerCooldown Duration `yaml:"breaker_cooldown"`

	// HalfOpenSuccesses closes a half-open breaker.
	HalfOpenSuccesses int `yaml:"half_open_successes"`
}

// EventsConfig holds event-feed settings.
type EventsConfig struct {
	// ListenAddr serves the websocket event feed when non-empty,
	// e.g. ":8080".
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			MaxIterations: 50,
		},
		Planner: PlannerConfig{
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0.2,
			MaxTokens:   2048,
		},
		Memory: MemoryConfig{
			MaxShortTerm:           100,
			MaxLongTerm:            1000,
			MaxWorking:             10,
			SimilarityThreshold:    0.5,
			ConsolidationThreshold: 0.6,
			DecayRate:              0.05,
			ConsolidationInterval:  Duration(time.Minute),
		},
		Correction: CorrectionConfig{
			MaxAttemptsPerTask: 3,
			BreakerThreshold:   5,
			BreakerCooldown:    Duration(60 * time.Second),
			HalfOpenSuccesses:  3,
		},
	}
}

// Load resolves configuration from the given file path, falling back
// to PURSUIT_CONFIG and then ./pursuit.yaml when path is empty. A
// missing file is not an error; environment overrides always apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("PURSUIT_CONFIG")
	}
	if path == "" {
		path = "pursuit.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults plus environment.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv applies PURSUIT_* environment overrides.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PURSUIT_MODEL"); v != "" {
		cfg.Planner.Model = v
	}
	if v, ok := envInt("PURSUIT_MAX_ITERATIONS"); ok {
		cfg.Agent.MaxIterations = v
	}
	if v, ok := envInt("PURSUIT_MAX_TASKS"); ok {
		cfg.Planner.MaxTasks = v
	}
	if envBool("PURSUIT_STRICT_DEPENDENCIES") {
		cfg.Agent.StrictDependencies = true
	}
	if envBool("PURSUIT_ENABLE_REFLECTION") {
		cfg.Agent.EnableReflection = true
	}
	if v, ok := envDuration("PURSUIT_TIMEOUT"); ok {
		cfg.Agent.Timeout = v
	}
	if v, ok := envDuration("PURSUIT_STEP_DELAY"); ok {
		cfg.Agent.StepDelay = v
	}
	if v := os.Getenv("PURSUIT_ARCHIVE_PATH"); v != "" {
		cfg.Memory.ArchivePath = v
	}
	if v := os.Getenv("PURSUIT_LISTEN_ADDR"); v != "" {
		cfg.Events.ListenAddr = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}

func envDuration(key string) (Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return Duration(d), true
}
