package config

import (
	"time"

	"github.com/forgeline/pursuit/correction"
	"github.com/forgeline/pursuit/engine"
	"github.com/forgeline/pursuit/memory"
	"github.com/forgeline/pursuit/planner"
)

// EngineConfig converts the loaded configuration into the agent's
// runtime config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		MaxIterations:      c.Agent.MaxIterations,
		StepDelay:          time.Duration(c.Agent.StepDelay),
		Timeout:            time.Duration(c.Agent.Timeout),
		EnableReflection:   c.Agent.EnableReflection,
		StrictDependencies: c.Agent.StrictDependencies,
		Planner:            c.PlannerConfig(),
	}
}

// PlannerConfig converts the planner section.
func (c *Config) PlannerConfig() planner.Config {
	return planner.Config{
		Model:       c.Planner.Model,
		Temperature: c.Planner.Temperature,
		MaxTokens:   c.Planner.MaxTokens,
		MaxTasks:    c.Planner.MaxTasks,
	}
}

// MemoryConfig converts the memory section.
func (c *Config) MemoryConfig() *memory.Config {
	return &memory.Config{
		MaxShortTerm:           c.Memory.MaxShortTerm,
		MaxLongTerm:            c.Memory.MaxLongTerm,
		MaxWorking:             c.Memory.MaxWorking,
		SimilarityThreshold:    c.Memory.SimilarityThreshold,
		ConsolidationThreshold: c.Memory.ConsolidationThreshold,
		DecayRate:              c.Memory.DecayRate,
		ConsolidationInterval:  time.Duration(c.Memory.ConsolidationInterval),
	}
}

// CorrectionConfig converts the correction section.
func (c *Config) CorrectionConfig() *correction.Config {
	return &correction.Config{
		MaxAttemptsPerTask: c.Correction.MaxAttemptsPerTask,
		BreakerThreshold:   c.Correction.BreakerThreshold,
		BreakerCooldown:    time.Duration(c.Correction.BreakerCooldown),
		HalfOpenSuccesses:  c.Correction.HalfOpenSuccesses,
	}
}
