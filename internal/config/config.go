// Package config loads the YAML scenario and solver-parameter file consumed
// by the console planner. The core packages never read files themselves;
// this is strictly caller-side plumbing.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"bufferplan/internal/ddmrp"
	"bufferplan/internal/genetic"
	"bufferplan/internal/model"
)

type Config struct {
	PlanningHorizon int     `yaml:"planning_horizon"`
	PastHorizon     int     `yaml:"past_horizon"`
	PeakHorizon     int     `yaml:"peak_horizon"`
	PeakThreshold   float64 `yaml:"peak_threshold"`

	Stations []Station `yaml:"stations"`
	Solver   Solver    `yaml:"solver"`
}

type Station struct {
	ProcessingTime    int      `yaml:"processing_time"`
	InitialBuffer     int      `yaml:"initial_buffer"`
	PastBuffers       []int    `yaml:"past_buffers"`
	PastOrders        []int    `yaml:"past_orders"`
	DemandForecast    []int    `yaml:"demand_forecast,omitempty"`
	DemandVariability *float64 `yaml:"demand_variability,omitempty"`
	Flows             []Flow   `yaml:"flows,omitempty"`
}

type Flow struct {
	Target int `yaml:"target"`
	Amount int `yaml:"amount"`
}

type Solver struct {
	Population      int     `yaml:"population,omitempty"`
	TournamentSize  int     `yaml:"tournament_size,omitempty"`
	CrossoverMix    float64 `yaml:"crossover_mix,omitempty"`
	MutationRate    float64 `yaml:"mutation_rate,omitempty"`
	StagnationLimit int     `yaml:"stagnation_limit,omitempty"`
	MaxGenerations  int     `yaml:"max_generations,omitempty"`
	TimeBudgetMs    int     `yaml:"time_budget_ms,omitempty"`
	Parallelism     int     `yaml:"parallelism,omitempty"`
	Seed            int64   `yaml:"seed,omitempty"`
	Weights         Weights `yaml:"weights,omitempty"`
}

type Weights struct {
	BufferLevel float64 `yaml:"buffer_level"`
	UnmetDemand float64 `yaml:"unmet_demand"`
	BufferCount float64 `yaml:"buffer_count"`
}

// Load reads and decodes a scenario file. Shape validation beyond YAML
// decoding happens in network.Build.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Horizons returns the scenario's time parameters.
func (c *Config) Horizons() model.Horizons {
	return model.Horizons{
		Planning:      c.PlanningHorizon,
		Past:          c.PastHorizon,
		Peak:          c.PeakHorizon,
		PeakThreshold: c.PeakThreshold,
	}
}

// Declarations converts the station list to builder declarations; the list
// position is the station index.
func (c *Config) Declarations() []model.StationDecl {
	decls := make([]model.StationDecl, len(c.Stations))
	for i, s := range c.Stations {
		flows := make([]model.Flow, len(s.Flows))
		for j, f := range s.Flows {
			flows[j] = model.Flow{Target: f.Target, Amount: f.Amount}
		}
		decls[i] = model.StationDecl{
			Index:             i,
			ProcessingTime:    s.ProcessingTime,
			InitialBuffer:     s.InitialBuffer,
			PastBuffers:       s.PastBuffers,
			PastOrders:        s.PastOrders,
			DemandForecast:    s.DemandForecast,
			DemandVariability: s.DemandVariability,
			Flows:             flows,
		}
	}
	return decls
}

// SolverParams maps the solver section onto optimizer parameters; zero
// values keep the optimizer defaults.
func (c *Config) SolverParams() genetic.Params {
	s := c.Solver
	return genetic.Params{
		PopulationSize:  s.Population,
		TournamentSize:  s.TournamentSize,
		CrossoverMix:    s.CrossoverMix,
		MutationRate:    s.MutationRate,
		StagnationLimit: s.StagnationLimit,
		MaxGenerations:  s.MaxGenerations,
		TimeBudget:      time.Duration(s.TimeBudgetMs) * time.Millisecond,
		Parallelism:     s.Parallelism,
		Seed:            s.Seed,
		Weights: ddmrp.Weights{
			BufferLevel: s.Weights.BufferLevel,
			UnmetDemand: s.Weights.UnmetDemand,
			BufferCount: s.Weights.BufferCount,
		},
	}
}
