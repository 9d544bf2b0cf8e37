// Package agents defines the catalog of known agents and the phase executor
// contract the orchestration core drives them through.
package agents

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/yamagen/frontdesk/pkg/models"
)

// Catalog holds the agents the dispatcher can route to, in a stable order.
type Catalog struct {
	profiles map[string]models.AgentProfile
	order    []string
}

// NewCatalog builds a catalog from profiles, preserving order. Duplicate or
// unnamed profiles are rejected.
func NewCatalog(profiles []models.AgentProfile) (*Catalog, error) {
	c := &Catalog{profiles: make(map[string]models.AgentProfile, len(profiles))}
	for _, p := range profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("agent profile with empty name")
		}
		if _, ok := c.profiles[p.Name]; ok {
			return nil, fmt.Errorf("duplicate agent %q in catalog", p.Name)
		}
		if len(p.Phases) == 0 {
			return nil, fmt.Errorf("agent %q has no phases", p.Name)
		}
		c.profiles[p.Name] = p
		c.order = append(c.order, p.Name)
	}
	return c, nil
}

// DefaultCatalog returns the built-in agent set.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]models.AgentProfile{
		{
			Name:    "research",
			Label:   "social & SEO research",
			Example: "look up Instagram reel trends for 2026",
			Phases: []models.PhaseSpec{
				{Name: "gather"},
				{Name: "report"},
			},
			DefaultEstimate: models.Estimate{
				TimeLow:     5 * time.Minute,
				TimeHigh:    15 * time.Minute,
				CostLowJPY:  30,
				CostHighJPY: 70,
				Note:        "first run, rough guess",
			},
		},
		{
			Name:    "draft",
			Label:   "short-video script drafting",
			Example: "write the next posting script",
			Phases: []models.PhaseSpec{
				{Name: "collect"},
				{Name: "trends"},
				{Name: "proposals", Review: true},
				{Name: "expand", Review: true},
				{Name: "publish"},
			},
			DefaultEstimate: models.Estimate{
				TimeLow:     5 * time.Minute,
				TimeHigh:    10 * time.Minute,
				CostLowJPY:  10,
				CostHighJPY: 30,
				Note:        "first run, rough guess",
			},
		},
	})
	if err != nil {
		panic(err) // built-ins are static; a failure here is a programming error
	}
	return c
}

// catalogFile is the on-disk agent catalog format.
type catalogFile struct {
	Agents []agentEntry `yaml:"agents"`
}

type agentEntry struct {
	Name     string             `yaml:"name"`
	Label    string             `yaml:"label"`
	Example  string             `yaml:"example"`
	Phases   []models.PhaseSpec `yaml:"phases"`
	Estimate estimateEntry      `yaml:"default_estimate"`
}

type estimateEntry struct {
	TimeLow     string  `yaml:"time_low"`
	TimeHigh    string  `yaml:"time_high"`
	CostLowJPY  float64 `yaml:"cost_low_jpy"`
	CostHighJPY float64 `yaml:"cost_high_jpy"`
}

// parseDuration parses a duration field, treating empty as zero.
func parseDuration(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

// LoadCatalog reads an agent catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse agent catalog %s: %w", path, err)
	}
	if len(file.Agents) == 0 {
		return nil, fmt.Errorf("agent catalog %s defines no agents", path)
	}

	profiles := make([]models.AgentProfile, 0, len(file.Agents))
	for _, e := range file.Agents {
		timeLow, err := parseDuration("time_low", e.Estimate.TimeLow)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", e.Name, err)
		}
		timeHigh, err := parseDuration("time_high", e.Estimate.TimeHigh)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", e.Name, err)
		}
		profiles = append(profiles, models.AgentProfile{
			Name:    e.Name,
			Label:   e.Label,
			Example: e.Example,
			Phases:  e.Phases,
			DefaultEstimate: models.Estimate{
				TimeLow:     timeLow,
				TimeHigh:    timeHigh,
				CostLowJPY:  e.Estimate.CostLowJPY,
				CostHighJPY: e.Estimate.CostHighJPY,
				Note:        "first run, rough guess",
			},
		})
	}
	return NewCatalog(profiles)
}

// Get returns the profile for an agent name.
func (c *Catalog) Get(name string) (models.AgentProfile, bool) {
	p, ok := c.profiles[name]
	return p, ok
}

// Names returns agent names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// All returns all profiles in catalog order.
func (c *Catalog) All() []models.AgentProfile {
	out := make([]models.AgentProfile, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.profiles[name])
	}
	return out
}
