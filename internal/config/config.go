// Package config loads the economy's YAML configuration: scheduler knobs,
// resources, building catalogs and the starting scenario.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/entity"
	"github.com/talgya/hamlet/internal/world"
)

// Config is the full economy configuration.
type Config struct {
	Scheduler SchedulerConfig    `yaml:"scheduler"`
	Resources []ResourceConfig   `yaml:"resources"`
	Workers   WorkersConfig      `yaml:"workers"`
	Research  ResearchConfig     `yaml:"research"`
	Producers []ProducerConfig   `yaml:"producers"`
	Houses    []HouseStageConfig `yaml:"houses"`
	Scenario  ScenarioConfig     `yaml:"scenario"`
	API       APIConfig          `yaml:"api"`
	Journal   JournalConfig      `yaml:"journal"`
}

// SchedulerConfig holds the tick machine's knobs.
type SchedulerConfig struct {
	TickInterval        time.Duration `yaml:"tick_interval"`
	FrameRate           time.Duration `yaml:"frame_rate"`
	HousesPerBatch      int           `yaml:"houses_per_batch"`
	UpgradeScanBatch    int           `yaml:"upgrade_scan_batch"`
	UpgradesPerStage    int           `yaml:"upgrades_per_stage"`
	DowngradeAfterTicks int           `yaml:"downgrade_after_ticks"`
	ReportEvery         int64         `yaml:"report_every"`
}

// ResourceConfig declares one resource pool. Capacity 0 means unbounded.
type ResourceConfig struct {
	ID       string `yaml:"id"`
	Initial  int64  `yaml:"initial"`
	Capacity int64  `yaml:"capacity"`
}

// WorkersConfig sizes the worker pool. With per_resident > 0 the pool
// follows the house population after every tick.
type WorkersConfig struct {
	Total       uint32 `yaml:"total"`
	PerResident uint32 `yaml:"per_resident"`
}

// ResearchConfig lists technologies unlocked from the start.
type ResearchConfig struct {
	Unlocked []string `yaml:"unlocked"`
}

// TierConfig is one producer tier.
type TierConfig struct {
	Consumption map[string]int64 `yaml:"consumption"`
	Production  map[string]int64 `yaml:"production"`
	Workers     uint32           `yaml:"workers"`
	Research    string           `yaml:"research"`
}

// ProducerConfig is one producer kind in the catalog.
type ProducerConfig struct {
	Name          string       `yaml:"name"`
	RequiresRoad  bool         `yaml:"requires_road"`
	NearTerrain   []string     `yaml:"near_terrain"`
	Service       string       `yaml:"service"`
	ServiceRadius int          `yaml:"service_radius"`
	Noisy         bool         `yaml:"noisy"`
	Tiers         []TierConfig `yaml:"tiers"`
}

// HouseStageConfig is one of the five house stages.
type HouseStageConfig struct {
	Residents   uint32           `yaml:"residents"`
	Consumption map[string]int64 `yaml:"consumption"`
	Services    []string         `yaml:"services"`
	Research    string           `yaml:"research"`
}

// RoadConfig lays a straight road.
type RoadConfig struct {
	From      world.HexCoord `yaml:"from"`
	Direction int            `yaml:"direction"`
	Length    int            `yaml:"length"`
}

// TerrainOverride pins the terrain of one hex.
type TerrainOverride struct {
	At      world.HexCoord `yaml:"at"`
	Terrain string         `yaml:"terrain"`
}

// PlacementConfig places one building at start. Kind is empty for houses.
type PlacementConfig struct {
	Kind  string         `yaml:"kind"`
	At    world.HexCoord `yaml:"at"`
	Stage uint8          `yaml:"stage"`
}

// ScenarioConfig is the starting map and building layout.
type ScenarioConfig struct {
	Seed      int64             `yaml:"seed"`
	Radius    int               `yaml:"radius"`
	Terrain   []TerrainOverride `yaml:"terrain"`
	Roads     []RoadConfig      `yaml:"roads"`
	Producers []PlacementConfig `yaml:"producers"`
	Houses    []PlacementConfig `yaml:"houses"`
}

// APIConfig configures the observation server.
type APIConfig struct {
	Port      int     `yaml:"port"`
	AdminKey  string  `yaml:"admin_key"`
	RateLimit float64 `yaml:"rate_limit"` // admin requests per second per client
	Burst     int     `yaml:"burst"`
	History   int     `yaml:"history"` // reports kept in memory for /history
}

// JournalConfig configures the compressed tick journal. Empty dir disables it.
type JournalConfig struct {
	Dir string `yaml:"dir"`
}

// Validate clamps knobs that would stall the scheduler and rejects
// configurations that cannot be built.
func (c *Config) Validate() error {
	clamp := func(name string, v *int) {
		if *v < 1 {
			slog.Warn("config knob clamped", "knob", name, "value", *v, "now", 1)
			*v = 1
		}
	}
	clamp("scheduler.houses_per_batch", &c.Scheduler.HousesPerBatch)
	clamp("scheduler.upgrade_scan_batch", &c.Scheduler.UpgradeScanBatch)
	clamp("scheduler.upgrades_per_stage", &c.Scheduler.UpgradesPerStage)
	clamp("scheduler.downgrade_after_ticks", &c.Scheduler.DowngradeAfterTicks)

	var errs []error
	if c.Scheduler.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.tick_interval must be positive, got %s", c.Scheduler.TickInterval))
	}
	if c.Scheduler.FrameRate <= 0 {
		c.Scheduler.FrameRate = 50 * time.Millisecond
	}

	known := make(map[string]bool, len(c.Resources))
	for _, r := range c.Resources {
		if r.ID == "" {
			errs = append(errs, errors.New("resources: empty id"))
			continue
		}
		if known[r.ID] {
			errs = append(errs, fmt.Errorf("resources: duplicate id %q", r.ID))
		}
		if r.Initial < 0 || r.Capacity < 0 {
			errs = append(errs, fmt.Errorf("resources: %q has negative initial or capacity", r.ID))
		}
		known[r.ID] = true
	}
	checkBasket := func(where string, b map[string]int64) {
		for id, v := range b {
			if !known[id] {
				errs = append(errs, fmt.Errorf("%s: unknown resource %q", where, id))
			}
			if v < 0 {
				errs = append(errs, fmt.Errorf("%s: negative amount for %q", where, id))
			}
		}
	}

	kinds := make(map[string]bool, len(c.Producers))
	for _, p := range c.Producers {
		if p.Name == "" || kinds[p.Name] {
			errs = append(errs, fmt.Errorf("producers: missing or duplicate name %q", p.Name))
		}
		kinds[p.Name] = true
		if len(p.Tiers) == 0 {
			errs = append(errs, fmt.Errorf("producer %q: no tiers", p.Name))
		}
		for i, t := range p.Tiers {
			checkBasket(fmt.Sprintf("producer %q tier %d consumption", p.Name, i+1), t.Consumption)
			checkBasket(fmt.Sprintf("producer %q tier %d production", p.Name, i+1), t.Production)
		}
		if _, err := entity.ParseService(p.Service); err != nil {
			errs = append(errs, fmt.Errorf("producer %q: %w", p.Name, err))
		}
		for _, name := range p.NearTerrain {
			if _, err := world.ParseTerrain(name); err != nil {
				errs = append(errs, fmt.Errorf("producer %q: %w", p.Name, err))
			}
		}
	}

	if len(c.Houses) != entity.MaxHouseStage {
		errs = append(errs, fmt.Errorf("houses: need %d stages, got %d", entity.MaxHouseStage, len(c.Houses)))
	}
	for i, h := range c.Houses {
		checkBasket(fmt.Sprintf("house stage %d", i+1), h.Consumption)
		for _, s := range h.Services {
			if _, err := entity.ParseService(s); err != nil {
				errs = append(errs, fmt.Errorf("house stage %d: %w", i+1, err))
			}
		}
	}

	for _, p := range c.Scenario.Producers {
		if !kinds[p.Kind] {
			errs = append(errs, fmt.Errorf("scenario: unknown producer kind %q", p.Kind))
		}
	}
	for _, t := range c.Scenario.Terrain {
		if _, err := world.ParseTerrain(t.Terrain); err != nil {
			errs = append(errs, fmt.Errorf("scenario terrain at %s: %w", t.At, err))
		}
	}
	if c.Scenario.Radius < 1 {
		errs = append(errs, fmt.Errorf("scenario.radius must be at least 1, got %d", c.Scenario.Radius))
	}

	return errors.Join(errs...)
}

// SchedulerSettings converts the scheduler section.
func (c *Config) SchedulerSettings() engine.Settings {
	return engine.Settings{
		TickInterval:        c.Scheduler.TickInterval,
		HousesPerBatch:      c.Scheduler.HousesPerBatch,
		UpgradeScanBatch:    c.Scheduler.UpgradeScanBatch,
		UpgradesPerStage:    c.Scheduler.UpgradesPerStage,
		DowngradeAfterTicks: c.Scheduler.DowngradeAfterTicks,
		WorkersPerResident:  c.Workers.PerResident,
		ReportEvery:         c.Scheduler.ReportEvery,
	}
}

// BuildLedger defines every configured resource at its initial amount.
func (c *Config) BuildLedger() *economy.Ledger {
	l := economy.NewLedger()
	for _, r := range c.Resources {
		l.Define(economy.ResourceID(r.ID), r.Initial, r.Capacity)
	}
	return l
}

// BuildProducerKinds converts the producer catalog, keyed by name.
func (c *Config) BuildProducerKinds() (map[string]*entity.ProducerKind, error) {
	out := make(map[string]*entity.ProducerKind, len(c.Producers))
	for _, p := range c.Producers {
		service, err := entity.ParseService(p.Service)
		if err != nil {
			return nil, fmt.Errorf("producer %q: %w", p.Name, err)
		}
		kind := &entity.ProducerKind{
			Name:          p.Name,
			RequiresRoad:  p.RequiresRoad,
			Service:       service,
			ServiceRadius: p.ServiceRadius,
			Noisy:         p.Noisy,
		}
		for _, name := range p.NearTerrain {
			t, err := world.ParseTerrain(name)
			if err != nil {
				return nil, fmt.Errorf("producer %q: %w", p.Name, err)
			}
			kind.NearTerrain = append(kind.NearTerrain, t)
		}
		for _, t := range p.Tiers {
			kind.Tiers = append(kind.Tiers, entity.Tier{
				Consumption: basket(t.Consumption),
				Production:  basket(t.Production),
				Workers:     t.Workers,
				Research:    t.Research,
			})
		}
		if len(kind.Tiers) == 0 {
			return nil, fmt.Errorf("producer %q: no tiers", p.Name)
		}
		out[p.Name] = kind
	}
	return out, nil
}

// BuildHouseCatalog converts the five house stages.
func (c *Config) BuildHouseCatalog() (*entity.HouseCatalog, error) {
	if len(c.Houses) != entity.MaxHouseStage {
		return nil, fmt.Errorf("houses: need %d stages, got %d", entity.MaxHouseStage, len(c.Houses))
	}
	catalog := &entity.HouseCatalog{}
	for i, h := range c.Houses {
		stage := entity.HouseStage{
			Residents:   h.Residents,
			Consumption: basket(h.Consumption),
			Research:    h.Research,
		}
		for _, name := range h.Services {
			s, err := entity.ParseService(name)
			if err != nil {
				return nil, fmt.Errorf("house stage %d: %w", i+1, err)
			}
			stage.Services = append(stage.Services, s)
		}
		catalog.Stages[i] = stage
	}
	return catalog, nil
}

// GenConfig converts the scenario's map settings.
func (c *Config) GenConfig() (world.GenConfig, error) {
	gen := world.DefaultGenConfig()
	gen.Seed = c.Scenario.Seed
	gen.Radius = c.Scenario.Radius
	if len(c.Scenario.Terrain) > 0 {
		gen.Overrides = make(map[world.HexCoord]world.Terrain, len(c.Scenario.Terrain))
	}
	for _, o := range c.Scenario.Terrain {
		t, err := world.ParseTerrain(o.Terrain)
		if err != nil {
			return gen, fmt.Errorf("scenario terrain at %s: %w", o.At, err)
		}
		gen.Overrides[o.At] = t
	}
	return gen, nil
}

// ProducerNames lists catalog kinds in sorted order.
func (c *Config) ProducerNames() []string {
	out := make([]string, 0, len(c.Producers))
	for _, p := range c.Producers {
		out = append(out, p.Name)
	}
	sort.Strings(out)
	return out
}

func basket(m map[string]int64) economy.Basket {
	if len(m) == 0 {
		return economy.Basket{}
	}
	out := make(economy.Basket, len(m))
	for k, v := range m {
		out[economy.ResourceID(k)] = v
	}
	return out
}
