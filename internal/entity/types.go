// Package entity defines the buildings the economy scheduler drives:
// producers (workshops, farms, service buildings) and houses.
package entity

import (
	"fmt"
	"strings"

	"github.com/talgya/hamlet/internal/world"
)

// ID is a stable identifier shared by producers and houses.
type ID uint64

// MaxHouseStage is the highest house tier.
const MaxHouseStage = 5

// Building is what the placement collaborator needs to judge eligibility.
type Building interface {
	EntityID() ID
	Site() world.HexCoord
	NeedsRoad() bool
	NearTerrain() []world.Terrain
}

// Service is a civic amenity a house may need within reach.
type Service uint8

const (
	ServiceNone Service = iota
	ServiceWater
	ServiceMarket
	ServiceTemple
	ServiceDoctor
	ServiceBathhouse
)

var serviceNames = [...]string{
	ServiceNone:      "",
	ServiceWater:     "water",
	ServiceMarket:    "market",
	ServiceTemple:    "temple",
	ServiceDoctor:    "doctor",
	ServiceBathhouse: "bathhouse",
}

func (s Service) String() string {
	if int(s) < len(serviceNames) {
		return serviceNames[s]
	}
	return "unknown"
}

// ParseService resolves a service name. The empty string is ServiceNone.
func ParseService(name string) (Service, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range serviceNames {
		if s == n {
			return Service(i), nil
		}
	}
	return ServiceNone, fmt.Errorf("entity: unknown service %q", name)
}

// ServiceSet is a bitmask of services a house can reach.
type ServiceSet uint8

// With returns the set including s.
func (ss ServiceSet) With(s Service) ServiceSet {
	if s == ServiceNone {
		return ss
	}
	return ss | 1<<s
}

// Has reports whether s is in the set.
func (ss ServiceSet) Has(s Service) bool {
	return s == ServiceNone || ss&(1<<s) != 0
}

// HasAll reports whether every listed service is in the set.
func (ss ServiceSet) HasAll(required []Service) bool {
	for _, s := range required {
		if !ss.Has(s) {
			return false
		}
	}
	return true
}

// Names lists the services in the set.
func (ss ServiceSet) Names() []string {
	var out []string
	for s := ServiceWater; s <= ServiceBathhouse; s++ {
		if ss.Has(s) {
			out = append(out, s.String())
		}
	}
	return out
}

// InactiveReason explains the outcome of a producer's last resolution.
type InactiveReason uint8

const (
	ReasonActive InactiveReason = iota
	ReasonPaused
	ReasonIneligible
	ReasonMissingResources
	ReasonNoWorkers
	ReasonUnresolved // placed but not yet resolved by any tick
)

func (r InactiveReason) String() string {
	switch r {
	case ReasonActive:
		return "active"
	case ReasonPaused:
		return "paused"
	case ReasonIneligible:
		return "ineligible"
	case ReasonMissingResources:
		return "missing_resources"
	case ReasonNoWorkers:
		return "no_workers"
	case ReasonUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}
