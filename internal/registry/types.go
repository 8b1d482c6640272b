// Package registry holds the allocator's owned entities: frameworks,
// agents, roles, and the reservation tracker that rolls reservations up to
// their ancestor roles. See spec.md §3.
package registry

import (
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"hierarchical-allocator/internal/resources"
)

type FrameworkID string
type AgentID string

// Capabilities mirrors the protobuf-carried capability list spec.md §9
// says gets flattened into plain records at add/update time.
type Capabilities struct {
	MultiRole              bool
	HierarchicalRole       bool
	GPU                    bool
	Revocable              bool
	Shared                 bool
	ReservationRefinement  bool
	RegionAware            bool
}

// AgentCapabilities is the (smaller) capability set an agent advertises.
type AgentCapabilities struct {
	MultiRole        bool
	HierarchicalRole bool
	GPU              bool
}

// Framework is a scheduler client. See spec.md §3.
type Framework struct {
	ID             FrameworkID
	Roles          mapset.Set[string]
	Suppressed     mapset.Set[string]
	Capabilities   Capabilities
	MinAllocatable map[string][]resources.Quantities // role -> requirement sets
	Active         bool
}

// NewFramework builds a Framework with its role/suppression sets initialized.
func NewFramework(id FrameworkID, roles []string, suppressed []string, caps Capabilities, active bool) *Framework {
	return &Framework{
		ID:             id,
		Roles:          mapset.NewSet[string](roles...),
		Suppressed:     mapset.NewSet[string](suppressed...),
		Capabilities:   caps,
		MinAllocatable: make(map[string][]resources.Quantities),
		Active:         active,
	}
}

// IsSuppressed reports whether role is currently suppressed for this framework.
func (f *Framework) IsSuppressed(role string) bool {
	return f.Suppressed.Contains(role)
}

// Unavailability describes a scheduled maintenance window on an agent.
type Unavailability struct {
	Start    time.Time
	Duration time.Duration
}

// InverseOfferStatus records a framework's last response to a maintenance
// inverse offer.
type InverseOfferStatus int

const (
	InverseOfferStatusUnknown InverseOfferStatus = iota
	InverseOfferStatusAccepted
	InverseOfferStatusDeclined
)

// Maintenance tracks an agent's unavailability window and the inverse
// offers it has already produced.
type Maintenance struct {
	Unavailability       Unavailability
	OutstandingFrameworks mapset.Set[FrameworkID]
	Statuses             map[FrameworkID]InverseOfferStatus
}

func newMaintenance(u Unavailability) *Maintenance {
	return &Maintenance{
		Unavailability:        u,
		OutstandingFrameworks: mapset.NewSet[FrameworkID](),
		Statuses:              make(map[FrameworkID]InverseOfferStatus),
	}
}

// Agent is a worker node exposing a Resources total. See spec.md §3.
type Agent struct {
	ID           AgentID
	Total        resources.Resources
	Allocated    resources.Resources
	Activated    bool
	Whitelisted  bool
	Capabilities AgentCapabilities
	Region       string
	Maintenance  *Maintenance
}

// NewAgent builds an Agent, activated and whitelisted by default.
func NewAgent(id AgentID, total resources.Resources, caps AgentCapabilities, region string) *Agent {
	return &Agent{
		ID:           id,
		Total:        total,
		Allocated:    resources.New(),
		Activated:    true,
		Whitelisted:  true,
		Capabilities: caps,
		Region:       region,
	}
}

// Available returns total - allocated for this agent.
func (a *Agent) Available() resources.Resources {
	return a.Total.Subtract(a.Allocated)
}

// SetMaintenance installs (or clears, with a nil Unavailability) a
// maintenance window.
func (a *Agent) SetMaintenance(u *Unavailability) {
	if u == nil {
		a.Maintenance = nil
		return
	}
	a.Maintenance = newMaintenance(*u)
}

// Role is a slash-delimited hierarchical name. See spec.md §3.
type Role struct {
	Name       string
	Frameworks mapset.Set[FrameworkID]
	Quota      *resources.Quantities // only ever set on a top-level role
}

func newRole(name string) *Role {
	return &Role{Name: name, Frameworks: mapset.NewSet[FrameworkID]()}
}

// TopLevel returns the first path segment of a hierarchical role name.
func TopLevel(role string) string {
	if i := strings.IndexByte(role, '/'); i >= 0 {
		return role[:i]
	}
	return role
}

// IsHierarchical reports whether role names a nested (non-top-level) role.
func IsHierarchical(role string) bool {
	return strings.Contains(role, "/")
}

// Ancestors returns role and each of its ancestors up to (and including)
// the top-level role, e.g. "a/b/c" -> ["a/b/c", "a/b", "a"].
func Ancestors(role string) []string {
	parts := strings.Split(role, "/")
	out := make([]string, 0, len(parts))
	for i := len(parts); i > 0; i-- {
		out = append(out, strings.Join(parts[:i], "/"))
	}
	return out
}
