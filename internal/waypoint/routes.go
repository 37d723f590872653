// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package waypoint

import (
	"slices"
	"sort"
	"sync"

	"github.com/samber/oops"
)

// ErrRouteNotFound is returned when a named route is not cached.
var ErrRouteNotFound = oops.Code("ROUTE_NOT_FOUND").Errorf("route not found")

// RouteCache holds named waypoint lists shared by many NPCs.
// Routes are read-only once stored; callers always receive copies, so
// consuming one NPC's queue never affects the shared list.
// It is safe for concurrent use.
type RouteCache struct {
	mu     sync.RWMutex
	routes map[string][]Waypoint
}

// NewRouteCache creates an empty cache.
func NewRouteCache() *RouteCache {
	return &RouteCache{routes: make(map[string][]Waypoint)}
}

// Store validates seq and stores a copy of it under name, replacing any
// previous route with that name.
func (c *RouteCache) Store(name string, seq []Waypoint) error {
	if name == "" {
		return oops.Code("ROUTE_INVALID").Errorf("route name cannot be empty")
	}
	if err := validateAll(seq); err != nil {
		return oops.With("route", name).Wrap(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[name] = slices.Clone(seq)
	return nil
}

// Route returns a private copy of the named route.
func (c *RouteCache) Route(name string) ([]Waypoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seq, ok := c.routes[name]
	if !ok {
		return nil, oops.With("route", name).Wrap(ErrRouteNotFound)
	}
	return slices.Clone(seq), nil
}

// Names returns the cached route names in sorted order.
func (c *RouteCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.routes))
	for name := range c.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
