// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a fresh adapter instance. The registry stores
// factories rather than instances so each execution gets its own adapter
// and no state leaks between runs.
type Factory func() Tool

// Registry maps capability and tool name to adapter factories, with an
// optional default tool per capability.
//
// Configuration selects tools by name:
//
//	tools:
//	  sbom: syft
//	  diagram: terravision
//
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[Capability]map[string]Factory
	defaults  map[Capability]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Capability]map[string]Factory),
		defaults:  make(map[Capability]string),
	}
}

// Register adds a factory under the given capability and name. When
// isDefault is true the tool becomes the capability's default, replacing
// any prior default.
func (r *Registry) Register(capability Capability, name string, factory Factory, isDefault bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories[capability] == nil {
		r.factories[capability] = make(map[string]Factory)
	}
	r.factories[capability][name] = factory
	if isDefault {
		r.defaults[capability] = name
	}
}

// Get instantiates the named tool for a capability. An empty name resolves
// to the capability's default. Lookup failures wrap the registry sentinel
// errors so callers can distinguish "nothing configured" from "unknown
// tool".
func (r *Registry) Get(capability Capability, name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	toolName := name
	if toolName == "" {
		toolName = r.defaults[capability]
	}
	if toolName == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoToolConfigured, capability)
	}

	factory, ok := r.factories[capability][toolName]
	if !ok {
		return nil, fmt.Errorf("%w: %s tool %q (available: %v)",
			ErrToolNotRegistered, capability, toolName, r.lockedNames(capability))
	}
	return factory(), nil
}

// List returns the sorted tool names registered for a capability.
func (r *Registry) List(capability Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lockedNames(capability)
}

// Capabilities returns the sorted capabilities with at least one
// registered tool.
func (r *Registry) Capabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Capability, 0, len(r.factories))
	for c := range r.factories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultName returns the default tool name for a capability, empty when
// none is set.
func (r *Registry) DefaultName(capability Capability) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[capability]
}

// CheckAvailability probes every registered tool and reports availability
// per capability and name. A factory or availability check that panics is
// reported as unavailable rather than taking down the caller.
func (r *Registry) CheckAvailability(ctx context.Context) map[Capability]map[string]bool {
	r.mu.RLock()
	snapshot := make(map[Capability]map[string]Factory, len(r.factories))
	for cap, byName := range r.factories {
		inner := make(map[string]Factory, len(byName))
		for name, f := range byName {
			inner[name] = f
		}
		snapshot[cap] = inner
	}
	r.mu.RUnlock()

	result := make(map[Capability]map[string]bool, len(snapshot))
	for cap, byName := range snapshot {
		result[cap] = make(map[string]bool, len(byName))
		for name, factory := range byName {
			result[cap][name] = probe(ctx, factory)
		}
	}
	return result
}

// probe runs a single availability check, converting panics into false.
func probe(ctx context.Context, factory Factory) (available bool) {
	defer func() {
		if recover() != nil {
			available = false
		}
	}()
	return factory().CheckAvailable(ctx)
}

func (r *Registry) lockedNames(capability Capability) []string {
	names := make([]string, 0, len(r.factories[capability]))
	for name := range r.factories[capability] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultRegistry   *Registry
	defaultRegistryMu sync.Mutex
)

// Default returns the process-wide registry, creating it on first use.
// Adapter packages register their factories against it during wiring.
func Default() *Registry {
	defaultRegistryMu.Lock()
	defer defaultRegistryMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry()
	}
	return defaultRegistry
}

// ResetDefault discards the process-wide registry. Primarily for tests.
func ResetDefault() {
	defaultRegistryMu.Lock()
	defer defaultRegistryMu.Unlock()
	defaultRegistry = nil
}
