// SPDX-License-Identifier: GPL-3.0-or-later

package replica

import (
	"fmt"
	"slices"
	"sync"
)

// StageFactory creates a [PacketStage] using the given collaborators.
type StageFactory func(deps StageDeps) PacketStage

// Registry maps stage names to their [StageFactory].
//
// There is no global registry: create one at process start with
// [NewRegistry] and register the stages you need.
type Registry struct {
	// factories maps a name to the corresponding factory.
	factories map[string]StageFactory

	// mu provides mutual exclusion.
	mu sync.RWMutex
}

// NewRegistry creates an empty [*Registry].
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]StageFactory),
		mu:        sync.RWMutex{},
	}
}

// Register adds a factory for the given name.
//
// This method fails with [ErrDuplicateStage] if the name is already in use.
func (r *Registry) Register(name string, factory StageFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.factories[name]; found {
		return fmt.Errorf("%w: %s", ErrDuplicateStage, name)
	}
	r.factories[name] = factory
	return nil
}

// New instantiates the stage registered with the given name.
//
// This method fails with [ErrUnknownStage] if there is no such stage.
func (r *Registry) New(name string, deps StageDeps) (PacketStage, error) {
	r.mu.RLock()
	factory := r.factories[name]
	r.mu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStage, name)
	}
	return factory(deps), nil
}

// Names returns the sorted registered names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// ReplicatorName is the name used by [RegisterReplicator].
const ReplicatorName = "replicator"

// RegisterReplicator registers a [*Replicator] factory using [ReplicatorName].
//
// The options are applied to every instance the registry creates.
func RegisterReplicator(r *Registry, options ...ReplicatorOption) error {
	return r.Register(ReplicatorName, func(deps StageDeps) PacketStage {
		return NewReplicator(deps, options...)
	})
}
