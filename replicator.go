// SPDX-License-Identifier: GPL-3.0-or-later

package replica

import (
	"log/slog"
	"math"
)

// Replicator is a [PacketStage] that forwards packets travelling up
// unchanged and emits time-staggered duplicates of packets travelling down.
//
// The replicator is not safe for concurrent use. It is meant to run
// within the single goroutine of a discrete-event loop such as [*Scheduler].
//
// Construct using [NewReplicator].
type Replicator struct {
	// BaseStage provides identity, logging and generic commands.
	*BaseStage

	// deps contains the injected collaborators.
	deps StageDeps

	// replicas is the number of copies per downward packet.
	replicas int

	// spacing is the delay increment between consecutive copies.
	spacing float64
}

// ReplicatorOption is an option for [NewReplicator].
type ReplicatorOption func(cfg *replicatorConfig)

// replicatorConfig is the internal type modified by [ReplicatorOption].
type replicatorConfig struct {
	name     string
	replicas int
	spacing  float64
}

// DefaultReplicas is the default number of replicas.
const DefaultReplicas = 1

// DefaultSpacing is the default spacing between replicas.
const DefaultSpacing = 0.5

// ReplicatorOptionName sets the stage name used when logging.
//
// The default is [ReplicatorName].
func ReplicatorOptionName(name string) ReplicatorOption {
	return func(cfg *replicatorConfig) {
		cfg.name = name
	}
}

// ReplicatorOptionReplicas binds the initial number of replicas.
//
// The default is [DefaultReplicas]. Unlike [*Replicator.SetReplicas], the
// value is stored as is. A value lower than one causes the replicator to
// drop every packet travelling down with [DropInvalidReplicas].
func ReplicatorOptionReplicas(value int) ReplicatorOption {
	return func(cfg *replicatorConfig) {
		cfg.replicas = value
	}
}

// ReplicatorOptionSpacing binds the initial spacing.
//
// The default is [DefaultSpacing]. Unlike [*Replicator.SetSpacing], the
// value is stored as is. A negative value causes the replicator to
// drop every packet travelling down with [DropInvalidSpacing].
func ReplicatorOptionSpacing(value float64) ReplicatorOption {
	return func(cfg *replicatorConfig) {
		cfg.spacing = value
	}
}

// NewReplicator creates a new [*Replicator] instance.
//
// The deps Allocator, Upper, Lower and Dropper fields must not be nil.
func NewReplicator(deps StageDeps, options ...ReplicatorOption) *Replicator {
	cfg := &replicatorConfig{
		name:     ReplicatorName,
		replicas: DefaultReplicas,
		spacing:  DefaultSpacing,
	}
	for _, opt := range options {
		opt(cfg)
	}

	return &Replicator{
		BaseStage: NewBaseStage(cfg.name, deps.Logger),
		deps:      deps,
		replicas:  cfg.replicas,
		spacing:   cfg.spacing,
	}
}

// Ensure that [*Replicator] implements [PacketStage].
var _ PacketStage = &Replicator{}

// Receive implements [PacketStage].
func (rx *Replicator) Receive(pkt *Packet) {
	// 1. packets travelling up pass through untouched
	if pkt.Direction == DirectionUp {
		rx.deps.Upper.SendUp(pkt)
		return
	}

	// 2. refuse to replicate with an invalid number of replicas
	if rx.replicas < 1 {
		rx.Logger.Error("invalid number of replicas", slog.Int("replicas", rx.replicas))
		rx.deps.Dropper.Drop(pkt, DropInvalidReplicas, ReasonInvalidReplicas)
		return
	}

	// 3. refuse to replicate with an invalid spacing (including NaN and +Inf)
	if !(rx.spacing >= 0) || math.IsInf(rx.spacing, 1) {
		rx.Logger.Error("invalid spacing", slog.Float64("spacing", rx.spacing))
		rx.deps.Dropper.Drop(pkt, DropInvalidSpacing, ReasonInvalidSpacing)
		return
	}

	// 4. send the replicas down
	rx.replicateAndForward(pkt)
}

// ReceiveFrom implements [PacketStage].
//
// The sourceID does not influence the processing.
func (rx *Replicator) ReceiveFrom(pkt *Packet, sourceID int) {
	rx.Receive(pkt)
}

// replicateAndForward sends replicas copies of pkt down, with copy
// i delayed by spacing*i, and then releases pkt.
func (rx *Replicator) replicateAndForward(pkt *Packet) {
	rx.Logger.Debug(
		"replicating packet",
		slog.Int("replicas", rx.replicas),
		slog.Uint64("uid", pkt.UID),
		slog.Float64("spacing", rx.spacing),
	)
	for idx := 0; idx < rx.replicas; idx++ {
		dup := rx.deps.Allocator.Duplicate(pkt)
		rx.deps.Lower.SendDown(dup, rx.spacing*float64(idx))
	}
	rx.deps.Allocator.Release(pkt)
}

// Replicas returns the current number of replicas.
func (rx *Replicator) Replicas() int {
	return rx.replicas
}

// Spacing returns the current spacing between replicas.
func (rx *Replicator) Spacing() float64 {
	return rx.spacing
}

// SetReplicas sets the number of replicas. Values lower than one become one.
func (rx *Replicator) SetReplicas(value int) {
	rx.replicas = max(value, 1)
}

// SetSpacing sets the spacing between replicas. Negative and
// non-finite values become zero.
func (rx *Replicator) SetSpacing(value float64) {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	rx.spacing = value
}
