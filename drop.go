// SPDX-License-Identifier: GPL-3.0-or-later

package replica

import (
	"log/slog"
	"sync"
)

// DropCode classifies why a stage dropped a packet.
type DropCode int

const (
	// DropInvalidReplicas indicates that the number of replicas is lower than one.
	DropInvalidReplicas = DropCode(iota + 1)

	// DropInvalidSpacing indicates that the spacing is negative.
	DropInvalidSpacing
)

// Human readable reasons passed along with the corresponding [DropCode].
const (
	ReasonInvalidReplicas = "Replicas parameter is invalid"
	ReasonInvalidSpacing  = "Spacing parameter is invalid"
)

// String implements [fmt.Stringer].
func (c DropCode) String() string {
	switch c {
	case DropInvalidReplicas:
		return "INVALID_REPLICAS"
	case DropInvalidSpacing:
		return "INVALID_SPACING"
	default:
		return "UNKNOWN"
	}
}

// DropCounter is a [Dropper] that counts dropped packets by [DropCode]
// and releases them using an [Allocator].
//
// Construct using [NewDropCounter].
type DropCounter struct {
	// allocator releases dropped packets.
	allocator Allocator

	// counts maps each code to the number of drops.
	counts map[DropCode]uint64

	// logger is the logger to use.
	logger *slog.Logger

	// mu provides mutual exclusion.
	mu sync.Mutex
}

// NewDropCounter creates a new [*DropCounter].
//
// When logger is nil, the counter does not log.
func NewDropCounter(allocator Allocator, logger *slog.Logger) *DropCounter {
	if logger == nil {
		logger = stageDiscardLogger
	}
	return &DropCounter{
		allocator: allocator,
		counts:    make(map[DropCode]uint64),
		logger:    logger,
		mu:        sync.Mutex{},
	}
}

// Ensure that [*DropCounter] implements [Dropper].
var _ Dropper = &DropCounter{}

// Drop implements [Dropper].
func (dc *DropCounter) Drop(pkt *Packet, code DropCode, reason string) {
	dc.logger.Info(
		"packet dropped",
		slog.Uint64("uid", pkt.UID),
		slog.String("code", code.String()),
		slog.String("reason", reason),
	)
	dc.mu.Lock()
	dc.counts[code]++
	dc.mu.Unlock()
	dc.allocator.Release(pkt)
}

// Count returns the number of packets dropped with the given code.
func (dc *DropCounter) Count(code DropCode) uint64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.counts[code]
}

// Total returns the number of packets dropped for any reason.
func (dc *DropCounter) Total() (total uint64) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	for _, count := range dc.counts {
		total += count
	}
	return
}
