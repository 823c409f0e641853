// SPDX-License-Identifier: GPL-3.0-or-later

package replica

import (
	"sync/atomic"

	"github.com/bassosimone/runtimex"
	"gvisor.dev/gvisor/pkg/buffer"
	"gvisor.dev/gvisor/pkg/tcpip/stack"
)

// Pool allocates, duplicates and releases [*Packet] instances and
// keeps track of how many of them are alive.
//
// Construct using [NewPool].
type Pool struct {
	// allocated counts packets created or duplicated.
	allocated atomic.Uint64

	// released counts packets returned to the pool.
	released atomic.Uint64
}

// NewPool creates a new [*Pool] instance.
func NewPool() *Pool {
	return &Pool{}
}

// Ensure that [*Pool] implements [Allocator].
var _ Allocator = &Pool{}

// NewPacket creates a new [*Packet] owning A COPY OF the given
// headers and payload.
func (pl *Pool) NewPacket(uid uint64, dir Direction, headers []Header, payload []byte) *Packet {
	copied := make([]byte, len(payload))
	copy(copied, payload)
	pkt := &Packet{
		UID:       uid,
		Direction: dir,
		Headers:   packetCloneHeaders(headers),
		buf: stack.NewPacketBuffer(stack.PacketBufferOptions{
			Payload: buffer.MakeWithData(copied),
		}),
		released: false,
	}
	pl.allocated.Add(1)
	return pkt
}

// Duplicate implements [Allocator].
//
// The header chain is copied and the payload is shared.
//
// This method PANICs if the packet has been released.
func (pl *Pool) Duplicate(pkt *Packet) *Packet {
	runtimex.Assert(!pkt.released)
	dup := &Packet{
		UID:       pkt.UID,
		Direction: pkt.Direction,
		Headers:   packetCloneHeaders(pkt.Headers),
		buf:       pkt.buf.Clone(),
		released:  false,
	}
	pl.allocated.Add(1)
	return dup
}

// Release implements [Allocator].
//
// This method PANICs if the packet has already been released.
func (pl *Pool) Release(pkt *Packet) {
	runtimex.Assert(!pkt.released)
	pkt.released = true
	pkt.buf.DecRef()
	pkt.buf = nil
	pl.released.Add(1)
}

// Allocated returns the number of packets created or duplicated so far.
func (pl *Pool) Allocated() uint64 {
	return pl.allocated.Load()
}

// Released returns the number of packets released so far.
func (pl *Pool) Released() uint64 {
	return pl.released.Load()
}

// Live returns the number of packets not yet released.
func (pl *Pool) Live() uint64 {
	return pl.allocated.Load() - pl.released.Load()
}
