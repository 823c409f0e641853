// SPDX-License-Identifier: GPL-3.0-or-later

package replica

import (
	"github.com/bassosimone/runtimex"
	"gvisor.dev/gvisor/pkg/tcpip/stack"
)

// Direction is the direction of a [*Packet] relative to the layered stack.
type Direction int

const (
	// DirectionDown means toward the lower (physical) layer.
	DirectionDown = Direction(iota)

	// DirectionUp means toward the upper (application) layer.
	DirectionUp
)

// String implements [fmt.Stringer].
func (d Direction) String() string {
	switch d {
	case DirectionDown:
		return "DOWN"
	case DirectionUp:
		return "UP"
	default:
		return "UNKNOWN"
	}
}

// Header is a named header record carried by a [*Packet].
type Header struct {
	// Name identifies the header.
	Name string

	// Data contains the header bytes.
	Data []byte
}

// Packet is a simulation event payload.
//
// Construct using [*Pool.NewPacket] or [*Pool.Duplicate] and
// return to the pool using [*Pool.Release].
//
// A duplicate owns a private copy of Headers, so mutating the
// headers of a forwarded copy never affects its siblings. The
// payload is shared read-only across duplicates through the
// reference counted [*stack.PacketBuffer].
type Packet struct {
	// UID is the unique packet identifier. Duplicates keep the
	// UID of the packet they were copied from.
	UID uint64

	// Direction is the direction of travel.
	Direction Direction

	// Headers is the header chain.
	Headers []Header

	// buf holds the payload.
	buf *stack.PacketBuffer

	// released is set by [*Pool.Release].
	released bool
}

// Payload returns A COPY OF the payload bytes.
//
// This method PANICs if the packet has been released.
func (p *Packet) Payload() []byte {
	runtimex.Assert(!p.released)
	if p.buf.Size() <= 0 {
		return []byte{}
	}
	v := p.buf.ToView()
	defer v.Release()
	out := make([]byte, v.Size())
	_ = runtimex.PanicOnError1(v.Read(out))
	return out
}

// Size returns the payload size in bytes.
func (p *Packet) Size() int {
	runtimex.Assert(!p.released)
	return p.buf.Size()
}

// Header returns the first header with the given name.
func (p *Packet) Header(name string) (Header, bool) {
	for _, h := range p.Headers {
		if h.Name == name {
			return h, true
		}
	}
	return Header{}, false
}

// Released returns whether the packet has been returned to its pool.
func (p *Packet) Released() bool {
	return p.released
}

// packetCloneHeaders returns a deep copy of the header chain.
func packetCloneHeaders(headers []Header) []Header {
	if headers == nil {
		return nil
	}
	out := make([]Header, 0, len(headers))
	for _, h := range headers {
		data := make([]byte, len(h.Data))
		copy(data, h.Data)
		out = append(out, Header{Name: h.Name, Data: data})
	}
	return out
}
