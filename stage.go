// SPDX-License-Identifier: GPL-3.0-or-later

package replica

import (
	"io"
	"log/slog"
)

// PacketStage is a node in a layered packet-processing pipeline.
type PacketStage interface {
	// Receive processes a packet. The stage takes ownership of it.
	Receive(pkt *Packet)

	// ReceiveFrom is like Receive but also carries the identifier
	// of the stage that submitted the packet.
	ReceiveFrom(pkt *Packet, sourceID int)

	// Command handles a textual control command and returns its result.
	Command(args []string) (string, error)
}

// Allocator duplicates and releases packets.
//
// The [*Pool] implements this interface.
type Allocator interface {
	// Duplicate returns an independently owned copy of pkt.
	Duplicate(pkt *Packet) *Packet

	// Release returns pkt resources. Each packet is released once.
	Release(pkt *Packet)
}

// UpperLayer receives packets travelling up.
//
// The [StageFunc] type implements this interface.
type UpperLayer interface {
	SendUp(pkt *Packet)
}

// LowerLayer receives packets travelling down.
//
// SendDown schedules the delivery of pkt after delay time units, with
// delay >= 0, and returns immediately. The [*Link] implements this interface.
type LowerLayer interface {
	SendDown(pkt *Packet, delay float64)
}

// Dropper consumes packets that a stage refuses to process.
//
// The dropper takes ownership of pkt and finalizes it; the caller must not
// release pkt afterwards. The [*DropCounter] implements this interface.
type Dropper interface {
	Drop(pkt *Packet, code DropCode, reason string)
}

// StageDeps contains the collaborators injected into a stage.
type StageDeps struct {
	// Allocator duplicates and releases packets.
	Allocator Allocator

	// Upper is the layer above the stage.
	Upper UpperLayer

	// Lower is the layer below the stage.
	Lower LowerLayer

	// Dropper consumes refused packets.
	Dropper Dropper

	// Logger is the optional logger. When nil, the stage does not log.
	Logger *slog.Logger
}

// stageDiscardLogger is the logger used when [StageDeps] has none.
var stageDiscardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// StageFunc adapts a func to be an [UpperLayer] and a [PacketStage]
// that ignores control commands.
type StageFunc func(pkt *Packet)

var (
	_ UpperLayer  = StageFunc(nil)
	_ PacketStage = StageFunc(nil)
)

// SendUp implements [UpperLayer].
func (fx StageFunc) SendUp(pkt *Packet) {
	fx(pkt)
}

// Receive implements [PacketStage].
func (fx StageFunc) Receive(pkt *Packet) {
	fx(pkt)
}

// ReceiveFrom implements [PacketStage].
func (fx StageFunc) ReceiveFrom(pkt *Packet, sourceID int) {
	fx(pkt)
}

// Command implements [PacketStage].
func (fx StageFunc) Command(args []string) (string, error) {
	return "", ErrUnknownCommand
}
