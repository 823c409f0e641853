// SPDX-License-Identifier: GPL-3.0-or-later

package replica

// Link is a [LowerLayer] that uses a [*Scheduler] to deliver each
// packet to a receiving [PacketStage] after the requested delay.
//
// Construct using [NewLink].
type Link struct {
	// receiver is the stage receiving delivered packets.
	receiver PacketStage

	// sched is the scheduler to use.
	sched *Scheduler

	// sourceID is passed to [PacketStage.ReceiveFrom].
	sourceID int

	// trace is the optional trace.
	trace *PCAPTrace
}

// LinkOption is an option for [NewLink].
type LinkOption func(lnk *Link)

// LinkOptionSourceID sets the source ID passed to the receiver.
//
// The default is zero.
func LinkOptionSourceID(id int) LinkOption {
	return func(lnk *Link) {
		lnk.sourceID = id
	}
}

// LinkOptionPCAPTrace dumps the payload of each packet into the given
// trace when the packet is delivered, stamped with the delivery time.
func LinkOptionPCAPTrace(trace *PCAPTrace) LinkOption {
	return func(lnk *Link) {
		lnk.trace = trace
	}
}

// NewLink creates a new [*Link] delivering packets to receiver.
func NewLink(sched *Scheduler, receiver PacketStage, options ...LinkOption) *Link {
	lnk := &Link{
		receiver: receiver,
		sched:    sched,
		sourceID: 0,
		trace:    nil,
	}
	for _, opt := range options {
		opt(lnk)
	}
	return lnk
}

// Ensure that [*Link] implements [LowerLayer].
var _ LowerLayer = &Link{}

// SendDown implements [LowerLayer].
//
// This method PANICs if delay is negative.
func (lnk *Link) SendDown(pkt *Packet, delay float64) {
	lnk.sched.Schedule(delay, func() {
		if lnk.trace != nil {
			lnk.trace.Dump(pkt.Payload(), lnk.sched.Now())
		}
		lnk.receiver.ReceiveFrom(pkt, lnk.sourceID)
	})
}
