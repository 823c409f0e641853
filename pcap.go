//
// SPDX-License-Identifier: BSD-3-Clause
//
// Adapted from: https://github.com/ooni/netem/blob/6e0d618f0cb48b96c78cd066e23cf3aa1208b1dd/pcap.go
//

package replica

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Enumerate common snapshot lengths for [NewPCAPTrace].
const (
	// SnapLenEthernet captures packets up to the Ethernet MTU.
	SnapLenEthernet = 1500

	// SnapLenMinimumIPv6 captures packets up to the minimum IPv6 MTU.
	SnapLenMinimumIPv6 = 1280

	// SnapLenJumbo captures packets up to the jumbo frames MTU.
	SnapLenJumbo = 9000
)

// pcapSnapshot is a packet snapshot.
type pcapSnapshot struct {
	// at is the virtual time of the capture.
	at float64

	// data is the data inside the snapshot.
	data []byte

	// length is the original length.
	length int
}

// PCAPTrace writes raw IP packets stamped with virtual time into
// a PCAP file using a background goroutine.
//
// Construct using [NewPCAPTrace].
type PCAPTrace struct {
	// cancel allows to cancel the background goroutine.
	cancel context.CancelFunc

	// dropped is the number of packets dropped.
	dropped atomic.Uint64

	// epoch is the wall clock time corresponding to virtual time zero.
	epoch time.Time

	// errch contains the error returned by the background goroutine.
	errch chan error

	// snaps contains the pending snapshots.
	snaps chan pcapSnapshot

	// once provides "once" semantics for Close.
	once sync.Once

	// snapSize is the number of bytes to capture.
	snapSize uint16

	// testCancellationDrainHook runs after cancellation before draining.
	testCancellationDrainHook func()

	// unit is the wall clock duration of one virtual time unit.
	unit time.Duration

	// wc is the open writer we're using.
	wc io.WriteCloser
}

// PCAPTraceOption is an option for [NewPCAPTrace].
type PCAPTraceOption func(cfg *pcapTraceConfig)

// pcapTraceConfig is the internal type modified by [PCAPTraceOption].
type pcapTraceConfig struct {
	buffer int
	epoch  time.Time
	unit   time.Duration
}

// DefaultPCAPTraceBuffer is the default number of buffered snapshots.
const DefaultPCAPTraceBuffer = 4096

// PCAPTraceOptionBuffer sets the number of snapshots buffered while
// waiting for the background goroutine to write them.
//
// The default is [DefaultPCAPTraceBuffer]. When the buffer is
// full, additional packets are dropped and counted.
func PCAPTraceOptionBuffer(size int) PCAPTraceOption {
	return func(cfg *pcapTraceConfig) {
		cfg.buffer = size
	}
}

// PCAPTraceOptionEpoch sets the wall clock time of virtual time zero.
//
// The default is the Unix epoch.
func PCAPTraceOptionEpoch(epoch time.Time) PCAPTraceOption {
	return func(cfg *pcapTraceConfig) {
		cfg.epoch = epoch
	}
}

// PCAPTraceOptionTimeUnit sets the wall clock duration of one virtual time unit.
//
// The default is one second.
func PCAPTraceOptionTimeUnit(unit time.Duration) PCAPTraceOption {
	return func(cfg *pcapTraceConfig) {
		cfg.unit = unit
	}
}

// NewPCAPTrace creates a new [*PCAPTrace] instance.
func NewPCAPTrace(wc io.WriteCloser, snapSize uint16, options ...PCAPTraceOption) *PCAPTrace {
	// 1. apply the options
	cfg := &pcapTraceConfig{
		buffer: DefaultPCAPTraceBuffer,
		epoch:  time.Unix(0, 0).UTC(),
		unit:   time.Second,
	}
	for _, opt := range options {
		opt(cfg)
	}

	// 2. initialize the trace struct
	ctx, cancel := context.WithCancel(context.Background())
	tr := &PCAPTrace{
		cancel:   cancel,
		dropped:  atomic.Uint64{},
		epoch:    cfg.epoch,
		errch:    make(chan error, 1),
		snaps:    make(chan pcapSnapshot, cfg.buffer),
		once:     sync.Once{},
		snapSize: snapSize,
		unit:     cfg.unit,
		wc:       wc,
	}

	// 3. start the worker and return
	go tr.saveLoop(ctx)
	return tr
}

// Dump captures the given raw IPv4/IPv6 packet observed at the given virtual time.
func (tr *PCAPTrace) Dump(packet []byte, at float64) {
	snapSize := min(len(packet), int(tr.snapSize))
	packetSnap := make([]byte, snapSize)
	copy(packetSnap, packet)
	select {
	case tr.snaps <- pcapSnapshot{at: at, length: len(packet), data: packetSnap}:
	default:
		tr.dropped.Add(1)
	}
}

// Dropped returns the number of packets dropped due to buffer overflow.
//
// Packets are dropped when Dump is called but the internal buffer is full.
// This happens when disk I/O cannot keep up with packet capture rate.
func (tr *PCAPTrace) Dropped() uint64 {
	return tr.dropped.Load()
}

// saveLoop is the loop that dumps packets.
func (tr *PCAPTrace) saveLoop(ctx context.Context) {
	// 1. write the PCAP header
	w := pcapgo.NewWriter(tr.wc)
	if err := w.WriteFileHeader(uint32(tr.snapSize), layers.LinkTypeRaw); err != nil {
		tr.errch <- err
		return
	}

	// 2. write each snapshot until cancelled and drained
	for {
		snap, ok := tr.readOrDrain(ctx)
		if !ok {
			tr.errch <- nil
			return
		}
		if err := tr.savePacket(w, snap); err != nil {
			tr.errch <- err
			return
		}
	}
}

// readOrDrain returns the next snapshot. After ctx is done, it only
// returns the snapshots already buffered and then returns false.
func (tr *PCAPTrace) readOrDrain(ctx context.Context) (pcapSnapshot, bool) {
	select {
	case snap := <-tr.snaps:
		return snap, true
	case <-ctx.Done():
	}
	if tr.testCancellationDrainHook != nil {
		tr.testCancellationDrainHook()
	}
	select {
	case snap := <-tr.snaps:
		return snap, true
	default:
		return pcapSnapshot{}, false
	}
}

func (tr *PCAPTrace) savePacket(w *pcapgo.Writer, pinfo pcapSnapshot) error {
	ci := gopacket.CaptureInfo{
		Timestamp:      tr.epoch.Add(time.Duration(pinfo.at * float64(tr.unit))),
		CaptureLength:  len(pinfo.data),
		Length:         pinfo.length,
		InterfaceIndex: 0,
		AncillaryData:  []any{},
	}
	return w.WritePacket(ci, pinfo.data)
}

// Close interrupts the background goroutine and waits for it to join
// before closing the packet capture file.
func (tr *PCAPTrace) Close() (err error) {
	tr.once.Do(func() {
		// 1. notify the background goroutine to terminate
		tr.cancel()

		// 2. wait for the goroutine to terminate
		err1 := <-tr.errch

		// 3. close the open capture file
		err2 := tr.wc.Close()

		// 4. assemble a common error (nil on success)
		err = errors.Join(err1, err2)
	})
	return
}
