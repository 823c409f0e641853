// SPDX-License-Identifier: GPL-3.0-or-later

package replica_test

import (
	"bytes"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bassosimone/iotest"
	"github.com/bassosimone/replica"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCAPTraceCloseHeaderWriteError(t *testing.T) {
	writeErr := errors.New("mocked write error")
	closeErr := errors.New("mocked close error")
	wc := &iotest.FuncWriteCloser{
		WriteFunc: func([]byte) (int, error) {
			return 0, writeErr
		},
		CloseFunc: func() error {
			return closeErr
		},
	}
	trace := replica.NewPCAPTrace(wc, replica.SnapLenEthernet)
	err := trace.Close()
	require.Error(t, err)
	assert.True(t, errors.Is(err, writeErr))
	assert.True(t, errors.Is(err, closeErr))
}

func TestPCAPTraceDroppedWhenBufferFull(t *testing.T) {
	gate := make(chan struct{})
	wc := &iotest.FuncWriteCloser{
		WriteFunc: func(b []byte) (int, error) {
			<-gate
			return len(b), nil
		},
		CloseFunc: func() error {
			return nil
		},
	}
	trace := replica.NewPCAPTrace(wc, replica.SnapLenEthernet, replica.PCAPTraceOptionBuffer(1))
	trace.Dump([]byte{0x00}, 0)
	trace.Dump([]byte{0x01}, 0)
	assert.Equal(t, uint64(1), trace.Dropped())
	close(gate)
	require.NoError(t, trace.Close())
}

func TestPCAPTraceFirstPacketWriteFails(t *testing.T) {
	// prepare the mock for failing during the first packet write
	writeErr := errors.New("mocked write error")
	closeErr := errors.New("mocked close error")
	var countWrites uint32
	packetWrite := make(chan struct{})
	wc := &iotest.FuncWriteCloser{
		WriteFunc: func(b []byte) (int, error) {
			if atomic.AddUint32(&countWrites, 1) == 1 {
				return len(b), nil
			}
			close(packetWrite)
			return 0, writeErr
		},
		CloseFunc: func() error {
			return closeErr
		},
	}

	// create the trace and dump the first packet whose write should fail
	trace := replica.NewPCAPTrace(wc, replica.SnapLenEthernet)
	trace.Dump([]byte{0x00}, 0)

	// wait for the first packet write to happen before continuing
	<-packetWrite

	// close the trace and check we see both errors
	err := trace.Close()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), writeErr.Error()))
	assert.True(t, errors.Is(err, closeErr))
}

type bufferWriteCloser struct {
	bytes.Buffer
}

func (*bufferWriteCloser) Close() error {
	return nil
}

func TestPCAPTraceVirtualTimestamps(t *testing.T) {
	wc := &bufferWriteCloser{}
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trace := replica.NewPCAPTrace(
		wc,
		4,
		replica.PCAPTraceOptionEpoch(epoch),
		replica.PCAPTraceOptionTimeUnit(time.Millisecond),
	)
	trace.Dump([]byte{0x45, 0x00, 0x00, 0x14, 0xff}, 0)
	trace.Dump([]byte{0x45, 0x00}, 2.5)
	require.NoError(t, trace.Close())

	reader, err := pcapgo.NewReader(&wc.Buffer)
	require.NoError(t, err)

	data, ci, err := reader.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x45, 0x00, 0x00, 0x14}, data)
	assert.Equal(t, 5, ci.Length)
	assert.True(t, ci.Timestamp.Equal(epoch))

	data, ci, err = reader.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x45, 0x00}, data)
	assert.True(t, ci.Timestamp.Equal(epoch.Add(2500*time.Microsecond)))
}
