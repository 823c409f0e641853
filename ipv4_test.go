// SPDX-License-Identifier: GPL-3.0-or-later

package replica_test

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/bassosimone/replica"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUDPv4RoundTrip(t *testing.T) {
	orig := &replica.UDPv4Datagram{
		Src:     netip.MustParseAddrPort("10.0.0.1:40000"),
		Dst:     netip.MustParseAddrPort("10.0.0.2:40001"),
		ID:      4242,
		Payload: []byte("ping"),
	}
	raw, err := replica.BuildUDPv4(orig)
	require.NoError(t, err)
	assert.Equal(t, byte(0x45), raw[0])
	assert.Len(t, raw, 20+8+4)

	got, err := replica.ParseUDPv4(raw)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestBuildUDPv4RejectsIPv6(t *testing.T) {
	_, err := replica.BuildUDPv4(&replica.UDPv4Datagram{
		Src: netip.MustParseAddrPort("[::1]:1"),
		Dst: netip.MustParseAddrPort("10.0.0.2:40001"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, replica.ErrNotUDPv4))
}

func TestParseUDPv4Failures(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		_, err := replica.ParseUDPv4([]byte{0x45, 0x00})
		assert.True(t, errors.Is(err, replica.ErrNotUDPv4))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := replica.ParseUDPv4(nil)
		assert.True(t, errors.Is(err, replica.ErrNotUDPv4))
	})
}
