// SPDX-License-Identifier: GPL-3.0-or-later

package replica

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrNotUDPv4 indicates that an address or a packet is not IPv4/UDP.
var ErrNotUDPv4 = errors.New("not an IPv4/UDP packet")

// UDPv4Datagram is the decoded content of a raw IPv4/UDP packet.
type UDPv4Datagram struct {
	// Src is the source endpoint.
	Src netip.AddrPort

	// Dst is the destination endpoint.
	Dst netip.AddrPort

	// ID is the IPv4 identification field.
	ID uint16

	// Payload is the UDP payload.
	Payload []byte
}

// BuildUDPv4 serializes a raw IPv4/UDP packet with correct lengths and
// checksums, suitable as [*Packet] payload and for [*PCAPTrace].
func BuildUDPv4(dgram *UDPv4Datagram) ([]byte, error) {
	// 1. make sure we're using IPv4 addresses
	if !dgram.Src.Addr().Is4() || !dgram.Dst.Addr().Is4() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNotUDPv4, dgram.Src, dgram.Dst)
	}

	// 2. create the layers
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Id:       dgram.ID,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(dgram.Src.Addr().AsSlice()),
		DstIP:    net.IP(dgram.Dst.Addr().AsSlice()),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(dgram.Src.Port()),
		DstPort: layers.UDPPort(dgram.Dst.Port()),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}

	// 3. serialize
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}
	if err := gopacket.SerializeLayers(buf, opts, ip, udp, gopacket.Payload(dgram.Payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseUDPv4 decodes a raw IPv4/UDP packet.
func ParseUDPv4(raw []byte) (*UDPv4Datagram, error) {
	// 1. decode the packet, ignoring errors past the UDP layer
	pkt := gopacket.NewPacket(raw, layers.LayerTypeIPv4, gopacket.Default)

	// 2. extract the network and transport layers
	ip, _ := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	udp, _ := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if ip == nil || udp == nil {
		if errLayer := pkt.ErrorLayer(); errLayer != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotUDPv4, errLayer.Error())
		}
		return nil, ErrNotUDPv4
	}

	// 3. convert to the stdlib address types
	src, _ := netip.AddrFromSlice(ip.SrcIP.To4())
	dst, _ := netip.AddrFromSlice(ip.DstIP.To4())
	payload := make([]byte, len(udp.Payload))
	copy(payload, udp.Payload)
	return &UDPv4Datagram{
		Src:     netip.AddrPortFrom(src, uint16(udp.SrcPort)),
		Dst:     netip.AddrPortFrom(dst, uint16(udp.DstPort)),
		ID:      ip.Id,
		Payload: payload,
	}, nil
}
