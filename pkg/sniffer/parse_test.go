package sniffer

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flags struct {
	syn bool
	ack bool
}

func buildIPv4(t *testing.T, srcIP string, dstPort uint16, f flags) gopacket.Packet {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP(srcIP),
		DstIP:    net.ParseIP("192.0.2.1"),
	}
	tcp := &layers.TCP{
		SrcPort: 43210,
		DstPort: layers.TCPPort(dstPort),
		SYN:     f.syn,
		ACK:     f.ack,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	return serialize(t, eth, ip, tcp)
}

func buildIPv6(t *testing.T, srcIP string, dstPort uint16, f flags) gopacket.Packet {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv6,
	}
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolTCP,
		SrcIP:      net.ParseIP(srcIP),
		DstIP:      net.ParseIP("2001:db8::1"),
	}
	tcp := &layers.TCP{
		SrcPort: 43210,
		DstPort: layers.TCPPort(dstPort),
		SYN:     f.syn,
		ACK:     f.ack,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	return serialize(t, eth, ip, tcp)
}

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) gopacket.Packet {
	t.Helper()

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))

	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)
}

// TestExtractSYNIPv4 tests extraction from an IPv4 SYN
func TestExtractSYNIPv4(t *testing.T) {
	packet := buildIPv4(t, "10.0.0.1", 8000, flags{syn: true})

	event, ok := ExtractSYN(packet)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", event.SourceIP)
	assert.Equal(t, uint16(8000), event.DestinationPort)
}

// TestExtractSYNIPv6 tests extraction from an IPv6 SYN
func TestExtractSYNIPv6(t *testing.T) {
	packet := buildIPv6(t, "2001:db8::42", 9000, flags{syn: true})

	event, ok := ExtractSYN(packet)
	require.True(t, ok)
	assert.Equal(t, "2001:db8::42", event.SourceIP)
	assert.Equal(t, uint16(9000), event.DestinationPort)
}

// TestExtractSYNRejectsSynAck tests that SYN-ACK replies are dropped
func TestExtractSYNRejectsSynAck(t *testing.T) {
	packet := buildIPv4(t, "10.0.0.1", 8000, flags{syn: true, ack: true})

	_, ok := ExtractSYN(packet)
	assert.False(t, ok)
}

// TestExtractSYNRejectsNonSyn tests that plain segments are dropped
func TestExtractSYNRejectsNonSyn(t *testing.T) {
	packet := buildIPv4(t, "10.0.0.1", 8000, flags{ack: true})

	_, ok := ExtractSYN(packet)
	assert.False(t, ok)
}

// TestExtractSYNRejectsNonTCP tests that non-TCP traffic is dropped
func TestExtractSYNRejectsNonTCP(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP("10.0.0.1"),
		DstIP:    net.ParseIP("192.0.2.1"),
	}
	udp := &layers.UDP{SrcPort: 4000, DstPort: 5000}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	packet := serialize(t, eth, ip, udp)

	_, ok := ExtractSYN(packet)
	assert.False(t, ok)
}

// TestExtractSYNStableSource tests that one client always yields the same
// address string
func TestExtractSYNStableSource(t *testing.T) {
	first, ok := ExtractSYN(buildIPv6(t, "2001:db8:0:0:0:0:0:42", 9000, flags{syn: true}))
	require.True(t, ok)
	second, ok := ExtractSYN(buildIPv6(t, "2001:db8::42", 9000, flags{syn: true}))
	require.True(t, ok)

	assert.Equal(t, first.SourceIP, second.SourceIP)
}
