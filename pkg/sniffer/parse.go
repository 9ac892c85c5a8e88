package sniffer

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Event is one observed connection attempt.
type Event struct {
	SourceIP        string
	DestinationPort uint16
}

// ExtractSYN pulls the source address and destination port out of a captured
// TCP SYN over IPv4 or IPv6. SYN-ACKs and non-TCP packets are rejected. The
// source address is rendered in its canonical form (dotted quad or colon-hex)
// so one client always yields the same string.
func ExtractSYN(packet gopacket.Packet) (Event, bool) {
	tcpLayer := packet.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return Event{}, false
	}
	tcp, ok := tcpLayer.(*layers.TCP)
	if !ok || !tcp.SYN || tcp.ACK {
		return Event{}, false
	}

	network := packet.NetworkLayer()
	if network == nil {
		return Event{}, false
	}

	return Event{
		SourceIP:        network.NetworkFlow().Src().String(),
		DestinationPort: uint16(tcp.DstPort),
	}, true
}
