package sniffer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/rs/zerolog"

	"github.com/darktohka/knockd/pkg/log"
)

// Observer consumes one event per captured TCP SYN.
type Observer interface {
	Observe(clientIP string, port uint16)
}

const (
	snapLen     = 256
	pollTimeout = 100 * time.Millisecond

	// Classic BPF cannot test TCP flags behind an IPv6 header, so IPv6
	// segments pass the filter and are narrowed to SYNs during decode.
	bpfFilter = "(ip and tcp[tcpflags] & (tcp-syn|tcp-ack) == tcp-syn) or (ip6 and tcp)"
)

// Sniffer captures TCP SYN packets on one interface and forwards them to an
// observer.
type Sniffer struct {
	iface    string
	observer Observer
	logger   zerolog.Logger
}

// New creates a sniffer for the named interface.
func New(iface string, observer Observer) *Sniffer {
	return &Sniffer{
		iface:    iface,
		observer: observer,
		logger:   log.WithComponent("sniffer"),
	}
}

// Run opens the interface and feeds SYN events to the observer until the
// context is cancelled or the capture handle is exhausted.
func (s *Sniffer) Run(ctx context.Context) error {
	handle, err := pcap.OpenLive(s.iface, snapLen, true, pollTimeout)
	if err != nil {
		return fmt.Errorf("failed to open interface %s: %w", s.iface, err)
	}
	defer handle.Close()

	if err := handle.SetBPFFilter(bpfFilter); err != nil {
		return fmt.Errorf("failed to set capture filter: %w", err)
	}

	s.logger.Info().Str("interface", s.iface).Msg("capturing SYN packets")

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	source.NoCopy = true
	packets := source.Packets()

	for {
		select {
		case <-ctx.Done():
			return nil
		case packet, ok := <-packets:
			if !ok {
				s.logger.Warn().Msg("packet capture interrupted")
				return nil
			}
			if event, ok := ExtractSYN(packet); ok {
				s.observer.Observe(event.SourceIP, event.DestinationPort)
			}
		}
	}
}
