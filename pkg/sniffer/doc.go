/*
Package sniffer captures TCP SYN packets and feeds them to the detector.

The sniffer opens the configured interface with libpcap (via gopacket),
installs a BPF filter for SYN-without-ACK segments, and forwards each
decoded event as a (source IP, destination port) pair to its Observer.
Classic BPF cannot test TCP flags behind an IPv6 header, so IPv6 segments
pass the kernel filter and are narrowed to SYNs during decode.

Capture is lossy by nature; the daemon makes no delivery guarantee for any
individual SYN.
*/
package sniffer
