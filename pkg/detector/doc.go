/*
Package detector implements knockd's sequence-detection engine.

The detector consumes (client IP, destination port) events from the packet
sniffer, tracks per-client knock progress, and fires the configured commands
when a client completes a rule's port sequence. Two timer domains expire
state in the background: partial sequences that go quiet, and activations
whose lifetime has elapsed.

# Architecture

	┌───────────────────── DETECTOR ─────────────────────────┐
	│                                                          │
	│  Ingest (sniffer goroutine)      Housekeeping (worker)   │
	│  ┌──────────────────────┐        ┌────────────────────┐  │
	│  │ Observe(ip, port)    │  kick  │ inactivity sweep   │  │
	│  │  - watched-port gate │ ─────▶ │ lifetime sweep     │  │
	│  │  - append progress   │        │ next-deadline calc │  │
	│  │  - suffix match      │        │ sleep until kick   │  │
	│  │  - run activate cmd  │        │   or deadline      │  │
	│  └──────────┬───────────┘        └─────────┬──────────┘  │
	│             │                              │             │
	│  ┌──────────▼──────────────────────────────▼──────────┐  │
	│  │                 Guarded state                      │  │
	│  │  progress:  client → ports seen so far             │  │
	│  │  lastSeen:  client → time of last watched SYN      │  │
	│  │  active:    client → rule → activation time        │  │
	│  └────────────────────────────────────────────────────┘  │
	└──────────────────────────────────────────────────────────┘

# Matching

A rule matches when its sequence is a suffix of the client's progress list,
so noise and retries ahead of the real knock are harmless. Rules are checked
longest sequence first, ties broken by rule name, which makes overlapping
rules fire deterministically. On a match the client's progress is dropped
before the activation command runs; command failures are logged and absorbed.

# Expiry

The housekeeping worker wakes when an ingest event signals it or when the
earliest pending deadline fires. Each pass removes clients idle past the
inactivity timeout, then deactivates grants older than their rule's
lifetime. A grant is removed even when its deactivation command fails, so a
broken command is attempted once rather than on every wakeup.

Locks are never held across command execution.
*/
package detector
