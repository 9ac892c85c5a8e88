package knocker

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/darktohka/knockd/pkg/log"
)

// connectTimeout bounds each knock. The SYN is on the wire as soon as the
// dial starts; whether the connection completes is irrelevant.
const connectTimeout = 100 * time.Millisecond

// Rule is a client-side knock definition: a named sequence with an optional
// default host.
type Rule struct {
	Name     string   `json:"name" yaml:"name"`
	Host     string   `json:"host,omitempty" yaml:"host,omitempty"`
	Sequence []uint16 `json:"sequence" yaml:"sequence"`
}

// Config is the client configuration.
type Config struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}

// Knocker plays knock sequences from a client configuration.
type Knocker struct {
	rules  map[string]Rule
	quiet  bool
	logger zerolog.Logger
}

// New builds a knocker. With duplicate rule names the last one wins.
func New(cfg *Config, quiet bool) *Knocker {
	rules := make(map[string]Rule, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		rules[rule.Name] = rule
	}
	return &Knocker{
		rules:  rules,
		quiet:  quiet,
		logger: log.WithComponent("knocker"),
	}
}

// Run plays the named rule's sequence. The host argument overrides the
// rule's host; with neither set the rule cannot be played.
func (k *Knocker) Run(name, host string) error {
	rule, ok := k.rules[name]
	if !ok {
		return fmt.Errorf("rule not found: %s", name)
	}

	if !k.quiet {
		k.logger.Info().Str("rule", rule.Name).Msg("executing rule")
	}

	if host == "" {
		host = rule.Host
	}
	if host == "" {
		return fmt.Errorf("no host provided for rule %s", name)
	}

	return PlaySequence(host, rule.Sequence, k.quiet)
}

// PlaySequence attempts a TCP connection to each port in order. Refused or
// timed-out connections are expected and ignored.
func PlaySequence(host string, sequence []uint16, quiet bool) error {
	logger := log.WithComponent("knocker")

	addrs, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("failed to resolve host %s: %w", host, err)
	}
	target := addrs[0]

	for _, port := range sequence {
		address := net.JoinHostPort(target, strconv.Itoa(int(port)))
		if !quiet {
			logger.Info().Str("address", address).Msg("knocking")
		}

		conn, err := net.DialTimeout("tcp", address, connectTimeout)
		if err == nil {
			conn.Close()
		}
	}

	if !quiet {
		logger.Info().Msg("rule execution complete")
	}
	return nil
}
