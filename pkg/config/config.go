package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	// IPPlaceholder is replaced with the client address when a command fires.
	IPPlaceholder = "%IP%"

	// DefaultRuleTimeout is the lifetime of an activated rule when the rule
	// does not set its own timeout.
	DefaultRuleTimeout = 6 * time.Hour
)

// DefaultPath is where knockd looks for its configuration unless --config
// is given.
const DefaultPath = "/etc/knockd/config.json"

// Rule describes a single knock: the port sequence to watch for and the
// commands to run around it. Timeout is the activation lifetime in
// milliseconds; zero means DefaultRuleTimeout.
type Rule struct {
	Name       string   `json:"name" yaml:"name"`
	Sequence   []uint16 `json:"sequence" yaml:"sequence"`
	Activate   string   `json:"activate" yaml:"activate"`
	Deactivate string   `json:"deactivate,omitempty" yaml:"deactivate,omitempty"`
	Setup      string   `json:"setup,omitempty" yaml:"setup,omitempty"`
	Teardown   string   `json:"teardown,omitempty" yaml:"teardown,omitempty"`
	Timeout    int64    `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Lifetime returns the rule's activation lifetime.
func (r *Rule) Lifetime() time.Duration {
	if r.Timeout <= 0 {
		return DefaultRuleTimeout
	}
	return time.Duration(r.Timeout) * time.Millisecond
}

// Config is the daemon configuration. Timeout is the inactivity timeout for
// partial sequences, in milliseconds.
type Config struct {
	Interface string `json:"interface" yaml:"interface"`
	Timeout   int64  `json:"timeout" yaml:"timeout"`
	Rules     []Rule `json:"rules" yaml:"rules"`
}

// InactivityTimeout returns the partial-sequence inactivity timeout.
func (c *Config) InactivityTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// Load reads and validates a configuration file. JSON is the canonical
// encoding; files ending in .yaml or .yml are parsed as YAML instead.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for the invariants the detector relies on.
func (c *Config) Validate() error {
	if c.Interface == "" {
		return fmt.Errorf("config: interface is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive")
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("config: at least one rule is required")
	}

	seen := make(map[string]struct{}, len(c.Rules))
	for i := range c.Rules {
		rule := &c.Rules[i]
		if rule.Name == "" {
			return fmt.Errorf("config: rule %d has no name", i)
		}
		if _, dup := seen[rule.Name]; dup {
			return fmt.Errorf("config: duplicate rule name %q", rule.Name)
		}
		seen[rule.Name] = struct{}{}

		if len(rule.Sequence) == 0 {
			return fmt.Errorf("config: rule %q has an empty sequence", rule.Name)
		}
		if rule.Activate == "" {
			return fmt.Errorf("config: rule %q has no activate command", rule.Name)
		}
		if rule.Timeout < 0 {
			return fmt.Errorf("config: rule %q has a negative timeout", rule.Name)
		}
	}
	return nil
}

// ResolveCommand substitutes the client address into a command template.
func ResolveCommand(template, clientIP string) string {
	return strings.ReplaceAll(template, IPPlaceholder, clientIP)
}
