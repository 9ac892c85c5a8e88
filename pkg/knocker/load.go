package knocker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a client configuration file. JSON is the canonical
// encoding; .yaml and .yml files are parsed as YAML.
func LoadConfig(path string) (*Config, error) {
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

	for _, rule := range cfg.Rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("config: rule with empty name")
		}
		if len(rule.Sequence) == 0 {
			return nil, fmt.Errorf("config: rule %q has an empty sequence", rule.Name)
		}
	}
	return &cfg, nil
}
