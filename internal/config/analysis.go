package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AnalysisConfig holds the portfolio analysis configuration loaded from YAML:
// bucket definitions, exposure mappings and analysis tuning values.
//
// Example:
//
//	buckets:
//	  Growth:
//	    - AAPL
//	    - NVDA*
//	  Income:
//	    - JEPI
//	exposure_mappings:
//	  MSTY: MSTR
//	  BRK.B: AAPL*0.22
//	  SPYG: [NVDA*0.15, MSFT*0.06]
//	top_n: 10
//	min_position_value: 100
type AnalysisConfig struct {
	Buckets          BucketRules    `yaml:"buckets"`
	ExposureMappings map[string]any `yaml:"exposure_mappings"`
	TopN             *int           `yaml:"top_n"`
	MinPositionValue *float64       `yaml:"min_position_value"`
}

// BucketRule is one bucket definition: a name and its ordered match patterns.
type BucketRule struct {
	Name     string
	Patterns []string
}

// BucketRules is the ordered list of bucket definitions. Order is the
// classification precedence, so it must survive YAML decoding exactly as
// written in the document. A plain map would lose it; decoding walks the
// mapping node pairwise instead.
type BucketRules []BucketRule

// UnmarshalYAML decodes a YAML mapping into an ordered rule list.
func (b *BucketRules) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("buckets must be a mapping of bucket name to pattern list")
	}

	seen := make(map[string]bool)
	rules := make(BucketRules, 0, len(node.Content)/2)

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]

		var name string
		if err := keyNode.Decode(&name); err != nil {
			return fmt.Errorf("invalid bucket name at line %d: %w", keyNode.Line, err)
		}
		if seen[name] {
			return fmt.Errorf("duplicate bucket %q at line %d", name, keyNode.Line)
		}
		seen[name] = true

		var patterns []string
		if err := valNode.Decode(&patterns); err != nil {
			return fmt.Errorf("bucket %q: patterns must be a list of strings: %w", name, err)
		}

		rules = append(rules, BucketRule{Name: name, Patterns: patterns})
	}

	*b = rules
	return nil
}

// Default analysis tuning values, applied when the YAML omits them.
const (
	DefaultTopN             = 10
	DefaultMinPositionValue = 100.0
)

// DefaultAnalysis returns an analysis configuration with no buckets or
// exposure mappings and default tuning values, for running before any
// analysis file has been written.
func DefaultAnalysis() *AnalysisConfig {
	n := DefaultTopN
	v := DefaultMinPositionValue
	return &AnalysisConfig{
		ExposureMappings: map[string]any{},
		TopN:             &n,
		MinPositionValue: &v,
	}
}

// LoadAnalysis reads and validates the analysis configuration file.
// Missing tuning values get defaults; structural problems fail fast.
func LoadAnalysis(path string) (*AnalysisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis config: %w", err)
	}

	var cfg AnalysisConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse analysis config: %w", err)
	}

	if cfg.TopN == nil {
		n := DefaultTopN
		cfg.TopN = &n
	}
	if cfg.MinPositionValue == nil {
		v := DefaultMinPositionValue
		cfg.MinPositionValue = &v
	}

	if *cfg.TopN <= 0 {
		return nil, fmt.Errorf("top_n must be positive, got %d", *cfg.TopN)
	}
	if *cfg.MinPositionValue < 0 {
		return nil, fmt.Errorf("min_position_value must not be negative, got %f", *cfg.MinPositionValue)
	}

	return &cfg, nil
}
