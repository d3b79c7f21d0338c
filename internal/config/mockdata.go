package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MockBucketsYAML represents the structure of a mock bucket fixture file.
//
//	buckets:
//	  - mock-bucket1
//	  - mock-bucket2
type MockBucketsYAML struct {
	Buckets []string `yaml:"buckets"`
}

// MockBucketNames returns the mock bucket names to serve. A fixture file, when
// configured, takes precedence over MOCK_BUCKETS.
func (c Config) MockBucketNames() ([]string, error) {
	if strings.TrimSpace(c.MockBucketsFile) == "" {
		return cleanNames(c.MockBuckets), nil
	}
	return LoadMockBuckets(c.MockBucketsFile)
}

// LoadMockBuckets loads bucket names from a YAML fixture file.
func LoadMockBuckets(filePath string) ([]string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadMockBuckets: %w", err)
	}
	// #nosec G304 -- fixture path comes from operator configuration
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadMockBuckets: %w", err)
	}
	var doc MockBucketsYAML
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("op=config.LoadMockBuckets: parse %s: %w", filePath, err)
	}
	return cleanNames(doc.Buckets), nil
}

func cleanNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
