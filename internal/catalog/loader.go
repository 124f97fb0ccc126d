// internal/catalog/loader.go
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

type catalogFile struct {
	Foods []Entry `yaml:"foods"`
}

// LoadFile reads a YAML catalog of the form:
//
//	foods:
//	  - key: apple
//	    name: Apple
//	    category: fruit
//	    confidence: 0.95
//	    nutrition: {calories: 52, carbohydrates: 14, glycemic_index: low, portion_size: 100}
//	    keywords: [apple]
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]Entry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := Validate(f.Foods); err != nil {
		return nil, err
	}
	return f.Foods, nil
}

func Validate(entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: no foods", ErrInvalidCatalog)
	}
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Key == "" {
			return fmt.Errorf("%w: entry %d has no key", ErrInvalidCatalog, i)
		}
		if seen[e.Key] {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidCatalog, e.Key)
		}
		seen[e.Key] = true
		if e.Name == "" {
			return fmt.Errorf("%w: %q has no name", ErrInvalidCatalog, e.Key)
		}
		if !e.Category.Valid() {
			return fmt.Errorf("%w: %q has unknown category %q", ErrInvalidCatalog, e.Key, e.Category)
		}
		if e.Confidence < 0 || e.Confidence > 1 {
			return fmt.Errorf("%w: %q confidence must be within 0-1", ErrInvalidCatalog, e.Key)
		}
		if err := e.Nutrition.Validate(); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidCatalog, e.Key, err)
		}
	}
	return nil
}
