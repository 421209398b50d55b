package categorize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type taxonomyFile struct {
	Categories []CategoryDefinition `yaml:"categories"`
}

// LoadTaxonomy reads a taxonomy YAML file so keyword/weight tuning never
// requires touching the classifier. File order is preserved: it is the
// tie-break order.
func LoadTaxonomy(path string) ([]CategoryDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	var f taxonomyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if err := validateTaxonomy(f.Categories); err != nil {
		return nil, err
	}
	return f.Categories, nil
}

func validateTaxonomy(defs []CategoryDefinition) error {
	if len(defs) == 0 {
		return fmt.Errorf("taxonomy has no categories")
	}
	seen := map[string]struct{}{}
	for _, def := range defs {
		if def.Name == "" {
			return fmt.Errorf("taxonomy category with empty name")
		}
		if _, dup := seen[def.Name]; dup {
			return fmt.Errorf("duplicate category %q", def.Name)
		}
		seen[def.Name] = struct{}{}
		if len(def.GeneralKeywords) == 0 {
			return fmt.Errorf("category %q has no general keywords", def.Name)
		}
		subSeen := map[string]struct{}{}
		for _, sub := range def.Subcategories {
			if sub.Name == "" {
				return fmt.Errorf("category %q has a subcategory with empty name", def.Name)
			}
			if _, dup := subSeen[sub.Name]; dup {
				return fmt.Errorf("category %q has duplicate subcategory %q", def.Name, sub.Name)
			}
			subSeen[sub.Name] = struct{}{}
			if sub.Weight <= 0 {
				return fmt.Errorf("subcategory %q/%q has non-positive weight", def.Name, sub.Name)
			}
			if len(sub.Keywords) == 0 {
				return fmt.Errorf("subcategory %q/%q has no keywords", def.Name, sub.Name)
			}
		}
	}
	return nil
}
