// internal/domain/models/criteriacatalog.go
package models

import (
	"fmt"
	"sort"
	"strings"
)

// CriteriaConfigType is the value of the "type" field that identifies the
// catalog document in the criteria_config collection.
const CriteriaConfigType = "criteria_config"

// CriterionLevels is the number of rating levels every criterion describes.
const CriterionLevels = 5

// CriterionDefinition describes how to score one criterion.
type CriterionDefinition struct {
	ID          int            `bson:"id" yaml:"id"`
	Key         string         `bson:"key" yaml:"key"`
	Label       string         `bson:"label" yaml:"label"`
	Description string         `bson:"description" yaml:"description"`
	Levels      map[int]string `bson:"levels" yaml:"levels"`
}

// CriteriaCatalog is the criteria_config document read by the rating UI.
type CriteriaCatalog struct {
	Type        string                `bson:"type" yaml:"type"`
	Version     string                `bson:"version" yaml:"version"`
	LastUpdated string                `bson:"lastUpdated" yaml:"-"`
	Criteria    []CriterionDefinition `bson:"criteria" yaml:"criteria"`
}

// Validate reports every structural problem in the catalog: missing id,
// key, or label, fewer than five described levels, and keys that do not
// match the fixed criterion set.
func (c CriteriaCatalog) Validate() error {
	var problems []string

	if c.Type != CriteriaConfigType {
		problems = append(problems, fmt.Sprintf("type is %q, want %q", c.Type, CriteriaConfigType))
	}

	seen := make(map[string]bool, len(c.Criteria))
	for i, cr := range c.Criteria {
		if cr.ID == 0 || cr.Key == "" || cr.Label == "" {
			problems = append(problems, fmt.Sprintf("criterion %d: id, key and label are required", i+1))
		}
		for lvl := 1; lvl <= CriterionLevels; lvl++ {
			if strings.TrimSpace(cr.Levels[lvl]) == "" {
				problems = append(problems, fmt.Sprintf("criterion %q: level %d missing", cr.Key, lvl))
			}
		}
		if seen[cr.Key] {
			problems = append(problems, fmt.Sprintf("criterion %q: duplicate key", cr.Key))
		}
		seen[cr.Key] = true
	}

	for _, k := range CriterionKeys {
		if !seen[k] {
			problems = append(problems, fmt.Sprintf("criterion %q: not described", k))
		}
		delete(seen, k)
	}
	extra := make([]string, 0, len(seen))
	for k := range seen {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		problems = append(problems, fmt.Sprintf("criterion %q: unknown key", k))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid criteria catalog: %s", strings.Join(problems, "; "))
	}
	return nil
}
