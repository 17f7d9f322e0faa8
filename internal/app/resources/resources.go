// internal/app/resources/resources.go
package resources

import (
	_ "embed"
	"fmt"

	"github.com/dalemusser/doctorados/internal/domain/models"
	"gopkg.in/yaml.v3"
)

// Embed the default criteria catalog.
//
//go:embed criteria.yaml
var criteriaYAML []byte

// LoadCriteriaCatalog parses and validates the embedded criteria catalog.
func LoadCriteriaCatalog() (models.CriteriaCatalog, error) {
	var cat models.CriteriaCatalog
	if err := yaml.Unmarshal(criteriaYAML, &cat); err != nil {
		return models.CriteriaCatalog{}, fmt.Errorf("parse criteria catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return models.CriteriaCatalog{}, err
	}
	return cat, nil
}
