// internal/domain/models/program.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Criterion keys stored under "criterios". Scores are manually set, 0-5.
const (
	CriterionRelevance    = "relevancia"
	CriterionClarity      = "claridad"
	CriterionTransparency = "transparencia"
	CriterionActivities   = "actividades"
	CriterionResults      = "resultados"
)

// CriterionKeys lists the fixed criterion keys in display order.
var CriterionKeys = []string{
	CriterionRelevance,
	CriterionClarity,
	CriterionTransparency,
	CriterionActivities,
	CriterionResults,
}

// Metric keys stored under "stats". Scores are computed, 0-10.
const (
	MetricInnovation          = "innovacion"
	MetricInterdisciplinarity = "interdisciplinariedad"
	MetricImpact              = "impacto"
	MetricInternational       = "internacional"
	MetricApplicability       = "aplicabilidad"
)

// MetricKeys lists the fixed metric keys in prompt order.
var MetricKeys = []string{
	MetricInnovation,
	MetricInterdisciplinarity,
	MetricImpact,
	MetricInternational,
	MetricApplicability,
}

// Criteria is the five-key rating block of a program.
type Criteria struct {
	Relevance    int `bson:"relevancia" json:"relevancia"`
	Clarity      int `bson:"claridad" json:"claridad"`
	Transparency int `bson:"transparencia" json:"transparencia"`
	Activities   int `bson:"actividades" json:"actividades"`
	Results      int `bson:"resultados" json:"resultados"`
}

// DefaultCriteria is written to programs that have no criteria yet.
func DefaultCriteria() Criteria {
	return Criteria{}
}

// Stats maps metric keys to scores. Stats are written by the web front end
// from parsed model output, so a value may be an int32, int64, double,
// string, or null; each is kept as stored.
type Stats map[string]any

// Value returns the stored value for key. A null value is reported as
// absent.
func (s Stats) Value(key string) (any, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Metadata holds the generated explanation of a university's stats.
type Metadata struct {
	Description string `bson:"descripcion,omitempty" json:"descripcion,omitempty"`
	LastUpdated string `bson:"last_updated,omitempty" json:"last_updated,omitempty"`
}

// Program is one doctoral program document in the "programas" collection.
// Documents are created by an external import; this repo only sets
// Criteria and Metadata.
type Program struct {
	ID           primitive.ObjectID `bson:"_id"`
	Name         string             `bson:"programa"`
	University   string             `bson:"universidad"`
	City         string             `bson:"ciudad"`
	ResearchLine string             `bson:"linea_investigacion,omitempty"`
	Criteria     *Criteria          `bson:"criterios,omitempty"`
	Stats        Stats              `bson:"stats,omitempty"`
	Metadata     *Metadata          `bson:"metadata,omitempty"`
}
