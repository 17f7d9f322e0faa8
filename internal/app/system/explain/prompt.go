package explain

import (
	"fmt"

	"github.com/dalemusser/doctorados/internal/domain/models"
)

// SystemPrompt frames the model as an academic analyst.
const SystemPrompt = "Eres un analista académico especializado en evaluación de universidades y programas de doctorado."

// NotAvailable is rendered in place of a metric the stats do not carry.
const NotAvailable = "N/A"

const userPromptTemplate = `Explica por qué la universidad '%s' tiene las siguientes calificaciones en su perfil académico:

- Innovación: %s
- Interdisciplinariedad: %s
- Impacto: %s
- Internacional: %s
- Aplicabilidad: %s

Proporciona una explicación detallada que cubra cada una de estas métricas, explicando los posibles factores
que contribuyen a estas calificaciones específicas. Escribe en español y asegúrate de que la explicación
tenga un tono analítico y profesional, apropiado para un contexto académico.`

// BuildPrompt renders the user prompt for one university.
func BuildPrompt(university string, stats models.Stats) string {
	return fmt.Sprintf(userPromptTemplate,
		university,
		FormatMetric(stats, models.MetricInnovation),
		FormatMetric(stats, models.MetricInterdisciplinarity),
		FormatMetric(stats, models.MetricImpact),
		FormatMetric(stats, models.MetricInternational),
		FormatMetric(stats, models.MetricApplicability),
	)
}

// FormatMetric renders one metric as "value/10", or NotAvailable when the
// metric is absent or null.
func FormatMetric(stats models.Stats, key string) string {
	v, ok := stats.Value(key)
	if !ok {
		return NotAvailable
	}
	return fmt.Sprintf("%v/10", v)
}
