package annotate

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dalemusser/doctorados/internal/domain/models"
)

// Summary reports one RecalculateFields run.
type Summary struct {
	UniversitiesProcessed int      `json:"universities_processed"`
	DocumentsUpdated      int64    `json:"documents_updated"`
	FieldsUpdated         []string `json:"fields_updated"`
	Errors                []string `json:"errors"`
}

func (s *Summary) addError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// Print writes the operator-facing summary to w.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "\nRecalculation Summary:")
	fmt.Fprintf(w, "Universities processed: %d\n", s.UniversitiesProcessed)
	fmt.Fprintf(w, "Documents updated: %d\n", s.DocumentsUpdated)
	fmt.Fprintf(w, "Fields recalculated: %s\n", strings.Join(s.FieldsUpdated, ", "))

	if len(s.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors occurred (%d):\n", len(s.Errors))
		for _, e := range s.Errors {
			fmt.Fprintf(w, "- %s\n", e)
		}
	}
}

// ParseFields splits a comma-separated metric list, dropping blanks.
func ParseFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// PrintExplanations writes stored explanations to w, sorted by university.
func PrintExplanations(w io.Writer, explanations map[string]models.UniversityExplanation) {
	if len(explanations) == 0 {
		fmt.Fprintln(w, "No explanations found.")
		return
	}
	names := make([]string, 0, len(explanations))
	for name := range explanations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		e := explanations[name]
		fmt.Fprintf(w, "\n%s:\n", name)
		fmt.Fprintf(w, "Last updated: %s\n", e.LastUpdated)
		fmt.Fprintf(w, "Explanation: %s\n", e.Description)
	}
}
