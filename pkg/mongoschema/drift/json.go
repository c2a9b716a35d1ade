package drift

import "github.com/nonibytes/mongoschema/pkg/mongoschema/diff"

// SeverityItemJSON is one entry of the §6.2 `severity` array.
type SeverityItemJSON struct {
	Level   string `json:"level"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ResultJSON is the §6.2 change-set shape extended with drift fields.
type ResultJSON struct {
	diff.ChangeSetJSON
	Severity   []SeverityItemJSON `json:"severity"`
	DriftScore float64            `json:"drift_score"`
	HasDrift   bool               `json:"has_drift"`
}

// ToJSON projects a Result into the §6.2 wire format.
func (r *Result) ToJSON() ResultJSON {
	out := ResultJSON{
		ChangeSetJSON: r.Changes.ToJSON(),
		DriftScore:    r.DriftScore,
		HasDrift:      r.HasDrift,
	}
	for _, it := range r.Severity {
		out.Severity = append(out.Severity, SeverityItemJSON{
			Level: it.Level.String(), Field: it.Field.String(), Message: it.Message,
		})
	}
	return out
}
