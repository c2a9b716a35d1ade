package validate

import "time"

// DocumentErrorJSON is one entry of the §6.8 `errors` array.
type DocumentErrorJSON struct {
	Key    string   `json:"key"`
	Issues []string `json:"issues"`
}

// ResultJSON is the §6.8 validation report wire format.
type ResultJSON struct {
	TotalDocuments   int64               `json:"total_documents"`
	SampledDocuments int64               `json:"sampled_documents"`
	Valid            int                 `json:"valid"`
	Invalid          int                 `json:"invalid"`
	Errors           []DocumentErrorJSON `json:"errors"`
	ValidatedAt      time.Time           `json:"validated_at"`
}

// ToJSON projects a Result into the §6.8 wire format.
func (r *Result) ToJSON() ResultJSON {
	out := ResultJSON{
		TotalDocuments:   r.TotalDocuments,
		SampledDocuments: r.SampledDocuments,
		Valid:            r.Valid,
		Invalid:          r.Invalid,
		ValidatedAt:      r.ValidatedAt,
	}
	for _, e := range r.Errors {
		out.Errors = append(out.Errors, DocumentErrorJSON{Key: e.Key, Issues: e.Issues})
	}
	return out
}
