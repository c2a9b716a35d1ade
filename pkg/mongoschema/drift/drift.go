// Package drift implements the schema-vs-live drift engine of spec
// §4.4: infer a live schema, diff it against the expected one with
// drift-specific severity asymmetry, and compute a scalar drift score.
package drift

import (
	"context"
	"math"
	"sort"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/diff"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/infer"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
)

// Severity levels, ordered low to high for the has_drift comparison
// in spec §4.4 ("has_drift = any severity >= warning").
type Severity int

const (
	Info Severity = iota
	Warning
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// SeverityItem is one entry of the §6.2 `severity` array drift adds.
type SeverityItem struct {
	Level   Severity
	Field   schema.Path
	Message string
}

// Result is the full drift report: the underlying change set plus
// severity classification and the scalar score of spec §4.4.
type Result struct {
	Changes    *diff.ChangeSet
	Severity   []SeverityItem
	DriftScore float64
	HasDrift   bool
	Observed   *schema.Schema
}

// Detect infers a live schema from s and compares it against expected
// per spec §4.4's asymmetric rules.
func Detect(ctx context.Context, s infer.Sampler, collection string, expected *schema.Schema, opts infer.Options) (*Result, error) {
	inferred, err := infer.Run(ctx, s, collection, opts)
	if err != nil {
		return nil, err
	}
	return DetectFromSchema(expected, inferred.Schema), nil
}

// DetectFromSchema runs the drift comparison between an already-known
// expected schema and an already-inferred observed schema, letting
// callers reuse one inference result across multiple drift checks.
func DetectFromSchema(expected, observed *schema.Schema) *Result {
	changes := diff.Diff(expected, observed)

	var items []SeverityItem
	totalExpected := countFields(expected.Root)

	for _, c := range changes.Added {
		items = append(items, SeverityItem{Level: Info, Field: c.Path, Message: "new field detected in live data"})
	}
	for _, c := range changes.Removed {
		items = append(items, SeverityItem{Level: Warning, Field: c.Path, Message: "field declared but missing in live data"})
	}
	for _, c := range changes.Changed {
		switch c.Kind {
		case diff.TypeChanged, diff.ItemsChanged:
			// The same widening asymmetry applies to item type sets.
			from, to := c.FromTypes, c.ToTypes
			switch {
			case from.Subset(to) && !to.Subset(from):
				// expected widened to a superset observed in live data: critical
				items = append(items, SeverityItem{Level: Critical, Field: c.Path, Message: "observed type widens beyond the declared schema"})
			case to.Subset(from) && !from.Subset(to):
				// live data is a narrower subset of expected: not drift at all
			default:
				items = append(items, SeverityItem{Level: Critical, Field: c.Path, Message: "type changed on an existing field"})
			}
		case diff.PresenceChanged:
			items = append(items, SeverityItem{Level: Info, Field: c.Path, Message: "presence/required status changed"})
		}
	}

	sortSeverity(items)
	score := computeScore(items, totalExpected)

	return &Result{
		Changes:    changes,
		Severity:   items,
		DriftScore: score,
		HasDrift:   hasDrift(items),
		Observed:   observed,
	}
}

// computeScore implements spec §4.4's fixed weights:
// score = min(1, 0.5*critical + 0.2*warning + 0.05*info) / max(1, totalFields)
func computeScore(items []SeverityItem, totalExpected int) float64 {
	var critical, warning, info int
	for _, it := range items {
		switch it.Level {
		case Critical:
			critical++
		case Warning:
			warning++
		case Info:
			info++
		}
	}
	raw := 0.5*float64(critical) + 0.2*float64(warning) + 0.05*float64(info)
	numerator := math.Min(1, raw)
	denom := float64(totalExpected)
	if denom < 1 {
		denom = 1
	}
	return math.Round((numerator/denom)*100) / 100
}

func hasDrift(items []SeverityItem) bool {
	for _, it := range items {
		if it.Level >= Warning {
			return true
		}
	}
	return false
}

// countFields counts every field path position reachable from n,
// used as the drift-score denominator ("total_fields_in_expected").
// An array counts once as a single position, regardless of how
// complex its item type is.
func countFields(n *schema.Node) int {
	if n == nil || n.Kind != schema.ObjectNode {
		return 0
	}
	total := 0
	for _, name := range n.OrderedFieldNames() {
		total += 1 + countFields(n.Fields[name])
	}
	return total
}

func sortSeverity(items []SeverityItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Field.String() < items[j].Field.String()
	})
}
