package drift

import (
	"encoding/json"
	"testing"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/schema"
	"github.com/nonibytes/mongoschema/pkg/mongoschema/types"
)

func TestResultToJSONIncludesSeverityAndScore(t *testing.T) {
	expected := schemaOf(object(map[string]*schema.Node{"price": leaf(types.Int32)}))
	observed := schemaOf(object(map[string]*schema.Node{"price": leaf(types.Int32, types.Double)}))

	res := DetectFromSchema(expected, observed)
	j := res.ToJSON()

	if !j.HasDrift {
		t.Fatalf("expected has_drift true for a widened field")
	}
	if len(j.Severity) == 0 {
		t.Fatalf("expected at least one severity entry")
	}
	found := false
	for _, s := range j.Severity {
		if s.Level == "critical" && s.Field == "price" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a critical severity entry for price, got %+v", j.Severity)
	}
	if len(j.AddedFields) != 0 || len(j.RemovedFields) != 0 {
		t.Fatalf("expected no added/removed fields, got %+v", j)
	}

	b, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var roundTrip map[string]any
	if err := json.Unmarshal(b, &roundTrip); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := roundTrip["drift_score"]; !ok {
		t.Fatalf("expected drift_score key in the wire JSON, got %s", b)
	}
	if _, ok := roundTrip["has_drift"]; !ok {
		t.Fatalf("expected has_drift key in the wire JSON, got %s", b)
	}
}
