package diff

import "github.com/nonibytes/mongoschema/pkg/mongoschema/types"

// FieldTypeJSON is the {"bsonType": ..., "nullable": ...} shape used
// for "from"/"to" in the §6.2 change-set JSON.
type FieldTypeJSON struct {
	BsonType any  `json:"bsonType,omitempty"`
	Nullable bool `json:"nullable,omitempty"`
}

// ChangedFieldJSON is one entry of the §6.2 `changed_fields` array.
type ChangedFieldJSON struct {
	Field string         `json:"field"`
	From  *FieldTypeJSON `json:"from,omitempty"`
	To    *FieldTypeJSON `json:"to,omitempty"`
}

// SummaryJSON is the §6.2 `summary` block.
type SummaryJSON struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
}

// ChangeSetJSON is the exact wire shape of spec §6.2.
type ChangeSetJSON struct {
	AddedFields   []string           `json:"added_fields"`
	RemovedFields []string           `json:"removed_fields"`
	ChangedFields []ChangedFieldJSON `json:"changed_fields"`
	Summary       SummaryJSON        `json:"summary"`
}

// ToJSON projects a ChangeSet into the §6.2 wire format.
func (cs *ChangeSet) ToJSON() ChangeSetJSON {
	out := ChangeSetJSON{
		AddedFields:   make([]string, 0, len(cs.Added)),
		RemovedFields: make([]string, 0, len(cs.Removed)),
		ChangedFields: make([]ChangedFieldJSON, 0, len(cs.Changed)),
		Summary:       SummaryJSON{Added: cs.SummaryAdded, Removed: cs.SummaryRemoved, Changed: cs.SummaryChanged},
	}
	for _, c := range cs.Added {
		out.AddedFields = append(out.AddedFields, c.Path.String())
	}
	for _, c := range cs.Removed {
		out.RemovedFields = append(out.RemovedFields, c.Path.String())
	}
	for _, c := range cs.Changed {
		entry := ChangedFieldJSON{Field: c.Path.String()}
		if c.FromTypes.Len() > 0 {
			entry.From = typeFieldJSON(c.FromTypes)
		}
		if c.ToTypes.Len() > 0 {
			entry.To = typeFieldJSON(c.ToTypes)
		}
		out.ChangedFields = append(out.ChangedFields, entry)
	}
	return out
}

func typeFieldJSON(ts types.Set) *FieldTypeJSON {
	nullable := ts.Has(types.Null)
	tags := ts.WithoutNull().Tags()
	var bt any
	if len(tags) == 1 {
		bt = string(tags[0])
	} else {
		strs := make([]string, len(tags))
		for i, t := range tags {
			strs[i] = string(t)
		}
		bt = strs
	}
	return &FieldTypeJSON{BsonType: bt, Nullable: nullable}
}
