package ccimap

import (
	"encoding/json"
	"fmt"

	"github.com/stigward/stigward/internal/database"
)

type referenceEntry struct {
	CCI          string `json:"cci"`
	Definition   string `json:"definition"`
	ControlID    string `json:"controlId"`
	ControlTitle string `json:"controlTitle"`
}

// ParseReference decodes a CCI reference file: a JSON array of mapping
// entries. Entries missing a CCI or a control ID are rejected rather than
// silently dropped, since a partial reference load corrupts every later
// mapping run.
func ParseReference(content []byte) ([]*database.CciControlMapping, error) {
	var entries []referenceEntry
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("parsing CCI reference file: %w", err)
	}

	mappings := make([]*database.CciControlMapping, 0, len(entries))
	for i, e := range entries {
		if e.CCI == "" || e.ControlID == "" {
			return nil, fmt.Errorf("CCI reference entry %d: cci and controlId are required", i)
		}
		mappings = append(mappings, &database.CciControlMapping{
			CCI:          e.CCI,
			Definition:   e.Definition,
			ControlID:    e.ControlID,
			ControlTitle: e.ControlTitle,
		})
	}
	return mappings, nil
}
