package draftstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/randalmurphal/flowrules/pkg/flowrules"
)

// Version is the current record format version.
// Increment when making breaking changes to the draft layout.
const Version = 1

// Record is the persisted form of a draft.
type Record struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	// State is informational; it is derived again from Draft on load.
	State string           `json:"state"`
	Draft *flowrules.Draft `json:"draft"`
}

// SaveDraft stores d under its flow and ID.
func SaveDraft(s Store, d *flowrules.Draft) error {
	data, err := json.Marshal(Record{
		Version: Version,
		SavedAt: time.Now().UTC(),
		State:   d.State().String(),
		Draft:   d,
	})
	if err != nil {
		return fmt.Errorf("marshal draft %s: %w", d.ID, err)
	}
	return s.Save(d.FlowID, d.ID, data)
}

// LoadDraft retrieves and decodes a draft.
// Returns ErrNotFound if the draft doesn't exist.
func LoadDraft(s Store, draftID string) (*flowrules.Draft, error) {
	data, err := s.Load(draftID)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal draft %s: %w", draftID, err)
	}
	if rec.Version != Version {
		return nil, fmt.Errorf("draft %s: unsupported record version %d", draftID, rec.Version)
	}
	if rec.Draft == nil {
		return nil, fmt.Errorf("draft %s: empty record", draftID)
	}
	return rec.Draft, nil
}
