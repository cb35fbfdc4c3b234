// Package draftstore persists pending drafts between translation and the
// arrival of their subscription identifiers.
//
// Subscriptions are created by an external dispatcher and their identifiers
// come back asynchronously, possibly in another process. A Store keeps each
// draft, keyed by its ID, until its rule has been generated.
package draftstore

import (
	"errors"
	"time"
)

// Store persists serialized drafts.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a draft of a flow.
	// Overwrites the data if the draft already exists, keeping its sequence.
	Save(flowID, draftID string, data []byte) error

	// Load retrieves a draft by ID.
	// Returns ErrNotFound if the draft doesn't exist.
	Load(draftID string) ([]byte, error)

	// List returns all drafts of a flow, ordered by sequence.
	// Returns empty slice (not error) if the flow has no drafts.
	List(flowID string) ([]Info, error)

	// Delete removes a draft.
	// Returns nil if the draft doesn't exist.
	Delete(draftID string) error

	// DeleteFlow removes all drafts of a flow.
	// Returns nil if the flow has no drafts.
	DeleteFlow(flowID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading the draft.
type Info struct {
	FlowID    string
	DraftID   string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a draft doesn't exist.
	ErrNotFound = errors.New("draft not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("draft store closed")
)
