package cli

import (
	"errors"

	"github.com/randalmurphal/flowrules/pkg/flowrules/draftstore"
)

// errNoStore is returned by commands that read drafts back when no store
// file is configured; an in-memory store would be empty.
var errNoStore = errors.New("no draft store: pass --store or set store.path in the settings file")

// openStore opens the draft store named by the settings.
func openStore(opts *RootOptions) (draftstore.Store, error) {
	path := opts.settings.DraftStorePath
	if path == "" {
		return nil, errNoStore
	}
	return draftstore.NewSQLiteStore(path)
}
