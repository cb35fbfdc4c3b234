package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowrules/pkg/flowrules/draftstore"
)

// DraftsOptions holds flags for the drafts command.
type DraftsOptions struct {
	*RootOptions
	FlowID string
}

// StoredDraft is one entry of the drafts command output.
type StoredDraft struct {
	DraftSummary
	Sequence int       `json:"sequence"`
	SavedAt  time.Time `json:"saved_at"`
}

// NewDraftsCommand creates the drafts command.
func NewDraftsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DraftsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "List the stored drafts of a flow",
		Long: `List the drafts saved for a flow, in the order they were first saved.

Examples:
  flowc drafts --flow 6a666fff.bfb128 --store ./drafts.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrafts(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.FlowID, "flow", "", "flow ID")
	_ = cmd.MarkFlagRequired("flow")

	return cmd
}

func runDrafts(cmd *cobra.Command, opts *DraftsOptions) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	store, err := openStore(opts.RootOptions)
	if err != nil {
		return out.Fail(ExitCommandError, "opening draft store", err)
	}
	defer store.Close()

	infos, err := store.List(opts.FlowID)
	if err != nil {
		return out.Fail(ExitCommandError, "listing drafts", err)
	}

	drafts := make([]StoredDraft, 0, len(infos))
	for _, info := range infos {
		d, err := draftstore.LoadDraft(store, info.DraftID)
		if err != nil {
			return out.Fail(ExitCommandError, "loading draft", err)
		}
		drafts = append(drafts, StoredDraft{
			DraftSummary: summarize(d),
			Sequence:     info.Sequence,
			SavedAt:      info.Timestamp,
		})
	}

	if out.JSON() {
		return out.Success(drafts)
	}

	out.Printf("Flow %s: %d draft(s)", opts.FlowID, len(drafts))
	for _, d := range drafts {
		out.Printf("  %d. %s %s (%s)", d.Sequence, d.ID, d.Name, d.State)
	}
	return nil
}
