package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowrules/pkg/flowrules"
	"github.com/randalmurphal/flowrules/pkg/flowrules/draftstore"
)

// AssignOptions holds flags for the assign command.
type AssignOptions struct {
	*RootOptions
	Slot           string
	SubscriptionID string
}

// AssignResult is the output of the assign command.
type AssignResult struct {
	Draft DraftSummary    `json:"draft"`
	Rule  *flowrules.Rule `json:"rule,omitempty"`
}

// NewAssignCommand creates the assign command.
func NewAssignCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssignOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "assign <draft-id>",
		Short: "Report a subscription identifier for a draft",
		Long: `Record the broker identifier of a subscription created for a draft.

Once every slot of the draft has an identifier, its rule is generated
and printed. Drafts ending in a history sink never produce a rule.

Examples:
  flowc assign 3f2c... --slot fixed --id 5f1a... --store ./drafts.db
  flowc assign 3f2c... --slot second --id 5f1b... --store ./drafts.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssign(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Slot, "slot", "fixed", "slot the subscription fills (fixed|first|second)")
	cmd.Flags().StringVar(&opts.SubscriptionID, "id", "", "subscription identifier returned by the broker")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runAssign(cmd *cobra.Command, opts *AssignOptions, draftID string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	slot, err := flowrules.ParseSlot(opts.Slot)
	if err != nil {
		return out.Fail(ExitCommandError, "parsing slot", err)
	}

	store, err := openStore(opts.RootOptions)
	if err != nil {
		return out.Fail(ExitCommandError, "opening draft store", err)
	}
	defer store.Close()

	d, err := draftstore.LoadDraft(store, draftID)
	if err != nil {
		if errors.Is(err, draftstore.ErrNotFound) {
			return out.Fail(ExitCommandError, "draft "+draftID, err)
		}
		return out.Fail(ExitCommandError, "loading draft", err)
	}

	tr := flowrules.NewTranslator(
		flowrules.WithSettings(opts.settings),
		flowrules.WithLogger(opts.logger),
		flowrules.WithMetrics(true),
		flowrules.WithTracing(true),
	)
	rule, err := tr.Assign(cmd.Context(), d, slot, opts.SubscriptionID)
	if err != nil {
		return out.Fail(ExitFailure, "assigning identifier", err)
	}

	if err := draftstore.SaveDraft(store, d); err != nil {
		return out.Fail(ExitCommandError, "saving draft", err)
	}

	result := AssignResult{Draft: summarize(d), Rule: rule}
	if out.JSON() {
		return out.Success(result)
	}

	switch {
	case rule != nil:
		out.Printf("Rule %s", rule.Name)
		out.Printf("  text:   %s", rule.Text)
		out.Printf("  action: %s", rule.Action.Type)
	case d.Action.Type == flowrules.ActionHistory && d.State() == flowrules.StateReady:
		out.Printf("Draft %s is ready; history drafts produce no rule", d.ID)
	default:
		out.Printf("Draft %s is %s", d.ID, d.State())
	}
	return nil
}
