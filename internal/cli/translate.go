package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowrules/pkg/flowrules"
	"github.com/randalmurphal/flowrules/pkg/flowrules/draftstore"
)

// TranslateOptions holds flags for the translate command.
type TranslateOptions struct {
	*RootOptions
	Output string // output file path for the subscription requests
}

// DraftSummary describes one draft in command output.
type DraftSummary struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	State string   `json:"state"`
	Slots []string `json:"slots"`
}

// TranslateResult is the output of the translate command.
type TranslateResult struct {
	FlowID        string                          `json:"flow_id"`
	Drafts        []DraftSummary                  `json:"drafts"`
	Subscriptions []flowrules.SubscriptionRequest `json:"subscriptions"`
	Issues        []string                        `json:"issues,omitempty"`
	Stored        bool                            `json:"stored"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate <flow.json>",
		Short: "Translate a flow into subscription requests",
		Long: `Translate a flow document into the subscriptions it needs.

Every path from a device source to a sink becomes a draft rule. The
subscriptions of each draft are printed with the draft ID and slot their
broker identifier must be reported against (see "flowc assign").

When a draft store is configured the drafts are saved to it.

Examples:
  flowc translate flow.json
  flowc translate flow.json --store ./drafts.db --format json
  flowc translate flow.json -o subscriptions.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write subscription requests to a file")

	return cmd
}

func runTranslate(cmd *cobra.Command, opts *TranslateOptions, path string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	data, err := os.ReadFile(path)
	if err != nil {
		return out.Fail(ExitCommandError, "reading flow", err)
	}
	flow, err := flowrules.ParseFlow(data)
	if err != nil {
		return out.Fail(ExitCommandError, "parsing flow", err)
	}

	tr := flowrules.NewTranslator(
		flowrules.WithSettings(opts.settings),
		flowrules.WithLogger(opts.logger),
		flowrules.WithMetrics(true),
		flowrules.WithTracing(true),
	)
	translation, err := tr.Translate(cmd.Context(), flow)
	if err != nil {
		return out.Fail(ExitFailure, "translating flow", err)
	}

	result := TranslateResult{
		FlowID:        translation.FlowID,
		Drafts:        make([]DraftSummary, 0, len(translation.Drafts)),
		Subscriptions: translation.Subscriptions,
	}
	for _, d := range translation.Drafts {
		result.Drafts = append(result.Drafts, summarize(d))
	}
	for _, issue := range translation.Issues {
		result.Issues = append(result.Issues, issue.String())
	}
	if result.Subscriptions == nil {
		result.Subscriptions = []flowrules.SubscriptionRequest{}
	}

	if opts.settings.DraftStorePath != "" {
		if err := saveDrafts(opts.RootOptions, translation.Drafts); err != nil {
			return out.Fail(ExitCommandError, "saving drafts", err)
		}
		result.Stored = true
	}

	if opts.Output != "" {
		if err := writeJSON(opts.Output, result.Subscriptions); err != nil {
			return out.Fail(ExitCommandError, "writing output file", err)
		}
	}

	if out.JSON() {
		return out.Success(result)
	}

	out.Printf("Flow %s: %d draft(s), %d subscription(s)", result.FlowID, len(result.Drafts), len(result.Subscriptions))
	for _, d := range result.Drafts {
		out.Printf("  %s %s (%s) slots=%v", d.ID, d.Name, d.State, d.Slots)
	}
	for _, req := range result.Subscriptions {
		out.Printf("  subscription %s/%s: %s", req.DraftID, req.Slot, compactJSON(req.Subscription))
	}
	for _, issue := range result.Issues {
		out.Printf("  issue: %s", issue)
	}
	if result.Stored {
		out.Printf("Drafts saved to %s", opts.settings.DraftStorePath)
	}
	return nil
}

func summarize(d *flowrules.Draft) DraftSummary {
	s := DraftSummary{ID: d.ID, Name: d.Name, State: d.State().String(), Slots: []string{}}
	for _, slot := range d.Pattern.Slots() {
		s.Slots = append(s.Slots, slot.String())
	}
	return s
}

func saveDrafts(opts *RootOptions, drafts []*flowrules.Draft) error {
	store, err := openStore(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, d := range drafts {
		if err := draftstore.SaveDraft(store, d); err != nil {
			return err
		}
	}
	return nil
}

// compactJSON renders v on one line, keeping query operators readable.
func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
