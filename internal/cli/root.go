package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowrules/pkg/flowrules/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // settings file
	Store   string // draft store path, overrides the settings file

	settings config.Settings
	logger   *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the flowc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "flowc",
		Short: "flowc - flow to rule compiler",
		Long: `Translate node-RED flows into context broker subscriptions and
rule engine rules.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "settings file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "draft store database path")

	cmd.AddCommand(NewTranslateCommand(opts))
	cmd.AddCommand(NewAssignCommand(opts))
	cmd.AddCommand(NewDraftsCommand(opts))

	return cmd
}

// load reads settings and builds the logger. Logs go to w so that JSON
// output on stdout stays clean.
func (o *RootOptions) load(w io.Writer) error {
	o.settings = config.DefaultSettings()
	if o.Config != "" {
		s, err := config.LoadSettings(o.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "reading settings", err)
		}
		o.settings = s
	}
	if o.Store != "" {
		o.settings.DraftStorePath = o.Store
	}

	level := o.settings.Level()
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

// Settings returns the settings resolved for this invocation.
func (o *RootOptions) Settings() config.Settings {
	return o.settings
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
